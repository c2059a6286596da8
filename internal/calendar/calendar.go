// Package calendar 以不透明协作者的形式接入外部日历，
// 具体的第三方线上格式不在本仓库范围内。
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"exhale/internal/recommend"
)

// ErrRecentlyScheduled 表示 24 小时内已有自动排程，跳过本次。
var ErrRecentlyScheduled = errors.New("a task was already scheduled within the last 24 hours")

// Event 描述一个日历事件。
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// Client 抽象外部日历，便于测试替换和更换供应商。
type Client interface {
	Insert(ctx context.Context, event Event) (string, error)
	ListWeek(ctx context.Context, from time.Time) ([]Event, error)
	Delete(ctx context.Context, eventID string) error
}

// ScheduleStore 记录自动排程的限频状态。
type ScheduleStore interface {
	LastScheduled(ctx context.Context, userID string) (time.Time, error)
	TouchScheduled(ctx context.Context, userID string, at time.Time) error
}

// Planner 负责把健康建议写入日历，自动排程每用户 24 小时最多一次。
type Planner struct {
	client Client
	store  ScheduleStore
	now    func() time.Time
}

// NewPlanner 创建 Planner。
func NewPlanner(client Client, store ScheduleStore) *Planner {
	return &Planner{client: client, store: store, now: time.Now}
}

// ScheduleRecommended 自动排程一条建议，受 24 小时限频约束。
func (p *Planner) ScheduleRecommended(ctx context.Context, userID string, task recommend.Task) (string, error) {
	now := p.now()
	last, err := p.store.LastScheduled(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("schedule recommended: %w", err)
	}
	if !last.IsZero() && now.Sub(last) < 24*time.Hour {
		return "", ErrRecentlyScheduled
	}

	start := now.Add(5 * time.Minute)
	id, err := p.client.Insert(ctx, Event{
		Summary:     task.Name,
		Description: fmt.Sprintf("%s - %s", task.Name, task.Category),
		Start:       start,
		End:         start.Add(time.Duration(task.Minutes) * time.Minute),
	})
	if err != nil {
		return "", fmt.Errorf("schedule recommended: %w", err)
	}
	if err := p.store.TouchScheduled(ctx, userID, now); err != nil {
		return "", fmt.Errorf("schedule recommended: %w", err)
	}
	return id, nil
}

// ScheduleCustom 按用户指定的日期排程建议，不受限频约束。
// 开始时间取当天 09:00。
func (p *Planner) ScheduleCustom(ctx context.Context, task recommend.Task, day time.Time) (string, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, day.Location())
	id, err := p.client.Insert(ctx, Event{
		Summary:     task.Name,
		Description: fmt.Sprintf("%s - %s", task.Name, task.Category),
		Start:       start,
		End:         start.Add(time.Duration(task.Minutes) * time.Minute),
	})
	if err != nil {
		return "", fmt.Errorf("schedule custom: %w", err)
	}
	return id, nil
}

// Week 返回未来 7 天的日历事件。
func (p *Planner) Week(ctx context.Context) ([]Event, error) {
	events, err := p.client.ListWeek(ctx, p.now())
	if err != nil {
		return nil, fmt.Errorf("list week: %w", err)
	}
	return events, nil
}

// Remove 删除一个事件。
func (p *Planner) Remove(ctx context.Context, eventID string) error {
	if err := p.client.Delete(ctx, eventID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// LogClient 内存实现，记录事件并打印日志，适合开发与测试环境。
type LogClient struct {
	logger *log.Logger

	mu     sync.Mutex
	nextID int
	events map[string]Event
}

// NewLogClient 创建 LogClient，未提供 logger 时默认输出到标准输出。
func NewLogClient(logger *log.Logger) *LogClient {
	if logger == nil {
		logger = log.New(os.Stdout, "[calendar] ", log.LstdFlags)
	}
	return &LogClient{logger: logger, events: make(map[string]Event)}
}

func (c *LogClient) Insert(ctx context.Context, event Event) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	event.ID = fmt.Sprintf("evt-%d", c.nextID)
	c.events[event.ID] = event
	c.logger.Printf("scheduled %q at %s", event.Summary, event.Start.Format(time.RFC3339))
	return event.ID, nil
}

func (c *LogClient) ListWeek(ctx context.Context, from time.Time) ([]Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	until := from.AddDate(0, 0, 7)
	var out []Event
	for _, e := range c.events {
		if !e.Start.Before(from) && e.Start.Before(until) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (c *LogClient) Delete(ctx context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.events[eventID]; !ok {
		return fmt.Errorf("event %s not found", eventID)
	}
	delete(c.events, eventID)
	return nil
}
