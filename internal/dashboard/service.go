// Package dashboard 组装主页数据：档案 + 最近问卷 → 风险评分 → 历史与建议。
package dashboard

import (
	"context"
	"fmt"
	"math"

	"exhale/internal/calendar"
	"exhale/internal/model"
	"exhale/internal/recommend"
	"exhale/internal/storage"
)

// ProfileStore 抽象档案读取。
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
}

// SurveyStore 抽象问卷读取。
type SurveyStore interface {
	GetLatestSnapshot(ctx context.Context, userID string) (*model.SurveySnapshot, error)
}

// HistoryStore 抽象风险历史的追加与读取。
type HistoryStore interface {
	AppendRiskScore(ctx context.Context, score *model.RiskScore) error
	DailyRiskHistory(ctx context.Context, userID string, limit int) ([]storage.DailyRisk, error)
}

// Scorer 抽象评分器，便于测试注入。
type Scorer interface {
	Compute(profile model.UserProfile, snap model.SurveySnapshot) (model.RiskScore, error)
}

// View 是一次仪表盘加载返回的全部数据。
type View struct {
	Name            string              `json:"name"`
	Risk            model.RiskScore     `json:"risk"`
	Recommendations []recommend.Task    `json:"recommendations"`
	History         []storage.DailyRisk `json:"history"`
	TimeBreakdown   map[string]float64  `json:"time_breakdown"`
	Events          []calendar.Event    `json:"events,omitempty"`
}

// Service 组装仪表盘。每次加载都会重新计算风险并追加到历史。
type Service struct {
	profiles  ProfileStore
	surveys   SurveyStore
	history   HistoryStore
	scorer    Scorer
	catalogue *recommend.Catalogue
	planner   *calendar.Planner
	limit     int
}

// NewService 创建仪表盘服务；planner 可为 nil 表示未接入日历。
func NewService(profiles ProfileStore, surveys SurveyStore, history HistoryStore, scorer Scorer, catalogue *recommend.Catalogue, planner *calendar.Planner) *Service {
	return &Service{
		profiles:  profiles,
		surveys:   surveys,
		history:   history,
		scorer:    scorer,
		catalogue: catalogue,
		planner:   planner,
		limit:     30,
	}
}

// Load 计算并返回用户的仪表盘数据。
// 档案或问卷缺失时返回 storage.ErrNotFound，由调用方路由到对应页面。
func (s *Service) Load(ctx context.Context, userID string) (View, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return View{}, fmt.Errorf("load profile: %w", err)
	}
	snap, err := s.surveys.GetLatestSnapshot(ctx, userID)
	if err != nil {
		return View{}, fmt.Errorf("load snapshot: %w", err)
	}

	score, err := s.scorer.Compute(*profile, *snap)
	if err != nil {
		return View{}, fmt.Errorf("compute risk: %w", err)
	}
	if err := s.history.AppendRiskScore(ctx, &score); err != nil {
		return View{}, fmt.Errorf("append risk score: %w", err)
	}

	history, err := s.history.DailyRiskHistory(ctx, userID, s.limit)
	if err != nil {
		return View{}, fmt.Errorf("load history: %w", err)
	}

	view := View{
		Name:            profile.Name,
		Risk:            score,
		Recommendations: s.catalogue.ForTier(score.Tier),
		History:         history,
		TimeBreakdown:   weeklyBreakdown(snap),
	}

	if s.planner != nil {
		events, err := s.planner.Week(ctx)
		if err != nil {
			return View{}, fmt.Errorf("load calendar: %w", err)
		}
		view.Events = events
	}
	return view, nil
}

// weeklyBreakdown 按最近问卷外推一周的时间分配，剩余为自由时间。
func weeklyBreakdown(snap *model.SurveySnapshot) map[string]float64 {
	const weekHours = 24 * 7
	work := snap.WorkHours * 7
	sleep := snap.SleepHours * 7
	exercise := snap.ExerciseHours * 7
	free := math.Max(0, weekHours-work-sleep-exercise)
	return map[string]float64{
		"work":      work,
		"sleep":     sleep,
		"exercise":  exercise,
		"free_time": free,
	}
}
