package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// HTTPConfig 外部日历服务配置。
type HTTPConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	Token   string `yaml:"token" json:"-"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

// HTTPClient 对接 REST 风格的日历服务。
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *log.Logger
}

// NewHTTPClient 创建日历客户端，client 为 nil 时按配置超时构造。
func NewHTTPClient(cfg HTTPConfig, client *http.Client) *HTTPClient {
	if client == nil {
		timeout := 15 * time.Second
		if cfg.Timeout != "" {
			if d, err := time.ParseDuration(cfg.Timeout); err == nil && d > 0 {
				timeout = d
			}
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  client,
		logger:  log.New(os.Stdout, "[calendar] ", log.LstdFlags),
	}
}

// Insert 创建日历事件并返回服务端事件标识。
func (c *HTTPClient) Insert(ctx context.Context, event Event) (string, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("insert event: unexpected status %d", resp.StatusCode)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decode insert response: %w", err)
	}
	c.logger.Printf("created event %s: %s", created.ID, event.Summary)
	return created.ID, nil
}

// ListWeek 列出 from 起一周内的事件。
func (c *HTTPClient) ListWeek(ctx context.Context, from time.Time) ([]Event, error) {
	q := url.Values{}
	q.Set("from", from.Format(time.RFC3339))
	q.Set("to", from.AddDate(0, 0, 7).Format(time.RFC3339))

	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/events?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list events: unexpected status %d", resp.StatusCode)
	}

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

// Delete 删除指定事件，服务端返回 404 时视为已删除。
func (c *HTTPClient) Delete(ctx context.Context, eventID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.baseURL+"/events/"+url.PathEscape(eventID), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete event: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, u string, body *bytes.Reader) (*http.Request, error) {
	var r *http.Request
	var err error
	if body != nil {
		r, err = http.NewRequestWithContext(ctx, method, u, body)
	} else {
		r, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}
	return r, nil
}
