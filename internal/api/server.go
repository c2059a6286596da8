// Package api 暴露 HTTP 接口：会话迁移、问卷、仪表盘与待办、日记、排程。
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"exhale/internal/calendar"
	"exhale/internal/dashboard"
	"exhale/internal/model"
	"exhale/internal/recommend"
	"exhale/internal/risk"
	"exhale/internal/session"
	"exhale/internal/storage"
)

// SessionService 抽象会话状态机服务。
type SessionService interface {
	SignIn(ctx context.Context, creds session.Credentials) (session.Result, error)
	CreateAccount(ctx context.Context, creds session.NewCredentials) (session.Result, error)
	SubmitProfile(ctx context.Context, userID string, req session.ProfileRequest) (session.Result, error)
	SubmitSurvey(ctx context.Context, userID string, req session.SurveyRequest) (session.Result, error)
	Resume(ctx context.Context, userID string) (session.State, error)
	SignOut(current session.State) session.State
	Tokens() *session.TokenManager
}

// DashboardService 抽象仪表盘组装。
type DashboardService interface {
	Load(ctx context.Context, userID string) (dashboard.View, error)
}

// Store 抽象待办、日记与历史的存储接口。
type Store interface {
	ListRiskHistory(ctx context.Context, userID string, limit int) ([]model.RiskScore, error)
	CreateTodo(ctx context.Context, item *model.TodoItem) error
	ListTodos(ctx context.Context, userID string) ([]model.TodoItem, error)
	UpdateTodoStatus(ctx context.Context, userID string, todoID uint, completed bool) error
	DeleteTodo(ctx context.Context, userID string, todoID uint) error
	CreateJournalEntry(ctx context.Context, entry *model.JournalEntry) error
	ListJournalEntries(ctx context.Context, userID string) ([]model.JournalEntry, error)
	DeleteJournalEntry(ctx context.Context, userID string, entryID uint) error
}

// Planner 抽象日历排程。
type Planner interface {
	ScheduleRecommended(ctx context.Context, userID string, task recommend.Task) (string, error)
	ScheduleCustom(ctx context.Context, task recommend.Task, day time.Time) (string, error)
	Week(ctx context.Context) ([]calendar.Event, error)
	Remove(ctx context.Context, eventID string) error
}

// TodoRequest 创建待办请求。
type TodoRequest struct {
	Task string `json:"task"`
}

// TodoStatusRequest 更新待办完成状态请求。
type TodoStatusRequest struct {
	Completed bool `json:"completed"`
}

// JournalRequest 创建日记请求。
type JournalRequest struct {
	Title   string `json:"title"`
	Day     string `json:"day"`
	Content string `json:"content"`
}

// ScheduleRequest 排程请求；Tier 非空时按目录解析建议，Day 非空时按指定日期排程，不受限频约束。
type ScheduleRequest struct {
	Tier     string `json:"tier"`
	Category string `json:"category"`
	Name     string `json:"name"`
	Minutes  int    `json:"minutes"`
	Day      string `json:"day"`
}

// NewHandler 构造 HTTP 多路复用器。
func NewHandler(sess SessionService, dash DashboardService, store Store, planner Planner, catalogue *recommend.Catalogue) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/session/sign-in", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var creds session.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		res, err := sess.SignIn(r.Context(), creds)
		if err != nil {
			writeError(w, res.State, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.HandleFunc("/api/session/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var creds session.NewCredentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		res, err := sess.CreateAccount(r.Context(), creds)
		if err != nil {
			writeError(w, res.State, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	})

	mux.HandleFunc("/api/session/state", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authenticate(w, r, sess)
		if !ok {
			return
		}
		state, err := sess.Resume(r.Context(), userID)
		if err != nil {
			writeError(w, state, err)
			return
		}
		writeJSON(w, http.StatusOK, session.Result{State: state, UserID: userID})
	})

	mux.HandleFunc("/api/session/sign-out", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, ok := authenticate(w, r, sess); !ok {
			return
		}
		next := sess.SignOut(session.StateDashboard)
		writeJSON(w, http.StatusOK, session.Result{State: next})
	})

	mux.HandleFunc("/api/profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		userID, ok := authenticate(w, r, sess)
		if !ok {
			return
		}
		var req session.ProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		res, err := sess.SubmitProfile(r.Context(), userID, req)
		if err != nil {
			writeError(w, res.State, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	})

	mux.HandleFunc("/api/survey", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		userID, ok := authenticate(w, r, sess)
		if !ok {
			return
		}
		var req session.SurveyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		res, err := sess.SubmitSurvey(r.Context(), userID, req)
		if err != nil {
			writeError(w, res.State, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authenticate(w, r, sess)
		if !ok {
			return
		}
		view, err := dash.Load(r.Context(), userID)
		if err != nil {
			writeError(w, "", err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	})

	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authenticate(w, r, sess)
		if !ok {
			return
		}
		limit := 30
		if l := r.URL.Query().Get("limit"); l != "" {
			if v, err := strconv.Atoi(l); err == nil && v > 0 {
				if v > 100 {
					v = 100
				}
				limit = v
			}
		}
		scores, err := store.ListRiskHistory(r.Context(), userID, limit)
		if err != nil {
			writeError(w, "", err)
			return
		}
		writeJSON(w, http.StatusOK, scores)
	})

	mux.HandleFunc("/api/todos", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authenticate(w, r, sess)
		if !ok {
			return
		}
		switch r.Method {
		case http.MethodGet:
			items, err := store.ListTodos(r.Context(), userID)
			if err != nil {
				writeError(w, "", err)
				return
			}
			writeJSON(w, http.StatusOK, items)
		case http.MethodPost:
			var req TodoRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
				return
			}
			if strings.TrimSpace(req.Task) == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "task required"})
				return
			}
			item := &model.TodoItem{UserID: userID, Task: strings.TrimSpace(req.Task)}
			if err := store.CreateTodo(r.Context(), item); err != nil {
				writeError(w, "", err)
				return
			}
			writeJSON(w, http.StatusCreated, item)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/todos/", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authenticate(w, r, sess)
		if !ok {
			return
		}
		id, ok := parseID(w, r.URL.Path, "/api/todos/")
		if !ok {
			return
		}
		switch r.Method {
		case http.MethodPut:
			var req TodoStatusRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
				return
			}
			if err := store.UpdateTodoStatus(r.Context(), userID, id, req.Completed); err != nil {
				writeError(w, "", err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		case http.MethodDelete:
			if err := store.DeleteTodo(r.Context(), userID, id); err != nil {
				writeError(w, "", err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/journal", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authenticate(w, r, sess)
		if !ok {
			return
		}
		switch r.Method {
		case http.MethodGet:
			entries, err := store.ListJournalEntries(r.Context(), userID)
			if err != nil {
				writeError(w, "", err)
				return
			}
			writeJSON(w, http.StatusOK, entries)
		case http.MethodPost:
			var req JournalRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
				return
			}
			if strings.TrimSpace(req.Title) == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title required"})
				return
			}
			day := strings.TrimSpace(req.Day)
			if day == "" {
				day = model.DayOf(time.Now())
			} else if _, err := time.Parse("2006-01-02", day); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "day must be YYYY-MM-DD"})
				return
			}
			entry := &model.JournalEntry{
				UserID:  userID,
				Title:   strings.TrimSpace(req.Title),
				Day:     day,
				Content: req.Content,
			}
			if err := store.CreateJournalEntry(r.Context(), entry); err != nil {
				writeError(w, "", err)
				return
			}
			writeJSON(w, http.StatusCreated, entry)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/journal/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		userID, ok := authenticate(w, r, sess)
		if !ok {
			return
		}
		id, ok := parseID(w, r.URL.Path, "/api/journal/")
		if !ok {
			return
		}
		if err := store.DeleteJournalEntry(r.Context(), userID, id); err != nil {
			writeError(w, "", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/schedule", func(w http.ResponseWriter, r *http.Request) {
		userID, ok := authenticate(w, r, sess)
		if !ok {
			return
		}
		switch r.Method {
		case http.MethodGet:
			events, err := planner.Week(r.Context())
			if err != nil {
				writeError(w, "", err)
				return
			}
			writeJSON(w, http.StatusOK, events)
		case http.MethodPost:
			var req ScheduleRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
				return
			}
			if strings.TrimSpace(req.Name) == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
				return
			}
			// 指定分级时以建议目录为准，未知条目直接拒绝。
			task := recommend.Task{Category: req.Category, Name: req.Name, Minutes: req.Minutes}
			if req.Tier != "" {
				found, ok := catalogue.Find(model.RiskTier(req.Tier), req.Name)
				if !ok {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown recommendation for tier"})
					return
				}
				task = found
			}

			var eventID string
			var err error
			if req.Day != "" {
				day, perr := time.Parse("2006-01-02", req.Day)
				if perr != nil {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "day must be YYYY-MM-DD"})
					return
				}
				eventID, err = planner.ScheduleCustom(r.Context(), task, day)
			} else {
				eventID, err = planner.ScheduleRecommended(r.Context(), userID, task)
			}
			if err != nil {
				writeError(w, "", err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]string{"event_id": eventID})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/schedule/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if _, ok := authenticate(w, r, sess); !ok {
			return
		}
		eventID := strings.TrimPrefix(r.URL.Path, "/api/schedule/")
		if eventID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event id required"})
			return
		}
		if err := planner.Remove(r.Context(), eventID); err != nil {
			writeError(w, "", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

// authenticate 校验 Bearer 令牌并返回用户标识；失败时已写出 401 响应。
func authenticate(w http.ResponseWriter, r *http.Request, sess SessionService) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		return "", false
	}
	claims, err := sess.Tokens().Parse(token)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return "", false
	}
	return claims.UserID, true
}

func parseID(w http.ResponseWriter, path, prefix string) (uint, bool) {
	raw := strings.TrimPrefix(path, prefix)
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return 0, false
	}
	return uint(v), true
}

// writeError 将领域错误映射为 HTTP 状态码；state 非空时附带下一个页面。
func writeError(w http.ResponseWriter, state session.State, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrInvalidInput), errors.Is(err, risk.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrAuthFailure):
		status = http.StatusUnauthorized
	case errors.Is(err, session.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, calendar.ErrRecentlyScheduled):
		status = http.StatusTooManyRequests
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	}

	body := map[string]string{"error": err.Error()}
	if state != "" {
		body["state"] = string(state)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
