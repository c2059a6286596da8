package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"exhale/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound 表示请求的记录不存在。
	ErrNotFound = errors.New("record not found")
	// ErrConflict 表示唯一约束冲突（如邮箱已注册、档案已存在）。
	ErrConflict = errors.New("record already exists")
	// ErrUnavailable 表示底层存储 I/O 失败，对当前请求是致命的。
	ErrUnavailable = errors.New("store unavailable")
)

// Store 封装 SQLite 数据库访问，负责账号、档案、问卷、风险历史、
// 待办、日记与排程限频记录的增删查。
type Store struct {
	db *gorm.DB
}

// DailyRisk 表示某个自然日的平均风险，用于历史曲线。
type DailyRisk struct {
	Day     string  `json:"day"`
	AvgRisk float64 `json:"avg_risk"`
}

// NewStore 创建 Store 并自动迁移数据表。
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.AutoMigrate(
		&model.Account{},
		&model.UserProfile{},
		&model.SurveySnapshot{},
		&model.RiskScore{},
		&model.TodoItem{},
		&model.JournalEntry{},
		&model.ScheduleRecord{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate models: %w", err)
	}

	return &Store{db: db}, nil
}

// Close 关闭底层数据库连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(ErrUnavailable, err))
}

// FindAccountByEmail 按邮箱查找账号，不存在返回 ErrNotFound。
func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	var acc model.Account
	if err := s.db.WithContext(ctx).First(&acc, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, wrap("find account by email", err)
	}
	return &acc, nil
}

// CreateAccount 创建账号，邮箱已占用返回 ErrConflict。
func (s *Store) CreateAccount(ctx context.Context, acc *model.Account) error {
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(acc)
	if tx.Error != nil {
		return wrap("create account", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("create account %s: %w", acc.Email, ErrConflict)
	}
	return nil
}

// GetProfile 读取用户档案，缺失返回 ErrNotFound。
func (s *Store) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := s.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, wrap("get profile", err)
	}
	return &profile, nil
}

// PutProfile 写入档案。档案创建后不可变，重复写入返回 ErrConflict。
func (s *Store) PutProfile(ctx context.Context, profile *model.UserProfile) error {
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(profile)
	if tx.Error != nil {
		return wrap("put profile", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("put profile for %s: %w", profile.UserID, ErrConflict)
	}
	return nil
}

// UpsertSnapshot 写入当日问卷，同一 (user, day) 已存在则整体覆盖。
func (s *Store) UpsertSnapshot(ctx context.Context, snap *model.SurveySnapshot) error {
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "day"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"mood",
			"stress_level",
			"work_hours",
			"weekend_overtime",
			"exercise_hours",
			"sleep_hours",
			"submitted_at",
			"updated_at",
		}),
	}).Create(snap)
	if tx.Error != nil {
		return wrap("upsert snapshot", tx.Error)
	}
	return nil
}

// GetLatestSnapshot 返回用户最近一次问卷，缺失返回 ErrNotFound。
func (s *Store) GetLatestSnapshot(ctx context.Context, userID string) (*model.SurveySnapshot, error) {
	var snap model.SurveySnapshot
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submitted_at DESC").
		First(&snap).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, wrap("get latest snapshot", err)
	}
	return &snap, nil
}

// HasSubmittedOn 判断用户在指定自然日是否已提交问卷。
func (s *Store) HasSubmittedOn(ctx context.Context, userID, day string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.SurveySnapshot{}).
		Where("user_id = ? AND day = ?", userID, day).
		Count(&count).Error
	if err != nil {
		return false, wrap("check survey submission", err)
	}
	return count > 0, nil
}

// AppendRiskScore 追加一条风险记录，历史只增不改。
func (s *Store) AppendRiskScore(ctx context.Context, score *model.RiskScore) error {
	if err := s.db.WithContext(ctx).Create(score).Error; err != nil {
		return wrap("append risk score", err)
	}
	return nil
}

// ListRiskHistory 返回按计算时间倒序的风险历史。
func (s *Store) ListRiskHistory(ctx context.Context, userID string, limit int) ([]model.RiskScore, error) {
	if limit <= 0 {
		limit = 30
	}
	var scores []model.RiskScore
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("computed_at DESC").
		Limit(limit).
		Find(&scores).Error
	if err != nil {
		return nil, wrap("list risk history", err)
	}
	return scores, nil
}

// DailyRiskHistory 返回按日聚合的平均风险，最近的日期在前。
func (s *Store) DailyRiskHistory(ctx context.Context, userID string, limit int) ([]DailyRisk, error) {
	if limit <= 0 {
		limit = 30
	}
	var rows []DailyRisk
	err := s.db.WithContext(ctx).Model(&model.RiskScore{}).
		Select("date(computed_at) AS day, AVG(risk_percentage) AS avg_risk").
		Where("user_id = ?", userID).
		Group("day").
		Order("day DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, wrap("daily risk history", err)
	}
	return rows, nil
}

// CreateTodo 新增待办。
func (s *Store) CreateTodo(ctx context.Context, item *model.TodoItem) error {
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return wrap("create todo", err)
	}
	return nil
}

// ListTodos 返回用户的全部待办，按创建时间升序。
func (s *Store) ListTodos(ctx context.Context, userID string) ([]model.TodoItem, error) {
	var items []model.TodoItem
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, wrap("list todos", err)
	}
	return items, nil
}

// UpdateTodoStatus 更新待办完成状态，记录不存在返回 ErrNotFound。
func (s *Store) UpdateTodoStatus(ctx context.Context, userID string, todoID uint, completed bool) error {
	tx := s.db.WithContext(ctx).Model(&model.TodoItem{}).
		Where("id = ? AND user_id = ?", todoID, userID).
		Update("completed", completed)
	if tx.Error != nil {
		return wrap("update todo status", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("update todo %d: %w", todoID, ErrNotFound)
	}
	return nil
}

// DeleteTodo 删除待办，记录不存在返回 ErrNotFound。
func (s *Store) DeleteTodo(ctx context.Context, userID string, todoID uint) error {
	tx := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", todoID, userID).
		Delete(&model.TodoItem{})
	if tx.Error != nil {
		return wrap("delete todo", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("delete todo %d: %w", todoID, ErrNotFound)
	}
	return nil
}

// CreateJournalEntry 新增日记条目。
func (s *Store) CreateJournalEntry(ctx context.Context, entry *model.JournalEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return wrap("create journal entry", err)
	}
	return nil
}

// ListJournalEntries 返回用户日记，按日期倒序。
func (s *Store) ListJournalEntries(ctx context.Context, userID string) ([]model.JournalEntry, error) {
	var entries []model.JournalEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("day DESC, id DESC").
		Find(&entries).Error
	if err != nil {
		return nil, wrap("list journal entries", err)
	}
	return entries, nil
}

// DeleteJournalEntry 删除日记条目，记录不存在返回 ErrNotFound。
func (s *Store) DeleteJournalEntry(ctx context.Context, userID string, entryID uint) error {
	tx := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", entryID, userID).
		Delete(&model.JournalEntry{})
	if tx.Error != nil {
		return wrap("delete journal entry", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("delete journal entry %d: %w", entryID, ErrNotFound)
	}
	return nil
}

// LastScheduled 返回用户最近一次自动排程时间，没有记录时返回零值。
func (s *Store) LastScheduled(ctx context.Context, userID string) (time.Time, error) {
	var rec model.ScheduleRecord
	if err := s.db.WithContext(ctx).First(&rec, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, wrap("get schedule record", err)
	}
	return rec.LastScheduled, nil
}

// TouchScheduled 更新用户最近一次自动排程时间。
func (s *Store) TouchScheduled(ctx context.Context, userID string, at time.Time) error {
	rec := model.ScheduleRecord{UserID: userID, LastScheduled: at}
	tx := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_scheduled"}),
	}).Create(&rec)
	if tx.Error != nil {
		return wrap("touch schedule record", tx.Error)
	}
	return nil
}

// ListAccountsWithoutSnapshot 返回指定自然日尚未提交问卷的账号，供提醒任务使用。
func (s *Store) ListAccountsWithoutSnapshot(ctx context.Context, day string) ([]model.Account, error) {
	var accounts []model.Account
	sub := s.db.Model(&model.SurveySnapshot{}).Select("user_id").Where("day = ?", day)
	err := s.db.WithContext(ctx).
		Where("id NOT IN (?)", sub).
		Order("created_at ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, wrap("list accounts without snapshot", err)
	}
	return accounts, nil
}
