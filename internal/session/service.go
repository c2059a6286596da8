package session

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"exhale/internal/model"
	"exhale/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// AuthStore 抽象账号存储。
type AuthStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*model.Account, error)
	CreateAccount(ctx context.Context, acc *model.Account) error
}

// ProfileStore 抽象档案存储。
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	PutProfile(ctx context.Context, profile *model.UserProfile) error
}

// SurveyStore 抽象问卷存储。
type SurveyStore interface {
	UpsertSnapshot(ctx context.Context, snap *model.SurveySnapshot) error
	HasSubmittedOn(ctx context.Context, userID, day string) (bool, error)
}

// Credentials 登录请求。
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewCredentials 注册请求。
type NewCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

// ProfileRequest 引导问卷提交的档案字段。
type ProfileRequest struct {
	Name             string  `json:"name"`
	DOB              string  `json:"dob"`
	Gender           string  `json:"gender"`
	FamilySize       int     `json:"family_size"`
	NumPets          int     `json:"num_pets"`
	City             string  `json:"city"`
	Education        int     `json:"education"`
	RemotePercentage float64 `json:"remote_percentage"`
	Job              string  `json:"job"`
}

// SurveyRequest 每日问卷提交。可选字段缺省时取产品默认值。
type SurveyRequest struct {
	Mood            string   `json:"mood"`
	StressLevel     *int     `json:"stress_level"`
	WorkHours       *float64 `json:"work_hours"`
	WeekendOvertime *float64 `json:"weekend_overtime"`
	ExerciseHours   *float64 `json:"exercise_hours"`
	SleepHours      *float64 `json:"sleep_hours"`
}

// Result 表示一次状态迁移的结果，State 告知前端下一个页面。
type Result struct {
	State  State  `json:"state"`
	UserID string `json:"user_id,omitempty"`
	Token  string `json:"token,omitempty"`
}

// Service 将状态机与存储、口令哈希、令牌签发组合起来。
// 同一用户的迁移串行执行，避免"当日已提交"判定与提交写入竞争。
type Service struct {
	auth     AuthStore
	profiles ProfileStore
	surveys  SurveyStore
	tokens   *TokenManager
	now      func() time.Time
	locks    keyedLocks
}

// NewService 创建会话服务。
func NewService(auth AuthStore, profiles ProfileStore, surveys SurveyStore, tokens *TokenManager) *Service {
	return &Service{
		auth:     auth,
		profiles: profiles,
		surveys:  surveys,
		tokens:   tokens,
		now:      time.Now,
	}
}

// SignIn 处理登录：邮箱未注册转注册页，密码错误返回 ErrAuthFailure，
// 成功后按当日问卷提交情况落到问卷页或仪表盘。
func (s *Service) SignIn(ctx context.Context, creds Credentials) (Result, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if email == "" {
		return Result{State: StateSignedOut}, fmt.Errorf("%w: email required", ErrInvalidInput)
	}
	defer s.locks.lock("email:" + email)()

	guards := Guards{}
	acc, err := s.auth.FindAccountByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		// 未注册不是错误，引导到注册页。
	case err != nil:
		return Result{State: StateSignedOut}, fmt.Errorf("sign in: %w", err)
	default:
		guards.EmailFound = true
		guards.PasswordMatches = bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(creds.Password)) == nil
	}

	if guards.EmailFound && guards.PasswordMatches {
		// 与问卷提交共用用户锁，"当日已提交"判定不和并发写入交错。
		defer s.locks.lock(acc.ID)()
		submitted, err := s.surveys.HasSubmittedOn(ctx, acc.ID, model.DayOf(s.now()))
		if err != nil {
			return Result{State: StateSignedOut}, fmt.Errorf("sign in: %w", err)
		}
		guards.SubmittedToday = submitted
	}

	next, err := Next(StateSignedOut, EventSubmitCredentials, guards)
	if err != nil {
		return Result{State: next}, err
	}

	res := Result{State: next}
	if guards.EmailFound {
		token, err := s.tokens.Issue(acc.ID, acc.Email)
		if err != nil {
			return Result{State: StateSignedOut}, fmt.Errorf("sign in: %w", err)
		}
		res.UserID = acc.ID
		res.Token = token
	}
	return res, nil
}

// CreateAccount 处理注册：两次口令不一致或邮箱已注册是可恢复错误，
// 成功后进入引导问卷。
func (s *Service) CreateAccount(ctx context.Context, creds NewCredentials) (Result, error) {
	email := strings.ToLower(strings.TrimSpace(creds.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return Result{State: StateNeedsAccount}, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if creds.Password == "" {
		return Result{State: StateNeedsAccount}, fmt.Errorf("%w: password required", ErrInvalidInput)
	}
	defer s.locks.lock("email:" + email)()

	guards := Guards{
		PasswordsMatch: creds.Password == creds.Confirm,
	}
	_, err := s.auth.FindAccountByEmail(ctx, email)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		guards.EmailUnused = true
	case err != nil:
		return Result{State: StateNeedsAccount}, fmt.Errorf("create account: %w", err)
	}

	next, err := Next(StateNeedsAccount, EventSubmitNewCredentials, guards)
	if err != nil {
		return Result{State: next}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return Result{State: StateNeedsAccount}, fmt.Errorf("hash password: %w", err)
	}
	acc := &model.Account{ID: uuid.NewString(), Email: email, PasswordHash: string(hash)}
	if err := s.auth.CreateAccount(ctx, acc); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return Result{State: StateNeedsAccount}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return Result{State: StateNeedsAccount}, fmt.Errorf("create account: %w", err)
	}

	token, err := s.tokens.Issue(acc.ID, acc.Email)
	if err != nil {
		return Result{State: StateNeedsAccount}, fmt.Errorf("create account: %w", err)
	}
	return Result{State: next, UserID: acc.ID, Token: token}, nil
}

// SubmitProfile 处理引导问卷：档案一经创建不可变，重复提交返回 ErrConflict。
func (s *Service) SubmitProfile(ctx context.Context, userID string, req ProfileRequest) (Result, error) {
	defer s.locks.lock(userID)()

	profile, err := buildProfile(userID, req, s.now())
	if err != nil {
		return Result{State: StateNeedsOnboarding, UserID: userID}, err
	}

	next, err := Next(StateNeedsOnboarding, EventSubmitProfile, Guards{FieldsValid: true})
	if err != nil {
		return Result{State: StateNeedsOnboarding, UserID: userID}, err
	}

	if err := s.profiles.PutProfile(ctx, profile); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return Result{State: StateNeedsOnboarding, UserID: userID}, fmt.Errorf("%w: profile already exists", ErrConflict)
		}
		return Result{State: StateNeedsOnboarding, UserID: userID}, fmt.Errorf("submit profile: %w", err)
	}
	return Result{State: next, UserID: userID}, nil
}

// SubmitSurvey 处理每日问卷：同日重复提交覆盖旧值，成功后进入仪表盘。
func (s *Service) SubmitSurvey(ctx context.Context, userID string, req SurveyRequest) (Result, error) {
	defer s.locks.lock(userID)()

	if _, err := s.profiles.GetProfile(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{State: StateNeedsOnboarding, UserID: userID}, fmt.Errorf("submit survey: profile: %w", err)
		}
		return Result{State: StateNeedsDailySurvey, UserID: userID}, fmt.Errorf("submit survey: %w", err)
	}

	now := s.now()
	snap, err := buildSnapshot(userID, req, now)
	if err != nil {
		return Result{State: StateNeedsDailySurvey, UserID: userID}, err
	}

	next, err := Next(StateNeedsDailySurvey, EventSubmitSurvey, Guards{FieldsValid: true})
	if err != nil {
		return Result{State: StateNeedsDailySurvey, UserID: userID}, err
	}

	if err := s.surveys.UpsertSnapshot(ctx, snap); err != nil {
		return Result{State: StateNeedsDailySurvey, UserID: userID}, fmt.Errorf("submit survey: %w", err)
	}
	return Result{State: next, UserID: userID}, nil
}

// Resume 根据持久化状态推导已认证用户当前应处的页面。
func (s *Service) Resume(ctx context.Context, userID string) (State, error) {
	defer s.locks.lock(userID)()

	_, err := s.profiles.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return StateNeedsOnboarding, nil
	}
	if err != nil {
		return StateSignedOut, fmt.Errorf("resume: %w", err)
	}

	submitted, err := s.surveys.HasSubmittedOn(ctx, userID, model.DayOf(s.now()))
	if err != nil {
		return StateSignedOut, fmt.Errorf("resume: %w", err)
	}
	if !submitted {
		return StateNeedsDailySurvey, nil
	}
	return StateDashboard, nil
}

// SignOut 使会话失效，从任意已认证状态回到 SignedOut。
func (s *Service) SignOut(current State) State {
	next, _ := Next(current, EventSessionInvalidated, Guards{})
	return next
}

// Tokens 暴露令牌管理器，供 API 中间件校验请求。
func (s *Service) Tokens() *TokenManager { return s.tokens }

// 问卷缺省值，与历史数据缺列时的回填值保持一致。
const (
	defaultStressLevel     = 5
	defaultWorkHours       = 8.0
	defaultWeekendOvertime = 0.0
	defaultExerciseHours   = 1.0
	defaultSleepHours      = 7.0
)

func buildProfile(userID string, req ProfileRequest, now time.Time) (*model.UserProfile, error) {
	dob, err := time.Parse("2006-01-02", req.DOB)
	if err != nil {
		return nil, fmt.Errorf("%w: dob must be YYYY-MM-DD", ErrInvalidInput)
	}
	// 档案不可变，未来出生日期会让风险计算永久失败，必须在此拦截。
	if dob.After(now) {
		return nil, fmt.Errorf("%w: dob must not be in the future", ErrInvalidInput)
	}
	gender, err := model.ParseGender(req.Gender)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	city, err := model.ParseCitySize(req.City)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if req.Education < 1 || req.Education > 4 {
		return nil, fmt.Errorf("%w: education must be 1-4", ErrInvalidInput)
	}
	if req.FamilySize < 0 || req.NumPets < 0 {
		return nil, fmt.Errorf("%w: family size and pets must be non-negative", ErrInvalidInput)
	}
	if req.RemotePercentage < 0 || req.RemotePercentage > 1 {
		return nil, fmt.Errorf("%w: remote percentage must be within 0-1", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Job) == "" {
		return nil, fmt.Errorf("%w: job required", ErrInvalidInput)
	}

	return &model.UserProfile{
		UserID:           userID,
		Name:             strings.TrimSpace(req.Name),
		DOB:              dob,
		Gender:           gender,
		FamilySize:       req.FamilySize,
		NumPets:          req.NumPets,
		City:             city,
		Education:        req.Education,
		RemotePercentage: req.RemotePercentage,
		Job:              strings.TrimSpace(req.Job),
	}, nil
}

func buildSnapshot(userID string, req SurveyRequest, now time.Time) (*model.SurveySnapshot, error) {
	mood := model.MoodHappy
	if strings.TrimSpace(req.Mood) != "" {
		parsed, err := model.ParseMood(req.Mood)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		mood = parsed
	}

	snap := &model.SurveySnapshot{
		UserID:          userID,
		Day:             model.DayOf(now),
		Mood:            mood,
		StressLevel:     intOr(req.StressLevel, defaultStressLevel),
		WorkHours:       floatOr(req.WorkHours, defaultWorkHours),
		WeekendOvertime: floatOr(req.WeekendOvertime, defaultWeekendOvertime),
		ExerciseHours:   floatOr(req.ExerciseHours, defaultExerciseHours),
		SleepHours:      floatOr(req.SleepHours, defaultSleepHours),
		SubmittedAt:     now,
	}

	if snap.StressLevel < 1 || snap.StressLevel > 10 {
		return nil, fmt.Errorf("%w: stress level must be 1-10", ErrInvalidInput)
	}
	if snap.WorkHours < 0 || snap.WorkHours > 24 {
		return nil, fmt.Errorf("%w: work hours must be within 0-24", ErrInvalidInput)
	}
	if snap.SleepHours < 0 || snap.SleepHours > 24 {
		return nil, fmt.Errorf("%w: sleep hours must be within 0-24", ErrInvalidInput)
	}
	if snap.WeekendOvertime < 0 || snap.ExerciseHours < 0 {
		return nil, fmt.Errorf("%w: hours must be non-negative", ErrInvalidInput)
	}
	return snap, nil
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// keyedLocks 按键串行化，同一用户同一时刻只进行一次状态迁移。
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *keyedLocks) lock(key string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
