package model

import (
	"time"

	"gorm.io/datatypes"
)

// Gender 性别枚举，参与风险评分。
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// CitySize 居住城市规模枚举。
type CitySize string

const (
	CitySmall CitySize = "small"
	CityBig   CitySize = "big"
)

// RiskTier 风险分级，由风险百分比推导。
type RiskTier string

const (
	TierLow      RiskTier = "Low"
	TierModerate RiskTier = "Moderate"
	TierHigh     RiskTier = "High"
)

// Mood 每日问卷的情绪标签。
type Mood string

const (
	MoodHappy   Mood = "Happy"
	MoodSad     Mood = "Sad"
	MoodAngry   Mood = "Angry"
	MoodAnxious Mood = "Anxious"
	MoodTired   Mood = "Tired"
	MoodRelaxed Mood = "Relaxed"
)

// Account 表示一个登录账号
// - ID: 不透明用户标识（UUID）
// - Email: 唯一登录邮箱
// - PasswordHash: bcrypt 哈希，不存明文

type Account struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserProfile 表示引导问卷采集的静态档案
// 每个用户只有一条，创建后不再修改
// - DOB: 出生日期，用于推导年龄
// - Education: 教育程度序数 1-4
// - RemotePercentage: 远程办公比例 0.0-1.0
// - Job: 职业名称，作为职业压力表的键

type UserProfile struct {
	UserID           string    `gorm:"primaryKey" json:"user_id"`
	Name             string    `json:"name"`
	DOB              time.Time `json:"dob"`
	Gender           Gender    `json:"gender"`
	FamilySize       int       `json:"family_size"`
	NumPets          int       `json:"num_pets"`
	City             CitySize  `json:"city"`
	Education        int       `json:"education"`
	RemotePercentage float64   `json:"remote_percentage"`
	Job              string    `json:"job"`
	CreatedAt        time.Time `json:"created_at"`
}

// SurveySnapshot 表示某用户某个自然日的压力问卷
// 以 (user_id, day) 唯一，同日重复提交覆盖旧值

type SurveySnapshot struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"uniqueIndex:idx_survey_user_day" json:"user_id"`
	Day             string    `gorm:"uniqueIndex:idx_survey_user_day" json:"day"`
	Mood            Mood      `json:"mood"`
	StressLevel     int       `json:"stress_level"`
	WorkHours       float64   `json:"work_hours"`
	WeekendOvertime float64   `json:"weekend_overtime"`
	ExerciseHours   float64   `json:"exercise_hours"`
	SleepHours      float64   `json:"sleep_hours"`
	SubmittedAt     time.Time `json:"submitted_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RiskScore 表示一次倦怠风险计算结果，只追加不修改
// - RiskPercentage: 截断到 [0,100] 的百分比
// - RawScore: 未截断的线性得分
// - Factors: 各因子贡献明细，便于前端展示

type RiskScore struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	UserID         string            `gorm:"index" json:"user_id"`
	RiskPercentage float64           `json:"risk_percentage"`
	RawScore       float64           `json:"raw_score"`
	Tier           RiskTier          `json:"tier"`
	Factors        datatypes.JSONMap `json:"factors"`
	ComputedAt     time.Time         `json:"computed_at"`
}

// TodoItem 待办事项。
type TodoItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index" json:"user_id"`
	Task      string    `json:"task"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// JournalEntry 日记条目。
type JournalEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index" json:"user_id"`
	Title     string    `json:"title"`
	Day       string    `json:"day"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ScheduleRecord 记录最近一次自动排程时间，用于 24 小时限频。
type ScheduleRecord struct {
	UserID        string    `gorm:"primaryKey" json:"user_id"`
	LastScheduled time.Time `json:"last_scheduled"`
}

// DayOf 返回时间所在自然日的存储键。
func DayOf(t time.Time) string {
	return t.Format("2006-01-02")
}
