package risk

import (
	"errors"
	"fmt"
	"math"
	"time"

	"exhale/internal/model"

	"gorm.io/datatypes"
)

// ErrInvalidInput 表示评分输入非法（NaN 或不允许的负值/越界值）。
var ErrInvalidInput = errors.New("invalid scorer input")

// Weights 线性模型的固定权重与归一化边界。
// 这是设计常量而非训练得到的参数，归一化只是仿射缩放，
// 输入超出假定范围时得分会贴着截断边界，不代表模型饱和。
type Weights struct {
	Age             float64 `yaml:"age" json:"age"`
	Female          float64 `yaml:"female" json:"female"`
	WorkBase        float64 `yaml:"work_base" json:"work_base"`
	WorkOvertime    float64 `yaml:"work_overtime" json:"work_overtime"`
	Sleep           float64 `yaml:"sleep" json:"sleep"`
	WeekendOvertime float64 `yaml:"weekend_overtime" json:"weekend_overtime"`
	Stress          float64 `yaml:"stress" json:"stress"`
	JobStress       float64 `yaml:"job_stress" json:"job_stress"`
	Education       float64 `yaml:"education" json:"education"`
	BigCity         float64 `yaml:"big_city" json:"big_city"`
	FamilySize      float64 `yaml:"family_size" json:"family_size"`
	Pets            float64 `yaml:"pets" json:"pets"`
	Exercise        float64 `yaml:"exercise" json:"exercise"`
	Remote          float64 `yaml:"remote" json:"remote"`

	BaselineWorkHours float64 `yaml:"baseline_work_hours" json:"baseline_work_hours"`
	MinScore          float64 `yaml:"min_score" json:"min_score"`
	MaxScore          float64 `yaml:"max_score" json:"max_score"`
}

// DefaultWeights 返回产品设计的默认权重。
func DefaultWeights() Weights {
	return Weights{
		Age:             -0.2,
		Female:          0.7,
		WorkBase:        0.3,
		WorkOvertime:    0.5,
		Sleep:           -0.4,
		WeekendOvertime: 0.6,
		Stress:          1.0,
		JobStress:       0.8,
		Education:       0.2,
		BigCity:         0.3,
		FamilySize:      0.1,
		Pets:            -0.2,
		Exercise:        -0.3,
		Remote:          0.4,

		BaselineWorkHours: 8,
		MinScore:          -10,
		MaxScore:          20,
	}
}

// Scorer 纯函数式倦怠风险评分器，无内部状态，可并发调用。
type Scorer struct {
	weights Weights
	table   JobStressTable
	now     func() time.Time
}

// NewScorer 创建评分器；table 为 nil 时使用内置职业压力表。
func NewScorer(weights Weights, table JobStressTable) *Scorer {
	if table == nil {
		table = DefaultJobStressTable()
	}
	if weights.MaxScore <= weights.MinScore {
		def := DefaultWeights()
		weights.MinScore = def.MinScore
		weights.MaxScore = def.MaxScore
	}
	if weights.BaselineWorkHours <= 0 {
		weights.BaselineWorkHours = DefaultWeights().BaselineWorkHours
	}
	return &Scorer{weights: weights, table: table, now: time.Now}
}

// Compute 根据静态档案与当日问卷计算风险得分。
// 返回的 RiskScore 未落库，由调用方追加到历史。
func (s *Scorer) Compute(profile model.UserProfile, snap model.SurveySnapshot) (model.RiskScore, error) {
	now := s.now()
	age := Age(profile.DOB, now)
	if age < 0 {
		return model.RiskScore{}, fmt.Errorf("%w: date of birth %s is in the future", ErrInvalidInput, profile.DOB.Format("2006-01-02"))
	}
	if err := validateSnapshot(snap); err != nil {
		return model.RiskScore{}, err
	}
	if err := validateProfile(profile); err != nil {
		return model.RiskScore{}, err
	}

	w := s.weights
	jobStress := s.table.Lookup(profile.Job)

	factors := datatypes.JSONMap{}
	score := 0.0
	add := func(name string, v float64) {
		factors[name] = v
		score += v
	}

	add("age", w.Age*float64(age))
	if profile.Gender == model.GenderFemale {
		add("gender", w.Female)
	} else {
		add("gender", 0)
	}
	add("work_base", w.WorkBase*math.Min(snap.WorkHours, w.BaselineWorkHours))
	add("work_overtime", w.WorkOvertime*math.Max(0, snap.WorkHours-w.BaselineWorkHours))
	add("sleep", w.Sleep*snap.SleepHours)
	add("weekend_overtime", w.WeekendOvertime*snap.WeekendOvertime)
	add("stress", w.Stress*float64(snap.StressLevel))
	add("job_stress", w.JobStress*float64(jobStress))
	add("education", w.Education*float64(profile.Education))
	if profile.City == model.CityBig {
		add("city", w.BigCity)
	} else {
		add("city", 0)
	}
	add("family_size", w.FamilySize*float64(profile.FamilySize))
	add("pets", w.Pets*float64(profile.NumPets))
	add("exercise", w.Exercise*snap.ExerciseHours)
	add("remote", w.Remote*profile.RemotePercentage)

	percentage := (score - w.MinScore) / (w.MaxScore - w.MinScore) * 100
	percentage = math.Max(0, math.Min(100, percentage))

	return model.RiskScore{
		UserID:         profile.UserID,
		RiskPercentage: percentage,
		RawScore:       score,
		Tier:           TierFor(percentage),
		Factors:        factors,
		ComputedAt:     now,
	}, nil
}

// TierFor 按截断后的百分比分级：>70 高风险，30-70 中风险，<=30 低风险。
func TierFor(percentage float64) model.RiskTier {
	switch {
	case percentage > 70:
		return model.TierHigh
	case percentage > 30:
		return model.TierModerate
	default:
		return model.TierLow
	}
}

// Age 按周年计算年龄：当年生日未到则减一。
func Age(dob, today time.Time) int {
	age := today.Year() - dob.Year()
	if today.Month() < dob.Month() || (today.Month() == dob.Month() && today.Day() < dob.Day()) {
		age--
	}
	return age
}

func validateSnapshot(snap model.SurveySnapshot) error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"work_hours", snap.WorkHours, 0, 24},
		{"sleep_hours", snap.SleepHours, 0, 24},
		{"weekend_overtime", snap.WeekendOvertime, 0, math.Inf(1)},
		{"exercise_hours", snap.ExerciseHours, 0, math.Inf(1)},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) {
			return fmt.Errorf("%w: %s is NaN", ErrInvalidInput, c.name)
		}
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%w: %s %.2f out of range", ErrInvalidInput, c.name, c.value)
		}
	}
	if snap.StressLevel < 1 || snap.StressLevel > 10 {
		return fmt.Errorf("%w: stress_level %d out of range 1-10", ErrInvalidInput, snap.StressLevel)
	}
	return nil
}

func validateProfile(profile model.UserProfile) error {
	if profile.FamilySize < 0 {
		return fmt.Errorf("%w: family_size %d is negative", ErrInvalidInput, profile.FamilySize)
	}
	if profile.NumPets < 0 {
		return fmt.Errorf("%w: num_pets %d is negative", ErrInvalidInput, profile.NumPets)
	}
	if math.IsNaN(profile.RemotePercentage) || profile.RemotePercentage < 0 || profile.RemotePercentage > 1 {
		return fmt.Errorf("%w: remote_percentage %.2f out of range 0-1", ErrInvalidInput, profile.RemotePercentage)
	}
	if profile.Education < 1 || profile.Education > 4 {
		return fmt.Errorf("%w: education %d out of range 1-4", ErrInvalidInput, profile.Education)
	}
	return nil
}
