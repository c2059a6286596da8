// Package recommend 提供按风险分级的健康建议目录。
package recommend

import (
	"exhale/internal/model"
)

// Task 一条可排程的健康建议。
type Task struct {
	Category string `yaml:"category" json:"category"`
	Name     string `yaml:"name" json:"name"`
	Minutes  int    `yaml:"minutes" json:"minutes"`
}

// Config 允许按分级覆盖内置目录，未配置的分级使用默认值。
type Config struct {
	Low      []Task `yaml:"low" json:"low"`
	Moderate []Task `yaml:"moderate" json:"moderate"`
	High     []Task `yaml:"high" json:"high"`
}

// Catalogue 分级到建议列表的只读目录。
type Catalogue struct {
	byTier map[model.RiskTier][]Task
}

// NewCatalogue 创建目录，空配置回落到产品默认建议。
func NewCatalogue(cfg Config) *Catalogue {
	c := &Catalogue{byTier: map[model.RiskTier][]Task{
		model.TierLow:      defaultLow,
		model.TierModerate: defaultModerate,
		model.TierHigh:     defaultHigh,
	}}
	if len(cfg.Low) > 0 {
		c.byTier[model.TierLow] = cfg.Low
	}
	if len(cfg.Moderate) > 0 {
		c.byTier[model.TierModerate] = cfg.Moderate
	}
	if len(cfg.High) > 0 {
		c.byTier[model.TierHigh] = cfg.High
	}
	return c
}

// ForTier 返回指定分级的建议副本。
func (c *Catalogue) ForTier(tier model.RiskTier) []Task {
	tasks := c.byTier[tier]
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

// Find 按名称在指定分级中查找建议。
func (c *Catalogue) Find(tier model.RiskTier, name string) (Task, bool) {
	for _, t := range c.byTier[tier] {
		if t.Name == name {
			return t, true
		}
	}
	return Task{}, false
}

var (
	defaultLow = []Task{
		{Category: "Mentally Clearing", Name: "5-Minute Mindful Breathing", Minutes: 5},
		{Category: "Physical Reset", Name: "Light Stretch or Walk", Minutes: 10},
		{Category: "Emotionally Uplifting", Name: "Gratitude Journal", Minutes: 5},
		{Category: "Energy-Restoring", Name: "Hydration Check", Minutes: 5},
	}
	defaultModerate = []Task{
		{Category: "Mentally Clearing", Name: "Guided Meditation or Visualization", Minutes: 15},
		{Category: "Physical Reset", Name: "Nature Break", Minutes: 30},
		{Category: "Emotionally Uplifting", Name: "Reflective Journaling Prompt", Minutes: 10},
	}
	defaultHigh = []Task{
		{Category: "Energy-Restoring", Name: "Deep Rest (Nap or Yoga Nidra)", Minutes: 45},
		{Category: "Emotionally Uplifting", Name: "Talk to Manager / Therapist / Friend", Minutes: 30},
		{Category: "Mentally Clearing", Name: "Unplug & Do Nothing", Minutes: 60},
	}
)
