package recommend

import (
	"testing"

	"exhale/internal/model"
)

func TestDefaultCatalogueCoversAllTiers(t *testing.T) {
	t.Parallel()

	c := NewCatalogue(Config{})
	for _, tier := range []model.RiskTier{model.TierLow, model.TierModerate, model.TierHigh} {
		tasks := c.ForTier(tier)
		if len(tasks) == 0 {
			t.Fatalf("expected tasks for tier %s", tier)
		}
		for _, task := range tasks {
			if task.Name == "" || task.Category == "" || task.Minutes <= 0 {
				t.Fatalf("malformed task for tier %s: %+v", tier, task)
			}
		}
	}
}

func TestConfigOverridesSingleTier(t *testing.T) {
	t.Parallel()

	custom := []Task{{Category: "Custom", Name: "Tea Break", Minutes: 10}}
	c := NewCatalogue(Config{High: custom})

	high := c.ForTier(model.TierHigh)
	if len(high) != 1 || high[0].Name != "Tea Break" {
		t.Fatalf("expected override for High tier, got %+v", high)
	}
	if len(c.ForTier(model.TierLow)) == 0 {
		t.Fatalf("Low tier should keep defaults")
	}
}

func TestForTierReturnsCopy(t *testing.T) {
	t.Parallel()

	c := NewCatalogue(Config{})
	tasks := c.ForTier(model.TierLow)
	tasks[0].Name = "mutated"

	again := c.ForTier(model.TierLow)
	if again[0].Name == "mutated" {
		t.Fatalf("ForTier must not expose internal slice")
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	c := NewCatalogue(Config{})
	task, ok := c.Find(model.TierModerate, "Nature Break")
	if !ok || task.Minutes != 30 {
		t.Fatalf("expected to find Nature Break, got %+v ok=%v", task, ok)
	}
	if _, ok := c.Find(model.TierLow, "Nature Break"); ok {
		t.Fatalf("task should not be found in wrong tier")
	}
}
