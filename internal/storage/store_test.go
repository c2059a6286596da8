package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"exhale/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	tmp := t.TempDir()
	store, err := NewStore(filepath.Join(tmp, "exhale.db"))
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

func TestAccountCreateAndFind(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	acc := &model.Account{ID: "u1", Email: "user@example.com", PasswordHash: "hash"}
	if err := store.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("CreateAccount error: %v", err)
	}

	found, err := store.FindAccountByEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("FindAccountByEmail error: %v", err)
	}
	if found.ID != "u1" {
		t.Fatalf("expected account u1, got %s", found.ID)
	}

	if _, err := store.FindAccountByEmail(ctx, "missing@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing email, got %v", err)
	}
}

func TestDuplicateAccountReturnsConflict(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateAccount(ctx, &model.Account{ID: "u1", Email: "dup@example.com", PasswordHash: "first"}); err != nil {
		t.Fatalf("CreateAccount error: %v", err)
	}
	err := store.CreateAccount(ctx, &model.Account{ID: "u2", Email: "dup@example.com", PasswordHash: "second"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// The original record must be untouched by the failed create.
	found, err := store.FindAccountByEmail(ctx, "dup@example.com")
	if err != nil {
		t.Fatalf("FindAccountByEmail error: %v", err)
	}
	if found.ID != "u1" || found.PasswordHash != "first" {
		t.Fatalf("original account modified: %+v", found)
	}
}

func TestProfileIsImmutable(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	profile := &model.UserProfile{
		UserID:    "u1",
		Name:      "Ada",
		DOB:       time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender:    model.GenderFemale,
		City:      model.CityBig,
		Education: 3,
		Job:       "Engineer",
	}
	if err := store.PutProfile(ctx, profile); err != nil {
		t.Fatalf("PutProfile error: %v", err)
	}

	changed := *profile
	changed.Name = "Someone Else"
	if err := store.PutProfile(ctx, &changed); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on second PutProfile, got %v", err)
	}

	got, err := store.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile error: %v", err)
	}
	if got.Name != "Ada" {
		t.Fatalf("expected original profile to survive, got name %s", got.Name)
	}

	if _, err := store.GetProfile(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing profile, got %v", err)
	}
}

func TestSnapshotUpsertByDay(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	morning := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	evening := morning.Add(10 * time.Hour)

	first := &model.SurveySnapshot{
		UserID:      "u1",
		Day:         model.DayOf(morning),
		Mood:        model.MoodTired,
		StressLevel: 8,
		WorkHours:   10,
		SleepHours:  5,
		SubmittedAt: morning,
	}
	if err := store.UpsertSnapshot(ctx, first); err != nil {
		t.Fatalf("UpsertSnapshot error: %v", err)
	}

	// A second submission on the same day replaces the first.
	second := &model.SurveySnapshot{
		UserID:      "u1",
		Day:         model.DayOf(evening),
		Mood:        model.MoodRelaxed,
		StressLevel: 3,
		WorkHours:   8,
		SleepHours:  7,
		SubmittedAt: evening,
	}
	if err := store.UpsertSnapshot(ctx, second); err != nil {
		t.Fatalf("UpsertSnapshot second run error: %v", err)
	}

	got, err := store.GetLatestSnapshot(ctx, "u1")
	if err != nil {
		t.Fatalf("GetLatestSnapshot error: %v", err)
	}
	if got.Mood != model.MoodRelaxed || got.StressLevel != 3 {
		t.Fatalf("expected evening submission to win, got %+v", got)
	}

	ok, err := store.HasSubmittedOn(ctx, "u1", model.DayOf(morning))
	if err != nil {
		t.Fatalf("HasSubmittedOn error: %v", err)
	}
	if !ok {
		t.Fatalf("expected submission recorded for the day")
	}
	ok, err = store.HasSubmittedOn(ctx, "u1", "2025-06-02")
	if err != nil {
		t.Fatalf("HasSubmittedOn error: %v", err)
	}
	if ok {
		t.Fatalf("expected no submission for the next day")
	}
}

func TestRiskHistoryAppendOnlyAndOrdered(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	for i, pct := range []float64{40, 55, 70} {
		score := &model.RiskScore{
			UserID:         "u1",
			RiskPercentage: pct,
			RawScore:       pct/10 - 5,
			Tier:           model.TierModerate,
			ComputedAt:     base.AddDate(0, 0, i),
		}
		if err := store.AppendRiskScore(ctx, score); err != nil {
			t.Fatalf("AppendRiskScore error: %v", err)
		}
	}

	history, err := store.ListRiskHistory(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListRiskHistory error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].RiskPercentage != 70 { // most recent first
		t.Fatalf("expected latest score first, got %v", history[0].RiskPercentage)
	}

	daily, err := store.DailyRiskHistory(ctx, "u1", 30)
	if err != nil {
		t.Fatalf("DailyRiskHistory error: %v", err)
	}
	if len(daily) != 3 {
		t.Fatalf("expected 3 daily rows, got %d", len(daily))
	}
	if daily[0].Day <= daily[1].Day {
		t.Fatalf("expected daily history ordered most recent first: %+v", daily)
	}
}

func TestTodoLifecycle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	item := &model.TodoItem{UserID: "u1", Task: "drink water"}
	if err := store.CreateTodo(ctx, item); err != nil {
		t.Fatalf("CreateTodo error: %v", err)
	}

	if err := store.UpdateTodoStatus(ctx, "u1", item.ID, true); err != nil {
		t.Fatalf("UpdateTodoStatus error: %v", err)
	}
	items, err := store.ListTodos(ctx, "u1")
	if err != nil {
		t.Fatalf("ListTodos error: %v", err)
	}
	if len(items) != 1 || !items[0].Completed {
		t.Fatalf("expected one completed item, got %+v", items)
	}

	// Another user cannot touch the item.
	if err := store.UpdateTodoStatus(ctx, "u2", item.ID, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}

	if err := store.DeleteTodo(ctx, "u1", item.ID); err != nil {
		t.Fatalf("DeleteTodo error: %v", err)
	}
	if err := store.DeleteTodo(ctx, "u1", item.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestJournalLifecycle(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	older := &model.JournalEntry{UserID: "u1", Title: "Monday", Day: "2025-06-02", Content: "rough day"}
	newer := &model.JournalEntry{UserID: "u1", Title: "Tuesday", Day: "2025-06-03", Content: "better"}
	for _, e := range []*model.JournalEntry{older, newer} {
		if err := store.CreateJournalEntry(ctx, e); err != nil {
			t.Fatalf("CreateJournalEntry error: %v", err)
		}
	}

	entries, err := store.ListJournalEntries(ctx, "u1")
	if err != nil {
		t.Fatalf("ListJournalEntries error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Title != "Tuesday" { // newest day first
		t.Fatalf("expected newest entry first, got %s", entries[0].Title)
	}

	if err := store.DeleteJournalEntry(ctx, "u1", older.ID); err != nil {
		t.Fatalf("DeleteJournalEntry error: %v", err)
	}
	if err := store.DeleteJournalEntry(ctx, "u1", older.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestScheduleRecordUpsert(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	last, err := store.LastScheduled(ctx, "u1")
	if err != nil {
		t.Fatalf("LastScheduled error: %v", err)
	}
	if !last.IsZero() {
		t.Fatalf("expected zero time for unscheduled user, got %v", last)
	}

	first := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	if err := store.TouchScheduled(ctx, "u1", first); err != nil {
		t.Fatalf("TouchScheduled error: %v", err)
	}
	second := first.Add(26 * time.Hour)
	if err := store.TouchScheduled(ctx, "u1", second); err != nil {
		t.Fatalf("TouchScheduled second run error: %v", err)
	}

	last, err = store.LastScheduled(ctx, "u1")
	if err != nil {
		t.Fatalf("LastScheduled error: %v", err)
	}
	if !last.Equal(second) {
		t.Fatalf("expected last scheduled %v, got %v", second, last)
	}
}

func TestListAccountsWithoutSnapshot(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for _, acc := range []*model.Account{
		{ID: "u1", Email: "a@example.com", PasswordHash: "x"},
		{ID: "u2", Email: "b@example.com", PasswordHash: "x"},
	} {
		if err := store.CreateAccount(ctx, acc); err != nil {
			t.Fatalf("CreateAccount error: %v", err)
		}
	}

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	snap := &model.SurveySnapshot{UserID: "u1", Day: model.DayOf(now), Mood: model.MoodHappy, StressLevel: 5, SubmittedAt: now}
	if err := store.UpsertSnapshot(ctx, snap); err != nil {
		t.Fatalf("UpsertSnapshot error: %v", err)
	}

	missing, err := store.ListAccountsWithoutSnapshot(ctx, model.DayOf(now))
	if err != nil {
		t.Fatalf("ListAccountsWithoutSnapshot error: %v", err)
	}
	if len(missing) != 1 || missing[0].ID != "u2" {
		t.Fatalf("expected only u2 to be missing, got %+v", missing)
	}
}
