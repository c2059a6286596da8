package session

import (
	"errors"
	"testing"
)

func TestSignInTransitions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		guards  Guards
		want    State
		wantErr error
	}{
		{
			name:   "no snapshot today goes to survey",
			guards: Guards{EmailFound: true, PasswordMatches: true, SubmittedToday: false},
			want:   StateNeedsDailySurvey,
		},
		{
			name:   "snapshot today goes straight to dashboard",
			guards: Guards{EmailFound: true, PasswordMatches: true, SubmittedToday: true},
			want:   StateDashboard,
		},
		{
			name:    "wrong password stays signed out",
			guards:  Guards{EmailFound: true, PasswordMatches: false},
			want:    StateSignedOut,
			wantErr: ErrAuthFailure,
		},
		{
			name:   "unknown email goes to account creation",
			guards: Guards{EmailFound: false},
			want:   StateNeedsAccount,
		},
	}
	for _, c := range cases {
		got, err := Next(StateSignedOut, EventSubmitCredentials, c.guards)
		if got != c.want {
			t.Fatalf("%s: Next = %s, want %s", c.name, got, c.want)
		}
		if c.wantErr == nil && err != nil {
			t.Fatalf("%s: unexpected error %v", c.name, err)
		}
		if c.wantErr != nil && !errors.Is(err, c.wantErr) {
			t.Fatalf("%s: expected %v, got %v", c.name, c.wantErr, err)
		}
	}
}

func TestAccountCreationTransitions(t *testing.T) {
	t.Parallel()

	got, err := Next(StateNeedsAccount, EventSubmitNewCredentials, Guards{PasswordsMatch: true, EmailUnused: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != StateNeedsOnboarding {
		t.Fatalf("expected NeedsOnboarding, got %s", got)
	}

	got, err = Next(StateNeedsAccount, EventSubmitNewCredentials, Guards{PasswordsMatch: true, EmailUnused: false})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if got != StateNeedsAccount {
		t.Fatalf("conflict must not change state, got %s", got)
	}

	got, err = Next(StateNeedsAccount, EventSubmitNewCredentials, Guards{PasswordsMatch: false, EmailUnused: true})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for password mismatch, got %v", err)
	}
	if got != StateNeedsAccount {
		t.Fatalf("mismatch must not change state, got %s", got)
	}
}

func TestOnboardingAndSurveyTransitions(t *testing.T) {
	t.Parallel()

	got, err := Next(StateNeedsOnboarding, EventSubmitProfile, Guards{FieldsValid: true})
	if err != nil || got != StateNeedsDailySurvey {
		t.Fatalf("expected NeedsDailySurvey, got %s err %v", got, err)
	}

	got, err = Next(StateNeedsDailySurvey, EventSubmitSurvey, Guards{FieldsValid: true})
	if err != nil || got != StateDashboard {
		t.Fatalf("expected Dashboard, got %s err %v", got, err)
	}

	if _, err := Next(StateNeedsOnboarding, EventSubmitProfile, Guards{FieldsValid: false}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for invalid profile, got %v", err)
	}
	if _, err := Next(StateNeedsDailySurvey, EventSubmitSurvey, Guards{FieldsValid: false}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for invalid survey, got %v", err)
	}
}

func TestSessionInvalidatedFromAnyState(t *testing.T) {
	t.Parallel()

	for _, state := range []State{StateNeedsOnboarding, StateNeedsDailySurvey, StateDashboard} {
		got, err := Next(state, EventSessionInvalidated, Guards{})
		if err != nil {
			t.Fatalf("invalidate from %s: unexpected error %v", state, err)
		}
		if got != StateSignedOut {
			t.Fatalf("invalidate from %s: expected SignedOut, got %s", state, got)
		}
	}
}

func TestUnexpectedEventsRejected(t *testing.T) {
	t.Parallel()

	cases := []struct {
		state State
		event Event
	}{
		{StateSignedOut, EventSubmitSurvey},
		{StateNeedsAccount, EventSubmitCredentials},
		{StateNeedsOnboarding, EventSubmitSurvey},
		{StateDashboard, EventSubmitProfile},
	}
	for _, c := range cases {
		got, err := Next(c.state, c.event, Guards{FieldsValid: true})
		if err == nil {
			t.Fatalf("expected error for %s in %s", c.event, c.state)
		}
		if got != c.state {
			t.Fatalf("rejected event must not change state: %s -> %s", c.state, got)
		}
	}
}
