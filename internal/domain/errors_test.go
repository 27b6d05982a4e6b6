package domain_test

import (
	"errors"
	"testing"

	"github.com/pbellini/ingresso/internal/domain"
)

func TestInviteStateError_Error(t *testing.T) {
	err := &domain.InviteStateError{Status: domain.InviteAccepted}
	want := "invitation is already accepted"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTransitionError_Error(t *testing.T) {
	err := &domain.TransitionError{
		Event:   domain.EventAcceptInvite,
		Current: domain.InviteExpired,
	}
	want := `event "accept" is not valid from state "expired"`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestPresentations_CoverEveryKind(t *testing.T) {
	kinds := []domain.ErrorKind{
		domain.KindProfileCreationFailed,
		domain.KindProfileAlreadyExists,
		domain.KindOwnerSetupFailed,
		domain.KindOwnerSetupAlreadyCompleted,
		domain.KindInviteInvalid,
		domain.KindInviteExpired,
		domain.KindInviteAlreadyAccepted,
		domain.KindInviteAcceptFailed,
		domain.KindStageCheckFailed,
		domain.KindUnexpectedStage,
		domain.KindUnauthenticated,
		domain.KindNetworkError,
		domain.KindAttemptsExhausted,
		domain.KindUnknown,
	}

	for _, kind := range kinds {
		p, ok := domain.Presentations[kind]
		if !ok {
			t.Errorf("kind %q has no presentation", kind)
			continue
		}
		if p.Title == "" || p.Description == "" {
			t.Errorf("kind %q has an empty title or description", kind)
		}
	}
}

func TestPresentations_Retryability(t *testing.T) {
	retryable := map[domain.ErrorKind]bool{
		domain.KindProfileCreationFailed:      true,
		domain.KindProfileAlreadyExists:       false,
		domain.KindOwnerSetupFailed:           true,
		domain.KindOwnerSetupAlreadyCompleted: false,
		domain.KindInviteInvalid:              false,
		domain.KindInviteExpired:              false,
		domain.KindInviteAlreadyAccepted:      false,
		domain.KindInviteAcceptFailed:         true,
		domain.KindStageCheckFailed:           true,
		domain.KindUnexpectedStage:            true,
		domain.KindUnauthenticated:            false,
		domain.KindNetworkError:               true,
		domain.KindAttemptsExhausted:          false,
		domain.KindUnknown:                    true,
	}

	for kind, want := range retryable {
		if got := domain.Presentations[kind].CanRetry; got != want {
			t.Errorf("kind %q: CanRetry = %t, want %t", kind, got, want)
		}
	}
}

func TestNewActivationError(t *testing.T) {
	cause := errors.New("boom")
	err := domain.NewActivationError(domain.KindNetworkError, cause)

	if err.Kind != domain.KindNetworkError {
		t.Errorf("Kind = %q, want %q", err.Kind, domain.KindNetworkError)
	}
	if !err.CanRetry {
		t.Error("network errors should be retryable")
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
}

func TestNewActivationError_UnknownKindFallsBack(t *testing.T) {
	err := domain.NewActivationError(domain.ErrorKind("BOGUS"), nil)
	if err.Kind != domain.KindUnknown {
		t.Errorf("Kind = %q, want %q", err.Kind, domain.KindUnknown)
	}
}

func TestActivationError_WithAttempts(t *testing.T) {
	err := domain.NewActivationError(domain.KindOwnerSetupFailed, nil)
	err = err.WithAttempts(domain.AttemptState{Used: 1, Cap: 3})

	if err.Attempts.Used != 1 {
		t.Errorf("Attempts.Used = %d, want 1", err.Attempts.Used)
	}
	want := "Something went wrong while creating your academy. (2 attempts remaining)"
	if err.Description != want {
		t.Errorf("Description = %q, want %q", err.Description, want)
	}
}

func TestActivationError_WithAttempts_NonRetryable(t *testing.T) {
	err := domain.NewActivationError(domain.KindInviteExpired, nil)
	before := err.Description
	err = err.WithAttempts(domain.AttemptState{Used: 1, Cap: 3})

	// Non-retryable failures never advertise remaining attempts.
	if err.Description != before {
		t.Errorf("Description changed to %q", err.Description)
	}
}

func TestGoalReached(t *testing.T) {
	if !domain.GoalReached(domain.ErrProfileExists) {
		t.Error("ErrProfileExists should count as goal reached")
	}
	if !domain.GoalReached(domain.ErrOnboardingCompleted) {
		t.Error("ErrOnboardingCompleted should count as goal reached")
	}
	if domain.GoalReached(errors.New("boom")) {
		t.Error("arbitrary errors should not count as goal reached")
	}
}

func TestAttemptState(t *testing.T) {
	a := domain.NewAttemptState(0)
	if a.Cap != domain.DefaultAttemptCap {
		t.Errorf("Cap = %d, want %d", a.Cap, domain.DefaultAttemptCap)
	}
	if a.Remaining() != domain.DefaultAttemptCap {
		t.Errorf("Remaining() = %d, want %d", a.Remaining(), domain.DefaultAttemptCap)
	}

	a.Used = domain.DefaultAttemptCap
	if !a.Exhausted() {
		t.Error("counter at cap should be exhausted")
	}
	if a.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", a.Remaining())
	}

	a.Used = domain.DefaultAttemptCap + 1
	if a.Remaining() != 0 {
		t.Errorf("Remaining() past cap = %d, want 0", a.Remaining())
	}
}
