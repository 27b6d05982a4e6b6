package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pbellini/ingresso/internal/app"
	"github.com/pbellini/ingresso/internal/domain"
)

func TestClassify_TypedErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		fc   app.FailureContext
		want domain.ErrorKind
	}{
		{"profile exists", domain.ErrProfileExists, app.ContextProfile, domain.KindProfileAlreadyExists},
		{"onboarding completed", domain.ErrOnboardingCompleted, app.ContextOwnerSetup, domain.KindOwnerSetupAlreadyCompleted},
		{"invite not found", domain.ErrInviteNotFound, app.ContextInvite, domain.KindInviteInvalid},
		{"email mismatch", domain.ErrInviteEmailMismatch, app.ContextInvite, domain.KindInviteInvalid},
		{"invite not pending", domain.ErrInviteNotPending, app.ContextInvite, domain.KindInviteAlreadyAccepted},
		{"attempts exhausted", domain.ErrAttemptsExhausted, app.ContextInvite, domain.KindAttemptsExhausted},
		{"deadline exceeded", context.DeadlineExceeded, app.ContextStageCheck, domain.KindNetworkError},
		{"invite state accepted", &domain.InviteStateError{Status: domain.InviteAccepted}, app.ContextInvite, domain.KindInviteAlreadyAccepted},
		{"invite state rejected", &domain.InviteStateError{Status: domain.InviteRejected}, app.ContextInvite, domain.KindInviteInvalid},
		{"invite state expired", &domain.InviteStateError{Status: domain.InviteExpired}, app.ContextInvite, domain.KindInviteExpired},
		{"fsm rejects from accepted", &domain.TransitionError{Event: domain.EventAcceptInvite, Current: domain.InviteAccepted}, app.ContextInvite, domain.KindInviteAlreadyAccepted},
		{"fsm rejects from rejected", &domain.TransitionError{Event: domain.EventAcceptInvite, Current: domain.InviteRejected}, app.ContextInvite, domain.KindInviteInvalid},
		{"fsm rejects from expired", &domain.TransitionError{Event: domain.EventAcceptInvite, Current: domain.InviteExpired}, app.ContextInvite, domain.KindInviteExpired},
		{"unexpected stage", &domain.UnexpectedStageError{}, app.ContextStageCheck, domain.KindUnexpectedStage},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := app.Classify(tc.err, tc.fc)
			if got.Kind != tc.want {
				t.Errorf("Kind = %q, want %q", got.Kind, tc.want)
			}
		})
	}
}

func TestClassify_WrappedTypedErrors(t *testing.T) {
	// Typed matching must see through fmt.Errorf wrapping.
	err := fmt.Errorf("creating profile: %w", domain.ErrProfileExists)
	got := app.Classify(err, app.ContextProfile)
	if got.Kind != domain.KindProfileAlreadyExists {
		t.Errorf("Kind = %q, want %q", got.Kind, domain.KindProfileAlreadyExists)
	}
}

func TestClassify_SubstringFallback(t *testing.T) {
	cases := []struct {
		msg  string
		want domain.ErrorKind
	}{
		{"dial tcp: connection refused", domain.KindNetworkError},
		{"read: connection reset by peer", domain.KindNetworkError},
		{"context timed out waiting for reply", domain.KindNetworkError},
		{"lookup db.internal: no such host", domain.KindNetworkError},
		{"store says: Unauthorized", domain.KindUnauthenticated},
		{"auth session expired, sign in again", domain.KindUnauthenticated},
		{"request not authenticated", domain.KindUnauthenticated},
	}

	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			got := app.Classify(errors.New(tc.msg), app.ContextProfile)
			if got.Kind != tc.want {
				t.Errorf("Kind = %q, want %q", got.Kind, tc.want)
			}
		})
	}
}

func TestClassify_ContextDefaults(t *testing.T) {
	boom := errors.New("boom")

	cases := []struct {
		fc   app.FailureContext
		want domain.ErrorKind
	}{
		{app.ContextProfile, domain.KindProfileCreationFailed},
		{app.ContextOwnerSetup, domain.KindOwnerSetupFailed},
		{app.ContextInvite, domain.KindInviteAcceptFailed},
		{app.ContextStageCheck, domain.KindStageCheckFailed},
		{app.FailureContext("other"), domain.KindUnknown},
	}

	for _, tc := range cases {
		t.Run(string(tc.fc), func(t *testing.T) {
			got := app.Classify(boom, tc.fc)
			if got.Kind != tc.want {
				t.Errorf("Kind = %q, want %q", got.Kind, tc.want)
			}
			if !errors.Is(got, boom) {
				t.Error("cause should survive classification")
			}
		})
	}
}

func TestClassify_AlreadyClassifiedPassesThrough(t *testing.T) {
	original := domain.NewActivationError(domain.KindInviteExpired, nil)
	got := app.Classify(original, app.ContextStageCheck)
	if got != original {
		t.Error("an already classified error should pass through unchanged")
	}
}
