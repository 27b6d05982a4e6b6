package app

import (
	"context"
	"errors"
	"strings"

	"github.com/pbellini/ingresso/internal/domain"
)

// FailureContext tags which operation a raw failure came from, so the
// classifier can pick a context-appropriate default.
type FailureContext string

const (
	ContextProfile    FailureContext = "profile"
	ContextOwnerSetup FailureContext = "owner_setup"
	ContextInvite     FailureContext = "invite"
	ContextStageCheck FailureContext = "stage_check"
)

// Classify maps a raw failure onto exactly one ActivationError kind. Typed
// domain errors match first; substring inspection is only the fallback
// adapter for stores that surface untyped driver or transport errors. That
// fallback lives here and nowhere else, so it can be retired without
// touching any caller once every store reports typed errors.
func Classify(err error, fc FailureContext) *domain.ActivationError {
	// Already classified; pass through untouched.
	var actErr *domain.ActivationError
	if errors.As(err, &actErr) {
		return actErr
	}

	if kind, ok := classifyTyped(err); ok {
		return domain.NewActivationError(kind, err)
	}

	if kind, ok := classifyMessage(err); ok {
		return domain.NewActivationError(kind, err)
	}

	return domain.NewActivationError(contextDefault(fc), err)
}

func classifyTyped(err error) (domain.ErrorKind, bool) {
	switch {
	case errors.Is(err, domain.ErrAttemptsExhausted):
		return domain.KindAttemptsExhausted, true
	case errors.Is(err, context.DeadlineExceeded):
		return domain.KindNetworkError, true
	case errors.Is(err, domain.ErrProfileExists):
		return domain.KindProfileAlreadyExists, true
	case errors.Is(err, domain.ErrOnboardingCompleted):
		return domain.KindOwnerSetupAlreadyCompleted, true
	case errors.Is(err, domain.ErrInviteNotFound),
		errors.Is(err, domain.ErrInviteEmailMismatch):
		return domain.KindInviteInvalid, true
	case errors.Is(err, domain.ErrInviteNotPending):
		return domain.KindInviteAlreadyAccepted, true
	}

	var stateErr *domain.InviteStateError
	if errors.As(err, &stateErr) {
		return kindForInviteStatus(stateErr.Status), true
	}

	// The invitation FSM rejecting an event means the invitation already
	// left the pending state.
	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return kindForInviteStatus(trErr.Current), true
	}

	var stageErr *domain.UnexpectedStageError
	if errors.As(err, &stageErr) {
		return domain.KindUnexpectedStage, true
	}

	return "", false
}

// kindForInviteStatus maps the status an invitation settled in onto the
// kind shown to the accepting user. A rejected invitation is invalid for
// the caller, not "already used": the offer was withdrawn, not consumed.
func kindForInviteStatus(status domain.InviteStatus) domain.ErrorKind {
	switch status {
	case domain.InviteExpired:
		return domain.KindInviteExpired
	case domain.InviteRejected:
		return domain.KindInviteInvalid
	default:
		return domain.KindInviteAlreadyAccepted
	}
}

// Substring patterns for stores that do not expose typed errors. Matched
// against the lowercased error message, cross-cutting regardless of context.
var (
	networkPatterns = []string{
		"network",
		"connection refused",
		"connection reset",
		"timeout",
		"timed out",
		"no such host",
		"broken pipe",
		"tls",
	}
	unauthenticatedPatterns = []string{
		"unauthenticated",
		"not authenticated",
		"unauthorized",
		"session expired",
		"session missing",
		"invalid credentials",
	}
)

func classifyMessage(err error) (domain.ErrorKind, bool) {
	msg := strings.ToLower(err.Error())

	for _, p := range unauthenticatedPatterns {
		if strings.Contains(msg, p) {
			return domain.KindUnauthenticated, true
		}
	}
	for _, p := range networkPatterns {
		if strings.Contains(msg, p) {
			return domain.KindNetworkError, true
		}
	}

	return "", false
}

func contextDefault(fc FailureContext) domain.ErrorKind {
	switch fc {
	case ContextProfile:
		return domain.KindProfileCreationFailed
	case ContextOwnerSetup:
		return domain.KindOwnerSetupFailed
	case ContextInvite:
		return domain.KindInviteAcceptFailed
	case ContextStageCheck:
		return domain.KindStageCheckFailed
	}
	return domain.KindUnknown
}
