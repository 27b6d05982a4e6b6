package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrInviteNotFound   = errors.New("invitation not found")

	// ErrProfileExists and ErrOnboardingCompleted are idempotency guards:
	// they mean the goal state was already reached by another path (a
	// duplicate tab, a retried request) and are presented as benign
	// confirmations, not failures.
	ErrProfileExists       = errors.New("profile already exists")
	ErrOnboardingCompleted = errors.New("owner setup already completed")

	ErrAcademyNameRequired = errors.New("academy name is required")
	ErrEmailRequired       = errors.New("email is required")
	ErrInviteEmailMismatch = errors.New("invitation is addressed to a different email")
	ErrNotTenantOwner      = errors.New("caller is not a tenant owner")
	ErrAttemptsExhausted   = errors.New("attempt limit reached")
	ErrInviteNotPending    = errors.New("invitation is no longer pending")
)

// InviteStateError is returned when an invitation cannot be consumed
// because it has already left the pending state.
type InviteStateError struct {
	Status InviteStatus
}

func (e *InviteStateError) Error() string {
	return fmt.Sprintf("invitation is already %s", e.Status)
}

// TransitionError is returned when an invitation state transition is not
// allowed.
type TransitionError struct {
	Event   InviteEvent
	Current InviteStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// InvalidRoleError is returned when an invitation names a role that cannot
// be granted through the invitation flow.
type InvalidRoleError struct {
	Role Role
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("role %q cannot be granted by invitation", e.Role)
}

// UnexpectedStageError is returned when an identity's persisted attributes
// match none of the defined activation stages. It indicates a data or logic
// inconsistency and must be surfaced, never papered over with a default
// stage.
type UnexpectedStageError struct {
	TenantID            string
	Role                Role
	ApprovalStatus      ApprovalStatus
	OnboardingCompleted bool
}

func (e *UnexpectedStageError) Error() string {
	return fmt.Sprintf(
		"no activation stage matches identity state (tenant=%q role=%q approval=%q onboarded=%t)",
		e.TenantID, e.Role, e.ApprovalStatus, e.OnboardingCompleted,
	)
}

// ErrorKind classifies why an activation transition failed. The set is
// closed; the classifier maps every raw failure onto exactly one kind.
type ErrorKind string

const (
	KindProfileCreationFailed      ErrorKind = "PROFILE_CREATION_FAILED"
	KindProfileAlreadyExists       ErrorKind = "PROFILE_ALREADY_EXISTS"
	KindOwnerSetupFailed           ErrorKind = "OWNER_SETUP_FAILED"
	KindOwnerSetupAlreadyCompleted ErrorKind = "OWNER_SETUP_ALREADY_COMPLETED"
	KindInviteInvalid              ErrorKind = "INVITE_INVALID"
	KindInviteExpired              ErrorKind = "INVITE_EXPIRED"
	KindInviteAlreadyAccepted      ErrorKind = "INVITE_ALREADY_ACCEPTED"
	KindInviteAcceptFailed         ErrorKind = "INVITE_ACCEPT_FAILED"
	KindStageCheckFailed           ErrorKind = "AUTH_STAGE_CHECK_FAILED"
	KindUnexpectedStage            ErrorKind = "UNEXPECTED_AUTH_STAGE"
	KindUnauthenticated            ErrorKind = "UNAUTHENTICATED"
	KindNetworkError               ErrorKind = "NETWORK_ERROR"
	KindAttemptsExhausted          ErrorKind = "ATTEMPTS_EXHAUSTED"
	KindUnknown                    ErrorKind = "UNKNOWN_ERROR"
)

// Presentation is the fixed user-facing rendering of an error kind. CanRetry
// is advisory; the retry policy is the layer that actually enforces the
// attempt cap.
type Presentation struct {
	Title       string
	Description string
	CanRetry    bool
}

// Presentations maps every error kind to its user-facing triple.
var Presentations = map[ErrorKind]Presentation{
	KindProfileCreationFailed: {
		Title:       "Could not create your profile",
		Description: "Something went wrong while setting up your profile.",
		CanRetry:    true,
	},
	KindProfileAlreadyExists: {
		Title:       "Profile already set up",
		Description: "Your profile already exists, so you are good to continue.",
		CanRetry:    false,
	},
	KindOwnerSetupFailed: {
		Title:       "Could not finish academy setup",
		Description: "Something went wrong while creating your academy.",
		CanRetry:    true,
	},
	KindOwnerSetupAlreadyCompleted: {
		Title:       "Academy already set up",
		Description: "Your academy setup was already completed, so you are good to continue.",
		CanRetry:    false,
	},
	KindInviteInvalid: {
		Title:       "Invitation not recognized",
		Description: "This invitation link is not valid. Ask for a new invitation.",
		CanRetry:    false,
	},
	KindInviteExpired: {
		Title:       "Invitation expired",
		Description: "This invitation has expired. Ask for a new invitation.",
		CanRetry:    false,
	},
	KindInviteAlreadyAccepted: {
		Title:       "Invitation already used",
		Description: "This invitation was already used and cannot be used again.",
		CanRetry:    false,
	},
	KindInviteAcceptFailed: {
		Title:       "Could not accept the invitation",
		Description: "Something went wrong while accepting your invitation.",
		CanRetry:    true,
	},
	KindStageCheckFailed: {
		Title:       "Could not check your account status",
		Description: "We could not determine where you are in the sign-up process.",
		CanRetry:    true,
	},
	KindUnexpectedStage: {
		Title:       "Account in an unexpected state",
		Description: "Your account is in a state we did not expect. Please sign in again.",
		CanRetry:    true,
	},
	KindUnauthenticated: {
		Title:       "Session expired",
		Description: "Your session is no longer valid. Please sign in again.",
		CanRetry:    false,
	},
	KindNetworkError: {
		Title:       "Connection problem",
		Description: "We could not reach the server. Check your connection and try again.",
		CanRetry:    true,
	},
	KindAttemptsExhausted: {
		Title:       "Too many attempts",
		Description: "You have reached the attempt limit. Try again later or contact support.",
		CanRetry:    false,
	},
	KindUnknown: {
		Title:       "Something went wrong",
		Description: "An unexpected error occurred.",
		CanRetry:    true,
	},
}

// ActivationError is the typed failure every activation operation returns.
// Raw store and network errors never escape past the classifier; they ride
// along as the Cause for diagnostics only.
type ActivationError struct {
	Kind        ErrorKind
	Title       string
	Description string
	CanRetry    bool
	Attempts    AttemptState
	Cause       error
}

// NewActivationError builds an ActivationError of the given kind with its
// catalog presentation, wrapping cause.
func NewActivationError(kind ErrorKind, cause error) *ActivationError {
	p, ok := Presentations[kind]
	if !ok {
		kind = KindUnknown
		p = Presentations[KindUnknown]
	}
	return &ActivationError{
		Kind:        kind,
		Title:       p.Title,
		Description: p.Description,
		CanRetry:    p.CanRetry,
		Cause:       cause,
	}
}

func (e *ActivationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *ActivationError) Unwrap() error {
	return e.Cause
}

// WithAttempts records the updated counter and, for retryable failures,
// appends the remaining-attempt count to the user-facing description.
func (e *ActivationError) WithAttempts(a AttemptState) *ActivationError {
	e.Attempts = a
	if e.CanRetry {
		e.Description = fmt.Sprintf("%s (%d attempts remaining)", e.Description, a.Remaining())
	}
	return e
}

// GoalReached reports whether err is an idempotency guard: the transition's
// goal state was already in place, so the failure is benign and must not
// consume an attempt.
func GoalReached(err error) bool {
	return errors.Is(err, ErrProfileExists) || errors.Is(err, ErrOnboardingCompleted)
}
