package domain

import "time"

// InviteStatus represents the lifecycle state of an invitation.
type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteRejected InviteStatus = "rejected"
	InviteExpired  InviteStatus = "expired"
)

// InviteEvent represents an action that triggers an invitation state change.
type InviteEvent string

const (
	EventAcceptInvite InviteEvent = "accept"
	EventRejectInvite InviteEvent = "reject"
	EventExpireInvite InviteEvent = "expire"
)

// InviteTransition defines a valid state change: an event moves an
// invitation from Src to Dst.
type InviteTransition struct {
	Event InviteEvent
	Src   InviteStatus
	Dst   InviteStatus
}

// InviteTransitions defines all valid invitation state changes. Every
// transition leaves the pending state and none returns to it, which is what
// makes an invitation single-use. This is domain knowledge consumed by the
// FSM adapter.
var InviteTransitions = []InviteTransition{
	{Event: EventAcceptInvite, Src: InvitePending, Dst: InviteAccepted},
	{Event: EventRejectInvite, Src: InvitePending, Dst: InviteRejected},
	{Event: EventExpireInvite, Src: InvitePending, Dst: InviteExpired},
}

// DefaultInviteTTL is how long a freshly issued invitation stays valid.
const DefaultInviteTTL = 7 * 24 * time.Hour

// Invitation is a single-use, time-bounded offer for a specific email to
// join a specific tenant with a specific role, addressed by an opaque token.
type Invitation struct {
	ID         string
	TenantID   string
	InviterID  string
	Email      string
	Role       Role
	Token      string
	Status     InviteStatus
	ExpiresAt  time.Time
	AcceptedBy string
	AcceptedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
}

// NewInvitation creates a pending invitation.
func NewInvitation(id, tenantID, inviterID, email string, role Role, token string, expiresAt time.Time) Invitation {
	now := time.Now().UTC()
	return Invitation{
		ID:        id,
		TenantID:  tenantID,
		InviterID: inviterID,
		Email:     email,
		Role:      role,
		Token:     token,
		Status:    InvitePending,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Overdue reports whether the invitation's expiry has passed. An overdue
// invitation must be treated as expired even while its stored status still
// reads pending (lazy expiry); the sweep catches up with the stored status
// later.
func (inv Invitation) Overdue(now time.Time) bool {
	return now.After(inv.ExpiresAt)
}
