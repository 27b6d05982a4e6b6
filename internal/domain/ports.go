package domain

import (
	"context"
	"time"
)

// IdentityRepository defines the persistence contract for identities.
type IdentityRepository interface {
	Create(ctx context.Context, identity Identity) error
	GetByID(ctx context.Context, id string) (Identity, error)
	GetBySubject(ctx context.Context, subject string) (Identity, error)
	Update(ctx context.Context, identity Identity) error
}

// TenantRepository defines the persistence contract for tenants.
type TenantRepository interface {
	Create(ctx context.Context, tenant Tenant) error
	GetByID(ctx context.Context, id string) (Tenant, error)
}

// InvitationRepository defines the persistence contract for invitations.
type InvitationRepository interface {
	Create(ctx context.Context, invitation Invitation) error
	GetByToken(ctx context.Context, token string) (Invitation, error)

	// Accept persists the accepted invitation and the member's tenant
	// assignment as one transactional unit: neither write is observable
	// without the other. The invitation write is guarded by an optimistic
	// "status still pending" precondition and fails with
	// ErrInviteNotPending when another writer got there first.
	Accept(ctx context.Context, invitation Invitation, member Identity) error

	// ExpireOverdue flips every pending invitation whose expiry has passed
	// to expired, leaving accepted_by untouched, and reports how many rows
	// changed. Safe to run concurrently with Accept.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// ActivationEvent identifies a successful activation transition for async
// processing.
type ActivationEvent string

const (
	EventProfileCreated      ActivationEvent = "profile.created"
	EventOwnerSetupCompleted ActivationEvent = "owner.setup_completed"
	EventInviteIssued        ActivationEvent = "invitation.issued"
	EventInviteAccepted      ActivationEvent = "invitation.accepted"
)

// EventRecord is the snapshot payload carried with an activation event, so
// consumers never need to query back into the store.
type EventRecord struct {
	IdentityID string
	TenantID   string
	InviteID   string
	Email      string
	Role       Role
}

// EventPublisher defines the contract for emitting activation events.
type EventPublisher interface {
	Publish(ctx context.Context, event ActivationEvent, record EventRecord) error
}

// TransitionValidator checks invitation lifecycle transitions.
type TransitionValidator interface {
	Apply(ctx context.Context, current InviteStatus, event InviteEvent) (InviteStatus, error)
}
