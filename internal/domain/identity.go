package domain

import "time"

// Role is the function an identity fulfils within its academy.
type Role string

const (
	RoleOwner      Role = "owner"
	RoleInstructor Role = "instructor"
	RoleAssistant  Role = "assistant"
	RoleParent     Role = "parent"
	RoleStudent    Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleInstructor, RoleAssistant, RoleParent, RoleStudent:
		return true
	}
	return false
}

// ApprovalStatus tracks whether an identity's tenant membership has been
// reviewed.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Credential identifies the authenticated principal as asserted by the
// external identity provider. It carries no activation state of its own;
// the Identity record keyed by Subject does.
type Credential struct {
	Subject string
	Email   string
}

// Identity is the platform-side record for an authenticated credential.
// Created once per credential, mutated by activation transitions, and
// soft-deleted rather than removed.
type Identity struct {
	ID                    string
	Subject               string
	Email                 string
	TenantID              string // empty until assigned
	Role                  Role   // empty until assigned
	OnboardingCompleted   bool
	OnboardingCompletedAt *time.Time
	ApprovalStatus        ApprovalStatus
	ApprovalReason        string
	ApprovedBy            string
	ApprovedAt            *time.Time
	Settings              map[string]string
	CreatedAt             time.Time
	UpdatedAt             time.Time
	DeletedAt             *time.Time
}

// NewIdentity provisions the record for a just-authenticated credential.
// A fresh identity is a prospective academy owner: it has no tenant yet,
// carries the owner role, and awaits both onboarding and approval.
func NewIdentity(id string, cred Credential) Identity {
	now := time.Now().UTC()
	return Identity{
		ID:             id,
		Subject:        cred.Subject,
		Email:          cred.Email,
		Role:           RoleOwner,
		ApprovalStatus: ApprovalPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Snapshot is the read-only view the stage resolver operates on. Exists is
// false when no identity record was found for the credential.
type Snapshot struct {
	Exists              bool
	ID                  string
	Email               string
	TenantID            string
	Role                Role
	OnboardingCompleted bool
	ApprovalStatus      ApprovalStatus
}

// Snapshot derives the resolver view from a persisted identity.
func (i Identity) Snapshot() Snapshot {
	return Snapshot{
		Exists:              true,
		ID:                  i.ID,
		Email:               i.Email,
		TenantID:            i.TenantID,
		Role:                i.Role,
		OnboardingCompleted: i.OnboardingCompleted,
		ApprovalStatus:      i.ApprovalStatus,
	}
}
