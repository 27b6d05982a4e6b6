package domain

import (
	"strings"
	"time"
)

// Stage is the derived position of an identity on its path to full tenant
// membership. It is computed on every check and never persisted.
type Stage string

const (
	StageNoProfile          Stage = "no_profile"
	StageMemberInvited      Stage = "member_invited"
	StagePendingOwnerReview Stage = "pending_owner_review"
	StageOwnerSetupRequired Stage = "owner_setup_required"
	StageReady              Stage = "ready"
)

// Destination is a routing intent. The closed set keeps the core agnostic of
// any concrete route layout; the presentation boundary maps each intent to a
// real path.
type Destination string

const (
	GoToProfileSetup  Destination = "profile_setup"
	GoToInvitedRole   Destination = "invited_role"
	GoToPendingReview Destination = "pending_review"
	GoToOwnerSetup    Destination = "owner_setup"
	GoToDashboard     Destination = "dashboard"
	GoToSignIn        Destination = "sign_in"
)

// StageResult pairs a resolved stage with the destination the caller should
// be sent to next.
type StageResult struct {
	Stage       Stage
	Destination Destination
}

// ResolveStage computes the activation stage for an identity snapshot plus
// an optional invitation. First match wins; the order is significant (a
// valid invitation outranks the owner paths). The function is deterministic
// and side-effect-free: now is passed in, nothing is queried or written.
//
// A combination matching none of the five stages is an inconsistency, not a
// default: it returns an UnexpectedStageError so callers cannot guess.
func ResolveStage(snap Snapshot, invite *Invitation, now time.Time) (StageResult, error) {
	if !snap.Exists {
		return StageResult{Stage: StageNoProfile, Destination: GoToProfileSetup}, nil
	}

	if invite != nil &&
		invite.Status == InvitePending &&
		!invite.Overdue(now) &&
		strings.EqualFold(invite.Email, snap.Email) {
		return StageResult{Stage: StageMemberInvited, Destination: GoToInvitedRole}, nil
	}

	if snap.TenantID != "" && snap.Role == RoleOwner && snap.ApprovalStatus == ApprovalPending {
		return StageResult{Stage: StagePendingOwnerReview, Destination: GoToPendingReview}, nil
	}

	if snap.TenantID == "" && snap.Role == RoleOwner && !snap.OnboardingCompleted {
		return StageResult{Stage: StageOwnerSetupRequired, Destination: GoToOwnerSetup}, nil
	}

	if snap.TenantID != "" && snap.ApprovalStatus == ApprovalApproved && snap.OnboardingCompleted {
		return StageResult{Stage: StageReady, Destination: GoToDashboard}, nil
	}

	return StageResult{}, &UnexpectedStageError{
		TenantID:            snap.TenantID,
		Role:                snap.Role,
		ApprovalStatus:      snap.ApprovalStatus,
		OnboardingCompleted: snap.OnboardingCompleted,
	}
}
