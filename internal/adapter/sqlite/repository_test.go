package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pbellini/ingresso/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func seedTenant(t *testing.T, store *Store, id string) domain.Tenant {
	t.Helper()

	tenant := domain.NewTenant(id, "Test Academy", "UTC", nil)
	if err := store.Tenants.Create(context.Background(), tenant); err != nil {
		t.Fatalf("Tenants.Create() error = %v", err)
	}
	return tenant
}

func seedIdentity(t *testing.T, store *Store, id, subject, email string) domain.Identity {
	t.Helper()

	ident := domain.NewIdentity(id, domain.Credential{Subject: subject, Email: email})
	if err := store.Identities.Create(context.Background(), ident); err != nil {
		t.Fatalf("Identities.Create() error = %v", err)
	}
	return ident
}

func TestIdentityRepository_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ident := seedIdentity(t, store, "id-1", "sub-1", "owner@example.com")

	got, err := store.Identities.GetBySubject(ctx, "sub-1")
	if err != nil {
		t.Fatalf("GetBySubject() error = %v", err)
	}
	if got.ID != ident.ID {
		t.Errorf("ID = %q, want %q", got.ID, ident.ID)
	}
	if got.Role != domain.RoleOwner {
		t.Errorf("Role = %q, want %q", got.Role, domain.RoleOwner)
	}
	if got.ApprovalStatus != domain.ApprovalPending {
		t.Errorf("ApprovalStatus = %q, want %q", got.ApprovalStatus, domain.ApprovalPending)
	}
	if got.TenantID != "" {
		t.Errorf("TenantID = %q, want empty", got.TenantID)
	}
	if got.OnboardingCompletedAt != nil {
		t.Errorf("OnboardingCompletedAt = %v, want nil", got.OnboardingCompletedAt)
	}

	byID, err := store.Identities.GetByID(ctx, "id-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if byID.Subject != "sub-1" {
		t.Errorf("Subject = %q, want %q", byID.Subject, "sub-1")
	}
}

func TestIdentityRepository_Create_DuplicateSubject(t *testing.T) {
	store := newTestStore(t)

	seedIdentity(t, store, "id-1", "sub-1", "owner@example.com")

	dup := domain.NewIdentity("id-2", domain.Credential{Subject: "sub-1", Email: "other@example.com"})
	err := store.Identities.Create(context.Background(), dup)
	if !errors.Is(err, domain.ErrProfileExists) {
		t.Errorf("Create() error = %v, want ErrProfileExists", err)
	}
}

func TestIdentityRepository_GetBySubject_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Identities.GetBySubject(context.Background(), "missing")
	if !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Errorf("GetBySubject() error = %v, want ErrIdentityNotFound", err)
	}
}

func TestIdentityRepository_Update(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seedTenant(t, store, "tenant-1")
	ident := seedIdentity(t, store, "id-1", "sub-1", "owner@example.com")

	now := time.Now().UTC().Truncate(time.Second)
	ident.TenantID = "tenant-1"
	ident.ApprovalStatus = domain.ApprovalApproved
	ident.ApprovedAt = &now
	ident.OnboardingCompleted = true
	ident.OnboardingCompletedAt = &now
	ident.Settings = map[string]string{"theme": "dark"}

	if err := store.Identities.Update(ctx, ident); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := store.Identities.GetByID(ctx, "id-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.TenantID != "tenant-1" {
		t.Errorf("TenantID = %q, want %q", got.TenantID, "tenant-1")
	}
	if !got.OnboardingCompleted {
		t.Error("OnboardingCompleted = false, want true")
	}
	if got.OnboardingCompletedAt == nil || !got.OnboardingCompletedAt.Equal(now) {
		t.Errorf("OnboardingCompletedAt = %v, want %v", got.OnboardingCompletedAt, now)
	}
	if got.Settings["theme"] != "dark" {
		t.Errorf("Settings = %v, want theme=dark", got.Settings)
	}
}

func TestIdentityRepository_Update_NotFound(t *testing.T) {
	store := newTestStore(t)

	ident := domain.NewIdentity("missing", domain.Credential{Subject: "sub-x", Email: "x@example.com"})
	err := store.Identities.Update(context.Background(), ident)
	if !errors.Is(err, domain.ErrIdentityNotFound) {
		t.Errorf("Update() error = %v, want ErrIdentityNotFound", err)
	}
}

func TestTenantRepository_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tenant := seedTenant(t, store, "tenant-1")

	got, err := store.Tenants.GetByID(ctx, "tenant-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != tenant.Name {
		t.Errorf("Name = %q, want %q", got.Name, tenant.Name)
	}
	if got.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want UTC", got.Timezone)
	}

	_, err = store.Tenants.GetByID(ctx, "missing")
	if !errors.Is(err, domain.ErrTenantNotFound) {
		t.Errorf("GetByID() error = %v, want ErrTenantNotFound", err)
	}
}

func seedInvitation(t *testing.T, store *Store, token string, expiresAt time.Time) domain.Invitation {
	t.Helper()

	seedTenant(t, store, "tenant-1")
	inviter := seedIdentity(t, store, "inviter-1", "sub-inviter", "owner@example.com")

	inv := domain.NewInvitation("inv-1", "tenant-1", inviter.ID,
		"member@example.com", domain.RoleInstructor, token, expiresAt)
	if err := store.Invitations.Create(context.Background(), inv); err != nil {
		t.Fatalf("Invitations.Create() error = %v", err)
	}
	return inv
}

func TestInvitationRepository_GetByToken(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expires := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	seedInvitation(t, store, "tok-1", expires)

	got, err := store.Invitations.GetByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetByToken() error = %v", err)
	}
	if got.Status != domain.InvitePending {
		t.Errorf("Status = %q, want %q", got.Status, domain.InvitePending)
	}
	if got.Role != domain.RoleInstructor {
		t.Errorf("Role = %q, want %q", got.Role, domain.RoleInstructor)
	}
	if !got.ExpiresAt.Equal(expires) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, expires)
	}

	_, err = store.Invitations.GetByToken(ctx, "missing")
	if !errors.Is(err, domain.ErrInviteNotFound) {
		t.Errorf("GetByToken() error = %v, want ErrInviteNotFound", err)
	}
}

func TestInvitationRepository_Accept(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expires := time.Now().UTC().Add(24 * time.Hour)
	inv := seedInvitation(t, store, "tok-1", expires)
	member := seedIdentity(t, store, "member-1", "sub-member", "member@example.com")

	now := time.Now().UTC().Truncate(time.Second)
	inv.Status = domain.InviteAccepted
	inv.AcceptedBy = member.ID
	inv.AcceptedAt = &now
	inv.UpdatedAt = now

	member.TenantID = inv.TenantID
	member.Role = inv.Role
	member.ApprovalStatus = domain.ApprovalApproved
	member.ApprovedBy = inv.InviterID
	member.ApprovedAt = &now
	member.OnboardingCompleted = true
	member.OnboardingCompletedAt = &now
	member.UpdatedAt = now

	if err := store.Invitations.Accept(ctx, inv, member); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	gotInv, err := store.Invitations.GetByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetByToken() error = %v", err)
	}
	if gotInv.Status != domain.InviteAccepted {
		t.Errorf("Status = %q, want %q", gotInv.Status, domain.InviteAccepted)
	}
	if gotInv.AcceptedBy != member.ID {
		t.Errorf("AcceptedBy = %q, want %q", gotInv.AcceptedBy, member.ID)
	}
	if gotInv.AcceptedAt == nil {
		t.Error("AcceptedAt = nil, want set")
	}

	gotMember, err := store.Identities.GetByID(ctx, member.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if gotMember.TenantID != inv.TenantID {
		t.Errorf("member TenantID = %q, want %q", gotMember.TenantID, inv.TenantID)
	}
	if gotMember.Role != domain.RoleInstructor {
		t.Errorf("member Role = %q, want %q", gotMember.Role, domain.RoleInstructor)
	}
	if gotMember.ApprovalStatus != domain.ApprovalApproved {
		t.Errorf("member ApprovalStatus = %q, want %q", gotMember.ApprovalStatus, domain.ApprovalApproved)
	}
	if gotMember.ApprovedBy != inv.InviterID {
		t.Errorf("member ApprovedBy = %q, want %q", gotMember.ApprovedBy, inv.InviterID)
	}
}

func TestInvitationRepository_Accept_NotPending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expires := time.Now().UTC().Add(24 * time.Hour)
	inv := seedInvitation(t, store, "tok-1", expires)
	member := seedIdentity(t, store, "member-1", "sub-member", "member@example.com")

	now := time.Now().UTC()
	inv.Status = domain.InviteAccepted
	inv.AcceptedBy = member.ID
	inv.AcceptedAt = &now
	inv.UpdatedAt = now
	member.TenantID = inv.TenantID
	member.Role = inv.Role
	member.UpdatedAt = now

	if err := store.Invitations.Accept(ctx, inv, member); err != nil {
		t.Fatalf("first Accept() error = %v", err)
	}

	// Second accept of the same invitation must hit the status precondition.
	err := store.Invitations.Accept(ctx, inv, member)
	if !errors.Is(err, domain.ErrInviteNotPending) {
		t.Errorf("second Accept() error = %v, want ErrInviteNotPending", err)
	}
}

func TestInvitationRepository_Accept_AfterSweep(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expires := time.Now().UTC().Add(-time.Hour)
	inv := seedInvitation(t, store, "tok-1", expires)
	member := seedIdentity(t, store, "member-1", "sub-member", "member@example.com")

	swept, err := store.Invitations.ExpireOverdue(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("ExpireOverdue() error = %v", err)
	}
	if swept != 1 {
		t.Fatalf("ExpireOverdue() = %d, want 1", swept)
	}

	now := time.Now().UTC()
	inv.Status = domain.InviteAccepted
	inv.AcceptedBy = member.ID
	inv.AcceptedAt = &now
	inv.UpdatedAt = now

	err = store.Invitations.Accept(ctx, inv, member)
	if !errors.Is(err, domain.ErrInviteNotPending) {
		t.Errorf("Accept() after sweep error = %v, want ErrInviteNotPending", err)
	}

	// The losing accept must not leave tenant state on the member.
	got, err := store.Identities.GetByID(ctx, member.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.TenantID != "" {
		t.Errorf("member TenantID = %q, want empty", got.TenantID)
	}
}

func TestInvitationRepository_ExpireOverdue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	seedTenant(t, store, "tenant-1")
	inviter := seedIdentity(t, store, "inviter-1", "sub-inviter", "owner@example.com")

	overdue := domain.NewInvitation("inv-1", "tenant-1", inviter.ID,
		"late@example.com", domain.RoleStudent, "tok-late", now.Add(-time.Hour))
	fresh := domain.NewInvitation("inv-2", "tenant-1", inviter.ID,
		"fresh@example.com", domain.RoleStudent, "tok-fresh", now.Add(time.Hour))
	for _, inv := range []domain.Invitation{overdue, fresh} {
		if err := store.Invitations.Create(ctx, inv); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	swept, err := store.Invitations.ExpireOverdue(ctx, now)
	if err != nil {
		t.Fatalf("ExpireOverdue() error = %v", err)
	}
	if swept != 1 {
		t.Errorf("ExpireOverdue() = %d, want 1", swept)
	}

	gotLate, _ := store.Invitations.GetByToken(ctx, "tok-late")
	if gotLate.Status != domain.InviteExpired {
		t.Errorf("overdue Status = %q, want %q", gotLate.Status, domain.InviteExpired)
	}
	gotFresh, _ := store.Invitations.GetByToken(ctx, "tok-fresh")
	if gotFresh.Status != domain.InvitePending {
		t.Errorf("fresh Status = %q, want %q", gotFresh.Status, domain.InvitePending)
	}

	// A second sweep finds nothing.
	swept, err = store.Invitations.ExpireOverdue(ctx, now)
	if err != nil {
		t.Fatalf("second ExpireOverdue() error = %v", err)
	}
	if swept != 0 {
		t.Errorf("second ExpireOverdue() = %d, want 0", swept)
	}
}
