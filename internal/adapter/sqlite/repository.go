package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pbellini/ingresso/internal/domain"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store bundles the activation repositories over a single SQLite database,
// so the invitation-accept transaction can span invitations and identities.
type Store struct {
	db *sql.DB

	Identities  *IdentityRepository
	Tenants     *TenantRepository
	Invitations *InvitationRepository
}

// New opens a SQLite database, runs migrations, and returns a ready store.
func New(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and
// returns a ready store. Use this when the *sql.DB has been pre-configured
// (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*Store, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &Store{
		db:          db,
		Identities:  &IdentityRepository{db: db},
		Tenants:     &TenantRepository{db: db},
		Invitations: &InvitationRepository{db: db},
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for use by other adapters
// (e.g., river).
func (s *Store) DB() *sql.DB {
	return s.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func marshalSettings(settings map[string]string) (string, error) {
	if len(settings) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("encoding settings: %w", err)
	}
	return string(raw), nil
}

func unmarshalSettings(raw string) map[string]string {
	if raw == "" || raw == "{}" {
		return nil
	}
	var settings map[string]string
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return nil
	}
	return settings
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- Identities ---

// IdentityRepository implements domain.IdentityRepository using SQLite.
type IdentityRepository struct {
	db *sql.DB
}

var _ domain.IdentityRepository = (*IdentityRepository)(nil)

const identityColumns = `id, subject, email, tenant_id, role,
	onboarding_completed, onboarding_completed_at,
	approval_status, approval_reason, approved_by, approved_at,
	settings, created_at, updated_at, deleted_at`

func (r *IdentityRepository) Create(ctx context.Context, ident domain.Identity) error {
	settings, err := marshalSettings(ident.Settings)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO identities (`+identityColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ident.ID, ident.Subject, ident.Email,
		nullIfEmpty(ident.TenantID), nullIfEmpty(string(ident.Role)),
		ident.OnboardingCompleted, formatTimePtr(ident.OnboardingCompletedAt),
		string(ident.ApprovalStatus), nullIfEmpty(ident.ApprovalReason),
		nullIfEmpty(ident.ApprovedBy), formatTimePtr(ident.ApprovedAt),
		settings, formatTime(ident.CreatedAt), formatTime(ident.UpdatedAt),
		formatTimePtr(ident.DeletedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProfileExists
		}
		return fmt.Errorf("inserting identity: %w", err)
	}
	return nil
}

func (r *IdentityRepository) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	return scanIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ? AND deleted_at IS NULL`, id,
	))
}

func (r *IdentityRepository) GetBySubject(ctx context.Context, subject string) (domain.Identity, error) {
	return scanIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE subject = ? AND deleted_at IS NULL`, subject,
	))
}

func (r *IdentityRepository) Update(ctx context.Context, ident domain.Identity) error {
	settings, err := marshalSettings(ident.Settings)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE identities SET email = ?, tenant_id = ?, role = ?,
		     onboarding_completed = ?, onboarding_completed_at = ?,
		     approval_status = ?, approval_reason = ?, approved_by = ?, approved_at = ?,
		     settings = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		ident.Email, nullIfEmpty(ident.TenantID), nullIfEmpty(string(ident.Role)),
		ident.OnboardingCompleted, formatTimePtr(ident.OnboardingCompletedAt),
		string(ident.ApprovalStatus), nullIfEmpty(ident.ApprovalReason),
		nullIfEmpty(ident.ApprovedBy), formatTimePtr(ident.ApprovedAt),
		settings, formatTime(ident.UpdatedAt),
		ident.ID,
	)
	if err != nil {
		return fmt.Errorf("updating identity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrIdentityNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (domain.Identity, error) {
	var ident domain.Identity
	var tenantID, role, approvalReason, approvedBy sql.NullString
	var onboardedAt, approvedAt, deletedAt sql.NullString
	var approval, settings, createdAt, updatedAt string

	err := row.Scan(
		&ident.ID, &ident.Subject, &ident.Email, &tenantID, &role,
		&ident.OnboardingCompleted, &onboardedAt,
		&approval, &approvalReason, &approvedBy, &approvedAt,
		&settings, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Identity{}, domain.ErrIdentityNotFound
		}
		return domain.Identity{}, fmt.Errorf("scanning identity: %w", err)
	}

	ident.TenantID = tenantID.String
	ident.Role = domain.Role(role.String)
	ident.OnboardingCompletedAt = parseTimePtr(onboardedAt)
	ident.ApprovalStatus = domain.ApprovalStatus(approval)
	ident.ApprovalReason = approvalReason.String
	ident.ApprovedBy = approvedBy.String
	ident.ApprovedAt = parseTimePtr(approvedAt)
	ident.Settings = unmarshalSettings(settings)
	ident.CreatedAt = parseTime(createdAt)
	ident.UpdatedAt = parseTime(updatedAt)
	ident.DeletedAt = parseTimePtr(deletedAt)

	return ident, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// --- Tenants ---

// TenantRepository implements domain.TenantRepository using SQLite.
type TenantRepository struct {
	db *sql.DB
}

var _ domain.TenantRepository = (*TenantRepository)(nil)

func (r *TenantRepository) Create(ctx context.Context, t domain.Tenant) error {
	settings, err := marshalSettings(t.Settings)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, timezone, settings, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Timezone, settings,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting tenant: %w", err)
	}
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	var t domain.Tenant
	var settings, createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, timezone, settings, created_at, updated_at
		 FROM tenants WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Timezone, &settings, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Tenant{}, domain.ErrTenantNotFound
		}
		return domain.Tenant{}, fmt.Errorf("scanning tenant: %w", err)
	}

	t.Settings = unmarshalSettings(settings)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)

	return t, nil
}

// --- Invitations ---

// InvitationRepository implements domain.InvitationRepository using SQLite.
type InvitationRepository struct {
	db *sql.DB
}

var _ domain.InvitationRepository = (*InvitationRepository)(nil)

const invitationColumns = `id, tenant_id, inviter_id, email, role, token,
	status, expires_at, accepted_by, accepted_at,
	created_at, updated_at, deleted_at`

func (r *InvitationRepository) Create(ctx context.Context, inv domain.Invitation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invitations (`+invitationColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.TenantID, inv.InviterID, inv.Email, string(inv.Role), inv.Token,
		string(inv.Status), formatTime(inv.ExpiresAt),
		nullIfEmpty(inv.AcceptedBy), formatTimePtr(inv.AcceptedAt),
		formatTime(inv.CreatedAt), formatTime(inv.UpdatedAt),
		formatTimePtr(inv.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting invitation: %w", err)
	}
	return nil
}

func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (domain.Invitation, error) {
	var inv domain.Invitation
	var role, status, expiresAt, createdAt, updatedAt string
	var acceptedBy, acceptedAt, deletedAt sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+`
		 FROM invitations WHERE token = ? AND deleted_at IS NULL`, token,
	).Scan(
		&inv.ID, &inv.TenantID, &inv.InviterID, &inv.Email, &role, &inv.Token,
		&status, &expiresAt, &acceptedBy, &acceptedAt,
		&createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Invitation{}, domain.ErrInviteNotFound
		}
		return domain.Invitation{}, fmt.Errorf("scanning invitation: %w", err)
	}

	inv.Role = domain.Role(role)
	inv.Status = domain.InviteStatus(status)
	inv.ExpiresAt = parseTime(expiresAt)
	inv.AcceptedBy = acceptedBy.String
	inv.AcceptedAt = parseTimePtr(acceptedAt)
	inv.CreatedAt = parseTime(createdAt)
	inv.UpdatedAt = parseTime(updatedAt)
	inv.DeletedAt = parseTimePtr(deletedAt)

	return inv, nil
}

// Accept writes the accepted invitation and the member's tenant assignment
// in one transaction. The invitation update only applies while the stored
// status is still pending, so a concurrent accept or sweep makes this fail
// with domain.ErrInviteNotPending instead of overwriting the winner.
func (r *InvitationRepository) Accept(ctx context.Context, inv domain.Invitation, member domain.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning accept transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	result, err := tx.ExecContext(ctx,
		`UPDATE invitations
		 SET status = ?, accepted_by = ?, accepted_at = ?, updated_at = ?
		 WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		string(inv.Status), inv.AcceptedBy, formatTimePtr(inv.AcceptedAt),
		formatTime(inv.UpdatedAt),
		inv.ID, string(domain.InvitePending),
	)
	if err != nil {
		return fmt.Errorf("updating invitation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrInviteNotPending
	}

	settings, err := marshalSettings(member.Settings)
	if err != nil {
		return err
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE identities SET tenant_id = ?, role = ?,
		     onboarding_completed = ?, onboarding_completed_at = ?,
		     approval_status = ?, approved_by = ?, approved_at = ?,
		     settings = ?, updated_at = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		nullIfEmpty(member.TenantID), nullIfEmpty(string(member.Role)),
		member.OnboardingCompleted, formatTimePtr(member.OnboardingCompletedAt),
		string(member.ApprovalStatus), nullIfEmpty(member.ApprovedBy),
		formatTimePtr(member.ApprovedAt),
		settings, formatTime(member.UpdatedAt),
		member.ID,
	)
	if err != nil {
		return fmt.Errorf("assigning member: %w", err)
	}

	rows, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrIdentityNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing accept transaction: %w", err)
	}
	return nil
}

// ExpireOverdue flips pending invitations past their expiry to expired.
// It never touches accepted_by, and the status precondition keeps it from
// racing an accept onto the same row.
func (r *InvitationRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = ?, updated_at = ?
		 WHERE status = ? AND expires_at < ? AND deleted_at IS NULL`,
		string(domain.InviteExpired), formatTime(now),
		string(domain.InvitePending), formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("expiring invitations: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows, nil
}
