package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pbellini/ingresso/internal/domain"
)

// ActivationService drives an identity from "just signed in" to fully
// provisioned tenant member. It orchestrates the stage resolver, the
// transition executors, and the retry policy; every failure leaves it
// classified, never raw.
type ActivationService struct {
	identities domain.IdentityRepository
	tenants    domain.TenantRepository
	invites    domain.InvitationRepository
	publisher  domain.EventPublisher
	validator  domain.TransitionValidator
	retry      RetryPolicy
	now        func() time.Time
	logger     *slog.Logger
}

// Option customizes an ActivationService.
type Option func(*ActivationService)

// WithClock overrides the time source. Tests use this to control expiry.
func WithClock(now func() time.Time) Option {
	return func(s *ActivationService) { s.now = now }
}

// WithAttemptCap overrides the default per-flow retry cap.
func WithAttemptCap(cap int) Option {
	return func(s *ActivationService) { s.retry.Cap = cap }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *ActivationService) { s.logger = logger }
}

// NewActivationService creates a service with the given adapters.
func NewActivationService(
	identities domain.IdentityRepository,
	tenants domain.TenantRepository,
	invites domain.InvitationRepository,
	publisher domain.EventPublisher,
	validator domain.TransitionValidator,
	opts ...Option,
) *ActivationService {
	s := &ActivationService{
		identities: identities,
		tenants:    tenants,
		invites:    invites,
		publisher:  publisher,
		validator:  validator,
		retry:      RetryPolicy{Cap: domain.DefaultAttemptCap},
		now:        func() time.Time { return time.Now().UTC() },
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RouteResult is what every caller-facing operation hands back: where the
// identity stands, where to send it next, and the current attempt counter so
// the caller can render "N attempts remaining".
type RouteResult struct {
	Stage       domain.Stage
	Destination domain.Destination
	Attempts    domain.AttemptState
}

// OwnerSetupParams carries the owner-setup form. Only AcademyName is
// required.
type OwnerSetupParams struct {
	AcademyName string
	Timezone    string
	Settings    map[string]string
}

// CheckAndRoute resolves the caller's activation stage and maps it to a
// destination. Checking is not a transition: it never consumes an attempt.
// When resolution fails the caller is routed to sign-in as a safe fallback
// and the classified error is surfaced alongside.
func (s *ActivationService) CheckAndRoute(ctx context.Context, cred domain.Credential, inviteToken string, attempts domain.AttemptState) (RouteResult, *domain.ActivationError) {
	if attempts.Cap <= 0 {
		attempts.Cap = s.retry.Cap
	}

	res, err := s.resolve(ctx, cred, inviteToken)
	if err != nil {
		actErr := Classify(err, ContextStageCheck).WithAttempts(attempts)
		var stageErr *domain.UnexpectedStageError
		if errors.As(err, &stageErr) {
			// Data or logic inconsistency; operators need to see this.
			s.logger.ErrorContext(ctx, "identity in unexpected activation state",
				"subject", cred.Subject,
				"tenant_id", stageErr.TenantID,
				"role", string(stageErr.Role),
				"approval", string(stageErr.ApprovalStatus),
				"onboarded", stageErr.OnboardingCompleted,
			)
		} else {
			s.logger.WarnContext(ctx, "stage check failed",
				"subject", cred.Subject, "error", err)
		}
		return RouteResult{Destination: domain.GoToSignIn, Attempts: attempts}, actErr
	}

	return RouteResult{Stage: res.Stage, Destination: res.Destination, Attempts: attempts}, nil
}

// CreateProfile provisions the identity record for the just-authenticated
// credential. Finding an existing profile is the goal state, not a failure:
// the benign PROFILE_ALREADY_EXISTS confirmation is returned together with
// the freshly resolved route so the caller proceeds either way.
func (s *ActivationService) CreateProfile(ctx context.Context, cred domain.Credential, attempts domain.AttemptState) (RouteResult, *domain.ActivationError) {
	attempts, err := s.retry.Run(attempts, func() error {
		return s.createProfile(ctx, cred)
	})
	return s.conclude(ctx, cred, attempts, err, ContextProfile)
}

func (s *ActivationService) createProfile(ctx context.Context, cred domain.Credential) error {
	if _, err := s.identities.GetBySubject(ctx, cred.Subject); err == nil {
		return domain.ErrProfileExists
	} else if !errors.Is(err, domain.ErrIdentityNotFound) {
		return fmt.Errorf("checking for existing profile: %w", err)
	}

	ident := domain.NewIdentity(newID(), cred)
	if err := s.identities.Create(ctx, ident); err != nil {
		return fmt.Errorf("creating profile: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventProfileCreated, domain.EventRecord{
		IdentityID: ident.ID,
		Email:      ident.Email,
		Role:       ident.Role,
	}); err != nil {
		return fmt.Errorf("publishing profile event: %w", err)
	}

	return nil
}

// FinishOwnerSetup creates the academy, assigns the calling identity as its
// owner, and completes onboarding. Calling it again once completed returns
// the benign OWNER_SETUP_ALREADY_COMPLETED confirmation and never creates a
// second tenant.
func (s *ActivationService) FinishOwnerSetup(ctx context.Context, cred domain.Credential, params OwnerSetupParams, attempts domain.AttemptState) (RouteResult, *domain.ActivationError) {
	attempts, err := s.retry.Run(attempts, func() error {
		return s.finishOwnerSetup(ctx, cred, params)
	})
	return s.conclude(ctx, cred, attempts, err, ContextOwnerSetup)
}

func (s *ActivationService) finishOwnerSetup(ctx context.Context, cred domain.Credential, params OwnerSetupParams) error {
	if strings.TrimSpace(params.AcademyName) == "" {
		return domain.ErrAcademyNameRequired
	}

	ident, err := s.identities.GetBySubject(ctx, cred.Subject)
	if err != nil {
		return fmt.Errorf("loading identity: %w", err)
	}
	if ident.OnboardingCompleted {
		return domain.ErrOnboardingCompleted
	}

	tenant := domain.NewTenant(newID(), strings.TrimSpace(params.AcademyName), params.Timezone, params.Settings)
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return fmt.Errorf("creating tenant: %w", err)
	}

	now := s.now()
	ident.TenantID = tenant.ID
	ident.Role = domain.RoleOwner
	ident.ApprovalStatus = domain.ApprovalApproved
	ident.ApprovedAt = &now
	ident.OnboardingCompleted = true
	ident.OnboardingCompletedAt = &now
	ident.UpdatedAt = now

	if err := s.identities.Update(ctx, ident); err != nil {
		return fmt.Errorf("assigning owner: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventOwnerSetupCompleted, domain.EventRecord{
		IdentityID: ident.ID,
		TenantID:   tenant.ID,
		Email:      ident.Email,
		Role:       ident.Role,
	}); err != nil {
		return fmt.Errorf("publishing owner setup event: %w", err)
	}

	return nil
}

// AcceptInvite consumes an invitation: the invitation becomes accepted and
// the calling identity joins the invitation's tenant with the invitation's
// role, as one transactional unit. An overdue invitation reads as expired
// regardless of its stored status.
func (s *ActivationService) AcceptInvite(ctx context.Context, cred domain.Credential, token string, attempts domain.AttemptState) (RouteResult, *domain.ActivationError) {
	attempts, err := s.retry.Run(attempts, func() error {
		return s.acceptInvite(ctx, cred, token)
	})
	return s.conclude(ctx, cred, attempts, err, ContextInvite)
}

func (s *ActivationService) acceptInvite(ctx context.Context, cred domain.Credential, token string) error {
	if strings.TrimSpace(token) == "" {
		return domain.ErrInviteNotFound
	}

	inv, err := s.invites.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrInviteNotFound) {
			return err
		}
		return fmt.Errorf("loading invitation: %w", err)
	}

	// Expiry wins over whatever status is on disk: a past-due invitation
	// reads as expired even when a sweep or an earlier accept beat us to it.
	now := s.now()
	if inv.Overdue(now) {
		return &domain.InviteStateError{Status: domain.InviteExpired}
	}
	if !strings.EqualFold(inv.Email, cred.Email) {
		return domain.ErrInviteEmailMismatch
	}

	ident, err := s.identities.GetBySubject(ctx, cred.Subject)
	if err != nil {
		return fmt.Errorf("loading identity: %w", err)
	}

	next, err := s.validator.Apply(ctx, inv.Status, domain.EventAcceptInvite)
	if err != nil {
		return err
	}

	inv.Status = next
	inv.AcceptedBy = ident.ID
	inv.AcceptedAt = &now
	inv.UpdatedAt = now

	ident.TenantID = inv.TenantID
	ident.Role = inv.Role
	ident.ApprovalStatus = domain.ApprovalApproved
	ident.ApprovedBy = inv.InviterID
	ident.ApprovedAt = &now
	ident.OnboardingCompleted = true
	ident.OnboardingCompletedAt = &now
	ident.UpdatedAt = now

	if err := s.invites.Accept(ctx, inv, ident); err != nil {
		if errors.Is(err, domain.ErrInviteNotPending) {
			// Lost the race against another accept or the sweep. Report the
			// state the winner left behind.
			if current, gerr := s.invites.GetByToken(ctx, token); gerr == nil {
				return &domain.InviteStateError{Status: current.Status}
			}
			return err
		}
		return fmt.Errorf("accepting invitation: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventInviteAccepted, domain.EventRecord{
		IdentityID: ident.ID,
		TenantID:   inv.TenantID,
		InviteID:   inv.ID,
		Email:      ident.Email,
		Role:       inv.Role,
	}); err != nil {
		return fmt.Errorf("publishing accept event: %w", err)
	}

	return nil
}

// IssueInvite creates a pending invitation from the calling tenant owner to
// the given email. The owner role cannot be granted by invitation. A
// non-positive ttl falls back to the default.
func (s *ActivationService) IssueInvite(ctx context.Context, cred domain.Credential, email string, role domain.Role, ttl time.Duration) (domain.Invitation, error) {
	ident, err := s.identities.GetBySubject(ctx, cred.Subject)
	if err != nil {
		return domain.Invitation{}, fmt.Errorf("loading identity: %w", err)
	}
	if ident.TenantID == "" || ident.Role != domain.RoleOwner {
		return domain.Invitation{}, domain.ErrNotTenantOwner
	}

	if role == domain.RoleOwner || !role.Valid() {
		return domain.Invitation{}, &domain.InvalidRoleError{Role: role}
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.Invitation{}, domain.ErrEmailRequired
	}

	if ttl <= 0 {
		ttl = domain.DefaultInviteTTL
	}

	token, err := newInviteToken()
	if err != nil {
		return domain.Invitation{}, err
	}

	inv := domain.NewInvitation(newID(), ident.TenantID, ident.ID, email, role, token, s.now().Add(ttl))
	if err := s.invites.Create(ctx, inv); err != nil {
		return domain.Invitation{}, fmt.Errorf("creating invitation: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventInviteIssued, domain.EventRecord{
		IdentityID: ident.ID,
		TenantID:   inv.TenantID,
		InviteID:   inv.ID,
		Email:      inv.Email,
		Role:       inv.Role,
	}); err != nil {
		return domain.Invitation{}, fmt.Errorf("publishing issue event: %w", err)
	}

	return inv, nil
}

// conclude turns an executor outcome into a RouteResult. Goal-reached
// failures still re-resolve and route forward; the benign confirmation rides
// along for presentation. Hard failures surface the classified error only.
func (s *ActivationService) conclude(ctx context.Context, cred domain.Credential, attempts domain.AttemptState, err error, fc FailureContext) (RouteResult, *domain.ActivationError) {
	var benign *domain.ActivationError
	if err != nil {
		if !domain.GoalReached(err) {
			return RouteResult{Destination: domain.GoToSignIn, Attempts: attempts},
				Classify(err, fc).WithAttempts(attempts)
		}
		benign = Classify(err, fc).WithAttempts(attempts)
	}

	res, rerr := s.resolve(ctx, cred, "")
	if rerr != nil {
		return RouteResult{Destination: domain.GoToSignIn, Attempts: attempts},
			Classify(rerr, ContextStageCheck).WithAttempts(attempts)
	}

	return RouteResult{Stage: res.Stage, Destination: res.Destination, Attempts: attempts}, benign
}

// resolve loads the resolver's inputs and delegates to the pure stage
// resolver. A token that does not resolve to any invitation is simply
// dropped; the resolver decides what the remaining state means.
func (s *ActivationService) resolve(ctx context.Context, cred domain.Credential, inviteToken string) (domain.StageResult, error) {
	snap := domain.Snapshot{}
	ident, err := s.identities.GetBySubject(ctx, cred.Subject)
	switch {
	case err == nil:
		snap = ident.Snapshot()
	case errors.Is(err, domain.ErrIdentityNotFound):
		// No profile yet; resolver reports NO_PROFILE.
	default:
		return domain.StageResult{}, fmt.Errorf("loading identity: %w", err)
	}

	var invite *domain.Invitation
	if inviteToken != "" {
		inv, err := s.invites.GetByToken(ctx, inviteToken)
		switch {
		case err == nil:
			invite = &inv
		case errors.Is(err, domain.ErrInviteNotFound):
		default:
			return domain.StageResult{}, fmt.Errorf("loading invitation: %w", err)
		}
	}

	return domain.ResolveStage(snap, invite, s.now())
}
