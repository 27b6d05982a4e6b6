package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pbellini/ingresso/internal/domain"
)

const tracerName = "github.com/pbellini/ingresso/internal/adapter/otel"

func recordErr(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// TracingIdentityRepository wraps a domain.IdentityRepository with
// OpenTelemetry tracing. Each method creates a span with semantic
// attributes and records errors.
type TracingIdentityRepository struct {
	next   domain.IdentityRepository
	tracer trace.Tracer
}

// Compile-time check: TracingIdentityRepository implements domain.IdentityRepository.
var _ domain.IdentityRepository = (*TracingIdentityRepository)(nil)

// NewTracingIdentityRepository creates a tracing decorator around the given repository.
func NewTracingIdentityRepository(next domain.IdentityRepository) *TracingIdentityRepository {
	return &TracingIdentityRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingIdentityRepository) Create(ctx context.Context, ident domain.Identity) error {
	ctx, span := r.tracer.Start(ctx, "IdentityRepository.Create",
		trace.WithAttributes(attribute.String("identity.id", ident.ID)),
	)
	defer span.End()

	err := r.next.Create(ctx, ident)
	recordErr(span, err)
	return err
}

func (r *TracingIdentityRepository) GetByID(ctx context.Context, id string) (domain.Identity, error) {
	ctx, span := r.tracer.Start(ctx, "IdentityRepository.GetByID",
		trace.WithAttributes(attribute.String("identity.id", id)),
	)
	defer span.End()

	ident, err := r.next.GetByID(ctx, id)
	recordErr(span, err)
	return ident, err
}

func (r *TracingIdentityRepository) GetBySubject(ctx context.Context, subject string) (domain.Identity, error) {
	ctx, span := r.tracer.Start(ctx, "IdentityRepository.GetBySubject")
	defer span.End()

	ident, err := r.next.GetBySubject(ctx, subject)
	recordErr(span, err)
	return ident, err
}

func (r *TracingIdentityRepository) Update(ctx context.Context, ident domain.Identity) error {
	ctx, span := r.tracer.Start(ctx, "IdentityRepository.Update",
		trace.WithAttributes(
			attribute.String("identity.id", ident.ID),
			attribute.String("identity.approval_status", string(ident.ApprovalStatus)),
		),
	)
	defer span.End()

	err := r.next.Update(ctx, ident)
	recordErr(span, err)
	return err
}

// TracingInvitationRepository wraps a domain.InvitationRepository with
// OpenTelemetry tracing.
type TracingInvitationRepository struct {
	next   domain.InvitationRepository
	tracer trace.Tracer
}

// Compile-time check: TracingInvitationRepository implements domain.InvitationRepository.
var _ domain.InvitationRepository = (*TracingInvitationRepository)(nil)

// NewTracingInvitationRepository creates a tracing decorator around the given repository.
func NewTracingInvitationRepository(next domain.InvitationRepository) *TracingInvitationRepository {
	return &TracingInvitationRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingInvitationRepository) Create(ctx context.Context, inv domain.Invitation) error {
	ctx, span := r.tracer.Start(ctx, "InvitationRepository.Create",
		trace.WithAttributes(
			attribute.String("invitation.id", inv.ID),
			attribute.String("invitation.tenant_id", inv.TenantID),
			attribute.String("invitation.role", string(inv.Role)),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, inv)
	recordErr(span, err)
	return err
}

func (r *TracingInvitationRepository) GetByToken(ctx context.Context, token string) (domain.Invitation, error) {
	// The token is a bearer secret and never becomes a span attribute.
	ctx, span := r.tracer.Start(ctx, "InvitationRepository.GetByToken")
	defer span.End()

	inv, err := r.next.GetByToken(ctx, token)
	recordErr(span, err)
	return inv, err
}

func (r *TracingInvitationRepository) Accept(ctx context.Context, inv domain.Invitation, member domain.Identity) error {
	ctx, span := r.tracer.Start(ctx, "InvitationRepository.Accept",
		trace.WithAttributes(
			attribute.String("invitation.id", inv.ID),
			attribute.String("invitation.tenant_id", inv.TenantID),
			attribute.String("identity.id", member.ID),
		),
	)
	defer span.End()

	err := r.next.Accept(ctx, inv, member)
	recordErr(span, err)
	return err
}

func (r *TracingInvitationRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "InvitationRepository.ExpireOverdue")
	defer span.End()

	swept, err := r.next.ExpireOverdue(ctx, now)
	if err != nil {
		recordErr(span, err)
	} else {
		span.SetAttributes(attribute.Int64("result.swept", swept))
	}
	return swept, err
}
