package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/pbellini/ingresso/internal/domain"
)

// Compile-time check: Publisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*Publisher)(nil)

// EventJobArgs carries the data needed to process an activation event
// asynchronously. River serializes this as JSON into its job queue table.
// It includes a snapshot of the event record at publish time, so the worker
// never needs to query the database.
type EventJobArgs struct {
	Event      string `json:"event"`
	IdentityID string `json:"identity_id"`
	TenantID   string `json:"tenant_id,omitempty"`
	InviteID   string `json:"invite_id,omitempty"`
	Email      string `json:"email"`
	Role       string `json:"role,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (EventJobArgs) Kind() string { return "activation.event" }

// SweepJobArgs marks a run of the invitation expiry sweep. The job carries
// no payload; the worker scans for overdue invitations itself.
type SweepJobArgs struct{}

// Kind returns the unique job type identifier used by River's job routing.
func (SweepJobArgs) Kind() string { return "invitation.sweep" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Publisher implements domain.EventPublisher by enqueuing River jobs.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher backed by the given River client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// Publish enqueues an activation event as an async job in River.
func (p *Publisher) Publish(ctx context.Context, event domain.ActivationEvent, record domain.EventRecord) error {
	_, err := p.client.Insert(ctx, EventJobArgs{
		Event:      string(event),
		IdentityID: record.IdentityID,
		TenantID:   record.TenantID,
		InviteID:   record.InviteID,
		Email:      record.Email,
		Role:       string(record.Role),
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing event job: %w", err)
	}
	return nil
}
