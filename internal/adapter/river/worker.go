package river

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/pbellini/ingresso/internal/domain"
)

// EventWorker processes activation event jobs from the River queue.
// For now it logs the event; future versions will dispatch to email
// delivery or notification systems.
type EventWorker struct {
	river.WorkerDefaults[EventJobArgs]
}

// Work processes a single event job.
func (w *EventWorker) Work(ctx context.Context, job *river.Job[EventJobArgs]) error {
	slog.InfoContext(ctx, "processing activation event",
		"event", job.Args.Event,
		"identity_id", job.Args.IdentityID,
		"tenant_id", job.Args.TenantID,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// SweepWorker expires overdue invitations in bulk. Stage resolution treats
// overdue invitations as expired regardless of their stored status, so the
// sweep only reconciles the rows; nothing downstream waits on it.
type SweepWorker struct {
	river.WorkerDefaults[SweepJobArgs]

	invites domain.InvitationRepository
}

// NewSweepWorker creates a sweep worker over the given invitation store.
func NewSweepWorker(invites domain.InvitationRepository) *SweepWorker {
	return &SweepWorker{invites: invites}
}

// Work runs one sweep pass.
func (w *SweepWorker) Work(ctx context.Context, job *river.Job[SweepJobArgs]) error {
	swept, err := w.invites.ExpireOverdue(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	if swept > 0 {
		slog.InfoContext(ctx, "expired overdue invitations",
			"count", swept,
			"job_id", job.ID,
		)
	}
	return nil
}
