package fsm_test

import (
	"context"
	"errors"
	"testing"

	adapter "github.com/pbellini/ingresso/internal/adapter/fsm"
	"github.com/pbellini/ingresso/internal/domain"
)

func TestValidator_AllTransitions(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	for _, tr := range domain.InviteTransitions {
		dst, err := v.Apply(ctx, tr.Src, tr.Event)
		if err != nil {
			t.Errorf("Apply(%q, %q) unexpected error: %v", tr.Src, tr.Event, err)
			continue
		}
		if dst != tr.Dst {
			t.Errorf("Apply(%q, %q) = %q, want %q", tr.Src, tr.Event, dst, tr.Dst)
		}
	}
}

func TestValidator_TerminalStatesRejectEverything(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	terminal := []domain.InviteStatus{
		domain.InviteAccepted,
		domain.InviteRejected,
		domain.InviteExpired,
	}
	events := []domain.InviteEvent{
		domain.EventAcceptInvite,
		domain.EventRejectInvite,
		domain.EventExpireInvite,
	}

	for _, status := range terminal {
		for _, event := range events {
			_, err := v.Apply(ctx, status, event)
			var trErr *domain.TransitionError
			if !errors.As(err, &trErr) {
				t.Errorf("Apply(%q, %q): expected TransitionError, got %v", status, event, err)
				continue
			}
			if trErr.Current != status {
				t.Errorf("current = %q, want %q", trErr.Current, status)
			}
		}
	}
}

func TestValidator_AcceptIsSingleUse(t *testing.T) {
	v := adapter.New()
	ctx := context.Background()

	got, err := v.Apply(ctx, domain.InvitePending, domain.EventAcceptInvite)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != domain.InviteAccepted {
		t.Fatalf("got %q, want %q", got, domain.InviteAccepted)
	}

	// A second accept from the resulting state must fail.
	_, err = v.Apply(ctx, got, domain.EventAcceptInvite)
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
}
