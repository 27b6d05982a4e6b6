package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pbellini/ingresso/internal/app"
	"github.com/pbellini/ingresso/internal/domain"
)

// AttemptsResponse mirrors the caller-held retry counter.
type AttemptsResponse struct {
	Used      int `json:"used" doc:"Attempts consumed so far"`
	Cap       int `json:"cap" doc:"Maximum attempts for this flow"`
	Remaining int `json:"remaining" doc:"Attempts left before the flow locks"`
}

// ErrorResponse is the classified activation error as shown to the user.
type ErrorResponse struct {
	Kind        string `json:"kind" doc:"Stable error kind identifier"`
	Title       string `json:"title" doc:"Short user-facing title"`
	Description string `json:"description" doc:"User-facing description"`
	CanRetry    bool   `json:"can_retry" doc:"Whether retrying may help"`
}

// RouteResponse is the envelope every activation operation answers with:
// where the identity stands, where the client should navigate next, the
// updated attempt counter, and the classified error when the transition did
// not go through cleanly. Transitions that fail still answer 200; the
// outcome lives in the envelope, not the status code.
type RouteResponse struct {
	Stage       string           `json:"stage,omitempty" doc:"Resolved activation stage"`
	Destination string           `json:"destination" doc:"Where the client should navigate"`
	Attempts    AttemptsResponse `json:"attempts" doc:"Updated retry counter"`
	Error       *ErrorResponse   `json:"error,omitempty" doc:"Classified failure, if any"`
}

func toRouteResponse(res app.RouteResult, actErr *domain.ActivationError) RouteResponse {
	out := RouteResponse{
		Stage:       string(res.Stage),
		Destination: string(res.Destination),
		Attempts: AttemptsResponse{
			Used:      res.Attempts.Used,
			Cap:       res.Attempts.Cap,
			Remaining: res.Attempts.Remaining(),
		},
	}
	if actErr != nil {
		out.Error = &ErrorResponse{
			Kind:        string(actErr.Kind),
			Title:       actErr.Title,
			Description: actErr.Description,
			CanRetry:    actErr.CanRetry,
		}
	}
	return out
}

// InvitationResponse is the API representation of an issued invitation.
type InvitationResponse struct {
	ID        string `json:"id" doc:"Unique identifier"`
	Email     string `json:"email" doc:"Invited email address"`
	Role      string `json:"role" doc:"Role granted on acceptance"`
	Token     string `json:"token" doc:"Opaque acceptance token"`
	Status    string `json:"status" doc:"Lifecycle state"`
	ExpiresAt string `json:"expires_at" doc:"Expiry timestamp (ISO 8601)"`
}

func toInvitationResponse(inv domain.Invitation) InvitationResponse {
	return InvitationResponse{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      string(inv.Role),
		Token:     inv.Token,
		Status:    string(inv.Status),
		ExpiresAt: inv.ExpiresAt.Format("2006-01-02T15:04:05Z"),
	}
}

// --- Check and route ---

type CheckInput struct {
	Body struct {
		InviteToken  string `json:"invite_token,omitempty" doc:"Invitation token carried in the sign-in link, if any"`
		AttemptsUsed int    `json:"attempts_used,omitempty" minimum:"0" doc:"Attempts already consumed in this flow"`
	}
}

type RouteOutput struct {
	Body RouteResponse
}

// --- Create profile ---

type CreateProfileInput struct {
	Body struct {
		AttemptsUsed int `json:"attempts_used,omitempty" minimum:"0" doc:"Attempts already consumed in this flow"`
	}
}

// --- Owner setup ---

type OwnerSetupInput struct {
	Body struct {
		AcademyName  string            `json:"academy_name" minLength:"1" maxLength:"255" doc:"Display name of the academy"`
		Timezone     string            `json:"timezone,omitempty" doc:"IANA timezone, defaults to UTC"`
		Settings     map[string]string `json:"settings,omitempty" doc:"Initial academy settings"`
		AttemptsUsed int               `json:"attempts_used,omitempty" minimum:"0" doc:"Attempts already consumed in this flow"`
	}
}

// --- Accept invitation ---

type AcceptInviteInput struct {
	Body struct {
		Token        string `json:"token" minLength:"1" doc:"Invitation token"`
		AttemptsUsed int    `json:"attempts_used,omitempty" minimum:"0" doc:"Attempts already consumed in this flow"`
	}
}

// --- Issue invitation ---

type IssueInviteInput struct {
	Body struct {
		Email    string `json:"email" format:"email" doc:"Email address to invite"`
		Role     string `json:"role" doc:"Role granted on acceptance" enum:"instructor,assistant,parent,student"`
		TTLHours int    `json:"ttl_hours,omitempty" minimum:"0" doc:"Validity in hours, defaults to 168"`
	}
}

type IssueInviteOutput struct {
	Body InvitationResponse
}

// Register adds all activation API routes to the Huma API.
func Register(api huma.API, svc *app.ActivationService) {
	huma.Register(api, huma.Operation{
		OperationID: "check-activation",
		Method:      http.MethodPost,
		Path:        "/api/v1/activation/check",
		Summary:     "Resolve the caller's activation stage",
		Tags:        []string{"Activation"},
	}, func(ctx context.Context, input *CheckInput) (*RouteOutput, error) {
		cred, ok := CredentialFrom(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}
		res, actErr := svc.CheckAndRoute(ctx, cred, input.Body.InviteToken,
			attemptState(input.Body.AttemptsUsed))
		return &RouteOutput{Body: toRouteResponse(res, actErr)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "create-profile",
		Method:      http.MethodPost,
		Path:        "/api/v1/activation/profile",
		Summary:     "Create the caller's profile",
		Tags:        []string{"Activation"},
	}, func(ctx context.Context, input *CreateProfileInput) (*RouteOutput, error) {
		cred, ok := CredentialFrom(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}
		res, actErr := svc.CreateProfile(ctx, cred, attemptState(input.Body.AttemptsUsed))
		return &RouteOutput{Body: toRouteResponse(res, actErr)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "finish-owner-setup",
		Method:      http.MethodPost,
		Path:        "/api/v1/activation/owner-setup",
		Summary:     "Create the academy and finish owner onboarding",
		Tags:        []string{"Activation"},
	}, func(ctx context.Context, input *OwnerSetupInput) (*RouteOutput, error) {
		cred, ok := CredentialFrom(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}
		res, actErr := svc.FinishOwnerSetup(ctx, cred, app.OwnerSetupParams{
			AcademyName: input.Body.AcademyName,
			Timezone:    input.Body.Timezone,
			Settings:    input.Body.Settings,
		}, attemptState(input.Body.AttemptsUsed))
		return &RouteOutput{Body: toRouteResponse(res, actErr)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accept-invitation",
		Method:      http.MethodPost,
		Path:        "/api/v1/activation/invitations/accept",
		Summary:     "Accept an invitation and join its academy",
		Tags:        []string{"Activation"},
	}, func(ctx context.Context, input *AcceptInviteInput) (*RouteOutput, error) {
		cred, ok := CredentialFrom(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}
		res, actErr := svc.AcceptInvite(ctx, cred, input.Body.Token,
			attemptState(input.Body.AttemptsUsed))
		return &RouteOutput{Body: toRouteResponse(res, actErr)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "issue-invitation",
		Method:      http.MethodPost,
		Path:        "/api/v1/invitations",
		Summary:     "Invite a member to the caller's academy",
		Tags:        []string{"Invitations"},
	}, func(ctx context.Context, input *IssueInviteInput) (*IssueInviteOutput, error) {
		cred, ok := CredentialFrom(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("authentication required")
		}
		inv, err := svc.IssueInvite(ctx, cred, input.Body.Email,
			domain.Role(input.Body.Role), time.Duration(input.Body.TTLHours)*time.Hour)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &IssueInviteOutput{Body: toInvitationResponse(inv)}, nil
	})
}

func attemptState(used int) domain.AttemptState {
	a := domain.NewAttemptState(0)
	if used > 0 {
		a.Used = used
	}
	return a
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	if errors.Is(err, domain.ErrNotTenantOwner) {
		return huma.Error403Forbidden("only an academy owner can issue invitations")
	}
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return huma.Error403Forbidden("caller has no profile")
	}
	if errors.Is(err, domain.ErrEmailRequired) {
		return huma.Error422UnprocessableEntity(err.Error())
	}

	var roleErr *domain.InvalidRoleError
	if errors.As(err, &roleErr) {
		return huma.Error422UnprocessableEntity(roleErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
