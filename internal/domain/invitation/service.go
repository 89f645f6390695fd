package invitation

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"orgadmin/internal/core/apperror"
	"orgadmin/internal/core/id"
	"orgadmin/internal/core/security"
	"orgadmin/internal/core/tx"
	"orgadmin/internal/domain/audit"
	"orgadmin/internal/domain/membership"
)

const targetTable = "invitations"

// Service provides invitation workflows.
type Service struct {
	runner      tx.Runner
	repo        Repository
	memberships membership.Repository
	recorder    audit.Recorder
	gate        *security.Gate
	ttl         time.Duration
	now         func() time.Time
}

// NewService creates a new invitation service.
func NewService(
	runner tx.Runner,
	repo Repository,
	memberships membership.Repository,
	recorder audit.Recorder,
	gate *security.Gate,
) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{
		runner:      runner,
		repo:        repo,
		memberships: memberships,
		recorder:    recorder,
		gate:        gate,
		ttl:         DefaultTTL,
		now:         time.Now,
	}
}

// CreateInput holds invitation parameters.
type CreateInput struct {
	Email string        `json:"email"`
	Role  security.Role `json:"role"`
}

// Validate normalizes and checks the input.
func (in *CreateInput) Validate() error {
	in.Email = normalizeEmail(in.Email)
	if in.Email == "" {
		return apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return apperror.NewValidation("email is invalid").WithDetail("field", "email")
	}
	if in.Role == "" {
		in.Role = security.RoleMember
	}
	if !in.Role.Valid() {
		return apperror.NewValidation("role is invalid").
			WithDetail("field", "role").
			WithDetail("allowed", security.Roles)
	}
	return nil
}

// Create issues an invitation into the caller's organization. Callers may
// not grant a role above their own.
func (s *Service) Create(ctx context.Context, p *security.Principal, in CreateInput) (*Created, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	sc, err := s.gate.RequirePrivileged(p)
	if err != nil {
		return nil, err
	}
	if in.Role.Rank() > sc.OrganizationRole.Rank() {
		return nil, apperror.NewForbidden("cannot invite with a role above your own").
			WithDetail("reason", "role").
			WithDetail("role", in.Role)
	}

	token, hash, err := NewToken()
	if err != nil {
		return nil, apperror.NewInternal(err)
	}

	now := s.now().UTC()
	inv := &Invitation{
		ID:             id.New(),
		OrganizationID: sc.OrganizationID,
		Email:          in.Email,
		Role:           in.Role,
		Status:         StatusPending,
		TokenHash:      hash,
		InvitedBy:      sc.UserID,
		ExpiresAt:      now.Add(s.ttl),
		CreatedAt:      now,
	}

	err = s.runner.RunWithContext(ctx, sc, func(ctx context.Context, conn tx.Conn) error {
		if err := s.repo.Create(ctx, conn, inv); err != nil {
			return err
		}
		s.recorder.Record(ctx, conn, audit.Event{
			ActorUserID: sc.UserID,
			ActorOrgID:  sc.OrganizationID,
			Action:      audit.ActionInvitationCreate,
			TargetTable: targetTable,
			TargetPK:    inv.ID.String(),
			Metadata:    map[string]any{"email": inv.Email, "role": inv.Role},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Created{Invitation: inv, Token: token}, nil
}

// List returns the organization's invitations.
func (s *Service) List(ctx context.Context, p *security.Principal) ([]Invitation, error) {
	sc, err := s.gate.RequireAdmin(p)
	if err != nil {
		return nil, err
	}

	return tx.Run(ctx, s.runner, sc, func(ctx context.Context, conn tx.Conn) ([]Invitation, error) {
		return s.repo.ListByOrganization(ctx, conn, sc.OrganizationID)
	})
}

// Revoke revokes a pending invitation. Revoking twice is a no-op.
func (s *Service) Revoke(ctx context.Context, p *security.Principal, invitationID id.ID) (membership.Result, error) {
	sc, err := s.gate.RequirePrivileged(p)
	if err != nil {
		return membership.Result{}, err
	}
	if id.IsNil(invitationID) {
		return membership.Result{}, apperror.NewValidation("invitation id is required").WithDetail("field", "id")
	}

	return tx.Run(ctx, s.runner, sc, func(ctx context.Context, conn tx.Conn) (membership.Result, error) {
		n, err := s.repo.Revoke(ctx, conn, sc.OrganizationID, invitationID, sc.UserID)
		if err != nil {
			return membership.Result{}, err
		}
		if n > 0 {
			s.recorder.Record(ctx, conn, audit.Event{
				ActorUserID: sc.UserID,
				ActorOrgID:  sc.OrganizationID,
				Action:      audit.ActionInvitationRevoke,
				TargetTable: targetTable,
				TargetPK:    invitationID.String(),
			})
		}
		return membership.Result{Updated: n}, nil
	})
}

// Accept redeems token for the calling user, whose email must match the
// invitation. The new membership is approved with the invited role.
func (s *Service) Accept(ctx context.Context, p *security.Principal, token string) (*membership.Membership, error) {
	if p == nil || id.IsNil(p.UserID) {
		return nil, apperror.NewUnauthenticated("authentication required")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperror.NewValidation("token is required").WithDetail("field", "token")
	}

	sc := p.UserContext()
	now := s.now().UTC()

	return tx.Run(ctx, s.runner, sc, func(ctx context.Context, conn tx.Conn) (*membership.Membership, error) {
		inv, err := s.repo.GetByTokenHash(ctx, conn, HashToken(token))
		if err != nil {
			return nil, err
		}
		if normalizeEmail(inv.Email) != normalizeEmail(p.Email) {
			return nil, apperror.NewForbidden("invitation was issued to a different email").
				WithDetail("reason", "email")
		}
		if inv.Status != StatusPending {
			return nil, apperror.NewConflict("invitation is no longer valid").
				WithDetail("status", inv.Status)
		}
		if inv.Expired(now) {
			return nil, apperror.NewConflict("invitation has expired").
				WithDetail("expiresAt", inv.ExpiresAt)
		}

		m := &membership.Membership{
			UserID:         p.UserID,
			OrganizationID: inv.OrganizationID,
			Role:           inv.Role,
			Status:         security.StatusApproved,
			ApprovedAt:     &now,
			ApprovedBy:     &inv.InvitedBy,
			CreatedAt:      now,
		}
		if err := s.memberships.Create(ctx, conn, m); err != nil {
			return nil, err
		}

		n, err := s.repo.MarkAccepted(ctx, conn, inv.ID)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, apperror.NewConflict("invitation is no longer valid")
		}

		s.recorder.Record(ctx, conn, audit.Event{
			ActorUserID: p.UserID,
			ActorOrgID:  inv.OrganizationID,
			Action:      audit.ActionInvitationAccept,
			TargetTable: targetTable,
			TargetPK:    inv.ID.String(),
			Metadata:    map[string]any{"role": inv.Role},
		})
		return m, nil
	})
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
