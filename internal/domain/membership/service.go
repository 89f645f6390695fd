package membership

import (
	"context"

	"orgadmin/internal/core/apperror"
	"orgadmin/internal/core/id"
	"orgadmin/internal/core/security"
	"orgadmin/internal/core/tx"
	"orgadmin/internal/domain/audit"
	"orgadmin/pkg/logger"
)

const targetTable = "organization_memberships"

// Service provides membership administration.
type Service struct {
	runner   tx.Runner
	repo     Repository
	recorder audit.Recorder
	gate     *security.Gate
}

// NewService creates a new membership service.
func NewService(runner tx.Runner, repo Repository, recorder audit.Recorder, gate *security.Gate) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{runner: runner, repo: repo, recorder: recorder, gate: gate}
}

// List returns the members of the caller's organization.
func (s *Service) List(ctx context.Context, p *security.Principal) ([]Membership, error) {
	sc, err := s.gate.RequireMember(p)
	if err != nil {
		return nil, err
	}

	return tx.Run(ctx, s.runner, sc, func(ctx context.Context, conn tx.Conn) ([]Membership, error) {
		return s.repo.ListByOrganization(ctx, conn, sc.OrganizationID)
	})
}

// Approve moves target's pending membership in the caller's organization to
// approved. Repeating the call changes nothing and records nothing.
func (s *Service) Approve(ctx context.Context, p *security.Principal, target id.ID) (Result, error) {
	sc, err := s.gate.RequirePrivileged(p)
	if err != nil {
		return Result{}, err
	}
	if id.IsNil(target) {
		return Result{}, apperror.NewValidation("user id is required").WithDetail("field", "userId")
	}

	return tx.Run(ctx, s.runner, sc, func(ctx context.Context, conn tx.Conn) (Result, error) {
		n, err := s.repo.Approve(ctx, conn, sc.OrganizationID, target, sc.UserID)
		if err != nil {
			return Result{}, err
		}
		if n > 0 {
			s.recorder.Record(ctx, conn, audit.Event{
				ActorUserID: sc.UserID,
				ActorOrgID:  sc.OrganizationID,
				Action:      audit.ActionMembershipApprove,
				TargetTable: targetTable,
				TargetPK:    target.String(),
				Metadata: map[string]any{
					"from": security.StatusPending,
					"to":   security.StatusApproved,
				},
			})
		}
		return Result{Updated: n}, nil
	})
}

// Block blocks target in the caller's organization. Owners cannot be
// blocked and callers cannot block themselves.
func (s *Service) Block(ctx context.Context, p *security.Principal, target id.ID) (Result, error) {
	sc, err := s.gate.RequirePrivileged(p)
	if err != nil {
		return Result{}, err
	}
	if id.IsNil(target) {
		return Result{}, apperror.NewValidation("user id is required").WithDetail("field", "userId")
	}
	if target == sc.UserID {
		return Result{}, apperror.NewValidation("cannot block your own membership")
	}

	return tx.Run(ctx, s.runner, sc, func(ctx context.Context, conn tx.Conn) (Result, error) {
		current, err := s.repo.Get(ctx, conn, sc.OrganizationID, target)
		if err != nil {
			return Result{}, err
		}
		if current.Role == security.RoleOwner {
			return Result{}, apperror.NewForbidden("owners cannot be blocked").
				WithDetail("reason", "role")
		}
		if current.Status == security.StatusBlocked {
			return Result{}, nil
		}

		n, err := s.repo.Block(ctx, conn, sc.OrganizationID, target)
		if err != nil {
			return Result{}, err
		}
		if n > 0 {
			s.recorder.Record(ctx, conn, audit.Event{
				ActorUserID: sc.UserID,
				ActorOrgID:  sc.OrganizationID,
				Action:      audit.ActionMembershipBlock,
				TargetTable: targetTable,
				TargetPK:    target.String(),
				Metadata: map[string]any{
					"from": current.Status,
					"to":   security.StatusBlocked,
				},
			})
			logger.Info(ctx, "membership blocked", "target_user_id", target)
		}
		return Result{Updated: n}, nil
	})
}
