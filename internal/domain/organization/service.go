package organization

import (
	"context"

	"orgadmin/internal/core/security"
	"orgadmin/internal/core/tx"
	"orgadmin/internal/domain/audit"
)

// Service provides organization settings.
type Service struct {
	runner   tx.Runner
	repo     Repository
	recorder audit.Recorder
	gate     *security.Gate
}

// NewService creates a new organization service.
func NewService(runner tx.Runner, repo Repository, recorder audit.Recorder, gate *security.Gate) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{runner: runner, repo: repo, recorder: recorder, gate: gate}
}

// Get returns the caller's organization.
func (s *Service) Get(ctx context.Context, p *security.Principal) (*Organization, error) {
	sc, err := s.gate.RequireMember(p)
	if err != nil {
		return nil, err
	}

	return tx.Run(ctx, s.runner, sc, func(ctx context.Context, conn tx.Conn) (*Organization, error) {
		return s.repo.Get(ctx, conn, sc.OrganizationID)
	})
}

// Update changes the caller's organization. An update that changes nothing
// is not audited.
func (s *Service) Update(ctx context.Context, p *security.Principal, in UpdateInput) (*Organization, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	sc, err := s.gate.RequirePrivileged(p)
	if err != nil {
		return nil, err
	}

	return tx.Run(ctx, s.runner, sc, func(ctx context.Context, conn tx.Conn) (*Organization, error) {
		before, err := s.repo.Get(ctx, conn, sc.OrganizationID)
		if err != nil {
			return nil, err
		}
		if before.Name == *in.Name {
			return before, nil
		}

		after, err := s.repo.UpdateName(ctx, conn, sc.OrganizationID, *in.Name)
		if err != nil {
			return nil, err
		}

		s.recorder.Record(ctx, conn, audit.Event{
			ActorUserID: sc.UserID,
			ActorOrgID:  sc.OrganizationID,
			Action:      audit.ActionOrganizationUpdate,
			TargetTable: "organizations",
			TargetPK:    sc.OrganizationID.String(),
			Metadata: audit.Diff(
				map[string]any{"name": before.Name},
				map[string]any{"name": after.Name},
			),
		})
		return after, nil
	})
}
