package audit

import (
	"context"

	"orgadmin/internal/core/security"
	"orgadmin/internal/core/tx"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Service exposes the organization's audit trail to its administrators.
type Service struct {
	runner tx.Runner
	reader Reader
	gate   *security.Gate
}

// NewService creates a new audit service.
func NewService(runner tx.Runner, reader Reader, gate *security.Gate) *Service {
	return &Service{runner: runner, reader: reader, gate: gate}
}

// List returns the most recent events of the caller's organization, newest first.
func (s *Service) List(ctx context.Context, p *security.Principal, limit int) ([]Entry, error) {
	sc, err := s.gate.RequireAdmin(p)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	return tx.Run(ctx, s.runner, sc, func(ctx context.Context, conn tx.Conn) ([]Entry, error) {
		return s.reader.ListByOrganization(ctx, conn, sc.OrganizationID, limit)
	})
}
