package org_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"orgadmin/internal/core/id"
	"orgadmin/internal/core/tx"
	"orgadmin/internal/domain/organization"
)

var _ organization.Repository = (*OrganizationRepo)(nil)

// OrganizationRepo implements organization.Repository.
type OrganizationRepo struct{}

// NewOrganizationRepo creates a new organization repository.
func NewOrganizationRepo() *OrganizationRepo {
	return &OrganizationRepo{}
}

// Get implements organization.Repository.
func (r *OrganizationRepo) Get(ctx context.Context, conn tx.Conn, orgID id.ID) (*organization.Organization, error) {
	q := builder().
		Select("id", "name", "slug", "created_at", "updated_at").
		From("organizations").
		Where(squirrel.Eq{"id": orgID}).
		Limit(1)
	return getOne[organization.Organization](ctx, conn, q, "organization", orgID.String())
}

func (r *OrganizationRepo) updateNameQuery(orgID id.ID, name string) squirrel.UpdateBuilder {
	return builder().
		Update("organizations").
		Set("name", name).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": orgID}).
		Suffix("RETURNING id, name, slug, created_at, updated_at")
}

// UpdateName implements organization.Repository. A row hidden or protected
// by row-level security yields NOT_FOUND.
func (r *OrganizationRepo) UpdateName(ctx context.Context, conn tx.Conn, orgID id.ID, name string) (*organization.Organization, error) {
	return getOne[organization.Organization](ctx, conn, r.updateNameQuery(orgID, name), "organization", orgID.String())
}
