package org_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"orgadmin/internal/core/id"
	"orgadmin/internal/core/security"
	"orgadmin/internal/core/tx"
	"orgadmin/internal/domain/membership"
	"orgadmin/internal/infrastructure/storage/postgres"
)

const membershipsTable = "organization_memberships"

var _ membership.Repository = (*MembershipRepo)(nil)

// MembershipRepo implements membership.Repository.
type MembershipRepo struct{}

// NewMembershipRepo creates a new membership repository.
func NewMembershipRepo() *MembershipRepo {
	return &MembershipRepo{}
}

func (r *MembershipRepo) forUser(userID id.ID) squirrel.SelectBuilder {
	return builder().
		Select("m.user_id", "m.organization_id", "o.name AS organization_name",
			"m.role", "m.status", "m.approved_at", "m.approved_by", "m.created_at").
		From(membershipsTable + " m").
		Join("organizations o ON o.id = m.organization_id").
		Where(squirrel.Eq{"m.user_id": userID}).
		OrderBy("o.name", "m.organization_id")
}

func (r *MembershipRepo) inOrganization(orgID id.ID) squirrel.SelectBuilder {
	return builder().
		Select("m.user_id", "m.organization_id", "u.email", "u.display_name",
			"m.role", "m.status", "m.approved_at", "m.approved_by", "m.created_at").
		From(membershipsTable + " m").
		Join("users u ON u.id = m.user_id").
		Where(squirrel.Eq{"m.organization_id": orgID})
}

// ListForUser implements membership.Repository.
func (r *MembershipRepo) ListForUser(ctx context.Context, conn tx.Conn, userID id.ID) ([]membership.Membership, error) {
	return selectAll[membership.Membership](ctx, conn, r.forUser(userID), "memberships")
}

// ListByOrganization implements membership.Repository.
func (r *MembershipRepo) ListByOrganization(ctx context.Context, conn tx.Conn, orgID id.ID) ([]membership.Membership, error) {
	q := r.inOrganization(orgID).OrderBy("u.email", "m.user_id")
	return selectAll[membership.Membership](ctx, conn, q, "memberships")
}

// Get implements membership.Repository.
func (r *MembershipRepo) Get(ctx context.Context, conn tx.Conn, orgID, userID id.ID) (*membership.Membership, error) {
	q := r.inOrganization(orgID).Where(squirrel.Eq{"m.user_id": userID}).Limit(1)
	return getOne[membership.Membership](ctx, conn, q, "membership", userID.String())
}

func (r *MembershipRepo) approveQuery(orgID, userID, approvedBy id.ID) squirrel.UpdateBuilder {
	return builder().
		Update(membershipsTable).
		Set("status", security.StatusApproved).
		Set("approved_at", squirrel.Expr("now()")).
		Set("approved_by", approvedBy).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{
			"organization_id": orgID,
			"user_id":         userID,
			"status":          security.StatusPending,
		})
}

// Approve implements membership.Repository. Only pending rows change.
func (r *MembershipRepo) Approve(ctx context.Context, conn tx.Conn, orgID, userID, approvedBy id.ID) (int64, error) {
	return exec(ctx, conn, r.approveQuery(orgID, userID, approvedBy), "approve membership")
}

func (r *MembershipRepo) blockQuery(orgID, userID id.ID) squirrel.UpdateBuilder {
	return builder().
		Update(membershipsTable).
		Set("status", security.StatusBlocked).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"organization_id": orgID, "user_id": userID}).
		Where(squirrel.NotEq{"status": security.StatusBlocked}).
		Where(squirrel.NotEq{"role": security.RoleOwner})
}

// Block implements membership.Repository. Owners are never changed.
func (r *MembershipRepo) Block(ctx context.Context, conn tx.Conn, orgID, userID id.ID) (int64, error) {
	return exec(ctx, conn, r.blockQuery(orgID, userID), "block membership")
}

// Create implements membership.Repository.
func (r *MembershipRepo) Create(ctx context.Context, conn tx.Conn, m *membership.Membership) error {
	q := builder().
		Insert(membershipsTable).
		SetMap(map[string]any{
			"user_id":         m.UserID,
			"organization_id": m.OrganizationID,
			"role":            m.Role,
			"status":          m.Status,
			"approved_at":     m.ApprovedAt,
			"approved_by":     m.ApprovedBy,
			"created_at":      m.CreatedAt,
			"updated_at":      m.CreatedAt,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := conn.Exec(ctx, sql, args...); err != nil {
		return postgres.ClassifyError(fmt.Errorf("insert membership: %w", err))
	}
	return nil
}
