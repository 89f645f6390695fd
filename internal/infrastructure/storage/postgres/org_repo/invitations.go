package org_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"orgadmin/internal/core/id"
	"orgadmin/internal/core/tx"
	"orgadmin/internal/domain/invitation"
	"orgadmin/internal/infrastructure/storage/postgres"
)

const invitationsTable = "invitations"

var invitationColumns = []string{
	"id", "organization_id", "email", "role", "status", "token_hash", "invited_by",
	"expires_at", "created_at", "accepted_at", "revoked_at", "revoked_by",
}

var _ invitation.Repository = (*InvitationRepo)(nil)

// InvitationRepo implements invitation.Repository.
type InvitationRepo struct{}

// NewInvitationRepo creates a new invitation repository.
func NewInvitationRepo() *InvitationRepo {
	return &InvitationRepo{}
}

func (r *InvitationRepo) baseSelect() squirrel.SelectBuilder {
	return builder().Select(invitationColumns...).From(invitationsTable)
}

// Create implements invitation.Repository.
func (r *InvitationRepo) Create(ctx context.Context, conn tx.Conn, inv *invitation.Invitation) error {
	q := builder().
		Insert(invitationsTable).
		SetMap(map[string]any{
			"id":              inv.ID,
			"organization_id": inv.OrganizationID,
			"email":           inv.Email,
			"role":            inv.Role,
			"status":          inv.Status,
			"token_hash":      inv.TokenHash,
			"invited_by":      inv.InvitedBy,
			"expires_at":      inv.ExpiresAt,
			"created_at":      inv.CreatedAt,
		})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := conn.Exec(ctx, sql, args...); err != nil {
		return postgres.ClassifyError(fmt.Errorf("insert invitation: %w", err))
	}
	return nil
}

// ListByOrganization implements invitation.Repository.
func (r *InvitationRepo) ListByOrganization(ctx context.Context, conn tx.Conn, orgID id.ID) ([]invitation.Invitation, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"organization_id": orgID}).
		OrderBy("created_at DESC", "id DESC")
	return selectAll[invitation.Invitation](ctx, conn, q, "invitations")
}

func (r *InvitationRepo) revokeQuery(orgID, invitationID, revokedBy id.ID) squirrel.UpdateBuilder {
	return builder().
		Update(invitationsTable).
		Set("status", invitation.StatusRevoked).
		Set("revoked_at", squirrel.Expr("now()")).
		Set("revoked_by", revokedBy).
		Where(squirrel.Eq{
			"id":              invitationID,
			"organization_id": orgID,
			"status":          invitation.StatusPending,
		})
}

// Revoke implements invitation.Repository.
func (r *InvitationRepo) Revoke(ctx context.Context, conn tx.Conn, orgID, invitationID, revokedBy id.ID) (int64, error) {
	return exec(ctx, conn, r.revokeQuery(orgID, invitationID, revokedBy), "revoke invitation")
}

// GetByTokenHash implements invitation.Repository.
func (r *InvitationRepo) GetByTokenHash(ctx context.Context, conn tx.Conn, hash string) (*invitation.Invitation, error) {
	q := r.baseSelect().Where(squirrel.Eq{"token_hash": hash}).Limit(1)
	return getOne[invitation.Invitation](ctx, conn, q, "invitation", "token")
}

// MarkAccepted implements invitation.Repository.
func (r *InvitationRepo) MarkAccepted(ctx context.Context, conn tx.Conn, invitationID id.ID) (int64, error) {
	q := builder().
		Update(invitationsTable).
		Set("status", invitation.StatusAccepted).
		Set("accepted_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": invitationID, "status": invitation.StatusPending})
	return exec(ctx, conn, q, "accept invitation")
}
