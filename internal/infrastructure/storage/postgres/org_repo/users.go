package org_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"orgadmin/internal/core/tx"
	"orgadmin/internal/domain/account"
)

var _ account.Repository = (*UserRepo)(nil)

// UserRepo implements account.Repository.
type UserRepo struct{}

// NewUserRepo creates a new user repository.
func NewUserRepo() *UserRepo {
	return &UserRepo{}
}

func (r *UserRepo) byExternalID(externalID string) squirrel.SelectBuilder {
	return builder().
		Select("id", "external_id", "email", "display_name", "created_at").
		From("users").
		Where(squirrel.Eq{"external_id": externalID}).
		Limit(1)
}

// GetByExternalID retrieves the account linked to externalID.
func (r *UserRepo) GetByExternalID(ctx context.Context, conn tx.Conn, externalID string) (*account.User, error) {
	return getOne[account.User](ctx, conn, r.byExternalID(externalID), "user", externalID)
}
