// Package org_repo provides PostgreSQL implementations of the account,
// membership, invitation and organization repositories. Every method runs
// on the connection it is given; visibility is decided by row-level
// security policies reading the transaction's session variables.
package org_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"orgadmin/internal/core/apperror"
	"orgadmin/internal/core/tx"
	"orgadmin/internal/infrastructure/storage/postgres"
)

// builder returns a new squirrel builder with PostgreSQL placeholder format.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func getOne[T any](ctx context.Context, conn tx.Conn, q squirrel.Sqlizer, entity string, key any) (*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var dst T
	if err := pgxscan.Get(ctx, conn, &dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(entity, key)
		}
		return nil, postgres.ClassifyError(fmt.Errorf("get %s: %w", entity, err))
	}
	return &dst, nil
}

func selectAll[T any](ctx context.Context, conn tx.Conn, q squirrel.Sqlizer, entity string) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	items := make([]T, 0)
	if err := pgxscan.Select(ctx, conn, &items, sql, args...); err != nil {
		return nil, postgres.ClassifyError(fmt.Errorf("list %s: %w", entity, err))
	}
	return items, nil
}

func exec(ctx context.Context, conn tx.Conn, q squirrel.Sqlizer, what string) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", what, err)
	}

	tag, err := conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, postgres.ClassifyError(fmt.Errorf("%s: %w", what, err))
	}
	return tag.RowsAffected(), nil
}
