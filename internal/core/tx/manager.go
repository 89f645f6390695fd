// Package tx defines the contract between domain services and the security
// context propagator. Domain code depends on these interfaces; the pgx
// implementation lives in infrastructure/storage/postgres.
package tx

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"orgadmin/internal/core/security"
)

// Conn is the live transaction handed to a unit of work. It is only valid
// inside the work function and must be passed explicitly to every
// data-access call; nothing may keep it afterwards.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row

	// Begin opens a savepoint inside the current transaction.
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Runner executes work inside one transaction whose session variables are
// set from a security.Context.
type Runner interface {
	// RunWithContext commits when fn returns nil and rolls back otherwise.
	// Errors from fn are returned unchanged.
	RunWithContext(ctx context.Context, sc security.Context, fn func(ctx context.Context, conn Conn) error) error
}

// Run is RunWithContext for work that produces a value.
func Run[T any](ctx context.Context, r Runner, sc security.Context, fn func(ctx context.Context, conn Conn) (T, error)) (T, error) {
	var result T
	err := r.RunWithContext(ctx, sc, func(ctx context.Context, conn Conn) error {
		v, err := fn(ctx, conn)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
