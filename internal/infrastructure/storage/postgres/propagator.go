package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orgadmin/internal/core/apperror"
	"orgadmin/internal/core/security"
	"orgadmin/internal/core/tx"
	"orgadmin/pkg/logger"
)

var tracer = otel.Tracer("orgadmin/tx")

// Compile-time check that Propagator implements tx.Runner interface.
var _ tx.Runner = (*Propagator)(nil)

// rollbackTimeout bounds the rollback issued after a failed or cancelled unit of work.
const rollbackTimeout = 5 * time.Second

// TxOptions configures transaction behavior.
type TxOptions struct {
	// IsolationLevel: pgx.Serializable, pgx.RepeatableRead, pgx.ReadCommitted
	IsolationLevel pgx.TxIsoLevel

	// AccessMode: pgx.ReadWrite, pgx.ReadOnly
	AccessMode pgx.TxAccessMode

	// StatementTimeout protects against long-running queries (default 30s)
	StatementTimeout time.Duration
}

// DefaultTxOptions returns production-safe defaults.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
	}
}

// Propagator runs units of work on a dedicated pooled connection inside one
// transaction whose session variables carry the caller's security context.
// Settings are transaction-local, so nothing survives the connection's
// return to the pool.
type Propagator struct {
	pool Acquirer
	opts TxOptions
}

// NewPropagator creates a propagator over pool.
func NewPropagator(pool Acquirer, opts TxOptions) *Propagator {
	return &Propagator{pool: pool, opts: opts}
}

// RunWithContext applies sc to a fresh transaction and runs fn in it.
// The transaction commits when fn returns nil and rolls back otherwise,
// including when fn panics or ctx is cancelled. Errors returned by fn are
// passed through unchanged.
func (p *Propagator) RunWithContext(ctx context.Context, sc security.Context, fn func(ctx context.Context, conn tx.Conn) error) (err error) {
	ctx, span := tracer.Start(ctx, "security_context.run",
		trace.WithAttributes(
			attribute.Bool("security.has_org", sc.HasOrganization()),
			attribute.Bool("security.mfa", sc.MFASatisfied),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	conn, err := p.pool.Checkout(ctx)
	if err != nil {
		return classifyAcquireError(err)
	}
	defer conn.Release()

	pgTx, err := conn.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   p.opts.IsolationLevel,
		AccessMode: p.opts.AccessMode,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("begin transaction: %w", ctxErr)
		}
		return apperror.NewDatabaseUnavailable(fmt.Errorf("begin transaction: %w", err))
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// The request context may already be cancelled.
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer cancel()
		if rbErr := pgTx.Rollback(rbCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			logger.Error(ctx, "rollback failed", "error", rbErr, "original_error", err)
		}
	}()

	if err := p.apply(ctx, pgTx, sc); err != nil {
		return err
	}

	if err := fn(ctx, pgTx); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
		return ClassifyError(fmt.Errorf("commit transaction: %w", err))
	}
	committed = true

	return nil
}

// apply sets every session variable in a single round trip.
func (p *Propagator) apply(ctx context.Context, conn tx.Conn, sc security.Context) error {
	query, args := settingsStatement(sc, p.opts.StatementTimeout)
	if _, err := conn.Exec(ctx, query, args...); err != nil {
		return ClassifyError(fmt.Errorf("apply security context: %w", err))
	}
	return nil
}

// settingsStatement builds SELECT set_config($1,$2,true), ... for all keys.
// Values are always bound parameters.
func settingsStatement(sc security.Context, statementTimeout time.Duration) (string, []any) {
	settings := sc.Settings()

	pairs := make([]security.Setting, 0, len(settings)+1)
	pairs = append(pairs, settings[:]...)
	if statementTimeout > 0 {
		pairs = append(pairs, security.Setting{
			Key:   "statement_timeout",
			Value: strconv.FormatInt(statementTimeout.Milliseconds(), 10),
		})
	}

	calls := make([]string, 0, len(pairs))
	args := make([]any, 0, len(pairs)*2)
	for i, s := range pairs {
		calls = append(calls, fmt.Sprintf("set_config($%d, $%d, true)", 2*i+1, 2*i+2))
		args = append(args, s.Key, s.Value)
	}

	return "SELECT " + strings.Join(calls, ", "), args
}

func classifyAcquireError(err error) error {
	switch {
	case errors.Is(err, ErrPoolExhausted):
		return apperror.NewPoolExhausted(err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return apperror.NewDatabaseUnavailable(err)
	}
}
