package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"orgadmin/internal/core/apperror"
)

// PostgreSQL SQLSTATE codes handled explicitly.
const (
	sqlStateInsufficientPrivilege = "42501"
	sqlStateAdminShutdown         = "57P01"
	sqlStateQueryCanceled         = "57014"
)

// ClassifyError maps driver errors to application errors. Row-level
// security rejections arrive as insufficient_privilege and become
// FORBIDDEN; integrity violations become CONSTRAINT_VIOLATION. Errors it
// does not recognise are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23":
			return apperror.NewConstraintViolation(pgErr.ConstraintName, err)
		case pgErr.Code == sqlStateInsufficientPrivilege:
			return apperror.NewForbidden("operation not permitted").WithCause(err)
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08",
			pgErr.Code == sqlStateAdminShutdown,
			pgErr.Code == sqlStateQueryCanceled:
			return apperror.NewDatabaseUnavailable(err)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return apperror.NewDatabaseUnavailable(err)
	}

	return err
}
