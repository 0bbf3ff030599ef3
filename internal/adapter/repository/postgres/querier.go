package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

// PostgreSQL error codes the repositories translate.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
	pgErrForeignKeyViolation  = "23503"
	pgErrUniqueViolation      = "23505"
	pgErrCheckViolation       = "23514"
)

// querier is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// inTx returns the pgx transaction behind a usecase.Transaction.
func inTx(tx usecase.Transaction) querier {
	return tx.(*Tx).PgxTx()
}

// mapError translates lock and constraint failures into domain errors. The
// original error stays in the chain so the retrier can still inspect it.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable:
		return fmt.Errorf("%w: %w", domain.ErrConcurrencyTimeout, err)
	case pgErrForeignKeyViolation, pgErrUniqueViolation:
		return fmt.Errorf("%w: %s: %w", domain.ErrReferenceViolation, pgErr.ConstraintName, err)
	case pgErrCheckViolation:
		return domain.NewValidationError(pgErr.ConstraintName, err, "%s", pgErr.Message)
	}
	return err
}

// notFound maps pgx.ErrNoRows onto the given domain error.
func notFound(err, target error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return target
	}
	return mapError(err)
}

// execOne runs a statement that must touch exactly one row.
func execOne(ctx context.Context, q querier, missing error, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return missing
	}
	return nil
}

// nullable stores an empty reference as NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
