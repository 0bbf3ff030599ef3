package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/iho/tradeledger/internal/domain"
)

func fastRetrier(maxRetries int) *Retrier {
	r := NewRetrier(maxRetries, zerolog.Nop(), nil)
	r.initialInterval = 1 * time.Millisecond
	r.maxInterval = 2 * time.Millisecond
	r.maxElapsedTime = time.Second
	return r
}

func TestRetrierRetriesOnRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "deadlock", err: &pgconn.PgError{Code: pgErrDeadlock}},
		{name: "lock timeout", err: mapError(&pgconn.PgError{Code: pgErrLockNotAvailable})},
		{name: "domain timeout", err: fmt.Errorf("lock customer/c1: %w", domain.ErrConcurrencyTimeout)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := fastRetrier(2)
			attempts := 0
			err := r.Retry(context.Background(), func() error {
				attempts++
				if attempts < 2 {
					return tt.err
				}
				return nil
			})

			if err != nil {
				t.Fatalf("expected success after retry, got %v", err)
			}
			if attempts != 2 {
				t.Fatalf("expected 2 attempts, got %d", attempts)
			}
		})
	}
}

func TestRetrierGivesUpAfterMaxRetries(t *testing.T) {
	r := fastRetrier(2)
	attempts := 0

	err := r.Retry(context.Background(), func() error {
		attempts++
		return &pgconn.PgError{Code: pgErrSerializationFailure}
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestRetrierStopsOnPermanentError(t *testing.T) {
	r := fastRetrier(3)
	attempts := 0

	err := r.Retry(context.Background(), func() error {
		attempts++
		return domain.ErrInsufficientStock
	})

	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{name: "deadlock", err: &pgconn.PgError{Code: pgErrDeadlock}, target: domain.ErrConcurrencyTimeout},
		{name: "serialization", err: &pgconn.PgError{Code: pgErrSerializationFailure}, target: domain.ErrConcurrencyTimeout},
		{name: "foreign key", err: &pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "sales_customer_id_fkey"}, target: domain.ErrReferenceViolation},
		{name: "duplicate id", err: &pgconn.PgError{Code: pgErrUniqueViolation}, target: domain.ErrReferenceViolation},
		{name: "check constraint", err: &pgconn.PgError{Code: pgErrCheckViolation, ConstraintName: "payments_original_amount_check"}, target: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.err)
			if !errors.Is(got, tt.target) {
				t.Fatalf("expected %v, got %v", tt.target, got)
			}
			var pgErr *pgconn.PgError
			if !errors.As(got, &pgErr) {
				t.Fatalf("pg error must stay in the chain")
			}
		})
	}

	plain := errors.New("other")
	if mapError(plain) != plain {
		t.Fatalf("unrelated errors must pass through")
	}
}
