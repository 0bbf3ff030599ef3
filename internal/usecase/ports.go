package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation that failed on a transient concurrency error.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations. Get returns ErrCacheMiss for absent keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RateSource fetches live exchange rates keyed by target currency code.
type RateSource interface {
	FetchRates(ctx context.Context, base, target string) (map[string]decimal.Decimal, error)
}

// CurrencyResolver returns the rate converting one unit of from into to.
type CurrencyResolver interface {
	Resolve(ctx context.Context, from, to string, manual *decimal.Decimal) (decimal.Decimal, error)
}

// IdempotencyStore remembers the outcome of requests carrying an
// idempotency key.
type IdempotencyStore interface {
	// Reserve claims key for an in-flight request. When the key is already
	// taken it returns false with the stored response, which is nil while the
	// first request is still running.
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, []byte, error)
	// Complete stores the final response under a reserved key.
	Complete(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release frees a reserved key so the request may be retried.
	Release(ctx context.Context, key string) error
}
