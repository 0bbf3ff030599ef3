package usecase

import (
	"errors"
	"time"
)

const (
	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// Rate resolution defaults.
	DefaultRateFetchTimeout = 5 * time.Second
	DefaultRateCacheTTL     = time.Hour
	DefaultRateStaleTTL     = 30 * 24 * time.Hour

	reconcilePageSize = 500
)

// ErrCacheMiss is returned by Cache.Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache miss")
