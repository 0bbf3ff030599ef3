package mocks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
)

// SequentialIDs generates ids of the form prefix-1, prefix-2, ...
type SequentialIDs struct {
	Prefix string
	n      atomic.Int64
}

func (g *SequentialIDs) Generate() string {
	prefix := g.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%06d", prefix, g.n.Add(1))
}

// StaticResolver resolves rates from a fixed table keyed "FROM-TO".
type StaticResolver struct {
	mu    sync.Mutex
	Rates map[string]decimal.Decimal
	Err   error
	Calls int
}

func (r *StaticResolver) Resolve(ctx context.Context, from, to string, manual *decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++

	if from == to {
		return domain.IdentityRate(), nil
	}
	if r.Err != nil {
		return decimal.Zero, r.Err
	}
	if rate, ok := r.Rates[from+"-"+to]; ok {
		return rate, nil
	}
	if manual != nil && manual.IsPositive() {
		return domain.QuantizeRate(*manual), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s-%s", domain.ErrRateUnavailable, from, to)
}

// SetRate adds or replaces a rate.
func (r *StaticResolver) SetRate(from, to, rate string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Rates == nil {
		r.Rates = map[string]decimal.Decimal{}
	}
	r.Rates[from+"-"+to] = decimal.RequireFromString(rate)
}
