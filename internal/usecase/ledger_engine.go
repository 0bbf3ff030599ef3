package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/infrastructure/metrics"
)

// LedgerEngine applies signed deltas to party balances inside a caller's
// transaction and journals every change as a Movement.
type LedgerEngine struct {
	parties   PartyRepository
	movements MovementRepository
	idGen     IDGenerator
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewLedgerEngine creates a new LedgerEngine.
func NewLedgerEngine(parties PartyRepository, movements MovementRepository, idGen IDGenerator, m *metrics.Metrics) *LedgerEngine {
	return &LedgerEngine{
		parties:   parties,
		movements: movements,
		idGen:     idGen,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Apply adds delta to the target balance and returns the journaled movement,
// whose CurrentBalance is the new balance. An empty target id or a delta that
// quantizes to zero is a no-op and returns a nil movement.
func (e *LedgerEngine) Apply(ctx context.Context, tx Transaction, target domain.LedgerTarget, delta decimal.Decimal, source domain.ActivityRef) (*domain.Movement, error) {
	delta = domain.QuantizeMoney(delta)
	if target.ID == "" || delta.IsZero() {
		return nil, nil
	}

	party, err := e.parties.GetByIDForUpdate(ctx, tx, target)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", target, err)
	}

	previous := party.Balance
	current := domain.QuantizeMoney(previous.Add(delta))
	now := e.now()

	if err := e.parties.UpdateBalance(ctx, tx, target, current, now); err != nil {
		return nil, err
	}

	movement := &domain.Movement{
		ID:              e.idGen.Generate(),
		Entity:          target,
		Source:          source,
		Delta:           delta,
		PreviousBalance: previous,
		CurrentBalance:  current,
		CreatedAt:       now,
	}
	if err := e.movements.Create(ctx, tx, movement); err != nil {
		return nil, err
	}

	e.metrics.ObservePosting(string(target.Kind))
	return movement, nil
}

// Reverse subtracts delta from the target balance.
func (e *LedgerEngine) Reverse(ctx context.Context, tx Transaction, target domain.LedgerTarget, delta decimal.Decimal, source domain.ActivityRef) (*domain.Movement, error) {
	return e.Apply(ctx, tx, target, delta.Neg(), source)
}

// Post nets postings per target and applies them in lock order.
func (e *LedgerEngine) Post(ctx context.Context, tx Transaction, postings []domain.Posting, source domain.ActivityRef) error {
	for _, p := range domain.NetPostings(postings) {
		if _, err := e.Apply(ctx, tx, p.Target, p.Delta, source); err != nil {
			return err
		}
	}
	return nil
}
