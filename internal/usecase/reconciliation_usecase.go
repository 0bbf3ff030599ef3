package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/infrastructure/metrics"
)

// ReconciliationUseCase checks every stored balance against its movement journal.
type ReconciliationUseCase struct {
	uow       unitOfWork
	parties   PartyRepository
	movements MovementRepository
	metrics   *metrics.Metrics
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(txManager TransactionManager, parties PartyRepository, movements MovementRepository, m *metrics.Metrics) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		uow:       unitOfWork{txManager: txManager},
		parties:   parties,
		movements: movements,
		metrics:   m,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	LastChecked       time.Time
	Target            domain.LedgerTarget
	TenantID          string
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
}

// ReconciliationReport summarizes a full run.
type ReconciliationReport struct {
	CheckedAt       time.Time
	Mismatches      []*ReconciliationResult
	Checked         int
	checkedByTenant map[string]int
}

// Healthy reports whether every balance matched its journal.
func (r *ReconciliationReport) Healthy() bool {
	return len(r.Mismatches) == 0
}

// ForTenant narrows the report to one tenant's parties.
func (r *ReconciliationReport) ForTenant(tenantID string) *ReconciliationReport {
	scoped := &ReconciliationReport{
		CheckedAt: r.CheckedAt,
		Checked:   r.checkedByTenant[tenantID],
	}
	for _, m := range r.Mismatches {
		if m.TenantID == tenantID {
			scoped.Mismatches = append(scoped.Mismatches, m)
		}
	}
	return scoped
}

// ReconcileParty compares one party's balance with the sum of its movements.
// A mismatch on the unlocked read is checked again with the party row locked,
// which holds off postings, so one committing between the reads is not reported.
func (uc *ReconciliationUseCase) ReconcileParty(ctx context.Context, party *domain.Party) (*ReconciliationResult, error) {
	result, err := uc.compare(ctx, party)
	if err != nil || result.IsReconciled {
		return result, err
	}

	err = uc.uow.run(ctx, func(ctx context.Context, tx Transaction) error {
		locked, err := uc.parties.GetByIDForUpdate(ctx, tx, party.Target())
		if err != nil {
			return err
		}
		result, err = uc.compare(ctx, locked)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *ReconciliationUseCase) compare(ctx context.Context, party *domain.Party) (*ReconciliationResult, error) {
	sum, err := uc.movements.SumByEntity(ctx, party.Target())
	if err != nil {
		return nil, err
	}
	diff := party.Balance.Sub(sum)
	return &ReconciliationResult{
		Target:            party.Target(),
		TenantID:          party.TenantID,
		RecordedBalance:   party.Balance,
		CalculatedBalance: sum,
		Difference:        diff,
		IsReconciled:      diff.IsZero(),
		LastChecked:       time.Now().UTC(),
	}, nil
}

// ReconcileAll pages through every party of every kind.
func (uc *ReconciliationUseCase) ReconcileAll(ctx context.Context) (*ReconciliationReport, error) {
	report := &ReconciliationReport{
		CheckedAt:       time.Now().UTC(),
		checkedByTenant: make(map[string]int),
	}

	for _, kind := range []domain.LedgerKind{domain.LedgerCustomer, domain.LedgerSupplier, domain.LedgerBankAccount} {
		mismatches := 0
		for offset := 0; ; offset += reconcilePageSize {
			parties, err := uc.parties.List(ctx, kind, reconcilePageSize, offset)
			if err != nil {
				return nil, fmt.Errorf("list %s: %w", kind, err)
			}
			for _, party := range parties {
				result, err := uc.ReconcileParty(ctx, party)
				if errors.Is(err, domain.ErrPartyNotFound) {
					continue
				}
				if err != nil {
					return nil, fmt.Errorf("failed to reconcile %s: %w", party.Target(), err)
				}
				report.Checked++
				report.checkedByTenant[party.TenantID]++
				if !result.IsReconciled {
					mismatches++
					report.Mismatches = append(report.Mismatches, result)
				}
			}
			if len(parties) < reconcilePageSize {
				break
			}
		}
		uc.metrics.SetMismatches(string(kind), mismatches)
	}

	return report, nil
}
