package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
)

// PurchaseInput describes a purchase to create or the new state of an existing one.
type PurchaseInput struct {
	ExchangeRate  *decimal.Decimal
	AccountRate   *decimal.Decimal
	CustomerID    string
	SupplierID    string
	BankAccountID string
	Currency      string
	Notes         string
	Items         []LineItemInput
}

// PurchaseMutator creates, updates and deletes purchases.
type PurchaseMutator struct {
	*lifecycle[*domain.Purchase]
}

// NewPurchaseMutator creates a new PurchaseMutator.
func NewPurchaseMutator(deps MutatorDeps, purchases PurchaseRepository, returns ReturnRepository) *PurchaseMutator {
	m := &PurchaseMutator{
		lifecycle: newLifecycle[*domain.Purchase](deps, "purchase", purchases),
	}
	m.beforeUpd = func(ctx context.Context, tx Transaction, _, p *domain.Purchase) error {
		return guardReturned(ctx, tx, returns, domain.PurchaseReturn, p.ID, p.Items)
	}
	m.beforeRm = func(ctx context.Context, tx Transaction, p *domain.Purchase) error {
		return guardReturns(ctx, tx, returns, domain.PurchaseReturn, p.ID)
	}
	return m
}

// Create records a new purchase, adding stock and moving either the bank
// account or the counterparty balance.
func (m *PurchaseMutator) Create(ctx context.Context, actor domain.Actor, in PurchaseInput) (*domain.Purchase, error) {
	purchase, err := m.prepare(ctx, actor, m.deps.IDGen.Generate(), in)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	purchase.CreatedBy = actor.UserID
	purchase.CreatedAt, purchase.UpdatedAt = now, now

	if err := m.create(ctx, actor, purchase); err != nil {
		return nil, err
	}
	return purchase, nil
}

func (m *PurchaseMutator) Update(ctx context.Context, actor domain.Actor, id string, in PurchaseInput) (*domain.Purchase, error) {
	current, err := m.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	purchase, err := m.prepare(ctx, actor, id, in)
	if err != nil {
		return nil, err
	}
	purchase.CreatedBy, purchase.CreatedAt = current.CreatedBy, current.CreatedAt
	purchase.UpdatedAt = time.Now().UTC()

	if err := m.update(ctx, actor, purchase); err != nil {
		return nil, err
	}
	return purchase, nil
}

func (m *PurchaseMutator) Delete(ctx context.Context, actor domain.Actor, id string) error {
	return m.remove(ctx, actor, id)
}

func (m *PurchaseMutator) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Purchase, error) {
	return m.get(ctx, actor, id)
}

func (m *PurchaseMutator) prepare(ctx context.Context, actor domain.Actor, id string, in PurchaseInput) (*domain.Purchase, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	cp := domain.Counterparty{CustomerID: in.CustomerID, SupplierID: in.SupplierID}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	party, err := loadParty(ctx, m.deps.Parties, actor, cp.Target())
	if err != nil {
		return nil, err
	}
	currency, err := documentCurrency(in.Currency, party.Currency)
	if err != nil {
		return nil, err
	}
	items, err := buildItems(ctx, m.deps.Products, m.deps.IDGen, actor, id, in.Items)
	if err != nil {
		return nil, err
	}
	rate, err := resolveRate(ctx, m.deps.Resolver, currency, party.Currency, in.ExchangeRate)
	if err != nil {
		return nil, err
	}

	purchase := &domain.Purchase{
		ID:            id,
		TenantID:      actor.TenantID,
		Counterparty:  cp,
		BankAccountID: in.BankAccountID,
		Currency:      currency,
		ExchangeRate:  rate,
		Items:         items,
		Notes:         in.Notes,
	}

	if in.BankAccountID != "" {
		bank, err := loadParty(ctx, m.deps.Parties, actor, domain.BankAccountTarget(in.BankAccountID))
		if err != nil {
			return nil, err
		}
		purchase.AccountRate, err = resolveRate(ctx, m.deps.Resolver, currency, bank.Currency, in.AccountRate)
		if err != nil {
			return nil, err
		}
	}

	purchase.Recalculate()
	return purchase, nil
}
