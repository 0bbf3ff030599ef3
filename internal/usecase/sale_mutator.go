package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
)

// SaleInput describes a sale to create or the new state of an existing one.
type SaleInput struct {
	ExchangeRate *decimal.Decimal
	CustomerID   string
	SupplierID   string
	Currency     string
	Notes        string
	Items        []LineItemInput
}

// SaleMutator creates, updates and deletes sales.
type SaleMutator struct {
	*lifecycle[*domain.Sale]
	returns ReturnRepository
}

// NewSaleMutator creates a new SaleMutator.
func NewSaleMutator(deps MutatorDeps, sales SaleRepository, returns ReturnRepository) *SaleMutator {
	m := &SaleMutator{
		lifecycle: newLifecycle[*domain.Sale](deps, "sale", sales),
		returns:   returns,
	}
	m.beforeUpd = func(ctx context.Context, tx Transaction, _, sale *domain.Sale) error {
		return guardReturned(ctx, tx, returns, domain.SaleReturn, sale.ID, sale.Items)
	}
	m.beforeRm = func(ctx context.Context, tx Transaction, sale *domain.Sale) error {
		return guardReturns(ctx, tx, returns, domain.SaleReturn, sale.ID)
	}
	return m
}

// Create records a new sale and moves stock and the counterparty balance.
func (m *SaleMutator) Create(ctx context.Context, actor domain.Actor, in SaleInput) (*domain.Sale, error) {
	sale, err := m.prepare(ctx, actor, m.deps.IDGen.Generate(), in)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sale.CreatedBy = actor.UserID
	sale.CreatedAt, sale.UpdatedAt = now, now

	if err := m.create(ctx, actor, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// Update replaces a sale, re-resolving its rate. Lines cannot drop below what
// committed returns have already taken back.
func (m *SaleMutator) Update(ctx context.Context, actor domain.Actor, id string, in SaleInput) (*domain.Sale, error) {
	current, err := m.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	sale, err := m.prepare(ctx, actor, id, in)
	if err != nil {
		return nil, err
	}
	sale.CreatedBy, sale.CreatedAt = current.CreatedBy, current.CreatedAt
	sale.UpdatedAt = time.Now().UTC()

	if err := m.update(ctx, actor, sale); err != nil {
		return nil, err
	}
	return sale, nil
}

// Delete reverses and removes a sale. Sales with returns cannot be deleted.
func (m *SaleMutator) Delete(ctx context.Context, actor domain.Actor, id string) error {
	return m.remove(ctx, actor, id)
}

// Get returns a sale visible to the actor.
func (m *SaleMutator) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Sale, error) {
	return m.get(ctx, actor, id)
}

func (m *SaleMutator) prepare(ctx context.Context, actor domain.Actor, id string, in SaleInput) (*domain.Sale, error) {
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

	sale := &domain.Sale{
		ID:           id,
		TenantID:     actor.TenantID,
		Counterparty: cp,
		Currency:     currency,
		ExchangeRate: rate,
		Items:        items,
		Notes:        in.Notes,
	}
	sale.Recalculate()
	return sale, nil
}

func guardReturns(ctx context.Context, tx Transaction, returns ReturnRepository, kind domain.ReturnKind, sourceID string) error {
	n, err := returns.CountBySource(ctx, tx, kind, sourceID)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.NewValidationError("id", domain.ErrDocumentHasReturns, "%d %s(s) reference %s", n, kind, sourceID)
	}
	return nil
}

// guardReturned runs under the source row lock, which return commits also take.
func guardReturned(ctx context.Context, tx Transaction, returns ReturnRepository, kind domain.ReturnKind, sourceID string, items []domain.LineItem) error {
	returned, err := returns.ReturnedQuantities(ctx, tx, kind, sourceID, "")
	if err != nil {
		return err
	}
	return domain.CheckCoversReturned(items, returned)
}
