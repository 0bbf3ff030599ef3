package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/tradeledger/internal/domain"
)

// ReturnItemInput is one returned product line. Prices come from the source.
type ReturnItemInput struct {
	ProductID string
	Quantity  int64
}

// ReturnInput describes a return shell.
type ReturnInput struct {
	Kind     domain.ReturnKind
	SourceID string
	Notes    string
	Items    []ReturnItemInput
}

// ReturnMutator handles sale and purchase returns. A return is created as an
// uncommitted shell; Commit applies its stock and balance effects. Every write
// locks the source document and checks the lines against what other committed
// returns have not already taken back.
type ReturnMutator struct {
	*lifecycle[*domain.Return]
	returns   ReturnRepository
	sales     SaleRepository
	purchases PurchaseRepository
}

// NewReturnMutator creates a new ReturnMutator.
func NewReturnMutator(deps MutatorDeps, returns ReturnRepository, sales SaleRepository, purchases PurchaseRepository) *ReturnMutator {
	m := &ReturnMutator{
		lifecycle: newLifecycle[*domain.Return](deps, "return", returns),
		returns:   returns,
		sales:     sales,
		purchases: purchases,
	}
	m.beforeIns = func(ctx context.Context, tx Transaction, ret *domain.Return) error {
		_, err := m.remainingTerms(ctx, tx, ret)
		return err
	}
	m.beforeUpd = func(ctx context.Context, tx Transaction, prior, ret *domain.Return) error {
		ret.Committed, ret.CommittedAt = prior.Committed, prior.CommittedAt
		terms, err := m.remainingTerms(ctx, tx, ret)
		if err != nil {
			return err
		}
		return ret.Reprice(terms)
	}
	return m
}

// Create stores an uncommitted return against a sale or purchase.
func (m *ReturnMutator) Create(ctx context.Context, actor domain.Actor, in ReturnInput) (*domain.Return, error) {
	ret, err := m.prepare(ctx, actor, m.deps.IDGen.Generate(), in)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	ret.CreatedBy = actor.UserID
	ret.CreatedAt, ret.UpdatedAt = now, now

	if err := m.create(ctx, actor, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// Commit captures the source's counterparty and rates, then moves stock and
// balances opposite to the source.
func (m *ReturnMutator) Commit(ctx context.Context, actor domain.Actor, id string) (*domain.Return, error) {
	started := time.Now()
	var committed *domain.Return

	err := m.uow.run(ctx, func(ctx context.Context, tx Transaction) error {
		ret, err := m.returns.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.Owns(ret.TenantID) {
			return domain.ErrDocumentNotFound
		}

		terms, err := m.remainingTerms(ctx, tx, ret)
		if err != nil {
			return err
		}
		if err := ret.Commit(terms, time.Now().UTC()); err != nil {
			return err
		}
		ret.UpdatedAt = time.Now().UTC()

		if err := m.deps.Inventory.Adjust(ctx, tx, ret.TenantID, ret.StockAdjustments()); err != nil {
			return err
		}
		if err := m.returns.Update(ctx, tx, ret); err != nil {
			return err
		}
		if err := m.deps.Ledger.Post(ctx, tx, ret.Postings(), ret.ActivityRef()); err != nil {
			return err
		}
		committed = ret
		return m.deps.Activity.Record(ctx, tx, actor, domain.ActionUpdated, ret)
	})

	m.deps.Metrics.ObserveDocument("return", "commit", started, err)
	if err != nil {
		return nil, err
	}
	return committed, nil
}

// Update replaces the returned lines. A committed return is repriced against
// its source and its effects are swapped for the new ones.
func (m *ReturnMutator) Update(ctx context.Context, actor domain.Actor, id string, in ReturnInput) (*domain.Return, error) {
	current, err := m.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	in.Kind, in.SourceID = current.Kind, current.SourceID

	ret, err := m.prepare(ctx, actor, id, in)
	if err != nil {
		return nil, err
	}
	ret.CreatedBy, ret.CreatedAt = current.CreatedBy, current.CreatedAt
	ret.UpdatedAt = time.Now().UTC()

	if err := m.update(ctx, actor, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// Delete reverses a committed return's effects and removes it.
func (m *ReturnMutator) Delete(ctx context.Context, actor domain.Actor, id string) error {
	return m.remove(ctx, actor, id)
}

func (m *ReturnMutator) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Return, error) {
	return m.get(ctx, actor, id)
}

// restore replays a deleted return only while its source still exists.
func (m *ReturnMutator) restore(ctx context.Context, tx Transaction, ret *domain.Return) error {
	err := m.lifecycle.restore(ctx, tx, ret)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return fmt.Errorf("%w: %s %s no longer exists", domain.ErrNotRestorable, ret.Kind.SourceKind(), ret.SourceID)
	}
	return err
}

// remainingTerms locks the source of ret and returns its terms less what the
// other committed returns took back, after checking ret's lines fit.
func (m *ReturnMutator) remainingTerms(ctx context.Context, tx Transaction, ret *domain.Return) (domain.ReturnTerms, error) {
	src, err := m.lockSource(ctx, tx, ret.Kind, ret.SourceID)
	if err == nil && src.Tenant() != ret.TenantID {
		err = domain.ErrDocumentNotFound
	}
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return domain.ReturnTerms{}, domain.NewValidationError("source_id", err, "%s %s not found", ret.Kind.SourceKind(), ret.SourceID)
		}
		return domain.ReturnTerms{}, err
	}

	returned, err := m.returns.ReturnedQuantities(ctx, tx, ret.Kind, ret.SourceID, ret.ID)
	if err != nil {
		return domain.ReturnTerms{}, err
	}
	terms := src.ReturnTerms().Less(returned)
	if err := domain.CheckItems(ret.Items, terms); err != nil {
		return domain.ReturnTerms{}, err
	}
	return terms, nil
}

// prepare prices the lines from the source read outside the transaction.
func (m *ReturnMutator) prepare(ctx context.Context, actor domain.Actor, id string, in ReturnInput) (*domain.Return, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !in.Kind.Valid() {
		return nil, domain.NewValidationError("kind", domain.ErrValidation, "unknown return kind %q", in.Kind)
	}
	if len(in.Items) == 0 {
		return nil, domain.NewValidationError("items", domain.ErrEmptyDocument, "at least one line item is required")
	}

	src, tenantID, err := m.loadSource(ctx, in.Kind, in.SourceID)
	if err == nil && !actor.Owns(tenantID) {
		err = domain.ErrDocumentNotFound
	}
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, domain.NewValidationError("source_id", err, "%s %s not found", in.Kind.SourceKind(), in.SourceID)
		}
		return nil, err
	}

	items := make([]domain.LineItem, 0, len(in.Items))
	for i, it := range in.Items {
		if err := domain.ValidateQuantity(fmt.Sprintf("items[%d].quantity", i), it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, domain.LineItem{
			ID:         m.deps.IDGen.Generate(),
			DocumentID: id,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
		})
	}

	terms := src.ReturnTerms()
	if err := domain.CheckItems(items, terms); err != nil {
		return nil, err
	}
	domain.PriceFromSource(items, terms)

	ret := &domain.Return{
		ID:       id,
		TenantID: actor.TenantID,
		Kind:     in.Kind,
		SourceID: in.SourceID,
		Currency: terms.Currency,
		Items:    items,
		Notes:    in.Notes,
	}
	ret.TotalAmount = domain.SumLines(ret.Items)
	return ret, nil
}

func (m *ReturnMutator) loadSource(ctx context.Context, kind domain.ReturnKind, id string) (domain.ReturnSource, string, error) {
	if kind == domain.SaleReturn {
		sale, err := m.sales.GetByID(ctx, id)
		if err != nil {
			return nil, "", err
		}
		return sale, sale.TenantID, nil
	}
	purchase, err := m.purchases.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return purchase, purchase.TenantID, nil
}

func (m *ReturnMutator) lockSource(ctx context.Context, tx Transaction, kind domain.ReturnKind, id string) (domain.ReturnSource, error) {
	if kind == domain.SaleReturn {
		sale, err := m.sales.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		return sale, nil
	}
	purchase, err := m.purchases.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	return purchase, nil
}
