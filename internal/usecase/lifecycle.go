package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/infrastructure/metrics"
)

// MutatorDeps are the collaborators shared by every document mutator.
type MutatorDeps struct {
	TxManager TransactionManager
	Retrier   Retrier
	Parties   PartyRepository
	Products  ProductRepository
	Resolver  CurrencyResolver
	Ledger    *LedgerEngine
	Inventory *Inventory
	Activity  *ActivityLog
	IDGen     IDGenerator
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

// ledgerDocument is a document whose persistence moves balances and stock.
type ledgerDocument interface {
	domain.Trackable
	Postings() []domain.Posting
	StockAdjustments() []domain.StockAdjustment
	Tenant() string
}

type documentStore[D ledgerDocument] interface {
	Create(ctx context.Context, tx Transaction, doc D) error
	Update(ctx context.Context, tx Transaction, doc D) error
	GetByID(ctx context.Context, id string) (D, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (D, error)
	Delete(ctx context.Context, tx Transaction, id string) error
}

// docHook runs inside a mutation's transaction before any effect is applied.
type docHook[D ledgerDocument] func(ctx context.Context, tx Transaction, doc D) error

// lifecycle drives create, update, delete and restore of one document kind.
// Every mutation runs stock, row, postings and activity in one transaction.
type lifecycle[D ledgerDocument] struct {
	uow       unitOfWork
	store     documentStore[D]
	deps      MutatorDeps
	label     string
	logger    zerolog.Logger
	beforeIns docHook[D] // create and restore
	beforeUpd func(ctx context.Context, tx Transaction, prior, doc D) error
	beforeRm  docHook[D]
}

func newLifecycle[D ledgerDocument](deps MutatorDeps, label string, store documentStore[D]) *lifecycle[D] {
	logger := deps.Logger.With().Str("document", label).Logger()
	return &lifecycle[D]{
		uow:    unitOfWork{txManager: deps.TxManager, retrier: deps.Retrier, logger: logger},
		store:  store,
		deps:   deps,
		label:  label,
		logger: logger,
	}
}

func (l *lifecycle[D]) get(ctx context.Context, actor domain.Actor, id string) (D, error) {
	var zero D
	doc, err := l.store.GetByID(ctx, id)
	if err != nil {
		return zero, err
	}
	if !actor.Owns(doc.Tenant()) {
		return zero, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// insert applies a new document's effects and persists it.
func (l *lifecycle[D]) insert(ctx context.Context, tx Transaction, doc D) error {
	if l.beforeIns != nil {
		if err := l.beforeIns(ctx, tx, doc); err != nil {
			return err
		}
	}
	if err := l.deps.Inventory.Adjust(ctx, tx, doc.Tenant(), doc.StockAdjustments()); err != nil {
		return err
	}
	if err := l.store.Create(ctx, tx, doc); err != nil {
		return err
	}
	return l.deps.Ledger.Post(ctx, tx, doc.Postings(), doc.ActivityRef())
}

func (l *lifecycle[D]) create(ctx context.Context, actor domain.Actor, doc D) error {
	started := time.Now()
	err := l.uow.run(ctx, func(ctx context.Context, tx Transaction) error {
		if err := l.insert(ctx, tx, doc); err != nil {
			return err
		}
		return l.deps.Activity.Record(ctx, tx, actor, domain.ActionCreated, doc)
	})
	l.finish("create", doc.ActivityRef().ID, started, err)
	return err
}

// update swaps the stored document for doc. The prior effects are reversed
// and the new ones applied as one netted set, so an unchanged document
// leaves every balance untouched.
func (l *lifecycle[D]) update(ctx context.Context, actor domain.Actor, doc D) error {
	started := time.Now()
	ref := doc.ActivityRef()
	err := l.uow.run(ctx, func(ctx context.Context, tx Transaction) error {
		prior, err := l.store.GetByIDForUpdate(ctx, tx, ref.ID)
		if err != nil {
			return err
		}
		if !actor.Owns(prior.Tenant()) {
			return domain.ErrDocumentNotFound
		}
		if l.beforeUpd != nil {
			if err := l.beforeUpd(ctx, tx, prior, doc); err != nil {
				return err
			}
		}

		stock := append(domain.NegateStock(prior.StockAdjustments()), doc.StockAdjustments()...)
		if err := l.deps.Inventory.Adjust(ctx, tx, actor.TenantID, stock); err != nil {
			return err
		}
		if err := l.store.Update(ctx, tx, doc); err != nil {
			return err
		}
		postings := append(domain.NegatePostings(prior.Postings()), doc.Postings()...)
		if err := l.deps.Ledger.Post(ctx, tx, postings, ref); err != nil {
			return err
		}
		return l.deps.Activity.Record(ctx, tx, actor, domain.ActionUpdated, doc)
	})
	l.finish("update", ref.ID, started, err)
	return err
}

// remove reverses a document's effects, records a snapshot and deletes it.
func (l *lifecycle[D]) remove(ctx context.Context, actor domain.Actor, id string) error {
	started := time.Now()
	err := l.uow.run(ctx, func(ctx context.Context, tx Transaction) error {
		prior, err := l.store.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.Owns(prior.Tenant()) {
			return domain.ErrDocumentNotFound
		}
		if l.beforeRm != nil {
			if err := l.beforeRm(ctx, tx, prior); err != nil {
				return err
			}
		}

		if err := l.deps.Inventory.Adjust(ctx, tx, actor.TenantID, domain.NegateStock(prior.StockAdjustments())); err != nil {
			return err
		}
		if err := l.deps.Ledger.Post(ctx, tx, domain.NegatePostings(prior.Postings()), prior.ActivityRef()); err != nil {
			return err
		}
		if err := l.deps.Activity.Record(ctx, tx, actor, domain.ActionDeleted, prior); err != nil {
			return err
		}
		return l.store.Delete(ctx, tx, id)
	})
	l.finish("delete", id, started, err)
	return err
}

// restore reinserts a snapshot under its original id and replays its
// effects from the stored amounts. Rates are not re-resolved.
func (l *lifecycle[D]) restore(ctx context.Context, tx Transaction, doc D) error {
	id := doc.ActivityRef().ID
	_, err := l.store.GetByIDForUpdate(ctx, tx, id)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s %s already exists", domain.ErrNotRestorable, l.label, id)
	case !errors.Is(err, domain.ErrDocumentNotFound):
		return err
	}
	return l.insert(ctx, tx, doc)
}

func (l *lifecycle[D]) finish(op, id string, started time.Time, err error) {
	l.deps.Metrics.ObserveDocument(l.label, op, started, err)
	if err != nil {
		l.logger.Debug().Err(err).Str("op", op).Str("id", id).Msg("document mutation failed")
		return
	}
	l.logger.Info().Str("op", op).Str("id", id).Dur("took", time.Since(started)).Msg("document mutated")
}
