package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/infrastructure/metrics"
)

// RestoreUseCase re-creates deleted entities from their activity snapshots.
type RestoreUseCase struct {
	uow        unitOfWork
	activities ActivityRepository
	log        *ActivityLog
	directory  *DirectoryUseCase
	sales      *SaleMutator
	purchases  *PurchaseMutator
	payments   *PaymentMutator
	expenses   *ExpenseMutator
	returns    *ReturnMutator
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// RestoreDeps wires the mutators a restore replays through.
type RestoreDeps struct {
	TxManager  TransactionManager
	Retrier    Retrier
	Activities ActivityRepository
	Log        *ActivityLog
	Directory  *DirectoryUseCase
	Sales      *SaleMutator
	Purchases  *PurchaseMutator
	Payments   *PaymentMutator
	Expenses   *ExpenseMutator
	Returns    *ReturnMutator
	Metrics    *metrics.Metrics
	Logger     zerolog.Logger
}

// NewRestoreUseCase creates a new RestoreUseCase.
func NewRestoreUseCase(deps RestoreDeps) *RestoreUseCase {
	logger := deps.Logger.With().Str("component", "restore").Logger()
	return &RestoreUseCase{
		uow:        unitOfWork{txManager: deps.TxManager, retrier: deps.Retrier, logger: logger},
		activities: deps.Activities,
		log:        deps.Log,
		directory:  deps.Directory,
		sales:      deps.Sales,
		purchases:  deps.Purchases,
		payments:   deps.Payments,
		expenses:   deps.Expenses,
		returns:    deps.Returns,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Restore replays a "deleted" activity: the entity is reinserted under its
// original id and its stock and balance effects are applied again from the
// stored amounts. The original entry is annotated, never removed.
func (uc *RestoreUseCase) Restore(ctx context.Context, actor domain.Actor, activityID string) (domain.Trackable, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var restored domain.Trackable
	var kind domain.EntityKind

	err := uc.uow.run(ctx, func(ctx context.Context, tx Transaction) error {
		activity, err := uc.activities.GetByIDForUpdate(ctx, tx, activityID)
		if err != nil {
			return err
		}
		if !actor.Owns(activity.TenantID) {
			return domain.ErrActivityNotFound
		}
		kind = activity.Entity.Kind
		if err := activity.Restorable(); err != nil {
			return err
		}

		entity, err := uc.replay(ctx, tx, activity.Snapshot)
		if err != nil {
			return err
		}
		if err := uc.log.Record(ctx, tx, actor, domain.ActionRestored, entity); err != nil {
			return err
		}
		if err := uc.log.markRestored(ctx, tx, actor, activity); err != nil {
			return err
		}
		restored = entity
		return nil
	})

	uc.metrics.ObserveRestore(string(kind), err)
	if err != nil {
		uc.logger.Debug().Err(err).Str("activity_id", activityID).Msg("restore failed")
		return nil, err
	}
	uc.logger.Info().Str("activity_id", activityID).Str("kind", string(kind)).Msg("entity restored")
	return restored, nil
}

func (uc *RestoreUseCase) replay(ctx context.Context, tx Transaction, snap *domain.Snapshot) (domain.Trackable, error) {
	entity, err := snap.Entity()
	if err != nil {
		return nil, err
	}

	switch snap.Kind {
	case domain.EntitySale:
		err = uc.sales.restore(ctx, tx, snap.Sale)
	case domain.EntityPurchase:
		err = uc.purchases.restore(ctx, tx, snap.Purchase)
	case domain.EntityPayment:
		err = uc.payments.restore(ctx, tx, snap.Payment)
	case domain.EntityExpense:
		err = uc.expenses.restore(ctx, tx, snap.Expense)
	case domain.EntitySaleReturn, domain.EntityPurchaseReturn:
		err = uc.returns.restore(ctx, tx, snap.Return)
	case domain.EntityCustomer, domain.EntitySupplier, domain.EntityBankAccount:
		err = uc.directory.restoreParty(ctx, tx, snap.Party)
	case domain.EntityProduct:
		err = uc.directory.restoreProduct(ctx, tx, snap.Product)
	default:
		err = fmt.Errorf("%w: unknown kind %q", domain.ErrNotRestorable, snap.Kind)
	}
	if err != nil {
		return nil, err
	}
	return entity, nil
}
