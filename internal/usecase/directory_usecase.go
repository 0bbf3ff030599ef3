package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
)

// CreatePartyInput represents input for creating a customer, supplier or bank account.
type CreatePartyInput struct {
	Kind           domain.LedgerKind
	Name           string
	Currency       string
	OpeningBalance decimal.Decimal
}

// CreateProductInput represents input for creating a product.
type CreateProductInput struct {
	Name          string
	UnitPrice     decimal.Decimal
	StockQuantity int64
}

// DirectoryUseCase manages the parties and products documents refer to.
type DirectoryUseCase struct {
	uow      unitOfWork
	parties  PartyRepository
	products ProductRepository
	ledger   *LedgerEngine
	activity *ActivityLog
	idGen    IDGenerator
}

// NewDirectoryUseCase creates a new DirectoryUseCase.
func NewDirectoryUseCase(
	txManager TransactionManager,
	retrier Retrier,
	parties PartyRepository,
	products ProductRepository,
	ledger *LedgerEngine,
	activity *ActivityLog,
	idGen IDGenerator,
	logger zerolog.Logger,
) *DirectoryUseCase {
	return &DirectoryUseCase{
		uow:      unitOfWork{txManager: txManager, retrier: retrier, logger: logger},
		parties:  parties,
		products: products,
		ledger:   ledger,
		activity: activity,
		idGen:    idGen,
	}
}

// CreateParty creates a party with a zero balance and posts any opening
// balance through the ledger so the journal stays complete.
func (uc *DirectoryUseCase) CreateParty(ctx context.Context, actor domain.Actor, in CreatePartyInput) (*domain.Party, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !in.Kind.Valid() {
		return nil, domain.NewValidationError("kind", domain.ErrValidation, "unknown party kind %q", in.Kind)
	}
	if err := domain.ValidateName(in.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidateCurrency(in.Currency); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	party := &domain.Party{
		ID:        uc.idGen.Generate(),
		TenantID:  actor.TenantID,
		Kind:      in.Kind,
		Name:      in.Name,
		Currency:  domain.NormalizeCurrency(in.Currency),
		Balance:   decimal.Zero,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := uc.uow.run(ctx, func(ctx context.Context, tx Transaction) error {
		if err := uc.parties.Create(ctx, tx, party); err != nil {
			return err
		}
		if !in.OpeningBalance.IsZero() {
			movement, err := uc.ledger.Apply(ctx, tx, party.Target(), in.OpeningBalance, party.ActivityRef())
			if err != nil {
				return err
			}
			if movement != nil {
				party.Balance = movement.CurrentBalance
			}
		}
		return uc.activity.Record(ctx, tx, actor, domain.ActionCreated, party)
	})
	if err != nil {
		return nil, err
	}
	return party, nil
}

// GetParty returns a party visible to the actor.
func (uc *DirectoryUseCase) GetParty(ctx context.Context, actor domain.Actor, target domain.LedgerTarget) (*domain.Party, error) {
	party, err := uc.parties.GetByID(ctx, target)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(party.TenantID) {
		return nil, domain.ErrPartyNotFound
	}
	return party, nil
}

// DeleteParty removes a party that no document references.
func (uc *DirectoryUseCase) DeleteParty(ctx context.Context, actor domain.Actor, target domain.LedgerTarget) error {
	return uc.uow.run(ctx, func(ctx context.Context, tx Transaction) error {
		party, err := uc.parties.GetByIDForUpdate(ctx, tx, target)
		if err != nil {
			return err
		}
		if !actor.Owns(party.TenantID) {
			return domain.ErrPartyNotFound
		}
		if err := uc.activity.Record(ctx, tx, actor, domain.ActionDeleted, party); err != nil {
			return err
		}
		return uc.parties.Delete(ctx, tx, target)
	})
}

// CreateProduct creates a product with an initial stock level.
func (uc *DirectoryUseCase) CreateProduct(ctx context.Context, actor domain.Actor, in CreateProductInput) (*domain.Product, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateName(in.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidateUnitPrice("unit_price", in.UnitPrice); err != nil {
		return nil, err
	}
	if in.StockQuantity < 0 {
		return nil, domain.NewValidationError("stock_quantity", domain.ErrInvalidQuantity, "must not be negative")
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:            uc.idGen.Generate(),
		TenantID:      actor.TenantID,
		Name:          in.Name,
		UnitPrice:     domain.QuantizeMoney(in.UnitPrice),
		StockQuantity: in.StockQuantity,
		CreatedBy:     actor.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err := uc.uow.run(ctx, func(ctx context.Context, tx Transaction) error {
		if err := uc.products.Create(ctx, tx, product); err != nil {
			return err
		}
		return uc.activity.Record(ctx, tx, actor, domain.ActionCreated, product)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (uc *DirectoryUseCase) GetProduct(ctx context.Context, actor domain.Actor, id string) (*domain.Product, error) {
	product, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(product.TenantID) {
		return nil, domain.ErrProductNotFound
	}
	return product, nil
}

func (uc *DirectoryUseCase) DeleteProduct(ctx context.Context, actor domain.Actor, id string) error {
	return uc.uow.run(ctx, func(ctx context.Context, tx Transaction) error {
		product, err := uc.products.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.Owns(product.TenantID) {
			return domain.ErrProductNotFound
		}
		if err := uc.activity.Record(ctx, tx, actor, domain.ActionDeleted, product); err != nil {
			return err
		}
		return uc.products.Delete(ctx, tx, id)
	})
}

// restoreParty reinserts a deleted party with its balance as captured.
func (uc *DirectoryUseCase) restoreParty(ctx context.Context, tx Transaction, party *domain.Party) error {
	_, err := uc.parties.GetByIDForUpdate(ctx, tx, party.Target())
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s %s already exists", domain.ErrNotRestorable, party.Kind, party.ID)
	case !errors.Is(err, domain.ErrPartyNotFound):
		return err
	}
	return uc.parties.Create(ctx, tx, party)
}

func (uc *DirectoryUseCase) restoreProduct(ctx context.Context, tx Transaction, product *domain.Product) error {
	_, err := uc.products.GetByIDForUpdate(ctx, tx, product.ID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: product %s already exists", domain.ErrNotRestorable, product.ID)
	case !errors.Is(err, domain.ErrProductNotFound):
		return err
	}
	return uc.products.Create(ctx, tx, product)
}
