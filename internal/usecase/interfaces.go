package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
)

// PartyRepository defines data access for customers, suppliers and bank accounts.
type PartyRepository interface {
	Create(ctx context.Context, tx Transaction, party *domain.Party) error
	GetByID(ctx context.Context, target domain.LedgerTarget) (*domain.Party, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, target domain.LedgerTarget) (*domain.Party, error)
	UpdateBalance(ctx context.Context, tx Transaction, target domain.LedgerTarget, balance decimal.Decimal, updatedAt time.Time) error
	Delete(ctx context.Context, tx Transaction, target domain.LedgerTarget) error
	List(ctx context.Context, kind domain.LedgerKind, limit, offset int) ([]*domain.Party, error)
}

// MovementRepository defines data access for the balance journal.
type MovementRepository interface {
	Create(ctx context.Context, tx Transaction, movement *domain.Movement) error
	ListByEntity(ctx context.Context, target domain.LedgerTarget, limit, offset int) ([]*domain.Movement, error)
	SumByEntity(ctx context.Context, target domain.LedgerTarget) (decimal.Decimal, error)
}

// ProductRepository defines data access for products.
type ProductRepository interface {
	Create(ctx context.Context, tx Transaction, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Product, error)
	UpdateStock(ctx context.Context, tx Transaction, id string, quantity int64, updatedAt time.Time) error
	Delete(ctx context.Context, tx Transaction, id string) error
}

// SaleRepository defines data access for sales and their line items.
type SaleRepository interface {
	Create(ctx context.Context, tx Transaction, sale *domain.Sale) error
	Update(ctx context.Context, tx Transaction, sale *domain.Sale) error
	GetByID(ctx context.Context, id string) (*domain.Sale, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Sale, error)
	Delete(ctx context.Context, tx Transaction, id string) error
}

// PurchaseRepository defines data access for purchases and their line items.
type PurchaseRepository interface {
	Create(ctx context.Context, tx Transaction, purchase *domain.Purchase) error
	Update(ctx context.Context, tx Transaction, purchase *domain.Purchase) error
	GetByID(ctx context.Context, id string) (*domain.Purchase, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Purchase, error)
	Delete(ctx context.Context, tx Transaction, id string) error
}

// PaymentRepository defines data access for payments.
type PaymentRepository interface {
	Create(ctx context.Context, tx Transaction, payment *domain.Payment) error
	Update(ctx context.Context, tx Transaction, payment *domain.Payment) error
	GetByID(ctx context.Context, id string) (*domain.Payment, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Payment, error)
	Delete(ctx context.Context, tx Transaction, id string) error
}

// ExpenseRepository defines data access for expenses.
type ExpenseRepository interface {
	Create(ctx context.Context, tx Transaction, expense *domain.Expense) error
	Update(ctx context.Context, tx Transaction, expense *domain.Expense) error
	GetByID(ctx context.Context, id string) (*domain.Expense, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Expense, error)
	Delete(ctx context.Context, tx Transaction, id string) error
}

// ReturnRepository defines data access for sale and purchase returns.
type ReturnRepository interface {
	Create(ctx context.Context, tx Transaction, ret *domain.Return) error
	Update(ctx context.Context, tx Transaction, ret *domain.Return) error
	GetByID(ctx context.Context, id string) (*domain.Return, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Return, error)
	Delete(ctx context.Context, tx Transaction, id string) error
	CountBySource(ctx context.Context, tx Transaction, kind domain.ReturnKind, sourceID string) (int, error)
	// ReturnedQuantities sums, per product, the quantities committed returns
	// of sourceID have taken back, leaving out the return excludeID.
	ReturnedQuantities(ctx context.Context, tx Transaction, kind domain.ReturnKind, sourceID, excludeID string) (map[string]int64, error)
}

// ActivityRepository defines data access for the activity log.
type ActivityRepository interface {
	Create(ctx context.Context, tx Transaction, activity *domain.Activity) error
	GetByID(ctx context.Context, id string) (*domain.Activity, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Activity, error)
	MarkRestored(ctx context.Context, tx Transaction, id, description string, restoredAt time.Time) error
	List(ctx context.Context, filter domain.ActivityFilter) ([]*domain.Activity, error)
}
