package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
)

// ExpenseInput describes an expense to create or the new state of an existing one.
type ExpenseInput struct {
	ExchangeRate  *decimal.Decimal
	AccountRate   *decimal.Decimal
	SupplierID    string
	BankAccountID string
	Currency      string
	Description   string
	Amount        decimal.Decimal
}

// ExpenseMutator creates, updates and deletes expenses.
type ExpenseMutator struct {
	*lifecycle[*domain.Expense]
}

// NewExpenseMutator creates a new ExpenseMutator.
func NewExpenseMutator(deps MutatorDeps, expenses ExpenseRepository) *ExpenseMutator {
	return &ExpenseMutator{
		lifecycle: newLifecycle[*domain.Expense](deps, "expense", expenses),
	}
}

func (m *ExpenseMutator) Create(ctx context.Context, actor domain.Actor, in ExpenseInput) (*domain.Expense, error) {
	expense, err := m.prepare(ctx, actor, m.deps.IDGen.Generate(), in)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	expense.CreatedBy = actor.UserID
	expense.CreatedAt, expense.UpdatedAt = now, now

	if err := m.create(ctx, actor, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (m *ExpenseMutator) Update(ctx context.Context, actor domain.Actor, id string, in ExpenseInput) (*domain.Expense, error) {
	current, err := m.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	expense, err := m.prepare(ctx, actor, id, in)
	if err != nil {
		return nil, err
	}
	expense.CreatedBy, expense.CreatedAt = current.CreatedBy, current.CreatedAt
	expense.UpdatedAt = time.Now().UTC()

	if err := m.update(ctx, actor, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

func (m *ExpenseMutator) Delete(ctx context.Context, actor domain.Actor, id string) error {
	return m.remove(ctx, actor, id)
}

func (m *ExpenseMutator) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Expense, error) {
	return m.get(ctx, actor, id)
}

// prepare defaults the expense currency to the bank account's.
func (m *ExpenseMutator) prepare(ctx context.Context, actor domain.Actor, id string, in ExpenseInput) (*domain.Expense, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount("amount", in.Amount); err != nil {
		return nil, err
	}
	if in.BankAccountID == "" {
		return nil, domain.NewValidationError("bank_account_id", domain.ErrBankAccountRequired, "bank account is required")
	}
	bank, err := loadParty(ctx, m.deps.Parties, actor, domain.BankAccountTarget(in.BankAccountID))
	if err != nil {
		return nil, err
	}
	currency, err := documentCurrency(in.Currency, bank.Currency)
	if err != nil {
		return nil, err
	}
	accountRate, err := resolveRate(ctx, m.deps.Resolver, currency, bank.Currency, in.AccountRate)
	if err != nil {
		return nil, err
	}

	expense := &domain.Expense{
		ID:             id,
		TenantID:       actor.TenantID,
		SupplierID:     in.SupplierID,
		BankAccountID:  in.BankAccountID,
		Currency:       currency,
		OriginalAmount: in.Amount,
		AccountRate:    accountRate,
		Description:    in.Description,
	}

	if in.SupplierID != "" {
		supplier, err := loadParty(ctx, m.deps.Parties, actor, domain.SupplierTarget(in.SupplierID))
		if err != nil {
			return nil, err
		}
		expense.ExchangeRate, err = resolveRate(ctx, m.deps.Resolver, currency, supplier.Currency, in.ExchangeRate)
		if err != nil {
			return nil, err
		}
	}

	expense.Recalculate()
	return expense, nil
}
