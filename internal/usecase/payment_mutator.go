package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
)

// PaymentInput describes a payment to create or the new state of an existing one.
type PaymentInput struct {
	ExchangeRate  *decimal.Decimal
	AccountRate   *decimal.Decimal
	CustomerID    string
	SupplierID    string
	BankAccountID string
	Currency      string
	Notes         string
	Amount        decimal.Decimal
}

// PaymentMutator creates, updates and deletes payments.
type PaymentMutator struct {
	*lifecycle[*domain.Payment]
}

// NewPaymentMutator creates a new PaymentMutator.
func NewPaymentMutator(deps MutatorDeps, payments PaymentRepository) *PaymentMutator {
	return &PaymentMutator{
		lifecycle: newLifecycle[*domain.Payment](deps, "payment", payments),
	}
}

func (m *PaymentMutator) Create(ctx context.Context, actor domain.Actor, in PaymentInput) (*domain.Payment, error) {
	payment, err := m.prepare(ctx, actor, m.deps.IDGen.Generate(), in)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	payment.CreatedBy = actor.UserID
	payment.CreatedAt, payment.UpdatedAt = now, now

	if err := m.create(ctx, actor, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (m *PaymentMutator) Update(ctx context.Context, actor domain.Actor, id string, in PaymentInput) (*domain.Payment, error) {
	current, err := m.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	payment, err := m.prepare(ctx, actor, id, in)
	if err != nil {
		return nil, err
	}
	payment.CreatedBy, payment.CreatedAt = current.CreatedBy, current.CreatedAt
	payment.UpdatedAt = time.Now().UTC()

	if err := m.update(ctx, actor, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (m *PaymentMutator) Delete(ctx context.Context, actor domain.Actor, id string) error {
	return m.remove(ctx, actor, id)
}

func (m *PaymentMutator) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Payment, error) {
	return m.get(ctx, actor, id)
}

func (m *PaymentMutator) prepare(ctx context.Context, actor domain.Actor, id string, in PaymentInput) (*domain.Payment, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount("amount", in.Amount); err != nil {
		return nil, err
	}
	cp := domain.Counterparty{CustomerID: in.CustomerID, SupplierID: in.SupplierID}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	if in.BankAccountID == "" {
		return nil, domain.NewValidationError("bank_account_id", domain.ErrBankAccountRequired, "bank account is required")
	}
	party, err := loadParty(ctx, m.deps.Parties, actor, cp.Target())
	if err != nil {
		return nil, err
	}
	bank, err := loadParty(ctx, m.deps.Parties, actor, domain.BankAccountTarget(in.BankAccountID))
	if err != nil {
		return nil, err
	}
	currency, err := documentCurrency(in.Currency, party.Currency)
	if err != nil {
		return nil, err
	}
	rate, err := resolveRate(ctx, m.deps.Resolver, currency, party.Currency, in.ExchangeRate)
	if err != nil {
		return nil, err
	}
	accountRate, err := resolveRate(ctx, m.deps.Resolver, currency, bank.Currency, in.AccountRate)
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ID:             id,
		TenantID:       actor.TenantID,
		Counterparty:   cp,
		BankAccountID:  in.BankAccountID,
		Currency:       currency,
		OriginalAmount: in.Amount,
		ExchangeRate:   rate,
		AccountRate:    accountRate,
		Notes:          in.Notes,
	}
	payment.Recalculate()
	return payment, nil
}
