package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
)

// ConvertedAmount is a document's amount in its own and its counterparty's currency.
type ConvertedAmount struct {
	Document        domain.ActivityRef
	Currency        string
	OriginalAmount  decimal.Decimal
	ExchangeRate    decimal.Decimal
	ConvertedAmount decimal.Decimal
	AccountAmount   decimal.Decimal
}

// LedgerQueryUseCase serves read-only balance and document queries.
type LedgerQueryUseCase struct {
	parties   PartyRepository
	movements MovementRepository
	sales     *SaleMutator
	purchases *PurchaseMutator
	payments  *PaymentMutator
	expenses  *ExpenseMutator
	returns   *ReturnMutator
}

// NewLedgerQueryUseCase creates a new LedgerQueryUseCase.
func NewLedgerQueryUseCase(
	parties PartyRepository,
	movements MovementRepository,
	sales *SaleMutator,
	purchases *PurchaseMutator,
	payments *PaymentMutator,
	expenses *ExpenseMutator,
	returns *ReturnMutator,
) *LedgerQueryUseCase {
	return &LedgerQueryUseCase{
		parties:   parties,
		movements: movements,
		sales:     sales,
		purchases: purchases,
		payments:  payments,
		expenses:  expenses,
		returns:   returns,
	}
}

// GetBalance returns the party and its current balance.
func (uc *LedgerQueryUseCase) GetBalance(ctx context.Context, actor domain.Actor, target domain.LedgerTarget) (*domain.Party, error) {
	if !target.Kind.Valid() {
		return nil, domain.NewValidationError("kind", domain.ErrValidation, "unknown ledger kind %q", target.Kind)
	}
	party, err := uc.parties.GetByID(ctx, target)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(party.TenantID) {
		return nil, domain.ErrPartyNotFound
	}
	return party, nil
}

// ListMovements returns a page of a party's balance journal, newest first.
func (uc *LedgerQueryUseCase) ListMovements(ctx context.Context, actor domain.Actor, target domain.LedgerTarget, limit, offset int) ([]*domain.Movement, error) {
	if _, err := uc.GetBalance(ctx, actor, target); err != nil {
		return nil, err
	}
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.movements.ListByEntity(ctx, target, limit, offset)
}

// GetConvertedAmount reports how a document's amount was converted.
func (uc *LedgerQueryUseCase) GetConvertedAmount(ctx context.Context, actor domain.Actor, ref domain.ActivityRef) (*ConvertedAmount, error) {
	switch ref.Kind {
	case domain.EntitySale:
		s, err := uc.sales.Get(ctx, actor, ref.ID)
		if err != nil {
			return nil, err
		}
		return &ConvertedAmount{Document: ref, Currency: s.Currency, OriginalAmount: s.OriginalAmount, ExchangeRate: s.ExchangeRate, ConvertedAmount: s.ConvertedAmount}, nil
	case domain.EntityPurchase:
		p, err := uc.purchases.Get(ctx, actor, ref.ID)
		if err != nil {
			return nil, err
		}
		return &ConvertedAmount{Document: ref, Currency: p.Currency, OriginalAmount: p.OriginalAmount, ExchangeRate: p.ExchangeRate, ConvertedAmount: p.ConvertedAmount, AccountAmount: p.AccountAmount}, nil
	case domain.EntityPayment:
		p, err := uc.payments.Get(ctx, actor, ref.ID)
		if err != nil {
			return nil, err
		}
		return &ConvertedAmount{Document: ref, Currency: p.Currency, OriginalAmount: p.OriginalAmount, ExchangeRate: p.ExchangeRate, ConvertedAmount: p.ConvertedAmount, AccountAmount: p.AccountAmount}, nil
	case domain.EntityExpense:
		e, err := uc.expenses.Get(ctx, actor, ref.ID)
		if err != nil {
			return nil, err
		}
		return &ConvertedAmount{Document: ref, Currency: e.Currency, OriginalAmount: e.OriginalAmount, ExchangeRate: e.ExchangeRate, ConvertedAmount: e.ConvertedAmount, AccountAmount: e.AccountAmount}, nil
	case domain.EntitySaleReturn, domain.EntityPurchaseReturn:
		r, err := uc.returns.Get(ctx, actor, ref.ID)
		if err != nil {
			return nil, err
		}
		if domain.EntityKind(r.Kind) != ref.Kind {
			return nil, domain.ErrDocumentNotFound
		}
		return &ConvertedAmount{Document: ref, Currency: r.Currency, OriginalAmount: r.TotalAmount, ExchangeRate: r.ExchangeRate, ConvertedAmount: r.ConvertedAmount, AccountAmount: r.AccountAmount}, nil
	}
	return nil, domain.NewValidationError("kind", domain.ErrValidation, "%q is not a document kind", ref.Kind)
}
