package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
)

// LineItemInput is one requested document line.
type LineItemInput struct {
	ProductID string
	Quantity  int64
	UnitPrice decimal.Decimal
}

// loadParty fetches a referenced party outside the transaction. A missing
// or foreign party is a validation error.
func loadParty(ctx context.Context, parties PartyRepository, actor domain.Actor, target domain.LedgerTarget) (*domain.Party, error) {
	party, err := parties.GetByID(ctx, target)
	if err == nil && !actor.Owns(party.TenantID) {
		err = domain.ErrPartyNotFound
	}
	if err != nil {
		if errors.Is(err, domain.ErrPartyNotFound) {
			return nil, domain.NewValidationError(string(target.Kind)+"_id", err, "%s %s not found", target.Kind, target.ID)
		}
		return nil, err
	}
	return party, nil
}

// buildItems validates the requested lines and turns them into line items
// with computed totals.
func buildItems(ctx context.Context, products ProductRepository, idGen IDGenerator, actor domain.Actor, docID string, inputs []LineItemInput) ([]domain.LineItem, error) {
	if len(inputs) == 0 {
		return nil, domain.NewValidationError("items", domain.ErrEmptyDocument, "at least one line item is required")
	}

	items := make([]domain.LineItem, 0, len(inputs))
	for i, in := range inputs {
		field := fmt.Sprintf("items[%d]", i)
		if err := domain.ValidateQuantity(field+".quantity", in.Quantity); err != nil {
			return nil, err
		}
		if err := domain.ValidateUnitPrice(field+".unit_price", in.UnitPrice); err != nil {
			return nil, err
		}

		product, err := products.GetByID(ctx, in.ProductID)
		if err == nil && !actor.Owns(product.TenantID) {
			err = domain.ErrProductNotFound
		}
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return nil, domain.NewValidationError(field+".product_id", err, "product %s not found", in.ProductID)
			}
			return nil, err
		}

		item := domain.LineItem{
			ID:         idGen.Generate(),
			DocumentID: docID,
			ProductID:  product.ID,
			Quantity:   in.Quantity,
			UnitPrice:  domain.QuantizeMoney(in.UnitPrice),
		}
		item.LineTotal = item.Total()
		items = append(items, item)
	}
	return items, nil
}

// documentCurrency defaults an empty request currency to fallback.
func documentCurrency(requested, fallback string) (string, error) {
	currency := domain.NormalizeCurrency(requested)
	if currency == "" {
		currency = fallback
	}
	if err := domain.ValidateCurrency(currency); err != nil {
		return "", err
	}
	return currency, nil
}

// resolveRate converts from→to, turning a resolver failure that is not
// already classified into ErrRateUnavailable.
func resolveRate(ctx context.Context, resolver CurrencyResolver, from, to string, manual *decimal.Decimal) (decimal.Decimal, error) {
	if manual != nil && manual.IsNegative() {
		return decimal.Zero, domain.NewValidationError("exchange_rate", domain.ErrInvalidAmount, "must not be negative")
	}
	rate, err := resolver.Resolve(ctx, from, to, manual)
	if err != nil {
		if errors.Is(err, domain.ErrRateUnavailable) || errors.Is(err, domain.ErrValidation) {
			return decimal.Zero, err
		}
		return decimal.Zero, fmt.Errorf("%w: %w", domain.ErrRateUnavailable, err)
	}
	return rate, nil
}
