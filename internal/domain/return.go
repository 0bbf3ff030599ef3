package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReturnKind distinguishes returns of sales from returns of purchases.
type ReturnKind string

const (
	SaleReturn     ReturnKind = "sale_return"
	PurchaseReturn ReturnKind = "purchase_return"
)

func (k ReturnKind) Valid() bool {
	return k == SaleReturn || k == PurchaseReturn
}

// SourceKind is the entity kind of the document a return reverses.
func (k ReturnKind) SourceKind() EntityKind {
	if k == SaleReturn {
		return EntitySale
	}
	return EntityPurchase
}

// ReturnTerms are the parts of a source document a return inherits on commit.
type ReturnTerms struct {
	Counterparty
	BankAccountID string
	Currency      string
	ExchangeRate  decimal.Decimal
	AccountRate   decimal.Decimal
	Items         []LineItem
}

// Less returns a copy of t with the quantities in returned taken off its
// lines, never going below zero.
func (t ReturnTerms) Less(returned map[string]int64) ReturnTerms {
	if len(returned) == 0 {
		return t
	}
	left := make(map[string]int64, len(returned))
	for productID, qty := range returned {
		left[productID] = qty
	}
	items := make([]LineItem, len(t.Items))
	for i, it := range t.Items {
		take := min(it.Quantity, left[it.ProductID])
		it.Quantity -= take
		left[it.ProductID] -= take
		items[i] = it
	}
	t.Items = items
	return t
}

// ReturnSource is a document that can be returned.
type ReturnSource interface {
	ReturnTerms() ReturnTerms
	Tenant() string
}

// Return reverses part of a sale or purchase. It is created as an uncommitted
// shell and only touches balances and stock once committed.
type Return struct {
	Counterparty
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CommittedAt     *time.Time      `json:"committed_at,omitempty"`
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	Kind            ReturnKind      `json:"kind"`
	SourceID        string          `json:"source_id"`
	BankAccountID   string          `json:"bank_account_id,omitempty"`
	Currency        string          `json:"currency"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by"`
	Items           []LineItem      `json:"items"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	AccountRate     decimal.Decimal `json:"account_rate"`
	AccountAmount   decimal.Decimal `json:"account_amount"`
	Committed       bool            `json:"committed"`
}

// CheckItems verifies every returned line exists on the source with at
// least the returned quantity.
func CheckItems(items []LineItem, terms ReturnTerms) error {
	available := make(map[string]int64, len(terms.Items))
	for _, it := range terms.Items {
		available[it.ProductID] += it.Quantity
	}
	requested := make(map[string]int64, len(items))
	for _, it := range items {
		requested[it.ProductID] += it.Quantity
	}
	for productID, qty := range requested {
		if qty > available[productID] {
			return NewValidationError("items", ErrReturnExceedsSource,
				"product %s: returning %d of %d", productID, qty, available[productID])
		}
	}
	return nil
}

// CheckCoversReturned verifies that edited source lines still hold at least
// the quantities committed returns have already taken back.
func CheckCoversReturned(items []LineItem, returned map[string]int64) error {
	held := make(map[string]int64, len(items))
	for _, it := range items {
		held[it.ProductID] += it.Quantity
	}
	for productID, qty := range returned {
		if held[productID] < qty {
			return NewValidationError("items", ErrReturnExceedsSource,
				"product %s: %d already returned, cannot reduce to %d", productID, qty, held[productID])
		}
	}
	return nil
}

// PriceFromSource fills unit prices from the matching source lines.
func PriceFromSource(items []LineItem, terms ReturnTerms) {
	prices := make(map[string]decimal.Decimal, len(terms.Items))
	for _, it := range terms.Items {
		if _, ok := prices[it.ProductID]; !ok {
			prices[it.ProductID] = it.UnitPrice
		}
	}
	for i := range items {
		items[i].UnitPrice = prices[items[i].ProductID]
	}
}

// Commit captures the source's counterparty and rates and computes the
// return amounts. terms carry the quantities still returnable. It does not
// touch any balance.
func (r *Return) Commit(terms ReturnTerms, at time.Time) error {
	if r.Committed {
		return NewValidationError("return", ErrReturnAlreadyCommitted, "return %s already committed", r.ID)
	}
	if err := r.apply(terms); err != nil {
		return err
	}
	r.Committed = true
	r.CommittedAt = &at
	return nil
}

// Reprice recomputes a committed return against its source after an edit.
func (r *Return) Reprice(terms ReturnTerms) error {
	if !r.Committed {
		r.TotalAmount = SumLines(r.Items)
		return nil
	}
	return r.apply(terms)
}

func (r *Return) apply(terms ReturnTerms) error {
	if len(r.Items) == 0 {
		return NewValidationError("items", ErrEmptyDocument, "return has no line items")
	}
	if err := CheckItems(r.Items, terms); err != nil {
		return err
	}
	r.Counterparty = terms.Counterparty
	r.BankAccountID = terms.BankAccountID
	r.Currency = terms.Currency
	r.ExchangeRate = terms.ExchangeRate
	r.AccountRate = terms.AccountRate
	r.TotalAmount = SumLines(r.Items)
	r.ConvertedAmount = Convert(r.TotalAmount, r.ExchangeRate)
	r.AccountAmount = decimal.Zero
	if r.BankAccountID != "" {
		r.AccountAmount = Convert(r.TotalAmount, r.AccountRate)
	}
	return nil
}

// Postings undo the returned share of the source document's postings.
func (r *Return) Postings() []Posting {
	if !r.Committed {
		return nil
	}
	if r.Kind == SaleReturn {
		share := Sale{Counterparty: r.Counterparty, ConvertedAmount: r.ConvertedAmount}
		return NegatePostings(share.Postings())
	}
	share := Purchase{
		Counterparty:    r.Counterparty,
		BankAccountID:   r.BankAccountID,
		ConvertedAmount: r.ConvertedAmount,
		AccountAmount:   r.AccountAmount,
	}
	return NegatePostings(share.Postings())
}

func (r *Return) StockAdjustments() []StockAdjustment {
	if !r.Committed {
		return nil
	}
	if r.Kind == SaleReturn {
		return linesStock(r.Items, 1)
	}
	return linesStock(r.Items, -1)
}

func (r *Return) ActivityRef() ActivityRef {
	return ActivityRef{Kind: EntityKind(r.Kind), ID: r.ID}
}

func (r *Return) Describe() string {
	return fmt.Sprintf("%s %s of %s", r.Kind, r.ID, r.SourceID)
}

func (r *Return) Tenant() string { return r.TenantID }
