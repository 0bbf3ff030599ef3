package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one product line of a sale, purchase or return.
type LineItem struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"document_id"`
	ProductID  string          `json:"product_id"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// Total is quantity × unit price at money precision.
func (li LineItem) Total() decimal.Decimal {
	return QuantizeMoney(li.UnitPrice.Mul(decimal.NewFromInt(li.Quantity)))
}

// SumLines recomputes every line total and returns their sum.
func SumLines(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for i := range items {
		items[i].LineTotal = items[i].Total()
		sum = sum.Add(items[i].LineTotal)
	}
	return QuantizeMoney(sum)
}

// Counterparty references exactly one of a customer or a supplier.
type Counterparty struct {
	CustomerID string `json:"customer_id,omitempty"`
	SupplierID string `json:"supplier_id,omitempty"`
}

func (c Counterparty) Validate() error {
	if (c.CustomerID == "") == (c.SupplierID == "") {
		return NewValidationError("counterparty", ErrInvalidCounterparty, "exactly one of customer_id or supplier_id is required")
	}
	return nil
}

// Target returns the ledger target of whichever side is set.
func (c Counterparty) Target() LedgerTarget {
	if c.CustomerID != "" {
		return CustomerTarget(c.CustomerID)
	}
	return SupplierTarget(c.SupplierID)
}

// Sale raises what a customer owes, or reduces what is owed to a supplier.
type Sale struct {
	Counterparty
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	Currency        string          `json:"currency"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by"`
	Items           []LineItem      `json:"items"`
	OriginalAmount  decimal.Decimal `json:"original_amount"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
}

// Recalculate derives line totals, the original amount and the converted
// amount from the items and the stored rate.
func (s *Sale) Recalculate() {
	s.OriginalAmount = SumLines(s.Items)
	s.ConvertedAmount = Convert(s.OriginalAmount, s.ExchangeRate)
}

func (s *Sale) Postings() []Posting {
	if s.CustomerID != "" {
		return []Posting{{Target: CustomerTarget(s.CustomerID), Delta: s.ConvertedAmount}}
	}
	return []Posting{{Target: SupplierTarget(s.SupplierID), Delta: s.ConvertedAmount.Neg()}}
}

func (s *Sale) StockAdjustments() []StockAdjustment { return linesStock(s.Items, -1) }

func (s *Sale) ReturnTerms() ReturnTerms {
	return ReturnTerms{
		Counterparty: s.Counterparty,
		Currency:     s.Currency,
		ExchangeRate: s.ExchangeRate,
		Items:        s.Items,
	}
}

func (s *Sale) ActivityRef() ActivityRef { return ActivityRef{Kind: EntitySale, ID: s.ID} }

func (s *Sale) Describe() string {
	return fmt.Sprintf("sale %s of %s %s", s.ID, s.OriginalAmount.StringFixed(MoneyPlaces), s.Currency)
}

func (s *Sale) Tenant() string { return s.TenantID }

// Purchase records goods bought. When paid from a bank account only the bank
// balance moves; otherwise the counterparty balance does.
type Purchase struct {
	Counterparty
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	BankAccountID   string          `json:"bank_account_id,omitempty"`
	Currency        string          `json:"currency"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by"`
	Items           []LineItem      `json:"items"`
	OriginalAmount  decimal.Decimal `json:"original_amount"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	AccountRate     decimal.Decimal `json:"account_rate"`
	AccountAmount   decimal.Decimal `json:"account_amount"`
}

func (p *Purchase) Recalculate() {
	p.OriginalAmount = SumLines(p.Items)
	p.ConvertedAmount = Convert(p.OriginalAmount, p.ExchangeRate)
	p.AccountAmount = decimal.Zero
	if p.BankAccountID != "" {
		p.AccountAmount = Convert(p.OriginalAmount, p.AccountRate)
	}
}

func (p *Purchase) Postings() []Posting {
	switch {
	case p.BankAccountID != "":
		return []Posting{{Target: BankAccountTarget(p.BankAccountID), Delta: p.AccountAmount.Neg()}}
	case p.CustomerID != "":
		return []Posting{{Target: CustomerTarget(p.CustomerID), Delta: p.ConvertedAmount.Neg()}}
	default:
		return []Posting{{Target: SupplierTarget(p.SupplierID), Delta: p.ConvertedAmount}}
	}
}

func (p *Purchase) StockAdjustments() []StockAdjustment { return linesStock(p.Items, 1) }

func (p *Purchase) ReturnTerms() ReturnTerms {
	return ReturnTerms{
		Counterparty:  p.Counterparty,
		BankAccountID: p.BankAccountID,
		Currency:      p.Currency,
		ExchangeRate:  p.ExchangeRate,
		AccountRate:   p.AccountRate,
		Items:         p.Items,
	}
}

func (p *Purchase) ActivityRef() ActivityRef { return ActivityRef{Kind: EntityPurchase, ID: p.ID} }

func (p *Purchase) Describe() string {
	return fmt.Sprintf("purchase %s of %s %s", p.ID, p.OriginalAmount.StringFixed(MoneyPlaces), p.Currency)
}

func (p *Purchase) Tenant() string { return p.TenantID }

// Payment settles a counterparty balance through a bank account.
type Payment struct {
	Counterparty
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	BankAccountID   string          `json:"bank_account_id"`
	Currency        string          `json:"currency"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by"`
	OriginalAmount  decimal.Decimal `json:"original_amount"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	AccountRate     decimal.Decimal `json:"account_rate"`
	AccountAmount   decimal.Decimal `json:"account_amount"`
}

func (p *Payment) Recalculate() {
	p.OriginalAmount = QuantizeMoney(p.OriginalAmount)
	p.ConvertedAmount = Convert(p.OriginalAmount, p.ExchangeRate)
	p.AccountAmount = Convert(p.OriginalAmount, p.AccountRate)
}

// Postings: a customer paying in lowers what they owe and fills the bank; a
// payment out to a supplier lowers what is owed to them and drains the bank.
func (p *Payment) Postings() []Posting {
	bank := BankAccountTarget(p.BankAccountID)
	if p.CustomerID != "" {
		return []Posting{
			{Target: CustomerTarget(p.CustomerID), Delta: p.ConvertedAmount.Neg()},
			{Target: bank, Delta: p.AccountAmount},
		}
	}
	return []Posting{
		{Target: SupplierTarget(p.SupplierID), Delta: p.ConvertedAmount.Neg()},
		{Target: bank, Delta: p.AccountAmount.Neg()},
	}
}

func (p *Payment) StockAdjustments() []StockAdjustment { return nil }

func (p *Payment) ActivityRef() ActivityRef { return ActivityRef{Kind: EntityPayment, ID: p.ID} }

func (p *Payment) Describe() string {
	return fmt.Sprintf("payment %s of %s %s", p.ID, p.OriginalAmount.StringFixed(MoneyPlaces), p.Currency)
}

func (p *Payment) Tenant() string { return p.TenantID }

// Expense is money leaving a bank account, optionally against a supplier.
type Expense struct {
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	SupplierID      string          `json:"supplier_id,omitempty"`
	BankAccountID   string          `json:"bank_account_id"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description,omitempty"`
	CreatedBy       string          `json:"created_by"`
	OriginalAmount  decimal.Decimal `json:"original_amount"`
	ExchangeRate    decimal.Decimal `json:"exchange_rate"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	AccountRate     decimal.Decimal `json:"account_rate"`
	AccountAmount   decimal.Decimal `json:"account_amount"`
}

func (e *Expense) Recalculate() {
	e.OriginalAmount = QuantizeMoney(e.OriginalAmount)
	e.ConvertedAmount = decimal.Zero
	if e.SupplierID != "" {
		e.ConvertedAmount = Convert(e.OriginalAmount, e.ExchangeRate)
	}
	e.AccountAmount = Convert(e.OriginalAmount, e.AccountRate)
}

func (e *Expense) Postings() []Posting {
	ps := make([]Posting, 0, 2)
	if e.SupplierID != "" {
		ps = append(ps, Posting{Target: SupplierTarget(e.SupplierID), Delta: e.ConvertedAmount.Neg()})
	}
	return append(ps, Posting{Target: BankAccountTarget(e.BankAccountID), Delta: e.AccountAmount.Neg()})
}

func (e *Expense) StockAdjustments() []StockAdjustment { return nil }

func (e *Expense) ActivityRef() ActivityRef { return ActivityRef{Kind: EntityExpense, ID: e.ID} }

func (e *Expense) Describe() string {
	return fmt.Sprintf("expense %s of %s %s", e.ID, e.OriginalAmount.StringFixed(MoneyPlaces), e.Currency)
}

func (e *Expense) Tenant() string { return e.TenantID }
