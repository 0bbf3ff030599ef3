package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerKind identifies an entity that carries a running balance.
type LedgerKind string

const (
	LedgerCustomer    LedgerKind = "customer"
	LedgerSupplier    LedgerKind = "supplier"
	LedgerBankAccount LedgerKind = "bank_account"
)

// Valid reports whether k is one of the known ledger kinds.
func (k LedgerKind) Valid() bool {
	switch k {
	case LedgerCustomer, LedgerSupplier, LedgerBankAccount:
		return true
	}
	return false
}

// BalanceField is the name of the column holding the running balance.
func (k LedgerKind) BalanceField() string {
	if k == LedgerBankAccount {
		return "balance"
	}
	return "open_balance"
}

// EntityKind maps the ledger kind onto the activity entity kind.
func (k LedgerKind) EntityKind() EntityKind {
	return EntityKind(k)
}

// lockRank orders kinds for lock acquisition: counterparties before bank accounts.
func (k LedgerKind) lockRank() int {
	switch k {
	case LedgerCustomer:
		return 0
	case LedgerSupplier:
		return 1
	default:
		return 2
	}
}

// LedgerTarget addresses the balance of a single party row.
type LedgerTarget struct {
	Kind LedgerKind
	ID   string
}

func (t LedgerTarget) String() string {
	return fmt.Sprintf("%s/%s", t.Kind, t.ID)
}

// CustomerTarget returns the ledger target of a customer.
func CustomerTarget(id string) LedgerTarget { return LedgerTarget{Kind: LedgerCustomer, ID: id} }

// SupplierTarget returns the ledger target of a supplier.
func SupplierTarget(id string) LedgerTarget { return LedgerTarget{Kind: LedgerSupplier, ID: id} }

// BankAccountTarget returns the ledger target of a bank account.
func BankAccountTarget(id string) LedgerTarget { return LedgerTarget{Kind: LedgerBankAccount, ID: id} }

// Party is a customer, supplier or bank account. Customers and suppliers keep
// their balance in open_balance, bank accounts in balance.
type Party struct {
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Kind      LedgerKind      `json:"kind"`
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	Name      string          `json:"name"`
	Currency  string          `json:"currency"`
	CreatedBy string          `json:"created_by"`
	Balance   decimal.Decimal `json:"balance"`
}

// Target returns the ledger target for the party.
func (p *Party) Target() LedgerTarget {
	return LedgerTarget{Kind: p.Kind, ID: p.ID}
}

func (p *Party) ActivityRef() ActivityRef {
	return ActivityRef{Kind: p.Kind.EntityKind(), ID: p.ID}
}

func (p *Party) Describe() string {
	return fmt.Sprintf("%s %q (%s)", p.Kind, p.Name, p.Currency)
}

// Product is a stocked item referenced by line items.
type Product struct {
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	Name          string          `json:"name"`
	CreatedBy     string          `json:"created_by"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int64           `json:"stock_quantity"`
}

func (p *Product) ActivityRef() ActivityRef {
	return ActivityRef{Kind: EntityProduct, ID: p.ID}
}

func (p *Product) Describe() string {
	return fmt.Sprintf("product %q", p.Name)
}
