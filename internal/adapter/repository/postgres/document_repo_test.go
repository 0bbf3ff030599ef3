package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/tradeledger/internal/domain"
)

var itemCols = []string{"id", "document_id", "product_id", "quantity", "unit_price", "line_total"}

func sampleSale(now time.Time) *domain.Sale {
	return &domain.Sale{
		Counterparty: domain.Counterparty{CustomerID: "c-1"},
		ID:           "s-1", TenantID: "t-1", Currency: "USD", CreatedBy: "u-1",
		CreatedAt: now, UpdatedAt: now,
		Items: []domain.LineItem{
			{ID: "li-1", DocumentID: "s-1", ProductID: "p-1", Quantity: 2, UnitPrice: decimal.NewFromInt(10), LineTotal: decimal.NewFromInt(20)},
			{ID: "li-2", DocumentID: "s-1", ProductID: "p-2", Quantity: 1, UnitPrice: decimal.NewFromInt(5), LineTotal: decimal.NewFromInt(5)},
		},
		OriginalAmount:  decimal.NewFromInt(25),
		ExchangeRate:    decimal.NewFromInt(1),
		ConvertedAmount: decimal.NewFromInt(25),
	}
}

func TestSaleRepositoryCreateWritesItems(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	now := time.Now().UTC()
	sale := sampleSale(now)

	pool.ExpectExec(`INSERT INTO sales`).
		WithArgs("s-1", "t-1", "c-1", nil, "USD",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "", "u-1", now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(`INSERT INTO sale_items \(id, sale_id,`).
		WithArgs("li-1", "s-1", "p-1", int64(2), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(`INSERT INTO sale_items`).
		WithArgs("li-2", "s-1", "p-2", int64(1), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewSaleRepository(pool).Create(context.Background(), tx, sale))
	assertExpectations(t, pool)
}

func TestSaleRepositoryCreateMissingProduct(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	now := time.Now().UTC()

	pool.ExpectExec(`INSERT INTO sales`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec(`INSERT INTO sale_items`).
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "sale_items_product_id_fkey"})

	err := NewSaleRepository(pool).Create(context.Background(), tx, sampleSale(now))
	assert.ErrorIs(t, err, domain.ErrReferenceViolation)
}

func TestSaleRepositoryGetByIDLoadsItems(t *testing.T) {
	pool := newMockPool(t)
	now := time.Now().UTC()
	cols := []string{"id", "tenant_id", "customer_id", "supplier_id", "currency",
		"original_amount", "exchange_rate", "converted_amount", "notes", "created_by", "created_at", "updated_at"}

	pool.ExpectQuery(`FROM sales WHERE id = \$1`).
		WithArgs("s-1").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("s-1", "t-1", "", "sup-1", "EUR", "25.00", "1.087000", "27.18", "", "u-1", now, now))
	pool.ExpectQuery(`FROM sale_items WHERE sale_id = \$1 ORDER BY id`).
		WithArgs("s-1").
		WillReturnRows(pgxmock.NewRows(itemCols).
			AddRow("li-1", "s-1", "p-1", int64(2), "10.00", "20.00").
			AddRow("li-2", "s-1", "p-2", int64(1), "5.00", "5.00"))

	sale, err := NewSaleRepository(pool).GetByID(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "sup-1", sale.SupplierID)
	assert.Empty(t, sale.CustomerID)
	assert.Equal(t, "1.087", sale.ExchangeRate.String())
	require.Len(t, sale.Items, 2)
	assert.Equal(t, int64(2), sale.Items[0].Quantity)
	assertExpectations(t, pool)
}

func TestSaleRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery(`FROM sales`).WillReturnError(pgx.ErrNoRows)

	_, err := NewSaleRepository(pool).GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestPurchaseRepositoryUpdateReplacesItems(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	now := time.Now().UTC()
	purchase := &domain.Purchase{
		Counterparty:  domain.Counterparty{SupplierID: "sup-1"},
		ID:            "pu-1",
		BankAccountID: "b-1",
		Currency:      "USD",
		UpdatedAt:     now,
		Items: []domain.LineItem{
			{ID: "li-9", ProductID: "p-1", Quantity: 3, UnitPrice: decimal.NewFromInt(2), LineTotal: decimal.NewFromInt(6)},
		},
	}

	pool.ExpectExec(`UPDATE purchases SET`).
		WithArgs("pu-1", nil, "sup-1", "b-1", "USD",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec(`DELETE FROM purchase_items WHERE purchase_id = \$1`).
		WithArgs("pu-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	pool.ExpectExec(`INSERT INTO purchase_items`).
		WithArgs("li-9", "pu-1", "p-1", int64(3), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewPurchaseRepository(pool).Update(context.Background(), tx, purchase))
	assertExpectations(t, pool)
}

func TestPaymentRepositoryUpdateMissing(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectExec(`UPDATE payments SET`).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewPaymentRepository(pool).Update(context.Background(), tx, &domain.Payment{ID: "pay-x"})
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestExpenseRepositoryGetByIDForUpdate(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	now := time.Now().UTC()
	cols := []string{"id", "tenant_id", "supplier_id", "bank_account_id", "currency", "original_amount",
		"exchange_rate", "converted_amount", "account_rate", "account_amount", "description", "created_by", "created_at", "updated_at"}

	pool.ExpectQuery(`FROM expenses WHERE id = \$1 FOR UPDATE`).
		WithArgs("e-1").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("e-1", "t-1", "", "b-1", "USD", "45.56", "0", "0", "1.000000", "45.56", "rent", "u-1", now, now))

	expense, err := NewExpenseRepository(pool).GetByIDForUpdate(context.Background(), tx, "e-1")
	require.NoError(t, err)
	assert.Empty(t, expense.SupplierID)
	assert.Equal(t, "rent", expense.Description)
	assert.Equal(t, "45.56", expense.AccountAmount.StringFixed(2))
	assertExpectations(t, pool)
}

func TestReturnRepositoryGetByIDCommitted(t *testing.T) {
	pool := newMockPool(t)
	now := time.Now().UTC()
	cols := []string{"id", "tenant_id", "kind", "source_id", "customer_id", "supplier_id", "bank_account_id",
		"currency", "total_amount", "exchange_rate", "converted_amount", "account_rate", "account_amount",
		"committed", "committed_at", "notes", "created_by", "created_at", "updated_at"}

	pool.ExpectQuery(`FROM returns WHERE id = \$1`).
		WithArgs("r-1").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("r-1", "t-1", "sale_return", "s-1", "c-1", "", "",
				"USD", "10.00", "1.000000", "10.00", "0", "0",
				true, &now, "", "u-1", now, now))
	pool.ExpectQuery(`FROM return_items WHERE return_id = \$1`).
		WithArgs("r-1").
		WillReturnRows(pgxmock.NewRows(itemCols).AddRow("ri-1", "r-1", "p-1", int64(1), "10.00", "10.00"))

	ret, err := NewReturnRepository(pool).GetByID(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SaleReturn, ret.Kind)
	assert.True(t, ret.Committed)
	require.NotNil(t, ret.CommittedAt)
	assert.Len(t, ret.Items, 1)
	assertExpectations(t, pool)
}

func TestReturnRepositoryShellHasNoCommitTime(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	now := time.Now().UTC()
	shell := &domain.Return{
		ID: "r-2", TenantID: "t-1", Kind: domain.PurchaseReturn, SourceID: "pu-1",
		CreatedBy: "u-1", CreatedAt: now, UpdatedAt: now,
	}

	pool.ExpectExec(`INSERT INTO returns`).
		WithArgs("r-2", "t-1", "purchase_return", "pu-1", nil, nil, nil,
			"", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			false, (*time.Time)(nil), "", "u-1", now, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewReturnRepository(pool).Create(context.Background(), tx, shell))
	assertExpectations(t, pool)
}

func TestReturnRepositoryCountBySource(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectQuery(`SELECT COUNT\(\*\) FROM returns WHERE kind = \$1 AND source_id = \$2`).
		WithArgs("sale_return", "s-1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(2))

	n, err := NewReturnRepository(pool).CountBySource(context.Background(), tx, domain.SaleReturn, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assertExpectations(t, pool)
}

func TestReturnRepositoryReturnedQuantities(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectQuery(`FROM return_items ri\s+JOIN returns r ON r.id = ri.return_id\s+WHERE r.kind = \$1 AND r.source_id = \$2 AND r.committed AND r.id <> \$3`).
		WithArgs("purchase_return", "pu-1", "r-9").
		WillReturnRows(pgxmock.NewRows([]string{"product_id", "sum"}).
			AddRow("p-1", int64(3)).
			AddRow("p-2", int64(1)))

	got, err := NewReturnRepository(pool).ReturnedQuantities(context.Background(), tx, domain.PurchaseReturn, "pu-1", "r-9")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"p-1": 3, "p-2": 1}, got)
	assertExpectations(t, pool)
}

func TestReturnRepositoryReturnedQuantitiesLockTimeout(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectQuery(`FROM return_items`).WillReturnError(&pgconn.PgError{Code: pgErrLockNotAvailable})

	_, err := NewReturnRepository(pool).ReturnedQuantities(context.Background(), tx, domain.SaleReturn, "s-1", "")
	assert.ErrorIs(t, err, domain.ErrConcurrencyTimeout)
}

func TestProductRepositoryUpdateStock(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	now := time.Now().UTC()
	pool.ExpectExec(`UPDATE products SET stock_quantity = \$2`).
		WithArgs("p-1", int64(4), now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, NewProductRepository(pool).UpdateStock(context.Background(), tx, "p-1", 4, now))
	assertExpectations(t, pool)
}

func TestProductRepositoryGetByID(t *testing.T) {
	pool := newMockPool(t)
	now := time.Now().UTC()
	pool.ExpectQuery(`FROM products WHERE id = \$1`).
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "tenant_id", "name", "unit_price", "stock_quantity", "created_by", "created_at", "updated_at"}).
			AddRow("p-1", "t-1", "Widget", "12.50", int64(8), "u-1", now, now))

	p, err := NewProductRepository(pool).GetByID(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, int64(8), p.StockQuantity)
	assert.Equal(t, "12.5", p.UnitPrice.String())
}
