package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

// ExpenseRepository implements usecase.ExpenseRepository.
type ExpenseRepository struct {
	db querier
}

func NewExpenseRepository(db querier) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseSelect = `
	SELECT id, tenant_id, COALESCE(supplier_id, ''), bank_account_id,
	       currency, original_amount, exchange_rate, converted_amount, account_rate, account_amount,
	       description, created_by, created_at, updated_at
	FROM expenses WHERE id = $1`

func (r *ExpenseRepository) Create(ctx context.Context, tx usecase.Transaction, e *domain.Expense) error {
	_, err := inTx(tx).Exec(ctx, `
		INSERT INTO expenses (
			id, tenant_id, supplier_id, bank_account_id,
			currency, original_amount, exchange_rate, converted_amount, account_rate, account_amount,
			description, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.TenantID, nullable(e.SupplierID), e.BankAccountID,
		e.Currency, e.OriginalAmount, e.ExchangeRate, e.ConvertedAmount, e.AccountRate, e.AccountAmount,
		e.Description, e.CreatedBy, e.CreatedAt, e.UpdatedAt,
	)
	return mapError(err)
}

func (r *ExpenseRepository) Update(ctx context.Context, tx usecase.Transaction, e *domain.Expense) error {
	return execOne(ctx, inTx(tx), domain.ErrDocumentNotFound, `
		UPDATE expenses SET
			supplier_id = $2, bank_account_id = $3, currency = $4,
			original_amount = $5, exchange_rate = $6, converted_amount = $7,
			account_rate = $8, account_amount = $9, description = $10, updated_at = $11
		WHERE id = $1`,
		e.ID, nullable(e.SupplierID), e.BankAccountID, e.Currency,
		e.OriginalAmount, e.ExchangeRate, e.ConvertedAmount,
		e.AccountRate, e.AccountAmount, e.Description, e.UpdatedAt,
	)
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*domain.Expense, error) {
	return scanExpense(r.db.QueryRow(ctx, expenseSelect, id))
}

func (r *ExpenseRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Expense, error) {
	return scanExpense(inTx(tx).QueryRow(ctx, expenseSelect+` FOR UPDATE`, id))
}

func (r *ExpenseRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	return execOne(ctx, inTx(tx), domain.ErrDocumentNotFound, `DELETE FROM expenses WHERE id = $1`, id)
}

func scanExpense(row pgx.Row) (*domain.Expense, error) {
	var e domain.Expense
	err := row.Scan(
		&e.ID, &e.TenantID, &e.SupplierID, &e.BankAccountID,
		&e.Currency, &e.OriginalAmount, &e.ExchangeRate, &e.ConvertedAmount, &e.AccountRate, &e.AccountAmount,
		&e.Description, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, domain.ErrDocumentNotFound)
	}
	return &e, nil
}
