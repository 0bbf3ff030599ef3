package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

// PaymentRepository implements usecase.PaymentRepository.
type PaymentRepository struct {
	db querier
}

func NewPaymentRepository(db querier) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentSelect = `
	SELECT id, tenant_id, COALESCE(customer_id, ''), COALESCE(supplier_id, ''), bank_account_id,
	       currency, original_amount, exchange_rate, converted_amount, account_rate, account_amount,
	       notes, created_by, created_at, updated_at
	FROM payments WHERE id = $1`

func (r *PaymentRepository) Create(ctx context.Context, tx usecase.Transaction, p *domain.Payment) error {
	_, err := inTx(tx).Exec(ctx, `
		INSERT INTO payments (
			id, tenant_id, customer_id, supplier_id, bank_account_id,
			currency, original_amount, exchange_rate, converted_amount, account_rate, account_amount,
			notes, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.TenantID, nullable(p.CustomerID), nullable(p.SupplierID), p.BankAccountID,
		p.Currency, p.OriginalAmount, p.ExchangeRate, p.ConvertedAmount, p.AccountRate, p.AccountAmount,
		p.Notes, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	)
	return mapError(err)
}

func (r *PaymentRepository) Update(ctx context.Context, tx usecase.Transaction, p *domain.Payment) error {
	return execOne(ctx, inTx(tx), domain.ErrDocumentNotFound, `
		UPDATE payments SET
			customer_id = $2, supplier_id = $3, bank_account_id = $4, currency = $5,
			original_amount = $6, exchange_rate = $7, converted_amount = $8,
			account_rate = $9, account_amount = $10, notes = $11, updated_at = $12
		WHERE id = $1`,
		p.ID, nullable(p.CustomerID), nullable(p.SupplierID), p.BankAccountID, p.Currency,
		p.OriginalAmount, p.ExchangeRate, p.ConvertedAmount,
		p.AccountRate, p.AccountAmount, p.Notes, p.UpdatedAt,
	)
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, paymentSelect, id))
}

func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Payment, error) {
	return scanPayment(inTx(tx).QueryRow(ctx, paymentSelect+` FOR UPDATE`, id))
}

func (r *PaymentRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	return execOne(ctx, inTx(tx), domain.ErrDocumentNotFound, `DELETE FROM payments WHERE id = $1`, id)
}

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.TenantID, &p.CustomerID, &p.SupplierID, &p.BankAccountID,
		&p.Currency, &p.OriginalAmount, &p.ExchangeRate, &p.ConvertedAmount, &p.AccountRate, &p.AccountAmount,
		&p.Notes, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, domain.ErrDocumentNotFound)
	}
	return &p, nil
}
