package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

// PurchaseRepository implements usecase.PurchaseRepository.
type PurchaseRepository struct {
	db querier
}

func NewPurchaseRepository(db querier) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

const purchaseSelect = `
	SELECT id, tenant_id, COALESCE(customer_id, ''), COALESCE(supplier_id, ''), COALESCE(bank_account_id, ''),
	       currency, original_amount, exchange_rate, converted_amount, account_rate, account_amount,
	       notes, created_by, created_at, updated_at
	FROM purchases WHERE id = $1`

func (r *PurchaseRepository) Create(ctx context.Context, tx usecase.Transaction, p *domain.Purchase) error {
	q := inTx(tx)
	_, err := q.Exec(ctx, `
		INSERT INTO purchases (
			id, tenant_id, customer_id, supplier_id, bank_account_id,
			currency, original_amount, exchange_rate, converted_amount, account_rate, account_amount,
			notes, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID, p.TenantID, nullable(p.CustomerID), nullable(p.SupplierID), nullable(p.BankAccountID),
		p.Currency, p.OriginalAmount, p.ExchangeRate, p.ConvertedAmount, p.AccountRate, p.AccountAmount,
		p.Notes, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	return purchaseItems.insert(ctx, q, p.ID, p.Items)
}

func (r *PurchaseRepository) Update(ctx context.Context, tx usecase.Transaction, p *domain.Purchase) error {
	q := inTx(tx)
	err := execOne(ctx, q, domain.ErrDocumentNotFound, `
		UPDATE purchases SET
			customer_id = $2, supplier_id = $3, bank_account_id = $4, currency = $5,
			original_amount = $6, exchange_rate = $7, converted_amount = $8,
			account_rate = $9, account_amount = $10, notes = $11, updated_at = $12
		WHERE id = $1`,
		p.ID, nullable(p.CustomerID), nullable(p.SupplierID), nullable(p.BankAccountID), p.Currency,
		p.OriginalAmount, p.ExchangeRate, p.ConvertedAmount,
		p.AccountRate, p.AccountAmount, p.Notes, p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return purchaseItems.replace(ctx, q, p.ID, p.Items)
}

func (r *PurchaseRepository) GetByID(ctx context.Context, id string) (*domain.Purchase, error) {
	return r.get(ctx, r.db, purchaseSelect, id)
}

func (r *PurchaseRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Purchase, error) {
	return r.get(ctx, inTx(tx), purchaseSelect+` FOR UPDATE`, id)
}

func (r *PurchaseRepository) get(ctx context.Context, q querier, query, id string) (*domain.Purchase, error) {
	p, err := scanPurchase(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if p.Items, err = purchaseItems.load(ctx, q, id); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PurchaseRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	return execOne(ctx, inTx(tx), domain.ErrDocumentNotFound, `DELETE FROM purchases WHERE id = $1`, id)
}

func scanPurchase(row pgx.Row) (*domain.Purchase, error) {
	var p domain.Purchase
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
