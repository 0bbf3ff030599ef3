package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

// SaleRepository implements usecase.SaleRepository.
type SaleRepository struct {
	db querier
}

func NewSaleRepository(db querier) *SaleRepository {
	return &SaleRepository{db: db}
}

const saleSelect = `
	SELECT id, tenant_id, COALESCE(customer_id, ''), COALESCE(supplier_id, ''), currency,
	       original_amount, exchange_rate, converted_amount, notes, created_by, created_at, updated_at
	FROM sales WHERE id = $1`

func (r *SaleRepository) Create(ctx context.Context, tx usecase.Transaction, s *domain.Sale) error {
	q := inTx(tx)
	_, err := q.Exec(ctx, `
		INSERT INTO sales (
			id, tenant_id, customer_id, supplier_id, currency,
			original_amount, exchange_rate, converted_amount, notes, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.TenantID, nullable(s.CustomerID), nullable(s.SupplierID), s.Currency,
		s.OriginalAmount, s.ExchangeRate, s.ConvertedAmount, s.Notes, s.CreatedBy, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	return saleItems.insert(ctx, q, s.ID, s.Items)
}

func (r *SaleRepository) Update(ctx context.Context, tx usecase.Transaction, s *domain.Sale) error {
	q := inTx(tx)
	err := execOne(ctx, q, domain.ErrDocumentNotFound, `
		UPDATE sales SET
			customer_id = $2, supplier_id = $3, currency = $4,
			original_amount = $5, exchange_rate = $6, converted_amount = $7,
			notes = $8, updated_at = $9
		WHERE id = $1`,
		s.ID, nullable(s.CustomerID), nullable(s.SupplierID), s.Currency,
		s.OriginalAmount, s.ExchangeRate, s.ConvertedAmount, s.Notes, s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return saleItems.replace(ctx, q, s.ID, s.Items)
}

func (r *SaleRepository) GetByID(ctx context.Context, id string) (*domain.Sale, error) {
	return r.get(ctx, r.db, saleSelect, id)
}

func (r *SaleRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Sale, error) {
	return r.get(ctx, inTx(tx), saleSelect+` FOR UPDATE`, id)
}

func (r *SaleRepository) get(ctx context.Context, q querier, query, id string) (*domain.Sale, error) {
	s, err := scanSale(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if s.Items, err = saleItems.load(ctx, q, id); err != nil {
		return nil, err
	}
	return s, nil
}

// Delete removes the sale; its items go with it through ON DELETE CASCADE.
func (r *SaleRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	return execOne(ctx, inTx(tx), domain.ErrDocumentNotFound, `DELETE FROM sales WHERE id = $1`, id)
}

func scanSale(row pgx.Row) (*domain.Sale, error) {
	var s domain.Sale
	err := row.Scan(
		&s.ID, &s.TenantID, &s.CustomerID, &s.SupplierID, &s.Currency,
		&s.OriginalAmount, &s.ExchangeRate, &s.ConvertedAmount, &s.Notes, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, domain.ErrDocumentNotFound)
	}
	return &s, nil
}
