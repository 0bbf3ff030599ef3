package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

// ProductRepository implements usecase.ProductRepository.
type ProductRepository struct {
	db querier
}

func NewProductRepository(db querier) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, tenant_id, name, unit_price, stock_quantity, created_by, created_at, updated_at`

func (r *ProductRepository) Create(ctx context.Context, tx usecase.Transaction, p *domain.Product) error {
	_, err := inTx(tx).Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.TenantID, p.Name, p.UnitPrice, p.StockQuantity, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	)
	return mapError(err)
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return scanProduct(r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *ProductRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Product, error) {
	return scanProduct(inTx(tx).QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
}

func (r *ProductRepository) UpdateStock(ctx context.Context, tx usecase.Transaction, id string, quantity int64, updatedAt time.Time) error {
	return execOne(ctx, inTx(tx), domain.ErrProductNotFound,
		`UPDATE products SET stock_quantity = $2, updated_at = $3 WHERE id = $1`, id, quantity, updatedAt)
}

func (r *ProductRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	return execOne(ctx, inTx(tx), domain.ErrProductNotFound, `DELETE FROM products WHERE id = $1`, id)
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.UnitPrice, &p.StockQuantity, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err, domain.ErrProductNotFound)
	}
	return &p, nil
}
