package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

// ReturnRepository implements usecase.ReturnRepository. Sale and purchase
// returns share one table; source_id is not a foreign key because it points
// at either sales or purchases depending on kind.
type ReturnRepository struct {
	db querier
}

func NewReturnRepository(db querier) *ReturnRepository {
	return &ReturnRepository{db: db}
}

const returnSelect = `
	SELECT id, tenant_id, kind, source_id,
	       COALESCE(customer_id, ''), COALESCE(supplier_id, ''), COALESCE(bank_account_id, ''),
	       currency, total_amount, exchange_rate, converted_amount, account_rate, account_amount,
	       committed, committed_at, notes, created_by, created_at, updated_at
	FROM returns WHERE id = $1`

func (r *ReturnRepository) Create(ctx context.Context, tx usecase.Transaction, ret *domain.Return) error {
	q := inTx(tx)
	_, err := q.Exec(ctx, `
		INSERT INTO returns (
			id, tenant_id, kind, source_id, customer_id, supplier_id, bank_account_id,
			currency, total_amount, exchange_rate, converted_amount, account_rate, account_amount,
			committed, committed_at, notes, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		ret.ID, ret.TenantID, string(ret.Kind), ret.SourceID,
		nullable(ret.CustomerID), nullable(ret.SupplierID), nullable(ret.BankAccountID),
		ret.Currency, ret.TotalAmount, ret.ExchangeRate, ret.ConvertedAmount, ret.AccountRate, ret.AccountAmount,
		ret.Committed, ret.CommittedAt, ret.Notes, ret.CreatedBy, ret.CreatedAt, ret.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	return returnItems.insert(ctx, q, ret.ID, ret.Items)
}

func (r *ReturnRepository) Update(ctx context.Context, tx usecase.Transaction, ret *domain.Return) error {
	q := inTx(tx)
	err := execOne(ctx, q, domain.ErrDocumentNotFound, `
		UPDATE returns SET
			customer_id = $2, supplier_id = $3, bank_account_id = $4, currency = $5,
			total_amount = $6, exchange_rate = $7, converted_amount = $8,
			account_rate = $9, account_amount = $10, committed = $11, committed_at = $12,
			notes = $13, updated_at = $14
		WHERE id = $1`,
		ret.ID, nullable(ret.CustomerID), nullable(ret.SupplierID), nullable(ret.BankAccountID), ret.Currency,
		ret.TotalAmount, ret.ExchangeRate, ret.ConvertedAmount,
		ret.AccountRate, ret.AccountAmount, ret.Committed, ret.CommittedAt,
		ret.Notes, ret.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return returnItems.replace(ctx, q, ret.ID, ret.Items)
}

func (r *ReturnRepository) GetByID(ctx context.Context, id string) (*domain.Return, error) {
	return r.get(ctx, r.db, returnSelect, id)
}

func (r *ReturnRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Return, error) {
	return r.get(ctx, inTx(tx), returnSelect+` FOR UPDATE`, id)
}

func (r *ReturnRepository) get(ctx context.Context, q querier, query, id string) (*domain.Return, error) {
	ret, err := scanReturn(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if ret.Items, err = returnItems.load(ctx, q, id); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *ReturnRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	return execOne(ctx, inTx(tx), domain.ErrDocumentNotFound, `DELETE FROM returns WHERE id = $1`, id)
}

// CountBySource counts the returns referencing a source document.
func (r *ReturnRepository) CountBySource(ctx context.Context, tx usecase.Transaction, kind domain.ReturnKind, sourceID string) (int, error) {
	var n int
	err := inTx(tx).QueryRow(ctx,
		`SELECT COUNT(*) FROM returns WHERE kind = $1 AND source_id = $2`,
		string(kind), sourceID,
	).Scan(&n)
	if err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// ReturnedQuantities sums item quantities of the committed returns of a
// source per product. excludeID keeps the return being written out of its own total.
func (r *ReturnRepository) ReturnedQuantities(ctx context.Context, tx usecase.Transaction, kind domain.ReturnKind, sourceID, excludeID string) (map[string]int64, error) {
	rows, err := inTx(tx).Query(ctx, `
		SELECT ri.product_id, SUM(ri.quantity)::BIGINT
		FROM return_items ri
		JOIN returns r ON r.id = ri.return_id
		WHERE r.kind = $1 AND r.source_id = $2 AND r.committed AND r.id <> $3
		GROUP BY ri.product_id`,
		string(kind), sourceID, excludeID,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	returned := make(map[string]int64)
	for rows.Next() {
		var (
			productID string
			qty       int64
		)
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		returned[productID] = qty
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return returned, nil
}

func scanReturn(row pgx.Row) (*domain.Return, error) {
	var (
		ret  domain.Return
		kind string
	)
	err := row.Scan(
		&ret.ID, &ret.TenantID, &kind, &ret.SourceID,
		&ret.CustomerID, &ret.SupplierID, &ret.BankAccountID,
		&ret.Currency, &ret.TotalAmount, &ret.ExchangeRate, &ret.ConvertedAmount, &ret.AccountRate, &ret.AccountAmount,
		&ret.Committed, &ret.CommittedAt, &ret.Notes, &ret.CreatedBy, &ret.CreatedAt, &ret.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, domain.ErrDocumentNotFound)
	}
	ret.Kind = domain.ReturnKind(kind)
	return &ret, nil
}
