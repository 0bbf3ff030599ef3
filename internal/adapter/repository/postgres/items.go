package postgres

import (
	"context"
	"fmt"

	"github.com/iho/tradeledger/internal/domain"
)

// itemStore persists line items in a child table keyed by fk.
type itemStore struct {
	table string
	fk    string
}

var (
	saleItems     = itemStore{table: "sale_items", fk: "sale_id"}
	purchaseItems = itemStore{table: "purchase_items", fk: "purchase_id"}
	returnItems   = itemStore{table: "return_items", fk: "return_id"}
)

func (s itemStore) insert(ctx context.Context, q querier, docID string, items []domain.LineItem) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, %s, product_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)`, s.table, s.fk)
	for _, it := range items {
		if _, err := q.Exec(ctx, query, it.ID, docID, it.ProductID, it.Quantity, it.UnitPrice, it.LineTotal); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (s itemStore) load(ctx context.Context, q querier, docID string) ([]domain.LineItem, error) {
	query := fmt.Sprintf(`
		SELECT id, %s, product_id, quantity, unit_price, line_total
		FROM %s WHERE %s = $1 ORDER BY id`, s.fk, s.table, s.fk)
	rows, err := q.Query(ctx, query, docID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var items []domain.LineItem
	for rows.Next() {
		var it domain.LineItem
		if err := rows.Scan(&it.ID, &it.DocumentID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// replace swaps the whole item set of a document.
func (s itemStore) replace(ctx context.Context, q querier, docID string, items []domain.LineItem) error {
	if _, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, s.table, s.fk), docID); err != nil {
		return mapError(err)
	}
	return s.insert(ctx, q, docID, items)
}
