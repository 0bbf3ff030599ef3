package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/infrastructure/metrics"
)

// Inventory applies stock adjustments inside a caller's transaction.
type Inventory struct {
	products ProductRepository
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewInventory creates a new Inventory.
func NewInventory(products ProductRepository, m *metrics.Metrics) *Inventory {
	return &Inventory{
		products: products,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Adjust nets adjustments per product, locks products in id order and
// applies each delta. Stock never goes below zero.
func (i *Inventory) Adjust(ctx context.Context, tx Transaction, tenantID string, adjustments []domain.StockAdjustment) error {
	for _, adj := range domain.NetStock(adjustments) {
		product, err := i.products.GetByIDForUpdate(ctx, tx, adj.ProductID)
		if err == nil && product.TenantID != tenantID {
			err = domain.ErrProductNotFound
		}
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return domain.NewValidationError("product_id", err, "product %s not found", adj.ProductID)
			}
			return err
		}

		next := product.StockQuantity + adj.Delta
		if next < 0 {
			return domain.NewValidationError("quantity", domain.ErrInsufficientStock,
				"product %s has %d in stock, %d requested", product.ID, product.StockQuantity, -adj.Delta)
		}

		if err := i.products.UpdateStock(ctx, tx, product.ID, next, i.now()); err != nil {
			return err
		}
		i.metrics.ObserveStock(adj.Delta)
	}
	return nil
}
