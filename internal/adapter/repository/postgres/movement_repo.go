package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

// MovementRepository implements usecase.MovementRepository.
type MovementRepository struct {
	db querier
}

func NewMovementRepository(db querier) *MovementRepository {
	return &MovementRepository{db: db}
}

func (r *MovementRepository) Create(ctx context.Context, tx usecase.Transaction, m *domain.Movement) error {
	_, err := inTx(tx).Exec(ctx, `
		INSERT INTO balance_movements (
			id, entity_kind, entity_id, source_kind, source_id,
			delta, previous_balance, current_balance, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, string(m.Entity.Kind), m.Entity.ID, string(m.Source.Kind), m.Source.ID,
		m.Delta, m.PreviousBalance, m.CurrentBalance, m.CreatedAt,
	)
	return mapError(err)
}

// ListByEntity returns movements newest first. Ids are monotonic ULIDs so
// they break ties between movements written in the same instant.
func (r *MovementRepository) ListByEntity(ctx context.Context, target domain.LedgerTarget, limit, offset int) ([]*domain.Movement, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, entity_kind, entity_id, source_kind, source_id,
		       delta, previous_balance, current_balance, created_at
		FROM balance_movements
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`,
		string(target.Kind), target.ID, limit, offset,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var movements []*domain.Movement
	for rows.Next() {
		var (
			m                      domain.Movement
			entityKind, sourceKind string
		)
		if err := rows.Scan(
			&m.ID, &entityKind, &m.Entity.ID, &sourceKind, &m.Source.ID,
			&m.Delta, &m.PreviousBalance, &m.CurrentBalance, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.Entity.Kind = domain.LedgerKind(entityKind)
		m.Source.Kind = domain.EntityKind(sourceKind)
		movements = append(movements, &m)
	}
	return movements, rows.Err()
}

func (r *MovementRepository) SumByEntity(ctx context.Context, target domain.LedgerTarget) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(delta), 0)
		FROM balance_movements
		WHERE entity_kind = $1 AND entity_id = $2`,
		string(target.Kind), target.ID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, mapError(err)
	}
	return sum, nil
}
