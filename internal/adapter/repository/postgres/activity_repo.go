package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

// ActivityRepository implements usecase.ActivityRepository.
type ActivityRepository struct {
	db querier
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db querier) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = `id, tenant_id, actor_id, action, entity_kind, entity_id, description, snapshot, created_at, restored_at`

// Create appends an entry. The snapshot is stored as jsonb.
func (r *ActivityRepository) Create(ctx context.Context, tx usecase.Transaction, a *domain.Activity) error {
	var snapshot []byte
	if a.Snapshot != nil {
		var err error
		if snapshot, err = json.Marshal(a.Snapshot); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
	}

	_, err := inTx(tx).Exec(ctx, `
		INSERT INTO activities (`+activityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.TenantID, a.ActorID, string(a.Action), string(a.Entity.Kind), a.Entity.ID,
		a.Description, snapshot, a.CreatedAt, a.RestoredAt,
	)
	return mapError(err)
}

func (r *ActivityRepository) GetByID(ctx context.Context, id string) (*domain.Activity, error) {
	return scanActivity(r.db.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id))
}

func (r *ActivityRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Activity, error) {
	return scanActivity(inTx(tx).QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1 FOR UPDATE`, id))
}

// MarkRestored stamps an entry as replayed. Only entries not yet restored match.
func (r *ActivityRepository) MarkRestored(ctx context.Context, tx usecase.Transaction, id, description string, restoredAt time.Time) error {
	return execOne(ctx, inTx(tx), domain.ErrNotRestorable, `
		UPDATE activities SET restored_at = $2, description = $3
		WHERE id = $1 AND restored_at IS NULL`,
		id, restoredAt, description,
	)
}

// List returns a tenant's entries newest first.
func (r *ActivityRepository) List(ctx context.Context, filter domain.ActivityFilter) ([]*domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE tenant_id = $1`
	args := []any{filter.TenantID}

	where := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		query += ` AND ` + column + ` = $` + strconv.Itoa(len(args))
	}
	where("entity_kind", string(filter.EntityKind))
	where("entity_id", filter.EntityID)
	where("actor_id", filter.ActorID)
	where("action", string(filter.Action))

	query += ` ORDER BY created_at DESC, id DESC`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var activities []*domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func scanActivity(row pgx.Row) (*domain.Activity, error) {
	var (
		a                  domain.Activity
		action, entityKind string
		snapshot           []byte
	)
	err := row.Scan(
		&a.ID, &a.TenantID, &a.ActorID, &action, &entityKind, &a.Entity.ID,
		&a.Description, &snapshot, &a.CreatedAt, &a.RestoredAt,
	)
	if err != nil {
		return nil, notFound(err, domain.ErrActivityNotFound)
	}
	a.Action = domain.ActivityAction(action)
	a.Entity.Kind = domain.EntityKind(entityKind)

	if len(snapshot) > 0 {
		a.Snapshot = &domain.Snapshot{}
		if err := json.Unmarshal(snapshot, a.Snapshot); err != nil {
			return nil, fmt.Errorf("decode snapshot of activity %s: %w", a.ID, err)
		}
	}
	return &a, nil
}
