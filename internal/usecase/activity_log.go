package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/infrastructure/metrics"
)

// ActivityLog records who did what to which entity. Entries are written in
// the same transaction as the mutation they describe.
type ActivityLog struct {
	repo    ActivityRepository
	idGen   IDGenerator
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewActivityLog creates a new ActivityLog.
func NewActivityLog(repo ActivityRepository, idGen IDGenerator, m *metrics.Metrics) *ActivityLog {
	return &ActivityLog{
		repo:    repo,
		idGen:   idGen,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record appends an entry for entity. Deletions carry a snapshot.
func (l *ActivityLog) Record(ctx context.Context, tx Transaction, actor domain.Actor, action domain.ActivityAction, entity domain.Trackable) error {
	ref := entity.ActivityRef()
	activity := &domain.Activity{
		ID:          l.idGen.Generate(),
		TenantID:    actor.TenantID,
		ActorID:     actor.UserID,
		Action:      action,
		Description: fmt.Sprintf("%s %s", action, entity.Describe()),
		Entity:      ref,
		CreatedAt:   l.now(),
	}

	if action == domain.ActionDeleted {
		snapshot, err := domain.NewSnapshot(entity)
		if err != nil {
			return err
		}
		activity.Snapshot = snapshot
	}

	if err := l.repo.Create(ctx, tx, activity); err != nil {
		return err
	}
	l.metrics.ObserveActivity(string(ref.Kind), string(action))
	return nil
}

// Get returns one entry visible to the actor.
func (l *ActivityLog) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Activity, error) {
	activity, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(activity.TenantID) {
		return nil, domain.ErrActivityNotFound
	}
	return activity, nil
}

// List returns the actor's tenant entries, newest first.
func (l *ActivityLog) List(ctx context.Context, actor domain.Actor, filter domain.ActivityFilter) ([]*domain.Activity, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if filter.EntityKind != "" && !filter.EntityKind.Valid() {
		return nil, domain.NewValidationError("entity_kind", domain.ErrValidation, "unknown entity kind %q", filter.EntityKind)
	}
	filter.TenantID = actor.TenantID
	filter.Limit, filter.Offset = domain.ValidatePagination(filter.Limit, filter.Offset)
	return l.repo.List(ctx, filter)
}

// markRestored annotates the original deleted entry.
func (l *ActivityLog) markRestored(ctx context.Context, tx Transaction, actor domain.Actor, activity *domain.Activity) error {
	now := l.now()
	description := fmt.Sprintf("%s (restored by %s at %s)", activity.Description, actor.UserID, now.Format(time.RFC3339))
	return l.repo.MarkRestored(ctx, tx, activity.ID, description, now)
}
