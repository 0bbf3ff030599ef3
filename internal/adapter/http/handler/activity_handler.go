package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/tradeledger/internal/adapter/http/dto"
	"github.com/iho/tradeledger/internal/domain"
)

// ActivityService defines the read side of the activity log.
type ActivityService interface {
	Get(ctx context.Context, actor domain.Actor, id string) (*domain.Activity, error)
	List(ctx context.Context, actor domain.Actor, filter domain.ActivityFilter) ([]*domain.Activity, error)
}

// Restorer re-creates an entity from a deletion entry.
type Restorer interface {
	Restore(ctx context.Context, actor domain.Actor, activityID string) (domain.Trackable, error)
}

// ActivityHandler handles activity log requests.
type ActivityHandler struct {
	activities ActivityService
	restorer   Restorer
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(activities ActivityService, restorer Restorer) *ActivityHandler {
	return &ActivityHandler{activities: activities, restorer: restorer}
}

// List returns the caller's tenant entries, filtered by query parameters.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := domain.ActivityFilter{
		EntityKind: domain.EntityKind(q.Get("entity_kind")),
		EntityID:   q.Get("entity_id"),
		ActorID:    q.Get("actor_id"),
		Action:     domain.ActivityAction(q.Get("action")),
		Limit:      parseIntQuery(r, "limit", 50),
		Offset:     parseIntQuery(r, "offset", 0),
	}

	activities, err := h.activities.List(r.Context(), actor, filter)
	if err != nil {
		writeDomainError(w, "failed to list activities", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.ActivityResponse]{
		Data:   dto.ActivitiesFromDomain(activities),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// Get returns one entry including its snapshot.
func (h *ActivityHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	activity, err := h.activities.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get activity", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ActivityFromDomain(activity, true))
}

// Restore brings back the entity deleted by the entry.
func (h *ActivityHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	entity, err := h.restorer.Restore(r.Context(), actor, id)
	if err != nil {
		writeDomainError(w, "failed to restore", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RestoreFromDomain(id, entity))
}
