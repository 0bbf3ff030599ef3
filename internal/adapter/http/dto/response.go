package dto

import (
	"time"

	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

// BalanceResponse is the running balance of a customer, supplier or bank account.
type BalanceResponse struct {
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Balance   string    `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BalanceFromDomain converts a party to its balance view.
func BalanceFromDomain(p *domain.Party) *BalanceResponse {
	return &BalanceResponse{
		Kind:      string(p.Kind),
		ID:        p.ID,
		Name:      p.Name,
		Currency:  p.Currency,
		Balance:   p.Balance.StringFixed(domain.MoneyPlaces),
		UpdatedAt: p.UpdatedAt,
	}
}

// MovementResponse is one journal line of a balance.
type MovementResponse struct {
	ID              string    `json:"id"`
	SourceKind      string    `json:"source_kind"`
	SourceID        string    `json:"source_id"`
	Delta           string    `json:"delta"`
	PreviousBalance string    `json:"previous_balance"`
	CurrentBalance  string    `json:"current_balance"`
	CreatedAt       time.Time `json:"created_at"`
}

// MovementsFromDomain converts journal lines to responses.
func MovementsFromDomain(movements []*domain.Movement) []*MovementResponse {
	result := make([]*MovementResponse, len(movements))
	for i, m := range movements {
		result[i] = &MovementResponse{
			ID:              m.ID,
			SourceKind:      string(m.Source.Kind),
			SourceID:        m.Source.ID,
			Delta:           m.Delta.StringFixed(domain.MoneyPlaces),
			PreviousBalance: m.PreviousBalance.StringFixed(domain.MoneyPlaces),
			CurrentBalance:  m.CurrentBalance.StringFixed(domain.MoneyPlaces),
			CreatedAt:       m.CreatedAt,
		}
	}
	return result
}

// ConvertedAmountResponse reports a document amount before and after conversion.
type ConvertedAmountResponse struct {
	Kind            string `json:"kind"`
	ID              string `json:"id"`
	Currency        string `json:"currency"`
	OriginalAmount  string `json:"original_amount"`
	ExchangeRate    string `json:"exchange_rate"`
	ConvertedAmount string `json:"converted_amount"`
	AccountAmount   string `json:"account_amount"`
}

func ConvertedAmountFromUseCase(c *usecase.ConvertedAmount) *ConvertedAmountResponse {
	return &ConvertedAmountResponse{
		Kind:            string(c.Document.Kind),
		ID:              c.Document.ID,
		Currency:        c.Currency,
		OriginalAmount:  c.OriginalAmount.StringFixed(domain.MoneyPlaces),
		ExchangeRate:    c.ExchangeRate.StringFixed(domain.RatePlaces),
		ConvertedAmount: c.ConvertedAmount.StringFixed(domain.MoneyPlaces),
		AccountAmount:   c.AccountAmount.StringFixed(domain.MoneyPlaces),
	}
}

// ActivityResponse represents an activity log entry. The snapshot is
// omitted from list views.
type ActivityResponse struct {
	ID          string           `json:"id"`
	ActorID     string           `json:"actor_id"`
	Action      string           `json:"action"`
	EntityKind  string           `json:"entity_kind"`
	EntityID    string           `json:"entity_id"`
	Description string           `json:"description"`
	Restorable  bool             `json:"restorable"`
	CreatedAt   time.Time        `json:"created_at"`
	RestoredAt  *time.Time       `json:"restored_at,omitempty"`
	Snapshot    *domain.Snapshot `json:"snapshot,omitempty"`
}

// ActivityFromDomain converts an entry; withSnapshot includes the captured entity.
func ActivityFromDomain(a *domain.Activity, withSnapshot bool) *ActivityResponse {
	resp := &ActivityResponse{
		ID:          a.ID,
		ActorID:     a.ActorID,
		Action:      string(a.Action),
		EntityKind:  string(a.Entity.Kind),
		EntityID:    a.Entity.ID,
		Description: a.Description,
		Restorable:  a.Restorable() == nil,
		CreatedAt:   a.CreatedAt,
		RestoredAt:  a.RestoredAt,
	}
	if withSnapshot {
		resp.Snapshot = a.Snapshot
	}
	return resp
}

func ActivitiesFromDomain(activities []*domain.Activity) []*ActivityResponse {
	result := make([]*ActivityResponse, len(activities))
	for i, a := range activities {
		result[i] = ActivityFromDomain(a, false)
	}
	return result
}

// RestoreResponse names the entity brought back by a restore.
type RestoreResponse struct {
	ActivityID  string `json:"activity_id"`
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id"`
	Description string `json:"description"`
}

func RestoreFromDomain(activityID string, entity domain.Trackable) *RestoreResponse {
	ref := entity.ActivityRef()
	return &RestoreResponse{
		ActivityID:  activityID,
		EntityKind:  string(ref.Kind),
		EntityID:    ref.ID,
		Description: entity.Describe(),
	}
}

// ReconciliationResponse summarizes a reconciliation run.
type ReconciliationResponse struct {
	CheckedAt  time.Time           `json:"checked_at"`
	Checked    int                 `json:"checked"`
	Healthy    bool                `json:"healthy"`
	Mismatches []*MismatchResponse `json:"mismatches"`
}

// MismatchResponse is a balance that disagrees with its journal.
type MismatchResponse struct {
	Kind              string `json:"kind"`
	ID                string `json:"id"`
	RecordedBalance   string `json:"recorded_balance"`
	CalculatedBalance string `json:"calculated_balance"`
	Difference        string `json:"difference"`
}

func ReconciliationFromUseCase(r *usecase.ReconciliationReport) *ReconciliationResponse {
	resp := &ReconciliationResponse{
		CheckedAt:  r.CheckedAt,
		Checked:    r.Checked,
		Healthy:    r.Healthy(),
		Mismatches: make([]*MismatchResponse, len(r.Mismatches)),
	}
	for i, m := range r.Mismatches {
		resp.Mismatches[i] = &MismatchResponse{
			Kind:              string(m.Target.Kind),
			ID:                m.Target.ID,
			RecordedBalance:   m.RecordedBalance.StringFixed(domain.MoneyPlaces),
			CalculatedBalance: m.CalculatedBalance.StringFixed(domain.MoneyPlaces),
			Difference:        m.Difference.StringFixed(domain.MoneyPlaces),
		}
	}
	return resp
}

// ListResponse wraps a page of results.
type ListResponse[T any] struct {
	Data   []T `json:"data"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
