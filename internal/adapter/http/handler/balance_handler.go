package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/tradeledger/internal/adapter/http/dto"
	"github.com/iho/tradeledger/internal/domain"
)

// BalanceService defines the behavior needed by BalanceHandler.
type BalanceService interface {
	GetBalance(ctx context.Context, actor domain.Actor, target domain.LedgerTarget) (*domain.Party, error)
	ListMovements(ctx context.Context, actor domain.Actor, target domain.LedgerTarget, limit, offset int) ([]*domain.Movement, error)
}

// BalanceHandler serves running balances and their movement journal.
type BalanceHandler struct {
	ledger BalanceService
}

// NewBalanceHandler creates a new BalanceHandler.
func NewBalanceHandler(ledger BalanceService) *BalanceHandler {
	return &BalanceHandler{ledger: ledger}
}

func targetFromPath(r *http.Request) domain.LedgerTarget {
	return domain.LedgerTarget{
		Kind: domain.LedgerKind(chi.URLParam(r, "kind")),
		ID:   chi.URLParam(r, "id"),
	}
}

// Get returns the current balance of a customer, supplier or bank account.
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	party, err := h.ledger.GetBalance(r.Context(), actor, targetFromPath(r))
	if err != nil {
		writeDomainError(w, "failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(party))
}

// ListMovements returns the balance journal, newest first.
func (h *BalanceHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	movements, err := h.ledger.ListMovements(r.Context(), actor, targetFromPath(r), limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list movements", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListResponse[*dto.MovementResponse]{
		Data:   dto.MovementsFromDomain(movements),
		Limit:  limit,
		Offset: offset,
	})
}
