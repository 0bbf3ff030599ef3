package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/tradeledger/internal/adapter/http/dto"
	"github.com/iho/tradeledger/internal/domain"
	"github.com/iho/tradeledger/internal/usecase"
)

// ConversionService defines the behavior needed by DocumentHandler.
type ConversionService interface {
	GetConvertedAmount(ctx context.Context, actor domain.Actor, ref domain.ActivityRef) (*usecase.ConvertedAmount, error)
}

// DocumentHandler exposes how documents were converted into counterparty currency.
type DocumentHandler struct {
	ledger ConversionService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(ledger ConversionService) *DocumentHandler {
	return &DocumentHandler{ledger: ledger}
}

// ConvertedAmount returns the original amount, the stored rate and the result.
func (h *DocumentHandler) ConvertedAmount(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	ref := domain.ActivityRef{
		Kind: domain.EntityKind(chi.URLParam(r, "kind")),
		ID:   chi.URLParam(r, "id"),
	}
	converted, err := h.ledger.GetConvertedAmount(r.Context(), actor, ref)
	if err != nil {
		writeDomainError(w, "failed to get converted amount", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ConvertedAmountFromUseCase(converted))
}
