package handler

import (
	"context"
	"net/http"

	"github.com/iho/tradeledger/internal/adapter/http/dto"
	"github.com/iho/tradeledger/internal/usecase"
)

// Reconciler checks stored balances against the movement journal.
type Reconciler interface {
	ReconcileAll(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// ReconciliationHandler exposes the reconciliation report.
type ReconciliationHandler struct {
	reconciler Reconciler
}

func NewReconciliationHandler(reconciler Reconciler) *ReconciliationHandler {
	return &ReconciliationHandler{reconciler: reconciler}
}

// Report runs a reconciliation and returns the caller's tenant slice of it.
// Mismatches still answer 200; the body's healthy flag carries the verdict.
func (h *ReconciliationHandler) Report(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorOrAbort(w, r)
	if !ok {
		return
	}

	report, err := h.reconciler.ReconcileAll(r.Context())
	if err != nil {
		writeDomainError(w, "reconciliation failed", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(report.ForTenant(actor.TenantID)))
}
