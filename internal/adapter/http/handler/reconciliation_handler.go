package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bankledger/internal/usecase"
)

// ReconciliationService defines the behavior needed by ReconciliationHandler.
type ReconciliationService interface {
	ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
}

// ReconciliationHandler exposes ledger reconciliation to operators.
type ReconciliationHandler struct {
	reconciliationUC ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconciliationUC ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliationUC: reconciliationUC}
}

// Report runs a full reconciliation. An inconsistent ledger answers 409
// with the report body.
func (h *ReconciliationHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliationUC.GenerateReconciliationReport(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reconcile ledger", err.Error())
		return
	}

	status := http.StatusOK
	if !report.LedgerConsistent || len(report.Discrepancies) > 0 {
		status = http.StatusConflict
	}

	writeJSON(w, status, report)
}

// Account reconciles a single account.
func (h *ReconciliationHandler) Account(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := h.reconciliationUC.ReconcileAccount(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reconcile account", err.Error())
		return
	}

	status := http.StatusOK
	if !result.IsReconciled {
		status = http.StatusConflict
	}

	writeJSON(w, status, result)
}
