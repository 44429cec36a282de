// backend/src/handlers/reconciliation_handler.go
package handlers

import (
	"context"
	"net/http"

	"github.com/username/vertex/backend/src/logger"
	"github.com/username/vertex/backend/src/services"
	"github.com/username/vertex/backend/src/utils"
)

type ReconciliationHandler struct {
	reconciler services.Reconciler
}

func NewReconciliationHandler(reconciler services.Reconciler) *ReconciliationHandler {
	return &ReconciliationHandler{reconciler: reconciler}
}

// HandleRunReconciliation triggers a reconciliation pass and returns its report.
func (h *ReconciliationHandler) HandleRunReconciliation(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	logger.FromContext(r.Context()).Info("Manual reconciliation requested", "userID", principal.ID)

	// A client hanging up must not cancel a run halfway.
	report, err := h.reconciler.Run(context.WithoutCancel(r.Context()), nil)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}

func (h *ReconciliationHandler) HandleGetLastReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.LastReport(r.Context())
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}
