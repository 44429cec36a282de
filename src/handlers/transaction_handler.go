// backend/src/handlers/transaction_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/username/vertex/backend/src/logger"
	"github.com/username/vertex/backend/src/models"
	"github.com/username/vertex/backend/src/services"
	"github.com/username/vertex/backend/src/utils"
)

const maxRequestBodyBytes = 1 << 20

type TransactionHandler struct {
	ingester services.Ingester
}

func NewTransactionHandler(ingester services.Ingester) *TransactionHandler {
	return &TransactionHandler{ingester: ingester}
}

// CreateTransactionRequest is a single claimed transfer.
type CreateTransactionRequest struct {
	models.DocumentRecord
	AccountID int64 `json:"account_id,omitempty"`
}

// CreateTransactionsRequest is a batch of claimed transfers for the caller's entity.
type CreateTransactionsRequest struct {
	Transactions []models.DocumentRecord `json:"transactions"`
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func (h *TransactionHandler) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req CreateTransactionRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		ctxLogger.Warn("Invalid transaction request body", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	trx, err := h.ingester.CreateTransaction(r.Context(), req.DocumentRecord, req.AccountID)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, trx)
}

func (h *TransactionHandler) HandleCreateTransactions(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req CreateTransactionsRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		ctxLogger.Warn("Invalid batch request body", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result, err := h.ingester.CreateTransactions(r.Context(), principal, req.Transactions)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	raw := r.URL.Query().Get("date")
	if raw == "" {
		utils.SendJSONError(w, "date query parameter is required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	day, err := civil.ParseDate(raw)
	if err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", raw), http.StatusBadRequest)
		return
	}

	daily, err := h.ingester.ListByDate(r.Context(), principal, day)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, daily)
}
