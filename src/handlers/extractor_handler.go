// backend/src/handlers/extractor_handler.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/username/vertex/backend/src/logger"
	"github.com/username/vertex/backend/src/models"
	"github.com/username/vertex/backend/src/parsers/document"
	"github.com/username/vertex/backend/src/utils"
)

const maxExtractedFields = 500

// ExtractFieldsRequest carries the key/value pairs read off a transfer receipt.
type ExtractFieldsRequest struct {
	Fields []models.ExtractedField `json:"fields"`
}

// HandleExtractFields assembles a transaction candidate from extracted fields. A
// partial result is still a 200: the caller decides what to do with missing data.
func HandleExtractFields(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	var req ExtractFieldsRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		ctxLogger.Warn("Invalid extractor request body", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if len(req.Fields) > maxExtractedFields {
		utils.SendJSONError(w, fmt.Sprintf("Too many fields, max %d", maxExtractedFields), http.StatusBadRequest)
		return
	}

	result := document.Build(req.Fields)
	ctxLogger.Info("Document fields processed", "ok", result.OK, "wallet", result.Wallet, "missing", len(result.Missing), "issues", len(result.Errors))
	utils.WriteJSON(w, http.StatusOK, result)
}
