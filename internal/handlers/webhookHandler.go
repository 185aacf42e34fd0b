package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/docpanel/docflow/internal/adapter"
	"github.com/docpanel/docflow/internal/api"
	"github.com/docpanel/docflow/internal/config"
)

// ProcessingWebhookHandler godoc
// @Summary      Ingest a processing status report
// @Description  Authenticated callback from the processing worker. The status is recorded on the document and re-broadcast verbatim to every connected event client.
// @Tags         Events
// @Accept       json
// @Produce      json
// @Param        X-Webhook-Key  header  string              true  "Shared webhook secret"
// @Param        request        body    api.WebhookRequest  true  "Status report"
// @Success      200  {object}  api.Envelope
// @Failure      400  {object}  api.Envelope "Malformed body or unknown status"
// @Failure      401  {object}  api.Envelope "Missing or wrong webhook key"
// @Failure      404  {object}  api.Envelope "Unknown document"
// @Router       /api/v1/events/webhook/document-processing [post]
func ProcessingWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	//constant-time so the key cannot be probed byte by byte
	providedKey := r.Header.Get("X-Webhook-Key")
	if subtle.ConstantTimeCompare([]byte(providedKey), []byte(config.WebhookSecret)) != 1 {
		logRH.Warn("Webhook rejected: bad key", "remoteAddr", r.RemoteAddr)
		WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "invalid webhook key")
		return
	}

	var requestData api.WebhookRequest
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			logRH.Error("Couldn't close the webhook reader", "error", err)
		}
	}(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "body must be JSON")
		return
	}
	if err := handlerInstance.validate.Struct(requestData); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "documentId and status are required")
		return
	}

	err := handlerInstance.service.OnWebhookStatus(r.Context(), requestData.DocumentId, requestData.Status, requestData.Message, requestData.Metadata)
	if err != nil {
		writeOrchestratorError(w, err)
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.Success("Webhook processed", map[string]any{
		"documentId": requestData.DocumentId,
		"status":     requestData.Status,
		"broadcast":  handlerInstance.hub.Size(),
	}))
}
