package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docpanel/docflow/internal/adapter"
	"github.com/docpanel/docflow/internal/adapter/utils"
	"github.com/docpanel/docflow/internal/api"
	"github.com/docpanel/docflow/internal/config"
	"github.com/docpanel/docflow/internal/domain/docModel"
	"github.com/docpanel/docflow/internal/orchestrator"
)

// UploadDocumentHandler godoc
// @Summary      Upload a document
// @Description  Receives a file via multipart/form-data, stores the raw bytes, creates the document record and triggers the processing pipeline.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        document       formData  file    true   "The PDF, DOCX, TXT or CSV file to upload"
// @Param        document_name  formData  string  false  "Display name override"
// @Param        division_id    formData  string  false  "Owning division"
// @Success      201  {object}  api.Envelope "Document created (message notes when processing could not start)"
// @Failure      400  {object}  api.Envelope "Missing file or unsupported file type"
// @Router       /api/v1/documents [post]
func UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "remoteAddr", r.RemoteAddr)
		return
	}

	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "File too large or bad request", err.Error())
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Could not retrieve file", "document form field is required")
		return
	}
	defer fileReader.Close()

	originalFilename := fileMetadata.Filename
	if name := r.FormValue("document_name"); name != "" {
		originalFilename = name
	}

	fileType := fileTypeOf(fileMetadata.Filename)
	if fileType == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "Unsupported file type", fmt.Sprintf("cannot process %q", fileMetadata.Filename))
		return
	}

	data, err := io.ReadAll(fileReader)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "Read error", err.Error())
		return
	}

	documentId := utils.GetNewUUID()
	storagePath := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
	if err := handlerInstance.blobs.Put(r.Context(), storagePath, data); err != nil {
		logRH.Error("Blob write failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Storage error", err.Error())
		return
	}

	doc := docModel.Document{
		Id:               documentId,
		DivisionId:       r.FormValue("division_id"),
		OriginalFilename: originalFilename,
		StoragePath:      storagePath,
		FileType:         fileType,
	}

	doc, warning, err := handlerInstance.service.OnUploadCompleted(r.Context(), doc)
	if err != nil {
		logRH.Error("Upload orchestration failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Could not create document", err.Error())
		return
	}

	message := "Document uploaded and processing started"
	if warning != "" {
		message = "Document uploaded; " + warning
	}
	writeJsonResponse(w, http.StatusCreated, adapter.Success(message, adapter.ToDocumentData(doc)))
}

// ListDocumentsHandler godoc
// @Summary      List documents
// @Tags         Documents
// @Produce      json
// @Success      200  {object}  api.Envelope
// @Router       /api/v1/documents [get]
func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	docs, err := handlerInstance.documents.ListDocuments(r.Context())
	if err != nil {
		logRH.Error("Listing documents failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Could not list documents", err.Error())
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.Success("Documents retrieved", adapter.ToDocumentList(docs)))
}

// GetDocumentHandler godoc
// @Summary      Get one document
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.Envelope
// @Failure      404  {object}  api.Envelope
// @Router       /api/v1/documents/{id} [get]
func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	doc, found := handlerInstance.documents.GetDocument(r.Context(), id)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, "Document not found", fmt.Sprintf("no document with id %s", id))
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.Success("Document retrieved", adapter.ToDocumentData(doc)))
}

// ToggleActiveHandler godoc
// @Summary      Toggle retrieval eligibility
// @Description  Activating is only legal for embedded documents. The vector index is synced best-effort; a sync failure appends a warning to the message.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true  "Document ID"
// @Param        request  body  api.ToggleActiveRequest  true  "Desired active flag"
// @Success      200  {object}  api.Envelope
// @Failure      400  {object}  api.Envelope "Activation of a non-embedded document"
// @Failure      404  {object}  api.Envelope
// @Router       /api/v1/documents/{id}/active [patch]
func ToggleActiveHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")

	var requestData api.ToggleActiveRequest
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			logRH.Error("Couldn't close the toggle handler reader", "error", err)
		}
	}(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&requestData); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "body must be JSON with is_active")
		return
	}
	if err := handlerInstance.validate.Struct(requestData); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "is_active is required")
		return
	}

	doc, warning, err := handlerInstance.service.ToggleActive(r.Context(), id, *requestData.IsActive)
	if err != nil {
		writeOrchestratorError(w, err)
		return
	}

	message := "Document active status updated"
	if warning != "" {
		message += "; warning: " + warning
	}
	writeJsonResponse(w, http.StatusOK, adapter.Success(message, adapter.ToDocumentData(doc)))
}

// DeleteDocumentHandler godoc
// @Summary      Delete a document
// @Description  Removes the record of truth, then best-effort cleans the blob, the vector index and the processing service. Partial cleanup failures append a warning.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.Envelope
// @Failure      404  {object}  api.Envelope
// @Router       /api/v1/documents/{id} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")

	warning, err := handlerInstance.service.Delete(r.Context(), id)
	if err != nil {
		writeOrchestratorError(w, err)
		return
	}

	message := "Document deleted successfully"
	if warning != "" {
		message += "; warning: " + warning
	}
	writeJsonResponse(w, http.StatusOK, adapter.Success(message, map[string]string{"document_id": id}))
}

// ChatHandler godoc
// @Summary      RAG chat passthrough
// @Description  Validates and forwards the query to the processing service, which owns retrieval and generation.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body  api.ChatRequest  true  "Chat query"
// @Success      200  {object}  api.Envelope
// @Failure      400  {object}  api.Envelope
// @Router       /api/v1/chat [post]
func ChatHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	var requestData api.ChatRequest
	if err := json.Unmarshal(body, &requestData); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "body must be JSON")
		return
	}
	if err := handlerInstance.validate.Struct(requestData); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "Bad Request", "division_id and query are required")
		return
	}

	respBody, status, err := handlerInstance.worker.Chat(r.Context(), body)
	if err != nil {
		logRH.Error("Chat passthrough failed", "error", err)
		WriteErrorResponse(w, http.StatusBadGateway, "Chat service unavailable", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(respBody); err != nil {
		logRH.Error("Error writing chat response", "error", err)
	}
}

// HealthHandler godoc
// @Summary      Service health
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.Envelope
// @Router       /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJsonResponse(w, http.StatusOK, adapter.Success("Control panel backend is healthy", map[string]any{
		"service":         "docflow",
		"openConnections": handlerInstance.hub.Size(),
		"vectorIndex":     handlerInstance.vectors.HealthCheck(r.Context()),
	}))
}

// VectorHealthHandler godoc
// @Summary      Vector index health
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.Envelope
// @Router       /api/v1/vector/health [get]
func VectorHealthHandler(w http.ResponseWriter, r *http.Request) {
	healthy := handlerInstance.vectors.HealthCheck(r.Context())
	if !healthy {
		writeJsonResponse(w, http.StatusServiceUnavailable, adapter.Failure("Vector index unhealthy", "health probe failed"))
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.Success("Vector index healthy", nil))
}

func writeOrchestratorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrNotFound):
		WriteErrorResponse(w, http.StatusNotFound, "Document not found", err.Error())
	case errors.Is(err, orchestrator.ErrValidation):
		WriteErrorResponse(w, http.StatusBadRequest, "Invalid request", err.Error())
	default:
		logRH.Error("Orchestrator error", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "Internal error", err.Error())
	}
}
