package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docpanel/docflow/internal/config"
	"github.com/docpanel/docflow/internal/domain/docModel"
	"github.com/docpanel/docflow/internal/events"
	"github.com/docpanel/docflow/internal/metrics"
	"github.com/docpanel/docflow/internal/mlworker"
	"github.com/docpanel/docflow/internal/vectorsync"
	"github.com/docpanel/docflow/pkg/logger_i"
)

var (
	ErrNotFound   = errors.New("document not found")
	ErrValidation = errors.New("validation failed")
)

/*
ARCHITECTURE NOTE: CONSISTENCY POLICY
---------------------------------------------------------
The document record is the source of truth; the blob store and the vector
index are derived projections. Every operation mutates the record first and
then makes best-effort calls to the projections. Only one collaborator
failure rolls state back: the worker trigger at upload time, because without
it the pipeline never starts. Everything else is logged, surfaced as a
warning string on an otherwise successful response, and left for manual
reconciliation.
*/

// Service owns every state transition of a document and the side effects
// that accompany it.
type Service interface {
	OnUploadCompleted(ctx context.Context, doc docModel.Document) (docModel.Document, string, error)
	OnWebhookStatus(ctx context.Context, documentId string, status string, message string, metadata map[string]any) error
	ToggleActive(ctx context.Context, documentId string, requestedActive bool) (docModel.Document, string, error)
	Delete(ctx context.Context, documentId string) (string, error)
}

type service struct {
	documents docModel.DocumentStore
	blobs     docModel.BlobStore
	hub       *events.Hub
	vectors   vectorsync.Coordinator
	worker    mlworker.Client
	locks     *docLocks
	logger    *logger_i.Logger
}

// NewService constructor - all collaborators injected so tests can swap them.
func NewService(documents docModel.DocumentStore, blobs docModel.BlobStore, hub *events.Hub, vectors vectorsync.Coordinator, worker mlworker.Client) Service {
	return &service{
		documents: documents,
		blobs:     blobs,
		hub:       hub,
		vectors:   vectors,
		worker:    worker,
		locks:     newDocLocks(),
		logger:    logger_i.NewLogger("Orchestrator"),
	}
}

// OnUploadCompleted persists the fresh record, optimistically announces that
// parsing is starting, and hands the document to the worker. A trigger failure
// is terminal (parsing_failed) but the upload itself stays successful - the
// blob and the record are already durable.
func (s *service) OnUploadCompleted(ctx context.Context, doc docModel.Document) (docModel.Document, string, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", doc.Id)

	doc.Status = docModel.StatusUploaded
	doc.IsActive = false
	now := time.Now()
	doc.CreatedTime = now
	doc.UpdatedTime = now
	if err := s.documents.SaveDocument(ctx, doc); err != nil {
		return doc, "", fmt.Errorf("saving document record: %w", err)
	}

	//optimistic: the worker has not confirmed receipt yet
	s.emit(doc.Id, string(docModel.StatusParsingStarted),
		fmt.Sprintf("Started processing document: %s", doc.OriginalFilename),
		map[string]any{"filename": doc.OriginalFilename, "fileType": doc.FileType})

	if err := s.worker.Trigger(ctx, doc.Id, doc.StoragePath, doc.FileType); err != nil {
		log.Error("Worker trigger failed, marking parsing_failed", "error", err)
		if updErr := s.documents.UpdateStatus(ctx, doc.Id, docModel.StatusParsingFailed); updErr != nil {
			log.Error("Could not record parsing_failed status", "error", updErr)
		}
		doc.Status = docModel.StatusParsingFailed
		s.emit(doc.Id, string(docModel.StatusParsingFailed),
			fmt.Sprintf("Failed to start processing: %s", doc.OriginalFilename),
			map[string]any{"filename": doc.OriginalFilename, "error": err.Error()})
		return doc, "document stored but processing could not be started", nil
	}

	log.Info("Upload accepted and processing triggered", "filename", doc.OriginalFilename)
	return doc, "", nil
}

// OnWebhookStatus applies an authenticated progress report from the worker.
// The status alphabet is validated but transition legality is not - the worker
// is trusted once authenticated, and calls apply last-write-wins.
func (s *service) OnWebhookStatus(ctx context.Context, documentId string, status string, message string, metadata map[string]any) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", documentId, "status", status)

	stage, _ := metadata["stage"].(string)
	canonical, ok := docModel.CanonicalStatus(status, stage)
	if !ok {
		log.Warn("Webhook carried unknown status, rejecting")
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	release := s.locks.acquire(documentId)
	defer release()

	if _, found := s.documents.GetDocument(ctx, documentId); !found {
		log.Warn("Webhook for unknown document, rejecting")
		return ErrNotFound
	}

	if err := s.documents.UpdateStatus(ctx, documentId, canonical); err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}
	metrics.CountWebhookEvent(status)
	log.Info("Document status updated from webhook", "canonicalStatus", canonical)

	//re-emit verbatim so clients see exactly what the worker reported
	s.emit(documentId, status, message, metadata)
	return nil
}

// ToggleActive flips retrieval eligibility. Activation is only legal for fully
// embedded documents; the vector index is synced best-effort afterwards.
func (s *service) ToggleActive(ctx context.Context, documentId string, requestedActive bool) (docModel.Document, string, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", documentId)

	release := s.locks.acquire(documentId)
	defer release()

	doc, found := s.documents.GetDocument(ctx, documentId)
	if !found {
		return doc, "", ErrNotFound
	}
	if requestedActive && doc.Status != docModel.StatusEmbedded {
		return doc, "", fmt.Errorf("%w: cannot activate document with status %q, only embedded documents can be activated", ErrValidation, doc.Status)
	}

	//record mutation happens-before the vector sync attempt
	if err := s.documents.SetActive(ctx, documentId, requestedActive); err != nil {
		return doc, "", fmt.Errorf("updating active flag: %w", err)
	}
	doc.IsActive = requestedActive
	doc.UpdatedTime = time.Now()

	warning := ""
	if !s.vectors.SetActive(ctx, documentId, requestedActive) {
		warning = "vector index sync failed, retrieval state may lag until reconciled"
		log.Warn("Vector activation sync failed", "requestedActive", requestedActive)
	}

	log.Info("Document active flag updated", "isActive", requestedActive)
	return doc, warning, nil
}

// Delete removes the record of truth and then independently attempts blob,
// vector and worker cleanup. Only the record delete can fail the request.
func (s *service) Delete(ctx context.Context, documentId string) (string, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", documentId)

	release := s.locks.acquire(documentId)
	defer release()

	doc, found := s.documents.GetDocument(ctx, documentId)
	if !found {
		return "", ErrNotFound
	}
	if err := s.documents.DeleteDocument(ctx, documentId); err != nil {
		return "", fmt.Errorf("deleting document record: %w", err)
	}

	//each cleanup is attempted regardless of the others failing
	var failures []string
	if err := s.blobs.Delete(ctx, doc.StoragePath); err != nil {
		log.Error("Blob cleanup failed", "storagePath", doc.StoragePath, "error", err)
		failures = append(failures, "file storage")
	}
	if !s.vectors.DeleteEmbeddings(ctx, documentId) {
		failures = append(failures, "vector index")
	}
	if !s.worker.DeleteDocument(ctx, documentId) {
		failures = append(failures, "processing service")
	}

	s.emit(documentId, "deleted",
		fmt.Sprintf("Document deleted: %s", doc.OriginalFilename),
		map[string]any{"filename": doc.OriginalFilename})

	if len(failures) > 0 {
		warning := fmt.Sprintf("cleanup incomplete: %s", strings.Join(failures, ", "))
		log.Warn("Document deleted with incomplete cleanup", "failures", failures)
		return warning, nil
	}
	log.Info("Document and derived data deleted")
	return "", nil
}

func (s *service) emit(documentId string, status string, message string, metadata map[string]any) {
	s.hub.Broadcast("document_processing", docModel.NotificationPayload{
		DocumentId: documentId,
		Status:     status,
		Message:    message,
		Metadata:   metadata,
		Timestamp:  time.Now(),
	})
}
