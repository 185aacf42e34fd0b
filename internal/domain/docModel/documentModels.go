package docModel

import (
	"context"
	"time"
)

type Status string

const (
	StatusUploaded        Status = "uploaded"
	StatusParsingStarted  Status = "parsing_started"
	StatusParsed          Status = "parsed"
	StatusEmbedding       Status = "embedding"
	StatusEmbedded        Status = "embedded"
	StatusParsingFailed   Status = "parsing_failed"
	StatusEmbeddingFailed Status = "embedding_failed"
)

// Document is the relational record of truth for one uploaded artifact.
// The vector index and the blob store are derived projections of it.
type Document struct {
	Id               string    `json:"id"`
	DivisionId       string    `json:"division_id,omitempty"`
	OriginalFilename string    `json:"original_filename"`
	StoragePath      string    `json:"storage_path"`
	FileType         string    `json:"file_type"`
	Status           Status    `json:"status"`
	IsActive         bool      `json:"is_active"`
	UploadedBy       string    `json:"uploaded_by,omitempty"`
	CreatedTime      time.Time `json:"created_time"`
	UpdatedTime      time.Time `json:"updated_time"`
}

// NotificationPayload is the event fanned out to push connections.
// Fire and forget - it is never persisted.
type NotificationPayload struct {
	DocumentId string         `json:"documentId"`
	Status     string         `json:"status"`
	Message    string         `json:"message"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

type DocumentStore interface {
	SaveDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, id string) (Document, bool)
	ListDocuments(ctx context.Context) ([]Document, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	SetActive(ctx context.Context, id string, isActive bool) error
	DeleteDocument(ctx context.Context, id string) error
}

type BlobStore interface {
	Put(ctx context.Context, storagePath string, data []byte) error
	Get(ctx context.Context, storagePath string) ([]byte, error)
	Delete(ctx context.Context, storagePath string) error
}

// KnownStatus reports whether s is part of the lifecycle alphabet. The webhook
// gateway rejects anything else instead of writing arbitrary strings into the record.
func KnownStatus(s Status) bool {
	switch s {
	case StatusUploaded, StatusParsingStarted, StatusParsed, StatusEmbedding,
		StatusEmbedded, StatusParsingFailed, StatusEmbeddingFailed:
		return true
	}
	return false
}

// CanonicalStatus maps the worker's wire statuses onto the lifecycle alphabet.
// The worker reports "parsing" when it picks a document up and a bare "failed"
// with the stage in metadata; both predate this service and stay on the wire.
func CanonicalStatus(wire string, stage string) (Status, bool) {
	switch wire {
	case "parsing":
		return StatusParsingStarted, true
	case "failed":
		if stage == "embedding" {
			return StatusEmbeddingFailed, true
		}
		return StatusParsingFailed, true
	}
	s := Status(wire)
	if KnownStatus(s) {
		return s, true
	}
	return "", false
}

// Terminal reports whether the pipeline makes no further automatic transition
// out of s. Deletion is still allowed from any status.
func (s Status) Terminal() bool {
	return s == StatusEmbedded || s == StatusParsingFailed || s == StatusEmbeddingFailed
}
