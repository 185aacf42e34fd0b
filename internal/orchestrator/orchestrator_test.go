package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docpanel/docflow/internal/domain/docModel"
	"github.com/docpanel/docflow/internal/events"
)

type MockDocumentStore struct {
	mu   sync.Mutex
	docs map[string]docModel.Document

	OnSave         func(ctx context.Context, doc docModel.Document) error
	OnUpdateStatus func(ctx context.Context, id string, status docModel.Status) error
	OnDelete       func(ctx context.Context, id string) error
}

func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{docs: make(map[string]docModel.Document)}
}

func (m *MockDocumentStore) SaveDocument(ctx context.Context, doc docModel.Document) error {
	if m.OnSave != nil {
		if err := m.OnSave(ctx, doc); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.Id] = doc
	return nil
}

func (m *MockDocumentStore) GetDocument(ctx context.Context, id string) (docModel.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, found := m.docs[id]
	return doc, found
}

func (m *MockDocumentStore) ListDocuments(ctx context.Context) ([]docModel.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]docModel.Document, 0, len(m.docs))
	for _, doc := range m.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (m *MockDocumentStore) UpdateStatus(ctx context.Context, id string, status docModel.Status) error {
	if m.OnUpdateStatus != nil {
		if err := m.OnUpdateStatus(ctx, id, status); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, found := m.docs[id]
	if !found {
		return errors.New("document not found")
	}
	doc.Status = status
	m.docs[id] = doc
	return nil
}

func (m *MockDocumentStore) SetActive(ctx context.Context, id string, isActive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, found := m.docs[id]
	if !found {
		return errors.New("document not found")
	}
	doc.IsActive = isActive
	m.docs[id] = doc
	return nil
}

func (m *MockDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	if m.OnDelete != nil {
		if err := m.OnDelete(ctx, id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

type MockBlobStore struct {
	OnDelete func(ctx context.Context, storagePath string) error
	deleted  []string
	mu       sync.Mutex
}

func (m *MockBlobStore) Put(ctx context.Context, storagePath string, data []byte) error { return nil }
func (m *MockBlobStore) Get(ctx context.Context, storagePath string) ([]byte, error) {
	return nil, errors.New("not stored")
}
func (m *MockBlobStore) Delete(ctx context.Context, storagePath string) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, storagePath)
	m.mu.Unlock()
	if m.OnDelete != nil {
		return m.OnDelete(ctx, storagePath)
	}
	return nil
}

type MockCoordinator struct {
	SetActiveOk  bool
	DeleteOk     bool
	HealthOk     bool
	setActiveLog []bool
	mu           sync.Mutex
}

func (m *MockCoordinator) SetActive(ctx context.Context, documentId string, isActive bool) bool {
	m.mu.Lock()
	m.setActiveLog = append(m.setActiveLog, isActive)
	m.mu.Unlock()
	return m.SetActiveOk
}
func (m *MockCoordinator) DeleteEmbeddings(ctx context.Context, documentId string) bool {
	return m.DeleteOk
}
func (m *MockCoordinator) HealthCheck(ctx context.Context) bool { return m.HealthOk }

func (m *MockCoordinator) setActiveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.setActiveLog)
}

type MockWorker struct {
	OnTrigger func(ctx context.Context, documentId string, storagePath string, fileType string) error
	DeleteOk  bool
}

func (m *MockWorker) Trigger(ctx context.Context, documentId string, storagePath string, fileType string) error {
	if m.OnTrigger != nil {
		return m.OnTrigger(ctx, documentId, storagePath, fileType)
	}
	return nil
}
func (m *MockWorker) DeleteDocument(ctx context.Context, documentId string) bool { return m.DeleteOk }
func (m *MockWorker) Chat(ctx context.Context, body []byte) ([]byte, int, error) {
	return []byte(`{}`), 200, nil
}

// captureSink collects broadcast events so tests can assert on fan-out.
type captureSink struct {
	mu     sync.Mutex
	events []string
}

func (c *captureSink) Send(event string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}
func (c *captureSink) Close() error { return nil }
func (c *captureSink) count(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e == event {
			n++
		}
	}
	return n
}

type fixture struct {
	documents *MockDocumentStore
	blobs     *MockBlobStore
	vectors   *MockCoordinator
	worker    *MockWorker
	hub       *events.Hub
	sink      *captureSink
	service   Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		documents: NewMockDocumentStore(),
		blobs:     &MockBlobStore{},
		vectors:   &MockCoordinator{SetActiveOk: true, DeleteOk: true, HealthOk: true},
		worker:    &MockWorker{DeleteOk: true},
		hub:       events.NewHub(),
		sink:      &captureSink{},
	}
	f.hub.Register("test-client", f.sink)
	f.service = NewService(f.documents, f.blobs, f.hub, f.vectors, f.worker)
	t.Cleanup(f.hub.Shutdown)
	return f
}

func seedDocument(f *fixture, id string, status docModel.Status) docModel.Document {
	doc := docModel.Document{
		Id:               id,
		OriginalFilename: "report.pdf",
		StoragePath:      "blob/report.pdf",
		FileType:         "pdf",
		Status:           status,
	}
	f.documents.docs[id] = doc
	return doc
}

func TestOnUploadCompleted(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path triggers worker and announces parsing", func(t *testing.T) {
		f := newFixture(t)

		doc, warning, err := f.service.OnUploadCompleted(ctx, docModel.Document{
			Id: "d1", OriginalFilename: "a.pdf", StoragePath: "p/a.pdf", FileType: "pdf",
		})
		if err != nil {
			t.Fatalf("OnUploadCompleted failed: %v", err)
		}
		if warning != "" {
			t.Errorf("unexpected warning %q", warning)
		}
		if doc.Status != docModel.StatusUploaded {
			t.Errorf("status = %s, want uploaded", doc.Status)
		}
		if doc.IsActive {
			t.Error("fresh document must not be active")
		}
		if f.sink.count("document_processing") != 1 {
			t.Errorf("broadcasts = %d, want 1", f.sink.count("document_processing"))
		}
	})

	t.Run("dead worker marks parsing_failed but upload succeeds", func(t *testing.T) {
		f := newFixture(t)
		f.worker.OnTrigger = func(ctx context.Context, id, path, ft string) error {
			return errors.New("connection refused")
		}

		doc, warning, err := f.service.OnUploadCompleted(ctx, docModel.Document{
			Id: "d2", OriginalFilename: "b.pdf", StoragePath: "p/b.pdf", FileType: "pdf",
		})
		if err != nil {
			t.Fatalf("upload must not fail on trigger error, got: %v", err)
		}
		if warning == "" {
			t.Error("expected a degradation warning")
		}
		if doc.Status != docModel.StatusParsingFailed {
			t.Errorf("status = %s, want parsing_failed", doc.Status)
		}

		stored, _ := f.documents.GetDocument(ctx, "d2")
		if stored.Status != docModel.StatusParsingFailed {
			t.Errorf("stored status = %s, want parsing_failed", stored.Status)
		}
		// one optimistic parsing_started plus one parsing_failed
		if f.sink.count("document_processing") != 2 {
			t.Errorf("broadcasts = %d, want 2", f.sink.count("document_processing"))
		}
	})

	t.Run("store failure fails the upload", func(t *testing.T) {
		f := newFixture(t)
		f.documents.OnSave = func(ctx context.Context, doc docModel.Document) error {
			return errors.New("redis down")
		}
		_, _, err := f.service.OnUploadCompleted(ctx, docModel.Document{Id: "d3"})
		if err == nil {
			t.Fatal("expected error when the record cannot be saved")
		}
	})
}

func TestOnWebhookStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("embedded report updates record and broadcasts", func(t *testing.T) {
		f := newFixture(t)
		seedDocument(f, "d1", docModel.StatusEmbedding)

		err := f.service.OnWebhookStatus(ctx, "d1", "embedded", "done", nil)
		if err != nil {
			t.Fatalf("OnWebhookStatus failed: %v", err)
		}
		doc, _ := f.documents.GetDocument(ctx, "d1")
		if doc.Status != docModel.StatusEmbedded {
			t.Errorf("status = %s, want embedded", doc.Status)
		}
		if f.sink.count("document_processing") != 1 {
			t.Errorf("broadcasts = %d, want 1", f.sink.count("document_processing"))
		}
	})

	t.Run("worker wire status parsing maps to parsing_started", func(t *testing.T) {
		f := newFixture(t)
		seedDocument(f, "d1", docModel.StatusUploaded)

		if err := f.service.OnWebhookStatus(ctx, "d1", "parsing", "", nil); err != nil {
			t.Fatalf("OnWebhookStatus failed: %v", err)
		}
		doc, _ := f.documents.GetDocument(ctx, "d1")
		if doc.Status != docModel.StatusParsingStarted {
			t.Errorf("status = %s, want parsing_started", doc.Status)
		}
	})

	t.Run("failed with embedding stage maps to embedding_failed", func(t *testing.T) {
		f := newFixture(t)
		seedDocument(f, "d1", docModel.StatusEmbedding)

		err := f.service.OnWebhookStatus(ctx, "d1", "failed", "oom", map[string]any{"stage": "embedding"})
		if err != nil {
			t.Fatalf("OnWebhookStatus failed: %v", err)
		}
		doc, _ := f.documents.GetDocument(ctx, "d1")
		if doc.Status != docModel.StatusEmbeddingFailed {
			t.Errorf("status = %s, want embedding_failed", doc.Status)
		}
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		f := newFixture(t)
		seedDocument(f, "d1", docModel.StatusUploaded)

		err := f.service.OnWebhookStatus(ctx, "d1", "exploded", "", nil)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
		doc, _ := f.documents.GetDocument(ctx, "d1")
		if doc.Status != docModel.StatusUploaded {
			t.Errorf("status mutated to %s on rejected webhook", doc.Status)
		}
		if f.sink.count("document_processing") != 0 {
			t.Error("rejected webhook must not broadcast")
		}
	})

	t.Run("unknown document is rejected", func(t *testing.T) {
		f := newFixture(t)
		err := f.service.OnWebhookStatus(ctx, "ghost", "embedded", "", nil)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestToggleActive(t *testing.T) {
	ctx := context.Background()

	t.Run("activating an embedded document syncs the vector index", func(t *testing.T) {
		f := newFixture(t)
		seedDocument(f, "d1", docModel.StatusEmbedded)

		doc, warning, err := f.service.ToggleActive(ctx, "d1", true)
		if err != nil {
			t.Fatalf("ToggleActive failed: %v", err)
		}
		if warning != "" {
			t.Errorf("unexpected warning %q", warning)
		}
		if !doc.IsActive {
			t.Error("document should be active")
		}
		if f.vectors.setActiveCalls() != 1 {
			t.Errorf("coordinator calls = %d, want 1", f.vectors.setActiveCalls())
		}
	})

	t.Run("activating a non-embedded document is rejected before any sync", func(t *testing.T) {
		f := newFixture(t)
		seedDocument(f, "d1", docModel.StatusParsed)

		_, _, err := f.service.ToggleActive(ctx, "d1", true)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("err = %v, want ErrValidation", err)
		}
		if f.vectors.setActiveCalls() != 0 {
			t.Error("coordinator must not be called on a rejected activation")
		}
		doc, _ := f.documents.GetDocument(ctx, "d1")
		if doc.IsActive {
			t.Error("record must stay inactive")
		}
	})

	t.Run("deactivation is legal in any status", func(t *testing.T) {
		f := newFixture(t)
		doc := seedDocument(f, "d1", docModel.StatusParsingFailed)
		doc.IsActive = true
		f.documents.docs["d1"] = doc

		got, _, err := f.service.ToggleActive(ctx, "d1", false)
		if err != nil {
			t.Fatalf("ToggleActive failed: %v", err)
		}
		if got.IsActive {
			t.Error("document should be inactive")
		}
	})

	t.Run("vector sync failure degrades to a warning", func(t *testing.T) {
		f := newFixture(t)
		f.vectors.SetActiveOk = false
		seedDocument(f, "d1", docModel.StatusEmbedded)

		doc, warning, err := f.service.ToggleActive(ctx, "d1", true)
		if err != nil {
			t.Fatalf("ToggleActive failed: %v", err)
		}
		if warning == "" {
			t.Error("expected a sync warning")
		}
		// the record keeps the new value, it is the source of truth
		if !doc.IsActive {
			t.Error("record flip must survive the failed sync")
		}
	})

	t.Run("unknown document", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.service.ToggleActive(ctx, "ghost", true)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path removes record and all projections", func(t *testing.T) {
		f := newFixture(t)
		seedDocument(f, "d1", docModel.StatusEmbedded)

		warning, err := f.service.Delete(ctx, "d1")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if warning != "" {
			t.Errorf("unexpected warning %q", warning)
		}
		if _, found := f.documents.GetDocument(ctx, "d1"); found {
			t.Error("record still present")
		}
		if len(f.blobs.deleted) != 1 || f.blobs.deleted[0] != "blob/report.pdf" {
			t.Errorf("blob deletions = %v", f.blobs.deleted)
		}
		if f.sink.count("document_processing") != 1 {
			t.Error("deletion should broadcast once")
		}
	})

	t.Run("partial cleanup failure still deletes the record", func(t *testing.T) {
		f := newFixture(t)
		f.blobs.OnDelete = func(ctx context.Context, p string) error { return errors.New("disk gone") }
		f.vectors.DeleteOk = false
		seedDocument(f, "d1", docModel.StatusEmbedded)

		warning, err := f.service.Delete(ctx, "d1")
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if !strings.Contains(warning, "file storage") || !strings.Contains(warning, "vector index") {
			t.Errorf("warning %q should name the failed projections", warning)
		}
		if _, found := f.documents.GetDocument(ctx, "d1"); found {
			t.Error("record must be gone despite cleanup failures")
		}
	})

	t.Run("record delete failure fails the request", func(t *testing.T) {
		f := newFixture(t)
		f.documents.OnDelete = func(ctx context.Context, id string) error { return errors.New("redis down") }
		seedDocument(f, "d1", docModel.StatusEmbedded)

		_, err := f.service.Delete(ctx, "d1")
		if err == nil {
			t.Fatal("expected error when the record cannot be deleted")
		}
		if len(f.blobs.deleted) != 0 {
			t.Error("projections must not be touched when the record delete fails")
		}
	})

	t.Run("unknown document", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.Delete(ctx, "ghost")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestDocLocks(t *testing.T) {
	locks := newDocLocks()

	t.Run("serializes the same id", func(t *testing.T) {
		release := locks.acquire("d1")
		acquired := make(chan struct{})
		go func() {
			r := locks.acquire("d1")
			close(acquired)
			r()
		}()

		time.Sleep(50 * time.Millisecond)
		select {
		case <-acquired:
			t.Fatal("second acquire should block while first holds the lock")
		default:
		}

		release()
		<-acquired
	})

	t.Run("entries are reclaimed", func(t *testing.T) {
		release := locks.acquire("d2")
		release()
		locks.mu.Lock()
		_, exists := locks.locks["d2"]
		locks.mu.Unlock()
		if exists {
			t.Error("released entry should be removed from the map")
		}
	})
}
