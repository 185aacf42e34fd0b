package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/docpanel/docflow/internal/domain/docModel"
	"github.com/docpanel/docflow/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem DocumentStore")

type InMemoryDocumentStore struct {
	docMutex *sync.RWMutex
	docMap   map[string]docModel.Document
}

func InitInMemoryDocumentStore() *InMemoryDocumentStore {
	return &InMemoryDocumentStore{
		docMutex: new(sync.RWMutex),
		docMap:   make(map[string]docModel.Document),
	}
}

func (store *InMemoryDocumentStore) SaveDocument(ctx context.Context, doc docModel.Document) error {
	store.docMutex.Lock()
	defer store.docMutex.Unlock()
	store.docMap[doc.Id] = doc
	inMemLogger.Debug("Saved document to store", "document Id", doc.Id)
	return nil
}

func (store *InMemoryDocumentStore) GetDocument(ctx context.Context, id string) (docModel.Document, bool) {
	store.docMutex.RLock()
	defer store.docMutex.RUnlock()
	result, found := store.docMap[id]
	return result, found
}

func (store *InMemoryDocumentStore) ListDocuments(ctx context.Context) ([]docModel.Document, error) {
	store.docMutex.RLock()
	defer store.docMutex.RUnlock()
	docs := make([]docModel.Document, 0, len(store.docMap))
	for _, doc := range store.docMap {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedTime.After(docs[j].CreatedTime) })
	return docs, nil
}

func (store *InMemoryDocumentStore) UpdateStatus(ctx context.Context, id string, status docModel.Status) error {
	return store.mutate(id, func(doc *docModel.Document) {
		doc.Status = status
	})
}

func (store *InMemoryDocumentStore) SetActive(ctx context.Context, id string, isActive bool) error {
	return store.mutate(id, func(doc *docModel.Document) {
		doc.IsActive = isActive
	})
}

func (store *InMemoryDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	store.docMutex.Lock()
	defer store.docMutex.Unlock()
	delete(store.docMap, id)
	return nil
}

func (store *InMemoryDocumentStore) mutate(id string, apply func(*docModel.Document)) error {
	store.docMutex.Lock()
	defer store.docMutex.Unlock()
	doc, found := store.docMap[id]
	if !found {
		return fmt.Errorf("document %s not found", id)
	}
	apply(&doc)
	doc.UpdatedTime = time.Now()
	store.docMap[id] = doc
	return nil
}
