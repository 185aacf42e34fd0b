package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/docpanel/docflow/internal/config"
	"github.com/docpanel/docflow/internal/data/redisStore"
	"github.com/docpanel/docflow/internal/domain/docModel"
	"github.com/docpanel/docflow/pkg/logger_i"
)

const documentKeyPrefix = "document:"

type RedisDocumentStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisDocumentStore(ctx context.Context) *RedisDocumentStore {
	inner := redisStore.GetRedisStore(ctx, config.RedisDocumentDB)
	if inner == nil {
		return nil
	}
	return &RedisDocumentStore{
		store:  inner,
		logger: logger_i.NewLogger("DocumentStore"),
	}
}

func documentKey(id string) string {
	return documentKeyPrefix + id
}

func (s *RedisDocumentStore) SaveDocument(ctx context.Context, doc docModel.Document) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "document Id", doc.Id)
	log.Debug("saving document")
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	err = s.store.Set(ctx, documentKey(doc.Id), data, config.RedisDocumentTTL)
	if err == nil {
		log.Debug("Saved document to Redis")
	}
	return err
}

func (s *RedisDocumentStore) GetDocument(ctx context.Context, id string) (docModel.Document, bool) {
	var doc docModel.Document
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "document Id", id)
	val, err := s.store.Get(ctx, documentKey(id))
	if s.store.IsNil(err) {
		return doc, false
	} else if err != nil {
		log.Error("Error reading document from Redis", "error", err)
		return doc, false
	}

	if err = json.Unmarshal([]byte(val), &doc); err != nil {
		log.Error("Corrupt document record", "error", err)
		return doc, false
	}
	return doc, true
}

func (s *RedisDocumentStore) ListDocuments(ctx context.Context) ([]docModel.Document, error) {
	keys, err := s.store.ScanKeys(ctx, documentKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	docs := make([]docModel.Document, 0, len(keys))
	for _, key := range keys {
		val, err := s.store.Get(ctx, key)
		if s.store.IsNil(err) {
			continue //deleted between scan and get
		} else if err != nil {
			return nil, err
		}
		var doc docModel.Document
		if err := json.Unmarshal([]byte(val), &doc); err != nil {
			s.logger.Error("Skipping corrupt document record", "key", key, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedTime.After(docs[j].CreatedTime) })
	return docs, nil
}

func (s *RedisDocumentStore) UpdateStatus(ctx context.Context, id string, status docModel.Status) error {
	return s.mutate(ctx, id, func(doc *docModel.Document) {
		doc.Status = status
	})
}

func (s *RedisDocumentStore) SetActive(ctx context.Context, id string, isActive bool) error {
	return s.mutate(ctx, id, func(doc *docModel.Document) {
		doc.IsActive = isActive
	})
}

func (s *RedisDocumentStore) DeleteDocument(ctx context.Context, id string) error {
	err := s.store.Del(ctx, documentKey(id))
	if err != nil {
		s.logger.Error("Error deleting document from Redis", "document Id", id, "error", err)
		return err
	}
	s.logger.Debug("Document deleted from Redis", "document Id", id)
	return nil
}

func (s *RedisDocumentStore) mutate(ctx context.Context, id string, apply func(*docModel.Document)) error {
	doc, found := s.GetDocument(ctx, id)
	if !found {
		return fmt.Errorf("document %s not found", id)
	}
	apply(&doc)
	doc.UpdatedTime = time.Now()
	return s.SaveDocument(ctx, doc)
}

func TestDocumentStore(store *redisStore.Store) *RedisDocumentStore {
	return &RedisDocumentStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
