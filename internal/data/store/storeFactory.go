package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/docpanel/docflow/internal/domain/docModel"
	"github.com/docpanel/docflow/pkg/logger_i"
)

// BuildDocumentStoreFromDSN selects the record-of-truth backend by DSN scheme:
// postgres://... for the relational store, redis://... for redis, memory:// for
// the in-process map. An unreachable redis falls back to the in-memory store so
// the API stays up in dev, the same cannot be tolerated for postgres.
func BuildDocumentStoreFromDSN(ctx context.Context, dsn string) (docModel.DocumentStore, error) {
	logger := logger_i.NewLogger("StoreFactory")
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return InitInMemoryDocumentStore(), nil
	}
	parsed, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql":
		return NewPostgresDocumentStore(ctx, dsn)
	case "redis", "":
		if s := GetRedisDocumentStore(ctx); s != nil {
			return s, nil
		}
		logger.Warn("Redis is offline, falling back to in-memory document store")
		return InitInMemoryDocumentStore(), nil
	case "memory", "mem", "inmem":
		return InitInMemoryDocumentStore(), nil
	default:
		return nil, fmt.Errorf("unsupported document store scheme: %s", parsed.Scheme)
	}
}
