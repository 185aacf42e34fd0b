package vectorsync

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/docpanel/docflow/internal/config"
	"github.com/docpanel/docflow/internal/customHttpClient"
	"github.com/docpanel/docflow/internal/metrics"
	"github.com/docpanel/docflow/pkg/logger_i"
)

// Coordinator keeps the external vector index loosely consistent with the
// document record. Every call is best effort: the record of truth has already
// been mutated by the time the coordinator runs, so a failure here is reported
// as a boolean and logged for later reconciliation, never raised.
type Coordinator interface {
	SetActive(ctx context.Context, documentId string, isActive bool) bool
	DeleteEmbeddings(ctx context.Context, documentId string) bool
	HealthCheck(ctx context.Context) bool
}

type coordinator struct {
	baseURL      string
	syncClient   *http.Client
	healthClient *http.Client
	logger       *logger_i.Logger
}

func NewCoordinator(baseURL string) Coordinator {
	return &coordinator{
		baseURL:      strings.TrimRight(baseURL, "/"),
		syncClient:   customHttpClient.NewClient(config.VectorSyncTimeout),
		healthClient: customHttpClient.NewClient(config.VectorHealthTimeout),
		logger:       logger_i.NewLogger("VectorSync"),
	}
}

func (c *coordinator) SetActive(ctx context.Context, documentId string, isActive bool) bool {
	url := fmt.Sprintf("%s/vector/document/%s/active?is_active=%s",
		c.baseURL, documentId, strconv.FormatBool(isActive))
	return c.call(ctx, c.syncClient, http.MethodPatch, url, "set_active", documentId)
}

func (c *coordinator) DeleteEmbeddings(ctx context.Context, documentId string) bool {
	url := fmt.Sprintf("%s/vector/document/%s", c.baseURL, documentId)
	return c.call(ctx, c.syncClient, http.MethodDelete, url, "delete_embeddings", documentId)
}

func (c *coordinator) HealthCheck(ctx context.Context) bool {
	return c.call(ctx, c.healthClient, http.MethodGet, c.baseURL+"/vector/health", "health", "")
}

func (c *coordinator) call(ctx context.Context, client *http.Client, method string, url string, operation string, documentId string) bool {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "operation", operation, "documentId", documentId)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_index", time.Since(start)) }()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		log.Error("Building vector index request failed", "error", err)
		metrics.CountVectorSyncFailure(operation)
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		//transport-level failure: host down, DNS, timeout
		log.Error("Vector index unreachable", "url", url, "error", err)
		metrics.CountVectorSyncFailure(operation)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		//the index answered and reported a failure
		log.Error("Vector index reported failure", "url", url, "status", resp.StatusCode)
		metrics.CountVectorSyncFailure(operation)
		return false
	}

	log.Debug("Vector index call succeeded")
	return true
}
