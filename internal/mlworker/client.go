package mlworker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docpanel/docflow/internal/config"
	"github.com/docpanel/docflow/internal/customHttpClient"
	"github.com/docpanel/docflow/internal/metrics"
	"github.com/docpanel/docflow/pkg/logger_i"
)

// Client reaches the parsing/embedding microservice. Trigger sits on the
// critical path of starting the pipeline and returns a real error; the rest
// of the pipeline progresses through webhooks, not through this client.
type Client interface {
	Trigger(ctx context.Context, documentId string, storagePath string, fileType string) error
	DeleteDocument(ctx context.Context, documentId string) bool
	Chat(ctx context.Context, body []byte) ([]byte, int, error)
}

type client struct {
	baseURL       string
	triggerClient *http.Client
	deleteClient  *http.Client
	chatClient    *http.Client
	logger        *logger_i.Logger
}

func NewClient(baseURL string) Client {
	return &client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		triggerClient: customHttpClient.NewClient(config.WorkerTriggerTimeout),
		deleteClient:  customHttpClient.NewClient(config.WorkerDeleteTimeout),
		chatClient:    customHttpClient.NewClient(config.ChatProxyTimeout),
		logger:        logger_i.NewLogger("MLWorker"),
	}
}

type triggerRequest struct {
	DocumentId  string `json:"document_id"`
	StoragePath string `json:"storage_path"`
	FileType    string `json:"file_type"`
}

// Trigger asks the worker to start parsing an uploaded document. The worker
// acknowledges receipt and does the actual work in the background, reporting
// progress through the webhook gateway.
func (c *client) Trigger(ctx context.Context, documentId string, storagePath string, fileType string) error {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", documentId)
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("ml_worker", time.Since(start)) }()

	payload, err := json.Marshal(triggerRequest{
		DocumentId:  documentId,
		StoragePath: storagePath,
		FileType:    fileType,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse-document", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.triggerClient.Do(req)
	if err != nil {
		log.Error("Worker unreachable", "error", err)
		return fmt.Errorf("worker trigger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		log.Error("Worker rejected trigger", "status", resp.StatusCode, "body", string(body))
		return fmt.Errorf("worker trigger: status %d", resp.StatusCode)
	}

	log.Info("Worker accepted parse trigger")
	return nil
}

// DeleteDocument tells the worker to drop everything it derived from the
// document. Best effort - the caller already removed the record of truth.
func (c *client) DeleteDocument(ctx context.Context, documentId string) bool {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", documentId)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/delete-document/"+documentId, nil)
	if err != nil {
		log.Error("Building worker delete request failed", "error", err)
		return false
	}

	resp, err := c.deleteClient.Do(req)
	if err != nil {
		log.Error("Worker unreachable for delete", "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error("Worker delete reported failure", "status", resp.StatusCode)
		return false
	}
	return true
}

// Chat proxies a RAG query through to the worker verbatim.
func (c *client) Chat(ctx context.Context, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.chatClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return respBody, resp.StatusCode, nil
}
