package handlers

import (
	"sync"

	"github.com/docpanel/docflow/internal/domain/docModel"
	"github.com/docpanel/docflow/internal/events"
	"github.com/docpanel/docflow/internal/mlworker"
	"github.com/docpanel/docflow/internal/orchestrator"
	"github.com/docpanel/docflow/internal/vectorsync"
	"github.com/docpanel/docflow/pkg/logger_i"
	"github.com/go-playground/validator/v10"
)

var (
	handlerInstance *DocumentHandler //private singleton
	once            sync.Once
	logDH           *logger_i.Logger
	logRH           *logger_i.Logger
)

type DocumentHandler struct {
	service   orchestrator.Service
	documents docModel.DocumentStore
	blobs     docModel.BlobStore
	hub       *events.Hub
	vectors   vectorsync.Coordinator
	worker    mlworker.Client
	validate  *validator.Validate
}

type HandlerConfig struct {
	Service   orchestrator.Service
	Documents docModel.DocumentStore
	Blobs     docModel.BlobStore
	Hub       *events.Hub
	Vectors   vectorsync.Coordinator
	Worker    mlworker.Client
}

func InitHandlers(cfg HandlerConfig) {
	once.Do(func() {
		handlerInstance = &DocumentHandler{
			service:   cfg.Service,
			documents: cfg.Documents,
			blobs:     cfg.Blobs,
			hub:       cfg.Hub,
			vectors:   cfg.Vectors,
			worker:    cfg.Worker,
			validate:  validator.New(),
		}

		logDH = logger_i.NewLogger("DocumentHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logDH.Info("Starting document handlers")
	})
}
