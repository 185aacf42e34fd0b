package server

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/docpanel/docflow/internal/adapter/utils"
	"github.com/docpanel/docflow/internal/config"
	"github.com/docpanel/docflow/internal/events"
	"github.com/docpanel/docflow/internal/middleware"
	"github.com/docpanel/docflow/pkg/logger_i"
)

var (
	server  *http.Server
	_logger *logger_i.Logger
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	Hub              *events.Hub
	CloseServices    context.CancelFunc
}

func CreateServer(listenAddr string) {
	_logger = logger_i.NewLogger("Server")

	r := utils.GetRouter()

	r.Router.Get("/health", middleware.HealthHandler)

	r.Router.Post("/api/v1/documents", middleware.UploadDocumentHandler)
	r.Router.Get("/api/v1/documents", middleware.ListDocumentsHandler)
	r.Router.Get("/api/v1/documents/{id}", middleware.GetDocumentHandler)
	r.Router.Patch("/api/v1/documents/{id}/active", middleware.ToggleActiveHandler)
	r.Router.Delete("/api/v1/documents/{id}", middleware.DeleteDocumentHandler)
	r.Router.Post("/api/v1/chat", middleware.ChatHandler)
	r.Router.Get("/api/v1/vector/health", middleware.VectorHealthHandler)

	r.Router.Post("/api/v1/events/webhook/document-processing", middleware.ProcessingWebhookHandler)
	r.Router.Get("/api/v1/events/stream", middleware.StreamEventsHandler)
	r.Router.Get("/api/v1/events/ws", middleware.EventsWebsocketHandler)
	r.Router.Get("/api/v1/events/connections", middleware.ListConnectionsHandler)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error :", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	println("\nServer is shutting down", state)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		//closing the hub first releases the handlers parked on open streams,
		//otherwise Shutdown waits on them until the context deadline
		shutdownParams.Hub.Shutdown()

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "error", err)
		}

		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
