// @title           Document Control Panel API
// @version         1.0
// @description     Document lifecycle orchestration with real-time processing events

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:4000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/docpanel/docflow/internal/config"
	"github.com/docpanel/docflow/internal/data/blob"
	"github.com/docpanel/docflow/internal/data/store"
	"github.com/docpanel/docflow/internal/events"
	"github.com/docpanel/docflow/internal/handlers"
	"github.com/docpanel/docflow/internal/mlworker"
	"github.com/docpanel/docflow/internal/orchestrator"
	"github.com/docpanel/docflow/internal/server"
	"github.com/docpanel/docflow/internal/vectorsync"
	"github.com/docpanel/docflow/pkg/logger_i"
)

var listenAddr string

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	config.Load()
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//document record store, picked by DSN scheme
	documentStore, err := store.BuildDocumentStoreFromDSN(serviceContext, config.DocumentStoreDSN)
	if err != nil {
		logger.Error("Could not build document store", "dsn", config.DocumentStoreDSN, "error", err)
		return
	}

	blobStore, err := blob.NewDiskBlobStore(config.BlobDirectory)
	if err != nil {
		logger.Error("Could not initialize blob storage", "directory", config.BlobDirectory, "error", err)
		return
	}

	//event fan-out
	hub := events.NewHub()
	hub.Run(config.HeartbeatInterval)

	vectorCoordinator := vectorsync.NewCoordinator(config.WorkerBaseURL)
	workerClient := mlworker.NewClient(config.WorkerBaseURL)

	orchestratorService := orchestrator.NewService(documentStore, blobStore, hub, vectorCoordinator, workerClient)

	handlers.InitHandlers(handlers.HandlerConfig{
		Service:   orchestratorService,
		Documents: documentStore,
		Blobs:     blobStore,
		Hub:       hub,
		Vectors:   vectorCoordinator,
		Worker:    workerClient,
	})

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		Hub:              hub,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
