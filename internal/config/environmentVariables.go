package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo
	TRACE_ID_KEY   = "traceId"

	RATE_LIMIT_PER_SECOND       = 5
	BURST_RATE_LIMIT_PER_SECOND = 10

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 0 //event stream connections stay open - the hub prunes dead ones
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":4000"

	//event hub
	HeartbeatInterval = 30 * time.Second
	WSWriteTimeout    = 5 * time.Second

	//ml worker (the parsing/embedding microservice)
	WorkerTriggerTimeout = 10 * time.Second
	WorkerDeleteTimeout  = 10 * time.Second
	ChatProxyTimeout     = 60 * time.Second

	//vector index sync
	VectorSyncTimeout   = 30 * time.Second
	VectorHealthTimeout = 5 * time.Second

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//uploads
	MaxUploadSize = 32 << 20 //32mb

	//redis has 16 DB we can use
	RedisDocumentDB = 0

	RedisDocumentTTL = time.Duration(0) //documents are the record of truth, they never expire
)

var (
	AuthToken        = "dev-token"
	NoAuthBypass     = false
	WebhookSecret    = "default-key"
	WorkerBaseURL    = "http://localhost:8000"
	RedisAddr        = "127.0.0.1:6379"
	RedisPassword    = ""
	DocumentStoreDSN = "redis://127.0.0.1:6379"
	BlobDirectory    = "blob_data"
)

// Load pulls overrides from the environment. A missing .env file is fine,
// the vars above are the dev defaults.
func Load() {
	_ = godotenv.Load()

	setFromEnv(&AuthToken, "AUTH_TOKEN")
	setFromEnv(&WebhookSecret, "WEBHOOK_SECRET")
	setFromEnv(&WorkerBaseURL, "ML_WORKER_URL")
	setFromEnv(&RedisAddr, "REDIS_ADDR")
	setFromEnv(&RedisPassword, "REDIS_PASSWORD")
	setFromEnv(&DocumentStoreDSN, "DOCUMENT_STORE_DSN")
	setFromEnv(&BlobDirectory, "BLOB_DIR")
	if os.Getenv("NO_AUTH_BYPASS") == "true" {
		NoAuthBypass = true
	}
}

func setFromEnv(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}
