package middleware

import (
	"net/http"
	"strconv"

	"github.com/docpanel/docflow/internal/handlers"
	"github.com/docpanel/docflow/internal/metrics"
	"github.com/docpanel/docflow/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

// Authenticated management surface.
var (
	UploadDocumentHandler  = Wrap(handlers.UploadDocumentHandler)
	ListDocumentsHandler   = Wrap(handlers.ListDocumentsHandler)
	GetDocumentHandler     = Wrap(handlers.GetDocumentHandler)
	ToggleActiveHandler    = Wrap(handlers.ToggleActiveHandler)
	DeleteDocumentHandler  = Wrap(handlers.DeleteDocumentHandler)
	ChatHandler            = Wrap(handlers.ChatHandler)
	ListConnectionsHandler = Wrap(handlers.ListConnectionsHandler)
	VectorHealthHandler    = Wrap(handlers.VectorHealthHandler)
)

// Public surface: the webhook authenticates with its own shared key and the
// event streams are consumed by browsers that cannot set Authorization headers.
var (
	ProcessingWebhookHandler = WrapPublic(handlers.ProcessingWebhookHandler)
	StreamEventsHandler      = WrapPublic(handlers.StreamEventsHandler)
	EventsWebsocketHandler   = WrapPublic(handlers.EventsWebsocketHandler)
	HealthHandler            = WrapPublic(handlers.HealthHandler)
)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec}, true)

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

// WrapPublic keeps tracing, rate limiting and metrics but skips bearer auth.
func WrapPublic(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec}, false)

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct, requireAuth bool) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received")

	re = injectTrace(re)
	if !requireAuth {
		//webhook and stream traffic: the worker must never be throttled out
		//of reporting progress, so no rate limit either
		return re
	}
	re = authenticate(re)
	if re.badRequest.isBadRequest {
		return re //stop if auth fails
	}
	re = rateLimiter(re)
	return re
}
