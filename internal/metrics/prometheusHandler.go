package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var openEventConnections = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "open_event_connections",
	Help: "Number of live push connections registered with the event hub",
})

var eventsBroadcastTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "events_broadcast_total",
	Help: "Events fanned out to push connections, labelled by event name",
}, []string{"event"})

var webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "webhook_events_total",
	Help: "Inbound worker webhook calls, labelled by reported status",
}, []string{"status"})

var vectorSyncFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vector_sync_failures_total",
	Help: "Best-effort vector index calls that did not succeed, labelled by operation",
}, []string{"operation"})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps the recorder usable for event-stream responses.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack keeps the recorder usable for websocket upgrades.
func (r *HttpStatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hj, ok := r.ResponseWriter.(http.Hijacker); ok {
		return hj.Hijack()
	}
	return nil, nil, errors.New("response writer does not support hijacking")
}

func IncrementOpenConnections() {
	openEventConnections.Inc()
}

func DecrementOpenConnections() {
	openEventConnections.Dec()
}

func CountBroadcast(event string) {
	eventsBroadcastTotal.WithLabelValues(event).Inc()
}

func CountWebhookEvent(status string) {
	webhookEventsTotal.WithLabelValues(status).Inc()
}

func CountVectorSyncFailure(operation string) {
	vectorSyncFailuresTotal.WithLabelValues(operation).Inc()
}

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of external service calls.",
	Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
