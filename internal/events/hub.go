package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/docpanel/docflow/internal/metrics"
	"github.com/docpanel/docflow/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: HUB OWNERSHIP
---------------------------------------------------------
The hub is the sole owner of every live push connection. Handlers hand a sink
over at Register and never touch it again - all delivery, failure detection and
cleanup happens here. A connection that fails a single write is pruned
immediately: there is no buffering and no retry of missed events, reconnecting
clients start from the current state.
*/

// EventSink is one connection's outbound half. Implementations must tolerate
// Close being called more than once.
type EventSink interface {
	Send(event string, data []byte) error
	Close() error
}

// Client is the hub's registration record for one live push connection.
type Client struct {
	Id          string
	ConnectedAt time.Time
	sink        EventSink
}

type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	shutdown bool
	stopBeat chan struct{}
	beatOnce sync.Once
	logger   *logger_i.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		stopBeat: make(chan struct{}),
		logger:   logger_i.NewLogger("EventHub"),
	}
}

// Run starts the heartbeat ticker. Call once, pair with Shutdown.
func (h *Hub) Run(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.Heartbeat()
			case <-h.stopBeat:
				return
			}
		}
	}()
}

// Register adds a connection and greets it with a synthetic connected event.
// A colliding id overwrites the previous entry - accepted behavior, the old
// sink is closed first.
func (h *Hub) Register(connectionId string, sink EventSink) {
	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		_ = sink.Close()
		return
	}
	if old, exists := h.clients[connectionId]; exists {
		_ = old.sink.Close()
		metrics.DecrementOpenConnections()
	}
	h.clients[connectionId] = &Client{
		Id:          connectionId,
		ConnectedAt: time.Now(),
		sink:        sink,
	}
	metrics.IncrementOpenConnections()
	h.mu.Unlock()

	h.logger.Info("Client connected", "clientId", connectionId)
	h.SendTo(connectionId, "connected", map[string]any{
		"message":   "Connected to document processing events",
		"clientId":  connectionId,
		"timestamp": time.Now(),
	})
}

// Deregister removes a connection and closes its sink. Unknown ids are a no-op.
func (h *Hub) Deregister(connectionId string) {
	h.mu.Lock()
	client, exists := h.clients[connectionId]
	if exists {
		delete(h.clients, connectionId)
		metrics.DecrementOpenConnections()
	}
	h.mu.Unlock()

	if !exists {
		return
	}
	if err := client.sink.Close(); err != nil {
		h.logger.Debug("Error closing sink", "clientId", connectionId, "error", err)
	}
	h.logger.Info("Client disconnected", "clientId", connectionId)
}

// SendTo delivers one event to one connection. A write failure is an implicit
// disconnect - the connection is deregistered and no error escapes.
func (h *Hub) SendTo(connectionId string, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Unmarshallable event payload", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	client, exists := h.clients[connectionId]
	h.mu.RUnlock()
	if !exists {
		return
	}

	if err := client.sink.Send(event, data); err != nil {
		h.logger.Warn("Write failed, pruning connection", "clientId", connectionId, "event", event, "error", err)
		h.Deregister(connectionId)
	}
}

// Broadcast delivers one event to every connection. Failures on individual
// sinks are isolated: the dead connection is pruned, the rest still receive
// the event.
func (h *Hub) Broadcast(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Unmarshallable event payload", "event", event, "error", err)
		return
	}
	metrics.CountBroadcast(event)

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	var failed []string
	for _, client := range targets {
		if err := client.sink.Send(event, data); err != nil {
			h.logger.Warn("Write failed during broadcast", "clientId", client.Id, "event", event, "error", err)
			failed = append(failed, client.Id)
		}
	}
	for _, id := range failed {
		h.Deregister(id)
	}
}

// Heartbeat lets clients and proxies detect silent connection death.
func (h *Hub) Heartbeat() {
	h.Broadcast("heartbeat", map[string]any{
		"timestamp": time.Now(),
	})
}

func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) ListIds() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown stops the heartbeat and closes every sink. Registrations arriving
// afterwards are closed immediately.
func (h *Hub) Shutdown() {
	h.beatOnce.Do(func() { close(h.stopBeat) })

	h.mu.Lock()
	h.shutdown = true
	clients := h.clients
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for id, client := range clients {
		_ = client.sink.Close()
		metrics.DecrementOpenConnections()
		h.logger.Debug("Closed connection on shutdown", "clientId", id)
	}
	h.logger.Info("Event hub shut down", "closedConnections", len(clients))
}
