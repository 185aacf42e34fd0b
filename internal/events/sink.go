package events

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

var errSinkClosed = errors.New("sink closed")

// SSESink frames events for a text/event-stream response. Writes are
// serialized per connection so a client sees events in send order.
type SSESink struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	done    chan struct{}
	once    sync.Once
}

// NewSSESink returns nil when the ResponseWriter cannot flush - the transport
// cannot carry a live stream then (buffered proxies, some test recorders).
func NewSSESink(w http.ResponseWriter) *SSESink {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &SSESink{
		w:       w,
		flusher: flusher,
		done:    make(chan struct{}),
	}
}

func (s *SSESink) Send(event string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return errSinkClosed
	default:
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Close releases the handler goroutine blocked in Wait; the response ends when
// the handler returns.
func (s *SSESink) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// Wait blocks until the hub closes the sink or the client goes away.
func (s *SSESink) Wait(ctx context.Context) {
	select {
	case <-s.done:
	case <-ctx.Done():
	}
}

// WSSink carries events over a websocket as JSON text messages. Each write is
// bounded so one stalled client cannot hold a broadcast hostage.
type WSSink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func NewWSSink(conn *websocket.Conn, writeTimeout time.Duration) *WSSink {
	return &WSSink{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

func (s *WSSink) Send(event string, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	frame := fmt.Sprintf(`{"event":%q,"data":%s}`, event, data)
	return s.conn.Write(ctx, websocket.MessageText, []byte(frame))
}

func (s *WSSink) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}
