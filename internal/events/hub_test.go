package events

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockSink records every frame it receives and can be told to fail writes.
type mockSink struct {
	mu     sync.Mutex
	events []string
	data   [][]byte
	fail   bool
	closed int
}

func (m *mockSink) Send(event string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("broken pipe")
	}
	m.events = append(m.events, event)
	m.data = append(m.data, data)
	return nil
}

func (m *mockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *mockSink) received() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	copy(out, m.events)
	return out
}

func (m *mockSink) closeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func TestHub_RegisterGreeting(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	sink := &mockSink{}
	hub.Register("client-1", sink)

	got := sink.received()
	if len(got) != 1 || got[0] != "connected" {
		t.Fatalf("expected a single connected greeting, got %v", got)
	}

	var payload map[string]any
	if err := json.Unmarshal(sink.data[0], &payload); err != nil {
		t.Fatalf("greeting payload is not JSON: %v", err)
	}
	if payload["clientId"] != "client-1" {
		t.Errorf("greeting clientId = %v, want client-1", payload["clientId"])
	}

	if hub.Size() != 1 {
		t.Errorf("Size() = %d, want 1", hub.Size())
	}
}

func TestHub_BroadcastPrunesDeadSink(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	healthy := &mockSink{}
	dead := &mockSink{fail: true}
	hub.Register("healthy", healthy)
	hub.Register("dead", dead)

	hub.Broadcast("document_processing", map[string]string{"documentId": "d1"})

	// the healthy client got greeting + broadcast
	got := healthy.received()
	if len(got) != 2 || got[1] != "document_processing" {
		t.Fatalf("healthy client events = %v, want [connected document_processing]", got)
	}

	// the dead client is gone, the healthy one remains
	if hub.Size() != 1 {
		t.Errorf("Size() after prune = %d, want 1", hub.Size())
	}
	ids := hub.ListIds()
	if len(ids) != 1 || ids[0] != "healthy" {
		t.Errorf("ListIds() = %v, want [healthy]", ids)
	}
	if dead.closeCount() == 0 {
		t.Error("dead sink was never closed")
	}
}

func TestHub_SendToUnknownIsNoop(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	// must not panic or register anything
	hub.SendTo("ghost", "document_processing", map[string]string{})
	if hub.Size() != 0 {
		t.Errorf("Size() = %d, want 0", hub.Size())
	}
}

func TestHub_DeregisterUnknownIsNoop(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	hub.Deregister("ghost")
	if hub.Size() != 0 {
		t.Errorf("Size() = %d, want 0", hub.Size())
	}
}

func TestHub_DeregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	sink := &mockSink{}
	hub.Register("c1", sink)
	hub.Deregister("c1")
	hub.Deregister("c1")

	if sink.closeCount() != 1 {
		t.Errorf("sink closed %d times, want 1", sink.closeCount())
	}
}

func TestHub_RegisterCollisionClosesOldSink(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	first := &mockSink{}
	second := &mockSink{}
	hub.Register("c1", first)
	hub.Register("c1", second)

	if first.closeCount() != 1 {
		t.Errorf("old sink closed %d times, want 1", first.closeCount())
	}
	if hub.Size() != 1 {
		t.Errorf("Size() = %d, want 1", hub.Size())
	}

	hub.Broadcast("document_processing", map[string]string{})
	got := second.received()
	if got[len(got)-1] != "document_processing" {
		t.Errorf("replacement sink did not receive broadcast, events = %v", got)
	}
}

func TestHub_Heartbeat(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	sink := &mockSink{}
	hub.Register("c1", sink)
	hub.Heartbeat()

	got := sink.received()
	if got[len(got)-1] != "heartbeat" {
		t.Fatalf("events = %v, want heartbeat last", got)
	}
	var payload map[string]any
	if err := json.Unmarshal(sink.data[len(sink.data)-1], &payload); err != nil {
		t.Fatalf("heartbeat payload is not JSON: %v", err)
	}
	if _, ok := payload["timestamp"]; !ok {
		t.Error("heartbeat payload missing timestamp")
	}
}

func TestHub_RunEmitsHeartbeats(t *testing.T) {
	hub := NewHub()
	sink := &mockSink{}
	hub.Register("c1", sink)

	hub.Run(10 * time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	hub.Shutdown()

	beats := 0
	for _, e := range sink.received() {
		if e == "heartbeat" {
			beats++
		}
	}
	if beats == 0 {
		t.Error("expected at least one ticker heartbeat")
	}
}

func TestHub_Shutdown(t *testing.T) {
	hub := NewHub()

	sink := &mockSink{}
	hub.Register("c1", sink)
	hub.Shutdown()

	if hub.Size() != 0 {
		t.Errorf("Size() after shutdown = %d, want 0", hub.Size())
	}
	if sink.closeCount() != 1 {
		t.Errorf("sink closed %d times, want 1", sink.closeCount())
	}

	// late registration is refused and the sink closed immediately
	late := &mockSink{}
	hub.Register("c2", late)
	if hub.Size() != 0 {
		t.Errorf("Size() = %d, want 0 after post-shutdown register", hub.Size())
	}
	if late.closeCount() != 1 {
		t.Errorf("late sink closed %d times, want 1", late.closeCount())
	}
}

func TestHub_ConcurrentBroadcastAndChurn(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			hub.Register(id, &mockSink{})
			hub.Broadcast("document_processing", map[string]int{"n": n})
			hub.Deregister(id)
		}(i)
	}
	wg.Wait()

	if hub.Size() != 0 {
		t.Errorf("Size() after churn = %d, want 0", hub.Size())
	}
}
