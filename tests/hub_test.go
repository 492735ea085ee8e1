package tests

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/zontana/chatwire/src/hub"
	"github.com/zontana/chatwire/src/types"
)

// mockConn implements types.Conn for testing without a real WebSocket.
type mockConn struct {
	mu       sync.Mutex
	written  []types.Message
	readCh   chan types.Message
	closed   bool
	closedCh chan struct{}
}

func newMockConn() *mockConn {
	return &mockConn{
		readCh:   make(chan types.Message, 16),
		closedCh: make(chan struct{}),
	}
}

func (m *mockConn) WriteJSON(v any) error {
	msg, ok := v.(types.Message)
	if !ok {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, msg)
	return nil
}

func (m *mockConn) ReadJSON(v any) error {
	select {
	case msg := <-m.readCh:
		if ptr, ok := v.(*types.Message); ok {
			*ptr = msg
		}
		return nil
	case <-m.closedCh:
		return &closeError{}
	}
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.closedCh)
	}
	return nil
}

// emit feeds a client-to-server event through the connection's read side.
func (m *mockConn) emit(event string, data map[string]any) {
	m.readCh <- types.Message{Event: event, Data: data}
}

func (m *mockConn) getWritten() []types.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]types.Message, len(m.written))
	copy(cp, m.written)
	return cp
}

func (m *mockConn) countEvent(event string) int {
	n := 0
	for _, msg := range m.getWritten() {
		if msg.Event == event {
			n++
		}
	}
	return n
}

func (m *mockConn) lastEvent(event string) (types.Message, bool) {
	written := m.getWritten()
	for i := len(written) - 1; i >= 0; i-- {
		if written[i].Event == event {
			return written[i], true
		}
	}
	return types.Message{}, false
}

type closeError struct{}

func (e *closeError) Error() string { return "connection closed" }

// waitUntil polls a condition instead of relying on fixed sleeps.
func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: %s", msg)
}

// settle gives the hub loop a moment to drain queued work that has no
// observable completion signal.
func settle() {
	time.Sleep(30 * time.Millisecond)
}

// newTestHub creates a hub and starts its event loop in a goroutine.
func newTestHub(t *testing.T) *hub.Hub {
	t.Helper()
	h := hub.New(zerolog.Nop())
	go h.Run()
	t.Cleanup(func() { h.Stop() })
	return h
}

// connectClient creates, registers, and starts a mock client with both pumps
// running, so emitted events flow into the hub.
func connectClient(t *testing.T, h *hub.Hub, id string) (*hub.Client, *mockConn) {
	t.Helper()
	conn := newMockConn()
	client := hub.NewClient(id, conn, h, 0)
	h.Register(client)
	go client.WritePump()
	go client.ReadPump()
	waitUntil(t, func() bool { return h.ClientInfo(id) != nil }, "client registered")
	return client, conn
}

// connectStalled registers a client whose write pump never runs, so its send
// buffer fills and stays full under fan-out.
func connectStalled(t *testing.T, h *hub.Hub, id string, sendBuffer int) (*hub.Client, *mockConn) {
	t.Helper()
	conn := newMockConn()
	client := hub.NewClient(id, conn, h, sendBuffer)
	h.Register(client)
	go client.ReadPump()
	waitUntil(t, func() bool { return h.ClientInfo(id) != nil }, "client registered")
	return client, conn
}

func TestHubRegisterAndUnregister(t *testing.T) {
	h := newTestHub(t)

	_, _ = connectClient(t, h, "client-1")
	_, _ = connectClient(t, h, "client-2")

	if len(h.ConnectedClients()) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(h.ConnectedClients()))
	}

	c3, _ := connectClient(t, h, "client-3")
	h.Unregister(c3)
	waitUntil(t, func() bool { return h.ClientInfo("client-3") == nil }, "client-3 unregistered")

	if h.ClientInfo("client-1") == nil || h.ClientInfo("client-2") == nil {
		t.Error("unregistering client-3 should not touch other clients")
	}
}

func TestHubSubscribeAndUnsubscribe(t *testing.T) {
	h := newTestHub(t)
	_, _ = connectClient(t, h, "c1")

	if ok := h.Subscribe("group:g1", "c1"); !ok {
		t.Fatal("subscribe should succeed for registered client")
	}

	if h.Stats().Channels["group:g1"] != 1 {
		t.Errorf("expected 1 subscriber, got %d", h.Stats().Channels["group:g1"])
	}

	if ok := h.Subscribe("group:g1", "nonexistent"); ok {
		t.Error("subscribe should fail for unregistered client")
	}

	h.Unsubscribe("group:g1", "c1")
	if _, ok := h.Stats().Channels["group:g1"]; ok {
		t.Error("expected channel to be removed after last unsubscribe")
	}
}

func TestBroadcastChannelReachesSubscribersOnly(t *testing.T) {
	h := newTestHub(t)
	_, conn1 := connectClient(t, h, "c1")
	_, conn2 := connectClient(t, h, "c2")

	h.Subscribe("group:g1", "c1")

	h.BroadcastChannel("group:g1", types.Message{
		Channel: "group:g1",
		Event:   types.EventGetGroupMessage,
		Data:    map[string]any{"message": "hello"},
	})

	waitUntil(t, func() bool { return conn1.countEvent(types.EventGetGroupMessage) == 1 }, "subscriber received")
	settle()
	if conn2.countEvent(types.EventGetGroupMessage) != 0 {
		t.Error("non-subscriber should not receive channel broadcast")
	}
}

func TestBroadcastAllAndExcept(t *testing.T) {
	h := newTestHub(t)
	_, conn1 := connectClient(t, h, "c1")
	_, conn2 := connectClient(t, h, "c2")
	_, conn3 := connectClient(t, h, "c3")

	h.BroadcastAll(types.Message{Event: "announce"})
	waitUntil(t, func() bool {
		return conn1.countEvent("announce") == 1 &&
			conn2.countEvent("announce") == 1 &&
			conn3.countEvent("announce") == 1
	}, "broadcast reached everyone")

	h.BroadcastExcept("c2", types.Message{Event: "partial"})
	waitUntil(t, func() bool {
		return conn1.countEvent("partial") == 1 && conn3.countEvent("partial") == 1
	}, "broadcast reached the others")
	settle()
	if conn2.countEvent("partial") != 0 {
		t.Error("excluded client should not receive broadcast")
	}
}

func TestSendToClient(t *testing.T) {
	h := newTestHub(t)
	_, conn := connectClient(t, h, "target")

	msg := types.Message{Event: types.EventGetMessage, Data: map[string]any{"message": "hi"}}
	if ok := h.SendToClient("target", msg); !ok {
		t.Fatal("send to existing client should succeed")
	}
	waitUntil(t, func() bool { return conn.countEvent(types.EventGetMessage) == 1 }, "message delivered")

	if ok := h.SendToClient("nonexistent", msg); ok {
		t.Error("send to nonexistent client should fail")
	}
}

func TestConnectionCallbacks(t *testing.T) {
	h := newTestHub(t)

	var mu sync.Mutex
	var connectedID, disconnectedID string
	h.OnConnection(func(id string) {
		mu.Lock()
		connectedID = id
		mu.Unlock()
	})
	h.OnDisconnection(func(id string) {
		mu.Lock()
		disconnectedID = id
		mu.Unlock()
	})

	client, _ := connectClient(t, h, "cb-client")
	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connectedID == "cb-client"
	}, "connect callback fired")

	h.Unregister(client)
	waitUntil(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return disconnectedID == "cb-client"
	}, "disconnect callback fired")
}

func TestClientInfo(t *testing.T) {
	h := newTestHub(t)

	_, _ = connectClient(t, h, "info-client")
	h.Subscribe("group:a", "info-client")
	h.Subscribe("group:b", "info-client")

	info := h.ClientInfo("info-client")
	if info == nil {
		t.Fatal("expected client info")
	}
	if info.ID != "info-client" {
		t.Errorf("expected ID info-client, got %s", info.ID)
	}
	if len(info.Channels) != 2 {
		t.Errorf("expected 2 channels, got %d", len(info.Channels))
	}
}

func TestEnqueueAfterRemovalDropsInsteadOfPanicking(t *testing.T) {
	h := newTestHub(t)
	client, _ := connectClient(t, h, "departed")

	h.Unregister(client)
	waitUntil(t, func() bool { return h.ClientInfo("departed") == nil }, "client removed")

	// A fan-out goroutine that read the client from the map just before
	// removal still holds the pointer. Its enqueue must fall through to the
	// drop branch; a closed Send channel would crash the process here.
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("enqueue after removal panicked: %v", r)
		}
	}()
	select {
	case client.Send <- types.Message{Event: "late"}:
	default:
	}
}

func TestDisconnectedReadPumpUnregisters(t *testing.T) {
	h := newTestHub(t)
	_, conn := connectClient(t, h, "dropper")

	conn.Close()
	waitUntil(t, func() bool { return h.ClientInfo("dropper") == nil }, "closed connection unregistered")
}
