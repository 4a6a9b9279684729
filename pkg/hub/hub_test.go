package hub

import (
	"context"
	"testing"
	"time"
)

// attach registers a bare client with a given buffer size, bypassing
// the websocket layer.
func attach(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan Event, buffer)}
	h.register <- c
	return c
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for h.ClientCount() != want {
		select {
		case <-deadline:
			t.Fatalf("client count stuck at %d, want %d", h.ClientCount(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHubFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test", nil)
	go h.Run(ctx)

	a := attach(h, 8)
	b := attach(h, 8)
	waitForClients(t, h, 2)

	if err := h.PublishMessage("sess-1", map[string]string{"type": "turn_end"}); err != nil {
		t.Fatalf("PublishMessage: %v", err)
	}

	for _, c := range []*Client{a, b} {
		select {
		case event := <-c.send:
			if event.SessionID != "sess-1" {
				t.Errorf("event session %q, want sess-1", event.SessionID)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("client never received the event")
		}
	}
}

func TestHubEvictsSlowClient(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New("test", nil)
	go h.Run(ctx)

	// A full buffer on the next event marks the client as slow.
	slow := attach(h, 1)
	slow.send <- NewEvent("pre", nil)
	waitForClients(t, h, 1)

	h.Publish(NewEvent("sess-1", nil))
	waitForClients(t, h, 0)
}

func TestHubShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("test", nil)
	go h.Run(ctx)

	c := attach(h, 8)
	waitForClients(t, h, 1)

	cancel()
	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed send channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel never closed")
	}
}
