package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"board-sync/domain"
)

type collectingHandler struct {
	mu     sync.Mutex
	events []domain.Event
	seen   chan struct{}
}

func newCollectingHandler() *collectingHandler {
	return &collectingHandler{seen: make(chan struct{}, 16)}
}

func (h *collectingHandler) HandleEvent(ev domain.Event) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	h.seen <- struct{}{}
}

func (h *collectingHandler) Events() []domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Event, len(h.events))
	copy(out, h.events)
	return out
}

func TestSubscriberParsesStreamFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("project") != "p1" {
			t.Errorf("unexpected project param: %s", r.URL.Query().Get("project"))
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		_, _ = w.Write([]byte(": keepalive\n\n"))
		_, _ = w.Write([]byte(`data: {"entityType":"task","type":"task-created","data":{"id":"t1","title":"live","status":"to-do","project":"p1"}}` + "\n\n"))
		_, _ = w.Write([]byte("data: not-json\n\n"))
		_, _ = w.Write([]byte(`data: {"entityType":"task","type":"task-deleted","entityId":"t1"}` + "\n\n"))
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := NewSubscriber(srv.URL, StaticTokenSource("secret"), nil)
	handler := newCollectingHandler()
	go sub.Run(ctx, "p1", handler)

	for i := 0; i < 2; i++ {
		select {
		case <-handler.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d", i+1)
		}
	}
	cancel()

	events := handler.Events()
	if len(events) < 2 {
		t.Fatalf("expected at least 2 events, got %d", len(events))
	}
	if events[0].Type != domain.TaskCreated {
		t.Fatalf("unexpected first event: %#v", events[0])
	}
	if events[1].Type != domain.TaskDeleted || events[1].EntityID != "t1" {
		t.Fatalf("unexpected second event: %#v", events[1])
	}
}

func TestSubscriberReconnectsAfterDisconnect(t *testing.T) {
	var mu sync.Mutex
	connects := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		connects++
		n := connects
		mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream")
		if n == 1 {
			// Drop the first connection immediately.
			return
		}
		_, _ = w.Write([]byte(`data: {"entityType":"task","type":"task-created","data":{"id":"t2","status":"to-do"}}` + "\n\n"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := NewSubscriber(srv.URL, StaticTokenSource("secret"), nil)
	sub.retryDelay = 10 * time.Millisecond
	handler := newCollectingHandler()
	go sub.Run(ctx, "p1", handler)

	select {
	case <-handler.seen:
	case <-time.After(2 * time.Second):
		t.Fatalf("no event after reconnect")
	}
	mu.Lock()
	defer mu.Unlock()
	if connects < 2 {
		t.Fatalf("expected at least 2 connection attempts, got %d", connects)
	}
}
