package hub

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/parlor-chat/parlor/internal/room"
)

func newTestHub() *Hub {
	store := room.NewStore(4, nil, zerolog.Nop())
	return NewHub(store, Limits{MaxMessageSize: 512, RateBurst: 5, RateRefill: time.Second}, zerolog.Nop())
}

func TestNewHub(t *testing.T) {
	h := newTestHub()
	if h == nil {
		t.Fatal("NewHub returned nil")
	}
	if h.clients == nil || h.rooms == nil {
		t.Error("hub maps not initialized")
	}
}

func TestEncodeMessageWireFormat(t *testing.T) {
	payload, err := EncodeMessage(room.Message{Sender: "Alice", Body: "hi", Kind: room.KindChat})
	if err != nil {
		t.Fatal(err)
	}

	var wire map[string]string
	if err := json.Unmarshal(payload, &wire); err != nil {
		t.Fatal(err)
	}
	if wire["name"] != "Alice" || wire["message"] != "hi" || wire["kind"] != "chat" {
		t.Errorf("unexpected wire form: %s", payload)
	}
}

func TestBroadcastToEmptyRoomDoesNotBlock(t *testing.T) {
	h := newTestHub()
	go h.Run()

	done := make(chan struct{})
	go func() {
		h.Broadcast("ZZZZ", []byte(`{"name":"x","message":"y","kind":"chat"}`))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast to an empty room blocked")
	}

	if err := h.Shutdown(time.Second); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestRegisterRejectsMissingRoom(t *testing.T) {
	h := newTestHub()
	go h.Run()
	defer func() { _ = h.Shutdown(time.Second) }()

	// No room "GONE" exists; the hub must refuse the client and must not
	// touch membership.
	client := NewClient(nil, h, "127.0.0.1:1", "GONE", "Alice")
	h.Register(client)
	time.Sleep(50 * time.Millisecond)

	h.mutex.RLock()
	registered := h.clients[client]
	h.mutex.RUnlock()
	if registered {
		t.Error("client for a missing room was registered")
	}
	if h.store.Exists("GONE") {
		t.Error("membership was recorded for a missing room")
	}
}

func TestShutdownIsBounded(t *testing.T) {
	h := newTestHub()
	go h.Run()

	start := time.Now()
	if err := h.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("shutdown took %v", elapsed)
	}
}
