// Package hub delivers messages and membership notices to every WebSocket
// connection joined to a room, and keeps the room store's member counts in
// step with the connections it manages.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/parlor-chat/parlor/internal/metrics"
	"github.com/parlor-chat/parlor/internal/room"
)

// Limits carries the per-connection knobs clients are created with.
type Limits struct {
	MaxMessageSize int64
	RateBurst      int
	RateRefill     time.Duration
}

type broadcastMessage struct {
	code    string
	payload []byte
}

// Hub owns the set of live connections and their room registrations. All
// registration state is mutated from the Run loop; the mutex guards the maps
// for the delivery path's snapshots.
type Hub struct {
	store  *room.Store
	limits Limits
	log    zerolog.Logger

	clients map[*Client]bool
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMessage

	mutex  sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a hub bound to the given room store.
func NewHub(store *room.Store, limits Limits, log zerolog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		store:      store,
		limits:     limits,
		log:        log.With().Str("component", "hub").Logger(),
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMessage),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register hands a freshly upgraded connection to the hub. The Run loop
// validates the room and either joins the client or closes the connection.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
		c.closeConnection()
	}
}

// Unregister removes a connection from the hub. Safe to call more than once
// per client; only the first call tears anything down.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Broadcast queues a payload for delivery to every connection registered
// under the room code.
func (h *Hub) Broadcast(code string, payload []byte) {
	select {
	case h.broadcast <- broadcastMessage{code: code, payload: payload}:
	case <-h.ctx.Done():
	}
}

// Run is the hub's main event loop. It should be started in its own
// goroutine and runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			if h.drop(client) {
				h.announce(client.code, client.name, room.KindLeave)
			}

		case msg := <-h.broadcast:
			h.deliver(msg.code, msg.payload)
		}
	}
}

// handleRegister joins a client to its room. A client whose room has
// disappeared between the entry form and the socket connect is sent back to
// disconnected without an error frame, matching what the browser sees when
// it navigates to a dead room.
func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		h.log.Warn().Msg("nil client registration, skipping")
		return
	}

	if err := h.store.Join(client.code); err != nil {
		h.log.Info().Str("room", client.code).Str("name", client.name).
			Msg("connect to missing room, closing")
		client.closeConnection()
		return
	}

	h.mutex.Lock()
	client.closed = false
	h.clients[client] = true
	set, ok := h.rooms[client.code]
	if !ok {
		set = make(map[*Client]struct{})
		h.rooms[client.code] = set
	}
	set[client] = struct{}{}
	total := len(h.clients)
	h.mutex.Unlock()

	metrics.ConnectionsActive.Set(float64(total))
	h.log.Info().Str("room", client.code).Str("name", client.name).
		Str("conn", client.id).Int("clients", total).Msg("client joined")

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()

	h.announce(client.code, client.name, room.KindJoin)
}

// drop removes a client from the maps, closes its send channel, and
// decrements its room's membership. Returns false if the client was already
// gone, which makes disconnect teardown idempotent.
func (h *Hub) drop(client *Client) bool {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return false
	}
	delete(h.clients, client)
	if set, ok := h.rooms[client.code]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.rooms, client.code)
		}
	}
	client.closed = true
	total := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	h.store.Leave(client.code)

	metrics.ConnectionsActive.Set(float64(total))
	h.log.Info().Str("room", client.code).Str("name", client.name).
		Str("conn", client.id).Int("clients", total).Msg("client left")
	return true
}

// announce broadcasts a join or leave notice to a room. Notices are never
// appended to the history.
func (h *Hub) announce(code, name string, kind room.Kind) {
	body := "has entered the room"
	if kind == room.KindLeave {
		body = "has left the room"
	}
	payload, err := EncodeMessage(room.Message{Sender: name, Body: body, Kind: kind})
	if err != nil {
		h.log.Error().Err(err).Msg("encoding membership notice")
		return
	}
	h.deliver(code, payload)
}

// deliver fans a payload out to every connection registered under code. An
// empty room is not an error; mid-teardown broadcasts land here.
func (h *Hub) deliver(code string, payload []byte) {
	recipients := h.roomSnapshot(code)
	if len(recipients) == 0 {
		metrics.BroadcastsDropped.Inc()
		h.log.Debug().Str("room", code).Msg("broadcast to empty room, dropped")
		return
	}

	var failed []*Client
	for _, client := range recipients {
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}

	for _, client := range failed {
		metrics.BroadcastsDropped.Inc()
		h.log.Warn().Str("room", client.code).Str("conn", client.id).
			Msg("send buffer full, evicting client")
		if h.drop(client) {
			h.announce(client.code, client.name, room.KindLeave)
		}
	}
}

// roomSnapshot returns a thread-safe snapshot of a room's connections.
func (h *Hub) roomSnapshot(code string) []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	set := h.rooms[code]
	clients := make([]*Client, 0, len(set))
	for client := range set {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) safeSend(client *Client, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Warn().Interface("panic", r).Msg("recovered from send on closed channel")
		}
	}()

	// Hold the lock during the send so the closed flag and the channel state
	// cannot change underneath us.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client]; !exists || client.closed {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		return false
	}
}

// shutdownClients closes every active connection.
func (h *Hub) shutdownClients() {
	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		client.closeConnection()
	}
	h.log.Info().Int("clients", len(clients)).Msg("closed all client connections")
}

// Shutdown stops the hub and waits for the client goroutines to finish, up
// to the given timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.log.Info().Msg("hub shutdown complete")
		return nil
	case <-time.After(timeout):
		h.log.Warn().Msg("hub shutdown timed out, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
