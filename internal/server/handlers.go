// Package server exposes the HTTP surface of Parlor: the entry form, the
// room view, the WebSocket endpoint, and the health check.
package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/parlor-chat/parlor/internal/hub"
	"github.com/parlor-chat/parlor/internal/room"
	"github.com/parlor-chat/parlor/internal/session"
)

// Validation messages shown on the entry form. The wording is part of the
// page contract.
const (
	msgNameRequired = "Please enter a name."
	msgCodeRequired = "Please enter a room code."
	msgRoomMissing  = "Room does not exist."
)

// Handler carries the shared dependencies of all HTTP handlers.
type Handler struct {
	store    *room.Store
	hub      *hub.Hub
	sessions *session.Manager
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewHandler wires the handler set. allowedOrigins feeds the WebSocket
// upgrader's origin check.
func NewHandler(store *room.Store, h *hub.Hub, sessions *session.Manager, allowedOrigins []string, log zerolog.Logger) *Handler {
	origins := newOriginSet(allowedOrigins, log)
	return &Handler{
		store:    store,
		hub:      h,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.check,
		},
		log: log.With().Str("component", "http").Logger(),
	}
}

// HomePage renders the entry form. Any existing session is cleared so a new
// room selection always starts fresh.
func (h *Handler) HomePage(w http.ResponseWriter, _ *http.Request) {
	h.sessions.Clear(w)
	h.renderHome(w, homeData{})
}

// EnterRoom handles the room-entry request: create a new room or join an
// existing one, bind the session, and send the client to the room view.
// Validation failures re-render the form with the submitted values preserved.
func (h *Handler) EnterRoom(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.PostFormValue("name"))
	code := strings.ToUpper(strings.TrimSpace(r.PostFormValue("code")))
	action := r.PostFormValue("action")

	data := homeData{Name: name, Code: code}

	if name == "" {
		data.Error = msgNameRequired
		h.renderHome(w, data)
		return
	}

	switch action {
	case "create":
		created, err := h.store.Create()
		if err != nil {
			h.log.Error().Err(err).Msg("room creation failed")
			http.Error(w, "could not create room", http.StatusServiceUnavailable)
			return
		}
		code = created

	default: // join
		if code == "" {
			data.Error = msgCodeRequired
			h.renderHome(w, data)
			return
		}
		if !h.store.Exists(code) {
			data.Error = msgRoomMissing
			h.renderHome(w, data)
			return
		}
	}

	if err := h.sessions.Issue(w, session.Binding{Room: code, Name: name}); err != nil {
		h.log.Error().Err(err).Msg("issuing session")
		http.Error(w, "could not start session", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/room", http.StatusSeeOther)
}

// RoomPage renders the room view with the full message history. Without a
// valid session, or when the room has since been torn down, the client is
// sent back to the entry page.
func (h *Handler) RoomPage(w http.ResponseWriter, r *http.Request) {
	b, err := h.sessions.Bind(r)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	messages, err := h.store.History(b.Room)
	if errors.Is(err, room.ErrRoomNotFound) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	h.renderRoom(w, roomData{Code: b.Room, Name: b.Name, Messages: messages})
}

// ServeWS upgrades the connection and joins it to the session's room. A
// connection without a valid binding is closed quietly after the upgrade;
// there is no error frame to send.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	b, bindErr := h.sessions.Bind(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	if bindErr != nil {
		h.log.Debug().Str("addr", r.RemoteAddr).Msg("socket connect without session, closing")
		_ = conn.Close()
		return
	}

	client := hub.NewClient(conn, h.hub, r.RemoteAddr, b.Room, b.Name)
	h.hub.Register(client)
}

// Health is a plain-text liveness check.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}
