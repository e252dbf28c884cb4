package hub

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/parlor-chat/parlor/internal/metrics"
	"github.com/parlor-chat/parlor/internal/room"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// inbound is the frame clients send: {"data": "..."}.
type inbound struct {
	Data string `json:"data"`
}

// EncodeMessage marshals a message into the outbound wire form
// {"name": ..., "message": ..., "kind": ...}.
func EncodeMessage(msg room.Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Client is one WebSocket connection bound to a room and a display name.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	addr   string
	code   string
	name   string
	closed bool

	limiter *tokenBucket
	log     zerolog.Logger
}

// NewClient wraps an upgraded connection with its session binding. The send
// channel is buffered so one slow reader cannot stall the hub's fan-out.
func NewClient(conn *websocket.Conn, h *Hub, addr, code, name string) *Client {
	if conn != nil && h.limits.MaxMessageSize > 0 {
		conn.SetReadLimit(h.limits.MaxMessageSize)
	}
	id := uuid.NewString()
	return &Client{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, 256),
		hub:     h,
		addr:    addr,
		code:    code,
		name:    name,
		limiter: newTokenBucket(h.limits.RateBurst, h.limits.RateRefill),
		log: h.log.With().Str("conn", id).Str("room", code).
			Str("name", name).Logger(),
	}
}

// ID returns the connection's identifier.
func (c *Client) ID() string { return c.id }

// Room returns the room code the connection is bound to.
func (c *Client) Room() string { return c.code }

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn().Err(err).Msg("setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// handleReadError reports whether the read loop should stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn().Int64("limit", c.hub.limits.MaxMessageSize).Msg("message exceeded size limit")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Debug().Err(err).Msg("client disconnected")
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Debug().Err(err).Msg("connection closed")
	default:
		c.log.Warn().Err(err).Msg("websocket read error")
	}
	return true
}

// processMessage appends an inbound chat line to the room history and hands
// it to the hub for fan-out. Messages for rooms that no longer exist are
// dropped silently; the client has no recovery action to take.
func (c *Client) processMessage(raw []byte) {
	var in inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		c.log.Debug().Err(err).Msg("invalid message frame, dropping")
		return
	}

	msg := room.Message{Sender: c.name, Body: in.Data, Kind: room.KindChat}
	if err := c.hub.store.Append(c.code, msg); err != nil {
		c.log.Debug().Msg("message for missing room, dropping")
		return
	}
	metrics.MessagesTotal.Inc()

	payload, err := EncodeMessage(msg)
	if err != nil {
		c.log.Error().Err(err).Msg("encoding message")
		return
	}
	c.hub.Broadcast(c.code, payload)
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if c.handleReadError(err) {
			break
		}

		if !c.limiter.allow() {
			c.log.Debug().Msg("rate limit exceeded, discarding message")
			continue
		}

		c.processMessage(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				c.writeCloseMessage()
				return
			}
			if !c.writeTextMessage(payload) {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeCloseMessage() {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Debug().Err(err).Msg("writing close message")
		}
	}
}

// writeTextMessage writes the payload plus anything queued behind it, one
// frame per message so clients can parse each JSON document separately.
func (c *Client) writeTextMessage(payload []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Debug().Err(err).Msg("writing message")
		return false
	}

	n := len(c.send)
	for i := 0; i < n; i++ {
		if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
			c.log.Debug().Err(err).Msg("writing queued message")
			return false
		}
	}
	return true
}

func (c *Client) closeConnection() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Debug().Err(err).Msg("closing connection")
		}
	}
}

// isExpectedCloseError checks for the error strings the websocket library
// produces during normal connection teardown.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "use of closed network connection") ||
		strings.Contains(s, "websocket: close sent") ||
		strings.Contains(s, "broken pipe")
}
