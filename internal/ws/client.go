// internal/ws/client.go
//
// One Client per websocket connection: a read pump that feeds the hub's
// dispatcher and a write pump draining a buffered send channel with
// keepalive pings. The standard paired-pump layout for gorilla/websocket;
// the connection is only ever written from the write pump.

package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// Client wraps a single player connection.
type Client struct {
	ID     string // connection id, the session layer's player identity
	UserID string // account id when authenticated, "" for guests

	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	room    string // room code once created/joined, only touched by the read pump
}

func newClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		// Duel clients send a handful of messages per round; anything
		// past this budget is dropped rather than evaluated.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}

// enqueue hands a message to the write pump without blocking.
// A full buffer means a dead or stalled peer; the message is dropped and
// the connection will fail its next ping exchange anyway.
func (c *Client) enqueue(b []byte) {
	if b == nil {
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

// readPump reads envelopes and dispatches them until the connection
// drops, then runs disconnect bookkeeping exactly once.
func (c *Client) readPump() {
	defer func() {
		c.hub.handleDisconnect(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("conn", c.ID).Msg("ws read")
			}
			return
		}
		if !c.limiter.Allow() {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			continue
		}
		c.hub.dispatch(c, env)
	}
}

// writePump drains the send channel and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
