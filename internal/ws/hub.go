// internal/ws/hub.go
//
// Hub: owns the connection table and the room registry, upgrades
// incoming /ws requests, and dispatches inbound envelopes to the duel
// session operations. Session state decisions happen inside the
// session's own critical section; the hub only resolves connection ids
// to clients and delivers the resulting broadcasts.

package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/worduel/server/internal/duel"
)

// swapNotifyDelay is how long after a role swap the new setter gets the
// opponent-joined nudge. Purely a grace period for the client-side swap
// animation; correctness does not depend on it.
const swapNotifyDelay = 500 * time.Millisecond

// ResultRecorder persists finished rounds for authenticated players.
// Implementations must be safe for concurrent use; recording is
// best-effort and never blocks the game path.
type ResultRecorder interface {
	RecordRound(setterUserID, guesserUserID, room string, won bool, attempts int)
}

// Hub routes messages between connections and duel sessions.
type Hub struct {
	registry *duel.Registry
	recorder ResultRecorder // may be nil

	mu      sync.RWMutex
	clients map[string]*Client // by connection id

	notifyDelay time.Duration

	upgrader websocket.Upgrader
}

// NewHub constructs a hub around a room registry. recorder may be nil
// when no persistence is wired (tests).
func NewHub(registry *duel.Registry, recorder ResultRecorder) *Hub {
	return &Hub{
		registry:    registry,
		recorder:    recorder,
		clients:     make(map[string]*Client),
		notifyDelay: swapNotifyDelay,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser origin policy is enforced by the HTTP layer's
			// CORS configuration; the upgrade itself accepts any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and runs the connection's pumps.
// userID is "" for guests.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade")
		return
	}
	c := newClient(h, conn, userID)

	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	log.Info().Str("conn", c.ID).Bool("authed", userID != "").Msg("ws connected")

	go c.writePump()
	c.readPump()
}

// dispatch routes one inbound envelope. Called from the client's read
// pump, so messages from a single connection are handled in order.
func (h *Hub) dispatch(c *Client, env Envelope) {
	switch env.Type {
	case MsgCreate:
		h.handleCreate(c)
	case MsgJoin:
		var p joinPayload
		if json.Unmarshal(env.Data, &p) == nil {
			h.handleJoin(c, p.Room)
		}
	case MsgSet:
		var p setWordPayload
		if json.Unmarshal(env.Data, &p) == nil {
			h.handleSetWord(c, p.Room, p.Word)
		}
	case MsgGuess:
		var p guessPayload
		if json.Unmarshal(env.Data, &p) == nil {
			h.handleGuess(c, p.Room, p.Guess)
		}
	case MsgSwap:
		var p swapPayload
		if json.Unmarshal(env.Data, &p) == nil {
			h.handleSwap(c, p.Room)
		}
	default:
		log.Debug().Str("type", env.Type).Str("conn", c.ID).Msg("unknown message")
	}
}

func (h *Hub) handleCreate(c *Client) {
	h.leaveRoom(c)
	sess := h.registry.Create(c.ID)
	c.room = sess.Code
	log.Info().Str("room", sess.Code).Str("conn", c.ID).Msg("room created")
	c.enqueue(encode(MsgRoomCreated, roomPayload{Room: sess.Code, Role: duel.RoleSetter}))
}

func (h *Hub) handleJoin(c *Client, room string) {
	sess, ok := h.registry.Get(room)
	if !ok {
		c.enqueue(encode(MsgError, errorPayload{Message: duel.ErrRoomNotFound.Error()}))
		return
	}
	res, err := sess.Join(c.ID)
	if err != nil {
		c.enqueue(encode(MsgError, errorPayload{Message: err.Error()}))
		return
	}
	// Seat won: release any previous room so it cannot keep a phantom
	// member. A failed join above leaves the old membership untouched.
	h.leaveRoom(c)
	c.room = sess.Code
	log.Info().Str("room", sess.Code).Str("conn", c.ID).Msg("guesser joined")

	c.enqueue(encode(MsgRoomJoined, roomPayload{Room: sess.Code, Role: duel.RoleGuesser}))
	if res.SetterConn != "" {
		h.sendTo(res.SetterConn, encode(MsgOpponentJoined, nil))
	}
	if res.Started {
		h.broadcast(sess, encode(MsgGameStarted, nil))
	}
}

func (h *Hub) handleSetWord(c *Client, room, word string) {
	sess, ok := h.registry.Get(room)
	if !ok {
		c.enqueue(encode(MsgError, errorPayload{Message: duel.ErrRoomNotFound.Error()}))
		return
	}
	res, err := sess.SetWord(c.ID, word)
	if err != nil {
		// A non-setter's set-word is a stale-client race, not worth a reply.
		if err != duel.ErrNotSetter {
			c.enqueue(encode(MsgError, errorPayload{Message: err.Error()}))
		}
		return
	}
	log.Info().Str("room", sess.Code).Msg("word locked")
	if res.Started {
		h.broadcast(sess, encode(MsgGameStarted, nil))
	}
}

func (h *Hub) handleGuess(c *Client, room, guess string) {
	sess, ok := h.registry.Get(room)
	if !ok {
		return // room gone underneath a late guess; drop
	}
	out, ok := sess.Guess(c.ID, guess)
	if !ok {
		return
	}
	h.broadcast(sess, encode(MsgGuessResult, guessResultPayload{
		Guess:    out.Guess,
		Feedback: out.Feedback,
		Won:      out.Won,
		Over:     out.Over,
		Attempts: out.Attempts,
	}))
	if out.Over {
		log.Info().Str("room", sess.Code).Bool("won", out.Won).
			Int("attempts", out.Attempts).Msg("round over")
		h.recordRound(sess.Code, out)
	}
}

func (h *Hub) handleSwap(c *Client, room string) {
	sess, ok := h.registry.Get(room)
	if !ok {
		return
	}
	res, ok := sess.SwapRoles(c.ID)
	if !ok {
		return
	}
	log.Info().Str("room", sess.Code).Str("setter", res.NewSetterConn).Msg("roles swapped")

	for connID, role := range res.Roles {
		h.sendTo(connID, encode(MsgRolesSwapped, rolesSwappedPayload{NewRole: role}))
	}

	// Nudge the new setter to enter a word once the client-side swap
	// transition has settled. The timer lives on the session so room
	// teardown can cancel it; the callback re-checks membership in case
	// the setter left while it was pending.
	newSetter := res.NewSetterConn
	sess.SetSwapTimer(time.AfterFunc(h.notifyDelay, func() {
		if sess.IsMember(newSetter) {
			h.sendTo(newSetter, encode(MsgOpponentJoined, nil))
		}
	}))
}

// leaveRoom removes the client from its current room, collecting the
// room if it emptied. Called whenever membership changes: on disconnect
// and before a create/join moves the client elsewhere.
func (h *Hub) leaveRoom(c *Client) {
	if c.room == "" {
		return
	}
	if sess, ok := h.registry.Get(c.room); ok {
		res := sess.Disconnect(c.ID)
		log.Info().Str("conn", c.ID).Str("room", c.room).Bool("empty", res.Empty).
			Msg("left room")
		if res.Empty {
			h.registry.Collect(c.room)
		}
	}
	c.room = ""
}

// handleDisconnect runs once per connection, after its read pump exits.
func (h *Hub) handleDisconnect(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()

	h.leaveRoom(c)
	log.Info().Str("conn", c.ID).Msg("ws disconnected")
}

// sendTo delivers a message to one connection, if it is still around.
func (h *Hub) sendTo(connID string, b []byte) {
	h.mu.RLock()
	c := h.clients[connID]
	h.mu.RUnlock()
	if c != nil {
		c.enqueue(b)
	}
}

// broadcast delivers a message to every current member of the session's
// room. Both players see round results through this path, which keeps
// the two boards synchronized without either client trusting the other.
func (h *Hub) broadcast(sess *duel.Session, b []byte) {
	for _, connID := range sess.Members() {
		h.sendTo(connID, b)
	}
}

// recordRound resolves the participants' accounts and persists the
// outcome. Guests produce no rows; the write happens off the game path.
func (h *Hub) recordRound(room string, out duel.GuessOutcome) {
	if h.recorder == nil {
		return
	}
	h.mu.RLock()
	var setterUser, guesserUser string
	if c := h.clients[out.SetterConn]; c != nil {
		setterUser = c.UserID
	}
	if c := h.clients[out.GuesserConn]; c != nil {
		guesserUser = c.UserID
	}
	h.mu.RUnlock()
	if setterUser == "" && guesserUser == "" {
		return
	}
	go h.recorder.RecordRound(setterUser, guesserUser, room, out.Won, out.Attempts)
}
