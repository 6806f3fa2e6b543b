// internal/ws/messages.go
//
// Wire format for the duel protocol: a small tagged envelope
// {"type": "...", "data": {...}} in both directions, with one payload
// struct per message name. Payloads are validated here, before anything
// reaches the session state machine.

package ws

import (
	"encoding/json"

	"github.com/worduel/server/internal/duel"
	"github.com/worduel/server/internal/game"
)

// Inbound message names (client → server).
const (
	MsgCreate = "create"
	MsgJoin   = "join"
	MsgSet    = "set-word"
	MsgGuess  = "guess"
	MsgSwap   = "request-role-swap"
)

// Outbound message names (server → client/room).
const (
	MsgRoomCreated    = "room-created"
	MsgRoomJoined     = "room-joined"
	MsgOpponentJoined = "opponent-joined"
	MsgGameStarted    = "game-started"
	MsgGuessResult    = "guess-result"
	MsgRolesSwapped   = "roles-swapped"
	MsgError          = "error"
)

// Envelope is the tagged wrapper around every message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// --- inbound payloads ---

type joinPayload struct {
	Room string `json:"room"`
}

type setWordPayload struct {
	Room string `json:"room"`
	Word string `json:"word"`
}

type guessPayload struct {
	Room  string `json:"room"`
	Guess string `json:"guess"`
}

type swapPayload struct {
	Room string `json:"room"`
}

// --- outbound payloads ---

type roomPayload struct {
	Room string    `json:"room"`
	Role duel.Role `json:"role"`
}

type guessResultPayload struct {
	Guess    string      `json:"guess"`
	Feedback []game.Mark `json:"feedback"`
	Won      bool        `json:"won"`
	Over     bool        `json:"over"`
	Attempts int         `json:"attempts"`
}

type rolesSwappedPayload struct {
	NewRole duel.Role `json:"newRole"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// encode marshals an envelope with the given payload. Payload structs are
// plain data, so the only marshal failure mode is a programming error;
// callers treat an empty result as "nothing to send".
func encode(typ string, payload any) []byte {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil
		}
		data = b
	}
	b, err := json.Marshal(Envelope{Type: typ, Data: data})
	if err != nil {
		return nil
	}
	return b
}
