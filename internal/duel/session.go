// internal/duel/session.go
//
// Per-room session state machine for a word duel.
// Responsibilities:
//   - Seat bookkeeping: one setter, one guesser, tracked by connection id.
//   - Word locking and round start gating (locked/started flags).
//   - Guess evaluation via the game package, win/exhaustion detection.
//   - Role swap between rounds, resetting all round-scoped state.
//   - Room membership, used for broadcast targeting and teardown.
//
// Every exported operation takes the session mutex for its full
// read-modify-decide sequence, so concurrent handlers on the same room
// cannot interleave (two simultaneous joins cannot both win the guesser
// seat). Different rooms never contend with each other.

package duel

import (
	"sync"
	"time"

	"github.com/worduel/server/internal/game"
)

// Role is a seat in the duel.
type Role string

const (
	RoleSetter  Role = "setter"
	RoleGuesser Role = "guesser"
)

// Session is the state for one room. A session outlives individual
// rounds: the role swap resets round state but keeps the room alive.
type Session struct {
	Code string // room code, uppercase

	mu          sync.Mutex
	round       game.Round
	locked      bool // a secret has been set for the current round
	started     bool // secret locked AND a guesser is seated
	setterConn  string
	guesserConn string
	members     map[string]struct{} // connection ids currently in the room
	swapTimer   *time.Timer         // pending post-swap notify, nil when none
}

// NewSession creates a session with the creator seated as setter.
func NewSession(code, creatorConn string) *Session {
	return &Session{
		Code:       code,
		setterConn: creatorConn,
		members:    map[string]struct{}{creatorConn: {}},
	}
}

// JoinResult tells the caller what to broadcast after a successful join.
type JoinResult struct {
	Started    bool   // the join completed a locked-but-waiting round
	SetterConn string // current setter to notify, "" if the seat is vacant
}

// Join seats connID as guesser.
// Fails with ErrRoomFull if the guesser seat is taken or the caller is
// already in the room (a connection never holds both seats), and with
// ErrGameInProgress if a round is actively running (locked and started).
// Joining a room whose word is locked but not yet started is the first
// guesser arriving: the round starts immediately.
func (s *Session) Join(connID string) (JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.guesserConn != "" {
		return JoinResult{}, ErrRoomFull
	}
	if _, ok := s.members[connID]; ok {
		return JoinResult{}, ErrRoomFull
	}
	if s.locked && s.started {
		return JoinResult{}, ErrGameInProgress
	}

	s.guesserConn = connID
	s.members[connID] = struct{}{}
	if s.locked {
		s.started = true
	}
	return JoinResult{Started: s.started, SetterConn: s.setterConn}, nil
}

// SetWordResult tells the caller whether the round started with the lock.
type SetWordResult struct {
	Started bool
}

// SetWord locks the secret for the current round.
// Only the recognized setter may lock, only once per round; the word must
// normalize to exactly five letters A–Z. If a guesser is already seated
// the round starts immediately, otherwise it waits for one.
func (s *Session) SetWord(connID, word string) (SetWordResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if connID != s.setterConn {
		return SetWordResult{}, ErrNotSetter
	}
	if s.locked {
		return SetWordResult{}, ErrGameInProgress
	}
	word = game.Normalize(word)
	if !game.ValidWord(word) {
		return SetWordResult{}, ErrInvalidWord
	}

	s.round.Secret = word
	s.locked = true
	s.started = s.guesserConn != ""
	return SetWordResult{Started: s.started}, nil
}

// GuessOutcome is the broadcast payload source for one evaluated guess.
type GuessOutcome struct {
	Guess    string
	Feedback []game.Mark
	Won      bool
	Over     bool
	Attempts int

	// Seats at the moment the round ended, for result recording.
	SetterConn  string
	GuesserConn string
}

// Guess evaluates a guess against the current round.
// Returns ok=false when the guess must be silently dropped: caller not a
// room member, round not started, already over, or the input is not five
// letters. A stale keypress racing the round boundary is expected, not
// an error.
func (s *Session) Guess(connID, word string) (GuessOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[connID]; !ok {
		return GuessOutcome{}, false
	}
	if !s.started || s.round.Secret == "" || s.round.Over {
		return GuessOutcome{}, false
	}
	word = game.Normalize(word)
	if !game.ValidWord(word) {
		return GuessOutcome{}, false
	}

	marks := s.round.ApplyGuess(word)
	return GuessOutcome{
		Guess:       word,
		Feedback:    marks,
		Won:         s.round.Won,
		Over:        s.round.Over,
		Attempts:    s.round.Attempts(),
		SetterConn:  s.setterConn,
		GuesserConn: s.guesserConn,
	}, true
}

// SwapResult describes the new seating after a role swap.
type SwapResult struct {
	NewSetterConn string
	Roles         map[string]Role // every member's new role
}

// SwapRoles flips the seats and resets all round-scoped state.
// No-op (ok=false) unless the caller is a room member, a round had
// started, and both seats are filled, which guards against duplicate or
// foreign swap requests from stale clients.
//
// The new setter is any member other than the previous setter; if the
// previous setter already disconnected the lookup falls back to an
// arbitrary member.
func (s *Session) SwapRoles(connID string) (SwapResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[connID]; !ok {
		return SwapResult{}, false
	}
	if !s.started || s.setterConn == "" || s.guesserConn == "" {
		return SwapResult{}, false
	}

	prevSetter := s.setterConn

	s.round = game.Round{}
	s.locked = false
	s.started = false

	newSetter := ""
	for id := range s.members {
		if id != prevSetter {
			newSetter = id
			break
		}
	}
	if newSetter == "" {
		for id := range s.members {
			newSetter = id
			break
		}
	}
	s.setterConn = newSetter

	s.guesserConn = ""
	if prevSetter != newSetter {
		if _, ok := s.members[prevSetter]; ok {
			s.guesserConn = prevSetter
		}
	}

	roles := make(map[string]Role, len(s.members))
	for id := range s.members {
		if id == s.setterConn {
			roles[id] = RoleSetter
		} else {
			roles[id] = RoleGuesser
		}
	}
	return SwapResult{NewSetterConn: newSetter, Roles: roles}, true
}

// DisconnectResult reports the membership state after a departure.
type DisconnectResult struct {
	Empty      bool   // no members remain; the room should be collected
	SetterConn string // setter seat after any reassignment, "" if vacant
}

// Disconnect removes connID from the room.
// A departing guesser vacates the seat. A departing setter hands the
// seat to any remaining member; that member's guesser seat is vacated so
// the seats stay distinct. Safe to call for ids that already left.
func (s *Session) Disconnect(connID string) DisconnectResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.members, connID)

	if connID == s.guesserConn {
		s.guesserConn = ""
	}
	if connID == s.setterConn {
		s.setterConn = ""
		for id := range s.members {
			s.setterConn = id
			break
		}
		if s.setterConn != "" && s.setterConn == s.guesserConn {
			s.guesserConn = ""
		}
	}

	empty := len(s.members) == 0
	if empty && s.swapTimer != nil {
		s.swapTimer.Stop()
		s.swapTimer = nil
	}
	return DisconnectResult{Empty: empty, SetterConn: s.setterConn}
}

// Members returns a snapshot of the room's connection ids.
func (s *Session) Members() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}
	return out
}

// IsMember reports whether connID is currently in the room.
func (s *Session) IsMember(connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[connID]
	return ok
}

// Empty reports whether the room has no members left.
func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members) == 0
}

// SetSwapTimer installs the pending post-swap notify timer, stopping any
// previous one. Teardown cancels it via Disconnect/StopSwapTimer.
func (s *Session) SetSwapTimer(t *time.Timer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.swapTimer != nil {
		s.swapTimer.Stop()
	}
	s.swapTimer = t
}

// StopSwapTimer cancels any pending post-swap notify.
func (s *Session) StopSwapTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.swapTimer != nil {
		s.swapTimer.Stop()
		s.swapTimer = nil
	}
}

// Snapshot of the flags, for tests and diagnostics.
func (s *Session) State() (locked, started, over bool, attempts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked, s.started, s.round.Over, s.round.Attempts()
}
