// internal/duel/registry.go
//
// Process-wide room registry: room code → *Session.
// This is the only place sessions are created and removed. Rooms hold no
// durable state, so removal when the last member leaves is the entire
// lifecycle; there is no sweeper timer.

package duel

import (
	"crypto/rand"
	"strings"
	"sync"
)

// codeAlphabet excludes lookalike characters (I/O/0/1) since codes are
// read aloud and retyped between players.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLen      = 6
)

// Registry maps room codes to live sessions.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Session
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*Session)}
}

// Create generates a fresh room code and stores a new session with
// creatorConn seated as setter.
func (r *Registry) Create(creatorConn string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	code := newCode()
	for _, taken := r.rooms[code]; taken; _, taken = r.rooms[code] {
		code = newCode()
	}
	s := NewSession(code, creatorConn)
	r.rooms[code] = s
	return s
}

// Get looks up a session by code. Codes are case-insensitive; the lookup
// normalizes so "ab2xyz" and "AB2XYZ" name the same room.
func (r *Registry) Get(code string) (*Session, bool) {
	code = NormalizeCode(code)
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.rooms[code]
	return s, ok
}

// Collect removes the session if its membership is empty.
// It re-reads current membership rather than trusting the caller's view,
// since a join can race the disconnect that triggered collection.
func (r *Registry) Collect(code string) bool {
	code = NormalizeCode(code)
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rooms[code]
	if !ok || !s.Empty() {
		return false
	}
	s.StopSwapTimer()
	delete(r.rooms, code)
	return true
}

// Len reports the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// NormalizeCode uppercases and trims a client-supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// newCode returns a random 6-character room code.
// Uniqueness is checked by the caller under the registry lock; the
// collision probability at this scale is negligible anyway.
func newCode() string {
	var b [codeLen]byte
	_, _ = rand.Read(b[:])
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b[:])
}
