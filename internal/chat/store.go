// Package chat keeps bounded, per-session conversation history in process memory.
package chat

import (
	"sync"
	"time"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultMaxTurns is the history bound used when a Store is built with a non-positive bound.
const DefaultMaxTurns = 20

// Turn is a single message in a conversation.
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// session is guarded by its own mutex so that turns for one id are serialized
// while other ids proceed independently.
type session struct {
	mu    sync.Mutex
	turns []Turn
}

// Store maps session ids to bounded histories. Sessions live as long as the process.
type Store struct {
	maxTurns int
	sessions sync.Map // string -> *session
	now      func() time.Time
}

// NewStore builds a Store that retains at most maxTurns turns per session.
func NewStore(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Store{maxTurns: maxTurns, now: time.Now}
}

// MaxTurns returns the configured bound.
func (s *Store) MaxTurns() int { return s.maxTurns }

func (s *Store) get(id string) *session {
	if v, ok := s.sessions.Load(id); ok {
		return v.(*session)
	}
	v, _ := s.sessions.LoadOrStore(id, &session{})
	return v.(*session)
}

// AppendTurn adds a turn to the session (creating it on first use), evicts the
// oldest turns beyond the bound, and returns a copy of the resulting history.
func (s *Store) AppendTurn(id string, role Role, text string) []Turn {
	sess := s.get(id)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.turns = append(sess.turns, Turn{Role: role, Text: text, At: s.now()})
	if over := len(sess.turns) - s.maxTurns; over > 0 {
		// FIFO: drop from the front, copy so the backing array does not grow forever.
		sess.turns = append([]Turn(nil), sess.turns[over:]...)
	}
	return cloneTurns(sess.turns)
}

// Context returns a copy of the bounded history, oldest first. Unknown ids yield nil.
func (s *Store) Context(id string) []Turn {
	v, ok := s.sessions.Load(id)
	if !ok {
		return nil
	}
	sess := v.(*session)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return cloneTurns(sess.turns)
}

// Has reports whether the session has at least one turn.
func (s *Store) Has(id string) bool {
	return s.Len(id) > 0
}

// Len returns the number of retained turns for id.
func (s *Store) Len(id string) int {
	v, ok := s.sessions.Load(id)
	if !ok {
		return 0
	}
	sess := v.(*session)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.turns)
}

// Restore seeds a session that has no turns yet, typically from the durable mirror
// after a restart. It returns false and leaves the session untouched if it is already active.
func (s *Store) Restore(id string, turns []Turn) bool {
	if len(turns) == 0 {
		return false
	}
	sess := s.get(id)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if len(sess.turns) > 0 {
		return false
	}
	if over := len(turns) - s.maxTurns; over > 0 {
		turns = turns[over:]
	}
	sess.turns = cloneTurns(turns)
	return true
}

func cloneTurns(in []Turn) []Turn {
	if len(in) == 0 {
		return []Turn{}
	}
	out := make([]Turn, len(in))
	copy(out, in)
	return out
}
