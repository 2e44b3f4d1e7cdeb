// Package transcript keeps the ordered turn history of one chat
// session.
package transcript

import "sync"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one transcript entry. Turns are append-only; the transcript
// never mutates a stored turn.
type Turn struct {
	Role    Role
	Content string
}

// Transcript is a concurrency-safe turn history. The zero value is not
// usable; create one with NewTranscript.
type Transcript struct {
	mu       sync.RWMutex
	turns    []Turn
	maxTurns int
}

// Option configures a Transcript.
type Option func(*Transcript)

// WithMaxTurns caps the history length. When a cap is set, appending
// beyond it drops the oldest turns. Zero means unbounded.
func WithMaxTurns(n int) Option {
	return func(t *Transcript) {
		t.maxTurns = n
	}
}

// NewTranscript creates an empty transcript, unbounded by default.
func NewTranscript(opts ...Option) *Transcript {
	t := &Transcript{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Append adds one turn to the history.
func (t *Transcript) Append(role Role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.turns = append(t.turns, Turn{Role: role, Content: content})
	if t.maxTurns > 0 && len(t.turns) > t.maxTurns {
		overflow := len(t.turns) - t.maxTurns
		t.turns = append(t.turns[:0:0], t.turns[overflow:]...)
	}
}

// All returns a copy of the history in order.
func (t *Transcript) All() []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	turns := make([]Turn, len(t.turns))
	copy(turns, t.turns)
	return turns
}

// Last returns the most recent turn and true, or a zero Turn and false
// when the transcript is empty.
func (t *Transcript) Last() (Turn, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.turns) == 0 {
		return Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

// Len returns the number of stored turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Clear empties the history.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.turns = nil
}
