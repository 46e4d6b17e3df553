// Package turn models the listen->think->speak cycle of one phone call as an
// explicit state machine. Illegal transitions are rejected with errors
// instead of being representable as stray boolean flags.
package turn

import (
	"fmt"
	"sync"
)

// State is the current phase of the conversational cycle.
type State int

const (
	// Listening accumulates caller audio until end-of-utterance.
	Listening State = iota
	// Thinking covers the transcription and dialogue provider calls.
	Thinking
	// Speaking streams synthesized audio back to the caller.
	Speaking
)

func (s State) String() string {
	switch s {
	case Listening:
		return "listening"
	case Thinking:
		return "thinking"
	case Speaking:
		return "speaking"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Machine holds the turn state of one session. The cycle is
// Listening -> Thinking -> Speaking -> Listening, with two shortcuts:
// Thinking -> Listening when a turn is abandoned (empty transcript or
// provider failure) and Speaking -> Listening on completion or barge-in.
// There is no terminal state; termination is driven by connection close.
type Machine struct {
	mu    sync.Mutex
	state State
}

// NewMachine returns a machine in the initial Listening state.
func NewMachine() *Machine {
	return &Machine{state: Listening}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Is reports whether the machine is currently in s.
func (m *Machine) Is(s State) bool {
	return m.State() == s
}

var transitions = map[State][]State{
	Listening: {Thinking},
	Thinking:  {Speaking, Listening},
	Speaking:  {Listening},
}

// To transitions the machine to next, or returns an error when the cycle
// does not permit it.
func (m *Machine) To(next State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, allowed := range transitions[m.state] {
		if next == allowed {
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("illegal turn transition %s -> %s", m.state, next)
}
