package telephony

import (
	"sync"

	"github.com/frontline-ai/voice-pipeline/internal/dialogue"
)

// History holds the conversation so far, bounded so long calls cannot grow
// the dialogue prompt without limit. When full, the oldest turn is evicted.
type History struct {
	mu       sync.Mutex
	turns    []dialogue.Turn
	maxTurns int
}

// NewHistory creates a history bounded to maxTurns entries.
func NewHistory(maxTurns int) *History {
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &History{maxTurns: maxTurns}
}

// Append records one turn, evicting the oldest when the cap is reached.
func (h *History) Append(role, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.turns = append(h.turns, dialogue.Turn{Role: role, Text: text})
	if len(h.turns) > h.maxTurns {
		h.turns = h.turns[len(h.turns)-h.maxTurns:]
	}
}

// Turns returns a copy of the conversation, oldest first.
func (h *History) Turns() []dialogue.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]dialogue.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of retained turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
