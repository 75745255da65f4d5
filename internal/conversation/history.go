// Package conversation keeps the bounded per-session record of prior
// question/answer turns. It is in-memory bookkeeping only; no operation
// blocks.
package conversation

import (
	"sync"

	"docchat/pkg/types"
)

// MaxTurns is the history capacity. The oldest turn is evicted on overflow.
const MaxTurns = 5

// History is a bounded FIFO of conversation turns owned by one session.
// Safe for concurrent use.
type History struct {
	mu    sync.Mutex
	turns []types.Turn
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Append records a completed turn, evicting the oldest when at capacity.
func (h *History) Append(turn types.Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turn)
	if len(h.turns) > MaxTurns {
		h.turns = h.turns[len(h.turns)-MaxTurns:]
	}
}

// Recent returns up to n most recent turns in chronological order.
func (h *History) Recent(n int) []types.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || len(h.turns) == 0 {
		return nil
	}
	if n > len(h.turns) {
		n = len(h.turns)
	}
	out := make([]types.Turn, n)
	copy(out, h.turns[len(h.turns)-n:])
	return out
}

// Len returns the number of recorded turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

// Clear removes all recorded turns.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}
