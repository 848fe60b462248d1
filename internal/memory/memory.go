package memory

import (
	"sync"
	"time"
)

// Turn is one prior exchange held in volatile conversational context.
type Turn struct {
	UserMessage string
	BotReply    string
	At          time.Time
}

// Memory is the volatile, process-local context for one (user, session) pair.
// It is safe for concurrent use; the durable store remains the source of truth.
type Memory struct {
	mu       sync.Mutex
	turns    []Turn
	hydrated bool
}

func NewMemory() *Memory {
	return &Memory{}
}

// Append records a completed exchange at the end of the context.
func (m *Memory) Append(userMessage, botReply string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, Turn{UserMessage: userMessage, BotReply: botReply, At: at})
}

// Reset discards all context.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = nil
}

// Turns returns a copy of the context in chronological order.
func (m *Memory) Turns() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Turn, len(m.turns))
	copy(out, m.turns)
	return out
}

// Hydrated reports whether this memory's content was deliberately
// established, either by a history replay or by an explicit reset. An
// unhydrated memory is merely unmaterialized: empty because nothing has
// touched it yet, not because the conversation holds no context.
func (m *Memory) Hydrated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hydrated
}

func (m *Memory) MarkHydrated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hydrated = true
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}
