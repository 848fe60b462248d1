package memory

import "sync"

type key struct {
	userID    string
	sessionID string
}

// Registry is the process-wide cache of conversation memories, one per
// (user, session) pair. The registry mutex guards only map lookup/insert;
// each Memory synchronizes its own content, so exchanges on different keys
// never serialize on each other.
type Registry struct {
	mu       sync.RWMutex
	memories map[key]*Memory
}

func NewRegistry() *Registry {
	return &Registry{memories: make(map[key]*Memory)}
}

// Get returns the memory bound to (userID, sessionID), creating an empty one
// on first access. A caller without a resolved session id gets a fresh
// ephemeral memory that is never cached: keying by user alone would let two
// sessionless conversations of the same user share context.
func (r *Registry) Get(userID, sessionID string) *Memory {
	if sessionID == "" {
		return NewMemory()
	}
	k := key{userID: userID, sessionID: sessionID}

	r.mu.RLock()
	m, ok := r.memories[k]
	r.mu.RUnlock()
	if ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.memories[k]; ok {
		return m
	}
	m = NewMemory()
	r.memories[k] = m
	return m
}

// Reset discards the memory for the key and binds a fresh empty one. The
// replacement is hydrated: an explicit reset means "empty on purpose", so
// nothing may refill it from durable history behind the caller's back.
func (r *Registry) Reset(userID, sessionID string) *Memory {
	m := NewMemory()
	m.MarkHydrated()
	if sessionID == "" {
		return m
	}
	k := key{userID: userID, sessionID: sessionID}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.memories[k] = m
	return m
}

// Size reports how many memories are currently cached.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.memories)
}
