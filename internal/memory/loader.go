package memory

import (
	"context"
	"log"

	"github.com/amezzi/chatterbox/internal/store"
)

// Loader replays a session's persisted turns into a Memory.
type Loader struct {
	store store.Store
}

func NewLoader(st store.Store) *Loader {
	return &Loader{store: st}
}

// LoadIntoMemory clears mem and folds the session's durable turns into it in
// chronological order. The reset comes first so a reload never stacks
// duplicate context. A history-read failure logs and leaves the memory empty:
// the conversation degrades to "start fresh" instead of blocking the caller.
func (l *Loader) LoadIntoMemory(ctx context.Context, mem *Memory, sessionID string) {
	mem.Reset()

	turns, err := l.store.ListTurns(ctx, sessionID)
	if err != nil {
		log.Printf("history load failed for session %s: %v", sessionID, err)
		return
	}
	for _, t := range turns {
		mem.Append(t.UserMessage, t.BotReply, t.CreatedAt)
	}
	// Only a successful replay counts as hydration; a failed read stays
	// unhydrated so a later exchange can retry the load.
	mem.MarkHydrated()
}
