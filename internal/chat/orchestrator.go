package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"

	"github.com/amezzi/chatterbox/internal/memory"
	"github.com/amezzi/chatterbox/internal/model"
	"github.com/amezzi/chatterbox/internal/observability"
	"github.com/amezzi/chatterbox/internal/store"
)

// FallbackReply is returned verbatim whenever the model fails or times out.
const FallbackReply = "Sorry, I couldn't process your request at this time."

const sessionTitleMax = 100

// Request is one user utterance entering the orchestrator. SessionID may be
// empty, in which case a session is created lazily from the first utterance.
type Request struct {
	UserID    string
	SessionID string
	Text      string
}

// Result reports the outcome of one completed exchange.
type Result struct {
	Reply          string
	TurnID         string
	SessionID      string
	SessionTitle   string
	SessionCreated bool
}

// Orchestrator drives one exchange from input to persisted reply: resolve
// session, bind memory, invoke the model under a bounded-time guard, persist
// the turn, report the reply.
type Orchestrator struct {
	store    store.Store
	registry *memory.Registry
	loader   *memory.Loader
	client   model.Client
	metrics  *observability.Metrics
	pool     *ants.Pool
	timeout  time.Duration
}

func NewOrchestrator(st store.Store, reg *memory.Registry, client model.Client, metrics *observability.Metrics, workers int, timeout time.Duration) (*Orchestrator, error) {
	if workers <= 0 {
		workers = 10
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("create model worker pool: %w", err)
	}
	return &Orchestrator{
		store:    st,
		registry: reg,
		loader:   memory.NewLoader(st),
		client:   client,
		metrics:  metrics,
		pool:     pool,
		timeout:  timeout,
	}, nil
}

// Submit runs one exchange. A model failure returns a Result carrying the
// fixed fallback reply and leaves both the store and the memory untouched;
// a persistence failure after a successful model call is tolerated and the
// reply is still returned, without a TurnID.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return Result{}, ErrUnauthenticated
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Result{}, ErrEmptyMessage
	}

	res := Result{SessionID: req.SessionID}
	if res.SessionID != "" {
		sess, err := o.store.GetSession(ctx, res.SessionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Result{}, ErrSessionNotFound
			}
			o.metrics.StoreErrors.WithLabelValues("get_session").Inc()
			o.metrics.Exchanges.WithLabelValues("aborted").Inc()
			return Result{}, &StoreError{Op: "resolve session", Err: err}
		}
		if sess.UserID != req.UserID {
			// A foreign session must be indistinguishable from a missing one.
			return Result{}, ErrSessionNotFound
		}
	} else {
		title := sessionTitle(text)
		sess, err := o.store.CreateSession(ctx, req.UserID, title)
		if err != nil {
			o.metrics.StoreErrors.WithLabelValues("create_session").Inc()
			o.metrics.Exchanges.WithLabelValues("aborted").Inc()
			return Result{}, &StoreError{Op: "create session", Err: err}
		}
		res.SessionID = sess.ID
		res.SessionTitle = sess.Title
		res.SessionCreated = true
		o.metrics.SessionEvents.WithLabelValues("created").Inc()
	}

	mem := o.registry.Get(req.UserID, res.SessionID)
	o.metrics.ActiveMemories.Set(float64(o.registry.Size()))
	if res.SessionCreated {
		mem.MarkHydrated()
	} else if !mem.Hydrated() {
		// First access to an existing session on this process: replay the
		// durable history so the prompt carries the prior context. An
		// explicitly reset memory is hydrated and stays empty.
		o.loader.LoadIntoMemory(ctx, mem, res.SessionID)
	}

	prompt := RenderPrompt(mem.Turns(), text)
	started := time.Now()
	reply, err := o.invokeModel(ctx, prompt)
	o.metrics.ObserveModelLatency(time.Since(started))
	if err != nil {
		outcome := "fallback_model_error"
		if errors.Is(err, ErrModelTimeout) {
			outcome = "fallback_timeout"
		}
		o.metrics.Exchanges.WithLabelValues(outcome).Inc()
		log.Printf("model invocation failed for session %s: %v", res.SessionID, err)
		res.Reply = FallbackReply
		return res, nil
	}

	reply, _ = StripExecutableMarkup(reply)

	turn, err := o.store.AppendTurn(ctx, res.SessionID, req.UserID, text, reply)
	if err != nil {
		// Tolerated: the reply still reaches the caller, the turn is simply
		// absent from history on next load. The memory is not advanced so it
		// never holds a turn the store lacks.
		o.metrics.StoreErrors.WithLabelValues("append_turn").Inc()
		o.metrics.Exchanges.WithLabelValues("persist_failed").Inc()
		log.Printf("append turn failed for session %s: %v", res.SessionID, err)
		res.Reply = reply
		return res, nil
	}

	mem.Append(text, reply, turn.CreatedAt)
	o.metrics.Exchanges.WithLabelValues("completed").Inc()
	res.Reply = reply
	res.TurnID = turn.ID
	return res, nil
}

// ResetMemory discards the cached context for the key. History stays durable.
func (o *Orchestrator) ResetMemory(userID, sessionID string) {
	o.registry.Reset(userID, sessionID)
	o.metrics.SessionEvents.WithLabelValues("memory_reset").Inc()
}

// LoadSession replaces the cached context for the key with a replay of the
// session's persisted turns. Used on session switch.
func (o *Orchestrator) LoadSession(ctx context.Context, userID, sessionID string) {
	mem := o.registry.Reset(userID, sessionID)
	o.loader.LoadIntoMemory(ctx, mem, sessionID)
}

type modelOutcome struct {
	text string
	err  error
}

// invokeModel runs the completion on the bounded worker pool and waits at most
// o.timeout. Expiry abandons the result; the underlying call is not stopped,
// only ignored.
func (o *Orchestrator) invokeModel(ctx context.Context, prompt string) (string, error) {
	ch := make(chan modelOutcome, 1)
	callCtx := context.WithoutCancel(ctx)

	if err := o.pool.Submit(func() {
		text, err := o.client.Complete(callCtx, prompt)
		ch <- modelOutcome{text: text, err: err}
	}); err != nil {
		return "", &ModelError{Err: err}
	}

	timer := time.NewTimer(o.timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.err != nil {
			return "", &ModelError{Err: out.err}
		}
		return out.text, nil
	case <-timer.C:
		return "", ErrModelTimeout
	case <-ctx.Done():
		return "", &ModelError{Err: ctx.Err()}
	}
}

// Close releases the worker pool.
func (o *Orchestrator) Close() {
	o.pool.Release()
}

func sessionTitle(text string) string {
	if utf8.RuneCountInString(text) <= sessionTitleMax {
		return text
	}
	runes := []rune(text)
	return string(runes[:sessionTitleMax])
}
