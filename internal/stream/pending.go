package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// pendingKey identifies one outstanding request.
type pendingKey struct {
	action string
	id     string
}

// result is the single settlement of a waiter.
type result struct {
	payload json.RawMessage
	err     error
}

// waiter is a single-resolution handle for one pending request.
type waiter struct {
	key       pendingKey
	ch        chan result // buffered 1, written at most once
	createdAt time.Time
}

// wait blocks until the waiter settles or ctx expires. On ctx expiry the
// table entry is forgotten so a late reply cannot leak.
func (w *waiter) wait(ctx context.Context, t *pendingTable) (json.RawMessage, error) {
	select {
	case <-ctx.Done():
		t.forget(w)
		return nil, ctx.Err()
	case res := <-w.ch:
		return res.payload, res.err
	}
}

// pendingTable matches pending callers to future replies by (action, id).
// Settlement removes the entry under the lock, so a key settles at most
// once per registration.
type pendingTable struct {
	mu      sync.Mutex
	waiters map[pendingKey]*waiter
	logger  *slog.Logger
}

func newPendingTable(logger *slog.Logger) *pendingTable {
	if logger == nil {
		logger = slog.Default()
	}
	return &pendingTable{
		waiters: make(map[pendingKey]*waiter),
		logger:  logger,
	}
}

// await registers a waiter for (action, id). A live waiter on the same
// key is failed with ErrSuperseded and replaced, never fulfilled twice.
func (t *pendingTable) await(action, id string) *waiter {
	key := pendingKey{action: action, id: id}
	w := &waiter{
		key:       key,
		ch:        make(chan result, 1),
		createdAt: time.Now(),
	}

	t.mu.Lock()
	prev := t.waiters[key]
	t.waiters[key] = w
	t.mu.Unlock()

	if prev != nil {
		t.logger.Warn("pending request superseded", "action", action, "id", id)
		prev.ch <- result{err: ErrSuperseded}
	}

	return w
}

// resolve settles the waiter for (action, id) with a payload. Returns
// false when no waiter is open, which the caller treats as "frame not
// consumed".
func (t *pendingTable) resolve(action, id string, payload json.RawMessage) bool {
	return t.settle(pendingKey{action: action, id: id}, result{payload: payload})
}

// fail settles the waiter for (action, id) with an error.
func (t *pendingTable) fail(action, id string, err error) bool {
	return t.settle(pendingKey{action: action, id: id}, result{err: err})
}

func (t *pendingTable) settle(key pendingKey, res result) bool {
	t.mu.Lock()
	w, ok := t.waiters[key]
	if ok {
		delete(t.waiters, key)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}

	w.ch <- res
	return true
}

// failAll settles every open waiter with err. Called on connection loss
// and on shutdown so no caller is left pending.
func (t *pendingTable) failAll(err error) {
	t.mu.Lock()
	waiters := t.waiters
	t.waiters = make(map[pendingKey]*waiter)
	t.mu.Unlock()

	for _, w := range waiters {
		w.ch <- result{err: err}
	}
}

// forget removes w from the table if it is still the registered waiter
// for its key. Used when a caller abandons its wait.
func (t *pendingTable) forget(w *waiter) {
	t.mu.Lock()
	if cur, ok := t.waiters[w.key]; ok && cur == w {
		delete(t.waiters, w.key)
	}
	t.mu.Unlock()
}

// size returns the number of open waiters.
func (t *pendingTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waiters)
}
