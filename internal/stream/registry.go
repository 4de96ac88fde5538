package stream

import (
	"reflect"
	"sort"
	"sync"
)

// subKey identifies one subscription: a channel plus its routing id
// (symbol or account id, depending on the channel).
type subKey struct {
	channel string
	id      string
}

func (k subKey) wire() string {
	return k.channel + ":" + k.id
}

// registry holds subscription membership. Membership is independent of
// connection identity: it survives reconnects, and only the wire-level
// subscribe frame is reissued on replay.
type registry struct {
	mu    sync.Mutex
	subs  map[subKey][]Handler
	dedup bool
}

func newRegistry(dedup bool) *registry {
	return &registry{
		subs:  make(map[subKey][]Handler),
		dedup: dedup,
	}
}

// add registers a handler for (channel, id) in registration order. With
// dedup enabled a handler already registered on the key is dropped.
func (r *registry) add(channel, id string, h Handler) {
	key := subKey{channel: channel, id: id}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dedup {
		ptr := reflect.ValueOf(h).Pointer()
		for _, existing := range r.subs[key] {
			if reflect.ValueOf(existing).Pointer() == ptr {
				return
			}
		}
	}

	r.subs[key] = append(r.subs[key], h)
}

// remove deletes the whole (channel, id) entry. Returns whether the
// entry existed.
func (r *registry) remove(channel, id string) bool {
	key := subKey{channel: channel, id: id}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[key]; !ok {
		return false
	}
	delete(r.subs, key)
	return true
}

// handlers returns a snapshot of the handlers for (channel, id), so a
// handler unsubscribing during its own delivery cannot disturb the
// iteration.
func (r *registry) handlers(channel, id string) []Handler {
	key := subKey{channel: channel, id: id}

	r.mu.Lock()
	defer r.mu.Unlock()

	hs := r.subs[key]
	if len(hs) == 0 {
		return nil
	}
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}

// keys returns every live (channel, id) pair, sorted for deterministic
// replay.
func (r *registry) keys() []subKey {
	r.mu.Lock()
	keys := make([]subKey, 0, len(r.subs))
	for k := range r.subs {
		keys = append(keys, k)
	}
	r.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].channel != keys[j].channel {
			return keys[i].channel < keys[j].channel
		}
		return keys[i].id < keys[j].id
	})
	return keys
}

// size returns the number of live (channel, id) entries.
func (r *registry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
