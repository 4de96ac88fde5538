package stream

import (
	"encoding/json"
	"testing"
)

func noopHandler(channel, id string, data json.RawMessage) error { return nil }

func TestRegistry_AddAndRemove(t *testing.T) {
	r := newRegistry(false)

	r.add("trades", "BTC/USDT", noopHandler)
	r.add("trades", "ETH/USDT", noopHandler)

	if r.size() != 2 {
		t.Fatalf("size = %d, want 2", r.size())
	}
	if len(r.handlers("trades", "BTC/USDT")) != 1 {
		t.Error("expected one handler for trades:BTC/USDT")
	}
	if r.handlers("trades", "XRP/USDT") != nil {
		t.Error("expected no handlers for unsubscribed key")
	}

	if !r.remove("trades", "BTC/USDT") {
		t.Error("remove should report an existing entry")
	}
	if r.remove("trades", "BTC/USDT") {
		t.Error("second remove should report a missing entry")
	}
	if r.size() != 1 {
		t.Errorf("size = %d, want 1", r.size())
	}
}

func TestRegistry_RegistrationOrder(t *testing.T) {
	r := newRegistry(false)

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		r.add("trades", "BTC/USDT", func(channel, id string, data json.RawMessage) error {
			order = append(order, i)
			return nil
		})
	}

	for _, h := range r.handlers("trades", "BTC/USDT") {
		h("trades", "BTC/USDT", nil)
	}

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("delivery order = %v, want [1 2 3]", order)
	}
}

func TestRegistry_DuplicatePolicy(t *testing.T) {
	// Default: every subscribe registers another delivery.
	r := newRegistry(false)
	r.add("trades", "BTC/USDT", noopHandler)
	r.add("trades", "BTC/USDT", noopHandler)
	if got := len(r.handlers("trades", "BTC/USDT")); got != 2 {
		t.Errorf("handlers = %d, want 2 without dedup", got)
	}

	// Dedup: the same handler registers once per key.
	r = newRegistry(true)
	r.add("trades", "BTC/USDT", noopHandler)
	r.add("trades", "BTC/USDT", noopHandler)
	if got := len(r.handlers("trades", "BTC/USDT")); got != 1 {
		t.Errorf("handlers = %d, want 1 with dedup", got)
	}

	// A different handler still registers.
	other := func(channel, id string, data json.RawMessage) error { return nil }
	r.add("trades", "BTC/USDT", other)
	if got := len(r.handlers("trades", "BTC/USDT")); got != 2 {
		t.Errorf("handlers = %d, want 2 distinct handlers with dedup", got)
	}
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := newRegistry(false)
	r.add("trades", "BTC/USDT", noopHandler)

	snapshot := r.handlers("trades", "BTC/USDT")
	r.remove("trades", "BTC/USDT")

	// Unsubscribing during delivery must not disturb the snapshot.
	if len(snapshot) != 1 {
		t.Errorf("snapshot length = %d, want 1 after remove", len(snapshot))
	}
}

func TestRegistry_KeysSorted(t *testing.T) {
	r := newRegistry(false)
	r.add("trades", "ETH/USDT", noopHandler)
	r.add("depth", "BTC/USDT", noopHandler)
	r.add("trades", "BTC/USDT", noopHandler)

	keys := r.keys()
	want := []subKey{
		{channel: "depth", id: "BTC/USDT"},
		{channel: "trades", id: "BTC/USDT"},
		{channel: "trades", id: "ETH/USDT"},
	}

	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %v, want %v", i, keys[i], want[i])
		}
	}
	if keys[0].wire() != "depth:BTC/USDT" {
		t.Errorf("wire = %q, want depth:BTC/USDT", keys[0].wire())
	}
}
