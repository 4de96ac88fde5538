package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestPendingTable_ResolveOnce(t *testing.T) {
	table := newPendingTable(nil)

	w := table.await("order", "abc123")

	if !table.resolve("order", "abc123", json.RawMessage(`{"status":"NEW"}`)) {
		t.Fatal("resolve should settle the open waiter")
	}
	if table.resolve("order", "abc123", json.RawMessage(`{"status":"DUP"}`)) {
		t.Error("second resolve on a settled key should be a no-op")
	}
	if table.size() != 0 {
		t.Errorf("size = %d, want 0 after resolution", table.size())
	}

	payload, err := w.wait(context.Background(), table)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if string(payload) != `{"status":"NEW"}` {
		t.Errorf("payload = %s, want first resolution only", payload)
	}
}

func TestPendingTable_Fail(t *testing.T) {
	table := newPendingTable(nil)

	w := table.await("order", "abc123")
	wantErr := &CorrelationError{Action: "order", ID: "abc123", Reason: "AUTH_NEEDED"}

	if !table.fail("order", "abc123", wantErr) {
		t.Fatal("fail should settle the open waiter")
	}
	if table.fail("order", "abc123", errors.New("again")) {
		t.Error("second fail on a settled key should be a no-op")
	}

	_, err := w.wait(context.Background(), table)
	var corrErr *CorrelationError
	if !errors.As(err, &corrErr) {
		t.Fatalf("err = %v, want CorrelationError", err)
	}
	if corrErr.Reason != "AUTH_NEEDED" {
		t.Errorf("Reason = %q, want AUTH_NEEDED", corrErr.Reason)
	}
}

func TestPendingTable_AwaitOverwrites(t *testing.T) {
	table := newPendingTable(nil)

	first := table.await("order", "abc123")
	second := table.await("order", "abc123")

	_, err := first.wait(context.Background(), table)
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("first waiter err = %v, want ErrSuperseded", err)
	}

	if !table.resolve("order", "abc123", json.RawMessage(`1`)) {
		t.Fatal("resolve should settle the replacement waiter")
	}
	payload, err := second.wait(context.Background(), table)
	if err != nil {
		t.Fatalf("second waiter failed: %v", err)
	}
	if string(payload) != "1" {
		t.Errorf("payload = %s, want 1", payload)
	}
}

func TestPendingTable_FailAll(t *testing.T) {
	table := newPendingTable(nil)

	w1 := table.await("order", "a")
	w2 := table.await("market-trades", "b")

	table.failAll(ErrConnectionLost)

	for _, w := range []*waiter{w1, w2} {
		_, err := w.wait(context.Background(), table)
		if !errors.Is(err, ErrConnectionLost) {
			t.Errorf("err = %v, want ErrConnectionLost", err)
		}
	}
	if table.size() != 0 {
		t.Errorf("size = %d, want 0 after failAll", table.size())
	}
}

func TestPendingTable_DistinctKeys(t *testing.T) {
	table := newPendingTable(nil)

	table.await("order", "a")
	table.await("order", "b")
	table.await("balance", "a")

	if table.size() != 3 {
		t.Fatalf("size = %d, want 3", table.size())
	}
	if table.resolve("order", "c", nil) {
		t.Error("resolve on an unknown id should not settle anything")
	}
	if table.resolve("balance", "b", nil) {
		t.Error("resolve must match both action and id")
	}
}

func TestPendingTable_ForgetOnAbandonedWait(t *testing.T) {
	table := newPendingTable(nil)

	w := table.await("order", "a")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := w.wait(ctx, table)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if table.size() != 0 {
		t.Errorf("size = %d, want 0 after abandoned wait", table.size())
	}
	if table.resolve("order", "a", nil) {
		t.Error("late reply should find no waiter")
	}
}
