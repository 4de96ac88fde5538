package recorder

import (
	"encoding/json"
	"testing"

	"github.com/avelez/ascendex-stream/internal/model"
)

func TestTransformBar(t *testing.T) {
	frame := barFrame{
		Symbol: "ETH/USDT",
		Data: model.Bar{
			Ts:       1700000000000,
			Interval: "1",
			Open:     "3200.0",
			Close:    "3210.5",
			High:     "3215.0",
			Low:      "3198.2",
			Volume:   "152.4",
		},
	}

	row := transformBar(frame, 1700000060000)

	if row.Symbol != "ETH/USDT" {
		t.Errorf("Symbol = %q, want ETH/USDT", row.Symbol)
	}
	if row.Interval != "1" {
		t.Errorf("Interval = %q, want 1", row.Interval)
	}
	if row.Ts != 1700000000000 {
		t.Errorf("Ts = %d, want 1700000000000", row.Ts)
	}
	if row.ReceivedAt != 1700000060000 {
		t.Errorf("ReceivedAt = %d, want 1700000060000", row.ReceivedAt)
	}
	if row.Open != "3200.0" || row.Close != "3210.5" {
		t.Errorf("Open/Close = %q/%q", row.Open, row.Close)
	}
}

func TestBarRecorder_HandleWholeFrame(t *testing.T) {
	r := NewBarRecorder(testConfig(), nil, nil)

	// The bar channel delivers the whole frame, candle under "data".
	payload := json.RawMessage(`{
		"m":"bar","s":"BTC/USDT",
		"data":{"ts":1700000000000,"i":"1","o":"64000","c":"64100","h":"64200","l":"63900","v":"12.5"}
	}`)

	if err := r.Handle("bar", "BTC/USDT", payload); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	if len(r.batch) != 1 {
		t.Fatalf("batch length = %d, want 1", len(r.batch))
	}
	if r.batch[0].Close != "64100" {
		t.Errorf("Close = %q, want 64100", r.batch[0].Close)
	}
	if r.batch[0].Interval != "1" {
		t.Errorf("Interval = %q, want 1", r.batch[0].Interval)
	}
}

func TestBarRecorder_SymbolFallsBackToSubscription(t *testing.T) {
	r := NewBarRecorder(testConfig(), nil, nil)

	payload := json.RawMessage(`{"m":"bar","data":{"ts":1,"i":"1","o":"1","c":"2","h":"3","l":"0","v":"9"}}`)
	if err := r.Handle("bar", "ETH/USDT", payload); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	if r.batch[0].Symbol != "ETH/USDT" {
		t.Errorf("Symbol = %q, want subscription id fallback ETH/USDT", r.batch[0].Symbol)
	}
}

func TestBarRecorder_HandleBadPayload(t *testing.T) {
	r := NewBarRecorder(testConfig(), nil, nil)

	if err := r.Handle("bar", "BTC/USDT", json.RawMessage(`[1,2,3]`)); err == nil {
		t.Fatal("expected decode error")
	}
	if got := r.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
}
