package recorder

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/avelez/ascendex-stream/internal/model"
)

func testConfig() Config {
	return Config{BatchSize: 1000, FlushInterval: time.Second}
}

func TestTransformTrade(t *testing.T) {
	trade := model.Trade{
		Price:        "64123.5",
		Qty:          "0.25",
		Ts:           1700000000123,
		IsBuyerMaker: true,
		Seq:          987654,
	}

	row := transformTrade("BTC/USDT", trade, 1700000000456)

	if row.Symbol != "BTC/USDT" {
		t.Errorf("Symbol = %q, want BTC/USDT", row.Symbol)
	}
	if row.ExchangeTS != 1700000000123 {
		t.Errorf("ExchangeTS = %d, want 1700000000123", row.ExchangeTS)
	}
	if row.ReceivedAt != 1700000000456 {
		t.Errorf("ReceivedAt = %d, want 1700000000456", row.ReceivedAt)
	}
	if row.Seq != 987654 {
		t.Errorf("Seq = %d, want 987654", row.Seq)
	}
	if row.Price != "64123.5" || row.Qty != "0.25" {
		t.Errorf("Price/Qty = %q/%q", row.Price, row.Qty)
	}
	if !row.IsBuyerMaker {
		t.Error("IsBuyerMaker = false, want true")
	}
}

func TestTradeRecorder_HandleAccumulates(t *testing.T) {
	r := NewTradeRecorder(testConfig(), nil, nil)

	payload := json.RawMessage(`[
		{"p":"64123.5","q":"0.25","ts":1700000000123,"bm":true,"seqnum":1},
		{"p":"64124.0","q":"0.10","ts":1700000000456,"bm":false,"seqnum":2}
	]`)

	if err := r.Handle("trades", "BTC/USDT", payload); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	if len(r.batch) != 2 {
		t.Fatalf("batch length = %d, want 2", len(r.batch))
	}
	if r.batch[0].Seq != 1 || r.batch[1].Seq != 2 {
		t.Errorf("batch seqs = %d, %d, want 1, 2", r.batch[0].Seq, r.batch[1].Seq)
	}
	if r.batch[0].Symbol != "BTC/USDT" {
		t.Errorf("Symbol = %q, want BTC/USDT", r.batch[0].Symbol)
	}
}

func TestTradeRecorder_HandleBadPayload(t *testing.T) {
	r := NewTradeRecorder(testConfig(), nil, nil)

	if err := r.Handle("trades", "BTC/USDT", json.RawMessage(`{"not":"a list"}`)); err == nil {
		t.Fatal("expected decode error")
	}

	if got := r.Stats().Dropped; got != 1 {
		t.Errorf("Dropped = %d, want 1", got)
	}
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	if len(r.batch) != 0 {
		t.Errorf("batch length = %d, want 0", len(r.batch))
	}
}

func TestTradeRecorder_HandleEmptyPayload(t *testing.T) {
	r := NewTradeRecorder(testConfig(), nil, nil)

	if err := r.Handle("trades", "BTC/USDT", json.RawMessage(`[]`)); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	r.batchMu.Lock()
	defer r.batchMu.Unlock()
	if len(r.batch) != 0 {
		t.Errorf("batch length = %d, want 0", len(r.batch))
	}
}
