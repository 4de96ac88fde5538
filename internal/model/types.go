package model

import "time"

// -----------------------------------------------------------------------------
// Wire Types
// -----------------------------------------------------------------------------
//
// AscendEX encodes prices and quantities as decimal strings; they are
// stored verbatim to avoid float rounding.

// Trade is one executed trade from the trades channel.
type Trade struct {
	Price        string `json:"p"`
	Qty          string `json:"q"`
	Ts           int64  `json:"ts"` // exchange timestamp (ms since epoch)
	IsBuyerMaker bool   `json:"bm"`
	Seq          int64  `json:"seqnum"`
}

// Time returns the exchange timestamp as a time.Time.
func (t Trade) Time() time.Time {
	return time.UnixMilli(t.Ts)
}

// Bar is one OHLCV candle from the bar channel or the barhist endpoint.
type Bar struct {
	Ts       int64  `json:"ts"` // bar open time (ms since epoch)
	Interval string `json:"i"`  // "1", "5", "30", "60", "360", "1d", ...
	Open     string `json:"o"`
	Close    string `json:"c"`
	High     string `json:"h"`
	Low      string `json:"l"`
	Volume   string `json:"v"`
}

// Depth is a level-2 order book delta or snapshot. Each level is a
// [price, size] pair; size "0" removes the level.
type Depth struct {
	Ts   int64       `json:"ts"`
	Seq  int64       `json:"seqnum"`
	Asks [][2]string `json:"asks"`
	Bids [][2]string `json:"bids"`
}

// OrderUpdate is one order lifecycle event from the order channel.
type OrderUpdate struct {
	OrderID   string `json:"orderId"`
	Symbol    string `json:"s"`
	Status    string `json:"st"` // New, PartiallyFilled, Filled, Canceled, Rejected
	Side      string `json:"sd"`
	Price     string `json:"p"`
	Qty       string `json:"q"`
	FilledQty string `json:"cfq"` // cumulative filled quantity
	AvgPrice  string `json:"ap"`
	Ts        int64  `json:"t"`
}

// -----------------------------------------------------------------------------
// Storage Types
// -----------------------------------------------------------------------------

// TradeRow is one trades-table row.
type TradeRow struct {
	Symbol       string
	ExchangeTS   int64 // exchange timestamp (ms since epoch)
	ReceivedAt   int64 // recorder receive timestamp (ms since epoch)
	Seq          int64 // exchange sequence number, unique per symbol
	Price        string
	Qty          string
	IsBuyerMaker bool
}

// BarRow is one bars-table row.
type BarRow struct {
	Symbol     string
	Interval   string
	Ts         int64 // bar open time (ms since epoch)
	ReceivedAt int64
	Open       string
	Close      string
	High       string
	Low        string
	Volume     string
}
