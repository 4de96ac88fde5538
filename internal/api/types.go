package api

import "github.com/avelez/ascendex-stream/internal/model"

// Asset describes one listed asset.
type Asset struct {
	Code           string `json:"assetCode"`
	Name           string `json:"assetName"`
	PrecisionScale int    `json:"precisionScale"`
	NativeScale    int    `json:"nativeScale"`
	Status         string `json:"status"`
}

// Product describes one tradeable symbol.
type Product struct {
	Symbol      string `json:"symbol"`
	BaseAsset   string `json:"baseAsset"`
	QuoteAsset  string `json:"quoteAsset"`
	Status      string `json:"status"`
	TickSize    string `json:"tickSize"`
	LotSize     string `json:"lotSize"`
	MinNotional string `json:"minNotional"`
	MaxNotional string `json:"maxNotional"`
}

// Ticker is a 24-hour rolling price summary for one symbol. Ask and
// Bid are [price, size] pairs.
type Ticker struct {
	Symbol string    `json:"symbol"`
	Open   string    `json:"open"`
	Close  string    `json:"close"`
	High   string    `json:"high"`
	Low    string    `json:"low"`
	Volume string    `json:"volume"`
	Ask    [2]string `json:"ask"`
	Bid    [2]string `json:"bid"`
}

// BarEnvelope wraps one historical candle as returned by barhist.
type BarEnvelope struct {
	M      string    `json:"m"` // always "bar"
	Symbol string    `json:"s"`
	Data   model.Bar `json:"data"`
}

// Balance is one asset balance of a cash account.
type Balance struct {
	Asset            string `json:"asset"`
	TotalBalance     string `json:"totalBalance"`
	AvailableBalance string `json:"availableBalance"`
}

// AccountInfo identifies the caller's account and group.
type AccountInfo struct {
	AccountGroup int      `json:"accountGroup"`
	Email        string   `json:"email"`
	CashAccount  []string `json:"cashAccount"`
	TradePerm    bool     `json:"tradePermission"`
}

// OrderRecord is one historical order.
type OrderRecord struct {
	OrderID      string `json:"orderId"`
	Symbol       string `json:"symbol"`
	OrderType    string `json:"orderType"`
	Side         string `json:"side"`
	Status       string `json:"status"`
	Price        string `json:"price"`
	OrderQty     string `json:"orderQty"`
	CumFilledQty string `json:"cumFilledQty"`
	AvgPx        string `json:"avgPx"`
	LastExecTime int64  `json:"lastExecTime"`
	SeqNum       int64  `json:"seqNum"`
}

// GetCandlesOptions filters a barhist query.
type GetCandlesOptions struct {
	Symbol   string
	Interval string // "1", "5", "30", "60", "360", "1d", ...
	From     int64  // ms since epoch, 0 = unset
	To       int64  // ms since epoch, 0 = unset
	Limit    int    // 0 = server default
}
