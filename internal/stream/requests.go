package stream

import (
	"context"
	"encoding/json"
	"time"
)

// DepthSnapshot requests an order book snapshot for symbol. The server
// correlates the reply by symbol rather than echoing the request id.
func (m *manager) DepthSnapshot(ctx context.Context, symbol string) (json.RawMessage, error) {
	frame := requestFrame{
		Op:     "req",
		Action: "depth-snapshot",
		ID:     newCorrelationID(),
		Args:   map[string]any{"symbol": symbol},
	}
	return m.request(ctx, frame, "depth-snapshot", symbol)
}

// TradeSnapshot requests up to level recent trades for symbol.
func (m *manager) TradeSnapshot(ctx context.Context, symbol string, level int) (json.RawMessage, error) {
	id := newCorrelationID()
	frame := requestFrame{
		Op:     "req",
		Action: "market-trades",
		ID:     id,
		Args: map[string]any{
			"symbol": symbol,
			"level":  level,
		},
	}
	return m.request(ctx, frame, "market-trades", id)
}

// OpenOrders requests the account's open orders, optionally filtered by
// symbol.
func (m *manager) OpenOrders(ctx context.Context, symbol string) (json.RawMessage, error) {
	id := newCorrelationID()
	frame := requestFrame{
		Op:      "req",
		Action:  "open-order",
		ID:      id,
		Account: "cash",
		Args:    map[string]any{"symbols": symbol},
	}
	return m.request(ctx, frame, "open-order", id)
}

// PlaceOrder submits a new order and returns the client order id. Order
// acknowledgments arrive on the "order" channel subscription, not as a
// correlated reply.
func (m *manager) PlaceOrder(order Order) (string, error) {
	coid := newCorrelationID()
	respInst := order.RespInst
	if respInst == "" {
		respInst = "ACK"
	}

	frame := requestFrame{
		Op:      "req",
		Action:  "place-Order",
		Account: "cash",
		Args: map[string]any{
			"time":       time.Now().UnixMilli(),
			"coid":       coid,
			"symbol":     order.Symbol,
			"orderPrice": order.Price,
			"orderQty":   order.Qty,
			"orderType":  order.OrderType,
			"side":       order.Side,
			"postOnly":   order.PostOnly,
			"respInst":   respInst,
		},
	}

	if err := m.Send(frame); err != nil {
		return "", err
	}
	return coid, nil
}

// CancelOrder cancels an existing order by its client order id.
func (m *manager) CancelOrder(origID, symbol string) (string, error) {
	coid := newCorrelationID()
	frame := requestFrame{
		Op:      "req",
		Action:  "cancel-Order",
		Account: "cash",
		Args: map[string]any{
			"time":     time.Now().UnixMilli(),
			"coid":     coid,
			"origCoid": origID,
			"symbol":   symbol,
		},
	}

	if err := m.Send(frame); err != nil {
		return "", err
	}
	return coid, nil
}

// CancelAll cancels all open orders, optionally restricted to symbol.
func (m *manager) CancelAll(symbol string) error {
	args := map[string]any{"time": time.Now().UnixMilli()}
	if symbol != "" {
		args["symbol"] = symbol
	}

	frame := requestFrame{
		Op:      "req",
		Action:  "cancel-All",
		Account: "cash",
		Args:    args,
	}
	return m.Send(frame)
}
