package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetAccountInfo fetches the caller's account identity, including the
// account group used to build group-scoped routes. The info route is
// signed but not group-scoped.
func (c *Client) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	var info AccountInfo
	if err := c.getSigned(ctx, "info", "info", false, nil, &info); err != nil {
		return nil, fmt.Errorf("get account info: %w", err)
	}
	return &info, nil
}

// GetBalances fetches all cash account balances. asset narrows the
// result to a single asset when non-empty.
func (c *Client) GetBalances(ctx context.Context, asset string) ([]Balance, error) {
	query := url.Values{}
	if asset != "" {
		query.Set("asset", asset)
	}

	// The signature covers the terminal route word, not the account
	// prefix: "balance", served at <group>/api/pro/v1/cash/balance.
	var balances []Balance
	if err := c.getSigned(ctx, "cash/balance", "balance", true, query, &balances); err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}
	return balances, nil
}

// GetOrderHistory fetches historical orders for a symbol, newest
// first, up to limit entries.
func (c *Client) GetOrderHistory(ctx context.Context, symbol string, limit int) ([]OrderRecord, error) {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("account", "cash")
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var orders []OrderRecord
	if err := c.getSigned(ctx, "order/hist", "order/hist", true, query, &orders); err != nil {
		return nil, fmt.Errorf("get order history %s: %w", symbol, err)
	}
	return orders, nil
}
