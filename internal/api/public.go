package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetAssets fetches all listed assets.
func (c *Client) GetAssets(ctx context.Context) ([]Asset, error) {
	var assets []Asset
	if err := c.get(ctx, "assets", nil, &assets); err != nil {
		return nil, fmt.Errorf("get assets: %w", err)
	}
	return assets, nil
}

// GetProducts fetches all tradeable symbols.
func (c *Client) GetProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.get(ctx, "products", nil, &products); err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	return products, nil
}

// GetTicker fetches the 24-hour summary for a symbol.
func (c *Client) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	query := url.Values{}
	query.Set("symbol", symbol)

	var ticker Ticker
	if err := c.get(ctx, "ticker", query, &ticker); err != nil {
		return nil, fmt.Errorf("get ticker %s: %w", symbol, err)
	}
	return &ticker, nil
}

// GetCandles fetches historical candles for a symbol.
func (c *Client) GetCandles(ctx context.Context, opts GetCandlesOptions) ([]BarEnvelope, error) {
	query := url.Values{}
	query.Set("symbol", opts.Symbol)
	query.Set("interval", opts.Interval)

	if opts.From > 0 {
		query.Set("from", strconv.FormatInt(opts.From, 10))
	}
	if opts.To > 0 {
		query.Set("to", strconv.FormatInt(opts.To, 10))
	}
	if opts.Limit > 0 {
		query.Set("n", strconv.Itoa(opts.Limit))
	}

	var bars []BarEnvelope
	if err := c.get(ctx, "barhist", query, &bars); err != nil {
		return nil, fmt.Errorf("get candles %s: %w", opts.Symbol, err)
	}
	return bars, nil
}
