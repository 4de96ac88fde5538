package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"
)

// ErrNoCredentials is returned when a signed route is called on a
// client constructed without credentials.
var ErrNoCredentials = errors.New("signed route requires api credentials")

// APIError represents an error from the AscendEX API, either an HTTP
// failure or a non-zero envelope code.
type APIError struct {
	StatusCode int
	Code       int // envelope code, 0 for pure HTTP errors
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("ascendex api error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("ascendex api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// envelope is the uniform AscendEX response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Reason  string          `json:"reason"`
	Data    json.RawMessage `json:"data"`
}

// routePath returns the full request path for a route suffix. Grouped
// routes carry the account-group prefix.
func (c *Client) routePath(path string, grouped bool) string {
	if grouped {
		return fmt.Sprintf("/%d/api/pro/v1/%s", c.groupID, path)
	}
	return "/api/pro/v1/" + path
}

// doRequest performs one HTTP request against a route suffix
// (e.g. "assets", "cash/balance") and unwraps the response envelope.
// signPath is the route word covered by the signature; empty means
// public. Group scoping is independent of signing: "info" is signed
// but not grouped.
func (c *Client) doRequest(ctx context.Context, method, path, signPath string, grouped bool, query url.Values) ([]byte, error) {
	signed := signPath != ""

	fullURL := c.baseURL + c.routePath(path, grouped)
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if signed {
		if !c.creds.Configured() {
			return nil, ErrNoCredentials
		}
		headers, err := c.creds.Headers(time.Now().UnixMilli(), signPath)
		if err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Code != 0 {
		msg := env.Message
		if msg == "" {
			msg = env.Reason
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       env.Code,
			Message:    msg,
			Body:       body,
		}
	}

	return env.Data, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, method, path, signPath string, grouped bool, query url.Values) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		data, err := c.doRequest(ctx, method, path, signPath, grouped, query)
		if err == nil {
			return data, nil
		}

		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a public GET request with retries.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	return c.getSigned(ctx, path, "", false, query, result)
}

// getSigned performs a GET request with retries, signed over signPath
// when non-empty and group-scoped when grouped.
func (c *Client) getSigned(ctx context.Context, path, signPath string, grouped bool, query url.Values, result any) error {
	data, err := c.doWithRetry(ctx, http.MethodGet, path, signPath, grouped, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
