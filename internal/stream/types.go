package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avelez/ascendex-stream/internal/auth"
)

// Errors
var (
	ErrNotConnected       = errors.New("not connected")
	ErrConnectionLost     = errors.New("connection lost")
	ErrSuperseded         = errors.New("superseded by a newer request with the same action and id")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrHandshakeTimeout   = errors.New("auth handshake timed out")
	ErrAlreadyClosed      = errors.New("already closed")
)

// CorrelationError is a server error reply to a pending request. It is
// surfaced to the awaiting caller and never retried internally.
type CorrelationError struct {
	Action string
	ID     string
	Reason string
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("request %s/%s rejected: %s", e.Action, e.ID, e.Reason)
}

// AuthError is a rejected handshake. Fatal for the current connection
// attempt; the attempt still counts against the reconnect ceiling.
type AuthError struct {
	Code    int
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth rejected (code %d): %s", e.Code, e.Message)
}

// State is the connection lifecycle state, owned by the Manager.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// TimestampedMessage wraps raw frame data with a receive timestamp.
type TimestampedMessage struct {
	Data       []byte
	ReceivedAt time.Time
}

// Handler consumes one payload delivered on a (channel, id) subscription.
// A non-nil error is logged; it does not block delivery to other handlers.
type Handler func(channel, id string, data json.RawMessage) error

// requestFrame is the outbound {op:"req"} envelope.
type requestFrame struct {
	Op      string `json:"op"`
	Action  string `json:"action,omitempty"`
	ID      string `json:"id,omitempty"`
	Account string `json:"account,omitempty"`
	Args    any    `json:"args,omitempty"`
}

// subFrame is the outbound subscribe/unsubscribe envelope.
type subFrame struct {
	Op string `json:"op"` // "sub" or "unsub"
	Ch string `json:"ch"` // "<channel>:<id>"
}

// authFrame is the outbound signed handshake envelope.
type authFrame struct {
	Op  string `json:"op"` // "auth"
	ID  string `json:"id"`
	T   int64  `json:"t"` // epoch milliseconds
	Key string `json:"key"`
	Sig string `json:"sig"`
}

// pingFrame answers inbound keepalives and probes idle connections.
var pingFrame = []byte(`{"op":"ping"}`)

// Order describes a new order placed over the stream.
type Order struct {
	Symbol    string
	Price     string
	Qty       string
	OrderType string // "limit" or "market"
	Side      string // "buy" or "sell"
	PostOnly  bool
	RespInst  string // "ACK", "ACCEPT", or "DONE"
}

// ClientConfig configures a single WebSocket connection.
type ClientConfig struct {
	URL              string
	HandshakeTimeout time.Duration // WebSocket upgrade timeout
	WriteTimeout     time.Duration // write deadline for sends
	BufferSize       int           // inbound message channel capacity
}

// Config configures the Manager.
type Config struct {
	URL         string            // full stream URL, e.g. wss://ascendex.com/0/api/pro/stream
	Credentials *auth.Credentials // nil or unconfigured = public-only session

	MaxReconnects    int           // consecutive failed attempts before giving up
	ReconnectMaxWait time.Duration // cap on the exponential backoff term
	ReadTimeout      time.Duration // inactivity window before a keepalive probe
	HandshakeTimeout time.Duration // bounded wait for the auth reply
	WriteTimeout     time.Duration // write deadline for sends
	BufferSize       int           // inbound message channel capacity

	// DedupHandlers drops a duplicate subscribe of the same handler to an
	// already-subscribed (channel, id). Default false: every subscribe
	// registers another delivery.
	DedupHandlers bool
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxReconnects:    5,
		ReconnectMaxWait: 60 * time.Second,
		ReadTimeout:      10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.MaxReconnects == 0 {
		c.MaxReconnects = def.MaxReconnects
	}
	if c.ReconnectMaxWait == 0 {
		c.ReconnectMaxWait = def.ReconnectMaxWait
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.BufferSize == 0 {
		c.BufferSize = def.BufferSize
	}
}
