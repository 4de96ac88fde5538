// Package stream implements the persistent AscendEX streaming connection.
//
// The Manager:
//   - Maintains one logical WebSocket connection with full-jitter
//     exponential backoff reconnects, bounded by an attempt ceiling
//   - Authenticates each established socket with a signed handshake
//   - Correlates request/reply frames by (action, id)
//   - Fans push frames out to registered subscription handlers
//   - Replays all subscriptions after every successful handshake
package stream
