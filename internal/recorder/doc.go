// Package recorder persists streamed market data to TimescaleDB.
//
// Recorders implement the stream handler signature, accumulate rows in
// memory, and flush them in batches on size or interval. Inserts are
// idempotent (ON CONFLICT DO NOTHING), so replays after a reconnect
// never duplicate rows.
package recorder
