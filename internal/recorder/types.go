package recorder

import "time"

// Config holds batch recorder settings.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
}

// Metrics tracks recorder activity.
type Metrics struct {
	Inserts   int64 // rows written
	Conflicts int64 // rows skipped as duplicates
	Flushes   int64 // flush operations
	Errors    int64 // failed flushes
	Dropped   int64 // undecodable payloads
}
