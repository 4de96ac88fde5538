package stream

import (
	"math"
	"math/rand/v2"
	"time"
)

// reconnectWait returns the full-jitter backoff delay before reconnect
// attempt k: random() * min(maxWait, 2^k - 1) + 1 seconds.
func reconnectWait(attempt int, maxWait time.Duration) time.Duration {
	return jitterWait(attempt, maxWait, rand.Float64())
}

// jitterWait is reconnectWait with the random factor injected.
func jitterWait(attempt int, maxWait time.Duration, r float64) time.Duration {
	expo := math.Pow(2, float64(attempt)) - 1
	capped := math.Min(maxWait.Seconds(), expo)
	return time.Duration((r*capped + 1) * float64(time.Second))
}
