package stream

import (
	"testing"
	"time"
)

func TestJitterWait(t *testing.T) {
	maxWait := 60 * time.Second

	tests := []struct {
		name    string
		attempt int
		r       float64
		want    time.Duration
	}{
		{"attempt 1 floor", 1, 0, time.Second},
		{"attempt 1 ceiling", 1, 1, 2 * time.Second},
		{"attempt 1 mid", 1, 0.5, 1500 * time.Millisecond},
		{"attempt 3 mid", 3, 0.5, 4500 * time.Millisecond}, // min(60, 7)*0.5 + 1
		{"attempt 6 ceiling", 6, 1, 61 * time.Second},      // min(60, 63) = 60
		{"attempt 10 capped", 10, 0.5, 31 * time.Second},   // min(60, 1023) = 60
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := jitterWait(tt.attempt, maxWait, tt.r); got != tt.want {
				t.Errorf("jitterWait(%d, %v, %v) = %v, want %v", tt.attempt, maxWait, tt.r, got, tt.want)
			}
		})
	}
}

func TestJitterWait_NonNegative(t *testing.T) {
	for attempt := 1; attempt <= 30; attempt++ {
		for _, r := range []float64{0, 0.25, 0.5, 0.99, 1} {
			got := jitterWait(attempt, 60*time.Second, r)
			if got < time.Second {
				t.Errorf("jitterWait(%d, 60s, %v) = %v, want >= 1s", attempt, r, got)
			}
			if got > 61*time.Second {
				t.Errorf("jitterWait(%d, 60s, %v) = %v, want <= 61s", attempt, r, got)
			}
		}
	}
}

func TestReconnectWait_Bounded(t *testing.T) {
	for i := 0; i < 100; i++ {
		got := reconnectWait(2, 60*time.Second)
		// min(60, 3) = 3: wait in [1s, 4s]
		if got < time.Second || got > 4*time.Second {
			t.Fatalf("reconnectWait(2, 60s) = %v, want within [1s, 4s]", got)
		}
	}
}
