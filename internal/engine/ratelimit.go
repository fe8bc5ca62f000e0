package engine

import (
	"context"

	"golang.org/x/time/rate"
)

// NewBWLimiter creates a rate.Limiter that caps aggregate throughput to
// bytesPerSec. The burst is 1 MB, or the rate itself when that is lower.
func NewBWLimiter(bytesPerSec uint64) *rate.Limiter {
	burst := 1 << 20 // 1 MB
	if bytesPerSec < uint64(burst) {
		burst = max(1, int(bytesPerSec))
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), burst)
}

// waitN blocks until lim admits n bytes. n may exceed the burst; it is taken
// in burst-sized pieces. A nil limiter never waits.
func waitN(ctx context.Context, lim *rate.Limiter, n int64) error {
	if lim == nil {
		return nil
	}
	burst := int64(lim.Burst())
	for n > 0 {
		k := min(n, burst)
		if err := lim.WaitN(ctx, int(k)); err != nil {
			return err
		}
		n -= k
	}
	return nil
}
