package analyst

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Backoff policy constants. Fixed, not configurable via environment.
const (
	backoffBaseMS      = 300
	backoffCeilingMS   = 5000
	backoffJitterRatio = 0.2
)

// Backoff computes bounded, jittered exponential delays between retry
// attempts. It is never consulted before the first attempt.
type Backoff struct {
	base time.Duration
	max  time.Duration

	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rnd *rand.Rand
}

// NewBackoff returns the standard policy: 300ms × 2^attempt, clamped to 5s,
// with uniform jitter in [0, ceil(0.2 × clamped delay)).
func NewBackoff() *Backoff {
	return NewBackoffFromSource(rand.NewSource(time.Now().UnixNano()))
}

// NewBackoffFromSource returns the standard policy driven by src, so delays
// are deterministic under a fixed seed.
func NewBackoffFromSource(src rand.Source) *Backoff {
	return newBackoff(backoffBaseMS*time.Millisecond, backoffCeilingMS*time.Millisecond, src)
}

func newBackoff(base, max time.Duration, src rand.Source) *Backoff {
	return &Backoff{base: base, max: max, rnd: rand.New(src)}
}

// Delay returns the pause to take after retry attempt n (0-based). The
// exponential delay is clamped to the ceiling before jitter is added, and the
// sum is clamped again so jitter can never push the delay above the ceiling.
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	ms := float64(b.base.Milliseconds()) * math.Pow(2, float64(attempt))
	ceiling := float64(b.max.Milliseconds())
	if ms > ceiling {
		ms = ceiling
	}
	var jitter int64
	if bound := int64(math.Ceil(ms * backoffJitterRatio)); bound > 0 {
		b.mu.Lock()
		jitter = b.rnd.Int63n(bound)
		b.mu.Unlock()
	}
	total := int64(ms) + jitter
	if total > int64(ceiling) {
		total = int64(ceiling)
	}
	return time.Duration(total) * time.Millisecond
}

// canRetry reports whether another transport attempt is allowed: the failure
// must be retryable and the attempt counter must still be below maxRetries.
func canRetry(attempt, maxRetries int, meta ErrorMeta) bool {
	return meta.Retryable && attempt < maxRetries
}

// sleep pauses for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
