package ingest

import (
	"math/rand"
	"time"
)

// backoffBase is the unit delay backoff multiplies against.
const backoffBase = time.Second

// maxBackoffExponent caps 2^(n-1) growth so a pathologically long outage
// doesn't overflow the duration or wait days between attempts.
const maxBackoffExponent = 10 // 2^10 * base = 1024s ceiling before jitter

// nextBackoff computes BASE * 2^(n-1) * uniform(0.5, 1.0) for the given
// post-increment failure count n (n >= 1). The multiplicative jitter is
// required: tests assert that repeated calls with the same n do not all
// produce identical delays, which rules out a deterministic midpoint value.
func nextBackoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	exp := n - 1
	if exp > maxBackoffExponent {
		exp = maxBackoffExponent
	}

	multiplier := float64(uint64(1) << uint(exp))
	jitter := 0.5 + rand.Float64()*0.5
	return time.Duration(float64(backoffBase) * multiplier * jitter)
}
