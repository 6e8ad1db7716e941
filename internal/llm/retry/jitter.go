package retry

import (
	"math/rand/v2"
	"time"
)

// fullJitter returns a random duration in [0, base] using thread-safe
// math/rand/v2.
func fullJitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	jitterMs := rand.Int64N(base.Milliseconds() + 1) // #nosec G404 -- non-cryptographic jitter is appropriate here
	return time.Duration(jitterMs) * time.Millisecond
}
