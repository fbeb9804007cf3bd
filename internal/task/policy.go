package task

import (
	"math/rand"
	"time"
)

// BackoffKind selects how the retry delay grows across attempts.
type BackoffKind string

// Supported backoff kinds
const (
	BackoffExponential BackoffKind = "exponential"
	BackoffFixed       BackoffKind = "fixed"
)

// maxDelayFactor caps the backoff delay at this multiple of the base delay
// so exponential growth cannot park a job for hours.
const maxDelayFactor = 10

// RetryPolicy is the explicit, first-class retry configuration of one task
// type. MaxAttempts counts all runs including the first; a policy with
// MaxAttempts 1 never retries.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Backoff     BackoffKind
	Jitter      bool
}

// ShouldRetry reports whether another attempt is allowed after the given
// number of completed attempts.
func (p RetryPolicy) ShouldRetry(attempts int) bool {
	return attempts < p.MaxAttempts
}

// Delay computes the backoff delay to wait before the attempt following the
// given number of completed attempts.
//
// Exponential backoff doubles the base delay per completed attempt
// (base, 2·base, 4·base, ...), capped at maxDelayFactor·base. Fixed backoff
// always returns the base delay. With jitter enabled the delay is scaled by
// a random factor in [0.5, 1.0) so retry storms from sibling jobs spread
// out instead of thundering together.
func (p RetryPolicy) Delay(attempts int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		return 0
	}

	delay := base
	if p.Backoff == BackoffExponential && attempts > 1 {
		shift := attempts - 1
		// Grow until the cap; bounding the shift keeps the multiply from
		// overflowing on absurd attempt counts.
		if shift > 30 {
			shift = 30
		}
		delay = base * time.Duration(1<<uint(shift))
		if max := base * maxDelayFactor; delay > max || delay < 0 {
			delay = max
		}
	}

	if p.Jitter {
		factor := 0.5 + rand.Float64()*0.5
		delay = time.Duration(float64(delay) * factor)
	}

	return delay
}
