package alerting

import "time"

// backoffDelay returns the wait before retry attempt n (zero-based),
// doubling from base and never exceeding max. The schedule is strictly
// non-decreasing, which keeps retry timing predictable under sustained
// provider outages.
func backoffDelay(base, max time.Duration, attempt uint) time.Duration {
	if base <= 0 {
		return 0
	}
	if max < base {
		max = base
	}

	// Shifting past 62 bits would overflow time.Duration.
	if attempt >= 62 {
		return max
	}

	delay := base << attempt
	if delay <= 0 || delay > max {
		return max
	}
	return delay
}
