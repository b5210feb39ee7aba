package resolver

import "time"

// Backoff returns the delay before the nth poll (1-based).
type Backoff func(poll int) time.Duration

func NoDelay(int) time.Duration { return 0 }

func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Exponential doubles base on every poll, capped at limit.
func Exponential(base, limit time.Duration) Backoff {
	return func(poll int) time.Duration {
		d := base
		for i := 1; i < poll && d < limit; i++ {
			d *= 2
		}
		return min(d, limit)
	}
}
