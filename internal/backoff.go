package internal

import "time"

// NewBackoff returns a Backoff that starts waiting minWait and doubles on every miss up to maxWait.
func NewBackoff(minWait, maxWait time.Duration) Backoff {
	if minWait <= 0 || maxWait < minWait {
		panic("invalid backoff bounds")
	}
	return Backoff{
		wait:      minWait,
		maxWait:   maxWait,
		startWait: minWait,
	}
}

// A Backoff with a non-zero MaxWait is ready for use.
type Backoff struct {
	// wait defines the amount of time that Miss will return on next call.
	wait time.Duration
	// Maximum allowable value for Wait.
	maxWait time.Duration
	// startWait is the intial Wait value, as well as the value that Wait takes after a call to Hit.
	startWait time.Duration
}

// Hit resets the wait to the starting value.
func (eb *Backoff) Hit() {
	if eb.maxWait == 0 {
		panic("MaxWait cannot be zero")
	}
	eb.wait = eb.startWait
}

// Miss returns the time to wait before the next attempt and doubles the following wait.
func (eb *Backoff) Miss() time.Duration {
	if eb.maxWait == 0 {
		panic("MaxWait cannot be zero")
	}
	wait := eb.wait
	eb.wait *= 2
	if eb.wait > eb.maxWait {
		eb.wait = eb.maxWait
	}
	return wait
}
