package interfaces

import "time"

// Clock abstracts the current time and timer creation so reconciliation and
// backoff logic are deterministically testable.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker the engine needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}
