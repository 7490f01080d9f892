package common

import (
	"time"

	"github.com/ternarybob/jobsync/internal/interfaces"
)

// systemClock implements interfaces.Clock over the real time package.
type systemClock struct{}

// NewSystemClock returns the wall-clock implementation used in production.
func NewSystemClock() interfaces.Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (systemClock) NewTicker(d time.Duration) interfaces.Ticker {
	return &systemTicker{ticker: time.NewTicker(d)}
}

type systemTicker struct {
	ticker *time.Ticker
}

func (t *systemTicker) C() <-chan time.Time { return t.ticker.C }

func (t *systemTicker) Stop() { t.ticker.Stop() }
