package clock

import "time"

// Clock abstracts wall-clock reads so classification and the dashboard
// refresh loop can be driven deterministically in tests.
type Clock interface {
	Now() time.Time

	// NewTicker returns a Ticker that delivers on C every d. C has
	// capacity 1; ticks are dropped if the reader falls behind.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic timer. Call Stop when done.
type Ticker struct {
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. It does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stopFunc: ticker.Stop}
}
