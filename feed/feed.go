// Package feed turns a store subscription into a single-slot stream of
// immutable snapshots. A slow reader always sees the latest snapshot;
// intermediate ones are dropped.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/patiponrmutl/thaimilitary/clock"
	"github.com/patiponrmutl/thaimilitary/models"
	"github.com/patiponrmutl/thaimilitary/store"
)

// State separates "nothing received yet" from "received an empty set".
type State int

const (
	Loading State = iota
	Live
	Unavailable
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Live:
		return "live"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "loading":
		*s = Loading
	case "live":
		*s = Live
	case "unavailable":
		*s = Unavailable
	default:
		return fmt.Errorf("unknown feed state %q", b)
	}
	return nil
}

// Snapshot is the full ordered result set at one point in time.
type Snapshot struct {
	requests   []models.Request
	Seq        uint64
	ReceivedAt time.Time
}

// NewSnapshot copies reqs into a new Snapshot.
func NewSnapshot(reqs []models.Request, seq uint64, at time.Time) Snapshot {
	return Snapshot{requests: slices.Clone(reqs), Seq: seq, ReceivedAt: at}
}

// Requests returns a copy of the snapshot's requests, newest first.
func (s Snapshot) Requests() []models.Request { return slices.Clone(s.requests) }

func (s Snapshot) Len() int { return len(s.requests) }

// Find returns the request with id, if present.
func (s Snapshot) Find(id string) (models.Request, bool) {
	for _, r := range s.requests {
		if r.ID == id {
			return r, true
		}
	}
	return models.Request{}, false
}

type Source interface {
	Subscribe(ctx context.Context) (store.Subscription, error)
}

type Feed struct {
	updates chan Snapshot
	done    chan struct{}
	cancel  context.CancelFunc
	clock   clock.Clock
	log     *slog.Logger

	closeOnce sync.Once

	mu     sync.Mutex
	latest Snapshot
	state  State
	err    error
}

type Option func(*Feed)

func WithClock(c clock.Clock) Option { return func(f *Feed) { f.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(f *Feed) { f.log = l } }

// Open subscribes to src and starts the producer. It never returns nil:
// if the subscription cannot be established the feed is Unavailable,
// Updates is closed and Err reports the cause. Close must be called
// exactly when the consumer goes away.
func Open(ctx context.Context, src Source, opts ...Option) *Feed {
	ctx, cancel := context.WithCancel(ctx)
	f := &Feed{
		updates: make(chan Snapshot, 1),
		done:    make(chan struct{}),
		cancel:  cancel,
		clock:   clock.Real(),
		log:     slog.Default(),
		state:   Loading,
	}
	for _, opt := range opts {
		opt(f)
	}

	sub, err := src.Subscribe(ctx)
	if err != nil {
		f.log.Warn("feed subscription failed", "err", err)
		f.fail(err)
		close(f.updates)
		close(f.done)
		return f
	}

	go f.run(ctx, sub)
	return f
}

// Updates delivers snapshots, latest wins. It is closed when the feed
// stops for any reason.
func (f *Feed) Updates() <-chan Snapshot { return f.updates }

// Latest returns the most recent snapshot and the feed state.
func (f *Feed) Latest() (Snapshot, State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latest, f.state
}

func (f *Feed) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close releases the subscription and waits for the producer to exit.
// Safe to call more than once.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		f.cancel()
		<-f.done
	})
}

func (f *Feed) run(ctx context.Context, sub store.Subscription) {
	defer close(f.done)
	defer close(f.updates)
	defer sub.Unsubscribe()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case reqs, ok := <-sub.Snapshots():
			if !ok {
				if ctx.Err() == nil {
					err := sub.Err()
					f.log.Warn("feed subscription dropped", "err", err)
					f.fail(err)
				}
				return
			}
			seq++
			f.publish(NewSnapshot(reqs, seq, f.clock.Now()))
		}
	}
}

func (f *Feed) publish(snap Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = snap
	f.state = Live

	// only this goroutine sends, so after draining the slot the send
	// cannot block
	select {
	case f.updates <- snap:
	default:
		select {
		case <-f.updates:
		default:
		}
		f.updates <- snap
	}
}

func (f *Feed) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Unavailable
	f.err = err
}
