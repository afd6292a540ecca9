package triage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patiponrmutl/thaimilitary/clock"
	"github.com/patiponrmutl/thaimilitary/feed"
	"github.com/patiponrmutl/thaimilitary/models"
	"github.com/patiponrmutl/thaimilitary/store"
)

// Mutator sends accept/delete to the request store. Results are never
// applied locally: they come back through the feed.
type Mutator interface {
	Accept(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type Options struct {
	Clock      clock.Clock
	Location   *time.Location
	ConfirmTTL time.Duration

	// Intents lets several dashboards share one confirmation registry
	// (stateless HTTP handlers). Nil means a private registry.
	Intents *Confirmations
}

// Dashboard is one officer's view: the latest snapshot, the active tab
// and the selected request.
type Dashboard struct {
	mutator Mutator
	clock   clock.Clock
	loc     *time.Location
	intents *Confirmations

	mu        sync.Mutex
	snap      feed.Snapshot
	state     feed.State
	activeTab Category
	selected  *models.Request
}

type View struct {
	State       feed.State `json:"state"`
	Tab         Category   `json:"tab"`
	TabLabel    string     `json:"tabLabel"`
	Counts      Counts     `json:"counts"`
	Rows        []Row      `json:"rows"`
	Selected    *Detail    `json:"selected,omitempty"`
	GeneratedAt time.Time  `json:"generatedAt"`
}

func NewDashboard(m Mutator, opts Options) *Dashboard {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.ConfirmTTL <= 0 {
		opts.ConfirmTTL = 2 * time.Minute
	}
	if opts.Intents == nil {
		opts.Intents = NewConfirmations(opts.Clock, opts.ConfirmTTL)
	}
	return &Dashboard{
		mutator:   m,
		clock:     opts.Clock,
		loc:       opts.Location,
		intents:   opts.Intents,
		state:     feed.Loading,
		activeTab: New,
	}
}

// Apply replaces the cached requests wholesale. A selected request that
// disappeared is deselected; one that changed is refreshed.
func (d *Dashboard) Apply(snap feed.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.snap = snap
	d.state = feed.Live
	if d.selected == nil {
		return
	}
	if r, ok := snap.Find(d.selected.ID); ok {
		d.selected = &r
	} else {
		d.selected = nil
	}
}

// SetState records a feed state change that carries no snapshot.
func (d *Dashboard) SetState(s feed.State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
}

func (d *Dashboard) SetTab(c Category) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.activeTab = c
}

func (d *Dashboard) ActiveTab() Category {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.activeTab
}

// Visible is Filter for the active tab.
func (d *Dashboard) Visible() []models.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Filter(d.snap.Requests(), d.activeTab, d.clock.Now())
}

func (d *Dashboard) Counts() Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Count(d.snap.Requests(), d.clock.Now())
}

func (d *Dashboard) Select(id string) (Detail, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.snap.Find(id)
	if !ok {
		return Detail{}, fmt.Errorf("select %s: %w", id, ErrRequestNotFound)
	}
	d.selected = &r
	return NewDetail(r, d.clock.Now(), d.loc), nil
}

func (d *Dashboard) ClearSelection() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = nil
}

// Selected returns the detail view of the selected request, if any.
func (d *Dashboard) Selected() (Detail, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.selected == nil {
		return Detail{}, false
	}
	return NewDetail(*d.selected, d.clock.Now(), d.loc), true
}

// RequestAccept issues an accept intent. Accepted requests have no
// accept control.
func (d *Dashboard) RequestAccept(id string) (Intent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.snap.Find(id)
	if !ok {
		return Intent{}, fmt.Errorf("accept %s: %w", id, ErrRequestNotFound)
	}
	if r.Status == models.StatusAccepted {
		return Intent{}, fmt.Errorf("accept %s: %w", id, ErrAlreadyAccepted)
	}
	return d.intents.Issue(ActionAccept, r), nil
}

// RequestDelete issues a delete intent; delete is offered in every category.
func (d *Dashboard) RequestDelete(id string) (Intent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.snap.Find(id)
	if !ok {
		return Intent{}, fmt.Errorf("delete %s: %w", id, ErrRequestNotFound)
	}
	return d.intents.Issue(ActionDelete, r), nil
}

// Confirm executes the intent behind token and clears the selection on
// success. The cached requests are left alone until the next snapshot.
func (d *Dashboard) Confirm(ctx context.Context, token string) (Intent, error) {
	in, err := d.intents.Consume(token)
	if err != nil {
		return Intent{}, err
	}

	switch in.Action {
	case ActionAccept:
		err = d.mutator.Accept(ctx, in.RequestID)
	case ActionDelete:
		err = d.mutator.Delete(ctx, in.RequestID)
	default:
		return Intent{}, fmt.Errorf("action %q: %w", in.Action, ErrUnknownIntent)
	}
	if err != nil {
		if !errors.Is(err, store.ErrStoreOperation) && !errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("%w: %w", store.ErrStoreOperation, err)
		}
		return in, fmt.Errorf("%s %s: %w", in.Action, in.RequestID, err)
	}

	d.ClearSelection()
	return in, nil
}

func (d *Dashboard) Cancel(token string) bool { return d.intents.Cancel(token) }

// View renders the dashboard with a single now, so counts and rows
// always agree.
func (d *Dashboard) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	reqs := d.snap.Requests()

	rows := []Row{}
	for _, r := range Filter(reqs, d.activeTab, now) {
		rows = append(rows, NewRow(r, now, d.loc))
	}

	v := View{
		State:       d.state,
		Tab:         d.activeTab,
		TabLabel:    d.activeTab.Label(),
		Counts:      Count(reqs, now),
		Rows:        rows,
		GeneratedAt: now,
	}
	if d.selected != nil {
		detail := NewDetail(*d.selected, now, d.loc)
		v.Selected = &detail
	}
	return v
}
