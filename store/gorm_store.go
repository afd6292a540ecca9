package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/patiponrmutl/thaimilitary/clock"
	"github.com/patiponrmutl/thaimilitary/models"
)

// NotifyChannel is the Postgres NOTIFY channel used to fan writes out
// to other service instances.
const NotifyChannel = "military_requests"

// columns a partial update may touch. id and timestamp are store-owned.
var updatable = map[string]bool{
	"service_type":     true,
	"full_name":        true,
	"id_card":          true,
	"phone":            true,
	"facebook":         true,
	"line_id":          true,
	"email":            true,
	"appointment_date": true,
	"status":           true,
}

type GormStore struct {
	db       *gorm.DB
	clock    clock.Clock
	hub      *Hub
	pgNotify bool
	log      *slog.Logger
}

type Option func(*GormStore)

func WithClock(c clock.Clock) Option { return func(s *GormStore) { s.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(s *GormStore) { s.log = l } }

func WithHub(h *Hub) Option { return func(s *GormStore) { s.hub = h } }

// WithPostgresNotify makes every write also pg_notify NotifyChannel.
func WithPostgresNotify() Option { return func(s *GormStore) { s.pgNotify = true } }

func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	s := &GormStore{
		db:    db,
		clock: clock.Real(),
		hub:   NewHub(),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hub exposes the change hub so external listeners can signal it.
func (s *GormStore) Hub() *Hub { return s.hub }

func (s *GormStore) Create(ctx context.Context, r *models.Request) (string, error) {
	r.ID = uuid.NewString()
	r.Timestamp = s.clock.Now()
	if r.Status == "" {
		r.Status = models.StatusPending
	}

	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return "", fmt.Errorf("create request: %w: %w", ErrStoreOperation, err)
	}

	s.changed(ctx, r.ID)
	return r.ID, nil
}

func (s *GormStore) Update(ctx context.Context, id string, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	for k, v := range fields {
		if !updatable[k] {
			return fmt.Errorf("update request %s: %q: %w", id, k, ErrImmutableField)
		}
		// accepted เป็นสถานะสุดท้าย เปลี่ยนได้ทางเดียว
		if k == "status" && !isAccepted(v) {
			return fmt.Errorf("update request %s: status %v: %w", id, v, ErrInvalidStatus)
		}
	}

	res := s.db.WithContext(ctx).Model(&models.Request{}).Where("id = ?", id).Updates(map[string]any(fields))
	if res.Error != nil {
		return fmt.Errorf("update request %s: %w: %w", id, ErrStoreOperation, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update request %s: %w", id, ErrNotFound)
	}

	s.changed(ctx, id)
	return nil
}

func isAccepted(v any) bool {
	switch st := v.(type) {
	case models.Status:
		return st == models.StatusAccepted
	case string:
		return models.Status(st) == models.StatusAccepted
	}
	return false
}

// Accept sets status=accepted. Accepting an accepted request is a no-op write.
func (s *GormStore) Accept(ctx context.Context, id string) error {
	return s.Update(ctx, id, Fields{"status": models.StatusAccepted})
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Request{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete request %s: %w: %w", id, ErrStoreOperation, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete request %s: %w", id, ErrNotFound)
	}

	s.changed(ctx, id)
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (models.Request, error) {
	var r models.Request
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Request{}, fmt.Errorf("get request %s: %w", id, ErrNotFound)
		}
		return models.Request{}, fmt.Errorf("get request %s: %w: %w", id, ErrStoreOperation, err)
	}
	return r, nil
}

func (s *GormStore) List(ctx context.Context) ([]models.Request, error) {
	rows := []models.Request{}
	// เรียงล่าสุดก่อน (id เป็นตัวตัดสินเมื่อเวลาเท่ากัน)
	if err := s.db.WithContext(ctx).Order("timestamp DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list requests: %w: %w", ErrStoreOperation, err)
	}
	return rows, nil
}

func (s *GormStore) Subscribe(ctx context.Context) (Subscription, error) {
	// register before the first read so no write falls between the two
	id, dirty := s.hub.add()
	first, err := s.List(ctx)
	if err != nil {
		s.hub.remove(id)
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &liveQuery{
		out:    make(chan []models.Request),
		cancel: cancel,
	}

	go func() {
		defer close(sub.out)
		defer s.hub.remove(id)

		snap := first
		for {
			select {
			case sub.out <- snap:
			case <-ctx.Done():
				return
			}

			select {
			case <-dirty:
			case <-ctx.Done():
				return
			}

			next, err := s.List(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Warn("live query dropped", "err", err)
					sub.setErr(err)
				}
				return
			}
			snap = next
		}
	}()

	return sub, nil
}

func (s *GormStore) changed(ctx context.Context, id string) {
	s.hub.Broadcast()
	if !s.pgNotify {
		return
	}
	if err := s.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", NotifyChannel, id).Error; err != nil {
		// local subscribers were already signalled
		s.log.Warn("pg_notify failed", "channel", NotifyChannel, "err", err)
	}
}

type liveQuery struct {
	out    chan []models.Request
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

func (q *liveQuery) Snapshots() <-chan []models.Request { return q.out }

func (q *liveQuery) Unsubscribe() { q.cancel() }

func (q *liveQuery) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

func (q *liveQuery) setErr(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.err = err
}
