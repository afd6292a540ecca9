package notify_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patiponrmutl/thaimilitary/feed"
	"github.com/patiponrmutl/thaimilitary/models"
	"github.com/patiponrmutl/thaimilitary/notify"
)

var bangkok = time.FixedZone("ICT", 7*3600)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, m)
	}
	return tgbotapi.Message{}, s.err
}

func (s *fakeSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []string{}
	for _, m := range s.sent {
		out = append(out, m.Text)
	}
	return out
}

type chanFeed chan feed.Snapshot

func (c chanFeed) Updates() <-chan feed.Snapshot { return c }

func req(id, name string, st models.Status) models.Request {
	return models.Request{ID: id, FullName: name, ServiceType: "ขอใบผ่อนผันทหาร", Status: st}
}

func TestWatchNotifiesOnlyNewPending(t *testing.T) {
	t.Parallel()

	s := &fakeSender{}
	n := notify.New(s, 42, bangkok, nil)
	updates := make(chanFeed)
	done := make(chan struct{})
	go func() {
		defer close(done)
		n.Watch(context.Background(), updates)
	}()

	updates <- feed.NewSnapshot([]models.Request{req("a", "เก่า", models.StatusPending)}, 1, time.Time{})
	updates <- feed.NewSnapshot([]models.Request{
		req("c", "ใหม่สอง", models.StatusPending),
		req("b", "ใหม่หนึ่ง", models.StatusPending),
		req("x", "รับแล้ว", models.StatusAccepted),
		req("a", "เก่า", models.StatusPending),
	}, 2, time.Time{})
	updates <- feed.NewSnapshot([]models.Request{
		req("c", "ใหม่สอง", models.StatusAccepted),
		req("b", "ใหม่หนึ่ง", models.StatusPending),
	}, 3, time.Time{})
	close(updates)
	<-done

	texts := s.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "ใหม่หนึ่ง", "oldest first")
	assert.Contains(t, texts[1], "ใหม่สอง")

	s.mu.Lock()
	assert.Equal(t, int64(42), s.sent[0].ChatID)
	s.mu.Unlock()
}

func TestWatchStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		notify.New(&fakeSender{}, 1, bangkok, nil).Watch(ctx, make(chanFeed))
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatchKeepsGoingAfterSendError(t *testing.T) {
	t.Parallel()

	s := &fakeSender{err: errors.New("forbidden: bot was kicked")}
	updates := make(chanFeed)
	done := make(chan struct{})
	go func() {
		defer close(done)
		notify.New(s, 1, bangkok, nil).Watch(context.Background(), updates)
	}()

	updates <- feed.NewSnapshot(nil, 1, time.Time{})
	updates <- feed.NewSnapshot([]models.Request{req("a", "หนึ่ง", models.StatusPending)}, 2, time.Time{})
	updates <- feed.NewSnapshot([]models.Request{req("b", "สอง", models.StatusPending), req("a", "หนึ่ง", models.StatusPending)}, 3, time.Time{})
	close(updates)
	<-done

	assert.Len(t, s.texts(), 2)
}

func TestMessage(t *testing.T) {
	t.Parallel()

	appt := time.Date(2025, 1, 10, 9, 30, 0, 0, bangkok)
	r := models.Request{ServiceType: "ยื่นใบคำร้องทั่วไป", FullName: "สมชาย ใจดี", Phone: "0812345678", AppointmentDate: &appt}

	want := "📥 มีคำขอนัดหมายใหม่\n" +
		"บริการ: ยื่นใบคำร้องทั่วไป\n" +
		"ชื่อ-นามสกุล: สมชาย ใจดี\n" +
		"วันนัดหมาย: 10/1/2568 09:30:00\n" +
		"เบอร์โทร: 0812345678"
	assert.Equal(t, want, notify.Message(r, bangkok))
}
