// Package notify tells the officer chat about requests that arrive
// while the service is running.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/patiponrmutl/thaimilitary/feed"
	"github.com/patiponrmutl/thaimilitary/models"
	"github.com/patiponrmutl/thaimilitary/triage"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Updates is satisfied by *feed.Feed.
type Updates interface {
	Updates() <-chan feed.Snapshot
}

type Notifier struct {
	sender Sender
	chatID int64
	loc    *time.Location
	log    *slog.Logger
}

func New(sender Sender, chatID int64, loc *time.Location, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{sender: sender, chatID: chatID, loc: loc, log: log}
}

// NewTelegram logs in to the Bot API with token.
func NewTelegram(token string, chatID int64, loc *time.Location, log *slog.Logger) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	n := New(api, chatID, loc, log)
	n.log.Info("telegram notifier authorized", "account", api.Self.UserName, "chat", chatID)
	return n, nil
}

// Watch sends one message per new pending request until ctx is done or
// the feed closes. Requests in the first snapshot are treated as
// already known.
func (n *Notifier) Watch(ctx context.Context, f Updates) {
	var known map[string]struct{}
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-f.Updates():
			if !ok {
				return
			}
			known = n.handle(known, snap)
		}
	}
}

func (n *Notifier) handle(known map[string]struct{}, snap feed.Snapshot) map[string]struct{} {
	reqs := snap.Requests()
	next := make(map[string]struct{}, len(reqs))
	for _, r := range reqs {
		next[r.ID] = struct{}{}
	}
	if known == nil {
		return next
	}

	// feed เรียงใหม่สุดก่อน ส่งจากเก่าไปใหม่
	for i := len(reqs) - 1; i >= 0; i-- {
		r := reqs[i]
		if _, seen := known[r.ID]; seen || r.Status != models.StatusPending {
			continue
		}
		n.send(r)
	}
	return next
}

func (n *Notifier) send(r models.Request) {
	msg := tgbotapi.NewMessage(n.chatID, Message(r, n.loc))
	if _, err := n.sender.Send(msg); err != nil {
		n.log.Warn("telegram send failed", "request", r.ID, "err", err)
	}
}

// Message is the chat text for a new request.
func Message(r models.Request, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("📥 มีคำขอนัดหมายใหม่\n")
	fmt.Fprintf(&b, "บริการ: %s\n", r.ServiceType)
	fmt.Fprintf(&b, "ชื่อ-นามสกุล: %s\n", r.FullName)
	fmt.Fprintf(&b, "วันนัดหมาย: %s", triage.FormatLong(r.AppointmentDate, loc))
	if r.Phone != "" {
		fmt.Fprintf(&b, "\nเบอร์โทร: %s", r.Phone)
	}
	return b.String()
}
