package triage

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patiponrmutl/thaimilitary/clock"
	"github.com/patiponrmutl/thaimilitary/models"
)

type Action string

const (
	ActionAccept Action = "accept"
	ActionDelete Action = "delete"
)

// Intent is the first half of a destructive action. Nothing happens
// until its token is confirmed.
type Intent struct {
	Token     string    `json:"token"`
	Action    Action    `json:"action"`
	RequestID string    `json:"requestId"`
	Prompt    string    `json:"prompt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Confirmations holds outstanding intents. Tokens are single use.
type Confirmations struct {
	clock clock.Clock
	ttl   time.Duration

	mu      sync.Mutex
	pending map[string]Intent
}

func NewConfirmations(c clock.Clock, ttl time.Duration) *Confirmations {
	return &Confirmations{clock: c, ttl: ttl, pending: make(map[string]Intent)}
}

func (c *Confirmations) Issue(action Action, r models.Request) Intent {
	now := c.clock.Now()
	in := Intent{
		Token:     uuid.NewString(),
		Action:    action,
		RequestID: r.ID,
		Prompt:    prompt(action, r),
		ExpiresAt: now.Add(c.ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweepLocked(now)
	c.pending[in.Token] = in
	return in
}

// Consume removes and returns the intent for token.
func (c *Confirmations) Consume(token string) (Intent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	in, ok := c.pending[token]
	if !ok {
		return Intent{}, ErrUnknownIntent
	}
	delete(c.pending, token)
	if !c.clock.Now().Before(in.ExpiresAt) {
		return Intent{}, fmt.Errorf("%w: expired at %s", ErrUnknownIntent, in.ExpiresAt.Format(time.RFC3339))
	}
	return in, nil
}

// Cancel drops token. It reports whether the token was outstanding.
func (c *Confirmations) Cancel(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.pending[token]
	delete(c.pending, token)
	return ok
}

func (c *Confirmations) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Confirmations) sweepLocked(now time.Time) {
	for tok, in := range c.pending {
		if !now.Before(in.ExpiresAt) {
			delete(c.pending, tok)
		}
	}
}

func prompt(action Action, r models.Request) string {
	if action == ActionAccept {
		return fmt.Sprintf("ต้องการรับเรื่องของ \"%s\" ใช่หรือไม่?", r.FullName)
	}
	return "ยืนยันที่จะลบข้อมูลนี้ถาวร?"
}
