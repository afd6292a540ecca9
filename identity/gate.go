package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Gate admits only the allow-listed admin email. Anyone else who signs
// in successfully is signed out again before Login returns.
type Gate struct {
	provider   Provider
	adminEmail string
	log        *slog.Logger
}

func NewGate(p Provider, adminEmail string, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{provider: p, adminEmail: normalizeEmail(adminEmail), log: log}
}

func (g *Gate) IsAdmin(id Identity) bool {
	return g.adminEmail != "" && strings.EqualFold(strings.TrimSpace(id.Email), g.adminEmail)
}

// Login returns ErrAuthFailure for bad credentials and for non-admin
// accounts alike.
func (g *Gate) Login(ctx context.Context, email, password string) (Session, error) {
	s, err := g.provider.SignIn(ctx, email, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			g.log.Error("admin sign in", "err", err)
		}
		return Session{}, ErrAuthFailure
	}

	if !g.IsAdmin(s.Identity) {
		g.log.Warn("non-admin sign in rejected", "email", s.Email)
		if err := g.provider.SignOut(ctx, s); err != nil {
			g.log.Error("sign out rejected account", "email", s.Email, "err", err)
		}
		return Session{}, ErrAuthFailure
	}
	return s, nil
}

func (g *Gate) Logout(ctx context.Context, s Session) error {
	return g.provider.SignOut(ctx, s)
}

// Authorize verifies token and requires the admin identity.
func (g *Gate) Authorize(token string) (Session, error) {
	s, err := g.provider.Verify(token)
	if err != nil {
		return Session{}, err
	}
	if !g.IsAdmin(s.Identity) {
		return Session{}, ErrAuthFailure
	}
	return s, nil
}
