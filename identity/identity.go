// Package identity signs officers in and out and decides who may open
// the dashboard.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrAccountExists      = errors.New("account already exists")

	// ErrAuthFailure is the only error the admin gate reports, whatever
	// the cause.
	ErrAuthFailure = errors.New("authentication failed")
)

// AuthFailureMessage is shown for every failed admin login.
const AuthFailureMessage = "ข้อมูลไม่ถูกต้อง"

type Identity struct {
	AccountID uint   `json:"id"`
	Email     string `json:"email"`
}

// Session is a signed-in identity and the bearer token that proves it.
type Session struct {
	Identity
	Token     string    `json:"token"`
	ID        string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Provider is the identity backend. Listeners receive the identity on
// sign-in and nil on sign-out.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, s Session) error
	Verify(token string) (Session, error)
	OnAuthStateChanged(fn func(*Identity)) (unsubscribe func())
}
