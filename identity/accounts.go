package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/patiponrmutl/thaimilitary/clock"
	"github.com/patiponrmutl/thaimilitary/models"
)

type claims struct {
	AccountID uint `json:"aid"`
	jwt.RegisteredClaims
}

// Accounts is a Provider over the admin_accounts table with HS256
// session tokens. Signed-out tokens stay revoked until they expire.
type Accounts struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
	log    *slog.Logger

	mu        sync.Mutex
	revoked   map[string]time.Time
	listeners map[int]func(*Identity)
	nextID    int
}

type AccountsOption func(*Accounts)

func WithClock(c clock.Clock) AccountsOption { return func(a *Accounts) { a.clock = c } }

func WithLogger(l *slog.Logger) AccountsOption { return func(a *Accounts) { a.log = l } }

func NewAccounts(db *gorm.DB, secret string, ttl time.Duration, opts ...AccountsOption) *Accounts {
	a := &Accounts{
		db:        db,
		secret:    []byte(secret),
		ttl:       ttl,
		clock:     clock.Real(),
		log:       slog.Default(),
		revoked:   map[string]time.Time{},
		listeners: map[int]func(*Identity){},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register creates an account with a bcrypt hash of password.
func (a *Accounts) Register(ctx context.Context, email, password string) (models.AdminAccount, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return models.AdminAccount{}, fmt.Errorf("register: %w", ErrInvalidCredentials)
	}

	var n int64
	if err := a.db.WithContext(ctx).Model(&models.AdminAccount{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return models.AdminAccount{}, fmt.Errorf("register %s: %w", email, err)
	}
	if n > 0 {
		return models.AdminAccount{}, fmt.Errorf("register %s: %w", email, ErrAccountExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.AdminAccount{}, fmt.Errorf("hash password: %w", err)
	}
	acc := models.AdminAccount{Email: email, PasswordHash: string(hash)}
	if err := a.db.WithContext(ctx).Create(&acc).Error; err != nil {
		return models.AdminAccount{}, fmt.Errorf("register %s: %w", email, err)
	}
	return acc, nil
}

func (a *Accounts) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	var acc models.AdminAccount
	err := a.db.WithContext(ctx).Where("email = ?", email).First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		a.log.Error("admin account lookup", "email", email, "err", err)
		return Session{}, fmt.Errorf("sign in: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}

	s, err := a.sign(Identity{AccountID: acc.ID, Email: acc.Email})
	if err != nil {
		return Session{}, err
	}
	a.notify(&s.Identity)
	return s, nil
}

func (a *Accounts) sign(id Identity) (Session, error) {
	now := a.clock.Now()
	s := Session{
		Identity:  id,
		ID:        uuid.NewString(),
		ExpiresAt: now.Add(a.ttl),
	}
	c := claims{
		AccountID: id.AccountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			ID:        s.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	s.Token = tok
	return s, nil
}

// SignOut revokes the session. Signing out twice is not an error.
func (a *Accounts) SignOut(_ context.Context, s Session) error {
	if s.ID == "" {
		return fmt.Errorf("sign out: %w", ErrInvalidToken)
	}

	a.mu.Lock()
	now := a.clock.Now()
	for jti, exp := range a.revoked {
		if !now.Before(exp) {
			delete(a.revoked, jti)
		}
	}
	_, already := a.revoked[s.ID]
	a.revoked[s.ID] = s.ExpiresAt
	a.mu.Unlock()

	if !already {
		a.log.Info("session revoked", "email", s.Email)
		a.notify(nil)
	}
	return nil
}

func (a *Accounts) Verify(token string) (Session, error) {
	var c claims
	tk, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tk.Valid || c.ID == "" || c.Subject == "" {
		return Session{}, ErrInvalidToken
	}

	a.mu.Lock()
	_, revoked := a.revoked[c.ID]
	a.mu.Unlock()
	if revoked {
		return Session{}, fmt.Errorf("%w: signed out", ErrInvalidToken)
	}

	return Session{
		Identity:  Identity{AccountID: c.AccountID, Email: c.Subject},
		Token:     token,
		ID:        c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}

func (a *Accounts) OnAuthStateChanged(fn func(*Identity)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.listeners, id)
			a.mu.Unlock()
		})
	}
}

// เรียก listener นอก lock เพื่อให้ listener เรียก Accounts ต่อได้
func (a *Accounts) notify(id *Identity) {
	a.mu.Lock()
	fns := make([]func(*Identity), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()

	for _, fn := range fns {
		if id == nil {
			fn(nil)
			continue
		}
		cp := *id
		fn(&cp)
	}
}
