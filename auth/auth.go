// Package auth registers and authenticates users against a tabula.UserStore.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/tabula"
	"golang.org/x/crypto/bcrypt"
)

// Service registers and logs in users. Passwords are stored as bcrypt
// hashes; legacy unsalted SHA-256 hashes are still accepted and replaced
// with bcrypt on the next successful login.
type Service struct {
	store tabula.UserStore
	cost  int
	now   func() time.Time
	mu    sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithCost sets the bcrypt cost.
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithClock sets the clock used for creation and login times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service over store.
func NewService(store tabula.UserStore, opts ...Option) *Service {
	s := &Service{store: store, cost: bcrypt.DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user. A taken username fails with ErrUsernameExists
// and leaves the stored record untouched.
func (s *Service) Register(username, password string) (tabula.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return tabula.User{}, &tabula.AuthError{Username: username, Err: fmt.Errorf("username and password are required: %w", tabula.ErrValidation)}
	}
	if strings.ContainsAny(username, `/\`) || username == "." || username == ".." {
		return tabula.User{}, &tabula.AuthError{Username: username, Err: fmt.Errorf("username may not contain path separators: %w", tabula.ErrValidation)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Users()
	if err != nil {
		return tabula.User{}, fmt.Errorf("auth: %w", err)
	}
	if _, exists := users[username]; exists {
		return tabula.User{}, &tabula.AuthError{Username: username, Err: tabula.ErrUsernameExists}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return tabula.User{}, fmt.Errorf("auth: hash password: %w", err)
	}
	u := tabula.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	users[username] = u
	if err := s.store.SaveUsers(users); err != nil {
		return tabula.User{}, fmt.Errorf("auth: %w", err)
	}
	return u, nil
}

// Authenticate checks a password and records the login time.
func (s *Service) Authenticate(username, password string) (tabula.User, error) {
	username = strings.TrimSpace(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.store.Users()
	if err != nil {
		return tabula.User{}, fmt.Errorf("auth: %w", err)
	}
	u, ok := users[username]
	if !ok {
		return tabula.User{}, &tabula.AuthError{Username: username, Err: tabula.ErrUnknownUser}
	}
	legacy, match := checkPassword(u.PasswordHash, password)
	if !match {
		return tabula.User{}, &tabula.AuthError{Username: username, Err: tabula.ErrWrongPassword}
	}
	if legacy {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return tabula.User{}, fmt.Errorf("auth: hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}
	now := s.now()
	u.LastLogin = &now
	users[username] = u
	if err := s.store.SaveUsers(users); err != nil {
		return tabula.User{}, fmt.Errorf("auth: %w", err)
	}
	return u, nil
}

// checkPassword reports whether password matches hash, and whether hash
// is a legacy SHA-256 hex digest.
func checkPassword(hash, password string) (legacy, match bool) {
	if isLegacyHash(hash) {
		sum := sha256.Sum256([]byte(password))
		return true, subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(strings.ToLower(hash))) == 1
	}
	return false, bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func isLegacyHash(hash string) bool {
	if len(hash) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
