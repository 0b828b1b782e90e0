// Package session tracks authenticated users. A session is created on login,
// restored from its bearer token on every request and destroyed on logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned for unknown or expired tokens.
	ErrNotFound = errors.New("session not found")
	// ErrLoginFailed is returned when the credentials are rejected.
	ErrLoginFailed = errors.New("login failed")
)

// User is the identity returned by the remote user service.
type User struct {
	Status   string `json:"status"`
	UserCode string `json:"usercode"`
	CustCode string `json:"custcode"`
	OrgCode  string `json:"orgcode"`
	Username string `json:"username"`
	UserRole string `json:"userrole"`
}

// Session is an authenticated login.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OwnerID identifies the session's user for ownership of saved quizzes.
func (s Session) OwnerID() string {
	if s.User.UserCode != "" {
		return s.User.UserCode
	}
	return s.User.Username
}

// Store persists sessions keyed by token.
type Store interface {
	Save(ctx context.Context, s Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

// Authenticator verifies credentials.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (User, error)
}

// Manager issues, restores and revokes sessions.
type Manager struct {
	store Store
	auth  Authenticator
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a session manager.
func NewManager(store Store, auth Authenticator, ttl time.Duration) *Manager {
	return &Manager{store: store, auth: auth, ttl: ttl, now: time.Now}
}

// Login authenticates the user and opens a new session.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrLoginFailed)
	}

	user, err := m.auth.Login(ctx, username, password)
	if err != nil {
		slog.Warn("login rejected", "username", username, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	now := m.now()
	s := Session{
		Token:     uuid.NewString(),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, s, m.ttl); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	slog.Info("session opened", "username", user.Username, "role", user.UserRole)
	return &s, nil
}

// Restore returns the live session for token.
func (m *Manager) Restore(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	s, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if !s.ExpiresAt.IsZero() && !m.now().Before(s.ExpiresAt) {
		_ = m.store.Delete(ctx, token)
		return nil, ErrNotFound
	}
	return s, nil
}

// Logout destroys the session for token.
func (m *Manager) Logout(ctx context.Context, token string) error {
	if err := m.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	slog.Info("session closed")
	return nil
}
