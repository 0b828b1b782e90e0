package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeAuth struct {
	user User
	err  error
	last string
}

func (f *fakeAuth) Login(_ context.Context, username, _ string) (User, error) {
	f.last = username
	if f.err != nil {
		return User{}, f.err
	}
	return f.user, nil
}

func TestManager_LoginRestoreLogout(t *testing.T) {
	auth := &fakeAuth{user: User{Username: "teacher", UserCode: "U-1", UserRole: "teacher"}}
	m := NewManager(NewMemoryStore(), auth, time.Hour)
	ctx := context.Background()

	s, err := m.Login(ctx, "  teacher ", "secret")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if s.Token == "" {
		t.Fatal("Login() returned empty token")
	}
	if auth.last != "teacher" {
		t.Errorf("username sent = %q, want trimmed 'teacher'", auth.last)
	}

	restored, err := m.Restore(ctx, s.Token)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if restored.User.Username != "teacher" || restored.OwnerID() != "U-1" {
		t.Errorf("Restore() = %+v", restored)
	}

	if err := m.Logout(ctx, s.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := m.Restore(ctx, s.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("Restore() after logout error = %v, want ErrNotFound", err)
	}
}

func TestManager_LoginRejected(t *testing.T) {
	m := NewManager(NewMemoryStore(), &fakeAuth{err: errors.New("status 401")}, time.Hour)

	_, err := m.Login(context.Background(), "teacher", "wrong")
	if !errors.Is(err, ErrLoginFailed) {
		t.Errorf("Login() error = %v, want ErrLoginFailed", err)
	}
}

func TestManager_LoginRequiresCredentials(t *testing.T) {
	auth := &fakeAuth{user: User{Username: "x"}}
	m := NewManager(NewMemoryStore(), auth, time.Hour)

	for _, tc := range [][2]string{{"", "pw"}, {"   ", "pw"}, {"user", ""}} {
		if _, err := m.Login(context.Background(), tc[0], tc[1]); !errors.Is(err, ErrLoginFailed) {
			t.Errorf("Login(%q, %q) error = %v, want ErrLoginFailed", tc[0], tc[1], err)
		}
	}
	if auth.last != "" {
		t.Error("authenticator should not be called without credentials")
	}
}

func TestManager_RestoreExpired(t *testing.T) {
	m := NewManager(NewMemoryStore(), &fakeAuth{user: User{Username: "t"}}, time.Minute)
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	s, err := m.Login(context.Background(), "t", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := m.Restore(context.Background(), s.Token); !errors.Is(err, ErrNotFound) {
		t.Errorf("Restore() expired error = %v, want ErrNotFound", err)
	}
}

func TestManager_RestoreEmptyToken(t *testing.T) {
	m := NewManager(NewMemoryStore(), &fakeAuth{}, time.Hour)
	if _, err := m.Restore(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Restore(\"\") error = %v, want ErrNotFound", err)
	}
}

func TestSession_OwnerIDFallsBackToUsername(t *testing.T) {
	s := Session{User: User{Username: "teacher"}}
	if s.OwnerID() != "teacher" {
		t.Errorf("OwnerID() = %q, want teacher", s.OwnerID())
	}
}

func TestTokenKey(t *testing.T) {
	token := "2b7f0c1e-0d7e-4c1a-9f57-1f6c6f3b5a10"
	key := tokenKey(token)

	if !strings.HasPrefix(key, "session:") {
		t.Errorf("tokenKey() = %q, want session: prefix", key)
	}
	if strings.Contains(key, token) {
		t.Error("tokenKey() must not contain the raw token")
	}
	if key != tokenKey(token) {
		t.Error("tokenKey() must be deterministic")
	}
	if key == tokenKey(token+"x") {
		t.Error("tokenKey() collided for different tokens")
	}
}
