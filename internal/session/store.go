package session

import (
	"context"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/p-n-ai/pai-quiz/internal/platform/cache"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	sessions map[string]Session
	mu       sync.RWMutex
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

func (s *MemoryStore) Save(_ context.Context, sess Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	return &sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// RedisStore keeps sessions in Redis/Dragonfly. Tokens are never stored in
// clear: keys are derived from a BLAKE2b digest of the token.
type RedisStore struct {
	cache *cache.Cache
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(c *cache.Cache) *RedisStore {
	return &RedisStore{cache: c}
}

func (s *RedisStore) Save(ctx context.Context, sess Session, ttl time.Duration) error {
	stored := sess
	stored.Token = ""
	return s.cache.SetJSON(ctx, tokenKey(sess.Token), stored, ttl)
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	var sess Session
	err := s.cache.GetJSON(ctx, tokenKey(token), &sess)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.Token = token
	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, tokenKey(token))
}

func tokenKey(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return "session:" + hex.EncodeToString(sum[:])
}
