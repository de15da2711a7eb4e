package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/The-Voice-Ledger/Trust-Voice-sub000/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// ErrStoreUnavailable is returned when the backing store times out or cannot
// be reached. Callers must surface it as a hard failure and never treat it as
// "no session in progress".
var ErrStoreUnavailable = errors.New("session store unavailable")

const keyNamespace = "session:"

// Store is the shared, keyed, TTL-expiring holder of one session document per
// user. Get on an absent or expired key returns (nil, nil); callers treat
// that identically to "no conversation in progress". Put always resets the
// TTL countdown.
type Store interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Put(ctx context.Context, userID string, sess *Session, ttl time.Duration) error
	Delete(ctx context.Context, userID string) (bool, error)
	Touch(ctx context.Context, userID string, ttl time.Duration) (bool, error)
}

// RedisStore persists session documents as JSON in Redis. The per-user key
// plus the caller's single-writer-per-user guarantee replace the coarse
// global lock the engine would otherwise need.
type RedisStore struct {
	cache  *cache.RedisClient
	logger *zap.Logger
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(cacheClient *cache.RedisClient, logger *zap.Logger) *RedisStore {
	return &RedisStore{cache: cacheClient, logger: logger}
}

func sessionKey(userID string) string {
	return keyNamespace + userID
}

// Get loads a session document, returning (nil, nil) when none exists.
func (s *RedisStore) Get(ctx context.Context, userID string) (*Session, error) {
	raw, err := s.cache.Get(ctx, sessionKey(userID))
	if err != nil {
		if errors.Is(err, cache.ErrCacheNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		// A corrupt document is unrecoverable; drop it and report no session.
		s.logger.Error("discarding corrupt session document",
			zap.String("user_id", userID),
			zap.Error(err))
		if _, delErr := s.cache.Delete(ctx, sessionKey(userID)); delErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, delErr)
		}
		return nil, nil
	}
	return &sess, nil
}

// Put writes the whole session document and resets its TTL.
func (s *RedisStore) Put(ctx context.Context, userID string, sess *Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.cache.Set(ctx, sessionKey(userID), string(data), ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Delete removes the session document, reporting whether one existed.
func (s *RedisStore) Delete(ctx context.Context, userID string) (bool, error) {
	ok, err := s.cache.Delete(ctx, sessionKey(userID))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ok, nil
}

// Touch renews the TTL without rewriting the document, reporting whether the
// session was still present.
func (s *RedisStore) Touch(ctx context.Context, userID string, ttl time.Duration) (bool, error) {
	ok, err := s.cache.Expire(ctx, sessionKey(userID), ttl)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ok, nil
}
