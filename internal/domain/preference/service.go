package preference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrInvalidKey rejects writes to keys outside the fixed enumeration.
	ErrInvalidKey = errors.New("invalid preference key")
	// ErrInvalidValue rejects values outside a key's closed value set.
	ErrInvalidValue = errors.New("invalid preference value")
)

// Service validates and persists per-user defaults.
type Service interface {
	Set(ctx context.Context, userID, key, value string) error
	Get(ctx context.Context, userID, key, fallback string) (string, error)
	GetAll(ctx context.Context, userID string) (map[string]string, error)
	Delete(ctx context.Context, userID, key string) (bool, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a preference service over the repository.
func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{repo: repo, logger: logger}
}

// Set validates and writes one preference. Rejected writes leave any stored
// value untouched.
func (s *service) Set(ctx context.Context, userID, key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.ToLower(strings.TrimSpace(value))

	if !KnownKey(key) {
		return fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	if !ValidValue(key, value) {
		return fmt.Errorf("%w: %q for %s", ErrInvalidValue, value, key)
	}

	pref := &Preference{UserID: userID, Key: key, Value: value, Source: SourceExplicit}
	if err := s.repo.Upsert(ctx, pref); err != nil {
		return err
	}
	s.logger.Info("preference set",
		zap.String("user_id", userID),
		zap.String("key", key))
	return nil
}

// Get returns the stored value, or fallback when none exists.
func (s *service) Get(ctx context.Context, userID, key, fallback string) (string, error) {
	pref, err := s.repo.Find(ctx, userID, key)
	if err != nil {
		if errors.Is(err, ErrPreferenceNotFound) {
			return fallback, nil
		}
		return fallback, err
	}
	return pref.Value, nil
}

// GetAll returns every stored preference for the user as a key/value map.
func (s *service) GetAll(ctx context.Context, userID string) (map[string]string, error) {
	prefs, err := s.repo.FindAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(prefs))
	for _, p := range prefs {
		out[p.Key] = p.Value
	}
	return out, nil
}

// Delete removes one preference, reporting whether it existed.
func (s *service) Delete(ctx context.Context, userID, key string) (bool, error) {
	if !KnownKey(key) {
		return false, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return s.repo.Delete(ctx, userID, key)
}
