package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type guestStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type guestKeyer interface {
	GuestCartKey(sessionID string) string
}

// SessionStore keeps anonymous carts as JSON blobs in Redis with a TTL.
type SessionStore struct {
	store guestStore
	keyer guestKeyer
	ttl   time.Duration
}

// NewSessionStore builds the guest cart store. The client doubles as
// the key builder.
func NewSessionStore(store guestStore, keyer guestKeyer, ttl time.Duration) (*SessionStore, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store is required")
	}
	if keyer == nil {
		return nil, fmt.Errorf("key builder is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("guest cart ttl must be positive")
	}
	return &SessionStore{store: store, keyer: keyer, ttl: ttl}, nil
}

// Load returns the session cart, or an empty cart when none exists.
func (s *SessionStore) Load(ctx context.Context, sessionID string) (*cartState, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session id is required")
	}
	raw, err := s.store.Get(ctx, s.keyer.GuestCartKey(sessionID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return &cartState{}, nil
		}
		return nil, err
	}

	var state cartState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		// A corrupt blob should not brick the session; start fresh.
		return &cartState{}, nil
	}
	return &state, nil
}

// Save writes the session cart, refreshing its TTL.
func (s *SessionStore) Save(ctx context.Context, sessionID string, state *cartState) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if state == nil {
		state = &cartState{}
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal guest cart: %w", err)
	}
	return s.store.Set(ctx, s.keyer.GuestCartKey(sessionID), payload, s.ttl)
}

// Delete removes the session cart key entirely.
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	return s.store.Del(ctx, s.keyer.GuestCartKey(sessionID))
}
