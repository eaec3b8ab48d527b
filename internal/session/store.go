package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ErrNotFound signals that no confirmed payment is pending display for the session.
var ErrNotFound = errors.New("session: no payment record")

// Record is the per-user projection of a reconciled payment outcome.
type Record struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Method    string `json:"method,omitempty"`
}

// Store projects reconciled payment outcomes into per-user session state.
// Consume reads and clears in one step so that concurrent requests for the
// same session observe the record at most once.
type Store interface {
	Record(ctx context.Context, sessionID string, rec Record) error
	Consume(ctx context.Context, sessionID string) (Record, error)
}

const defaultTTL = 30 * time.Minute

// consumeScript deletes the key in the same call that reads it.
const consumeScript = `local value = redis.call("GET", KEYS[1])
if value == false then
  return nil
end
redis.call("DEL", KEYS[1])
return value`

// RedisStore implements Store on a Redis client.
type RedisStore struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

// Record stores the projection as a single JSON value with a TTL.
func (s *RedisStore) Record(ctx context.Context, sessionID string, rec Record) error {
	if s == nil || s.R == nil {
		return errors.New("session: redis client not configured")
	}
	key, err := s.key(sessionID)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("session: encode record: %w", err)
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if err := s.R.Set(ctx, key, encoded, ttl).Err(); err != nil {
		return fmt.Errorf("session: store record: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes the record for the session.
func (s *RedisStore) Consume(ctx context.Context, sessionID string) (Record, error) {
	var zero Record
	if s == nil || s.R == nil {
		return zero, errors.New("session: redis client not configured")
	}
	key, err := s.key(sessionID)
	if err != nil {
		return zero, err
	}
	result, err := s.R.Eval(ctx, consumeScript, []string{key}).Result()
	if errors.Is(err, redis.Nil) {
		return zero, ErrNotFound
	}
	if err != nil {
		return zero, fmt.Errorf("session: consume record: %w", err)
	}
	raw, ok := result.(string)
	if !ok {
		return zero, fmt.Errorf("session: unexpected reply type %T", result)
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return zero, fmt.Errorf("session: decode record: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) key(sessionID string) (string, error) {
	trimmed := strings.TrimSpace(sessionID)
	if trimmed == "" {
		return "", errors.New("session: session id is required")
	}
	prefix := s.Prefix
	if prefix == "" {
		prefix = "paysession:"
	}
	return prefix + trimmed, nil
}
