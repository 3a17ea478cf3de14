package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/types"
)

// PendingStore holds the per-session pending action between turns. Keys carry
// a TTL so stale confirmations cannot replay week-old actions.
type PendingStore interface {
	Put(ctx context.Context, sessionID string, action types.PendingAction) error
	Get(ctx context.Context, sessionID string) (*types.PendingAction, error)
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

type pendingStore struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

func NewPendingStore(log *logger.Logger) (PendingStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	ttl := 10 * time.Minute
	if v := strings.TrimSpace(os.Getenv("PENDING_ACTION_TTL_SECONDS")); v != "" {
		var secs int
		if _, err := fmt.Sscanf(v, "%d", &secs); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &pendingStore{
		log: log.With("service", "RedisPendingStore"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func key(sessionID string) string {
	return "assistant:pending:" + strings.TrimSpace(sessionID)
}

func (s *pendingStore) Put(ctx context.Context, sessionID string, action types.PendingAction) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id required")
	}
	if action.ExpiresAt.IsZero() {
		action.ExpiresAt = time.Now().UTC().Add(s.ttl)
	}
	raw, err := json.Marshal(action)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key(sessionID), raw, s.ttl).Err()
}

func (s *pendingStore) Get(ctx context.Context, sessionID string) (*types.PendingAction, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, nil
	}
	raw, err := s.rdb.Get(ctx, key(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var action types.PendingAction
	if err := json.Unmarshal(raw, &action); err != nil {
		s.log.Warn("discarding undecodable pending action", "session_id", sessionID, "error", err)
		return nil, nil
	}
	if action.Expired(time.Now().UTC()) {
		_ = s.Clear(ctx, sessionID)
		return nil, nil
	}
	return &action, nil
}

func (s *pendingStore) Clear(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return s.rdb.Del(ctx, key(sessionID)).Err()
}

func (s *pendingStore) Close() error {
	return s.rdb.Close()
}
