package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"room-designer/internal/domain"
)

const sessionKeyPrefix = "session:"

// redisAPI is the subset of *redis.Client used by RedisStore.
type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore keeps session records as JSON strings that expire with SET EX.
type RedisStore struct {
	api       redisAPI
	retention time.Duration
}

func NewRedisStore(api redisAPI, retention time.Duration) (*RedisStore, error) {
	if api == nil {
		return nil, errors.New("repository: redis client must not be nil")
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisStore{api: api, retention: retention}, nil
}

// DialRedis parses a redis:// URL and checks the connection.
func DialRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	redisURL = strings.TrimSpace(redisURL)
	if redisURL == "" {
		return nil, errors.New("repository: redis url must not be empty")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("repository: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("repository: ping redis: %w", err)
	}
	return client, nil
}

func sessionKey(threadToken string) string {
	return sessionKeyPrefix + threadToken
}

func (s *RedisStore) Get(ctx context.Context, threadToken string) (domain.SessionState, bool, error) {
	raw, err := s.api.Get(ctx, sessionKey(threadToken)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SessionState{}, false, nil
	}
	if err != nil {
		return domain.SessionState{}, false, fmt.Errorf("repository: redis get: %w", err)
	}
	var state domain.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return domain.SessionState{}, false, fmt.Errorf("repository: redis decode: %w", err)
	}
	return state, true, nil
}

func (s *RedisStore) Put(ctx context.Context, state domain.SessionState) error {
	if strings.TrimSpace(state.ThreadToken) == "" {
		return errors.New("repository: Put: thread token is required")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("repository: redis encode: %w", err)
	}
	if err := s.api.Set(ctx, sessionKey(state.ThreadToken), raw, s.retention).Err(); err != nil {
		return fmt.Errorf("repository: redis set: %w", err)
	}
	return nil
}
