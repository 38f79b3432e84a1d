package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	gwerrors "github.com/jrsteele09/hireai-gateway/internal/errors"
	"github.com/jrsteele09/hireai-gateway/tokens"
	"github.com/rs/zerolog/log"
)

const redisKeyPrefix = "hireai:session:"

// RedisRepo stores sessions as JSON values whose TTL is the session max age.
type RedisRepo struct {
	client *redis.Client
	maxAge time.Duration
}

// NewRedisRepo creates a Redis-backed session repository
func NewRedisRepo(client *redis.Client, maxAge time.Duration) *RedisRepo {
	return &RedisRepo{
		client: client,
		maxAge: maxAge,
	}
}

// NewRedisClient connects to addr and checks the connection with a PING.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[sessions NewRedisClient] ping %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisRepo) Upsert(ctx context.Context, sessionID string, ts tokens.TokenSet) error {
	if sessionID == "" {
		return fmt.Errorf("%w: sessionID is required", gwerrors.ErrInvalidRequest)
	}

	data, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("[RedisRepo Upsert] marshal session: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+sessionID, data, r.maxAge).Err(); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to store session in redis")
		return fmt.Errorf("[RedisRepo Upsert] %w", err)
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, sessionID string) (tokens.TokenSet, error) {
	if sessionID == "" {
		return tokens.TokenSet{}, gwerrors.ErrSessionNotFound
	}

	data, err := r.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return tokens.TokenSet{}, gwerrors.ErrSessionNotFound
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to read session from redis")
		return tokens.TokenSet{}, fmt.Errorf("[RedisRepo Get] %w", err)
	}

	var ts tokens.TokenSet
	if err := json.Unmarshal(data, &ts); err != nil {
		return tokens.TokenSet{}, fmt.Errorf("%w: %w", gwerrors.ErrSessionInvalid, err)
	}
	return ts, nil
}

func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Delete] %w", err)
	}
	return nil
}
