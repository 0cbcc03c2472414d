package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-space-rental/internal/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

var _ Repo = (*RedisRepo)(nil)

// RedisRepo stores sessions as JSON values. The key expires with the session.
type RedisRepo struct {
	redis  *redis.Client
	maxAge time.Duration
}

// NewRedisRepo uses maxAge as the TTL for sessions without an ExpiresAt.
func NewRedisRepo(client *redis.Client, maxAge time.Duration) *RedisRepo {
	return &RedisRepo{redis: client, maxAge: maxAge}
}

func (r *RedisRepo) key(sessionID string) string {
	return redisKeyPrefix + sessionID
}

func (r *RedisRepo) Upsert(ctx context.Context, sessionID string, session Session) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	session.ID = sessionID

	ttl := r.maxAge
	if !session.ExpiresAt.IsZero() {
		ttl = time.Until(session.ExpiresAt)
		if ttl <= 0 {
			return r.Delete(ctx, sessionID)
		}
	}

	data, err := json.Marshal(session)
	if err != nil {
		return errors.Wrapf(err, "encode session %s", sessionID)
	}
	if err := r.redis.Set(ctx, r.key(sessionID), data, ttl).Err(); err != nil {
		return errors.Wrapf(err, "store session %s", sessionID)
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, fmt.Errorf("sessionID is required")
	}

	val, err := r.redis.Get(ctx, r.key(sessionID)).Result()
	if err == redis.Nil {
		return Session{}, errors.ErrSessionNotFound
	} else if err != nil {
		return Session{}, errors.Wrapf(err, "fetch session %s", sessionID)
	}

	var session Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return Session{}, errors.Wrapf(err, "decode session %s", sessionID)
	}
	return session, nil
}

func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	return r.redis.Del(ctx, r.key(sessionID)).Err()
}
