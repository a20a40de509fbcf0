package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"tradein-engine/core/types"
	apperrors "tradein-engine/internal/errors"
)

const sessionKeyPrefix = "tradein:session:"

// RedisStore persists sessions as JSON values with a key TTL. The TTL
// runs past ExpiresAt by the retention margin so lapsed sessions stay
// readable for the sweep and for status reads. CAS rides on
// WATCH/MULTI.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// OpenRedis connects to redis
func OpenRedis(addr string, db int, retention time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, apperrors.Internal("failed to ping redis", err)
	}
	return &RedisStore{client: client, retention: retention}, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *RedisStore) keyTTL(s *types.Session) time.Duration {
	ttl := time.Until(s.ExpiresAt) + r.retention
	if ttl < time.Minute {
		ttl = time.Minute
	}
	return ttl
}

// Create implements SessionStore
func (r *RedisStore) Create(ctx context.Context, s *types.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return apperrors.Internal("failed to marshal session", err)
	}

	ok, err := r.client.SetNX(ctx, sessionKey(s.ID), data, r.keyTTL(s)).Result()
	if err != nil {
		return apperrors.Internal("failed to write session", err)
	}
	if !ok {
		return apperrors.Conflict("session already exists: " + s.ID)
	}
	return nil
}

// Get implements SessionStore
func (r *RedisStore) Get(ctx context.Context, id string) (*types.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NotFound("session", id)
	}
	if err != nil {
		return nil, apperrors.Internal("failed to read session", err)
	}

	var s types.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperrors.Internal("failed to unmarshal session", err)
	}
	return &s, nil
}

// Update implements SessionStore
func (r *RedisStore) Update(ctx context.Context, s *types.Session, expectedVersion int64) error {
	key := sessionKey(s.ID)

	txErr := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return apperrors.NotFound("session", s.ID)
		}
		if err != nil {
			return apperrors.Internal("failed to read session", err)
		}

		var stored types.Session
		if err := json.Unmarshal(data, &stored); err != nil {
			return apperrors.Internal("failed to unmarshal session", err)
		}
		if stored.Version != expectedVersion {
			return apperrors.Conflict("session version mismatch").
				WithContext("session_id", s.ID).
				WithContext("expected_version", expectedVersion).
				WithContext("stored_version", stored.Version)
		}

		payload, err := json.Marshal(s)
		if err != nil {
			return apperrors.Internal("failed to marshal session", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.keyTTL(s))
			return nil
		})
		return err
	}, key)

	if txErr == redis.TxFailedErr {
		return apperrors.Conflict("session modified concurrently").
			WithContext("session_id", s.ID)
	}
	return txErr
}

// Delete implements SessionStore
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	deleted, err := r.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return apperrors.Internal("failed to delete session", err)
	}
	if deleted == 0 {
		return apperrors.NotFound("session", id)
	}
	return nil
}

// List implements SessionStore. Admin-only operation; a full key scan
// is acceptable at session-store cardinality.
func (r *RedisStore) List(ctx context.Context, filter Filter) ([]*types.Session, error) {
	out := make([]*types.Session, 0)

	iter := r.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue // expired between scan and read
		}
		if err != nil {
			return nil, apperrors.Internal("failed to read session", err)
		}

		var s types.Session
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, apperrors.Internal("failed to unmarshal session", err)
		}
		if matches(&s, filter) {
			out = append(out, &s)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, apperrors.Internal("failed to scan sessions", err)
	}
	return out, nil
}

// Close implements SessionStore
func (r *RedisStore) Close() error {
	return r.client.Close()
}
