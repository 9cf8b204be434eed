// Package session keeps short-lived JSON state in Redis, keyed and expiring
// after a fixed TTL.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/TheAakashSingh/adplaymart-sub001/internal/apperr"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = apperr.NotFound("session_not_found", "session expired or unknown")

type Store struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

func NewStore(rdb *redis.Client, prefix string, ttl time.Duration) *Store {
	return &Store{redis: rdb, prefix: prefix, ttl: ttl}
}

func (s *Store) key(id string) string {
	return s.prefix + ":" + id
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Put stores v under id, replacing any previous value and restarting the TTL.
func (s *Store) Put(ctx context.Context, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", id, err)
	}
	if err := s.redis.Set(ctx, s.key(id), string(data), s.ttl).Err(); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string, v any) error {
	data, err := s.redis.Get(ctx, s.key(id)).Result()
	return s.decode(id, data, err, v)
}

// Take reads and removes the value atomically, so only one caller can
// consume a given session.
func (s *Store) Take(ctx context.Context, id string, v any) error {
	data, err := s.redis.GetDel(ctx, s.key(id)).Result()
	return s.decode(id, data, err, v)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// Touch restarts the TTL of an existing session.
func (s *Store) Touch(ctx context.Context, id string) error {
	ok, err := s.redis.Expire(ctx, s.key(id), s.ttl).Result()
	if err != nil {
		return apperr.Storage(err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Store) decode(id, data string, err error, v any) error {
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return apperr.Storage(err)
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return nil
}
