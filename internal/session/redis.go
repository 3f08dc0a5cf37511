// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "chat:session:"

// RedisConfig holds connection settings for the session store
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// NewRedisClient creates a client for cfg
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// RedisStore keeps sessions as JSON values whose key TTL is the session expiry
type RedisStore struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a store on rdb
func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, prefix: defaultKeyPrefix, now: time.Now}
}

func (r *RedisStore) key(phone string) string {
	return r.prefix + phone
}

func (r *RedisStore) Get(ctx context.Context, phone string) (*Session, error) {
	b, err := r.rdb.Get(ctx, r.key(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load chat session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	if s == nil || s.Phone == "" {
		return ErrSessionInvalid
	}
	now := r.now()
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(r.ttl)
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	if err := r.rdb.Set(ctx, r.key(s.Phone), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store chat session: %w", err)
	}
	return nil
}

func (r *RedisStore) Evict(ctx context.Context, phone string) error {
	if err := r.rdb.Del(ctx, r.key(phone)).Err(); err != nil {
		return fmt.Errorf("failed to evict chat session: %w", err)
	}
	return nil
}

// Ping checks connectivity
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
