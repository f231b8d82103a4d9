// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
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
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const redisKeyPrefix = "session:"

// RedisStore keeps sessions in Redis so they survive restarts and are
// shared between replicas.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to addr and checks the connection.
func NewRedisStore(addr string, ttl time.Duration) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, errors.Wrapf(err, "could not reach redis at %s", addr)
	}
	return NewRedisStoreFromClient(rdb, ttl), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.rdb.Get(ctx, redisKeyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, errors.Wrapf(err, "corrupt session %s", id)
	}
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return errors.Wrap(s.rdb.Set(ctx, redisKeyPrefix+sess.ID, data, s.ttl).Err(), "redis set")
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return errors.Wrap(s.rdb.Del(ctx, redisKeyPrefix+id).Err(), "redis del")
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
