// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var defaultRedisTimeout = 2 * time.Second

// RedisStore keeps saved datasets as JSON strings and appended datasets as
// lists with one JSON element per entry.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

var _ Store = (*RedisStore)(nil)

// OpenRedisStore connects to addr and checks the connection.
func OpenRedisStore(addr string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultRedisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return NewRedisStore(client, prefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, timeout: defaultRedisTimeout}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

func (s *RedisStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *RedisStore) Save(ctx context.Context, name string, v any) error {
	if err := validateName(name); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode dataset %s: %w", name, err)
	}
	tctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := s.key(name)
	// a list left by Append would keep its type otherwise
	_, err = s.client.TxPipelined(tctx, func(pipe redis.Pipeliner) error {
		pipe.Del(tctx, key)
		pipe.Set(tctx, key, data, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save dataset %s: %w", name, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, name string, v any) error {
	if err := validateName(name); err != nil {
		return err
	}
	tctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := s.key(name)
	kind, err := s.client.Type(tctx, key).Result()
	if err != nil {
		return fmt.Errorf("load dataset %s: %w", name, err)
	}

	var data []byte
	switch kind {
	case "none":
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	case "list":
		items, err := s.client.LRange(tctx, key, 0, -1).Result()
		if err != nil {
			return fmt.Errorf("load dataset %s: %w", name, err)
		}
		data = []byte("[" + strings.Join(items, ",") + "]")
	default:
		data, err = s.client.Get(tctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("load dataset %s: %w", name, err)
		}
	}
	return decode(name, data, v)
}

// Append pushes v on the list. A dataset previously saved as a JSON array is
// converted to a list first.
func (s *RedisStore) Append(ctx context.Context, name string, v any) error {
	if err := validateName(name); err != nil {
		return err
	}
	elem, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode dataset %s: %w", name, err)
	}
	tctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := s.key(name)
	kind, err := s.client.Type(tctx, key).Result()
	if err != nil {
		return fmt.Errorf("append to dataset %s: %w", name, err)
	}
	if kind == "string" {
		if err := s.convertToList(tctx, name, key); err != nil {
			return err
		}
	}
	if err := s.client.RPush(tctx, key, elem).Err(); err != nil {
		return fmt.Errorf("append to dataset %s: %w", name, err)
	}
	return nil
}

func (s *RedisStore) convertToList(ctx context.Context, name, key string) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return fmt.Errorf("append to dataset %s: %w", name, err)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("append to dataset %s: %w", name, ErrNotList)
	}
	values := make([]any, len(items))
	for i, item := range items {
		values[i] = []byte(item)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append to dataset %s: %w", name, err)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := validateName(name); err != nil {
		return false, err
	}
	tctx, cancel := s.withTimeout(ctx)
	defer cancel()
	n, err := s.client.Exists(tctx, s.key(name)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
