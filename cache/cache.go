// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package cache memoizes expensive lookups such as probe listings and
// reverse DNS names.
package cache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	defaultExpire = 5 * time.Minute
	defaultPurge  = 30 * time.Second
)

// Cache is an in-memory key:value store owned by a single client.
type Cache struct {
	store *cache.Cache
}

// New returns a cache whose entries expire after expire unless stated
// otherwise. Non-positive durations fall back to the defaults.
func New(expire, purge time.Duration) *Cache {
	if expire <= 0 {
		expire = defaultExpire
	}
	if purge <= 0 {
		purge = defaultPurge
	}
	return &Cache{store: cache.New(expire, purge)}
}

// Get returns the value for 'key'.
//
// cache hit:
//
//	pull the value from the cache and returns it.
//
// cache miss:
//
//	call 'cb' function to get a new value. If the callback doesn't return an error the returned value is
//	cached with the cache's default expiration and returned.
func Get[T any](c *Cache, key string, cb func() (T, error)) (T, error) {
	return GetWithExpiration[T](c, key, cb, cache.DefaultExpiration)
}

// GetWithExpiration is Get with an explicit expire duration. A nil cache
// always calls 'cb'.
func GetWithExpiration[T any](c *Cache, key string, cb func() (T, error), expire time.Duration) (T, error) {
	if c == nil {
		return cb()
	}
	if x, found := c.store.Get(key); found {
		if v, ok := x.(T); ok {
			return v, nil
		}
	}

	res, err := cb()
	// We don't cache errors
	if err == nil {
		c.store.Set(key, res, expire)
	}
	return res, err
}

// Invalidate drops 'key'.
func (c *Cache) Invalidate(key string) {
	c.store.Delete(key)
}

// Flush drops every entry.
func (c *Cache) Flush() {
	c.store.Flush()
}

// Len reports the number of entries, expired ones included until purged.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}
