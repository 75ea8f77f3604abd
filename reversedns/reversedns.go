// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package reversedns resolves hop and probe addresses to host names.
package reversedns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DataDog/netmet-geoloc/cache"
)

const (
	reverseDnsDefaultTimeout = 5 * time.Second
	reverseDnsCacheExpiry    = 30 * time.Minute
	defaultConcurrency       = 16
)

// LookupAddrFn is defined as variable to ease testing
var LookupAddrFn = net.DefaultResolver.LookupAddr

// GetReverseDnsForIP returns the reverse DNS for the given IP address as a net.IP.
func GetReverseDnsForIP(ctx context.Context, ipAddress net.IP) ([]string, error) {
	if ipAddress == nil {
		return nil, errors.New("invalid nil IP address")
	}
	return GetReverseDns(ctx, ipAddress.String())
}

// GetReverseDns returns the hostname for the given IP address as a string.
func GetReverseDns(ctx context.Context, ipAddr string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, reverseDnsDefaultTimeout)
	defer cancel()
	rawReverseDnsNames, err := LookupAddrFn(ctx, ipAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to get reverse dns: %w", err)
	}

	reverseDnsNames := []string{}
	for _, name := range rawReverseDnsNames {
		reverseDnsNames = append(reverseDnsNames, strings.TrimRight(name, "."))
	}
	return reverseDnsNames, nil
}

// Resolver looks up many addresses at once and remembers the answers.
type Resolver struct {
	cache       *cache.Cache
	concurrency int
}

// NewResolver returns a resolver with its own cache. A concurrency below 1
// uses the default.
func NewResolver(concurrency int) *Resolver {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Resolver{
		cache:       cache.New(reverseDnsCacheExpiry, 0),
		concurrency: concurrency,
	}
}

// Lookup returns the first name of addr, or "" when it has none. Failed
// lookups are not cached.
func (r *Resolver) Lookup(ctx context.Context, addr string) (string, error) {
	return cache.Get(r.cache, "rdns:"+addr, func() (string, error) {
		names, err := GetReverseDns(ctx, addr)
		if err != nil {
			return "", err
		}
		if len(names) == 0 {
			return "", nil
		}
		return names[0], nil
	})
}

// Names resolves addrs concurrently. Addresses that fail to resolve or have
// no name are absent from the result; only a cancelled context is an error.
func (r *Resolver) Names(ctx context.Context, addrs []string) (map[string]string, error) {
	var mu sync.Mutex
	names := make(map[string]string, len(addrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	seen := make(map[string]struct{}, len(addrs))
	for _, addr := range addrs {
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name, err := r.Lookup(gctx, addr)
			if err != nil || name == "" {
				return nil
			}
			mu.Lock()
			names[addr] = name
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return names, nil
}
