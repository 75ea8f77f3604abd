// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package store persists named JSON datasets: vantage points, targets,
// measurement descriptions and results, estimations and reports.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/DataDog/netmet-geoloc/config"
)

// Dataset names used across the CLI and the server.
const (
	VantagePoints  = "vantage_points"
	Targets        = "targets"
	GroundTruth    = "ground_truth"
	Measurements   = "measurements"
	PingResults    = "ping_results"
	TraceResults   = "traceroute_results"
	DNSResults     = "dns_results"
	DNSResolutions = "dns_resolutions"
	Observations   = "rtt_observations"
	AnycastReport  = "anycast"
	Evaluations    = "evaluations"
)

// EstimationName is the dataset holding the estimation of a method.
func EstimationName(method string) string {
	return "estimation_" + method
}

var (
	// ErrNotFound is returned by Load for a dataset never saved.
	ErrNotFound = errors.New("dataset not found")
	// ErrNotList is returned by Append when the dataset is not a JSON array.
	ErrNotList = errors.New("dataset is not a list")
)

// Store saves and loads JSON datasets by name.
type Store interface {
	// Save replaces the dataset.
	Save(ctx context.Context, name string, v any) error
	// Load decodes the dataset into v.
	Load(ctx context.Context, name string, v any) error
	// Append adds v as the last element of a list dataset, creating it.
	Append(ctx context.Context, name string, v any) error
	Exists(ctx context.Context, name string) (bool, error)
	Close() error
}

// Open returns the backend selected by cfg.
func Open(cfg config.Store) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Dir)
	case "redis":
		return OpenRedisStore(cfg.RedisAddr, cfg.RedisDB, cfg.Prefix)
	case "badger":
		return OpenBadgerStore(cfg.BadgerDir, false)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid dataset name %q", name)
	}
	return nil
}

// appendJSON adds v to the JSON array list. An empty list starts a new one.
func appendJSON(list []byte, v any) ([]byte, error) {
	elem, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var items []json.RawMessage
	if len(list) > 0 {
		if err := json.Unmarshal(list, &items); err != nil {
			return nil, ErrNotList
		}
	}
	items = append(items, elem)
	return json.Marshal(items)
}

func decode(name string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode dataset %s: %w", name, err)
	}
	return nil
}
