// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package config loads the explicit configuration handed to the platform
// client, the dataset store and the estimation pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DataDog/netmet-geoloc/common"
	"github.com/DataDog/netmet-geoloc/geo"
)

// Environment variables overriding the file, credentials in particular.
const (
	EnvAtlasAPIKey  = "ATLAS_API_KEY"
	EnvAtlasBillTo  = "ATLAS_BILL_TO"
	EnvAtlasBaseURL = "ATLAS_BASE_URL"
	EnvStoreBackend = "NETMET_STORE"
	EnvStoreDir     = "NETMET_STORE_DIR"
	EnvRedisAddr    = "NETMET_REDIS_ADDR"
)

type Config struct {
	Atlas       Atlas                `yaml:"atlas"`
	Store       Store                `yaml:"store"`
	Propagation geo.PropagationModel `yaml:"propagation"`
	Workers     int                  `yaml:"workers"`
	LogLevel    string               `yaml:"log_level"`
}

type Atlas struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	BillTo  string        `yaml:"bill_to"`
	Timeout time.Duration `yaml:"timeout"`
	Tag     string        `yaml:"tag"`
	Poll    Poll          `yaml:"poll"`
}

// Poll paces WaitForResults.
type Poll struct {
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	MaxElapsed      time.Duration `yaml:"max_elapsed"`
}

type Store struct {
	// Backend is one of file, redis, badger.
	Backend   string `yaml:"backend"`
	Dir       string `yaml:"dir"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	Prefix    string `yaml:"prefix"`
	BadgerDir string `yaml:"badger_dir"`
}

// Default returns a configuration usable without any file.
func Default() Config {
	return Config{
		Atlas: Atlas{
			BaseURL: common.DefaultAtlasBaseURL,
			Timeout: common.DefaultAtlasTimeout,
			Tag:     common.DefaultMeasurementTag,
			Poll: Poll{
				InitialInterval: common.DefaultPollInitialInterval,
				MaxInterval:     common.DefaultPollMaxInterval,
				MaxElapsed:      common.DefaultPollMaxElapsed,
			},
		},
		Store: Store{
			Backend:   common.DefaultStoreBackend,
			Dir:       common.DefaultStoreDir,
			RedisAddr: common.DefaultRedisAddr,
			Prefix:    common.DefaultRedisPrefix,
			BadgerDir: common.DefaultBadgerDir,
		},
		Propagation: geo.DefaultModel,
		Workers:     common.DefaultWorkers,
		LogLevel:    common.DefaultLogLevel,
	}
}

// Load reads path over the defaults then applies environment overrides. An
// empty path or a missing file only applies defaults and environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvAtlasAPIKey, &c.Atlas.APIKey)
	set(EnvAtlasBillTo, &c.Atlas.BillTo)
	set(EnvAtlasBaseURL, &c.Atlas.BaseURL)
	set(EnvStoreBackend, &c.Store.Backend)
	set(EnvStoreDir, &c.Store.Dir)
	set(EnvRedisAddr, &c.Store.RedisAddr)
}

func (c Config) Validate() error {
	if err := c.Propagation.Validate(); err != nil {
		return fmt.Errorf("propagation: %w", err)
	}
	switch c.Store.Backend {
	case "file", "redis", "badger":
	default:
		return fmt.Errorf("unknown store backend %q (expected file, redis or badger)", c.Store.Backend)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}

// ErrMissingCredentials is returned when an operation that creates
// measurements runs without an API key.
var ErrMissingCredentials = errors.New("atlas credentials missing: set " + EnvAtlasAPIKey + " and " + EnvAtlasBillTo)

// RequireCredentials checks what measurement creation needs.
func (a Atlas) RequireCredentials() error {
	if a.APIKey == "" || a.BillTo == "" {
		return ErrMissingCredentials
	}
	return nil
}
