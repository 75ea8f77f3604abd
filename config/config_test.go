// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DataDog/netmet-geoloc/common"
	"github.com/DataDog/netmet-geoloc/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, common.DefaultAtlasBaseURL, cfg.Atlas.BaseURL)
	assert.Equal(t, geo.DefaultModel, cfg.Propagation)
	assert.Equal(t, "file", cfg.Store.Backend)
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvAtlasAPIKey, "")
	t.Setenv(EnvAtlasBillTo, "")
	t.Setenv(EnvStoreBackend, "")

	path := filepath.Join(t.TempDir(), "netmet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
atlas:
  api_key: from-file
  bill_to: someone@example.com
  timeout: 5s
  poll:
    initial_interval: 1s
store:
  backend: badger
  badger_dir: /tmp/netmet
propagation:
  speed_fraction: 0.4444
  overhead_ms: 0
workers: 2
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Atlas.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Atlas.Timeout)
	assert.Equal(t, time.Second, cfg.Atlas.Poll.InitialInterval)
	// untouched keys keep their defaults
	assert.Equal(t, common.DefaultPollMaxInterval, cfg.Atlas.Poll.MaxInterval)
	assert.Equal(t, common.DefaultAtlasBaseURL, cfg.Atlas.BaseURL)
	assert.Equal(t, "badger", cfg.Store.Backend)
	assert.Equal(t, "/tmp/netmet", cfg.Store.BadgerDir)
	assert.InDelta(t, 0.4444, cfg.Propagation.SpeedFraction, 1e-9)
	assert.Zero(t, cfg.Propagation.OverheadMs)
	assert.Equal(t, 2, cfg.Workers)
	assert.NoError(t, cfg.Atlas.RequireCredentials())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvAtlasAPIKey, "secret")
	t.Setenv(EnvAtlasBillTo, "billing@example.com")
	t.Setenv(EnvStoreBackend, "redis")
	t.Setenv(EnvRedisAddr, "redis:6380")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Atlas.APIKey)
	assert.Equal(t, "billing@example.com", cfg.Atlas.BillTo)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis:6380", cfg.Store.RedisAddr)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(EnvStoreBackend, "")
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("atlas: [unterminated"), 0o600))
	_, err := Load(bad)
	assert.ErrorContains(t, err, "parse config")

	backend := filepath.Join(dir, "backend.yaml")
	require.NoError(t, os.WriteFile(backend, []byte("store:\n  backend: s3\n"), 0o600))
	_, err = Load(backend)
	assert.ErrorContains(t, err, "unknown store backend")

	model := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(model, []byte("propagation:\n  speed_fraction: 2\n"), 0o600))
	_, err = Load(model)
	assert.ErrorContains(t, err, "propagation")
}

func TestRequireCredentials(t *testing.T) {
	assert.ErrorIs(t, Atlas{}.RequireCredentials(), ErrMissingCredentials)
	assert.ErrorIs(t, Atlas{APIKey: "k"}.RequireCredentials(), ErrMissingCredentials)
	assert.NoError(t, Atlas{APIKey: "k", BillTo: "b"}.RequireCredentials())
}
