// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package cmd

import (
	"fmt"

	"github.com/DataDog/netmet-geoloc/atlas"
	"github.com/DataDog/netmet-geoloc/campaign"
	"github.com/DataDog/netmet-geoloc/config"
	"github.com/DataDog/netmet-geoloc/store"
)

// env is what a subcommand runs against. Close releases the store.
type env struct {
	runner *campaign.Runner
	store  store.Store
}

func (e *env) Close() error {
	return e.store.Close()
}

// openEnv builds the platform client and opens the store of c.
var openEnv = func(c config.Config) (*env, error) {
	client, err := atlas.NewClient(c.Atlas)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(c.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", c.Store.Backend, err)
	}
	return &env{runner: campaign.NewRunner(client, st, c), store: st}, nil
}

// withEnv runs fn and closes the environment whatever fn returns.
func withEnv(fn func(*env) error) error {
	e, err := openEnv(cfg)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(e)
}
