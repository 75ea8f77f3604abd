// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package campaign drives a measurement campaign end to end: vantage point
// discovery, scheduling on the platform, collection of the results and the
// estimation pipelines, persisting every step to the dataset store.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DataDog/netmet-geoloc/atlas"
	"github.com/DataDog/netmet-geoloc/config"
	"github.com/DataDog/netmet-geoloc/log"
	"github.com/DataDog/netmet-geoloc/result"
	"github.com/DataDog/netmet-geoloc/store"
)

// MeasurementRef describes a measurement scheduled by Schedule.
type MeasurementRef struct {
	ID        int                   `json:"id"`
	Type      atlas.MeasurementType `json:"type"`
	Target    string                `json:"target"`
	ProbeIDs  []int                 `json:"probe_ids"`
	RunID     string                `json:"run_id"`
	CreatedAt time.Time             `json:"created_at"`
}

// Runner runs campaign steps against the platform and the store.
type Runner struct {
	api   atlas.API
	store store.Store
	cfg   config.Config
	now   func() time.Time
}

// NewRunner returns a runner. cfg supplies the propagation model and the
// number of workers.
func NewRunner(api atlas.API, st store.Store, cfg config.Config) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Runner{api: api, store: st, cfg: cfg, now: time.Now}
}

// listProbes lists the probes of each country concurrently. No country lists
// every probe.
func (r *Runner) listProbes(ctx context.Context, countries []string, anchorsOnly bool) ([]atlas.Probe, error) {
	if len(countries) == 0 {
		countries = []string{""}
	}
	var mu sync.Mutex
	byID := make(map[int]atlas.Probe)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for _, country := range countries {
		g.Go(func() error {
			probes, err := r.api.ListProbes(gctx, atlas.ProbeFilter{CountryCode: country, AnchorsOnly: anchorsOnly})
			if err != nil {
				return fmt.Errorf("list probes of %q: %w", country, err)
			}
			mu.Lock()
			for _, p := range probes {
				byID[p.ID] = p
			}
			mu.Unlock()
			log.Infof("campaign: %d probes in %q", len(probes), country)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	probes := make([]atlas.Probe, 0, len(byID))
	for _, p := range byID {
		probes = append(probes, p)
	}
	sort.Slice(probes, func(i, j int) bool { return probes[i].ID < probes[j].ID })
	return probes, nil
}

// DiscoverVantagePoints lists the connected IPv4 probes of countries and
// saves the located ones as the vantage point dataset.
func (r *Runner) DiscoverVantagePoints(ctx context.Context, countries []string) ([]result.VantagePoint, error) {
	probes, err := r.listProbes(ctx, countries, false)
	if err != nil {
		return nil, err
	}
	vps := atlas.VantagePoints(probes)
	if len(vps) == 0 {
		return nil, fmt.Errorf("no located probe in %v: %w", countries, result.ErrNoData)
	}
	if err := r.store.Save(ctx, store.VantagePoints, vps); err != nil {
		return nil, err
	}
	return vps, nil
}

// DiscoverTargets uses the anchors of countries as targets. Anchors have a
// surveyed location, saved as the ground truth dataset.
func (r *Runner) DiscoverTargets(ctx context.Context, countries []string) ([]result.Target, error) {
	probes, err := r.listProbes(ctx, countries, true)
	if err != nil {
		return nil, err
	}
	var targets []result.Target
	var truth []result.GroundTruth
	for _, p := range probes {
		if p.AddressV4 == "" {
			continue
		}
		pt, err := p.Point()
		if err != nil {
			log.Debugf("campaign: anchor %d: %s", p.ID, err)
			continue
		}
		targets = append(targets, result.Target{Address: p.AddressV4, Truth: &pt})
		truth = append(truth, result.GroundTruth{Address: p.AddressV4, Point: pt})
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no anchor in %v: %w", countries, result.ErrNoData)
	}
	if err := r.store.Save(ctx, store.Targets, targets); err != nil {
		return nil, err
	}
	if err := r.store.Save(ctx, store.GroundTruth, truth); err != nil {
		return nil, err
	}
	return targets, nil
}

// Schedule creates one measurement of kind per target from probeIDs and
// appends each to the measurement dataset. Creation is sequential; on error
// the measurements already created are returned with it.
func (r *Runner) Schedule(ctx context.Context, kind atlas.MeasurementType, targets []string, probeIDs []int) ([]MeasurementRef, error) {
	if len(targets) == 0 {
		return nil, &atlas.InvalidRequestError{Reason: "no target"}
	}
	runID := result.NewRunID()
	var refs []MeasurementRef
	for _, target := range targets {
		req, err := atlas.NewRequest(kind, target, probeIDs)
		if err != nil {
			return refs, err
		}
		ids, err := r.api.CreateMeasurement(ctx, req)
		if err != nil {
			return refs, fmt.Errorf("schedule %s towards %s: %w", kind, target, err)
		}
		for _, id := range ids {
			ref := MeasurementRef{
				ID:        id,
				Type:      kind,
				Target:    target,
				ProbeIDs:  probeIDs,
				RunID:     runID,
				CreatedAt: r.now().UTC(),
			}
			if err := r.store.Append(ctx, store.Measurements, ref); err != nil {
				return refs, err
			}
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

// Measurements returns the scheduled measurements of kind, every kind when
// empty.
func (r *Runner) Measurements(ctx context.Context, kind atlas.MeasurementType) ([]MeasurementRef, error) {
	var refs []MeasurementRef
	if err := r.store.Load(ctx, store.Measurements, &refs); err != nil {
		return nil, err
	}
	if kind == "" {
		return refs, nil
	}
	var out []MeasurementRef
	for _, ref := range refs {
		if ref.Type == kind {
			out = append(out, ref)
		}
	}
	return out, nil
}

// VantagePoints loads the vantage point table.
func (r *Runner) VantagePoints(ctx context.Context) (result.VantagePoints, error) {
	var vps []result.VantagePoint
	if err := r.store.Load(ctx, store.VantagePoints, &vps); err != nil {
		return nil, err
	}
	return result.NewVantagePoints(vps), nil
}

// Targets loads the target dataset written by DiscoverTargets.
func (r *Runner) Targets(ctx context.Context) ([]result.Target, error) {
	var targets []result.Target
	if err := r.store.Load(ctx, store.Targets, &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// GroundTruth loads the known target locations.
func (r *Runner) GroundTruth(ctx context.Context) ([]result.GroundTruth, error) {
	var truth []result.GroundTruth
	if err := r.store.Load(ctx, store.GroundTruth, &truth); err != nil {
		return nil, err
	}
	return truth, nil
}

// Observations loads the minimum RTT dataset.
func (r *Runner) Observations(ctx context.Context) ([]result.RttObservation, error) {
	var obs []result.RttObservation
	err := r.store.Load(ctx, store.Observations, &obs)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: run collect first", err)
	}
	if err != nil {
		return nil, err
	}
	return obs, nil
}
