// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package campaign

import (
	"context"

	"github.com/DataDog/netmet-geoloc/evaluation"
	"github.com/DataDog/netmet-geoloc/geolocation"
	"github.com/DataDog/netmet-geoloc/result"
	"github.com/DataDog/netmet-geoloc/store"
)

// Geolocate locates every target of the observation dataset with method and
// saves the estimation.
func (r *Runner) Geolocate(ctx context.Context, method result.Method) (*result.Estimation, error) {
	locator, err := geolocation.NewLocator(method, r.cfg.Propagation, r.cfg.Workers)
	if err != nil {
		return nil, err
	}
	obs, err := r.Observations(ctx)
	if err != nil {
		return nil, err
	}
	vps, err := r.VantagePoints(ctx)
	if err != nil {
		return nil, err
	}
	estimation, err := locator.Locate(ctx, obs, vps)
	if err != nil {
		return nil, err
	}
	if err := r.store.Save(ctx, store.EstimationName(string(method)), estimation); err != nil {
		return nil, err
	}
	return estimation, nil
}

// DetectAnycast flags the targets of the observation dataset whose RTTs
// contradict a single location and saves the report. Nothing is saved when
// no pair of vantage points could be tested.
func (r *Runner) DetectAnycast(ctx context.Context) (*geolocation.AnycastReport, error) {
	locator, err := geolocation.NewLocator(result.MethodShortestPing, r.cfg.Propagation, r.cfg.Workers)
	if err != nil {
		return nil, err
	}
	obs, err := r.Observations(ctx)
	if err != nil {
		return nil, err
	}
	vps, err := r.VantagePoints(ctx)
	if err != nil {
		return nil, err
	}
	report, err := locator.DetectAnycast(obs, vps)
	if err != nil {
		return nil, err
	}
	if err := r.store.Save(ctx, store.AnycastReport, report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Evaluate runs both methods over the observation dataset, measures their
// error against the ground truth dataset and saves the reports.
func (r *Runner) Evaluate(ctx context.Context) (map[result.Method]*evaluation.Report, error) {
	obs, err := r.Observations(ctx)
	if err != nil {
		return nil, err
	}
	vps, err := r.VantagePoints(ctx)
	if err != nil {
		return nil, err
	}
	truth, err := r.GroundTruth(ctx)
	if err != nil {
		return nil, err
	}
	reports, err := geolocation.Compare(ctx, obs, vps, truth, r.cfg.Propagation, r.cfg.Workers)
	if err != nil {
		return nil, err
	}
	if err := r.store.Save(ctx, store.Evaluations, reports); err != nil {
		return nil, err
	}
	return reports, nil
}
