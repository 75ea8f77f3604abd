// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package geolocation runs the estimators over a batch of targets and
// classifies their failures.
package geolocation

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/DataDog/netmet-geoloc/anycast"
	"github.com/DataDog/netmet-geoloc/cbg"
	"github.com/DataDog/netmet-geoloc/common"
	"github.com/DataDog/netmet-geoloc/evaluation"
	"github.com/DataDog/netmet-geoloc/geo"
	"github.com/DataDog/netmet-geoloc/log"
	"github.com/DataDog/netmet-geoloc/result"
	"github.com/DataDog/netmet-geoloc/rtt"
	"github.com/DataDog/netmet-geoloc/shortestping"
)

// Locator estimates target locations with one method.
type Locator struct {
	Method  result.Method
	Model   geo.PropagationModel
	Solver  cbg.Solver
	Workers int
}

// NewLocator validates its parameters. Workers below one use the default.
func NewLocator(method result.Method, model geo.PropagationModel, workers int) (*Locator, error) {
	switch method {
	case result.MethodShortestPing, result.MethodCBG:
	default:
		return nil, &InvalidRequestError{Err: fmt.Errorf("unknown method %q", method)}
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = common.DefaultWorkers
	}
	return &Locator{Method: method, Model: model, Solver: cbg.DefaultSolver, Workers: workers}, nil
}

// ParseMethod accepts the method names and the short form "sp".
func ParseMethod(s string) (result.Method, error) {
	switch s {
	case string(result.MethodShortestPing), "sp", "shortest-ping":
		return result.MethodShortestPing, nil
	case string(result.MethodCBG):
		return result.MethodCBG, nil
	}
	return "", &InvalidRequestError{Err: fmt.Errorf("unknown method %q (expected shortest_ping or cbg)", s)}
}

func (l *Locator) estimate(target string, observations []result.RttObservation, vps result.VantagePoints) (result.GeolocationEstimate, error) {
	if l.Method == result.MethodShortestPing {
		return shortestping.EstimateTarget(target, observations, vps)
	}
	return l.Solver.EstimateTarget(target, observations, vps, l.Model)
}

type outcome struct {
	estimate result.GeolocationEstimate
	err      error
}

// Locate estimates every target present in observations, one target per
// worker. Targets that cannot be estimated are listed in Skipped; when none
// can the error wraps result.ErrNoData.
func (l *Locator) Locate(ctx context.Context, observations []result.RttObservation, vps result.VantagePoints) (*result.Estimation, error) {
	byTarget := rtt.ByTarget(observations)
	targets := make([]string, 0, len(byTarget))
	for t := range byTarget {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	workers := l.Workers
	if workers < 1 {
		workers = 1
	}
	outcomes := make([]outcome, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, target := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			estimate, err := l.estimate(target, byTarget[target], vps)
			outcomes[i] = outcome{estimate: estimate, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	estimation := result.NewEstimation(l.Method)
	var causes []error
	for i, target := range targets {
		if err := outcomes[i].err; err != nil {
			log.Warnf("%s: skipping %s: %s", l.Method, target, err)
			estimation.Skip(target, err)
			causes = append(causes, err)
			continue
		}
		estimation.Estimates[target] = outcomes[i].estimate
	}
	if len(estimation.Estimates) == 0 {
		return estimation, result.NoDataError(causes...)
	}
	log.Infof("%s: located %d targets, skipped %d", l.Method, len(estimation.Estimates), len(estimation.Skipped))
	return estimation, nil
}

// LocateRecords reduces raw ping records to minimum RTTs and locates them.
func (l *Locator) LocateRecords(ctx context.Context, records []result.MeasurementRecord, vps result.VantagePoints) (*result.Estimation, error) {
	return l.Locate(ctx, rtt.MinRTTs(records), vps)
}

// AnycastReport lists the targets whose latencies contradict a single
// location, with the strongest evidence for each.
type AnycastReport struct {
	Flagged    []string                     `json:"flagged"`
	Violations map[string]anycast.Violation `json:"violations"`
	// ComparedPairs is the number of vantage point pairs tested.
	ComparedPairs int `json:"compared_pairs"`
}

// DetectAnycast flags targets for which two vantage points are closer to the
// target, according to their RTTs, than to each other. When no pair of known
// vantage points observed a common target the error wraps result.ErrNoData.
func (l *Locator) DetectAnycast(observations []result.RttObservation, vps result.VantagePoints) (AnycastReport, error) {
	violations, compared := anycast.Detect(
		anycast.DistanceEstimates(observations, l.Model),
		anycast.InterVantagePointDistances(vps),
	)
	if compared == 0 {
		return AnycastReport{}, result.NoDataError(fmt.Errorf(
			"no pair of known vantage points observed a common target among %d observations", len(observations)))
	}
	flagged := anycast.Flagged(violations)
	if flagged == nil {
		flagged = []string{}
	}
	log.Infof("anycast: %d targets flagged out of %d vantage point pairs", len(flagged), compared)
	return AnycastReport{Flagged: flagged, Violations: violations, ComparedPairs: compared}, nil
}

// Compare runs both methods on the same observations and evaluates them
// against truth. A method that produced no usable estimate is left out of the
// reports; the call fails only when both did.
func Compare(ctx context.Context, observations []result.RttObservation, vps result.VantagePoints, truth []result.GroundTruth, model geo.PropagationModel, workers int) (map[result.Method]*evaluation.Report, error) {
	reports := make(map[result.Method]*evaluation.Report)
	var causes []error
	for _, method := range []result.Method{result.MethodShortestPing, result.MethodCBG} {
		locator, err := NewLocator(method, model, workers)
		if err != nil {
			return nil, err
		}
		estimation, err := locator.Locate(ctx, observations, vps)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			causes = append(causes, fmt.Errorf("%s: %w", method, err))
			continue
		}
		report, err := evaluation.Evaluate(estimation.Estimates, truth)
		if err != nil {
			causes = append(causes, fmt.Errorf("%s: %w", method, err))
			continue
		}
		report.Method = method
		reports[method] = report
	}
	if len(reports) == 0 {
		return nil, result.NoDataError(causes...)
	}
	return reports, nil
}
