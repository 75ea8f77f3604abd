// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package shortestping locates a target at the vantage point that observed
// the lowest RTT towards it.
package shortestping

import (
	"sort"

	"github.com/DataDog/netmet-geoloc/log"
	"github.com/DataDog/netmet-geoloc/result"
)

// EstimateTarget returns the coordinates of the vantage point with the
// minimum RTT to target. Observations whose vantage point is missing from vps
// are dropped first; on equal RTTs the first observation wins.
func EstimateTarget(target string, observations []result.RttObservation, vps result.VantagePoints) (result.GeolocationEstimate, error) {
	var best *result.RttObservation
	for i := range observations {
		o := &observations[i]
		if _, ok := vps[o.VantagePointID]; !ok {
			log.Warnf("target %s: dropping observation from %s", target, &result.UnknownVantagePointError{ID: o.VantagePointID})
			continue
		}
		if best == nil || o.MinRTTMs < best.MinRTTMs {
			best = o
		}
	}
	if best == nil {
		return result.GeolocationEstimate{}, &result.MissingDataError{Target: target}
	}

	log.Tracef("target %s: closest vantage point %d at %.3f ms", target, best.VantagePointID, best.MinRTTMs)
	return result.GeolocationEstimate{
		TargetAddress:  target,
		Point:          vps[best.VantagePointID].Point,
		Method:         result.MethodShortestPing,
		VantagePointID: best.VantagePointID,
	}, nil
}

// Estimate runs EstimateTarget for every target. Targets without a usable
// observation are listed in Skipped; if none is left the error wraps
// result.ErrNoData.
func Estimate(observationsByTarget map[string][]result.RttObservation, vps result.VantagePoints) (*result.Estimation, error) {
	estimation := result.NewEstimation(result.MethodShortestPing)

	targets := make([]string, 0, len(observationsByTarget))
	for t := range observationsByTarget {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	var causes []error
	for _, target := range targets {
		estimate, err := EstimateTarget(target, observationsByTarget[target], vps)
		if err != nil {
			log.Debugf("shortest ping: %s", err)
			estimation.Skip(target, err)
			causes = append(causes, err)
			continue
		}
		estimation.Estimates[target] = estimate
	}

	if len(estimation.Estimates) == 0 {
		return estimation, result.NoDataError(causes...)
	}
	log.Infof("shortest ping located %d/%d targets", len(estimation.Estimates), len(targets))
	return estimation, nil
}
