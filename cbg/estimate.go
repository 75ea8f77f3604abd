// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package cbg

import (
	"errors"
	"fmt"
	"sort"

	"github.com/DataDog/netmet-geoloc/geo"
	"github.com/DataDog/netmet-geoloc/log"
	"github.com/DataDog/netmet-geoloc/result"
)

// ConstraintsFor converts observations into distance constraints with the
// given propagation model. Observations from vantage points missing in vps
// are dropped and reported in the returned slice of errors.
func ConstraintsFor(observations []result.RttObservation, vps result.VantagePoints, model geo.PropagationModel) ([]Constraint, []error) {
	constraints := make([]Constraint, 0, len(observations))
	var dropped []error
	for _, o := range observations {
		center, ok := vps.Coordinates(o.VantagePointID)
		if !ok {
			dropped = append(dropped, &result.UnknownVantagePointError{ID: o.VantagePointID})
			continue
		}
		constraints = append(constraints, Constraint{
			VantagePointID: o.VantagePointID,
			Center:         center,
			BoundKm:        model.RTTToKm(o.MinRTTMs),
		})
	}
	return constraints, dropped
}

// EstimateTarget geolocates one target from its observations.
func (s Solver) EstimateTarget(target string, observations []result.RttObservation, vps result.VantagePoints, model geo.PropagationModel) (result.GeolocationEstimate, error) {
	constraints, dropped := ConstraintsFor(observations, vps, model)
	for _, err := range dropped {
		log.Warnf("target %s: dropping observation from %s", target, err)
	}

	point, err := s.Solve(constraints)
	if errors.Is(err, ErrNoConstraints) {
		return result.GeolocationEstimate{}, &result.MissingDataError{Target: target}
	}
	if err != nil {
		return result.GeolocationEstimate{}, fmt.Errorf("target %s: %w", target, err)
	}
	if len(constraints) == 1 {
		log.Debugf("target %s: single constraint, using vantage point %d location", target, constraints[0].VantagePointID)
	}

	return result.GeolocationEstimate{
		TargetAddress: target,
		Point:         point,
		Method:        result.MethodCBG,
	}, nil
}

// Estimate runs EstimateTarget on every target sequentially. Targets that
// cannot be located are listed in Skipped; an empty result wraps
// result.ErrNoData.
func (s Solver) Estimate(observationsByTarget map[string][]result.RttObservation, vps result.VantagePoints, model geo.PropagationModel) (*result.Estimation, error) {
	estimation := result.NewEstimation(result.MethodCBG)

	targets := make([]string, 0, len(observationsByTarget))
	for t := range observationsByTarget {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	var causes []error
	for _, target := range targets {
		estimate, err := s.EstimateTarget(target, observationsByTarget[target], vps, model)
		if err != nil {
			log.Debugf("cbg: %s", err)
			estimation.Skip(target, err)
			causes = append(causes, err)
			continue
		}
		estimation.Estimates[target] = estimate
	}

	if len(estimation.Estimates) == 0 {
		return estimation, result.NoDataError(causes...)
	}
	log.Infof("cbg located %d/%d targets", len(estimation.Estimates), len(targets))
	return estimation, nil
}
