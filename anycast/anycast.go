// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package anycast flags addresses whose RTTs are only explainable by several
// instances: a single host cannot be within dA of A and dB of B when
// dA + dB is smaller than the distance between A and B.
package anycast

import (
	"sort"

	"github.com/DataDog/netmet-geoloc/geo"
	"github.com/DataDog/netmet-geoloc/log"
	"github.com/DataDog/netmet-geoloc/result"
)

// DistanceEstimate is the maximum distance from a vantage point to a target.
type DistanceEstimate struct {
	VantagePointID int     `json:"vantage_point_id"`
	DistanceKm     float64 `json:"distance_km"`
}

// Pair is an unordered pair of vantage point ids, A < B.
type Pair struct {
	A, B int
}

// NewPair orders a and b.
func NewPair(a, b int) Pair {
	if a > b {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Distances holds the great-circle distance between vantage points.
type Distances map[Pair]float64

// Lookup returns the distance between a and b in either order.
func (d Distances) Lookup(a, b int) (float64, bool) {
	km, ok := d[NewPair(a, b)]
	return km, ok
}

// InterVantagePointDistances computes the distance of every pair in vps.
func InterVantagePointDistances(vps result.VantagePoints) Distances {
	sorted := vps.Sorted()
	distances := make(Distances, len(sorted)*(len(sorted)-1)/2)
	for i, a := range sorted {
		for _, b := range sorted[i+1:] {
			distances[NewPair(a.ID, b.ID)] = geo.Distance(a.Point, b.Point)
		}
	}
	return distances
}

// DistanceEstimates converts observations into per-target distance bounds.
func DistanceEstimates(observations []result.RttObservation, model geo.PropagationModel) map[string][]DistanceEstimate {
	estimates := make(map[string][]DistanceEstimate)
	for _, o := range observations {
		estimates[o.TargetAddress] = append(estimates[o.TargetAddress], DistanceEstimate{
			VantagePointID: o.VantagePointID,
			DistanceKm:     model.RTTToKm(o.MinRTTMs),
		})
	}
	return estimates
}

// Violation is a vantage point pair proving a target is anycast.
type Violation struct {
	A                 DistanceEstimate `json:"a"`
	B                 DistanceEstimate `json:"b"`
	InterVPDistanceKm float64          `json:"inter_vp_distance_km"`
}

// MarginKm is how much the pair undershoots the inter vantage point distance.
func (v Violation) MarginKm() float64 {
	return v.InterVPDistanceKm - v.A.DistanceKm - v.B.DistanceKm
}

// Detect returns the targets for which some pair of distinct vantage points
// satisfies dist(A, target) + dist(B, target) < dist(A, B). Pairs missing
// from distances are skipped. For each flagged target the pair with the
// largest margin is kept as evidence. compared counts the pairs actually
// tested; zero means nothing could be checked.
func Detect(estimates map[string][]DistanceEstimate, distances Distances) (flagged map[string]Violation, compared int) {
	flagged = make(map[string]Violation)
	for target, perVP := range estimates {
		var (
			worst   Violation
			found   bool
			skipped int
		)
		for i, a := range perVP {
			for _, b := range perVP[i+1:] {
				if a.VantagePointID == b.VantagePointID {
					continue
				}
				interKm, ok := distances.Lookup(a.VantagePointID, b.VantagePointID)
				if !ok {
					skipped++
					continue
				}
				compared++
				if a.DistanceKm+b.DistanceKm < interKm {
					v := Violation{A: a, B: b, InterVPDistanceKm: interKm}
					if !found || v.MarginKm() > worst.MarginKm() {
						worst, found = v, true
					}
				}
			}
		}
		if skipped > 0 {
			log.Tracef("target %s: %d vantage point pairs without known distance", target, skipped)
		}
		if found {
			log.Debugf("target %s is anycast: vps %d and %d are %.0f km apart, estimates %.0f + %.0f km",
				target, worst.A.VantagePointID, worst.B.VantagePointID, worst.InterVPDistanceKm, worst.A.DistanceKm, worst.B.DistanceKm)
			flagged[target] = worst
		}
	}
	return flagged, compared
}

// Flagged returns the sorted addresses of Detect's result.
func Flagged(violations map[string]Violation) []string {
	targets := make([]string, 0, len(violations))
	for t := range violations {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}
