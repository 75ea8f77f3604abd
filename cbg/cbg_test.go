// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package cbg

import (
	"errors"
	"math"
	"testing"

	"github.com/DataDog/netmet-geoloc/geo"
	"github.com/DataDog/netmet-geoloc/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lyon = geo.Point{Lat: 45.7640, Lon: 4.8357}

// constraintsAround places vantage points around truth and derives their
// bounds from the true distance through slack.
func constraintsAround(truth geo.Point, slack func(km float64) float64) []Constraint {
	placements := []struct {
		bearing, km float64
	}{
		{0, 300},
		{120, 250},
		{240, 400},
	}
	var constraints []Constraint
	for i, pl := range placements {
		center := geo.Destination(truth, pl.bearing, pl.km)
		constraints = append(constraints, Constraint{
			VantagePointID: i + 1,
			Center:         center,
			BoundKm:        slack(geo.Distance(truth, center)),
		})
	}
	return constraints
}

func TestSolveNoConstraints(t *testing.T) {
	_, err := Solve(nil)
	assert.ErrorIs(t, err, ErrNoConstraints)
}

func TestSolveInvalidConstraint(t *testing.T) {
	tests := []struct {
		name string
		c    Constraint
	}{
		{name: "negative bound", c: Constraint{VantagePointID: 1, Center: lyon, BoundKm: -1}},
		{name: "nan bound", c: Constraint{VantagePointID: 1, Center: lyon, BoundKm: math.NaN()}},
		{name: "bad center", c: Constraint{VantagePointID: 1, Center: geo.Point{Lat: 120}, BoundKm: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Solve([]Constraint{tt.c, {VantagePointID: 2, Center: lyon, BoundKm: 5}})
			var invalid *InvalidConstraintError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, 1, invalid.Constraint.VantagePointID)
		})
	}
}

func TestSolveSingleConstraint(t *testing.T) {
	for _, bound := range []float64{0, 12, 5000} {
		c := Constraint{VantagePointID: 1, Center: lyon, BoundKm: bound}
		got, err := Solve([]Constraint{c})
		require.NoError(t, err)
		assert.Equal(t, lyon, got)
		assert.LessOrEqual(t, geo.Distance(got, c.Center), c.BoundKm+1e-9)
	}
}

func TestSolveConsistentConstraints(t *testing.T) {
	tests := []struct {
		name     string
		truth    geo.Point
		slack    func(float64) float64
		maxErrKm float64
	}{
		{name: "loose bounds", truth: lyon, slack: func(km float64) float64 { return km + 20 }, maxErrKm: 50},
		{name: "exact bounds", truth: lyon, slack: func(km float64) float64 { return km }, maxErrKm: 10},
		{name: "southern hemisphere", truth: geo.Point{Lat: -33.87, Lon: 151.21}, slack: func(km float64) float64 { return km * 1.05 }, maxErrKm: 50},
		{name: "across the antimeridian", truth: geo.Point{Lat: 10, Lon: 179.9}, slack: func(km float64) float64 { return km + 10 }, maxErrKm: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			constraints := constraintsAround(tt.truth, tt.slack)
			got, err := Solve(constraints)
			require.NoError(t, err)
			assert.Less(t, geo.Distance(got, tt.truth), tt.maxErrKm, "estimate %v", got)
			for _, c := range constraints {
				assert.LessOrEqual(t, geo.Distance(got, c.Center), c.BoundKm+DefaultSolver.ToleranceKm+1)
			}
		})
	}
}

func TestSolveInconsistentConstraints(t *testing.T) {
	// bounds shorter than the real distances: the intersection is empty
	constraints := constraintsAround(lyon, func(km float64) float64 { return km * 0.8 })

	got, err := Solve(constraints)
	require.NoError(t, err)
	require.True(t, got.Valid())

	cost := squaredViolation(got, constraints)
	for _, c := range constraints {
		assert.LessOrEqual(t, cost, squaredViolation(c.Center, constraints))
	}
	assert.Less(t, cost, squaredViolation(lyon, constraints)+1e-6)
}

func TestSolveZeroBoundDisk(t *testing.T) {
	paris := geo.Point{Lat: 48.8566, Lon: 2.3522}
	constraints := []Constraint{
		{VantagePointID: 1, Center: paris, BoundKm: 0},
		{VantagePointID: 2, Center: lyon, BoundKm: 600},
	}
	got, err := Solve(constraints)
	require.NoError(t, err)
	assert.Less(t, geo.Distance(got, paris), 1.0)
}

func TestSolveWorldScaleBounds(t *testing.T) {
	constraints := []Constraint{
		{VantagePointID: 1, Center: geo.Point{Lat: 0, Lon: 0}, BoundKm: 30000},
		{VantagePointID: 2, Center: geo.Point{Lat: 10, Lon: 10}, BoundKm: 25000},
	}
	got, err := Solve(constraints)
	require.NoError(t, err)
	assert.True(t, got.Valid())
}

func TestConstraintsFor(t *testing.T) {
	vps := result.NewVantagePoints([]result.VantagePoint{
		{ID: 1, Point: lyon},
	})
	obs := []result.RttObservation{
		{VantagePointID: 1, TargetAddress: "t", MinRTTMs: 10.5},
		{VantagePointID: 9, TargetAddress: "t", MinRTTMs: 3},
	}
	constraints, dropped := ConstraintsFor(obs, vps, geo.DefaultModel)
	require.Len(t, constraints, 1)
	assert.Equal(t, lyon, constraints[0].Center)
	assert.InDelta(t, geo.RTTToKm(10.5), constraints[0].BoundKm, 1e-9)
	require.Len(t, dropped, 1)
	var unknown *result.UnknownVantagePointError
	require.True(t, errors.As(dropped[0], &unknown))
	assert.Equal(t, 9, unknown.ID)
}

func TestEstimate(t *testing.T) {
	model := geo.DefaultModel
	var vpList []result.VantagePoint
	var obs []result.RttObservation
	for _, c := range constraintsAround(lyon, func(km float64) float64 { return km }) {
		vpList = append(vpList, result.VantagePoint{ID: c.VantagePointID, Point: c.Center})
		// RTT that converts back to 1.1 times the true distance
		obs = append(obs, result.RttObservation{
			VantagePointID: c.VantagePointID,
			TargetAddress:  "192.0.2.10",
			MinRTTMs:       model.KmToRTT(c.BoundKm * 1.1),
		})
	}
	vps := result.NewVantagePoints(vpList)

	estimation, err := DefaultSolver.Estimate(map[string][]result.RttObservation{
		"192.0.2.10": obs,
		"192.0.2.20": {{VantagePointID: 77, TargetAddress: "192.0.2.20", MinRTTMs: 4}},
	}, vps, model)
	require.NoError(t, err)

	require.Contains(t, estimation.Estimates, "192.0.2.10")
	estimate := estimation.Estimates["192.0.2.10"]
	assert.Equal(t, result.MethodCBG, estimate.Method)
	assert.Less(t, geo.Distance(estimate.Point, lyon), 100.0)

	assert.Contains(t, estimation.Skipped, "192.0.2.20")
}

func TestEstimateNoData(t *testing.T) {
	_, err := DefaultSolver.Estimate(map[string][]result.RttObservation{"a": {}}, result.VantagePoints{}, geo.DefaultModel)
	assert.ErrorIs(t, err, result.ErrNoData)
	var missing *result.MissingDataError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "a", missing.Target)
}
