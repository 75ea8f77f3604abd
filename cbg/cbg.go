// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package cbg implements Constraint-Based Geolocation: every RTT becomes a
// disk of possible locations around its vantage point and the estimate is
// the point most consistent with all disks.
package cbg

import (
	"errors"
	"fmt"
	"math"

	"github.com/DataDog/netmet-geoloc/geo"
)

// ErrNoConstraints is returned by Solve when called without any constraint.
var ErrNoConstraints = errors.New("no distance constraint")

// Constraint bounds the distance between the target and a vantage point.
type Constraint struct {
	VantagePointID int       `json:"vantage_point_id"`
	Center         geo.Point `json:"center"`
	BoundKm        float64   `json:"bound_km"`
}

// InvalidConstraintError reports a constraint that cannot describe a disk.
type InvalidConstraintError struct {
	Constraint Constraint
	Reason     string
}

func (e *InvalidConstraintError) Error() string {
	return fmt.Sprintf("invalid constraint from vantage point %d: %s", e.Constraint.VantagePointID, e.Reason)
}

func (c Constraint) validate() error {
	if math.IsNaN(c.BoundKm) || c.BoundKm < 0 {
		return &InvalidConstraintError{Constraint: c, Reason: fmt.Sprintf("bound %v km is negative", c.BoundKm)}
	}
	if !c.Center.Valid() {
		return &InvalidConstraintError{Constraint: c, Reason: fmt.Sprintf("center %v out of range", c.Center)}
	}
	return nil
}

// violation is how far p lies outside the constraint disk, negative inside.
func (c Constraint) violation(p geo.Point) float64 {
	return geo.Distance(p, c.Center) - c.BoundKm
}

// Solver holds the sampling and descent parameters.
type Solver struct {
	// Rings and Bearings define the polar sampling grid over the smallest disk.
	Rings    int
	Bearings int
	// ToleranceKm is the slack allowed when testing a sample against a bound.
	ToleranceKm float64
	// MaxIterations caps the descent used when no sample satisfies every bound.
	MaxIterations int
	// MinStepKm stops the descent line search.
	MinStepKm float64
}

// DefaultSolver samples 48 rings of 96 points and allows 0.5 km of slack.
var DefaultSolver = Solver{
	Rings:         48,
	Bearings:      96,
	ToleranceKm:   0.5,
	MaxIterations: 500,
	MinStepKm:     0.01,
}

// Solve returns the point best satisfying distance(p, c.Center) <= c.BoundKm
// for every constraint.
//
// A single constraint yields its vantage point's own coordinates. Otherwise
// the smallest disk is sampled on a polar grid: if some samples satisfy every
// bound, the result is their spherical centroid (the feasible sample closest
// to it when the centroid itself falls outside). If the intersection is empty
// or thinner than the grid, the sum of squared violations is minimised by
// gradient descent starting from the best sample.
func (s Solver) Solve(constraints []Constraint) (geo.Point, error) {
	if len(constraints) == 0 {
		return geo.Point{}, ErrNoConstraints
	}
	for _, c := range constraints {
		if err := c.validate(); err != nil {
			return geo.Point{}, err
		}
	}
	if len(constraints) == 1 {
		return constraints[0].Center, nil
	}

	smallest := constraints[0]
	for _, c := range constraints[1:] {
		if c.BoundKm < smallest.BoundKm {
			smallest = c
		}
	}
	radius := math.Min(smallest.BoundKm, geo.HalfCircumferenceKm)

	var feasible []geo.Point
	best := smallest.Center
	bestCost := squaredViolation(best, constraints)

	consider := func(p geo.Point) {
		if maxViolation(p, constraints) <= s.ToleranceKm {
			feasible = append(feasible, p)
		}
		if cost := squaredViolation(p, constraints); cost < bestCost {
			best, bestCost = p, cost
		}
	}

	consider(smallest.Center)
	if radius > 0 {
		for ring := 1; ring <= s.Rings; ring++ {
			r := radius * float64(ring) / float64(s.Rings)
			for k := 0; k < s.Bearings; k++ {
				consider(geo.Destination(smallest.Center, 360*float64(k)/float64(s.Bearings), r))
			}
		}
	}
	for _, c := range constraints {
		if cost := squaredViolation(c.Center, constraints); cost < bestCost {
			best, bestCost = c.Center, cost
		}
	}

	if len(feasible) > 0 {
		return s.feasibleCenter(feasible, constraints), nil
	}
	return s.descend(best, constraints), nil
}

func (s Solver) feasibleCenter(feasible []geo.Point, constraints []Constraint) geo.Point {
	centroid, ok := geo.Centroid(feasible)
	if ok && maxViolation(centroid, constraints) <= s.ToleranceKm {
		return centroid
	}
	if !ok {
		return feasible[0]
	}
	// large disks are not convex on the sphere, snap back inside
	nearest := feasible[0]
	nearestKm := geo.Distance(centroid, nearest)
	for _, p := range feasible[1:] {
		if d := geo.Distance(centroid, p); d < nearestKm {
			nearest, nearestKm = p, d
		}
	}
	return nearest
}

// descend runs steepest descent on the sum of squared violations. Moving
// towards a vantage point reduces its violation at unit rate, so the
// gradient is the violation-weighted sum of the unit vectors to the centers.
func (s Solver) descend(start geo.Point, constraints []Constraint) geo.Point {
	p := start
	cost := squaredViolation(p, constraints)

	for iter := 0; iter < s.MaxIterations && cost > 0; iter++ {
		var east, north float64
		for _, c := range constraints {
			v := c.violation(p)
			if v <= 0 {
				continue
			}
			theta := geo.Bearing(p, c.Center) * math.Pi / 180
			east += 2 * v * math.Sin(theta)
			north += 2 * v * math.Cos(theta)
		}
		norm := math.Hypot(east, north)
		if norm < 1e-12 {
			break
		}
		bearing := math.Mod(math.Atan2(east, north)*180/math.Pi+360, 360)

		moved := false
		for step := 2 * cost / norm; step >= s.MinStepKm; step /= 2 {
			q := geo.Destination(p, bearing, step)
			if qc := squaredViolation(q, constraints); qc < cost {
				p, cost = q, qc
				moved = true
				break
			}
		}
		if !moved {
			break
		}
	}
	return p
}

func squaredViolation(p geo.Point, constraints []Constraint) float64 {
	var sum float64
	for _, c := range constraints {
		if v := c.violation(p); v > 0 {
			sum += v * v
		}
	}
	return sum
}

func maxViolation(p geo.Point, constraints []Constraint) float64 {
	worst := math.Inf(-1)
	for _, c := range constraints {
		worst = math.Max(worst, c.violation(p))
	}
	return worst
}

// Solve runs DefaultSolver.
func Solve(constraints []Constraint) (geo.Point, error) {
	return DefaultSolver.Solve(constraints)
}
