// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package geo holds the spherical-Earth helpers used by the estimators:
// great-circle distance, destination points and RTT to distance bounds.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by every distance computation.
const EarthRadiusKm = 6371.0

// HalfCircumferenceKm is the largest great-circle distance between two points.
const HalfCircumferenceKm = math.Pi * EarthRadiusKm

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", p.Lat, p.Lon)
}

// Valid reports whether the coordinate lies inside the usual lat/lon ranges.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lon) &&
		p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// Distance returns the haversine great-circle distance between a and b in km.
func Distance(a, b Point) float64 {
	lat1, lon1 := deg2rad(a.Lat), deg2rad(a.Lon)
	lat2, lon2 := deg2rad(b.Lat), deg2rad(b.Lon)

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h slightly outside [0, 1] for antipodal points
	h = math.Min(1, math.Max(0, h))

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceLatLon is Distance for callers holding raw coordinates.
func DistanceLatLon(lat1, lon1, lat2, lon2 float64) float64 {
	return Distance(Point{Lat: lat1, Lon: lon1}, Point{Lat: lat2, Lon: lon2})
}

// Bearing returns the initial bearing in degrees [0, 360) to go from a to b.
func Bearing(a, b Point) float64 {
	lat1, lat2 := deg2rad(a.Lat), deg2rad(b.Lat)
	dLon := deg2rad(b.Lon - a.Lon)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Mod(rad2deg(math.Atan2(y, x))+360, 360)
}

// Destination returns the point reached after travelling distanceKm from p
// along the great circle leaving p with the given initial bearing.
func Destination(p Point, bearingDeg, distanceKm float64) Point {
	lat1, lon1 := deg2rad(p.Lat), deg2rad(p.Lon)
	theta := deg2rad(bearingDeg)
	delta := distanceKm / EarthRadiusKm

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	return Point{Lat: rad2deg(lat2), Lon: normalizeLon(rad2deg(lon2))}
}

// Centroid returns the spherical mean of points: the normalized sum of their
// unit vectors projected back to lat/lon. It returns false for an empty slice
// or when the points cancel out (e.g. two antipodes).
func Centroid(points []Point) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	var x, y, z float64
	for _, p := range points {
		lat, lon := deg2rad(p.Lat), deg2rad(p.Lon)
		x += math.Cos(lat) * math.Cos(lon)
		y += math.Cos(lat) * math.Sin(lon)
		z += math.Sin(lat)
	}
	norm := math.Sqrt(x*x + y*y + z*z)
	if norm < 1e-12 {
		return Point{}, false
	}
	x, y, z = x/norm, y/norm, z/norm
	return Point{
		Lat: rad2deg(math.Asin(z)),
		Lon: rad2deg(math.Atan2(y, x)),
	}, true
}

func normalizeLon(lon float64) float64 {
	lon = math.Mod(lon+540, 360) - 180
	if lon == -180 {
		return 180
	}
	return lon
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }

func rad2deg(r float64) float64 { return r * 180 / math.Pi }
