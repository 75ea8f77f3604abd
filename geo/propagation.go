// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package geo

import (
	"fmt"
	"math"
)

const (
	// SpeedOfLightKmPerMs is the speed of light in vacuum.
	SpeedOfLightKmPerMs = 299.792458

	// DefaultSpeedFraction is the share of c a signal keeps in fiber.
	DefaultSpeedFraction = 2.0 / 3.0

	// DefaultProcessingOverheadMs is removed from every RTT before conversion.
	DefaultProcessingOverheadMs = 0.5
)

// PropagationModel turns a round-trip latency into an upper bound on the
// one-way distance between the two endpoints.
type PropagationModel struct {
	SpeedFraction float64 `yaml:"speed_fraction" json:"speed_fraction"`
	OverheadMs    float64 `yaml:"overhead_ms" json:"overhead_ms"`
}

// DefaultModel is two thirds of c with a 0.5 ms processing overhead.
var DefaultModel = PropagationModel{
	SpeedFraction: DefaultSpeedFraction,
	OverheadMs:    DefaultProcessingOverheadMs,
}

// InvalidModelError reports a propagation model parameter out of range.
type InvalidModelError struct {
	Field string
	Value float64
	Want  string
}

func (e *InvalidModelError) Error() string {
	return fmt.Sprintf("%s must be %s, got %v", e.Field, e.Want, e.Value)
}

// Validate rejects models that could produce negative or unbounded distances.
func (m PropagationModel) Validate() error {
	if !(m.SpeedFraction > 0 && m.SpeedFraction <= 1) {
		return &InvalidModelError{Field: "speed fraction", Value: m.SpeedFraction, Want: "in (0, 1]"}
	}
	if m.OverheadMs < 0 || math.IsNaN(m.OverheadMs) {
		return &InvalidModelError{Field: "processing overhead", Value: m.OverheadMs, Want: "non-negative"}
	}
	return nil
}

// KmPerMs is the one-way distance covered per millisecond of RTT.
func (m PropagationModel) KmPerMs() float64 {
	return m.SpeedFraction * SpeedOfLightKmPerMs / 2
}

// RTTToKm returns the maximum one-way distance compatible with rttMs. The
// result is clamped at zero for RTTs below the processing overhead.
func (m PropagationModel) RTTToKm(rttMs float64) float64 {
	effective := rttMs - m.OverheadMs
	if !(effective > 0) {
		return 0
	}
	return effective * m.KmPerMs()
}

// KmToRTT is the inverse of RTTToKm for positive distances.
func (m PropagationModel) KmToRTT(km float64) float64 {
	if km <= 0 {
		return 0
	}
	return km/m.KmPerMs() + m.OverheadMs
}

// RTTToKm converts with DefaultModel.
func RTTToKm(rttMs float64) float64 {
	return DefaultModel.RTTToKm(rttMs)
}
