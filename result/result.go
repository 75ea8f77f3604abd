// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package result defines the records exchanged between the measurement
// platform, the estimators and the persistence layer.
package result

import (
	"sort"

	"github.com/DataDog/netmet-geoloc/geo"
)

// Method names a geolocation technique.
type Method string

const (
	MethodShortestPing Method = "shortest_ping"
	MethodCBG          Method = "cbg"
)

type (
	// VantagePoint is a platform probe with a known location. It is always
	// identified by ID; Address is informational only since the platform may
	// report a private address for a probe whose results carry a public one.
	VantagePoint struct {
		ID          int       `json:"id"`
		Address     string    `json:"address_v4"`
		Point       geo.Point `json:"point"`
		Connected   bool      `json:"connected"`
		CountryCode string    `json:"country_code,omitempty"`
		IsAnchor    bool      `json:"is_anchor,omitempty"`
	}

	// Target is an address to geolocate, optionally with its true location.
	Target struct {
		Address string     `json:"address_v4"`
		Truth   *geo.Point `json:"truth,omitempty"`
	}

	// GroundTruth is the known location of a target address.
	GroundTruth struct {
		Address string    `json:"address_v4"`
		Point   geo.Point `json:"point"`
	}

	// Sample is one packet of a ping. RTT is nil when the packet was lost or
	// errored.
	Sample struct {
		RTT     *float64 `json:"rtt,omitempty"`
		Error   string   `json:"error,omitempty"`
		Timeout bool     `json:"timeout,omitempty"`
	}

	// MeasurementRecord is the result of one probe towards one destination.
	MeasurementRecord struct {
		MeasurementID      int      `json:"msm_id,omitempty"`
		ProbeID            int      `json:"prb_id"`
		SourceAddress      string   `json:"src_addr"`
		DestinationAddress string   `json:"dst_addr"`
		Samples            []Sample `json:"samples"`
	}

	// RttObservation is the minimum RTT seen from a vantage point to a target.
	RttObservation struct {
		VantagePointID int     `json:"vantage_point_id"`
		TargetAddress  string  `json:"target_address"`
		MinRTTMs       float64 `json:"min_rtt_ms"`
	}

	// GeolocationEstimate is the location an estimator assigned to a target.
	GeolocationEstimate struct {
		TargetAddress string    `json:"target_address"`
		Point         geo.Point `json:"point"`
		Method        Method    `json:"method"`
		// VantagePointID is set by shortest ping only.
		VantagePointID int `json:"vantage_point_id,omitempty"`
	}

	// ErrorRecord is the distance between an estimate and the ground truth.
	ErrorRecord struct {
		TargetAddress string  `json:"target_address"`
		ErrorKm       float64 `json:"error_km"`
	}

	// Estimation is the output of one estimation run over a batch of targets.
	Estimation struct {
		RunID     string                         `json:"run_id"`
		Method    Method                         `json:"method"`
		Estimates map[string]GeolocationEstimate `json:"estimates"`
		// Skipped lists targets omitted from Estimates and why.
		Skipped map[string]string `json:"skipped,omitempty"`
	}
)

// RTT returns a sample pointer for tests and literal construction.
func RTT(ms float64) Sample {
	return Sample{RTT: &ms}
}

// Valid reports whether the sample carries a usable RTT.
func (s Sample) Valid() bool {
	return s.RTT != nil && *s.RTT >= 0
}

// NewEstimation returns an empty Estimation with a fresh run id.
func NewEstimation(method Method) *Estimation {
	return &Estimation{
		RunID:     NewRunID(),
		Method:    method,
		Estimates: make(map[string]GeolocationEstimate),
		Skipped:   make(map[string]string),
	}
}

// Skip records why a target produced no estimate.
func (e *Estimation) Skip(target string, err error) {
	if e.Skipped == nil {
		e.Skipped = make(map[string]string)
	}
	e.Skipped[target] = err.Error()
}

// Targets returns the estimated target addresses in lexical order.
func (e *Estimation) Targets() []string {
	targets := make([]string, 0, len(e.Estimates))
	for t := range e.Estimates {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// VantagePoints indexes vantage points by probe id.
type VantagePoints map[int]VantagePoint

// NewVantagePoints builds the table, the last record winning on duplicates.
func NewVantagePoints(vps []VantagePoint) VantagePoints {
	table := make(VantagePoints, len(vps))
	for _, vp := range vps {
		table[vp.ID] = vp
	}
	return table
}

// Coordinates returns the location of probe id.
func (t VantagePoints) Coordinates(id int) (geo.Point, bool) {
	vp, ok := t[id]
	if !ok {
		return geo.Point{}, false
	}
	return vp.Point, true
}

// Sorted returns the vantage points ordered by id.
func (t VantagePoints) Sorted() []VantagePoint {
	vps := make([]VantagePoint, 0, len(t))
	for _, vp := range t {
		vps = append(vps, vp)
	}
	sort.Slice(vps, func(i, j int) bool { return vps[i].ID < vps[j].ID })
	return vps
}

// IDs returns the probe ids in ascending order.
func (t VantagePoints) IDs() []int {
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
