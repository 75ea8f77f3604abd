// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package evaluation measures how far estimates land from the ground truth.
package evaluation

import (
	"sort"

	"github.com/DataDog/netmet-geoloc/geo"
	"github.com/DataDog/netmet-geoloc/log"
	"github.com/DataDog/netmet-geoloc/result"
)

// Report is the outcome of evaluating one estimation run.
type Report struct {
	Method    result.Method        `json:"method,omitempty"`
	Errors    []result.ErrorRecord `json:"errors"`
	Unmatched []string             `json:"unmatched,omitempty"`
	MedianKm  float64              `json:"median_km"`
}

// TruthIndex maps target address to its true location.
type TruthIndex map[string]geo.Point

// NewTruthIndex indexes ground truth records by address.
func NewTruthIndex(truth []result.GroundTruth) TruthIndex {
	index := make(TruthIndex, len(truth))
	for _, gt := range truth {
		index[gt.Address] = gt.Point
	}
	return index
}

// ErrorFor returns the great-circle error of one estimate.
func (t TruthIndex) ErrorFor(estimate result.GeolocationEstimate) (result.ErrorRecord, error) {
	truth, ok := t[estimate.TargetAddress]
	if !ok {
		return result.ErrorRecord{}, &result.UnmatchedGroundTruthError{Target: estimate.TargetAddress}
	}
	return result.ErrorRecord{
		TargetAddress: estimate.TargetAddress,
		ErrorKm:       geo.Distance(estimate.Point, truth),
	}, nil
}

// Evaluate computes the error of every estimate with a ground truth record.
// Estimates without one are excluded from the errors and the median and
// listed in Unmatched. When nothing matches the error wraps result.ErrNoData.
func Evaluate(estimates map[string]result.GeolocationEstimate, truth []result.GroundTruth) (*Report, error) {
	index := NewTruthIndex(truth)

	targets := make([]string, 0, len(estimates))
	for t := range estimates {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	report := &Report{Errors: []result.ErrorRecord{}}
	var causes []error
	for _, target := range targets {
		estimate := estimates[target]
		if estimate.TargetAddress == "" {
			estimate.TargetAddress = target
		}
		if report.Method == "" {
			report.Method = estimate.Method
		}
		record, err := index.ErrorFor(estimate)
		if err != nil {
			log.Warnf("evaluation: %s", err)
			report.Unmatched = append(report.Unmatched, target)
			causes = append(causes, err)
			continue
		}
		report.Errors = append(report.Errors, record)
	}

	median, err := Median(report.Errors)
	if err != nil {
		return report, result.NoDataError(causes...)
	}
	report.MedianKm = median
	log.Infof("evaluated %d targets (%d unmatched), median error %.1f km", len(report.Errors), len(report.Unmatched), median)
	return report, nil
}

// Median returns the median error distance. An even count averages the two
// middle values.
func Median(records []result.ErrorRecord) (float64, error) {
	if len(records) == 0 {
		return 0, result.ErrNoData
	}
	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.ErrorKm
	}
	sort.Float64s(values)

	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid], nil
	}
	return (values[mid-1] + values[mid]) / 2, nil
}
