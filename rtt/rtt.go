// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package rtt reduces raw ping records to one minimum RTT per vantage point
// and target.
package rtt

import (
	"github.com/DataDog/netmet-geoloc/log"
	"github.com/DataDog/netmet-geoloc/result"
)

type pairKey struct {
	probeID int
	target  string
}

// MinRTTs returns, for every (probe id, destination) pair present in records,
// the smallest valid RTT over all samples of all records for that pair.
// Pairs without any valid sample are left out. Output order follows the first
// appearance of each pair.
func MinRTTs(records []result.MeasurementRecord) []result.RttObservation {
	index := make(map[pairKey]int)
	var observations []result.RttObservation

	for _, record := range records {
		if record.ProbeID == 0 {
			log.Debugf("skipping record from %s to %s without probe id", record.SourceAddress, record.DestinationAddress)
			continue
		}
		minRTT, ok := MinSample(record.Samples)
		if !ok {
			continue
		}

		key := pairKey{probeID: record.ProbeID, target: record.DestinationAddress}
		if i, seen := index[key]; seen {
			if minRTT < observations[i].MinRTTMs {
				observations[i].MinRTTMs = minRTT
			}
			continue
		}
		index[key] = len(observations)
		observations = append(observations, result.RttObservation{
			VantagePointID: record.ProbeID,
			TargetAddress:  record.DestinationAddress,
			MinRTTMs:       minRTT,
		})
	}

	log.Debugf("aggregated %d records into %d observations", len(records), len(observations))
	return observations
}

// MinSample returns the smallest valid RTT among samples.
func MinSample(samples []result.Sample) (float64, bool) {
	var best float64
	found := false
	for _, s := range samples {
		if !s.Valid() {
			continue
		}
		if !found || *s.RTT < best {
			best = *s.RTT
			found = true
		}
	}
	return best, found
}

// ByTarget groups observations per target address, keeping input order
// inside each group.
func ByTarget(observations []result.RttObservation) map[string][]result.RttObservation {
	grouped := make(map[string][]result.RttObservation)
	for _, o := range observations {
		grouped[o.TargetAddress] = append(grouped[o.TargetAddress], o)
	}
	return grouped
}
