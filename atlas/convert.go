// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package atlas

import (
	"fmt"

	"github.com/DataDog/netmet-geoloc/geo"
	"github.com/DataDog/netmet-geoloc/log"
	"github.com/DataDog/netmet-geoloc/result"
)

// Point returns the probe location. The platform lists coordinates as
// [longitude, latitude].
func (p Probe) Point() (geo.Point, error) {
	if p.Geometry == nil || len(p.Geometry.Coordinates) < 2 {
		return geo.Point{}, fmt.Errorf("probe %d has no coordinates", p.ID)
	}
	pt := geo.Point{Lat: p.Geometry.Coordinates[1], Lon: p.Geometry.Coordinates[0]}
	if !pt.Valid() {
		return geo.Point{}, fmt.Errorf("probe %d has invalid coordinates %v", p.ID, p.Geometry.Coordinates)
	}
	return pt, nil
}

// VantagePoint converts a located probe.
func (p Probe) VantagePoint() (result.VantagePoint, error) {
	pt, err := p.Point()
	if err != nil {
		return result.VantagePoint{}, err
	}
	return result.VantagePoint{
		ID:          p.ID,
		Address:     p.AddressV4,
		Point:       pt,
		Connected:   p.Connected(),
		CountryCode: p.CountryCode,
		IsAnchor:    p.IsAnchor,
	}, nil
}

// VantagePoints converts probes, leaving out those without a location.
func VantagePoints(probes []Probe) []result.VantagePoint {
	vps := make([]result.VantagePoint, 0, len(probes))
	for _, p := range probes {
		vp, err := p.VantagePoint()
		if err != nil {
			log.Debugf("skipping probe: %s", err)
			continue
		}
		vps = append(vps, vp)
	}
	return vps
}

// Record converts a ping result. Lost packets become timeout samples.
func (r PingResult) Record() result.MeasurementRecord {
	record := result.MeasurementRecord{
		MeasurementID:      r.MeasurementID,
		ProbeID:            r.ProbeID,
		SourceAddress:      r.SourceAddress,
		DestinationAddress: r.DstAddress,
		Samples:            make([]result.Sample, 0, len(r.Result)),
	}
	if record.SourceAddress == "" {
		record.SourceAddress = r.From
	}
	for _, reply := range r.Result {
		switch {
		case reply.RTT != nil:
			record.Samples = append(record.Samples, result.RTT(*reply.RTT))
		case reply.Error != "":
			record.Samples = append(record.Samples, result.Sample{Error: reply.Error})
		default:
			record.Samples = append(record.Samples, result.Sample{Timeout: true})
		}
	}
	return record
}

// Records converts ping results in order.
func Records(results []PingResult) []result.MeasurementRecord {
	records := make([]result.MeasurementRecord, len(results))
	for i, r := range results {
		records[i] = r.Record()
	}
	return records
}
