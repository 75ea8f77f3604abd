// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package atlas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/netmet-geoloc/geo"
	"github.com/DataDog/netmet-geoloc/result"
)

func TestProbeVantagePoint(t *testing.T) {
	tests := []struct {
		name    string
		probe   Probe
		want    result.VantagePoint
		wantErr bool
	}{
		{
			name: "coordinates are longitude first",
			probe: Probe{
				ID: 6001, AddressV4: "192.0.2.1", CountryCode: "FR", IsAnchor: true,
				Geometry: &Geometry{Type: "Point", Coordinates: []float64{2.35, 48.85}},
				Status:   Status{ID: ProbeConnected, Name: "Connected"},
			},
			want: result.VantagePoint{
				ID: 6001, Address: "192.0.2.1", CountryCode: "FR", IsAnchor: true, Connected: true,
				Point: geo.Point{Lat: 48.85, Lon: 2.35},
			},
		},
		{
			name:    "missing geometry",
			probe:   Probe{ID: 1},
			wantErr: true,
		},
		{
			name:    "out of range",
			probe:   Probe{ID: 2, Geometry: &Geometry{Coordinates: []float64{10, 95}}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.probe.VantagePoint()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVantagePointsSkipsUnlocated(t *testing.T) {
	probes := []Probe{
		{ID: 1, Geometry: &Geometry{Coordinates: []float64{1, 2}}},
		{ID: 2},
		{ID: 3, Geometry: &Geometry{Coordinates: []float64{3, 4}}},
	}
	vps := VantagePoints(probes)
	require.Len(t, vps, 2)
	assert.Equal(t, 1, vps[0].ID)
	assert.Equal(t, 3, vps[1].ID)
}

func TestPingResultRecord(t *testing.T) {
	rtt := 21.5
	r := PingResult{
		MeasurementID: 3,
		ProbeID:       12,
		SourceAddress: "10.0.0.12",
		DstAddress:    "192.0.2.1",
		Result: []PingReply{
			{RTT: &rtt},
			{Timeout: "*"},
			{Error: "no route"},
			{},
		},
	}
	record := r.Record()
	assert.Equal(t, 3, record.MeasurementID)
	assert.Equal(t, 12, record.ProbeID)
	assert.Equal(t, "192.0.2.1", record.DestinationAddress)
	require.Len(t, record.Samples, 4)
	assert.True(t, record.Samples[0].Valid())
	assert.True(t, record.Samples[1].Timeout)
	assert.Equal(t, "no route", record.Samples[2].Error)
	assert.True(t, record.Samples[3].Timeout)
}

func TestMeasurementStatus(t *testing.T) {
	tests := []struct {
		status     int
		wantDone   bool
		wantFailed bool
	}{
		{status: StatusSpecified},
		{status: StatusScheduled},
		{status: StatusOngoing},
		{status: StatusStopped, wantDone: true},
		{status: StatusForcedToStop, wantDone: true},
		{status: StatusNoSuitableProbes, wantDone: true, wantFailed: true},
		{status: StatusFailed, wantDone: true, wantFailed: true},
		{status: StatusArchived, wantDone: true},
	}
	for _, tt := range tests {
		m := Measurement{Status: Status{ID: tt.status}}
		assert.Equal(t, tt.wantDone, m.Done(), "status %d", tt.status)
		assert.Equal(t, tt.wantFailed, m.Failed(), "status %d", tt.status)
	}
}
