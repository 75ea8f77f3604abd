// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package atlas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/netmet-geoloc/common"
)

func TestPing(t *testing.T) {
	req := Ping("192.0.2.1", []int{10, 20})
	require.Len(t, req.Definitions, 1)
	d := req.Definitions[0]
	assert.Equal(t, TypePing, d.Type)
	assert.Equal(t, "192.0.2.1", d.Target)
	assert.Equal(t, common.DefaultPingPackets, d.Packets)
	assert.Equal(t, common.DefaultPacketSize, d.Size)
	assert.Equal(t, common.DefaultAddressFamily, d.AF)
	assert.True(t, req.IsOneoff)
	assert.Equal(t, []ProbeSelection{{Type: "probes", Value: "10,20", Requested: 2}}, req.Probes)
	assert.Equal(t, TypePing, req.Kind())
}

func TestTraceroute(t *testing.T) {
	req := Traceroute("192.0.2.1", []int{1}, "udp", 0)
	d := req.Definitions[0]
	assert.Equal(t, TypeTraceroute, d.Type)
	assert.Equal(t, "UDP", d.Protocol)
	assert.Equal(t, common.DefaultTraceroutePort, d.Port)

	req = Traceroute("192.0.2.1", []int{1}, "", 443)
	assert.Equal(t, common.DefaultTracerouteProtocol, req.Definitions[0].Protocol)
	assert.Equal(t, 443, req.Definitions[0].Port)
}

func TestDNS(t *testing.T) {
	req, err := DNS("www.Example.com.", []int{1})
	require.NoError(t, err)
	d := req.Definitions[0]
	assert.Equal(t, TypeDNS, d.Type)
	assert.Equal(t, common.DefaultDNSResolver, d.Target)
	assert.Equal(t, "www.example.com", d.QueryArgument)
	assert.Equal(t, "A", d.QueryType)
	assert.True(t, d.IncludeAbuf)

	req, err = DNS("bücher.example", []int{1})
	require.NoError(t, err)
	assert.Equal(t, "xn--bcher-kva.example", req.Definitions[0].QueryArgument)

	_, err = DNS("  ", []int{1})
	var invalid *InvalidRequestError
	assert.True(t, errors.As(err, &invalid))
}

func TestNewRequest(t *testing.T) {
	tests := []struct {
		kind    MeasurementType
		target  string
		wantErr bool
	}{
		{kind: TypePing, target: "192.0.2.1"},
		{kind: TypeTraceroute, target: "192.0.2.1"},
		{kind: TypeDNS, target: "example.com"},
		{kind: "http", target: "example.com", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			req, err := NewRequest(tt.kind, tt.target, []int{1})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, req.Kind())
		})
	}
}

func TestParseMeasurementType(t *testing.T) {
	kind, err := ParseMeasurementType("Traceroute")
	require.NoError(t, err)
	assert.Equal(t, TypeTraceroute, kind)

	_, err = ParseMeasurementType("sslcert")
	assert.Error(t, err)
}

func TestRequestValidate(t *testing.T) {
	valid := Ping("192.0.2.1", []int{1})
	valid.BillTo = "billing@example.com"

	tests := []struct {
		name    string
		mutate  func(*Request)
		wantErr string
	}{
		{name: "valid", mutate: func(*Request) {}},
		{name: "no definition", mutate: func(r *Request) { r.Definitions = nil }, wantErr: "no definition"},
		{name: "no probes", mutate: func(r *Request) { r.Probes = nil }, wantErr: "no probe"},
		{name: "no billing", mutate: func(r *Request) { r.BillTo = "" }, wantErr: "billing"},
		{name: "no target", mutate: func(r *Request) { r.Definitions = []Definition{{Type: TypePing}} }, wantErr: "no target"},
		{name: "dns without query", mutate: func(r *Request) {
			r.Definitions = []Definition{{Type: TypeDNS, Target: "8.8.8.8"}}
		}, wantErr: "query argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			req.Definitions = append([]Definition(nil), valid.Definitions...)
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
