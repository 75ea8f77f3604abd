// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/netmet-geoloc/atlas"
	"github.com/DataDog/netmet-geoloc/campaign"
	"github.com/DataDog/netmet-geoloc/config"
	"github.com/DataDog/netmet-geoloc/geo"
	"github.com/DataDog/netmet-geoloc/result"
	"github.com/DataDog/netmet-geoloc/store"
)

var (
	paris    = geo.Point{Lat: 48.8566, Lon: 2.3522}
	london   = geo.Point{Lat: 51.5074, Lon: -0.1278}
	berlin   = geo.Point{Lat: 52.52, Lon: 13.405}
	madrid   = geo.Point{Lat: 40.4168, Lon: -3.7038}
	brussels = geo.Point{Lat: 50.8503, Lon: 4.3517}
)

// resetFlags puts every flag back to its default between executions of the
// shared command tree.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// setup routes the commands to a mock platform and a file store.
func setup(t *testing.T) (*atlas.MockAPI, store.Store) {
	t.Setenv(config.EnvStoreBackend, "")
	t.Setenv(config.EnvAtlasAPIKey, "")
	t.Setenv(config.EnvAtlasBillTo, "")

	ctrl := gomock.NewController(t)
	api := atlas.NewMockAPI(ctrl)
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)

	prev := openEnv
	openEnv = func(c config.Config) (*env, error) {
		c.Workers = 2
		return &env{runner: campaign.NewRunner(api, st, c), store: nopCloser{st}}, nil
	}
	t.Cleanup(func() { openEnv = prev })
	return api, st
}

// nopCloser keeps the store open across the commands of one test.
type nopCloser struct {
	store.Store
}

func (nopCloser) Close() error { return nil }

func execute(t *testing.T, args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func seed(t *testing.T, st store.Store) {
	ctx := context.Background()
	vps := []result.VantagePoint{
		{ID: 1, Point: paris, Connected: true},
		{ID: 2, Point: london, Connected: true},
		{ID: 3, Point: berlin, Connected: true},
		{ID: 4, Point: madrid, Connected: true},
	}
	var obs []result.RttObservation
	for _, vp := range vps {
		obs = append(obs, result.RttObservation{
			VantagePointID: vp.ID,
			TargetAddress:  "198.51.100.1",
			MinRTTMs:       geo.DefaultModel.KmToRTT(geo.Distance(vp.Point, brussels)*1.3 + 1),
		})
	}
	obs = append(obs,
		result.RttObservation{VantagePointID: 4, TargetAddress: "198.51.100.53", MinRTTMs: 1.0},
		result.RttObservation{VantagePointID: 3, TargetAddress: "198.51.100.53", MinRTTMs: 1.2},
	)
	require.NoError(t, st.Save(ctx, store.VantagePoints, vps))
	require.NoError(t, st.Save(ctx, store.Observations, obs))
	require.NoError(t, st.Save(ctx, store.Targets, []result.Target{{Address: "198.51.100.1"}}))
	require.NoError(t, st.Save(ctx, store.GroundTruth, []result.GroundTruth{{Address: "198.51.100.1", Point: brussels}}))
}

func TestVersion(t *testing.T) {
	setup(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: dev")
}

func TestInvalidLogLevel(t *testing.T) {
	setup(t)
	_, err := execute(t, "version", "--log-level", "loud")
	assert.Error(t, err)
}

func TestProbes(t *testing.T) {
	api, st := setup(t)
	api.EXPECT().ListProbes(gomock.Any(), atlas.ProbeFilter{CountryCode: "FR"}).Return([]atlas.Probe{{
		ID:          1,
		AddressV4:   "192.0.2.1",
		CountryCode: "FR",
		Geometry:    &atlas.Geometry{Type: "Point", Coordinates: []float64{paris.Lon, paris.Lat}},
		Status:      atlas.Status{ID: atlas.ProbeConnected},
	}}, nil)

	out, err := execute(t, "probes", "FR")
	require.NoError(t, err)
	assert.Contains(t, out, "192.0.2.1")
	assert.Contains(t, out, "1 vantage points saved")

	ok, err := st.Exists(context.Background(), store.VantagePoints)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPing(t *testing.T) {
	api, st := setup(t)
	seed(t, st)
	t.Setenv(config.EnvAtlasAPIKey, "key")
	t.Setenv(config.EnvAtlasBillTo, "bill@example.com")

	api.EXPECT().CreateMeasurement(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req atlas.Request) ([]int, error) {
			assert.Equal(t, "198.51.100.1", req.Definitions[0].Target)
			assert.Equal(t, "1,2,3,4", req.Probes[0].Value)
			return []int{101}, nil
		})

	out, err := execute(t, "ping", "--json")
	require.NoError(t, err)
	var refs []campaign.MeasurementRef
	require.NoError(t, json.Unmarshal([]byte(out), &refs))
	require.Len(t, refs, 1)
	assert.Equal(t, 101, refs[0].ID)
	assert.Equal(t, atlas.TypePing, refs[0].Type)
}

func TestScheduleErrors(t *testing.T) {
	tests := []struct {
		name  string
		creds bool
		args  []string
	}{
		{name: "missing credentials", args: []string{"ping", "198.51.100.1"}},
		{name: "dns without hostname", creds: true, args: []string{"dns"}},
		{name: "no saved targets", creds: true, args: []string{"traceroute", "--probes", "1"}},
		{name: "no saved probes", creds: true, args: []string{"ping", "198.51.100.1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t)
			if tt.creds {
				t.Setenv(config.EnvAtlasAPIKey, "key")
				t.Setenv(config.EnvAtlasBillTo, "bill@example.com")
			}
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestFetch(t *testing.T) {
	api, _ := setup(t)
	rtt := 10.5
	api.EXPECT().WaitForResults(gomock.Any(), 11).Return(&atlas.Measurement{ID: 11, Type: atlas.TypePing}, nil)
	api.EXPECT().GetResults(gomock.Any(), 11).Return([]atlas.PingResult{
		{MeasurementID: 11, ProbeID: 1, From: "203.0.113.1", DstAddress: "198.51.100.1", Result: []atlas.PingReply{{RTT: &rtt}}},
		{MeasurementID: 11, ProbeID: 2, From: "203.0.113.2", DstAddress: "198.51.100.1", Result: []atlas.PingReply{{RTT: &rtt}}},
	}, nil)
	api.EXPECT().WaitForResults(gomock.Any(), 13).Return(nil, errors.New("measurement stopped"))

	out, err := execute(t, "fetch", "13", "11")
	require.NoError(t, err)
	assert.Contains(t, out, "2 ping records, 2 minimum RTT observations")
	assert.Contains(t, out, "measurement 13 failed: measurement stopped")
}

func TestFetchErrors(t *testing.T) {
	setup(t)
	_, err := execute(t, "fetch", "abc")
	assert.ErrorContains(t, err, "invalid measurement id")

	_, err = execute(t, "fetch")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = execute(t, "fetch", "--type", "http")
	var invalid *atlas.InvalidRequestError
	assert.ErrorAs(t, err, &invalid)
}

func TestGeolocate(t *testing.T) {
	_, st := setup(t)
	seed(t, st)

	out, err := execute(t, "geolocate", "--method", "sp")
	require.NoError(t, err)
	assert.Contains(t, out, "198.51.100.1")
	assert.Contains(t, out, "shortest_ping: 2 located")

	out, err = execute(t, "geolocate", "--json")
	require.NoError(t, err)
	var estimation result.Estimation
	require.NoError(t, json.Unmarshal([]byte(out), &estimation))
	assert.Equal(t, result.MethodCBG, estimation.Method)

	_, err = execute(t, "geolocate", "--method", "nearest")
	assert.Error(t, err)
}

func TestAnycast(t *testing.T) {
	_, st := setup(t)
	seed(t, st)

	out, err := execute(t, "anycast")
	require.NoError(t, err)
	assert.Contains(t, out, "198.51.100.53: probes")
	assert.Contains(t, out, "1 anycast targets, 7 vantage point pairs compared")
}

func TestEvaluate(t *testing.T) {
	_, st := setup(t)

	_, err := execute(t, "evaluate")
	assert.ErrorIs(t, err, store.ErrNotFound)

	seed(t, st)
	out, err := execute(t, "evaluate")
	require.NoError(t, err)
	assert.Regexp(t, `shortest_ping\s+1\s+\d+\.\d\d km`, out)
	assert.Regexp(t, `cbg\s+1\s+\d+\.\d\d km`, out)
}
