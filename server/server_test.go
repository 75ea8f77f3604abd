// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DataDog/netmet-geoloc/config"
	"github.com/DataDog/netmet-geoloc/evaluation"
	"github.com/DataDog/netmet-geoloc/geo"
	"github.com/DataDog/netmet-geoloc/geolocation"
	"github.com/DataDog/netmet-geoloc/result"
)

var (
	paris      = geo.Point{Lat: 48.8566, Lon: 2.3522}
	london     = geo.Point{Lat: 51.5074, Lon: -0.1278}
	berlin     = geo.Point{Lat: 52.52, Lon: 13.405}
	madrid     = geo.Point{Lat: 40.4168, Lon: -3.7038}
	amsterdam  = geo.Point{Lat: 52.3676, Lon: 4.9041}
	luxembourg = geo.Point{Lat: 49.6116, Lon: 6.1319}
	frankfurt  = geo.Point{Lat: 50.1109, Lon: 8.6821}
	brussels   = geo.Point{Lat: 50.8503, Lon: 4.3517}
)

const target = "198.51.100.1"

func fixture() Request {
	vps := []result.VantagePoint{
		{ID: 1, Point: paris, Connected: true},
		{ID: 2, Point: london, Connected: true},
		{ID: 3, Point: berlin, Connected: true},
		{ID: 4, Point: madrid, Connected: true},
		{ID: 5, Point: amsterdam, Connected: true},
		{ID: 6, Point: luxembourg, Connected: true},
		{ID: 7, Point: frankfurt, Connected: true},
	}
	req := Request{VantagePoints: vps}
	for _, vp := range vps {
		req.Observations = append(req.Observations, result.RttObservation{
			VantagePointID: vp.ID,
			TargetAddress:  target,
			MinRTTMs:       geo.DefaultModel.KmToRTT(geo.Distance(vp.Point, brussels)*1.3 + 1),
		})
	}
	return req
}

func newServer() *Server {
	return NewServer(config.Default())
}

func post(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) geolocation.ErrorResponse {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var errResp geolocation.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&errResp))
	assert.NotEmpty(t, errResp.Message)
	return errResp
}

func TestNewServer(t *testing.T) {
	srv := newServer()
	require.NotNil(t, srv, "NewServer() returned nil")
	assert.Equal(t, geo.DefaultModel, srv.model)
	assert.NotNil(t, srv.Handler())
}

func TestHealthHandler(t *testing.T) {
	srv := newServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	srv.HealthHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response HealthResponse
	err := json.NewDecoder(w.Body).Decode(&response)
	require.NoError(t, err)
	assert.Equal(t, "healthy", response.Status)
	assert.NotEmpty(t, response.Timestamp)
	assert.NotEmpty(t, response.Uptime)
}

func TestHealthHandlerHead(t *testing.T) {
	srv := newServer()
	req := httptest.NewRequest(http.MethodHead, "/health", nil)
	w := httptest.NewRecorder()

	srv.HealthHandler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Body.String())
}

func TestHealthHandlerMethodNotAllowed(t *testing.T) {
	srv := newServer()
	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	w := httptest.NewRecorder()

	srv.HealthHandler(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestGeolocateHandlerMethodNotAllowed(t *testing.T) {
	srv := newServer()
	req := httptest.NewRequest(http.MethodGet, "/geolocate", nil)
	w := httptest.NewRecorder()

	srv.GeolocateHandler(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestGeolocateHandler(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           func() any
		expectedMethod result.Method
		maxErrorKm     float64
	}{
		{
			name:           "cbg by default",
			path:           "/geolocate",
			body:           func() any { return fixture() },
			expectedMethod: result.MethodCBG,
			maxErrorKm:     150,
		},
		{
			name:           "method from query",
			path:           "/geolocate?method=sp&workers=2",
			body:           func() any { return fixture() },
			expectedMethod: result.MethodShortestPing,
			maxErrorKm:     250,
		},
		{
			name: "raw records",
			path: "/geolocate",
			body: func() any {
				req := fixture()
				for _, obs := range req.Observations {
					req.Records = append(req.Records, result.MeasurementRecord{
						ProbeID:            obs.VantagePointID,
						DestinationAddress: obs.TargetAddress,
						Samples:            []result.Sample{result.RTT(obs.MinRTTMs + 2), result.RTT(obs.MinRTTMs), {Timeout: true}},
					})
				}
				req.Observations = nil
				req.Method = "shortest_ping"
				return req
			},
			expectedMethod: result.MethodShortestPing,
			maxErrorKm:     250,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, newServer().GeolocateHandler, tt.path, tt.body())
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var estimation result.Estimation
			require.NoError(t, json.NewDecoder(w.Body).Decode(&estimation))
			assert.Equal(t, tt.expectedMethod, estimation.Method)
			assert.NotEmpty(t, estimation.RunID)
			require.Contains(t, estimation.Estimates, target)
			assert.Less(t, geo.Distance(estimation.Estimates[target].Point, brussels), tt.maxErrorKm)
		})
	}
}

func TestGeolocateHandlerErrors(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           func() any
		expectedStatus int
		expectedCode   geolocation.ErrorCode
	}{
		{
			name:           "malformed body",
			path:           "/geolocate",
			body:           func() any { return "{not json" },
			expectedStatus: http.StatusBadRequest,
			expectedCode:   geolocation.ErrCodeInvalidRequest,
		},
		{
			name:           "unknown field",
			path:           "/geolocate",
			body:           func() any { return `{"vps": []}` },
			expectedStatus: http.StatusBadRequest,
			expectedCode:   geolocation.ErrCodeInvalidRequest,
		},
		{
			name: "missing vantage points",
			path: "/geolocate",
			body: func() any {
				req := fixture()
				req.VantagePoints = nil
				return req
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   geolocation.ErrCodeInvalidRequest,
		},
		{
			name: "missing observations",
			path: "/geolocate",
			body: func() any {
				req := fixture()
				req.Observations = nil
				return req
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   geolocation.ErrCodeInvalidRequest,
		},
		{
			name:           "unknown method",
			path:           "/geolocate?method=nearest",
			body:           func() any { return fixture() },
			expectedStatus: http.StatusBadRequest,
			expectedCode:   geolocation.ErrCodeInvalidRequest,
		},
		{
			name: "invalid propagation model",
			path: "/geolocate",
			body: func() any {
				req := fixture()
				req.Propagation = &geo.PropagationModel{SpeedFraction: 0, OverheadMs: 0.5}
				return req
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   geolocation.ErrCodeInvalidRequest,
		},
		{
			name: "observations from unknown vantage points only",
			path: "/geolocate",
			body: func() any {
				req := fixture()
				for i := range req.Observations {
					req.Observations[i].VantagePointID += 100
				}
				return req
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   geolocation.ErrCodeNoData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, newServer().GeolocateHandler, tt.path, tt.body())
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedCode, decodeError(t, w).Code)
		})
	}
}

func TestAnycastHandler(t *testing.T) {
	req := fixture()
	req.Observations = append(req.Observations,
		result.RttObservation{VantagePointID: 3, TargetAddress: "198.51.100.53", MinRTTMs: 1.1},
		result.RttObservation{VantagePointID: 4, TargetAddress: "198.51.100.53", MinRTTMs: 1.0},
	)

	w := post(t, newServer().AnycastHandler, "/anycast", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var report geolocation.AnycastReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, []string{"198.51.100.53"}, report.Flagged)
	require.Contains(t, report.Violations, "198.51.100.53")
}

func TestAnycastHandlerNoData(t *testing.T) {
	req := fixture()
	req.Observations = []result.RttObservation{
		{VantagePointID: 98, TargetAddress: "198.51.100.53", MinRTTMs: 1.1},
		{VantagePointID: 99, TargetAddress: "198.51.100.53", MinRTTMs: 1.0},
	}

	w := post(t, newServer().AnycastHandler, "/anycast", req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, geolocation.ErrCodeNoData, decodeError(t, w).Code)
}

func TestEvaluateHandler(t *testing.T) {
	t.Run("both methods", func(t *testing.T) {
		req := fixture()
		req.GroundTruth = []result.GroundTruth{{Address: target, Point: brussels}}

		w := post(t, newServer().EvaluateHandler, "/evaluate", req)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var reports map[result.Method]*evaluation.Report
		require.NoError(t, json.NewDecoder(w.Body).Decode(&reports))
		require.Contains(t, reports, result.MethodShortestPing)
		require.Contains(t, reports, result.MethodCBG)
		assert.Less(t, reports[result.MethodCBG].MedianKm, 150.0)
	})
	t.Run("missing ground truth", func(t *testing.T) {
		w := post(t, newServer().EvaluateHandler, "/evaluate", fixture())
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, geolocation.ErrCodeInvalidRequest, decodeError(t, w).Code)
	})
	t.Run("no matching ground truth", func(t *testing.T) {
		req := fixture()
		req.GroundTruth = []result.GroundTruth{{Address: "203.0.113.250", Point: brussels}}
		w := post(t, newServer().EvaluateHandler, "/evaluate", req)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, geolocation.ErrCodeNoData, decodeError(t, w).Code)
	})
}

func TestRoutes(t *testing.T) {
	ts := httptest.NewServer(newServer().Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := json.Marshal(fixture())
	require.NoError(t, err)
	resp, err = http.Post(ts.URL+"/geolocate", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/traceroute", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
