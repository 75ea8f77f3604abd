// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/DataDog/netmet-geoloc/config"
	"github.com/DataDog/netmet-geoloc/geo"
	"github.com/DataDog/netmet-geoloc/geolocation"
	"github.com/DataDog/netmet-geoloc/log"
	"github.com/DataDog/netmet-geoloc/result"
	"github.com/DataDog/netmet-geoloc/rtt"
)

const maxBodyBytes = 32 << 20

// Server is the HTTP server for the geolocation API
type Server struct {
	model   geo.PropagationModel
	workers int
	started time.Time
	mux     *http.ServeMux
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// Request is the body accepted by the estimation endpoints. Observations
// take precedence over raw ping Records.
type Request struct {
	// Method defaults to cbg. The method query parameter overrides it.
	Method        string                     `json:"method,omitempty"`
	VantagePoints []result.VantagePoint      `json:"vantage_points"`
	Observations  []result.RttObservation    `json:"observations,omitempty"`
	Records       []result.MeasurementRecord `json:"records,omitempty"`
	GroundTruth   []result.GroundTruth       `json:"ground_truth,omitempty"`
	Propagation   *geo.PropagationModel      `json:"propagation,omitempty"`
}

// NewServer creates a server using the propagation model and worker count
// of cfg.
func NewServer(cfg config.Config) *Server {
	s := &Server{
		model:   cfg.Propagation,
		workers: cfg.Workers,
		started: time.Now(),
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/health", s.HealthHandler)
	s.mux.HandleFunc("/geolocate", s.GeolocateHandler)
	s.mux.HandleFunc("/anycast", s.AnycastHandler)
	s.mux.HandleFunc("/evaluate", s.EvaluateHandler)
	return s
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// HealthHandler handles GET and HEAD /health requests
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	})
}

// GeolocateHandler handles POST /geolocate requests
func (s *Server) GeolocateHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	name := getStringParam(query, "method", req.Method)
	if name == "" {
		name = string(result.MethodCBG)
	}
	method, err := geolocation.ParseMethod(name)
	if err != nil {
		writeError(w, err)
		return
	}
	locator, err := geolocation.NewLocator(method, s.modelFor(req), getIntParam(query, "workers", s.workers))
	if err != nil {
		writeError(w, err)
		return
	}
	estimation, err := locator.Locate(r.Context(), req.observations(), result.NewVantagePoints(req.VantagePoints))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, estimation)
}

// AnycastHandler handles POST /anycast requests
func (s *Server) AnycastHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	locator, err := geolocation.NewLocator(result.MethodShortestPing, s.modelFor(req), s.workers)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := locator.DetectAnycast(req.observations(), result.NewVantagePoints(req.VantagePoints))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// EvaluateHandler handles POST /evaluate requests
func (s *Server) EvaluateHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	if len(req.GroundTruth) == 0 {
		writeError(w, &geolocation.InvalidRequestError{Err: errors.New("missing ground_truth")})
		return
	}
	model := s.modelFor(req)
	if err := model.Validate(); err != nil {
		writeError(w, err)
		return
	}
	reports, err := geolocation.Compare(r.Context(), req.observations(), result.NewVantagePoints(req.VantagePoints), req.GroundTruth, model, s.workers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// decode reads a POST body. It writes the error response itself and
// reports whether the handler should go on.
func (s *Server) decode(w http.ResponseWriter, r *http.Request) (Request, bool) {
	var req Request
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, &geolocation.InvalidRequestError{Err: fmt.Errorf("decode body: %w", err)})
		return req, false
	}
	if len(req.VantagePoints) == 0 {
		writeError(w, &geolocation.InvalidRequestError{Err: errors.New("missing vantage_points")})
		return req, false
	}
	if len(req.Observations) == 0 && len(req.Records) == 0 {
		writeError(w, &geolocation.InvalidRequestError{Err: errors.New("missing observations or records")})
		return req, false
	}
	return req, true
}

func (s *Server) modelFor(req Request) geo.PropagationModel {
	if req.Propagation != nil {
		return *req.Propagation
	}
	return s.model
}

func (req Request) observations() []result.RttObservation {
	if len(req.Observations) > 0 {
		return req.Observations
	}
	return rtt.MinRTTs(req.Records)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = log.Errorf("failed to encode response: %s", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	classified := geolocation.ClassifyError(err)
	status := classified.HTTPStatus()
	if status >= http.StatusInternalServerError {
		_ = log.Errorf("request failed: %s", err)
	} else {
		log.Debugf("request rejected: %s", err)
	}
	writeJSON(w, status, geolocation.ErrorResponse{Code: classified.Code, Message: classified.Message})
}

// Start starts the HTTP server on the specified address
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Debugf("Starting HTTP server on %s", addr)
	return srv.ListenAndServe()
}
