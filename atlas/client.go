// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package atlas is a client for the RIPE Atlas measurement platform: probe
// discovery, measurement creation and result retrieval.
package atlas

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"

	"github.com/DataDog/netmet-geoloc/cache"
	"github.com/DataDog/netmet-geoloc/common"
	"github.com/DataDog/netmet-geoloc/config"
	"github.com/DataDog/netmet-geoloc/log"
)

//go:generate mockgen -source=client.go -destination=mock_api.go -package=atlas

// API is the part of the platform used by campaigns.
type API interface {
	ListProbes(ctx context.Context, filter ProbeFilter) ([]Probe, error)
	GetMeasurement(ctx context.Context, id int) (*Measurement, error)
	GetResults(ctx context.Context, id int) ([]PingResult, error)
	GetTracerouteResults(ctx context.Context, id int) ([]TracerouteResult, error)
	GetDNSResults(ctx context.Context, id int) ([]DNSResult, error)
	CreateMeasurement(ctx context.Context, req Request) ([]int, error)
	WaitForResults(ctx context.Context, id int) (*Measurement, error)
}

// ErrNotReady is returned by WaitForResults when the measurement was still
// running once the polling budget ran out.
var ErrNotReady = errors.New("measurement still running")

const (
	defaultMaxRetries      = 4
	defaultRetryInterval   = 500 * time.Millisecond
	defaultRetryMaxBackoff = 5 * time.Second
)

type Client struct {
	baseURL    *url.URL
	apiKey     string
	billTo     string
	tag        string
	httpClient *http.Client
	cache      *cache.Cache
	poll       config.Poll
	pageSize   int
	maxRetries uint
	retryWait  time.Duration
}

var _ API = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache shares a probe listing cache between clients. A nil cache
// disables caching.
func WithCache(pc *cache.Cache) Option {
	return func(c *Client) { c.cache = pc }
}

// WithPageSize sets the probe listing page size.
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

// WithRetries sets how many attempts a single HTTP call gets and the first
// wait between them.
func WithRetries(attempts uint, wait time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = attempts
		c.retryWait = wait
	}
}

func NewClient(cfg config.Atlas, opts ...Option) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		base = common.DefaultAtlasBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid atlas base url %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = common.DefaultAtlasTimeout
	}

	c := &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		billTo:     cfg.BillTo,
		tag:        cfg.Tag,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(common.DefaultProbeCacheExpiry, 0),
		poll:       cfg.Poll,
		pageSize:   common.DefaultProbePageSize,
		maxRetries: defaultMaxRetries,
		retryWait:  defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.poll.InitialInterval <= 0 {
		c.poll.InitialInterval = common.DefaultPollInitialInterval
	}
	if c.poll.MaxInterval <= 0 {
		c.poll.MaxInterval = common.DefaultPollMaxInterval
	}
	if c.poll.MaxElapsed <= 0 {
		c.poll.MaxElapsed = common.DefaultPollMaxElapsed
	}
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request, retrying transport failures and temporary platform
// errors, and decodes the JSON answer into out.
func (c *Client) do(ctx context.Context, method, target string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return errors.Wrap(err, "encode request")
		}
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.retryWait
	expBackoff.MaxInterval = defaultRetryMaxBackoff

	operation := func() ([]byte, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, backoff.Permanent(errors.Wrap(err, "build request"))
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Key "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}
		apiErr := newAPIError(resp.StatusCode, data)
		if !apiErr.Temporary() {
			return nil, backoff.Permanent(apiErr)
		}
		return nil, apiErr
	}

	data, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(c.maxRetries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Debugf("atlas: %s %s failed, retrying in %s: %s", method, target, wait, err)
		}),
	)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, target)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode answer of %s %s", method, target)
	}
	return nil
}

// ListProbes returns every probe matching filter, following pagination.
// Listings are cached by query.
func (c *Client) ListProbes(ctx context.Context, filter ProbeFilter) ([]Probe, error) {
	query := filter.query(c.pageSize)
	key := "probes?" + query.Encode()
	if filter.IncludeNoIPv4 {
		key += "&no_ipv4"
	}
	return cache.GetWithExpiration(c.cache, key, func() ([]Probe, error) {
		return c.listProbes(ctx, filter, query)
	}, common.DefaultProbeCacheExpiry)
}

func (c *Client) listProbes(ctx context.Context, filter ProbeFilter, query url.Values) ([]Probe, error) {
	probes := []Probe{}
	seen := make(map[string]bool)
	next := c.endpoint("probes/", query)
	for next != "" && !seen[next] {
		seen[next] = true
		var page probePage
		if err := c.do(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, errors.Wrap(err, "list probes")
		}
		for _, p := range page.Results {
			if filter.keep(p) {
				probes = append(probes, p)
			}
		}
		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	log.Debugf("atlas: listed %d probes (country=%q)", len(probes), filter.CountryCode)
	return probes, nil
}

func (c *Client) GetMeasurement(ctx context.Context, id int) (*Measurement, error) {
	var m Measurement
	if err := c.do(ctx, http.MethodGet, c.endpoint("measurements/"+strconv.Itoa(id)+"/", nil), nil, &m); err != nil {
		return nil, errors.Wrapf(err, "get measurement %d", id)
	}
	return &m, nil
}

func (c *Client) results(ctx context.Context, id int, out any) error {
	query := url.Values{"format": []string{"json"}}
	if err := c.do(ctx, http.MethodGet, c.endpoint("measurements/"+strconv.Itoa(id)+"/results/", query), nil, out); err != nil {
		return errors.Wrapf(err, "get results of measurement %d", id)
	}
	return nil
}

// GetResults returns the results of a ping measurement.
func (c *Client) GetResults(ctx context.Context, id int) ([]PingResult, error) {
	var res []PingResult
	if err := c.results(ctx, id, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) GetTracerouteResults(ctx context.Context, id int) ([]TracerouteResult, error) {
	var res []TracerouteResult
	if err := c.results(ctx, id, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) GetDNSResults(ctx context.Context, id int) ([]DNSResult, error) {
	var res []DNSResult
	if err := c.results(ctx, id, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// CreateMeasurement schedules req and returns the new measurement ids. The
// client's billing account and tag fill in what req leaves empty.
func (c *Client) CreateMeasurement(ctx context.Context, req Request) ([]int, error) {
	if c.apiKey == "" {
		return nil, config.ErrMissingCredentials
	}
	if req.BillTo == "" {
		req.BillTo = c.billTo
	}
	if c.tag != "" {
		for i := range req.Definitions {
			if len(req.Definitions[i].Tags) == 0 {
				req.Definitions[i].Tags = []string{c.tag}
			}
		}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var created createResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint("measurements/", nil), req, &created); err != nil {
		return nil, errors.Wrapf(err, "create %s measurement", req.Kind())
	}
	if len(created.Measurements) == 0 {
		return nil, errors.Errorf("create %s measurement: platform returned no measurement id", req.Kind())
	}
	log.Infof("atlas: created %s measurements %v", req.Kind(), created.Measurements)
	return created.Measurements, nil
}

// WaitForResults polls the measurement with exponential backoff until it is
// done. A measurement that failed returns a *MeasurementFailedError.
func (c *Client) WaitForResults(ctx context.Context, id int) (*Measurement, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.poll.InitialInterval
	expBackoff.MaxInterval = c.poll.MaxInterval

	operation := func() (*Measurement, error) {
		m, err := c.GetMeasurement(ctx, id)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && !apiErr.Temporary() {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if m.Failed() {
			return nil, backoff.Permanent(&MeasurementFailedError{ID: id, Status: m.Status})
		}
		if !m.Done() {
			return nil, ErrNotReady
		}
		return m, nil
	}

	m, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxElapsedTime(c.poll.MaxElapsed),
		backoff.WithNotify(func(err error, wait time.Duration) {
			log.Debugf("atlas: measurement %d not done (%s), next check in %s", id, err, wait)
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "wait for measurement %d", id)
	}
	return m, nil
}
