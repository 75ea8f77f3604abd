// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package atlas

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer of the platform.
type APIError struct {
	StatusCode int
	Title      string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("atlas: %d %s: %s", e.StatusCode, e.Title, e.Detail)
	}
	return fmt.Sprintf("atlas: %d %s", e.StatusCode, e.Title)
}

// Temporary reports whether retrying the call may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type errorBody struct {
	Error struct {
		Status int    `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"error"`
}

func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Title: http.StatusText(statusCode)}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Title != "" {
		apiErr.Title = parsed.Error.Title
		apiErr.Detail = parsed.Error.Detail
	} else if len(body) > 0 && len(body) < 512 {
		apiErr.Detail = string(body)
	}
	return apiErr
}

// InvalidRequestError rejects a request before it reaches the platform.
type InvalidRequestError struct {
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return "invalid measurement request: " + e.Reason
}

// MeasurementFailedError is returned when a measurement ended without
// results.
type MeasurementFailedError struct {
	ID     int
	Status Status
}

func (e *MeasurementFailedError) Error() string {
	return fmt.Sprintf("measurement %d ended with status %q", e.ID, e.Status.Name)
}
