// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package geolocation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/DataDog/netmet-geoloc/atlas"
	"github.com/DataDog/netmet-geoloc/cbg"
	"github.com/DataDog/netmet-geoloc/config"
	"github.com/DataDog/netmet-geoloc/geo"
	"github.com/DataDog/netmet-geoloc/result"
)

// ErrorCode is a classifiable error code returned at the HTTP boundary.
type ErrorCode string

const (
	// ErrCodeNoData indicates that nothing usable was left to compute a result.
	ErrCodeNoData ErrorCode = "NO_DATA"
	// ErrCodeInvalidRequest indicates bad parameters from the caller.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeUnknownVantagePoint indicates a reference to a probe absent from the table.
	ErrCodeUnknownVantagePoint ErrorCode = "UNKNOWN_VANTAGE_POINT"
	// ErrCodePlatform indicates the measurement platform refused or failed the call.
	ErrCodePlatform ErrorCode = "PLATFORM"
	// ErrCodeDenied indicates missing or rejected credentials.
	ErrCodeDenied ErrorCode = "DENIED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeUnknown is the catch-all for unclassified errors.
	ErrCodeUnknown ErrorCode = "UNKNOWN"
)

// Error is a classified error of a geolocation operation.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the code to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidRequest, ErrCodeUnknownVantagePoint:
		return http.StatusBadRequest
	case ErrCodeNoData:
		return http.StatusUnprocessableEntity
	case ErrCodeDenied:
		return http.StatusForbidden
	case ErrCodePlatform:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the JSON body returned on error from the HTTP API.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// InvalidRequestError reports a malformed request body or parameter.
type InvalidRequestError struct {
	Err error
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Err)
}

func (e *InvalidRequestError) Unwrap() error {
	return e.Err
}

// ClassifyError inspects an error chain and returns an Error with the appropriate code.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}
	classified := func(code ErrorCode) *Error {
		return &Error{Code: code, Message: err.Error(), Err: err}
	}

	var own *Error
	if errors.As(err, &own) {
		return classified(own.Code)
	}

	if errors.Is(err, result.ErrNoData) {
		return classified(ErrCodeNoData)
	}
	var missing *result.MissingDataError
	if errors.As(err, &missing) {
		return classified(ErrCodeNoData)
	}
	var unmatched *result.UnmatchedGroundTruthError
	if errors.As(err, &unmatched) {
		return classified(ErrCodeNoData)
	}
	var unknownVP *result.UnknownVantagePointError
	if errors.As(err, &unknownVP) {
		return classified(ErrCodeUnknownVantagePoint)
	}

	var invalid *InvalidRequestError
	if errors.As(err, &invalid) {
		return classified(ErrCodeInvalidRequest)
	}
	var invalidConstraint *cbg.InvalidConstraintError
	if errors.As(err, &invalidConstraint) {
		return classified(ErrCodeInvalidRequest)
	}
	var invalidMeasurement *atlas.InvalidRequestError
	if errors.As(err, &invalidMeasurement) {
		return classified(ErrCodeInvalidRequest)
	}
	var invalidModel *geo.InvalidModelError
	if errors.As(err, &invalidModel) {
		return classified(ErrCodeInvalidRequest)
	}

	if errors.Is(err, config.ErrMissingCredentials) {
		return classified(ErrCodeDenied)
	}
	var apiErr *atlas.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return classified(ErrCodeDenied)
		}
		return classified(ErrCodePlatform)
	}
	var failed *atlas.MeasurementFailedError
	if errors.As(err, &failed) {
		return classified(ErrCodePlatform)
	}

	if errors.Is(err, atlas.ErrNotReady) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return classified(ErrCodeTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return classified(ErrCodeTimeout)
	}

	return classified(ErrCodeUnknown)
}
