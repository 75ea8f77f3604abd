// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package result

import (
	"errors"
	"fmt"
)

// ErrNoData is returned when a whole batch produced nothing usable, so that
// callers never report an empty median as if it were a result.
var ErrNoData = errors.New("no usable data in batch")

// MissingDataError is raised for a target without any usable observation.
type MissingDataError struct {
	Target string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("no data for target %s", e.Target)
}

// UnknownVantagePointError is raised when an observation references a probe
// id absent from the vantage point table.
type UnknownVantagePointError struct {
	ID int
}

func (e *UnknownVantagePointError) Error() string {
	return fmt.Sprintf("unknown vantage point %d", e.ID)
}

// UnmatchedGroundTruthError is raised when an estimated target has no
// ground-truth record.
type UnmatchedGroundTruthError struct {
	Target string
}

func (e *UnmatchedGroundTruthError) Error() string {
	return fmt.Sprintf("no ground truth for target %s", e.Target)
}

// NoDataError wraps ErrNoData with the per-target causes that led to it.
func NoDataError(causes ...error) error {
	if len(causes) == 0 {
		return ErrNoData
	}
	return fmt.Errorf("%w: %w", ErrNoData, errors.Join(causes...))
}
