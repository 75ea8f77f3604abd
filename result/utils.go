// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package result

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// NewRunID returns a base64 encoded UUID, shorter than the canonical form.
func NewRunID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}
