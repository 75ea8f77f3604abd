// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package common contains the defaults shared by the CLI, the server and the
// platform client.
package common

import "time"

const (
	DefaultAtlasBaseURL     = "https://atlas.ripe.net/api/v2/"
	DefaultAtlasTimeout     = 30 * time.Second
	DefaultProbePageSize    = 500
	DefaultProbeCacheExpiry = 2 * time.Hour

	DefaultPingPackets        = 3
	DefaultPacketSize         = 48
	DefaultAddressFamily      = 4
	DefaultTracerouteProtocol = "ICMP"
	DefaultTraceroutePort     = 33434
	DefaultDNSResolver        = "8.8.8.8"
	DefaultDNSQueryType       = "A"
	DefaultMeasurementTag     = "netmet"

	// measurements complete on the platform within minutes
	DefaultPollInitialInterval = 10 * time.Second
	DefaultPollMaxInterval     = time.Minute
	DefaultPollMaxElapsed      = 20 * time.Minute

	DefaultStoreBackend = "file"
	DefaultStoreDir     = "datasets"
	DefaultRedisAddr    = "localhost:6379"
	DefaultRedisPrefix  = "netmet:"
	DefaultBadgerDir    = "netmet-db"

	DefaultWorkers    = 8
	DefaultServerAddr = ":3766"
	DefaultLogLevel   = "info"
)
