// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package atlas

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/DataDog/netmet-geoloc/common"
)

// Ping builds a one-off ping from every probe towards target.
func Ping(target string, probeIDs []int) Request {
	return Request{
		Definitions: []Definition{{
			Type:         TypePing,
			Target:       target,
			AF:           common.DefaultAddressFamily,
			Description:  "Geolocation of target: " + target,
			Packets:      common.DefaultPingPackets,
			Size:         common.DefaultPacketSize,
			SkipDNSCheck: true,
		}},
		Probes:   selectProbes(probeIDs),
		IsOneoff: true,
	}
}

// Traceroute builds a one-off traceroute. An empty protocol or a zero port
// use the defaults.
func Traceroute(target string, probeIDs []int, protocol string, port int) Request {
	if protocol == "" {
		protocol = common.DefaultTracerouteProtocol
	}
	if port == 0 {
		port = common.DefaultTraceroutePort
	}
	return Request{
		Definitions: []Definition{{
			Type:         TypeTraceroute,
			Target:       target,
			AF:           common.DefaultAddressFamily,
			Description:  "Traceroute towards " + target,
			Packets:      common.DefaultPingPackets,
			Size:         common.DefaultPacketSize,
			Protocol:     strings.ToUpper(protocol),
			Port:         port,
			SkipDNSCheck: true,
		}},
		Probes:   selectProbes(probeIDs),
		IsOneoff: true,
	}
}

// DNS builds a one-off A query for hostname sent to the public resolver.
// Internationalized names are converted to their ASCII form.
func DNS(hostname string, probeIDs []int) (Request, error) {
	name, err := NormalizeHostname(hostname)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Definitions: []Definition{{
			Type:           TypeDNS,
			Target:         common.DefaultDNSResolver,
			AF:             common.DefaultAddressFamily,
			Description:    "DNS measurement for " + name,
			ResolveOnProbe: true,
			QueryClass:     "IN",
			QueryType:      common.DefaultDNSQueryType,
			QueryArgument:  name,
			Protocol:       "UDP",
			UDPPayloadSize: 512,
			IncludeAbuf:    true,
			SetNSIDBit:     true,
			TimeoutMs:      5000,
		}},
		Probes:   selectProbes(probeIDs),
		IsOneoff: true,
	}, nil
}

// NormalizeHostname returns the lower-case ASCII form of a host name without
// a trailing dot.
func NormalizeHostname(hostname string) (string, error) {
	name := strings.TrimSuffix(strings.TrimSpace(hostname), ".")
	if name == "" {
		return "", &InvalidRequestError{Reason: "empty hostname"}
	}
	ascii, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return "", &InvalidRequestError{Reason: fmt.Sprintf("hostname %q: %s", hostname, err)}
	}
	return strings.ToLower(ascii), nil
}

// NewRequest builds a request of the given kind. Traceroutes use the default
// protocol and port.
func NewRequest(kind MeasurementType, target string, probeIDs []int) (Request, error) {
	switch kind {
	case TypePing:
		return Ping(target, probeIDs), nil
	case TypeTraceroute:
		return Traceroute(target, probeIDs, "", 0), nil
	case TypeDNS:
		return DNS(target, probeIDs)
	}
	return Request{}, &InvalidRequestError{Reason: "unknown measurement type " + strconv.Quote(string(kind))}
}

func selectProbes(ids []int) []ProbeSelection {
	if len(ids) == 0 {
		return nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return []ProbeSelection{{
		Type:      "probes",
		Value:     strings.Join(parts, ","),
		Requested: len(ids),
	}}
}

// Validate rejects requests the platform would refuse.
func (r Request) Validate() error {
	if len(r.Definitions) == 0 {
		return &InvalidRequestError{Reason: "no definition"}
	}
	if len(r.Probes) == 0 {
		return &InvalidRequestError{Reason: "no probe selected"}
	}
	if r.BillTo == "" {
		return &InvalidRequestError{Reason: "no billing account"}
	}
	for i, d := range r.Definitions {
		if d.Target == "" {
			return &InvalidRequestError{Reason: fmt.Sprintf("definition %d has no target", i)}
		}
		if d.Type == TypeDNS && d.QueryArgument == "" {
			return &InvalidRequestError{Reason: fmt.Sprintf("definition %d has no query argument", i)}
		}
	}
	return nil
}
