// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package atlas

import (
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// MeasurementType is the kind of a platform measurement.
type MeasurementType string

const (
	TypePing       MeasurementType = "ping"
	TypeTraceroute MeasurementType = "traceroute"
	TypeDNS        MeasurementType = "dns"
)

// ParseMeasurementType accepts ping, traceroute and dns.
func ParseMeasurementType(s string) (MeasurementType, error) {
	switch t := MeasurementType(strings.ToLower(s)); t {
	case TypePing, TypeTraceroute, TypeDNS:
		return t, nil
	}
	return "", &InvalidRequestError{Reason: "unknown measurement type " + strconv.Quote(s)}
}

// Probe status ids reported by the platform.
const (
	ProbeNeverConnected = 0
	ProbeConnected      = 1
	ProbeDisconnected   = 2
	ProbeAbandoned      = 3
)

// Measurement status ids reported by the platform.
const (
	StatusSpecified        = 0
	StatusScheduled        = 1
	StatusOngoing          = 2
	StatusStopped          = 4
	StatusForcedToStop     = 5
	StatusNoSuitableProbes = 6
	StatusFailed           = 7
	StatusArchived         = 8
)

type (
	Status struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	// Geometry is a GeoJSON point. Coordinates are [longitude, latitude].
	Geometry struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	}

	Probe struct {
		ID          int       `json:"id"`
		AddressV4   string    `json:"address_v4"`
		AddressV6   string    `json:"address_v6,omitempty"`
		PrefixV4    string    `json:"prefix_v4,omitempty"`
		ASNV4       int       `json:"asn_v4,omitempty"`
		CountryCode string    `json:"country_code"`
		Description string    `json:"description,omitempty"`
		IsAnchor    bool      `json:"is_anchor"`
		IsPublic    bool      `json:"is_public"`
		Geometry    *Geometry `json:"geometry"`
		Status      Status    `json:"status"`
	}

	probePage struct {
		Count   int     `json:"count"`
		Next    *string `json:"next"`
		Results []Probe `json:"results"`
	}

	Measurement struct {
		ID               int             `json:"id"`
		Type             MeasurementType `json:"type"`
		Status           Status          `json:"status"`
		Target           string          `json:"target"`
		TargetIP         string          `json:"target_ip,omitempty"`
		AF               int             `json:"af"`
		Description      string          `json:"description,omitempty"`
		ResultURL        string          `json:"result"`
		ParticipantCount int             `json:"participant_count,omitempty"`
		IsOneoff         bool            `json:"is_oneoff"`
	}
)

// Connected reports the platform status.
func (p Probe) Connected() bool {
	return p.Status.ID == ProbeConnected || p.Status.Name == "Connected"
}

// Done reports whether the measurement will not produce further results.
func (m Measurement) Done() bool {
	switch m.Status.ID {
	case StatusStopped, StatusForcedToStop, StatusNoSuitableProbes, StatusFailed, StatusArchived:
		return true
	}
	return false
}

// Failed reports a measurement that ended without results.
func (m Measurement) Failed() bool {
	return m.Status.ID == StatusNoSuitableProbes || m.Status.ID == StatusFailed
}

// ProbeFilter narrows a probe listing.
type ProbeFilter struct {
	CountryCode string
	// IncludeDisconnected keeps probes whose status is not Connected.
	IncludeDisconnected bool
	// IncludeNoIPv4 keeps probes without an IPv4 address.
	IncludeNoIPv4 bool
	AnchorsOnly   bool
	IDs           []int
}

func (f ProbeFilter) query(pageSize int) url.Values {
	q := url.Values{}
	if f.CountryCode != "" {
		q.Set("country_code", strings.ToUpper(f.CountryCode))
	}
	if !f.IncludeDisconnected {
		q.Set("status", strconv.Itoa(ProbeConnected))
	}
	if f.AnchorsOnly {
		q.Set("is_anchor", "true")
	}
	if len(f.IDs) > 0 {
		ids := append([]int(nil), f.IDs...)
		sort.Ints(ids)
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.Itoa(id)
		}
		q.Set("id__in", strings.Join(parts, ","))
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	return q
}

// keep applies the filter on the client side, the platform may ignore
// some query parameters.
func (f ProbeFilter) keep(p Probe) bool {
	if !f.IncludeDisconnected && !p.Connected() {
		return false
	}
	if !f.IncludeNoIPv4 && p.AddressV4 == "" {
		return false
	}
	if f.AnchorsOnly && !p.IsAnchor {
		return false
	}
	return true
}

type (
	// PingReply is one packet of a ping result. Exactly one of RTT, Timeout
	// and Error is set.
	PingReply struct {
		RTT     *float64 `json:"rtt,omitempty"`
		Timeout string   `json:"x,omitempty"`
		Error   string   `json:"error,omitempty"`
	}

	PingResult struct {
		MeasurementID int         `json:"msm_id"`
		ProbeID       int         `json:"prb_id"`
		From          string      `json:"from"`
		SourceAddress string      `json:"src_addr"`
		DstAddress    string      `json:"dst_addr"`
		DstName       string      `json:"dst_name,omitempty"`
		Timestamp     int64       `json:"timestamp"`
		Sent          int         `json:"sent"`
		Received      int         `json:"rcvd"`
		Min           float64     `json:"min"`
		Avg           float64     `json:"avg"`
		Max           float64     `json:"max"`
		Result        []PingReply `json:"result"`
	}

	// TracerouteReply is one packet sent at a given TTL.
	TracerouteReply struct {
		From    string   `json:"from,omitempty"`
		RTT     *float64 `json:"rtt,omitempty"`
		Size    int      `json:"size,omitempty"`
		TTL     int      `json:"ttl,omitempty"`
		Timeout string   `json:"x,omitempty"`
		Error   string   `json:"err,omitempty"`
	}

	TracerouteHop struct {
		Hop    int               `json:"hop"`
		Error  string            `json:"error,omitempty"`
		Result []TracerouteReply `json:"result,omitempty"`
	}

	TracerouteResult struct {
		MeasurementID int             `json:"msm_id"`
		ProbeID       int             `json:"prb_id"`
		From          string          `json:"from"`
		SourceAddress string          `json:"src_addr"`
		DstAddress    string          `json:"dst_addr"`
		DstName       string          `json:"dst_name,omitempty"`
		Protocol      string          `json:"proto"`
		ParisID       int             `json:"paris_id"`
		Timestamp     int64           `json:"timestamp"`
		EndTime       int64           `json:"endtime"`
		Result        []TracerouteHop `json:"result"`
	}

	// DNSAnswer holds the raw DNS answer. Abuf is the base64 encoded wire
	// message.
	DNSAnswer struct {
		Abuf    string  `json:"abuf"`
		ID      int     `json:"ID"`
		ANCount int     `json:"ANCOUNT"`
		RT      float64 `json:"rt"`
		Size    int     `json:"size"`
	}

	DNSResultSet struct {
		DstAddress string          `json:"dst_addr,omitempty"`
		Result     *DNSAnswer      `json:"result,omitempty"`
		Error      json.RawMessage `json:"error,omitempty"`
	}

	DNSResult struct {
		MeasurementID int             `json:"msm_id"`
		ProbeID       int             `json:"prb_id"`
		From          string          `json:"from"`
		SourceAddress string          `json:"src_addr,omitempty"`
		DstAddress    string          `json:"dst_addr,omitempty"`
		Timestamp     int64           `json:"timestamp"`
		Result        *DNSAnswer      `json:"result,omitempty"`
		Error         json.RawMessage `json:"error,omitempty"`
		// ResultSet replaces Result when the probe queried several resolvers.
		ResultSet []DNSResultSet `json:"resultset,omitempty"`
	}
)

// Answers flattens Result and ResultSet.
func (r DNSResult) Answers() []DNSResultSet {
	if len(r.ResultSet) > 0 {
		return r.ResultSet
	}
	if r.Result == nil && len(r.Error) == 0 {
		return nil
	}
	return []DNSResultSet{{DstAddress: r.DstAddress, Result: r.Result, Error: r.Error}}
}

type (
	// Definition is one measurement specification of a creation request.
	Definition struct {
		Type           MeasurementType `json:"type"`
		Target         string          `json:"target"`
		AF             int             `json:"af"`
		Description    string          `json:"description"`
		Tags           []string        `json:"tags,omitempty"`
		ResolveOnProbe bool            `json:"resolve_on_probe"`
		SkipDNSCheck   bool            `json:"skip_dns_check"`
		IncludeProbeID bool            `json:"include_probe_id"`
		Packets        int             `json:"packets,omitempty"`
		Size           int             `json:"size,omitempty"`
		Protocol       string          `json:"protocol,omitempty"`
		Port           int             `json:"port,omitempty"`

		QueryClass       string `json:"query_class,omitempty"`
		QueryType        string `json:"query_type,omitempty"`
		QueryArgument    string `json:"query_argument,omitempty"`
		UDPPayloadSize   int    `json:"udp_payload_size,omitempty"`
		IncludeAbuf      bool   `json:"include_abuf,omitempty"`
		SetNSIDBit       bool   `json:"set_nsid_bit,omitempty"`
		UseProbeResolver bool   `json:"use_probe_resolver,omitempty"`
		TimeoutMs        int    `json:"timeout,omitempty"`
	}

	// ProbeSelection requests probes. Value is a comma separated id list.
	ProbeSelection struct {
		Type      string `json:"type"`
		Value     string `json:"value"`
		Requested int    `json:"requested"`
	}

	// Request is the body of a measurement creation.
	Request struct {
		Definitions []Definition     `json:"definitions"`
		Probes      []ProbeSelection `json:"probes"`
		IsOneoff    bool             `json:"is_oneoff"`
		BillTo      string           `json:"bill_to,omitempty"`
	}

	createResponse struct {
		Measurements []int `json:"measurements"`
	}
)

// Kind returns the type of the first definition.
func (r Request) Kind() MeasurementType {
	if len(r.Definitions) == 0 {
		return ""
	}
	return r.Definitions[0].Type
}
