// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package traceroute turns platform traceroute results into per-probe runs
// of hops.
package traceroute

import (
	"context"
	"net/netip"
	"sort"

	"github.com/DataDog/netmet-geoloc/atlas"
	"github.com/DataDog/netmet-geoloc/log"
	"github.com/DataDog/netmet-geoloc/reversedns"
)

type (
	// Results all the runs of a traceroute measurement
	Results struct {
		MeasurementID int       `json:"msm_id,omitempty"`
		Runs          []Run     `json:"runs"`
		Hops          HopsStats `json:"hops"`
	}

	HopsStats struct {
		Avg float64 `json:"avg"`
		Min int     `json:"min"`
		Max int     `json:"max"`
	}

	// Run is the path seen by one probe.
	Run struct {
		ProbeID         int    `json:"prb_id"`
		Source          string `json:"source"`
		Destination     string `json:"destination"`
		DestinationName string `json:"destination_name,omitempty"`
		Protocol        string `json:"protocol"`
		Hops            []*Hop `json:"hops"`
	}

	// Hop is the fastest reply received at one TTL. IP is empty when
	// nothing answered.
	Hop struct {
		TTL        int     `json:"ttl"`
		IP         string  `json:"ip"`
		ReverseDns string  `json:"reverse_dns,omitempty"`
		RTT        float64 `json:"rtt"`
		Replies    int     `json:"replies"`
		IsDest     bool    `json:"is_dest"`
	}
)

// NewRun converts a single platform result. Replies without an RTT, late
// replies and errored hops are ignored.
func NewRun(r atlas.TracerouteResult) Run {
	source := r.SourceAddress
	if source == "" {
		source = r.From
	}
	run := Run{
		ProbeID:         r.ProbeID,
		Source:          source,
		Destination:     r.DstAddress,
		DestinationName: r.DstName,
		Protocol:        r.Protocol,
		Hops:            make([]*Hop, 0, len(r.Result)),
	}
	for _, h := range r.Result {
		hop := &Hop{TTL: h.Hop}
		if h.Error != "" {
			log.Debugf("probe %d hop %d: %s", r.ProbeID, h.Hop, h.Error)
		}
		for _, reply := range h.Result {
			if reply.RTT == nil || reply.From == "" || reply.Error != "" {
				continue
			}
			hop.Replies++
			if hop.IP == "" || *reply.RTT < hop.RTT {
				hop.IP = reply.From
				hop.RTT = *reply.RTT
			}
		}
		hop.IsDest = hop.IP != "" && hop.IP == r.DstAddress
		run.Hops = append(run.Hops, hop)
	}
	sort.SliceStable(run.Hops, func(i, j int) bool { return run.Hops[i].TTL < run.Hops[j].TTL })
	return run
}

// FromAtlas builds the results of a measurement, one run per probe result.
func FromAtlas(measurementID int, results []atlas.TracerouteResult) *Results {
	res := &Results{MeasurementID: measurementID, Runs: make([]Run, 0, len(results))}
	for _, r := range results {
		res.Runs = append(res.Runs, NewRun(r))
	}
	res.Normalize()
	return res
}

// Reached reports whether the destination answered.
func (r Run) Reached() bool {
	for _, hop := range r.Hops {
		if hop.IsDest {
			return true
		}
	}
	return false
}

// Addresses returns the distinct hop addresses in path order.
func (r Run) Addresses() []string {
	var addrs []string
	seen := make(map[string]struct{})
	for _, hop := range r.Hops {
		if hop.IP == "" {
			continue
		}
		if _, ok := seen[hop.IP]; ok {
			continue
		}
		seen[hop.IP] = struct{}{}
		addrs = append(addrs, hop.IP)
	}
	return addrs
}

// Normalize computes the hop statistics. The hop count of a run is the
// position of its last answering hop.
func (r *Results) Normalize() {
	r.Hops = HopsStats{}
	if len(r.Runs) == 0 {
		return
	}
	var totalHopCount int
	for _, run := range r.Runs {
		hopCount := 0
		for i, hop := range run.Hops {
			if hop.IP != "" {
				hopCount = i + 1
			}
		}
		if hopCount < r.Hops.Min || r.Hops.Min == 0 {
			r.Hops.Min = hopCount
		}
		if hopCount > r.Hops.Max {
			r.Hops.Max = hopCount
		}
		totalHopCount += hopCount
	}
	r.Hops.Avg = float64(totalHopCount) / float64(len(r.Runs))
}

// RemovePrivateHops blanks hops answered from private or shared address
// space, keeping their position in the path.
func (r *Results) RemovePrivateHops() {
	for _, run := range r.Runs {
		for _, hop := range run.Hops {
			if hop.IP != "" && isPrivate(hop.IP) {
				*hop = Hop{TTL: hop.TTL}
			}
		}
	}
}

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func isPrivate(addr string) bool {
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || sharedAddressSpace.Contains(ip)
}

// EnrichWithReverseDns fills the reverse DNS name of every answering hop.
func (r *Results) EnrichWithReverseDns(ctx context.Context, resolver *reversedns.Resolver) error {
	var addrs []string
	for _, run := range r.Runs {
		addrs = append(addrs, run.Addresses()...)
	}
	names, err := resolver.Names(ctx, addrs)
	if err != nil {
		return err
	}
	for _, run := range r.Runs {
		for _, hop := range run.Hops {
			if name, ok := names[hop.IP]; ok {
				hop.ReverseDns = name
			}
		}
	}
	return nil
}
