// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

// Package dnsresult decodes the DNS answers collected by platform probes and
// aggregates the addresses each hostname resolved to.
package dnsresult

import (
	"encoding/base64"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/miekg/dns"

	"github.com/DataDog/netmet-geoloc/atlas"
	"github.com/DataDog/netmet-geoloc/log"
	"github.com/DataDog/netmet-geoloc/result"
)

// ErrNoAnswer is returned for a probe result that carries no DNS message.
var ErrNoAnswer = errors.New("no dns answer")

type (
	// Answer is one DNS response received by a probe.
	Answer struct {
		ProbeID   int      `json:"prb_id"`
		Resolver  string   `json:"resolver,omitempty"`
		Hostname  string   `json:"hostname"`
		Rcode     string   `json:"rcode"`
		Addresses []string `json:"addresses"`
		CNAMEs    []string `json:"cnames,omitempty"`
		RTT       float64  `json:"rt"`
	}

	// Resolution gathers the answers for one hostname.
	Resolution struct {
		Hostname string `json:"hostname"`
		// Addresses are the distinct A and AAAA records, sorted.
		Addresses []string `json:"addresses"`
		// Probes maps each address to the probes that received it.
		Probes map[string][]int `json:"probes"`
		// Failed counts answers with a non NOERROR code.
		Failed int `json:"failed,omitempty"`
	}
)

// DecodeAbuf unpacks a base64 encoded wire message.
func DecodeAbuf(abuf string) (*dns.Msg, error) {
	raw, err := base64.StdEncoding.DecodeString(abuf)
	if err != nil {
		return nil, fmt.Errorf("decode abuf: %w", err)
	}
	msg := new(dns.Msg)
	if err := msg.Unpack(raw); err != nil {
		return nil, fmt.Errorf("unpack dns message: %w", err)
	}
	return msg, nil
}

// NewAnswer extracts the question and address records of a message.
func NewAnswer(probeID int, resolver string, msg *dns.Msg) (Answer, error) {
	if len(msg.Question) == 0 {
		return Answer{}, fmt.Errorf("probe %d: dns message has no question", probeID)
	}
	hostname, err := atlas.NormalizeHostname(msg.Question[0].Name)
	if err != nil {
		return Answer{}, err
	}
	a := Answer{
		ProbeID:   probeID,
		Resolver:  resolver,
		Hostname:  hostname,
		Rcode:     dns.RcodeToString[msg.Rcode],
		Addresses: []string{},
	}
	for _, rr := range msg.Answer {
		switch rec := rr.(type) {
		case *dns.A:
			a.Addresses = append(a.Addresses, rec.A.String())
		case *dns.AAAA:
			a.Addresses = append(a.Addresses, rec.AAAA.String())
		case *dns.CNAME:
			a.CNAMEs = append(a.CNAMEs, strings.TrimSuffix(dns.CanonicalName(rec.Target), "."))
		}
	}
	return a, nil
}

// FromResult decodes every answer of a probe result, one per queried
// resolver.
func FromResult(r atlas.DNSResult) ([]Answer, error) {
	sets := r.Answers()
	if len(sets) == 0 {
		return nil, fmt.Errorf("probe %d: %w", r.ProbeID, ErrNoAnswer)
	}
	var answers []Answer
	var errs []error
	for _, set := range sets {
		if set.Result == nil || set.Result.Abuf == "" {
			errs = append(errs, fmt.Errorf("probe %d resolver %s: %w", r.ProbeID, set.DstAddress, ErrNoAnswer))
			continue
		}
		msg, err := DecodeAbuf(set.Result.Abuf)
		if err != nil {
			errs = append(errs, fmt.Errorf("probe %d resolver %s: %w", r.ProbeID, set.DstAddress, err))
			continue
		}
		a, err := NewAnswer(r.ProbeID, set.DstAddress, msg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		a.RTT = set.Result.RT
		answers = append(answers, a)
	}
	if len(answers) == 0 {
		return nil, errors.Join(errs...)
	}
	for _, err := range errs {
		log.Debugf("dns result skipped: %s", err)
	}
	return answers, nil
}

// FromResults decodes a batch. Unusable probe results are logged and
// skipped; a batch without any answer is ErrNoData.
func FromResults(results []atlas.DNSResult) ([]Answer, error) {
	var answers []Answer
	var errs []error
	for _, r := range results {
		as, err := FromResult(r)
		if err != nil {
			_ = log.Warnf("%s", err)
			errs = append(errs, err)
			continue
		}
		answers = append(answers, as...)
	}
	if len(answers) == 0 {
		return nil, result.NoDataError(errs...)
	}
	return answers, nil
}

// Aggregate groups answers by hostname, sorted by hostname.
func Aggregate(answers []Answer) []Resolution {
	byHost := make(map[string]*Resolution)
	for _, a := range answers {
		res, ok := byHost[a.Hostname]
		if !ok {
			res = &Resolution{Hostname: a.Hostname, Probes: make(map[string][]int)}
			byHost[a.Hostname] = res
		}
		if a.Rcode != dns.RcodeToString[dns.RcodeSuccess] {
			res.Failed++
			continue
		}
		for _, addr := range a.Addresses {
			if _, ok := res.Probes[addr]; !ok {
				res.Addresses = append(res.Addresses, addr)
			}
			if !slices.Contains(res.Probes[addr], a.ProbeID) {
				res.Probes[addr] = append(res.Probes[addr], a.ProbeID)
			}
		}
	}

	out := make([]Resolution, 0, len(byHost))
	for _, res := range byHost {
		sort.Strings(res.Addresses)
		for _, ids := range res.Probes {
			sort.Ints(ids)
		}
		if res.Addresses == nil {
			res.Addresses = []string{}
		}
		out = append(out, *res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hostname < out[j].Hostname })
	return out
}
