// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package campaign

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/DataDog/netmet-geoloc/atlas"
	"github.com/DataDog/netmet-geoloc/dnsresult"
	"github.com/DataDog/netmet-geoloc/log"
	"github.com/DataDog/netmet-geoloc/result"
	"github.com/DataDog/netmet-geoloc/reversedns"
	"github.com/DataDog/netmet-geoloc/rtt"
	"github.com/DataDog/netmet-geoloc/store"
	"github.com/DataDog/netmet-geoloc/traceroute"
)

// Collection is what Collect gathered, by measurement type.
type Collection struct {
	Records      []result.MeasurementRecord `json:"records,omitempty"`
	Observations []result.RttObservation    `json:"observations,omitempty"`
	Traceroutes  []*traceroute.Results      `json:"traceroutes,omitempty"`
	DNSAnswers   []dnsresult.Answer         `json:"dns_answers,omitempty"`
	Resolutions  []dnsresult.Resolution     `json:"resolutions,omitempty"`
	// Failed maps the measurements that produced nothing to the reason.
	Failed map[int]string `json:"failed,omitempty"`
}

type collected struct {
	records    []result.MeasurementRecord
	traceroute *traceroute.Results
	answers    []dnsresult.Answer
	err        error
}

// CollectOptions tunes Collect.
type CollectOptions struct {
	// Resolver enriches traceroute hops with reverse DNS names when set.
	Resolver *reversedns.Resolver
	// SkipPrivateHops blanks traceroute hops in private address space.
	SkipPrivateHops bool
}

// Collect waits for every measurement and fetches its results, several
// measurements at a time. A measurement that fails or times out on the
// platform is reported in Failed; the call fails when the context ends or
// when nothing was collected. Ping records, traceroutes and DNS answers are
// merged into the saved datasets, which keeps successive fetches of
// different measurements; minimum RTTs and DNS resolutions are derived from
// the merged data.
func (r *Runner) Collect(ctx context.Context, ids []int, opts CollectOptions) (*Collection, error) {
	if len(ids) == 0 {
		return nil, &atlas.InvalidRequestError{Reason: "no measurement to collect"}
	}
	ids = append([]int(nil), ids...)
	sort.Ints(ids)

	outcomes := make([]collected, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, id := range ids {
		g.Go(func() error {
			out, err := r.collectOne(gctx, id, opts)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				_ = log.Warnf("campaign: measurement %d: %s", id, err)
				out.err = err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := &Collection{Failed: make(map[int]string)}
	var causes []error
	for i, out := range outcomes {
		if out.err != nil {
			c.Failed[ids[i]] = out.err.Error()
			causes = append(causes, out.err)
			continue
		}
		c.Records = append(c.Records, out.records...)
		if out.traceroute != nil {
			c.Traceroutes = append(c.Traceroutes, out.traceroute)
		}
		c.DNSAnswers = append(c.DNSAnswers, out.answers...)
	}
	if len(c.Records) == 0 && len(c.Traceroutes) == 0 && len(c.DNSAnswers) == 0 {
		return c, result.NoDataError(causes...)
	}

	if err := r.persist(ctx, c); err != nil {
		return nil, err
	}
	log.Infof("campaign: collected %d ping records, %d traceroutes, %d dns answers, %d failed",
		len(c.Records), len(c.Traceroutes), len(c.DNSAnswers), len(c.Failed))
	return c, nil
}

func (r *Runner) collectOne(ctx context.Context, id int, opts CollectOptions) (collected, error) {
	m, err := r.api.WaitForResults(ctx, id)
	if err != nil {
		return collected{}, err
	}
	switch m.Type {
	case atlas.TypePing:
		res, err := r.api.GetResults(ctx, id)
		if err != nil {
			return collected{}, err
		}
		return collected{records: atlas.Records(res)}, nil
	case atlas.TypeTraceroute:
		res, err := r.api.GetTracerouteResults(ctx, id)
		if err != nil {
			return collected{}, err
		}
		tr := traceroute.FromAtlas(id, res)
		if opts.SkipPrivateHops {
			tr.RemovePrivateHops()
		}
		if opts.Resolver != nil {
			if err := tr.EnrichWithReverseDns(ctx, opts.Resolver); err != nil {
				return collected{}, err
			}
		}
		return collected{traceroute: tr}, nil
	case atlas.TypeDNS:
		res, err := r.api.GetDNSResults(ctx, id)
		if err != nil {
			return collected{}, err
		}
		answers, err := dnsresult.FromResults(res)
		if err != nil {
			return collected{}, err
		}
		return collected{answers: answers}, nil
	}
	return collected{}, fmt.Errorf("measurement %d has unsupported type %q", id, m.Type)
}

// persist merges what was collected into the saved datasets. A fresh entry
// replaces the saved one with the same key: ping records by probe and
// destination, traceroutes by measurement, DNS answers by probe, resolver and
// hostname. Minimum RTTs and DNS resolutions are recomputed over the union.
func (r *Runner) persist(ctx context.Context, c *Collection) error {
	if len(c.Records) > 0 {
		c.Observations = rtt.MinRTTs(c.Records)
		records, err := mergeDataset(ctx, r.store, store.PingResults, c.Records, func(rec result.MeasurementRecord) [2]string {
			return [2]string{strconv.Itoa(rec.ProbeID), rec.DestinationAddress}
		})
		if err != nil {
			return err
		}
		if err := r.store.Save(ctx, store.Observations, rtt.MinRTTs(records)); err != nil {
			return err
		}
	}
	if len(c.Traceroutes) > 0 {
		_, err := mergeDataset(ctx, r.store, store.TraceResults, c.Traceroutes, func(tr *traceroute.Results) int {
			return tr.MeasurementID
		})
		if err != nil {
			return err
		}
	}
	if len(c.DNSAnswers) > 0 {
		c.Resolutions = dnsresult.Aggregate(c.DNSAnswers)
		answers, err := mergeDataset(ctx, r.store, store.DNSResults, c.DNSAnswers, func(a dnsresult.Answer) [3]string {
			return [3]string{strconv.Itoa(a.ProbeID), a.Resolver, a.Hostname}
		})
		if err != nil {
			return err
		}
		if err := r.store.Save(ctx, store.DNSResolutions, dnsresult.Aggregate(answers)); err != nil {
			return err
		}
	}
	return nil
}

// mergeDataset saves the saved entries of name whose key is not in fresh,
// followed by fresh, and returns what it saved.
func mergeDataset[T any, K comparable](ctx context.Context, st store.Store, name string, fresh []T, key func(T) K) ([]T, error) {
	var saved []T
	if err := st.Load(ctx, name, &saved); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	replaced := make(map[K]struct{}, len(fresh))
	for _, v := range fresh {
		replaced[key(v)] = struct{}{}
	}
	merged := make([]T, 0, len(saved)+len(fresh))
	for _, v := range saved {
		if _, ok := replaced[key(v)]; !ok {
			merged = append(merged, v)
		}
	}
	merged = append(merged, fresh...)
	if err := st.Save(ctx, name, merged); err != nil {
		return nil, err
	}
	if kept := len(merged) - len(fresh); kept > 0 {
		log.Debugf("campaign: %s keeps %d saved entries", name, kept)
	}
	return merged, nil
}
