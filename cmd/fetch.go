// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/DataDog/netmet-geoloc/atlas"
	"github.com/DataDog/netmet-geoloc/campaign"
	"github.com/DataDog/netmet-geoloc/reversedns"
	"github.com/DataDog/netmet-geoloc/traceroute"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [measurement-id...]",
	Short: "Wait for measurements and collect their results (default: the scheduled ones)",
	Long: `Wait for measurements and collect their results (default: the scheduled ones).

Results are merged into the saved datasets: fetching another set of
measurements adds to them, fetching a measurement again replaces what it
produced before.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		return withEnv(func(e *env) error {
			if len(ids) == 0 {
				var kind atlas.MeasurementType
				if Args.kind != "" {
					if kind, err = atlas.ParseMeasurementType(Args.kind); err != nil {
						return err
					}
				}
				refs, err := e.runner.Measurements(cmd.Context(), kind)
				if err != nil {
					return fmt.Errorf("no measurement given and none scheduled: %w", err)
				}
				for _, ref := range refs {
					ids = append(ids, ref.ID)
				}
			}
			opts := campaign.CollectOptions{SkipPrivateHops: Args.skipPriv}
			if Args.reverseDns {
				opts.Resolver = reversedns.NewResolver(cfg.Workers)
			}
			c, err := e.runner.Collect(cmd.Context(), ids, opts)
			if err != nil {
				return err
			}
			if Args.asJSON {
				return printJSON(cmd.OutOrStdout(), c)
			}
			return printCollection(cmd.OutOrStdout(), c)
		})
	},
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid measurement id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printCollection(w io.Writer, c *campaign.Collection) error {
	if len(c.Records) > 0 {
		fmt.Fprintf(w, "%d ping records, %d minimum RTT observations\n", len(c.Records), len(c.Observations))
	}
	for _, tr := range c.Traceroutes {
		fmt.Fprintf(w, "\nmeasurement %d\n", tr.MeasurementID)
		if err := traceroute.RenderAll(w, tr); err != nil {
			return err
		}
	}
	if len(c.Resolutions) > 0 {
		fmt.Fprintln(w)
	}
	for _, res := range c.Resolutions {
		fmt.Fprintf(w, "%s: %s (%d probes, %d failed)\n",
			res.Hostname, strings.Join(res.Addresses, ", "), countProbes(res.Probes), res.Failed)
	}
	failed := make([]int, 0, len(c.Failed))
	for id := range c.Failed {
		failed = append(failed, id)
	}
	sort.Ints(failed)
	for _, id := range failed {
		fmt.Fprintf(w, "measurement %d failed: %s\n", id, c.Failed[id])
	}
	return nil
}

func countProbes(byAddr map[string][]int) int {
	seen := make(map[int]struct{})
	for _, ids := range byAddr {
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

func init() {
	fetchCmd.Flags().StringVarP(&Args.kind, "type", "t", "", "Only collect scheduled measurements of this type (ping, traceroute, dns)")
	fetchCmd.Flags().BoolVarP(&Args.reverseDns, "reverse-dns", "", false, "Enrich traceroute hops with reverse DNS names")
	fetchCmd.Flags().BoolVarP(&Args.skipPriv, "skip-private-hops", "", false, "Blank traceroute hops in private address space")
	fetchCmd.Flags().BoolVarP(&Args.asJSON, "json", "", false, "Print JSON")
	rootCmd.AddCommand(fetchCmd)
}
