// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/DataDog/netmet-geoloc/atlas"
	"github.com/DataDog/netmet-geoloc/campaign"
)

func newMeasureCmd(kind atlas.MeasurementType, use, short string) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Atlas.RequireCredentials(); err != nil {
				return err
			}
			return withEnv(func(e *env) error {
				targets, err := scheduleTargets(cmd.Context(), e, kind, args)
				if err != nil {
					return err
				}
				probeIDs, err := scheduleProbes(cmd.Context(), e)
				if err != nil {
					return err
				}
				refs, err := e.runner.Schedule(cmd.Context(), kind, targets, probeIDs)
				if len(refs) > 0 {
					if perr := printRefs(cmd, refs); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	c.Flags().IntSliceVarP(&Args.probeIDs, "probes", "p", nil, "Probe ids to measure from (default: the saved vantage points)")
	c.Flags().BoolVarP(&Args.asJSON, "json", "", false, "Print JSON")
	return c
}

// scheduleTargets returns args, or the saved targets for ping and traceroute.
// DNS needs explicit hostnames.
func scheduleTargets(ctx context.Context, e *env, kind atlas.MeasurementType, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if kind == atlas.TypeDNS {
		return nil, &atlas.InvalidRequestError{Reason: "dns needs at least one hostname"}
	}
	saved, err := e.runner.Targets(ctx)
	if err != nil {
		return nil, fmt.Errorf("no target given and none saved (run probes --anchors): %w", err)
	}
	targets := make([]string, 0, len(saved))
	for _, t := range saved {
		targets = append(targets, t.Address)
	}
	return targets, nil
}

func scheduleProbes(ctx context.Context, e *env) ([]int, error) {
	if len(Args.probeIDs) > 0 {
		return Args.probeIDs, nil
	}
	vps, err := e.runner.VantagePoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("no probe given and none saved (run probes): %w", err)
	}
	return vps.IDs(), nil
}

func printRefs(cmd *cobra.Command, refs []campaign.MeasurementRef) error {
	if Args.asJSON {
		return printJSON(cmd.OutOrStdout(), refs)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tTARGET\tPROBES")
	for _, ref := range refs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", ref.ID, ref.Type, ref.Target, len(ref.ProbeIDs))
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(
		newMeasureCmd(atlas.TypePing, "ping [target...]", "Schedule ping measurements towards targets (default: the saved targets)"),
		newMeasureCmd(atlas.TypeTraceroute, "traceroute [target...]", "Schedule traceroute measurements towards targets (default: the saved targets)"),
		newMeasureCmd(atlas.TypeDNS, "dns hostname...", "Schedule DNS A lookups of hostnames"),
	)
}
