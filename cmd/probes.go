// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var probesCmd = &cobra.Command{
	Use:   "probes [country...]",
	Short: "Discover the vantage points of countries (all connected probes when none)",
	RunE: func(cmd *cobra.Command, args []string) error {
		countries := append(append([]string(nil), Args.countries...), args...)
		return withEnv(func(e *env) error {
			if Args.anchors {
				targets, err := e.runner.DiscoverTargets(cmd.Context(), countries)
				if err != nil {
					return err
				}
				if Args.asJSON {
					return printJSON(cmd.OutOrStdout(), targets)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d anchors saved as targets and ground truth\n", len(targets))
				return nil
			}
			vps, err := e.runner.DiscoverVantagePoints(cmd.Context(), countries)
			if err != nil {
				return err
			}
			if Args.asJSON {
				return printJSON(cmd.OutOrStdout(), vps)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tADDRESS\tCOUNTRY\tLAT\tLON\tANCHOR")
			for _, vp := range vps {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\t%.4f\t%t\n",
					vp.ID, vp.Address, vp.CountryCode, vp.Point.Lat, vp.Point.Lon, vp.IsAnchor)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d vantage points saved\n", len(vps))
			return nil
		})
	},
}

func init() {
	probesCmd.Flags().StringSliceVarP(&Args.countries, "country", "C", nil, "Country codes to list probes from")
	probesCmd.Flags().BoolVarP(&Args.anchors, "anchors", "", false, "Save the anchors of the countries as targets with their ground truth")
	probesCmd.Flags().BoolVarP(&Args.asJSON, "json", "", false, "Print JSON")
	rootCmd.AddCommand(probesCmd)
}
