// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/DataDog/netmet-geoloc/evaluation"
	"github.com/DataDog/netmet-geoloc/geolocation"
	"github.com/DataDog/netmet-geoloc/result"
)

var geolocateCmd = &cobra.Command{
	Use:   "geolocate",
	Short: "Geolocate the collected targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := geolocation.ParseMethod(Args.method)
		if err != nil {
			return err
		}
		return withEnv(func(e *env) error {
			estimation, err := e.runner.Geolocate(cmd.Context(), method)
			if err != nil {
				return err
			}
			if Args.asJSON {
				return printJSON(cmd.OutOrStdout(), estimation)
			}
			return printEstimation(cmd.OutOrStdout(), estimation)
		})
	},
}

var anycastCmd = &cobra.Command{
	Use:   "anycast",
	Short: "Flag collected targets whose latencies contradict a single location",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(e *env) error {
			report, err := e.runner.DetectAnycast(cmd.Context())
			if err != nil {
				return err
			}
			if Args.asJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			w := cmd.OutOrStdout()
			for _, target := range report.Flagged {
				v := report.Violations[target]
				fmt.Fprintf(w, "%s: probes %d and %d are %.0f km apart but at most %.0f km from the target\n",
					target, v.A.VantagePointID, v.B.VantagePointID, v.InterVPDistanceKm, v.A.DistanceKm+v.B.DistanceKm)
			}
			fmt.Fprintf(w, "%d anycast targets, %d vantage point pairs compared\n", len(report.Flagged), report.ComparedPairs)
			return nil
		})
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compare shortest ping and CBG against the ground truth",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnv(func(e *env) error {
			reports, err := e.runner.Evaluate(cmd.Context())
			if err != nil {
				return err
			}
			if Args.asJSON {
				return printJSON(cmd.OutOrStdout(), reports)
			}
			return printReports(cmd.OutOrStdout(), reports)
		})
	},
}

func printEstimation(w io.Writer, estimation *result.Estimation) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tLAT\tLON\tPROBE")
	for _, target := range estimation.Targets() {
		est := estimation.Estimates[target]
		probe := "-"
		if est.VantagePointID != 0 {
			probe = fmt.Sprint(est.VantagePointID)
		}
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%s\n", target, est.Point.Lat, est.Point.Lon, probe)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %d located, %d skipped (run %s)\n",
		estimation.Method, len(estimation.Estimates), len(estimation.Skipped), estimation.RunID)
	return nil
}

// printReports prints the median error of both methods side by side.
func printReports(w io.Writer, reports map[result.Method]*evaluation.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tTARGETS\tMEDIAN ERROR")
	for _, method := range []result.Method{result.MethodShortestPing, result.MethodCBG} {
		report, ok := reports[method]
		if !ok {
			fmt.Fprintf(tw, "%s\t0\tno data\n", method)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%.2f km\n", method, len(report.Errors), report.MedianKm)
	}
	return tw.Flush()
}

func init() {
	geolocateCmd.Flags().StringVarP(&Args.method, "method", "m", string(result.MethodCBG), "Geolocation method (shortest_ping, cbg)")
	for _, c := range []*cobra.Command{geolocateCmd, anycastCmd, evaluateCmd} {
		c.Flags().BoolVarP(&Args.asJSON, "json", "", false, "Print JSON")
		rootCmd.AddCommand(c)
	}
}
