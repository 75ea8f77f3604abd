// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2025-present Datadog, Inc.

package traceroute

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Render writes a run the way the traceroute command line tool does, one
// line per TTL, with "*" for hops that did not answer.
func Render(w io.Writer, run Run) error {
	dst := run.Destination
	if run.DestinationName != "" && run.DestinationName != run.Destination {
		dst = fmt.Sprintf("%s (%s)", run.DestinationName, run.Destination)
	}
	if _, err := fmt.Fprintf(w, "traceroute from probe %d (%s) to %s, %s\n",
		run.ProbeID, run.Source, dst, strings.ToUpper(run.Protocol)); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, hop := range run.Hops {
		if hop.IP == "" {
			fmt.Fprintf(tw, "%d\t*\t\t\n", hop.TTL)
			continue
		}
		addr := hop.IP
		if hop.ReverseDns != "" {
			addr = fmt.Sprintf("%s (%s)", hop.ReverseDns, hop.IP)
		}
		fmt.Fprintf(tw, "%d\t%s\t%.3f ms\t\n", hop.TTL, addr, hop.RTT)
	}
	return tw.Flush()
}

// RenderAll writes every run separated by a blank line followed by the hop
// statistics.
func RenderAll(w io.Writer, res *Results) error {
	for i, run := range res.Runs {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := Render(w, run); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d runs, hops avg %.1f min %d max %d\n",
		len(res.Runs), res.Hops.Avg, res.Hops.Min, res.Hops.Max)
	return err
}
