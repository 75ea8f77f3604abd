// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/DataDog/netmet-geoloc/config"
	"github.com/DataDog/netmet-geoloc/log"
)

type args struct {
	configPath string
	logLevel   string
	countries  []string
	anchors    bool
	probeIDs   []int
	kind       string
	reverseDns bool
	skipPriv   bool
	method     string
	asJSON     bool
}

var Args args

// cfg is loaded once per invocation by the root pre-run hook.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "netmet-geoloc",
	Short: "Latency-based IP geolocation on RIPE Atlas",
	Long: `Discover vantage points, schedule ping, traceroute and DNS measurements,
collect their results and geolocate targets with shortest ping or CBG.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(Args.configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") || loaded.LogLevel == "" {
			loaded.LogLevel = Args.logLevel
		}
		level, err := log.ParseLogLevel(loaded.LogLevel)
		if err != nil {
			return err
		}
		log.SetLogLevel(level)
		cfg = loaded
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func printJSON(w io.Writer, v any) error {
	jsonStr, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("JSON marshalling failed: %v", err)
	}
	_, err = fmt.Fprintln(w, string(jsonStr))
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&Args.configPath, "config", "c", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVarP(&Args.logLevel, "log-level", "l", "info", "Log level (error, warn, info, debug, trace)")
}
