// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package main provides the geolocation HTTP server binary
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/DataDog/netmet-geoloc/common"
	"github.com/DataDog/netmet-geoloc/config"
	ddlog "github.com/DataDog/netmet-geoloc/log"
	"github.com/DataDog/netmet-geoloc/server"
)

var (
	addr       string
	logLevel   string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "netmet-server",
	Short: "Geolocation HTTP server",
	Long:  `HTTP server that geolocates targets from RTT observations via REST API endpoints`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		level, err := ddlog.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		ddlog.SetLogLevel(level)

		srv := server.NewServer(cfg)

		log.Printf("Starting geolocation HTTP server on %s", addr)
		log.Printf("Log level set to: %s", level)
		log.Printf("Example usage: curl -X POST --data @request.json http://localhost%s/geolocate?method=cbg", addr)

		return srv.Start(addr)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&addr, "addr", "a", common.DefaultServerAddr, "HTTP server address to listen on")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", common.DefaultLogLevel, "Log level (error, warn, info, debug, trace)")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
