// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Driftregion Systems

package cmd

import (
	"log"
	"time"

	"github.com/driftregion/mk3ctl/internal/config"
	"github.com/driftregion/mk3ctl/pkg/mk3"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Global behaviour flags
	configPath string
	verbose    bool

	// Session options assembled from the config file and flags
	sessionOpts []mk3.SessionOption
)

var rootCmd = &cobra.Command{
	Use:   "mk3ctl",
	Short: "Victron MK3-USB interface driver",
	Long: `mk3ctl - A CLI tool for monitoring and controlling Victron VE.Bus devices
through an MK3-USB interface.

Provides commands for live telemetry monitoring, remote switch control,
raw frame logging, link diagnostics and a terminal dashboard.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 2400]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the MK3CTL_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: applyConfigFile,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", mk3.DefaultBaudRate, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log raw frame traffic")
}

// applyConfigFile merges the configuration file into the flag variables.
// Flags given explicitly on the command line win over the file.
func applyConfigFile(cmd *cobra.Command, args []string) error {
	sessionOpts = nil
	if verbose {
		sessionOpts = append(sessionOpts, mk3.WithTrace(func(dir string, data []byte) {
			log.Printf("%s % X", dir, data)
		}))
	}

	if configPath == "" {
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if cfg.Connection.Port != "" && !cmd.Flags().Changed("port") {
		portName = cfg.Connection.Port
	}
	if cfg.Connection.Baud != 0 && !cmd.Flags().Changed("baud") {
		baudRate = cfg.Connection.Baud
	}
	if cfg.Connection.URL != "" && !cmd.Flags().Changed("url") {
		wsURL = cfg.Connection.URL
	}
	if cfg.Connection.Username != "" && !cmd.Flags().Changed("username") {
		wsUsername = cfg.Connection.Username
	}
	if cfg.Connection.NoSSLVerify && !cmd.Flags().Changed("no-ssl-verify") {
		wsNoSSLVerify = true
	}

	if cfg.Session.PollIntervalMs > 0 {
		sessionOpts = append(sessionOpts, mk3.WithPollInterval(time.Duration(cfg.Session.PollIntervalMs)*time.Millisecond))
	}
	if cfg.Session.ReplyTimeoutMs > 0 {
		sessionOpts = append(sessionOpts, mk3.WithReplyTimeout(time.Duration(cfg.Session.ReplyTimeoutMs)*time.Millisecond))
	}
	if cfg.Session.Retries != nil {
		sessionOpts = append(sessionOpts, mk3.WithRetries(*cfg.Session.Retries))
	}
	if cfg.Session.KeepAliveSec > 0 {
		sessionOpts = append(sessionOpts, mk3.WithKeepAliveInterval(time.Duration(cfg.Session.KeepAliveSec)*time.Second))
	}
	if cfg.Session.Standby {
		sessionOpts = append(sessionOpts, mk3.WithStandby(true))
	}

	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
