// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Driftregion Systems

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driftregion/mk3ctl/pkg/mk3"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Detect and analyze malformed frames and anomalous telemetry",
	Long: `Run a full session and track frame errors and anomalous values with
statistics.

Each decoded report is validated and the command detects:
  - Checksum failures and discarded bytes
  - Request timeouts and unresponsive devices
  - Anomalous telemetry values (voltages, frequencies, limit bounds)
  - Rates and trends (frame rate, error rate)

By default, only anomalies are displayed. Use --show-all to display valid
reports too. Statistics summaries are printed at configurable intervals.

Supports both serial and WebSocket connections.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all reports (not just anomalies)")
	statsCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
}

// printAnomalies prints validation errors for a report in highlighted format
func printAnomalies(r mk3.Report, anomalies []mk3.ValidationError) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;33mANOMALY:\033[0m %s\n", timestamp, reportName(r))
	for i, err := range anomalies {
		fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
	}
	fmt.Print(mk3.FormatReport(r))
	fmt.Println()
}

func runStats(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("mk3ctl - Link Statistics\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All reports\n")
	} else {
		fmt.Printf("Mode: Anomalies only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	opts := append([]mk3.SessionOption{}, sessionOpts...)
	opts = append(opts, mk3.WithReportHandler(func(r mk3.Report) {
		anomalies := mk3.ValidateReport(r)
		if len(anomalies) > 0 {
			printAnomalies(r, anomalies)
		} else if showAll {
			timestamp := time.Now().Format("15:04:05.000")
			fmt.Printf("[%s] %s\n%s", timestamp, reportName(r), mk3.FormatReport(r))
		}
	}))

	session := mk3.NewSession(conn, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Statistics ticker
	go func() {
		ticker := time.NewTicker(time.Duration(statsInterval) * time.Second)
		defer ticker.Stop()
		wasUnresponsive := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if session.Unresponsive() != wasUnresponsive {
					wasUnresponsive = !wasUnresponsive
					timestamp := time.Now().Format("15:04:05.000")
					if wasUnresponsive {
						fmt.Printf("[%s] \033[1;31mDEVICE UNRESPONSIVE\033[0m\n\n", timestamp)
					} else {
						fmt.Printf("[%s] \033[1;32mDEVICE RECOVERED\033[0m\n\n", timestamp)
					}
				}
				stats := session.Statistics()
				fmt.Println()
				fmt.Print(stats.String())
				fmt.Println()
			}
		}
	}()

	if err := session.Run(ctx); err != nil {
		return err
	}

	stats := session.Statistics()
	fmt.Println()
	fmt.Print(stats.String())
	return nil
}
