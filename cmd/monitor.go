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
	monitorStandby bool
	recordPath     string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display live telemetry from the connected device",
	Long: `Continuously poll the device behind the MK3 interface and display decoded
telemetry as it arrives.

The session resets the interface, fetches the scaling factors for the raw
telemetry variables, and then rotates through LED, DC, AC and configuration
snapshots. Each decoded report is printed with a timestamp.

With --record, every applied state snapshot is also appended to a CBOR
stream file which can be played back later with the replay command.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorStandby, "standby", false, "Assert the standby line for the whole session")
	monitorCmd.Flags().StringVar(&recordPath, "record", "", "Append state snapshots to a CBOR stream file")
}

// reportName returns a display name for a decoded report
func reportName(r mk3.Report) string {
	switch r := r.(type) {
	case mk3.VersionReport:
		return "VERSION"
	case mk3.InterfaceReport:
		return "INTERFACE_FLAGS"
	case mk3.LEDReport:
		return "LED_STATUS"
	case mk3.StateAckReport:
		return "STATE_ACK"
	case mk3.RAMVarReport:
		return "RAM_VAR"
	case mk3.DCReport:
		return "DC_SNAPSHOT"
	case mk3.ACReport:
		return fmt.Sprintf("AC_SNAPSHOT_L%d", r.Phase)
	case mk3.ConfigReport:
		return "CONFIG_SNAPSHOT"
	default:
		return "REPORT"
	}
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("mk3ctl - Live Telemetry\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	var recorder *mk3.Recorder
	if recordPath != "" {
		f, err := os.OpenFile(recordPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open record file: %v", err)
		}
		defer f.Close()
		recorder = mk3.NewRecorder(f)
		fmt.Printf("Recording snapshots to %s\n\n", recordPath)
	}

	opts := append([]mk3.SessionOption{}, sessionOpts...)
	if monitorStandby {
		opts = append(opts, mk3.WithStandby(true))
	}
	opts = append(opts, mk3.WithReportHandler(func(r mk3.Report) {
		timestamp := time.Now().Format("15:04:05.000")
		fmt.Printf("[%s] %s\n%s", timestamp, reportName(r), mk3.FormatReport(r))
	}))

	session := mk3.NewSession(conn, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if recorder != nil {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case state := <-session.Updates():
					recorder.Record(state, time.Now())
				}
			}
		}()
	}

	err = session.Run(ctx)
	if recorder != nil {
		fmt.Printf("\nRecorded %d snapshots\n", recorder.Count())
	}
	if err != nil {
		return err
	}

	stats := session.Statistics()
	fmt.Println()
	fmt.Print(stats.String())
	return nil
}
