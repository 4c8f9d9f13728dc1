// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Driftregion Systems

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/driftregion/mk3ctl/pkg/mk3"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Play back a recorded telemetry stream",
	Long: `Read a CBOR stream file written by 'monitor --record' and print each
state snapshot.

No connection is required; this command works entirely offline.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	replayer := mk3.NewReplayer(f)
	count := 0

	for {
		record, err := replayer.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("record %d: %v", count+1, err)
		}
		count++

		state := record.State
		fmt.Printf("[%s]\n", record.Timestamp.Format("2006-01-02 15:04:05.000"))
		if !state.VersionSeen.IsZero() {
			fmt.Printf("  Version: 0x%08X\n", state.Version)
		}
		if !state.LEDsSeen.IsZero() {
			fmt.Printf("  LEDs: %s blink %s\n", mk3.FormatLEDs(state.LEDsOn), mk3.FormatLEDs(state.LEDsBlink))
		}
		if !state.DCSeen.IsZero() {
			fmt.Print(mk3.FormatReport(state.DC))
		}
		for phase := 0; phase < mk3.ACPhasesSupported; phase++ {
			if !state.ACSeen[phase].IsZero() {
				fmt.Print(mk3.FormatReport(state.AC[phase]))
			}
		}
		if !state.ConfigSeen.IsZero() {
			fmt.Print(mk3.FormatReport(state.Config))
		}
		fmt.Println()
	}

	fmt.Printf("%d snapshots\n", count)
	return nil
}
