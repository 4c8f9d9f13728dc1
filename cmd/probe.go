// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Driftregion Systems

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/driftregion/mk3ctl/pkg/mk3"
	"github.com/spf13/cobra"
)

var probeTimeout time.Duration

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check whether a responsive MK3 interface is reachable",
	Long: `Open the connection, send a version request and wait for any valid frame.

An idle MK3 interface announces its version roughly once a second, so a
healthy link answers well within the timeout even when the device behind
it is switched off.

Exit status: 0 when the interface responds, 1 when the port opens but the
link stays silent or fails, 2 when the port cannot be opened.`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 3*time.Second, "How long to wait for a frame")
}

func runProbe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		cmd.SilenceErrors = true
		fmt.Printf("inaccessible: %v\n", err)
		// Distinguish "cannot open" from "opened but silent" for scripting
		return &exitError{code: 2, err: err}
	}
	defer conn.Close()

	state, err := mk3.Probe(context.Background(), conn, probeTimeout)
	switch {
	case err == nil:
		if !state.VersionSeen.IsZero() {
			fmt.Printf("ok: %s (interface version 0x%08X)\n", connInfo, state.Version)
		} else {
			fmt.Printf("ok: %s\n", connInfo)
		}
		return nil
	case errors.Is(err, mk3.ErrUnresponsive):
		cmd.SilenceErrors = true
		fmt.Printf("unresponsive: no frame within %s on %s\n", probeTimeout, connInfo)
		return &exitError{code: 1, err: err}
	default:
		cmd.SilenceErrors = true
		fmt.Printf("link failed: %v\n", err)
		return &exitError{code: 1, err: err}
	}
}

// exitError carries a process exit code through cobra
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

// ExitCode returns the exit code a failed command asks for, or 1.
func ExitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
