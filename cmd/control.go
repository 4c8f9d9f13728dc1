// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Driftregion Systems

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driftregion/mk3ctl/pkg/mk3"
	"github.com/spf13/cobra"
)

var (
	controlCurrentLimit float64
	controlTimeout      time.Duration
)

var controlCmd = &cobra.Command{
	Use:   "control <on|off|charger_only|inverter_only>",
	Short: "Set the remote switch state and AC input current limit",
	Long: `Switch the device on or off, or restrict it to charger or inverter
operation, together with the AC input current limit.

The current limit is given in amps. Without --current-limit, the device's
own configured maximum is selected. The device only honours the requested
limit when no dedicated remote panel overrides it.

The remote state is held by the device until changed again; the command
exits once the device acknowledges the request.

Supports both serial and WebSocket connections.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off", "charger_only", "inverter_only"},
	RunE:      runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.Flags().Float64Var(&controlCurrentLimit, "current-limit", mk3.CurrentLimitDeviceMax,
		"AC input current limit in amps (default: device maximum)")
	controlCmd.Flags().DurationVar(&controlTimeout, "timeout", 30*time.Second,
		"Give up if the device has not acknowledged within this duration")
}

// parseSwitchState maps the command argument to a switch state
func parseSwitchState(arg string) (mk3.SwitchState, error) {
	switch arg {
	case "on":
		return mk3.SwitchOn, nil
	case "off":
		return mk3.SwitchOff, nil
	case "charger_only":
		return mk3.SwitchChargerOnly, nil
	case "inverter_only":
		return mk3.SwitchInverterOnly, nil
	default:
		return 0, fmt.Errorf("unknown state %q (use on, off, charger_only or inverter_only)", arg)
	}
}

func runControl(cmd *cobra.Command, args []string) error {
	state, err := parseSwitchState(args[0])
	if err != nil {
		return err
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("mk3ctl - Remote Control\n")
	fmt.Printf("Connection: %s\n\n", connInfo)

	session := mk3.NewSession(conn, sessionOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, controlTimeout)
	defer cancel()

	runDone := make(chan error, 1)
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	go func() { runDone <- session.Run(runCtx) }()

	// The startup handshake shares the link with correlated requests, so
	// retry while it is in flight
	for {
		err = session.SetRemoteState(ctx, state, controlCurrentLimit)
		if !errors.Is(err, mk3.ErrBusy) {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-time.After(100 * time.Millisecond):
			continue
		}
		break
	}

	stopRun()
	select {
	case runErr := <-runDone:
		if err == nil && runErr != nil {
			err = runErr
		}
	case <-time.After(time.Second):
	}

	if err != nil {
		return fmt.Errorf("state request failed: %w", err)
	}

	if controlCurrentLimit == mk3.CurrentLimitDeviceMax {
		fmt.Printf("Device acknowledged: %s, current limit: device maximum\n", mk3.FormatSwitchState(state))
	} else {
		fmt.Printf("Device acknowledged: %s, current limit: %.1f A\n", mk3.FormatSwitchState(state), controlCurrentLimit)
	}
	return nil
}
