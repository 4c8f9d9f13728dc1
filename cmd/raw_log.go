// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Driftregion Systems

package cmd

import (
	"fmt"
	"log"

	"github.com/driftregion/mk3ctl/pkg/mk3"
	"github.com/spf13/cobra"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw frame log in human-readable format",
	Long: `Continuously decode and display MK2/MK3 frames as they arrive.

This command listens passively: it never resets the interface and sends no
requests of its own, so it can also be used to observe traffic generated
by another controller sharing the link. Without an active controller, an
idle interface shows only its once-a-second version frame.

Info and config frames are shown as raw bytes because their scaling
factors are only known to a full session.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("mk3ctl - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := mk3.NewDecoder()
	scales := make(mk3.ScalingTable)
	buf := make([]byte, 128)

	for {
		n, err := conn.Read(buf)
		if err != nil {
			// For WebSocket connections, a read error usually means
			// the connection is permanently closed - exit gracefully
			if err == ErrConnectionClosed {
				log.Printf("Connection closed")
				return nil
			}
			log.Printf("Read error: %v", err)
			continue
		}

		for _, frame := range decoder.Feed(buf[:n]) {
			fmt.Print(mk3.FormatFrame(frame, scales))
		}
	}
}
