// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems
//
// mk3ctl - Victron MK3-USB Interface Driver
//
// A CLI tool for monitoring and controlling Victron VE.Bus devices
// (Multi, MultiPlus, Quattro) through an MK3-USB or MK2-USB interface.

package main

import (
	"os"

	"github.com/driftregion/mk3ctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
