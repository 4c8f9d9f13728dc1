// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import (
	"fmt"
	"math"
)

// Request builder functions create wire-ready command frames. Builders with
// no variable arguments cannot fail and return the frame directly.

// NewResetRequest creates an 'R' frame that restarts the interface
// firmware. The interface answers with its version frame once it is back.
func NewResetRequest() []byte {
	return MustEncodeFrame(CmdReset, nil)
}

// NewVersionRequest creates a 'V' frame requesting the interface version.
func NewVersionRequest() []byte {
	return MustEncodeFrame(CmdVersion, nil)
}

// NewLEDRequest creates an 'L' frame requesting the front panel LED status.
func NewLEDRequest() []byte {
	return MustEncodeFrame(CmdLED, nil)
}

// NewAddressRequest creates an 'A' frame selecting the default VE.Bus
// device address. Must be sent before RAM variable requests.
func NewAddressRequest() []byte {
	return MustEncodeFrame(CmdAddress, []byte{0x01, 0x00})
}

// NewInterfaceFlagsRead creates an 'H' frame that reads the interface GPIO
// flags without changing them.
func NewInterfaceFlagsRead() []byte {
	return MustEncodeFrame(CmdInterface, nil)
}

// NewInterfaceFlagsWrite creates an 'H' frame that sets the interface GPIO
// flags. The interface echoes the new flags in its reply.
func NewInterfaceFlagsWrite(flags InterfaceFlags) []byte {
	return MustEncodeFrame(CmdInterface, []byte{byte(flags)})
}

// NewSnapshotRequest creates an 'F' frame requesting a DC, AC phase or
// config snapshot. Valid ids are SnapshotDC through SnapshotConfig.
func NewSnapshotRequest(id int) ([]byte, error) {
	if id < SnapshotDC || id > SnapshotConfig {
		return nil, fmt.Errorf("%w: snapshot id %d out of range", ErrInvalidArgument, id)
	}
	return EncodeFrame(CmdSnapshot, []byte{byte(id)})
}

// NewRAMVarInfoRequest creates a W/X/Y/Z frame requesting the scaling info
// for a RAM variable id. The nonce (0-3) selects the command letter; the
// reply arrives on the same letter, which is how replies are matched to
// requests.
func NewRAMVarInfoRequest(nonce int, id uint16) ([]byte, error) {
	if nonce < 0 || nonce > 3 {
		return nil, fmt.Errorf("%w: nonce %d out of range", ErrInvalidArgument, nonce)
	}
	data := []byte{RAMVarReadInfo, byte(id), byte(id >> 8)}
	return EncodeFrame(CmdRAMVar0+byte(nonce), data)
}

// EncodeCurrentLimit converts an AC input current limit in amps to the
// 0.1 A fixed-point wire encoding. CurrentLimitDeviceMax selects the
// device's own maximum. Values that cannot be represented fail with
// ErrInvalidArgument rather than being clamped.
func EncodeCurrentLimit(limit float64) (uint16, error) {
	if limit == CurrentLimitDeviceMax {
		return currentLimitDeviceMax, nil
	}
	if limit < 0 || limit > MaxCurrentLimit {
		return 0, fmt.Errorf("%w: current limit %g A out of range (0 to %g)", ErrInvalidArgument, limit, MaxCurrentLimit)
	}
	return uint16(math.Round(limit * deciampsPerAmp)), nil
}

// NewStateRequest creates an 'S' frame that sets the remote switch state
// and AC input current limit. The device acknowledges with a bare 'S'
// reply; the acknowledgment does not echo the requested state, so callers
// confirm the effect through subsequent config frames.
func NewStateRequest(state SwitchState, limit float64) ([]byte, error) {
	switch state {
	case SwitchChargerOnly, SwitchInverterOnly, SwitchOn, SwitchOff:
	default:
		return nil, fmt.Errorf("%w: switch state %d", ErrInvalidArgument, state)
	}

	deciamps, err := EncodeCurrentLimit(limit)
	if err != nil {
		return nil, err
	}

	data := []byte{byte(state), byte(deciamps), byte(deciamps >> 8), 0x01, 0x80}
	return EncodeFrame(CmdSetState, data)
}
