// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

// Package mk3 provides a Go implementation of the Victron MK2/MK3 serial protocol.
//
// The MK3-USB (and older MK2-USB) interface adapts a host serial port to the
// VE.Bus network used by Victron Multi, MultiPlus and Quattro devices. This
// package provides frame encoding/decoding, checksum validation, command
// builders, report decoding, and a session that owns the request/reply and
// polling lifecycle of a link.
//
// See "Interfacing with VE.Bus products - MK2 Protocol" (Victron Energy).
package mk3

// Serial link parameters. The MK2/MK3 interface always runs at 2400 8N1.
const (
	DefaultBaudRate = 2400
)

// Frame size limits. A frame on the wire is a length byte L followed by
// L+1 bytes (body plus checksum). Observed frames never exceed a few dozen
// bytes; anything longer is treated as line noise.
const (
	MaxFrameLength = 64
	MinFrameLength = 1
)

// Command characters (outgoing command frames, body = 0xFF + command + data)
const (
	CmdReset     = 'R' // restart the interface firmware
	CmdVersion   = 'V' // request interface version
	CmdLED       = 'L' // request LED status
	CmdSnapshot  = 'F' // request a DC / AC / config snapshot frame
	CmdSetState  = 'S' // set remote switch state and current limit
	CmdInterface = 'H' // read or write interface GPIO flags (MK3 only)
	CmdAddress   = 'A' // select the VE.Bus device address
)

// RAM variable request commands. The interface rotates through four command
// letters so that a reply can be matched to the request that produced it.
const (
	CmdRAMVar0 = 'W'
	CmdRAMVar1 = 'X'
	CmdRAMVar2 = 'Y'
	CmdRAMVar3 = 'Z'
)

// RAM variable sub-commands (first data byte of a W/X/Y/Z request)
const (
	RAMVarReadInfo = 0x36 // read scaling info for a RAM variable id
)

// Reply frame kinds (first body byte of an incoming frame)
const (
	KindCommand = 0xFF // reply to a command, second byte is the command char
	KindInfo    = 0x20 // unsolicited-style DC / AC snapshot frame
	KindConfig  = 0x41 // panel configuration snapshot frame
)

// Info frame types (body byte 5 of a KindInfo frame)
const (
	InfoTypeDC      = 0x0C
	InfoTypeACPhase = 0x08 // phase 1 of a single-phase system; 0x05..0x0B overall
)

// Snapshot request ids (data byte of a CmdSnapshot frame)
const (
	SnapshotDC     = 0
	SnapshotACL1   = 1
	SnapshotACL2   = 2
	SnapshotACL3   = 3
	SnapshotACL4   = 4
	SnapshotConfig = 5
)

// RAM variable ids whose scaling is fetched during session startup.
// Ids 6 and 9+ exist on some firmware but are not polled here.
const (
	RAMIDUMainsRMS      = 0
	RAMIDIMainsRMS      = 1
	RAMIDUInverterRMS   = 2
	RAMIDIInverterRMS   = 3
	RAMIDUBat           = 4
	RAMIDIBat           = 5
	RAMIDInverterPeriod = 7
	RAMIDMainsPeriod    = 8
)

// SwitchState is the remote switch state requested with CmdSetState.
type SwitchState uint8

// Switch state values
const (
	SwitchChargerOnly  SwitchState = 1
	SwitchInverterOnly SwitchState = 2
	SwitchOn           SwitchState = 3
	SwitchOff          SwitchState = 4
)

// OpState is the operational state a device reports in AC snapshot frames.
type OpState uint8

// Operational state values
const (
	OpStateDown OpState = iota
	OpStateStartup
	OpStateOff
	OpStateSlave
	OpStateInvertFull
	OpStateInvertHalf
	OpStateInvertAES
	OpStatePowerAssist
	OpStateBypass
	OpStateCharge
)

// LEDs is a bitmask of front panel LEDs.
type LEDs uint8

// LED bitmask values
const (
	LEDMains      LEDs = 0x01
	LEDAbsorption LEDs = 0x02
	LEDBulk       LEDs = 0x04
	LEDFloat      LEDs = 0x08
	LEDInverter   LEDs = 0x10
	LEDOverload   LEDs = 0x20
	LEDLowBattery LEDs = 0x40
	LEDTemp       LEDs = 0x80
)

// SwitchRegister is the bitmask of switch inputs reported in config frames.
type SwitchRegister uint8

// Switch register bits. The "direct remote" bits reflect the state set
// through this interface with CmdSetState; the "front" bits reflect the
// physical two-position switch; the plain "switch" bits are the resolved
// state after all controls interact.
const (
	SwitchRegDirectRemoteCharge SwitchRegister = 0x01
	SwitchRegDirectRemoteInvert SwitchRegister = 0x02
	SwitchRegFrontUp            SwitchRegister = 0x04
	SwitchRegFrontDown          SwitchRegister = 0x08
	SwitchRegSwitchCharge       SwitchRegister = 0x10
	SwitchRegSwitchInvert       SwitchRegister = 0x20
	SwitchRegOnboardRemote      SwitchRegister = 0x40
	SwitchRegRemoteGenerator    SwitchRegister = 0x80
)

// InterfaceFlags control GPIO lines inside the MK3 interface itself.
type InterfaceFlags uint8

// Interface flag bits. The power-on default is 0x05, which suggests an
// additional flag of unknown purpose at bit 2.
const (
	// FlagPanelDetect asserts the panel-detect line. While set, the device
	// ignores its front switch unless the remote switch state allows it.
	FlagPanelDetect InterfaceFlags = 0x01
	// FlagStandby keeps the device awake while switched off so that the
	// interface can keep talking to it and switch it back on later. The
	// device draws more battery power in standby than asleep.
	FlagStandby InterfaceFlags = 0x02
	// FlagUndocumented04 is observed in the power-on default state.
	FlagUndocumented04 InterfaceFlags = 0x04

	DefaultInterfaceFlags = FlagPanelDetect | FlagUndocumented04
)

// Current limit wire encoding (deciamps, 0.1 A units)
const (
	currentLimitWireMax   = 0x7FFF // 3276.7 A
	currentLimitDeviceMax = 0x8000 // sentinel: use the device's own maximum
	deciampsPerAmp        = 10
)

// CurrentLimitDeviceMax requests the device's own maximum AC input current
// limit instead of a specific value.
const CurrentLimitDeviceMax float64 = -1

// MaxCurrentLimit is the largest AC input current limit the wire format can
// carry, in amps.
const MaxCurrentLimit float64 = float64(currentLimitWireMax) / deciampsPerAmp
