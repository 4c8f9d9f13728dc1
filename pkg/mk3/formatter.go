// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import (
	"fmt"
	"strings"
)

// FormatFrame formats a decoded frame into a human-readable string with a
// timestamp header and the decoded report, if any.
func FormatFrame(f *Frame, scales ScalingTable) string {
	timestamp := f.Timestamp().Format("15:04:05.000")
	report := DecodeReport(f, scales)

	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d\n", timestamp, FrameName(f), f.Kind(), len(f.Body()))
	if report != nil {
		result += FormatReport(report)
	} else {
		result += fmt.Sprintf("  Body: % X\n", f.Body())
	}
	return result
}

// FrameName returns the human-readable name for a frame
func FrameName(f *Frame) string {
	switch f.Kind() {
	case KindCommand:
		switch f.Reply() {
		case CmdVersion:
			return "VERSION"
		case CmdInterface:
			return "INTERFACE_FLAGS"
		case CmdLED:
			return "LED_STATUS"
		case CmdSetState:
			return "STATE_ACK"
		case CmdRAMVar0, CmdRAMVar1, CmdRAMVar2, CmdRAMVar3:
			return "RAM_VAR"
		default:
			return "COMMAND_REPLY"
		}
	case KindInfo:
		body := f.Body()
		if len(body) >= 6 {
			if body[5] == InfoTypeDC {
				return "DC_SNAPSHOT"
			}
			if body[5] >= 0x05 && body[5] <= 0x0B {
				phase := 9 - int(body[5])
				if phase < 1 {
					phase = 1
				}
				return fmt.Sprintf("AC_SNAPSHOT_L%d", phase)
			}
		}
		return "INFO"
	case KindConfig:
		return "CONFIG_SNAPSHOT"
	default:
		return "UNKNOWN"
	}
}

// FormatReport formats a decoded report as indented detail lines
func FormatReport(r Report) string {
	switch r := r.(type) {
	case VersionReport:
		return fmt.Sprintf("  Version: %d (0x%08X)\n", r.Version, r.Version)

	case InterfaceReport:
		return fmt.Sprintf("  Flags: %s (0x%02X)\n", FormatInterfaceFlags(r.Flags), uint8(r.Flags))

	case LEDReport:
		return fmt.Sprintf("  On: %s\n  Blink: %s\n", FormatLEDs(r.On), FormatLEDs(r.Blink))

	case StateAckReport:
		return "  (state request acknowledged)\n"

	case RAMVarReport:
		return fmt.Sprintf("  Nonce: %d, Body: % X\n", r.Nonce, r.Body)

	case DCReport:
		return fmt.Sprintf("  Battery: %.2f V, ToInverter: %.1f A, FromCharger: %.1f A, Inverter: %.2f Hz\n",
			r.Voltage, r.CurrentToInverter, r.CurrentFromCharger, r.InverterFrequency)

	case ACReport:
		result := fmt.Sprintf("  Phase: L%d", r.Phase)
		if r.NumPhases > 0 {
			result += fmt.Sprintf(" of %d", r.NumPhases)
		}
		result += fmt.Sprintf(", State: %s\n", FormatOpState(r.OpState))
		result += fmt.Sprintf("  Mains: %.1f V %.1f A %.2f Hz, Inverter: %.1f V %.1f A\n",
			r.MainsVoltage, r.MainsCurrent, r.MainsFrequency, r.InverterVoltage, r.InverterCurrent)
		return result

	case ConfigReport:
		result := fmt.Sprintf("  AC Inputs: %d (last active: %d), Remote Panel: %v\n",
			r.NumACInputs, r.LastActiveACInput, r.RemotePanelDetected)
		result += fmt.Sprintf("  Current Limit: %.1f A (range %.1f to %.1f A", r.ActualCurrentLimit,
			r.MinimumCurrentLimit, r.MaximumCurrentLimit)
		if r.CurrentLimitOverride {
			result += ", overridden by panel"
		}
		result += ")\n"
		result += fmt.Sprintf("  Switches: %s (0x%02X)\n", FormatSwitchRegister(r.SwitchRegister), uint8(r.SwitchRegister))
		return result
	}
	return ""
}

// FormatOpState returns a human-readable operational state name
func FormatOpState(s OpState) string {
	names := []string{"DOWN", "STARTUP", "OFF", "SLAVE", "INVERT_FULL", "INVERT_HALF",
		"INVERT_AES", "POWER_ASSIST", "BYPASS", "CHARGE"}
	if int(s) < len(names) {
		return names[s]
	}
	return "UNKNOWN"
}

// FormatSwitchState returns a human-readable switch state name
func FormatSwitchState(s SwitchState) string {
	switch s {
	case SwitchChargerOnly:
		return "CHARGER_ONLY"
	case SwitchInverterOnly:
		return "INVERTER_ONLY"
	case SwitchOn:
		return "ON"
	case SwitchOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// FormatLEDs returns a human-readable LED bitmask description
func FormatLEDs(leds LEDs) string {
	if leds == 0 {
		return "(none)"
	}
	names := []struct {
		bit  LEDs
		name string
	}{
		{LEDMains, "MAINS"},
		{LEDAbsorption, "ABSORPTION"},
		{LEDBulk, "BULK"},
		{LEDFloat, "FLOAT"},
		{LEDInverter, "INVERTER"},
		{LEDOverload, "OVERLOAD"},
		{LEDLowBattery, "LOW_BATTERY"},
		{LEDTemp, "TEMPERATURE"},
	}
	parts := []string{}
	for _, n := range names {
		if leds&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// FormatInterfaceFlags returns a human-readable interface flags description
func FormatInterfaceFlags(flags InterfaceFlags) string {
	if flags == 0 {
		return "(none)"
	}
	parts := []string{}
	if flags&FlagPanelDetect != 0 {
		parts = append(parts, "PANEL_DETECT")
	}
	if flags&FlagStandby != 0 {
		parts = append(parts, "STANDBY")
	}
	if flags&FlagUndocumented04 != 0 {
		parts = append(parts, "UNDOCUMENTED_04")
	}
	if rest := flags &^ (FlagPanelDetect | FlagStandby | FlagUndocumented04); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02X", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// FormatSwitchRegister returns a human-readable switch register description
func FormatSwitchRegister(reg SwitchRegister) string {
	if reg == 0 {
		return "(none)"
	}
	names := []struct {
		bit  SwitchRegister
		name string
	}{
		{SwitchRegDirectRemoteCharge, "DIRECT_REMOTE_CHARGE"},
		{SwitchRegDirectRemoteInvert, "DIRECT_REMOTE_INVERT"},
		{SwitchRegFrontUp, "FRONT_UP"},
		{SwitchRegFrontDown, "FRONT_DOWN"},
		{SwitchRegSwitchCharge, "SWITCH_CHARGE"},
		{SwitchRegSwitchInvert, "SWITCH_INVERT"},
		{SwitchRegOnboardRemote, "ONBOARD_REMOTE"},
		{SwitchRegRemoteGenerator, "REMOTE_GENERATOR"},
	}
	parts := []string{}
	for _, n := range names {
		if reg&n.bit != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}
