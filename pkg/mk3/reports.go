// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

// Report is a decoded frame from the device. The concrete types below
// cover every frame kind the interface is known to send; frames that do
// not match any of them decode to nil and are ignored.
type Report interface {
	report()
}

// VersionReport carries the interface firmware version. The interface
// sends one unprompted every second when the link is otherwise idle, which
// makes it a convenient liveness signal.
type VersionReport struct {
	Version uint32
}

// InterfaceReport echoes the interface GPIO flags after a read or write.
type InterfaceReport struct {
	Flags InterfaceFlags
}

// LEDReport carries the front panel LED status.
type LEDReport struct {
	On    LEDs
	Blink LEDs
}

// StateAckReport acknowledges a remote switch state request. It carries no
// data; the effect shows up in subsequent config frames.
type StateAckReport struct{}

// RAMVarReport is the raw reply to a W/X/Y/Z RAM variable request. The
// nonce identifies which of the four rotating command letters answered.
type RAMVarReport struct {
	Nonce int
	Body  []byte
}

// DCReport carries battery-side measurements. Currents are reported
// separately for the inverter and charger directions.
type DCReport struct {
	Voltage            float64 // V
	CurrentToInverter  float64 // A
	CurrentFromCharger float64 // A
	InverterFrequency  float64 // Hz
}

// ACReport carries mains-side measurements for one phase.
//
// NumPhases is only reported on phase 1 and is zero otherwise. Some
// devices (MultiPlus-II 2x120V) report it incorrectly.
type ACReport struct {
	Phase           int
	NumPhases       int
	OpState         OpState
	MainsVoltage    float64 // V
	MainsCurrent    float64 // A
	InverterVoltage float64 // V
	InverterCurrent float64 // A
	MainsFrequency  float64 // Hz
}

// ConfigReport carries the panel configuration snapshot.
type ConfigReport struct {
	LastActiveACInput    int
	CurrentLimitOverride bool // panel is overriding the current limit
	DMCDedicated         bool // a Digital Multi Control panel is dedicated
	NumACInputs          int
	RemotePanelDetected  bool
	MinimumCurrentLimit  float64 // A
	MaximumCurrentLimit  float64 // A
	ActualCurrentLimit   float64 // A
	SwitchRegister       SwitchRegister
}

func (VersionReport) report()   {}
func (InterfaceReport) report() {}
func (LEDReport) report()       {}
func (StateAckReport) report()  {}
func (RAMVarReport) report()    {}
func (DCReport) report()        {}
func (ACReport) report()        {}
func (ConfigReport) report()    {}

// DecodeReport interprets a decoded frame as a typed report. Info frames
// need the scaling table from the startup handshake; before it is complete
// they decode to nil. Unknown or truncated frames also decode to nil; the
// caller counts them but otherwise carries on.
func DecodeReport(f *Frame, scales ScalingTable) Report {
	body := f.Body()
	switch f.Kind() {
	case KindCommand:
		return decodeCommandReply(body)
	case KindInfo:
		return decodeInfoFrame(body, scales)
	case KindConfig:
		return decodeConfigFrame(body)
	}
	return nil
}

func decodeCommandReply(body []byte) Report {
	if len(body) < 2 {
		return nil
	}
	switch body[1] {
	case CmdVersion:
		if len(body) < 6 {
			return nil
		}
		version := uint32(body[2]) | uint32(body[3])<<8 | uint32(body[4])<<16 | uint32(body[5])<<24
		return VersionReport{Version: version}
	case CmdInterface:
		if len(body) < 3 {
			return nil
		}
		return InterfaceReport{Flags: InterfaceFlags(body[2])}
	case CmdLED:
		if len(body) < 4 {
			return nil
		}
		return LEDReport{On: LEDs(body[2]), Blink: LEDs(body[3])}
	case CmdSetState:
		return StateAckReport{}
	case CmdRAMVar0, CmdRAMVar1, CmdRAMVar2, CmdRAMVar3:
		return RAMVarReport{Nonce: int(body[1] - CmdRAMVar0), Body: body}
	}
	return nil
}

func decodeInfoFrame(body []byte, scales ScalingTable) Report {
	if len(body) < 15 || !scales.Complete() {
		return nil
	}

	switch {
	case body[5] == InfoTypeDC:
		return DCReport{
			Voltage:            scales[RAMIDUBat].Parse(body[6:8]),
			CurrentToInverter:  scales[RAMIDIBat].Parse(body[8:11]),
			CurrentFromCharger: scales[RAMIDIBat].Parse(body[11:14]),
			InverterFrequency:  periodToFrequency(scales[RAMIDInverterPeriod].Parse(body[14:15])),
		}
	case body[5] >= 0x05 && body[5] <= 0x0B:
		// body[1] and body[2] are back-feed factors that scale the mains
		// and inverter current measurements.
		phase := 9 - int(body[5])
		if phase < 1 {
			phase = 1
		}
		numPhases := int(body[5]) - 7
		if numPhases < 0 {
			numPhases = 0
		}
		return ACReport{
			Phase:           phase,
			NumPhases:       numPhases,
			OpState:         OpState(body[4]),
			MainsVoltage:    scales[RAMIDUMainsRMS].Parse(body[6:8]),
			MainsCurrent:    scales[RAMIDIMainsRMS].Parse(body[8:10]) * float64(body[1]),
			InverterVoltage: scales[RAMIDUInverterRMS].Parse(body[10:12]),
			InverterCurrent: scales[RAMIDIInverterRMS].Parse(body[12:14]) * float64(body[2]),
			MainsFrequency:  periodToFrequency(scales[RAMIDMainsPeriod].Parse(body[14:15])),
		}
	}
	return nil
}

func decodeConfigFrame(body []byte) Report {
	if len(body) < 13 {
		return nil
	}
	return ConfigReport{
		LastActiveACInput:    int(body[5] & 0x03),
		CurrentLimitOverride: body[5]&0x04 != 0,
		DMCDedicated:         body[5]&0x08 != 0,
		NumACInputs:          int(body[5]&0x70) >> 4,
		RemotePanelDetected:  body[5]&0x80 != 0,
		MinimumCurrentLimit:  float64(uint16(body[6])|uint16(body[7])<<8) / 10,
		MaximumCurrentLimit:  float64(uint16(body[8])|uint16(body[9])<<8) / 10,
		ActualCurrentLimit:   float64(uint16(body[10])|uint16(body[11])<<8) / 10,
		SwitchRegister:       SwitchRegister(body[12]),
	}
}
