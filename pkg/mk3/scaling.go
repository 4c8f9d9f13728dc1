// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import "math"

// VariableScale describes how to convert a raw RAM variable value into
// engineering units. The device reports one per variable id during the
// startup handshake; measurements in DC and AC snapshot frames cannot be
// interpreted without it.
type VariableScale struct {
	Signed bool
	Scale  float64
	Offset int32
}

// Parse converts a 1 to 3 byte little-endian raw value to engineering
// units, sign-extending when the variable is signed.
func (v VariableScale) Parse(raw []byte) float64 {
	var value int32
	switch len(raw) {
	case 1:
		value = int32(raw[0])
		if v.Signed && value >= 0x80 {
			value -= 0x100
		}
	case 2:
		value = int32(raw[0]) | int32(raw[1])<<8
		if v.Signed && value >= 0x8000 {
			value -= 0x10000
		}
	case 3:
		value = int32(raw[0]) | int32(raw[1])<<8 | int32(raw[2])<<16
		if v.Signed && value >= 0x800000 {
			value -= 0x1000000
		}
	default:
		return 0
	}
	return v.Scale * float64(value+v.Offset)
}

// ParseVariableScale decodes a W/X/Y/Z variable-info reply body into a
// VariableScale. Returns false if the body does not carry variable info.
func ParseVariableScale(body []byte) (VariableScale, bool) {
	if len(body) < 8 || body[2] != 0x8E || body[5] != 0x8F {
		return VariableScale{}, false
	}

	scale := float64(int(body[3]) | int(body[4])<<8)
	signed := false
	if scale >= 0x8000 {
		scale = 0x10000 - scale
		signed = true
	}
	if scale >= 0x4000 {
		scale = 1 / (0x8000 - scale)
	}
	offset := int32(int(body[6]) | int(body[7])<<8)

	return VariableScale{Signed: signed, Scale: scale, Offset: offset}, true
}

// scalingIDs lists the RAM variable ids whose scales are required before
// DC and AC snapshot frames can be decoded.
var scalingIDs = []uint16{
	RAMIDUMainsRMS,
	RAMIDIMainsRMS,
	RAMIDUInverterRMS,
	RAMIDIInverterRMS,
	RAMIDUBat,
	RAMIDIBat,
	RAMIDInverterPeriod,
	RAMIDMainsPeriod,
}

// ScalingTable holds the variable scales learned during session startup.
type ScalingTable map[uint16]VariableScale

// Complete reports whether every required variable scale is present.
func (t ScalingTable) Complete() bool {
	for _, id := range scalingIDs {
		if _, ok := t[id]; !ok {
			return false
		}
	}
	return true
}

// periodToFrequency converts a period measurement (0.1 s units) to a
// frequency in Hz, rounded to two decimals. A zero period means no signal.
func periodToFrequency(period float64) float64 {
	if period == 0 {
		return 0
	}
	return math.Round(10/period*100) / 100
}
