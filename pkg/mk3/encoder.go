// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import "fmt"

// EncodeFrame builds a complete wire-formatted command frame:
// [length, 0xFF, command, data..., checksum]. The length byte counts the
// 0xFF marker, the command character and the data; the checksum makes the
// whole frame sum to zero modulo 256.
func EncodeFrame(command byte, data []byte) ([]byte, error) {
	bodyLen := 2 + len(data)
	if bodyLen > MaxFrameLength {
		return nil, fmt.Errorf("%w: command data too long (%d bytes)", ErrInvalidArgument, len(data))
	}

	frame := make([]byte, 0, bodyLen+2)
	frame = append(frame, byte(bodyLen), KindCommand, command)
	frame = append(frame, data...)
	frame = append(frame, Checksum(frame))

	return frame, nil
}

// MustEncodeFrame encodes a command frame and panics on error. Intended for
// fixed request builders whose arguments are known to be in range.
func MustEncodeFrame(command byte, data []byte) []byte {
	frame, err := EncodeFrame(command, data)
	if err != nil {
		panic(fmt.Sprintf("mk3: encode error: %v", err))
	}
	return frame
}
