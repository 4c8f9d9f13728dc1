// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import (
	"fmt"
	"time"
)

// Frame is a single decoded MK2/MK3 wire frame. The body excludes the
// leading length byte and the trailing checksum byte.
type Frame struct {
	body      []byte
	checksum  byte
	timestamp time.Time
}

// Body returns the frame body (kind byte onward, checksum excluded).
func (f *Frame) Body() []byte {
	return f.body
}

// Kind returns the frame kind byte (KindCommand, KindInfo or KindConfig).
// Bodies are never empty; the decoder rejects zero-length frames.
func (f *Frame) Kind() byte {
	return f.body[0]
}

// Checksum returns the checksum byte received with the frame.
func (f *Frame) Checksum() byte {
	return f.checksum
}

// Timestamp returns the time the frame was decoded.
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}

// Reply returns the command character a KindCommand frame replies to,
// or 0 for other frame kinds.
func (f *Frame) Reply() byte {
	if f.Kind() != KindCommand || len(f.body) < 2 {
		return 0
	}
	return f.body[1]
}

// String formats the frame as a hex dump with its kind.
func (f *Frame) String() string {
	return fmt.Sprintf("Frame{kind=0x%02X len=%d body=% X}", f.Kind(), len(f.body), f.body)
}
