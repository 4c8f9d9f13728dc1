// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import "time"

// Decoder implements the MK2/MK3 frame decoder.
//
// The wire format has no start-of-frame marker: a frame is a length byte L
// followed by L+1 bytes of body and checksum. The decoder therefore scans:
// it treats the first buffered byte as a candidate length, waits until the
// whole candidate frame is buffered, and accepts it only if the checksum
// verifies. On a checksum mismatch or an implausible length it discards
// exactly one byte and rescans, so a valid frame boundary is found again
// after at most one frame's worth of garbage.
type Decoder struct {
	buf []byte

	// Counters for link quality tracking
	FramesDecoded  uint64
	ChecksumErrors uint64
	BytesDiscarded uint64
}

// NewDecoder creates a new frame decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		buf: make([]byte, 0, MaxFrameLength*2),
	}
}

// Reset discards all buffered bytes. Counters are preserved.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
}

// Buffered returns the number of bytes held awaiting a complete frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Feed appends raw bytes to the decoder and returns all frames completed by
// them, in arrival order. Malformed input never returns an error; the
// decoder resynchronizes and counts the damage.
func (d *Decoder) Feed(p []byte) []*Frame {
	d.buf = append(d.buf, p...)

	var frames []*Frame
	for len(d.buf) > 0 {
		length := int(d.buf[0])
		if length < MinFrameLength || length > MaxFrameLength {
			d.discard(1)
			continue
		}

		// length byte + body + checksum
		total := length + 2
		if len(d.buf) < total {
			break
		}

		if !VerifyChecksum(d.buf[:total]) {
			d.ChecksumErrors++
			d.discard(1)
			continue
		}

		body := make([]byte, length)
		copy(body, d.buf[1:1+length])
		frames = append(frames, &Frame{
			body:      body,
			checksum:  d.buf[total-1],
			timestamp: time.Now(),
		})
		d.FramesDecoded++
		d.buf = d.buf[:copy(d.buf, d.buf[total:])]
	}

	return frames
}

// discard drops n leading bytes during resynchronization.
func (d *Decoder) discard(n int) {
	d.BytesDiscarded += uint64(n)
	d.buf = d.buf[:copy(d.buf, d.buf[n:])]
}
