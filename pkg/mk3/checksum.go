// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

// Checksum computes the MK2/MK3 frame checksum: the byte which, appended to
// data, makes the modulo-256 sum of the whole frame zero.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return -sum
}

// VerifyChecksum reports whether a complete frame (length byte, body and
// trailing checksum byte) sums to zero modulo 256.
func VerifyChecksum(frame []byte) bool {
	var sum byte
	for _, b := range frame {
		sum += b
	}
	return sum == 0
}
