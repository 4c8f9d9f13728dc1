// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomFrame builds a random well-formed frame
func randomFrame(rng *rand.Rand) []byte {
	data := make([]byte, rng.Intn(16))
	rng.Read(data)
	commands := []byte{CmdVersion, CmdLED, CmdSnapshot, CmdSetState, CmdInterface, CmdRAMVar0}
	return MustEncodeFrame(commands[rng.Intn(len(commands))], data)
}

// TestFuzzDecoder_RandomBytes feeds random bytes to the decoder and
// verifies it doesn't panic, and that anything it does emit carries a
// valid checksum
func TestFuzzDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		length := rng.Intn(512) + 1
		data := make([]byte, length)
		rng.Read(data)

		for _, f := range d.Feed(data) {
			raw := append([]byte{byte(len(f.Body()))}, f.Body()...)
			raw = append(raw, f.Checksum())
			if !VerifyChecksum(raw) {
				t.Fatalf("round %d: decoder emitted frame with bad checksum: % X", i, raw)
			}
		}
	}
}

// TestFuzzDecoder_RandomFrameStream generates streams of well-formed
// frames and verifies every frame is recovered regardless of how the
// stream is chunked
func TestFuzzDecoder_RandomFrameStream(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		count := rng.Intn(8) + 1
		var stream []byte
		var bodies [][]byte
		for j := 0; j < count; j++ {
			frame := randomFrame(rng)
			stream = append(stream, frame...)
			bodies = append(bodies, frame[1:len(frame)-1])
		}

		var decoded []*Frame
		for len(stream) > 0 {
			n := rng.Intn(8) + 1
			if n > len(stream) {
				n = len(stream)
			}
			decoded = append(decoded, d.Feed(stream[:n])...)
			stream = stream[n:]
		}

		if len(decoded) != count {
			t.Fatalf("round %d: decoded %d frames, want %d", i, len(decoded), count)
		}
		for j, f := range decoded {
			if !bytes.Equal(f.Body(), bodies[j]) {
				t.Fatalf("round %d frame %d: body = % X, want % X", i, j, f.Body(), bodies[j])
			}
		}
	}
}

// TestFuzzDecoder_BitFlips corrupts one bit of a frame and verifies the
// corrupted frame is never emitted as valid
func TestFuzzDecoder_BitFlips(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewDecoder()

		frame := randomFrame(rng)
		corrupt := append([]byte{}, frame...)
		corrupt[rng.Intn(len(corrupt))] ^= 1 << rng.Intn(8)

		for _, f := range d.Feed(corrupt) {
			// A shorter valid frame may emerge from the damaged bytes by
			// chance, but never the original frame with a wrong byte
			if len(f.Body()) == len(frame)-2 && bytes.Equal(f.Body(), corrupt[1:len(corrupt)-1]) && !bytes.Equal(corrupt, frame) {
				t.Fatalf("round %d: corrupted frame decoded as valid: % X", i, corrupt)
			}
		}
	}
}

// TestFuzzReportDecode_NeverPanics feeds random well-formed frames of
// every kind through report decoding
func TestFuzzReportDecode_NeverPanics(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	scales := unityScales()
	for i := 0; i < rounds; i++ {
		body := make([]byte, rng.Intn(20)+1)
		rng.Read(body)
		// Bias toward real frame kinds so the decode paths are exercised
		switch rng.Intn(4) {
		case 0:
			body[0] = KindCommand
		case 1:
			body[0] = KindInfo
		case 2:
			body[0] = KindConfig
		}

		report := DecodeReport(frameFromBody(body), scales)
		ValidateReport(report)
		if report != nil {
			FormatReport(report)
		}
	}
}

// TestFuzzEncoder_RoundTrip encodes random requests and verifies they
// decode back to the same body
func TestFuzzEncoder_RoundTrip(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	d := NewDecoder()
	for i := 0; i < rounds; i++ {
		frame := randomFrame(rng)
		frames := d.Feed(frame)
		if len(frames) != 1 {
			t.Fatalf("round %d: decoded %d frames, want 1", i, len(frames))
		}
		if !bytes.Equal(frames[0].Body(), frame[1:len(frame)-1]) {
			t.Fatalf("round %d: body = % X, want % X", i, frames[0].Body(), frame[1:len(frame)-1])
		}
	}
}
