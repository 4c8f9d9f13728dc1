// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// TelemetryRecord is one recorded device state snapshot.
type TelemetryRecord struct {
	Timestamp time.Time   `cbor:"ts"`
	State     DeviceState `cbor:"state"`
}

// Recorder appends timestamped device state snapshots to a writer as a
// CBOR stream. Safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	enc   *cbor.Encoder
	count uint64
}

// NewRecorder creates a recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: cbor.NewEncoder(w)}
}

// Record appends one snapshot taken at now.
func (r *Recorder) Record(state DeviceState, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(TelemetryRecord{Timestamp: now, State: state}); err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}
	r.count++
	return nil
}

// Count returns the number of snapshots recorded.
func (r *Recorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Replayer iterates a recorded CBOR telemetry stream.
type Replayer struct {
	dec *cbor.Decoder
}

// NewReplayer creates a replayer reading from r.
func NewReplayer(r io.Reader) *Replayer {
	return &Replayer{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream.
func (p *Replayer) Next() (*TelemetryRecord, error) {
	var record TelemetryRecord
	if err := p.dec.Decode(&record); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode telemetry record: %w", err)
	}
	return &record, nil
}
