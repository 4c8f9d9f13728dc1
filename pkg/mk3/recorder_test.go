// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

func TestRecorder_StreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf)

	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	states := []DeviceState{
		{Version: 0x11223344, VersionSeen: base},
		{DC: DCReport{Voltage: 25.85, CurrentFromCharger: 12.3}, DCSeen: base.Add(time.Second)},
		{Config: ConfigReport{ActualCurrentLimit: 16, NumACInputs: 2}, ConfigSeen: base.Add(2 * time.Second)},
	}
	for i, state := range states {
		if err := rec.Record(state, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("Record %d failed: %v", i, err)
		}
	}
	if rec.Count() != 3 {
		t.Errorf("Count = %d, want 3", rec.Count())
	}

	rep := NewReplayer(&buf)
	for i, want := range states {
		record, err := rep.Next()
		if err != nil {
			t.Fatalf("Next %d failed: %v", i, err)
		}
		if !record.Timestamp.Equal(base.Add(time.Duration(i) * time.Second)) {
			t.Errorf("record %d timestamp = %v", i, record.Timestamp)
		}
		if record.State.Version != want.Version {
			t.Errorf("record %d version = 0x%08X, want 0x%08X", i, record.State.Version, want.Version)
		}
		if record.State.DC.Voltage != want.DC.Voltage {
			t.Errorf("record %d DC voltage = %g, want %g", i, record.State.DC.Voltage, want.DC.Voltage)
		}
		if record.State.Config.NumACInputs != want.Config.NumACInputs {
			t.Errorf("record %d AC inputs = %d, want %d", i, record.State.Config.NumACInputs, want.Config.NumACInputs)
		}
	}

	if _, err := rep.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReplayer_TruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf)
	if err := rec.Record(DeviceState{Version: 1}, time.Now()); err != nil {
		t.Fatal(err)
	}

	// Cut the last record short
	data := buf.Bytes()[:buf.Len()-3]
	rep := NewReplayer(bytes.NewReader(data))
	if _, err := rep.Next(); err == nil {
		t.Error("expected error for truncated record")
	}
}
