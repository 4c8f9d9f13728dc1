// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import (
	"fmt"
	"time"
)

// Statistics tracks frame and error counters for link quality monitoring
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters mirrored from the decoder
	FramesDecoded  uint64
	ChecksumErrors uint64
	BytesDiscarded uint64

	// Report counters
	ReportsDecoded  uint64
	UnknownFrames   uint64
	RequestTimeouts uint64
	AnomalousValues uint64
	InvalidOpStates uint64
	RangeAnomalies  uint64
	LimitAnomalies  uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// UpdateReport updates report counters for one decoded frame. A nil report
// counts as an unknown frame.
func (s *Statistics) UpdateReport(report Report, validationErrors []ValidationError) {
	if report == nil {
		s.UnknownFrames++
		return
	}
	s.ReportsDecoded++

	for _, err := range validationErrors {
		s.AnomalousValues++
		switch err.Type {
		case AnomalyInvalidOpState:
			s.InvalidOpStates++
		case AnomalyVoltageRange, AnomalyFrequencyRange, AnomalyPhaseCount:
			s.RangeAnomalies++
		case AnomalyLimitOrder, AnomalyLimitRange:
			s.LimitAnomalies++
		}
	}

	s.LastUpdateTime = time.Now()
}

// SyncDecoder copies the link-level counters from a decoder
func (s *Statistics) SyncDecoder(d *Decoder) {
	s.FramesDecoded = d.FramesDecoded
	s.ChecksumErrors = d.ChecksumErrors
	s.BytesDiscarded = d.BytesDiscarded
}

// RecordTimeout counts a request that exhausted its retries
func (s *Statistics) RecordTimeout() {
	s.RequestTimeouts++
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.FramesDecoded) / elapsed
		errorCount := s.ChecksumErrors + s.RequestTimeouts + s.AnomalousValues
		s.ErrorRate = float64(errorCount) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent float64
	if s.FramesDecoded > 0 {
		validPercent = float64(s.ReportsDecoded) * 100.0 / float64(s.FramesDecoded)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Frames Decoded:  %8d\n", s.FramesDecoded)
	result += fmt.Sprintf("Reports Decoded: %8d (%.1f%%)\n", s.ReportsDecoded, validPercent)

	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", s.ChecksumErrors)
	}
	if s.BytesDiscarded > 0 {
		result += fmt.Sprintf("Bytes Discarded: %8d\n", s.BytesDiscarded)
	}
	if s.UnknownFrames > 0 {
		result += fmt.Sprintf("Unknown Frames:  %8d\n", s.UnknownFrames)
	}
	if s.RequestTimeouts > 0 {
		result += fmt.Sprintf("Req. Timeouts:   %8d\n", s.RequestTimeouts)
	}
	if s.AnomalousValues > 0 {
		result += fmt.Sprintf("Anomalous Values:%8d\n", s.AnomalousValues)
		if s.InvalidOpStates > 0 {
			result += fmt.Sprintf("  Invalid States:   %5d\n", s.InvalidOpStates)
		}
		if s.RangeAnomalies > 0 {
			result += fmt.Sprintf("  Out of Range:     %5d\n", s.RangeAnomalies)
		}
		if s.LimitAnomalies > 0 {
			result += fmt.Sprintf("  Limit Anomalies:  %5d\n", s.LimitAnomalies)
		}
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.2f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	now := time.Now()
	*s = Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}
