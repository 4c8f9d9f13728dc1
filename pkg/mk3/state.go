// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import "time"

// ACPhasesSupported is the number of AC phases the protocol can report.
const ACPhasesSupported = 4

// DeviceState is an aggregate snapshot of everything the device has
// reported. Each category carries the time it was last updated; a zero
// time means the category has never been reported. Updates are atomic per
// report: a category is either entirely from one report or untouched.
type DeviceState struct {
	Version   uint32
	Interface InterfaceFlags
	LEDsOn    LEDs
	LEDsBlink LEDs
	DC        DCReport
	AC        [ACPhasesSupported]ACReport // indexed by phase-1
	Config    ConfigReport

	VersionSeen   time.Time
	InterfaceSeen time.Time
	LEDsSeen      time.Time
	DCSeen        time.Time
	ACSeen        [ACPhasesSupported]time.Time
	ConfigSeen    time.Time
}

// Apply folds one report into the snapshot, stamping the matching
// category with now. Reports that carry no device state (acks, RAM
// variable replies) leave the snapshot unchanged and return false.
func (s *DeviceState) Apply(r Report, now time.Time) bool {
	switch r := r.(type) {
	case VersionReport:
		s.Version = r.Version
		s.VersionSeen = now
	case InterfaceReport:
		s.Interface = r.Flags
		s.InterfaceSeen = now
	case LEDReport:
		s.LEDsOn = r.On
		s.LEDsBlink = r.Blink
		s.LEDsSeen = now
	case DCReport:
		s.DC = r
		s.DCSeen = now
	case ACReport:
		if r.Phase < 1 || r.Phase > ACPhasesSupported {
			return false
		}
		s.AC[r.Phase-1] = r
		s.ACSeen[r.Phase-1] = now
	case ConfigReport:
		s.Config = r
		s.ConfigSeen = now
	default:
		return false
	}
	return true
}

// Age returns how long ago the oldest reported category was updated, and
// false if nothing has been reported yet. Used to judge staleness of the
// snapshot as a whole.
func (s *DeviceState) Age(now time.Time) (time.Duration, bool) {
	var oldest time.Time
	for _, seen := range []time.Time{s.VersionSeen, s.InterfaceSeen, s.LEDsSeen, s.DCSeen, s.ConfigSeen} {
		if !seen.IsZero() && (oldest.IsZero() || seen.Before(oldest)) {
			oldest = seen
		}
	}
	for _, seen := range s.ACSeen {
		if !seen.IsZero() && (oldest.IsZero() || seen.Before(oldest)) {
			oldest = seen
		}
	}
	if oldest.IsZero() {
		return 0, false
	}
	return now.Sub(oldest), true
}
