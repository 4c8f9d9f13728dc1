// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import "fmt"

// AnomalyType classifies report anomalies
type AnomalyType int

const (
	AnomalyInvalidOpState AnomalyType = iota
	AnomalyVoltageRange
	AnomalyFrequencyRange
	AnomalyLimitOrder
	AnomalyLimitRange
	AnomalyPhaseCount
)

// ValidationError describes one anomalous value in an otherwise
// well-formed report
type ValidationError struct {
	Type    AnomalyType
	Message string
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateReport checks a decoded report for anomalous values. Anomalies
// do not reject the report; they feed the statistics and diagnostic
// surfaces so that marginal links and odd firmware show up.
func ValidateReport(r Report) []ValidationError {
	switch r := r.(type) {
	case ACReport:
		return validateAC(r)
	case DCReport:
		return validateDC(r)
	case ConfigReport:
		return validateConfig(r)
	}
	return nil
}

func validateAC(r ACReport) []ValidationError {
	errors := []ValidationError{}

	if r.OpState > OpStateCharge {
		errors = append(errors, ValidationError{
			Type:    AnomalyInvalidOpState,
			Message: fmt.Sprintf("Invalid op state=%d (max %d)", r.OpState, OpStateCharge),
		})
	}

	if r.NumPhases > ACPhasesSupported {
		errors = append(errors, ValidationError{
			Type:    AnomalyPhaseCount,
			Message: fmt.Sprintf("Invalid phase count=%d (max %d)", r.NumPhases, ACPhasesSupported),
		})
	}

	if r.MainsVoltage < 0 || r.MainsVoltage > 500 {
		errors = append(errors, ValidationError{
			Type:    AnomalyVoltageRange,
			Message: fmt.Sprintf("Mains voltage out of range (%.1f V, valid: 0 to 500 V)", r.MainsVoltage),
		})
	}

	if r.MainsFrequency < 0 || r.MainsFrequency > 100 {
		errors = append(errors, ValidationError{
			Type:    AnomalyFrequencyRange,
			Message: fmt.Sprintf("Mains frequency out of range (%.2f Hz, valid: 0 to 100 Hz)", r.MainsFrequency),
		})
	}

	return errors
}

func validateDC(r DCReport) []ValidationError {
	errors := []ValidationError{}

	// 12, 24 and 48 V systems; 70 V leaves headroom for absorption charging
	if r.Voltage < 0 || r.Voltage > 70 {
		errors = append(errors, ValidationError{
			Type:    AnomalyVoltageRange,
			Message: fmt.Sprintf("DC voltage out of range (%.2f V, valid: 0 to 70 V)", r.Voltage),
		})
	}

	if r.InverterFrequency < 0 || r.InverterFrequency > 100 {
		errors = append(errors, ValidationError{
			Type:    AnomalyFrequencyRange,
			Message: fmt.Sprintf("Inverter frequency out of range (%.2f Hz, valid: 0 to 100 Hz)", r.InverterFrequency),
		})
	}

	return errors
}

func validateConfig(r ConfigReport) []ValidationError {
	errors := []ValidationError{}

	if r.MinimumCurrentLimit > r.MaximumCurrentLimit {
		errors = append(errors, ValidationError{
			Type:    AnomalyLimitOrder,
			Message: fmt.Sprintf("Current limit bounds inverted (min=%.1f A > max=%.1f A)", r.MinimumCurrentLimit, r.MaximumCurrentLimit),
		})
	} else if r.ActualCurrentLimit < r.MinimumCurrentLimit || r.ActualCurrentLimit > r.MaximumCurrentLimit {
		errors = append(errors, ValidationError{
			Type:    AnomalyLimitRange,
			Message: fmt.Sprintf("Actual current limit outside bounds (%.1f A, valid: %.1f to %.1f A)", r.ActualCurrentLimit, r.MinimumCurrentLimit, r.MaximumCurrentLimit),
		})
	}

	return errors
}
