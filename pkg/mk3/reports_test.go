// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import (
	"math"
	"testing"
	"time"
)

// frameFromBody builds a Frame the way the decoder would, for tests that
// exercise report decoding directly.
func frameFromBody(body []byte) *Frame {
	raw := append([]byte{byte(len(body))}, body...)
	return &Frame{body: body, checksum: Checksum(raw), timestamp: time.Now()}
}

// unityScales returns a scaling table with scale 1 and offset 0 for every
// required id, so raw values pass through unchanged.
func unityScales() ScalingTable {
	t := make(ScalingTable)
	for _, id := range scalingIDs {
		t[id] = VariableScale{Scale: 1}
	}
	return t
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDecodeReport_Version(t *testing.T) {
	f := frameFromBody([]byte{0xFF, 'V', 0x01, 0x02, 0x03, 0x04})
	r := DecodeReport(f, nil)
	v, ok := r.(VersionReport)
	if !ok {
		t.Fatalf("decoded %T, want VersionReport", r)
	}
	if v.Version != 0x04030201 {
		t.Errorf("version = 0x%08X, want 0x04030201", v.Version)
	}
}

func TestDecodeReport_LED(t *testing.T) {
	f := frameFromBody([]byte{0xFF, 'L', 0x05, 0x20})
	r := DecodeReport(f, nil)
	led, ok := r.(LEDReport)
	if !ok {
		t.Fatalf("decoded %T, want LEDReport", r)
	}
	if led.On != LEDMains|LEDBulk {
		t.Errorf("on = %v, want MAINS|BULK", led.On)
	}
	if led.Blink != LEDOverload {
		t.Errorf("blink = %v, want OVERLOAD", led.Blink)
	}
}

func TestDecodeReport_Interface(t *testing.T) {
	f := frameFromBody([]byte{0xFF, 'H', 0x07})
	r := DecodeReport(f, nil)
	ir, ok := r.(InterfaceReport)
	if !ok {
		t.Fatalf("decoded %T, want InterfaceReport", r)
	}
	if ir.Flags != FlagPanelDetect|FlagStandby|FlagUndocumented04 {
		t.Errorf("flags = 0x%02X, want 0x07", uint8(ir.Flags))
	}
}

func TestDecodeReport_StateAck(t *testing.T) {
	f := frameFromBody([]byte{0xFF, 'S'})
	if _, ok := DecodeReport(f, nil).(StateAckReport); !ok {
		t.Fatal("expected StateAckReport")
	}
}

func TestDecodeReport_RAMVarNonce(t *testing.T) {
	for nonce := 0; nonce < 4; nonce++ {
		f := frameFromBody([]byte{0xFF, CmdRAMVar0 + byte(nonce), 0x8E, 0x01, 0x00, 0x8F, 0x00, 0x00})
		ram, ok := DecodeReport(f, nil).(RAMVarReport)
		if !ok {
			t.Fatalf("nonce %d: expected RAMVarReport", nonce)
		}
		if ram.Nonce != nonce {
			t.Errorf("nonce = %d, want %d", ram.Nonce, nonce)
		}
	}
}

func TestDecodeReport_TruncatedRepliesIgnored(t *testing.T) {
	truncated := [][]byte{
		{0xFF},
		{0xFF, 'V', 0x01, 0x02},
		{0xFF, 'L', 0x05},
		{0xFF, 'H'},
	}
	for _, body := range truncated {
		if r := DecodeReport(frameFromBody(body), nil); r != nil {
			t.Errorf("truncated body % X decoded to %T", body, r)
		}
	}
}

func TestDecodeReport_UnknownIgnored(t *testing.T) {
	// Unknown command reply and unknown info type must decode to nil
	// without rejecting the session's stream
	unknown := [][]byte{
		{0xFF, 'Q', 0x01, 0x02, 0x03, 0x04},
		{0x20, 0x01, 0x01, 0x00, 0x02, 0x1F, 0, 0, 0, 0, 0, 0, 0, 0, 0x02},
	}
	for _, body := range unknown {
		if r := DecodeReport(frameFromBody(body), unityScales()); r != nil {
			t.Errorf("unknown body % X decoded to %T", body, r)
		}
	}
}

func TestDecodeReport_AC(t *testing.T) {
	// Phase 1 frame (type 0x08) with unity scaling and back-feed factors
	// of 1 and 2 for the mains and inverter current
	body := []byte{
		0x20, 0x01, 0x02, 0x00, byte(OpStateCharge), 0x08,
		0xE6, 0x00, // mains voltage: 230
		0x0A, 0x00, // mains current: 10, factor 1
		0xE5, 0x00, // inverter voltage: 229
		0x05, 0x00, // inverter current: 5, factor 2
		0x02, // mains period: 2 -> 5 Hz
	}
	r := DecodeReport(frameFromBody(body), unityScales())
	ac, ok := r.(ACReport)
	if !ok {
		t.Fatalf("decoded %T, want ACReport", r)
	}
	if ac.Phase != 1 || ac.NumPhases != 1 {
		t.Errorf("phase = %d of %d, want 1 of 1", ac.Phase, ac.NumPhases)
	}
	if ac.OpState != OpStateCharge {
		t.Errorf("op state = %v, want CHARGE", ac.OpState)
	}
	if !almostEqual(ac.MainsVoltage, 230) {
		t.Errorf("mains voltage = %g, want 230", ac.MainsVoltage)
	}
	if !almostEqual(ac.MainsCurrent, 10) {
		t.Errorf("mains current = %g, want 10", ac.MainsCurrent)
	}
	if !almostEqual(ac.InverterCurrent, 10) {
		t.Errorf("inverter current = %g, want 10 (5 x factor 2)", ac.InverterCurrent)
	}
	if !almostEqual(ac.MainsFrequency, 5) {
		t.Errorf("mains frequency = %g, want 5", ac.MainsFrequency)
	}
}

func TestDecodeReport_ACPhases(t *testing.T) {
	// Info types 0x05..0x0B map to phases 4..1
	tests := []struct {
		infoType  byte
		phase     int
		numPhases int
	}{
		{0x05, 4, 0},
		{0x06, 3, 0},
		{0x07, 2, 0},
		{0x08, 1, 1},
		{0x09, 1, 2},
		{0x0A, 1, 3},
		{0x0B, 1, 4},
	}
	for _, tt := range tests {
		body := make([]byte, 15)
		body[0] = 0x20
		body[5] = tt.infoType
		ac, ok := DecodeReport(frameFromBody(body), unityScales()).(ACReport)
		if !ok {
			t.Fatalf("info type 0x%02X: expected ACReport", tt.infoType)
		}
		if ac.Phase != tt.phase || ac.NumPhases != tt.numPhases {
			t.Errorf("info type 0x%02X: phase = %d of %d, want %d of %d",
				tt.infoType, ac.Phase, ac.NumPhases, tt.phase, tt.numPhases)
		}
	}
}

func TestDecodeReport_DC(t *testing.T) {
	scales := unityScales()
	scales[RAMIDUBat] = VariableScale{Scale: 0.01}
	scales[RAMIDIBat] = VariableScale{Scale: 0.1}

	body := []byte{
		0x20, 0x00, 0x00, 0x00, 0x00, 0x0C,
		0x00, 0x0A, // voltage raw 2560 -> 25.60 V
		0x7B, 0x00, 0x00, // to inverter raw 123 -> 12.3 A
		0x00, 0x00, 0x00, // from charger 0
		0x02, // inverter period 2 -> 5 Hz
	}
	r := DecodeReport(frameFromBody(body), scales)
	dc, ok := r.(DCReport)
	if !ok {
		t.Fatalf("decoded %T, want DCReport", r)
	}
	if !almostEqual(dc.Voltage, 25.6) {
		t.Errorf("voltage = %g, want 25.6", dc.Voltage)
	}
	if !almostEqual(dc.CurrentToInverter, 12.3) {
		t.Errorf("current to inverter = %g, want 12.3", dc.CurrentToInverter)
	}
	if !almostEqual(dc.CurrentFromCharger, 0) {
		t.Errorf("current from charger = %g, want 0", dc.CurrentFromCharger)
	}
	if !almostEqual(dc.InverterFrequency, 5) {
		t.Errorf("inverter frequency = %g, want 5", dc.InverterFrequency)
	}
}

func TestDecodeReport_InfoRequiresScales(t *testing.T) {
	body := make([]byte, 15)
	body[0] = 0x20
	body[5] = InfoTypeDC

	if r := DecodeReport(frameFromBody(body), make(ScalingTable)); r != nil {
		t.Errorf("info frame decoded without scales: %T", r)
	}

	// A partial table must also refuse
	partial := make(ScalingTable)
	partial[RAMIDUBat] = VariableScale{Scale: 1}
	if r := DecodeReport(frameFromBody(body), partial); r != nil {
		t.Errorf("info frame decoded with partial scales: %T", r)
	}
}

func TestDecodeReport_Config(t *testing.T) {
	body := []byte{
		0x41, 0x00, 0x00, 0x00, 0x00,
		0xA6,       // input 2 active, override, 2 inputs, remote panel
		0x28, 0x00, // min 4.0 A
		0xF4, 0x01, // max 50.0 A
		0x7D, 0x00, // actual 12.5 A
		0x31, // switch register
	}
	r := DecodeReport(frameFromBody(body), nil)
	cfg, ok := r.(ConfigReport)
	if !ok {
		t.Fatalf("decoded %T, want ConfigReport", r)
	}
	if cfg.LastActiveACInput != 2 {
		t.Errorf("last active input = %d, want 2", cfg.LastActiveACInput)
	}
	if !cfg.CurrentLimitOverride || cfg.DMCDedicated {
		t.Errorf("override = %v dedicated = %v, want true false", cfg.CurrentLimitOverride, cfg.DMCDedicated)
	}
	if cfg.NumACInputs != 2 {
		t.Errorf("num inputs = %d, want 2", cfg.NumACInputs)
	}
	if !cfg.RemotePanelDetected {
		t.Error("remote panel not detected")
	}
	if !almostEqual(cfg.MinimumCurrentLimit, 4) || !almostEqual(cfg.MaximumCurrentLimit, 50) || !almostEqual(cfg.ActualCurrentLimit, 12.5) {
		t.Errorf("limits = %g/%g/%g, want 4/50/12.5",
			cfg.MinimumCurrentLimit, cfg.MaximumCurrentLimit, cfg.ActualCurrentLimit)
	}
	if cfg.SwitchRegister != SwitchRegDirectRemoteCharge|SwitchRegSwitchCharge|SwitchRegSwitchInvert {
		t.Errorf("switch register = 0x%02X, want 0x31", uint8(cfg.SwitchRegister))
	}
}

func TestParseVariableScale(t *testing.T) {
	tests := []struct {
		name       string
		scaleRaw   uint16
		offsetRaw  uint16
		wantSigned bool
		wantScale  float64
		wantOffset int32
	}{
		{"plain unsigned", 0x000A, 0x0000, false, 10, 0},
		{"signed", 0xFFF6, 0x0005, true, 10, 5},
		{"reciprocal", 0x7FF6, 0x0000, false, 0.1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte{0xFF, 'W', 0x8E, byte(tt.scaleRaw), byte(tt.scaleRaw >> 8), 0x8F, byte(tt.offsetRaw), byte(tt.offsetRaw >> 8)}
			scale, ok := ParseVariableScale(body)
			if !ok {
				t.Fatal("ParseVariableScale rejected valid body")
			}
			if scale.Signed != tt.wantSigned {
				t.Errorf("signed = %v, want %v", scale.Signed, tt.wantSigned)
			}
			if !almostEqual(scale.Scale, tt.wantScale) {
				t.Errorf("scale = %g, want %g", scale.Scale, tt.wantScale)
			}
			if scale.Offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", scale.Offset, tt.wantOffset)
			}
		})
	}

	if _, ok := ParseVariableScale([]byte{0xFF, 'W', 0x00, 0x0A, 0x00, 0x8F, 0x00, 0x00}); ok {
		t.Error("accepted body without the 0x8E marker")
	}
	if _, ok := ParseVariableScale([]byte{0xFF, 'W', 0x8E}); ok {
		t.Error("accepted truncated body")
	}
}

func TestVariableScale_Parse(t *testing.T) {
	signed := VariableScale{Signed: true, Scale: 0.1}
	if got := signed.Parse([]byte{0xFF, 0xFF}); !almostEqual(got, -0.1) {
		t.Errorf("signed 16-bit parse = %g, want -0.1", got)
	}
	if got := signed.Parse([]byte{0xFF, 0xFF, 0xFF}); !almostEqual(got, -0.1) {
		t.Errorf("signed 24-bit parse = %g, want -0.1", got)
	}

	unsigned := VariableScale{Scale: 1}
	if got := unsigned.Parse([]byte{0xFF, 0xFF}); !almostEqual(got, 65535) {
		t.Errorf("unsigned 16-bit parse = %g, want 65535", got)
	}

	offset := VariableScale{Scale: 2, Offset: 3}
	if got := offset.Parse([]byte{0x05}); !almostEqual(got, 16) {
		t.Errorf("offset parse = %g, want 16", got)
	}
}

func TestDeviceState_Apply(t *testing.T) {
	var s DeviceState
	now := time.Now()

	if !s.Apply(LEDReport{On: LEDBulk}, now) {
		t.Fatal("LED report not applied")
	}
	if s.LEDsOn != LEDBulk || !s.LEDsSeen.Equal(now) {
		t.Error("LED category not updated")
	}
	if !s.DCSeen.IsZero() || !s.ConfigSeen.IsZero() {
		t.Error("unrelated categories were touched")
	}

	later := now.Add(time.Second)
	if !s.Apply(ACReport{Phase: 2, MainsVoltage: 230}, later) {
		t.Fatal("AC report not applied")
	}
	if !almostEqual(s.AC[1].MainsVoltage, 230) || !s.ACSeen[1].Equal(later) {
		t.Error("AC phase 2 not updated")
	}
	if !s.ACSeen[0].IsZero() {
		t.Error("AC phase 1 touched by phase 2 report")
	}

	if s.Apply(StateAckReport{}, later) {
		t.Error("ack applied as device state")
	}
	if s.Apply(ACReport{Phase: 9}, later) {
		t.Error("out of range phase applied")
	}

	age, ok := s.Age(later.Add(time.Second))
	if !ok || age != 2*time.Second {
		t.Errorf("age = %v ok = %v, want 2s true", age, ok)
	}
}

func TestValidateReport(t *testing.T) {
	if errs := ValidateReport(ACReport{Phase: 1, OpState: OpState(12)}); len(errs) != 1 || errs[0].Type != AnomalyInvalidOpState {
		t.Errorf("invalid op state: got %v", errs)
	}
	if errs := ValidateReport(DCReport{Voltage: 90}); len(errs) != 1 || errs[0].Type != AnomalyVoltageRange {
		t.Errorf("out of range DC voltage: got %v", errs)
	}
	if errs := ValidateReport(ConfigReport{MinimumCurrentLimit: 30, MaximumCurrentLimit: 10, ActualCurrentLimit: 20}); len(errs) != 1 || errs[0].Type != AnomalyLimitOrder {
		t.Errorf("inverted limits: got %v", errs)
	}
	if errs := ValidateReport(ConfigReport{MinimumCurrentLimit: 4, MaximumCurrentLimit: 50, ActualCurrentLimit: 60}); len(errs) != 1 || errs[0].Type != AnomalyLimitRange {
		t.Errorf("limit outside bounds: got %v", errs)
	}
	if errs := ValidateReport(ACReport{Phase: 1, OpState: OpStateCharge, MainsVoltage: 230, MainsFrequency: 50}); len(errs) != 0 {
		t.Errorf("healthy report flagged: %v", errs)
	}
}
