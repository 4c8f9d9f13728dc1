// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func intp(v int) *int { return &v }

// ---- tests ----

func TestValidate_SerialDefaults(t *testing.T) {
	cfg := &Config{
		Connection: ConnectionConfig{Port: "/dev/ttyUSB0"},
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_WebSocket(t *testing.T) {
	cfg := &Config{
		Connection: ConnectionConfig{URL: "wss://bridge.local/mk3", Username: "admin"},
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_PortAndURLExclusive(t *testing.T) {
	cfg := &Config{
		Connection: ConnectionConfig{Port: "/dev/ttyUSB0", URL: "ws://bridge.local/mk3"},
	}

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for port and url together")
	}
}

func TestValidate_BadURLScheme(t *testing.T) {
	cfg := &Config{
		Connection: ConnectionConfig{URL: "http://bridge.local/mk3"},
	}

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for non-websocket scheme")
	}
}

func TestValidate_NegativeIntervals(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"baud", Config{Connection: ConnectionConfig{Baud: -2400}}},
		{"poll_interval_ms", Config{Session: SessionConfig{PollIntervalMs: -1}}},
		{"reply_timeout_ms", Config{Session: SessionConfig{ReplyTimeoutMs: -1}}},
		{"retries", Config{Session: SessionConfig{Retries: intp(-1)}}},
		{"keepalive_sec", Config{Session: SessionConfig{KeepAliveSec: -1}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := Validate(&tc.cfg); err == nil {
				t.Fatalf("expected error for negative %s", tc.name)
			}
		})
	}
}

func TestValidate_TimeoutExceedsPollInterval(t *testing.T) {
	cfg := &Config{
		Session: SessionConfig{PollIntervalMs: 500, ReplyTimeoutMs: 1000},
	}

	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for reply timeout exceeding poll interval")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mk3ctl.yaml")
	data := []byte(`connection:
  port: /dev/ttyUSB0
  baud: 2400
session:
  poll_interval_ms: 2000
  reply_timeout_ms: 1000
  retries: 0
  standby: true
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Connection.Port != "/dev/ttyUSB0" || cfg.Connection.Baud != 2400 {
		t.Errorf("connection = %+v", cfg.Connection)
	}
	if cfg.Session.PollIntervalMs != 2000 || !cfg.Session.Standby {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Session.Retries == nil || *cfg.Session.Retries != 0 {
		t.Errorf("retries = %v, want explicit 0", cfg.Session.Retries)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("valid file rejected: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
