// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

// Package config loads the optional mk3ctl configuration file. Every
// field has a command line flag counterpart; flags given explicitly on
// the command line win over the file.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
	Session    SessionConfig    `yaml:"session"`
}

// ---- CONNECTION ----

type ConnectionConfig struct {
	// Serial port path, e.g. /dev/ttyUSB0
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`

	// WebSocket bridge, used instead of the serial port when set
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

// ---- SESSION ----

type SessionConfig struct {
	PollIntervalMs int  `yaml:"poll_interval_ms"`
	ReplyTimeoutMs int  `yaml:"reply_timeout_ms"`
	Retries        *int `yaml:"retries"`
	KeepAliveSec   int  `yaml:"keepalive_sec"`
	Standby        bool `yaml:"standby"`
}

// Load reads and parses a configuration file. Unknown keys are
// rejected so that typos surface instead of silently falling back to
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
