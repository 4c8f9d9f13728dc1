// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	c := cfg.Connection

	if c.Port != "" && c.URL != "" {
		return fmt.Errorf("port and url are mutually exclusive")
	}

	if c.URL != "" && !strings.HasPrefix(c.URL, "ws://") && !strings.HasPrefix(c.URL, "wss://") {
		return fmt.Errorf("url %q: scheme must be ws:// or wss://", c.URL)
	}

	if c.Baud < 0 {
		return fmt.Errorf("baud %d: must be positive", c.Baud)
	}

	s := cfg.Session

	if s.PollIntervalMs < 0 {
		return fmt.Errorf("poll_interval_ms %d: must be positive", s.PollIntervalMs)
	}
	if s.ReplyTimeoutMs < 0 {
		return fmt.Errorf("reply_timeout_ms %d: must be positive", s.ReplyTimeoutMs)
	}
	if s.Retries != nil && *s.Retries < 0 {
		return fmt.Errorf("retries %d: must not be negative", *s.Retries)
	}
	if s.KeepAliveSec < 0 {
		return fmt.Errorf("keepalive_sec %d: must be positive", s.KeepAliveSec)
	}

	// The reply timeout must fit inside the poll interval
	if s.PollIntervalMs > 0 && s.ReplyTimeoutMs > 0 && s.ReplyTimeoutMs > s.PollIntervalMs {
		return fmt.Errorf("reply_timeout_ms %d exceeds poll_interval_ms %d", s.ReplyTimeoutMs, s.PollIntervalMs)
	}

	return nil
}
