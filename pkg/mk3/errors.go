// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import "errors"

// Sentinel errors returned by the session and command builders. Wrap sites
// add context; callers match with errors.Is.
var (
	// ErrBusy is returned when a request is issued while another request
	// is still awaiting its reply. The link carries one request at a time.
	ErrBusy = errors.New("request already in flight")

	// ErrTimeout is returned when a request exhausts its retries without
	// receiving a matching reply.
	ErrTimeout = errors.New("request timed out")

	// ErrInvalidArgument is returned when a command argument cannot be
	// represented on the wire.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrLinkLost is returned when the underlying connection fails.
	ErrLinkLost = errors.New("link lost")

	// ErrUnresponsive is returned by Probe when the port opens but no
	// valid frame arrives within the timeout.
	ErrUnresponsive = errors.New("device unresponsive")

	// ErrSessionClosed is returned when a request is issued after the
	// session's Run loop has exited.
	ErrSessionClosed = errors.New("session closed")
)
