// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import "time"

// Correlator matches requests to their replies. The MK2/MK3 link carries
// one request at a time: a second request started while the first is still
// awaiting its reply fails with ErrBusy. A request that receives no
// matching reply is resent up to the retry budget, then fails with
// ErrTimeout, after which the correlator is idle again.
//
// The correlator never reads the clock itself; callers pass time in, which
// keeps the timeout policy testable without sleeping.
type Correlator struct {
	timeout time.Duration
	retries int
	pending *pendingRequest
}

type pendingRequest struct {
	frame       []byte
	match       func(Report) bool
	done        chan<- error
	retriesLeft int
	deadline    time.Time
}

// NewCorrelator creates a correlator with the given per-attempt reply
// timeout and retry budget. A request is sent once plus up to retries
// resends before it fails.
func NewCorrelator(timeout time.Duration, retries int) *Correlator {
	return &Correlator{timeout: timeout, retries: retries}
}

// Busy reports whether a request is awaiting its reply.
func (c *Correlator) Busy() bool {
	return c.pending != nil
}

// Begin registers a request sent at now. The done channel receives nil
// when a matching reply arrives, or the failure error. Fails with ErrBusy
// if another request is already in flight; the caller must not send the
// frame in that case.
func (c *Correlator) Begin(frame []byte, match func(Report) bool, done chan<- error, now time.Time) error {
	if c.pending != nil {
		return ErrBusy
	}
	c.pending = &pendingRequest{
		frame:       frame,
		match:       match,
		done:        done,
		retriesLeft: c.retries,
		deadline:    now.Add(c.timeout),
	}
	return nil
}

// Observe offers a decoded report to the pending request. Returns true if
// the report matched and resolved it. Non-matching reports are left for
// the caller to apply as telemetry.
func (c *Correlator) Observe(r Report) bool {
	if c.pending == nil || !c.pending.match(r) {
		return false
	}
	c.resolve(nil)
	return true
}

// Tick advances the timeout policy. If the pending request's deadline has
// passed and retries remain, it returns the frame to resend; if the budget
// is exhausted it resolves the request with ErrTimeout and reports
// timedOut. Returns (nil, false) when there is nothing to do.
func (c *Correlator) Tick(now time.Time) (resend []byte, timedOut bool) {
	if c.pending == nil || now.Before(c.pending.deadline) {
		return nil, false
	}
	if c.pending.retriesLeft > 0 {
		c.pending.retriesLeft--
		c.pending.deadline = now.Add(c.timeout)
		return c.pending.frame, false
	}
	c.resolve(ErrTimeout)
	return nil, true
}

// Fail resolves the pending request with err, if there is one. Used when
// the link is lost or the session shuts down.
func (c *Correlator) Fail(err error) {
	if c.pending != nil {
		c.resolve(err)
	}
}

func (c *Correlator) resolve(err error) {
	select {
	case c.pending.done <- err:
	default:
	}
	c.pending = nil
}
