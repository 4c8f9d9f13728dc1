// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package mk3

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Connection is the byte transport to the MK3 interface. Implementations
// wrap a serial port or a bridged remote link.
type Connection interface {
	io.Reader
	io.Writer
}

// Session defaults
const (
	DefaultPollInterval      = 2 * time.Second
	DefaultReplyTimeout      = time.Second
	DefaultRetries           = 2
	DefaultKeepAliveInterval = 10 * time.Second
	DefaultIdleTimeout       = 6 * time.Second

	// resetSettleDelay is the pause between the reset frame and the first
	// request. The reset is more reliable with it.
	resetSettleDelay = time.Second

	// correlator deadlines are checked on this cadence
	tickInterval = 50 * time.Millisecond
)

// SessionConfig holds the session configuration.
type SessionConfig struct {
	// PollInterval is the cadence of the telemetry poll rotation
	// (LED, DC, AC phases, config).
	PollInterval time.Duration

	// ReplyTimeout is the per-attempt timeout for correlated requests.
	ReplyTimeout time.Duration

	// Retries is the number of resends after the first attempt before a
	// request fails with ErrTimeout.
	Retries int

	// KeepAliveInterval is the cadence at which the interface flags are
	// rewritten. The interface loses its flags whenever the device powers
	// down the bus, so they must be refreshed to keep standby asserted.
	KeepAliveInterval time.Duration

	// IdleTimeout marks the session unresponsive when no frame has been
	// decoded for this long. A healthy interface sends a version frame
	// every second even with no other traffic.
	IdleTimeout time.Duration

	// Flags is the initial interface GPIO flag state.
	Flags InterfaceFlags

	// ReportHandler, if set, is called from the session goroutine for
	// every decoded report.
	ReportHandler func(Report)

	// Trace, if set, is called with every frame written and read.
	// Direction is ">>" or "<<".
	Trace func(dir string, data []byte)
}

func defaultSessionConfig() SessionConfig {
	return SessionConfig{
		PollInterval:      DefaultPollInterval,
		ReplyTimeout:      DefaultReplyTimeout,
		Retries:           DefaultRetries,
		KeepAliveInterval: DefaultKeepAliveInterval,
		IdleTimeout:       DefaultIdleTimeout,
		Flags:             DefaultInterfaceFlags,
	}
}

// SessionOption is a functional option for configuring a Session.
type SessionOption func(*SessionConfig)

// WithPollInterval sets the telemetry poll cadence.
func WithPollInterval(d time.Duration) SessionOption {
	return func(c *SessionConfig) {
		if d > 0 {
			c.PollInterval = d
		}
	}
}

// WithReplyTimeout sets the per-attempt reply timeout.
func WithReplyTimeout(d time.Duration) SessionOption {
	return func(c *SessionConfig) {
		if d > 0 {
			c.ReplyTimeout = d
		}
	}
}

// WithRetries sets the resend budget for correlated requests.
func WithRetries(retries int) SessionOption {
	return func(c *SessionConfig) {
		if retries >= 0 {
			c.Retries = retries
		}
	}
}

// WithKeepAliveInterval sets the interface flag refresh cadence.
func WithKeepAliveInterval(d time.Duration) SessionOption {
	return func(c *SessionConfig) {
		if d > 0 {
			c.KeepAliveInterval = d
		}
	}
}

// WithIdleTimeout sets how long the link may stay silent before the
// session is marked unresponsive.
func WithIdleTimeout(d time.Duration) SessionOption {
	return func(c *SessionConfig) {
		if d > 0 {
			c.IdleTimeout = d
		}
	}
}

// WithInterfaceFlags sets the initial interface GPIO flags.
func WithInterfaceFlags(flags InterfaceFlags) SessionOption {
	return func(c *SessionConfig) {
		c.Flags = flags
	}
}

// WithStandby enables or disables the standby line from the start.
func WithStandby(standby bool) SessionOption {
	return func(c *SessionConfig) {
		if standby {
			c.Flags |= FlagStandby
		} else {
			c.Flags &^= FlagStandby
		}
	}
}

// WithReportHandler sets a callback invoked for every decoded report.
func WithReportHandler(handler func(Report)) SessionOption {
	return func(c *SessionConfig) {
		c.ReportHandler = handler
	}
}

// WithTrace sets a callback invoked with every raw frame written or read.
func WithTrace(trace func(dir string, data []byte)) SessionOption {
	return func(c *SessionConfig) {
		c.Trace = trace
	}
}

// request is a correlated request submitted from outside the run loop
type request struct {
	frame []byte
	match func(Report) bool
	done  chan error
}

// Session owns a connection to the MK3 interface. Run drives the startup
// sequence (reset, version request, scaling handshake), the telemetry poll
// rotation, the keep-alive cadence, and request/reply correlation. All
// protocol I/O happens on the Run goroutine; the exported methods are safe
// to call from other goroutines.
type Session struct {
	conn Connection
	cfg  SessionConfig

	correlator *Correlator
	decoder    *Decoder
	stats      *Statistics
	scales     ScalingTable

	requests chan request
	updates  chan DeviceState
	closed   chan struct{}

	mu           sync.RWMutex
	state        DeviceState
	unresponsive bool
	flags        InterfaceFlags

	// startup handshake
	pendingIDs []uint16
	nonce      int

	lastFrameAt    time.Time
	timeoutsInARow int
}

// write sends a raw frame. A write failure is not reported here; it will
// also manifest as a read failure in the reader loop and end the session
// through that path.
func (s *Session) write(frame []byte) {
	if s.cfg.Trace != nil {
		s.cfg.Trace(">>", frame)
	}
	s.conn.Write(frame)
}

// NewSession creates a session on an open connection. The session does not
// own the connection; the caller closes it after Run returns.
func NewSession(conn Connection, opts ...SessionOption) *Session {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		conn:       conn,
		cfg:        cfg,
		correlator: NewCorrelator(cfg.ReplyTimeout, cfg.Retries),
		decoder:    NewDecoder(),
		stats:      NewStatistics(),
		scales:     make(ScalingTable),
		requests:   make(chan request),
		updates:    make(chan DeviceState, 8),
		closed:     make(chan struct{}),
		flags:      cfg.Flags,
		pendingIDs: append([]uint16(nil), scalingIDs...),
	}
}

// Snapshot returns a copy of the current device state.
func (s *Session) Snapshot() DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Updates returns a channel that receives a state snapshot after every
// applied report. Slow consumers miss intermediate snapshots rather than
// stalling the session.
func (s *Session) Updates() <-chan DeviceState {
	return s.updates
}

// Statistics returns a copy of the link statistics.
func (s *Session) Statistics() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.stats
}

// Unresponsive reports whether the device has stopped answering. It is set
// after repeated request timeouts or a silent link and cleared by any
// decoded frame.
func (s *Session) Unresponsive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unresponsive
}

// Synchronized reports whether the startup scaling handshake has finished.
// DC and AC telemetry is unavailable before then.
func (s *Session) Synchronized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pendingIDs) == 0
}

// SetRemoteState requests the given remote switch state and AC input
// current limit in amps. Pass CurrentLimitDeviceMax to select the device's
// own maximum. Returns when the device acknowledges, or with ErrBusy,
// ErrTimeout, or the context error.
func (s *Session) SetRemoteState(ctx context.Context, state SwitchState, limit float64) error {
	frame, err := NewStateRequest(state, limit)
	if err != nil {
		return err
	}
	match := func(r Report) bool {
		_, ok := r.(StateAckReport)
		return ok
	}
	return s.submit(ctx, frame, match)
}

// SetStandby asserts or releases the standby line. While asserted, the
// device stays reachable while switched off; the session refreshes the
// flags on the keep-alive cadence so standby survives bus power cycles.
func (s *Session) SetStandby(ctx context.Context, standby bool) error {
	s.mu.Lock()
	if standby {
		s.flags |= FlagStandby
	} else {
		s.flags &^= FlagStandby
	}
	flags := s.flags
	s.mu.Unlock()

	match := func(r Report) bool {
		ir, ok := r.(InterfaceReport)
		return ok && ir.Flags == flags
	}
	return s.submit(ctx, NewInterfaceFlagsWrite(flags), match)
}

// submit hands a correlated request to the run loop and waits for its
// resolution.
func (s *Session) submit(ctx context.Context, frame []byte, match func(Report) bool) error {
	req := request{frame: frame, match: match, done: make(chan error, 1)}

	select {
	case s.requests <- req:
	case <-s.closed:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the session until the context is cancelled or the link fails.
// Returns nil on cancellation and an ErrLinkLost-wrapped error on link
// failure.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.closed)

	rx := make(chan []byte, 8)
	readErr := make(chan error, 1)
	readerDone := make(chan struct{})
	defer close(readerDone)

	go s.readerLoop(rx, readErr, readerDone)

	// Reset the interface before talking to it. The settle delay makes
	// the reset reliable.
	s.write(NewResetRequest())
	settle := time.NewTimer(resetSettleDelay)
	select {
	case <-settle.C:
	case <-ctx.Done():
		settle.Stop()
		return nil
	}
	s.write(NewVersionRequest())
	s.advanceHandshake(time.Now())

	pollTicker := time.NewTicker(s.cfg.PollInterval)
	defer pollTicker.Stop()
	keepAlive := time.NewTicker(s.cfg.KeepAliveInterval)
	defer keepAlive.Stop()
	tick := time.NewTicker(tickInterval)
	defer tick.Stop()

	s.lastFrameAt = time.Now()

	for {
		select {
		case <-ctx.Done():
			s.correlator.Fail(ErrSessionClosed)
			return nil

		case err := <-readErr:
			s.correlator.Fail(fmt.Errorf("%w: %v", ErrLinkLost, err))
			return fmt.Errorf("%w: %v", ErrLinkLost, err)

		case data := <-rx:
			s.handleBytes(data)

		case req := <-s.requests:
			now := time.Now()
			if err := s.correlator.Begin(req.frame, req.match, req.done, now); err != nil {
				req.done <- err
				continue
			}
			s.write(req.frame)

		case now := <-tick.C:
			resend, timedOut := s.correlator.Tick(now)
			if resend != nil {
				s.write(resend)
			}
			if timedOut {
				s.mu.Lock()
				s.stats.RecordTimeout()
				s.timeoutsInARow++
				if s.timeoutsInARow >= 2 {
					s.unresponsive = true
				}
				s.mu.Unlock()
				// A timed out handshake request must be reissued or the
				// handshake would stall.
				s.advanceHandshake(now)
			}
			if s.cfg.IdleTimeout > 0 && now.Sub(s.lastFrameAt) > s.cfg.IdleTimeout {
				s.mu.Lock()
				s.unresponsive = true
				s.mu.Unlock()
			}

		case now := <-pollTicker.C:
			s.poll(now)

		case <-keepAlive.C:
			s.refreshFlags()
		}
	}
}

// readerLoop pumps raw bytes from the connection into the run loop.
func (s *Session) readerLoop(rx chan<- []byte, readErr chan<- error, done <-chan struct{}) {
	buf := make([]byte, 128)
	for {
		n, err := s.conn.Read(buf)
		if err != nil {
			select {
			case readErr <- err:
			case <-done:
			}
			return
		}
		if n == 0 {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case rx <- data:
		case <-done:
			return
		}
	}
}

// handleBytes feeds raw bytes through the decoder and processes each
// completed frame.
func (s *Session) handleBytes(data []byte) {
	if s.cfg.Trace != nil {
		s.cfg.Trace("<<", data)
	}
	frames := s.decoder.Feed(data)
	if len(frames) == 0 {
		return
	}

	now := time.Now()
	s.lastFrameAt = now

	for _, frame := range frames {
		report := DecodeReport(frame, s.scales)

		s.mu.Lock()
		s.unresponsive = false
		s.timeoutsInARow = 0
		s.stats.SyncDecoder(s.decoder)
		s.stats.UpdateReport(report, ValidateReport(report))
		s.mu.Unlock()

		if report == nil {
			// Info frames are undecodable until the handshake completes.
			// Keep the handshake moving whenever traffic shows the link
			// is alive.
			if frame.Kind() == KindInfo {
				s.advanceHandshake(now)
			}
			continue
		}

		consumed := s.correlator.Observe(report)

		if ram, ok := report.(RAMVarReport); ok {
			s.handleRAMVarReply(ram)
			s.advanceHandshake(now)
		}

		applied := false
		s.mu.Lock()
		if s.state.Apply(report, now) {
			applied = true
		}
		snapshot := s.state
		s.mu.Unlock()

		if applied {
			select {
			case s.updates <- snapshot:
			default:
			}
		}

		if s.cfg.ReportHandler != nil && !consumed {
			s.cfg.ReportHandler(report)
		}
	}
}

// poll requests the next round of telemetry. Requests are fire-and-forget:
// the replies are applied to the snapshot as they arrive, and a lost
// request is simply covered by the next round.
func (s *Session) poll(now time.Time) {
	if !s.scales.Complete() {
		s.advanceHandshake(now)
		return
	}

	s.write(NewLEDRequest())

	dc, _ := NewSnapshotRequest(SnapshotDC)
	s.write(dc)

	phases := 1
	s.mu.RLock()
	if n := s.state.AC[0].NumPhases; n >= 1 && n <= ACPhasesSupported {
		phases = n
	}
	s.mu.RUnlock()
	for phase := 1; phase <= phases; phase++ {
		ac, _ := NewSnapshotRequest(phase)
		s.write(ac)
	}

	cfgReq, _ := NewSnapshotRequest(SnapshotConfig)
	s.write(cfgReq)
}

// refreshFlags rewrites the interface flags so that panel-detect and
// standby survive bus power cycles.
func (s *Session) refreshFlags() {
	s.mu.RLock()
	flags := s.flags
	s.mu.RUnlock()
	s.write(NewInterfaceFlagsWrite(flags))
}

// advanceHandshake requests the scaling info for the next RAM variable id,
// if the handshake is still incomplete and the link is free. The address
// frame may be lost across equipment power cycles so it is resent with
// every request.
func (s *Session) advanceHandshake(now time.Time) {
	s.mu.RLock()
	remaining := len(s.pendingIDs)
	s.mu.RUnlock()
	if remaining == 0 || s.correlator.Busy() {
		return
	}

	s.mu.Lock()
	id := s.pendingIDs[0]
	s.nonce = (s.nonce + 1) % 4
	nonce := s.nonce
	s.mu.Unlock()

	varReq, err := NewRAMVarInfoRequest(nonce, id)
	if err != nil {
		return
	}
	frame := append(NewAddressRequest(), varReq...)

	match := func(r Report) bool {
		ram, ok := r.(RAMVarReport)
		return ok && ram.Nonce == nonce
	}
	done := make(chan error, 1)
	if err := s.correlator.Begin(frame, match, done, now); err != nil {
		return
	}
	s.write(frame)
}

// handleRAMVarReply stores the scale parsed from a variable-info reply and
// moves the handshake to the next id.
func (s *Session) handleRAMVarReply(ram RAMVarReport) {
	scale, ok := ParseVariableScale(ram.Body)
	if !ok {
		return
	}

	s.mu.Lock()
	if len(s.pendingIDs) == 0 {
		s.mu.Unlock()
		return
	}
	id := s.pendingIDs[0]
	s.pendingIDs = s.pendingIDs[1:]
	// The device reports AC inverter current as unsigned but the value
	// goes negative when the inverter back-feeds, so force it signed.
	if id == RAMIDIInverterRMS {
		scale.Signed = true
	}
	s.scales[id] = scale
	s.mu.Unlock()
}

// probeResult carries what the probe reader saw
type probeResult struct {
	state DeviceState
	err   error
}

// Probe checks whether a responsive device is reachable through conn. It
// sends a version request and waits up to timeout for any valid frame,
// returning a snapshot built from whatever was decoded. Returns
// ErrUnresponsive if the link stays silent, or an ErrLinkLost-wrapped
// error on an I/O failure. The caller closes the connection afterwards,
// which also releases the internal reader.
func Probe(ctx context.Context, conn Connection, timeout time.Duration) (DeviceState, error) {
	var state DeviceState

	if _, err := conn.Write(NewVersionRequest()); err != nil {
		return state, fmt.Errorf("%w: %v", ErrLinkLost, err)
	}

	result := make(chan probeResult, 1)
	go func() {
		decoder := NewDecoder()
		scales := make(ScalingTable)
		buf := make([]byte, 128)
		var seen DeviceState
		for {
			n, err := conn.Read(buf)
			if err != nil {
				result <- probeResult{err: fmt.Errorf("%w: %v", ErrLinkLost, err)}
				return
			}
			frames := decoder.Feed(buf[:n])
			if len(frames) == 0 {
				continue
			}
			now := time.Now()
			for _, frame := range frames {
				seen.Apply(DecodeReport(frame, scales), now)
			}
			result <- probeResult{state: seen}
			return
		}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-result:
		return r.state, r.err
	case <-timer.C:
		return state, ErrUnresponsive
	case <-ctx.Done():
		return state, ctx.Err()
	}
}
