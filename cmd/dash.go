// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Driftregion Systems

package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/driftregion/mk3ctl/pkg/mk3"
	"github.com/spf13/cobra"
)

var dashCmd = &cobra.Command{
	Use:   "dash",
	Short: "Interactive dashboard for the connected device",
	Long: `Monitor and control the device behind the MK3 interface via an
interactive terminal UI.

Features:
  - Live LED, DC, AC and configuration panels
  - Standby toggle ('s')
  - Link statistics and anomaly log
  - Automatic reconnection on connection loss

Supports both serial and WebSocket connections.`,
	RunE: runDash,
}

func init() {
	rootCmd.AddCommand(dashCmd)
}

// sessionManager handles session lifecycle and reconnection
type sessionManager struct {
	mu       sync.RWMutex
	session  *mk3.Session
	connInfo string
	p        *tea.Program
	done     chan struct{}
}

func (sm *sessionManager) current() *mk3.Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.session
}

func (sm *sessionManager) set(session *mk3.Session, connInfo string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.session = session
	sm.connInfo = connInfo
}

// setStandby asserts or releases standby on the current session.
// Called from the TUI via a tea.Cmd.
func (sm *sessionManager) setStandby(standby bool) error {
	session := sm.current()
	if session == nil {
		return mk3.ErrSessionClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return session.SetStandby(ctx, standby)
}

func runDash(cmd *cobra.Command, args []string) error {
	// Open initial connection (serial or WebSocket)
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	sm := &sessionManager{
		connInfo: connInfo,
		done:     make(chan struct{}),
	}

	m := initialDashModel(sm, connInfo)
	p := tea.NewProgram(m, tea.WithAltScreen())
	sm.p = p

	go sm.runLoop(conn)

	if _, err := p.Run(); err != nil {
		close(sm.done)
		return fmt.Errorf("TUI error: %v", err)
	}

	close(sm.done)
	return nil
}

// runLoop drives sessions with automatic reconnection
func (sm *sessionManager) runLoop(conn Connection) {
	for {
		session := mk3.NewSession(conn, sessionOpts...)
		sm.set(session, sm.connInfo)

		runErr := sm.runSession(session)
		conn.Close()
		sm.set(nil, sm.connInfo)

		select {
		case <-sm.done:
			return
		default:
		}

		// Notify TUI about connection loss
		sm.p.Send(dashConnLostMsg{err: runErr})

		// Attempt to reconnect
		var ok bool
		conn, ok = sm.reconnect()
		if !ok {
			return // Shutdown requested during reconnect
		}
	}
}

// runSession runs one session until it fails or shutdown is requested,
// forwarding batched state updates to the TUI at a fixed rate
func (sm *sessionManager) runSession(session *mk3.Session) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- session.Run(ctx) }()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sm.done:
			cancel()
			<-runDone
			return nil
		case err := <-runDone:
			return err
		case <-ticker.C:
			sm.p.Send(dashStateMsg{
				state:        session.Snapshot(),
				stats:        session.Statistics(),
				synchronized: session.Synchronized(),
				unresponsive: session.Unresponsive(),
			})
		}
	}
}

// reconnect attempts to reconnect with exponential backoff.
// Returns false if shutdown was requested during reconnection.
func (sm *sessionManager) reconnect() (Connection, bool) {
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-sm.done:
			return nil, false
		case <-time.After(backoff):
		}

		conn, connInfo, err := OpenConnection()
		if err == nil {
			sm.mu.Lock()
			sm.connInfo = connInfo
			sm.mu.Unlock()

			// Notify TUI about reconnection
			sm.p.Send(dashReconnectedMsg{connInfo: connInfo})
			return conn, true
		}

		// Exponential backoff
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
