// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Driftregion Systems

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/driftregion/mk3ctl/pkg/mk3"
)

// Event log entry
type dashLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for info
}

// Messages
type dashStateMsg struct {
	state        mk3.DeviceState
	stats        mk3.Statistics
	synchronized bool
	unresponsive bool
}
type dashConnLostMsg struct {
	err error
}
type dashReconnectedMsg struct {
	connInfo string
}
type dashStandbyResultMsg struct {
	standby bool
	err     error
}

// Dashboard model
type dashModel struct {
	sm       *sessionManager
	connInfo string

	state        mk3.DeviceState
	stats        mk3.Statistics
	synchronized bool
	unresponsive bool
	connected    bool
	standby      bool

	spinner       spinner.Model
	eventLog      []dashLogEntry
	maxLogEntries int
	lastAnomalies uint64
	width         int
	height        int
	quitting      bool
}

func initialDashModel(sm *sessionManager, connInfo string) dashModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	return dashModel{
		sm:            sm,
		connInfo:      connInfo,
		connected:     true,
		spinner:       s,
		eventLog:      make([]dashLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m dashModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tea.EnterAltScreen,
	)
}

func (m dashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "s":
			target := !m.standby
			sm := m.sm
			return m, func() tea.Msg {
				err := sm.setStandby(target)
				return dashStandbyResultMsg{standby: target, err: err}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case dashStateMsg:
		if msg.synchronized && !m.synchronized {
			m.addLogEntry("Scaling handshake complete", false)
		}
		if msg.unresponsive && !m.unresponsive {
			m.addLogEntry("Device unresponsive", true)
		}
		if !msg.unresponsive && m.unresponsive {
			m.addLogEntry("Device recovered", false)
		}
		if msg.stats.AnomalousValues > m.lastAnomalies {
			m.addLogEntry(fmt.Sprintf("Anomalous values detected (%d total)", msg.stats.AnomalousValues), true)
			m.lastAnomalies = msg.stats.AnomalousValues
		}
		m.state = msg.state
		m.stats = msg.stats
		m.synchronized = msg.synchronized
		m.unresponsive = msg.unresponsive
		if !m.state.InterfaceSeen.IsZero() {
			m.standby = m.state.Interface&mk3.FlagStandby != 0
		}

	case dashConnLostMsg:
		m.connected = false
		m.synchronized = false
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Connection lost: %v", msg.err), true)
		} else {
			m.addLogEntry("Connection lost", true)
		}

	case dashReconnectedMsg:
		m.connected = true
		m.connInfo = msg.connInfo
		m.addLogEntry(fmt.Sprintf("Reconnected: %s", msg.connInfo), false)

	case dashStandbyResultMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Standby request failed: %v", msg.err), true)
		} else {
			m.standby = msg.standby
			if msg.standby {
				m.addLogEntry("Standby asserted", false)
			} else {
				m.addLogEntry("Standby released", false)
			}
		}
	}

	return m, nil
}

func (m *dashModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, dashLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m dashModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("MK3CTL - DASHBOARD"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | 's' toggles standby | 'q' quits", m.connInfo)))
	s.WriteString("\n\n")

	// Link status line
	switch {
	case !m.connected:
		s.WriteString(errorStyle.Render("✗ Connection lost, reconnecting..."))
		s.WriteString("\n\n")
	case m.unresponsive:
		s.WriteString(errorStyle.Render("✗ Device unresponsive"))
		s.WriteString("\n\n")
	case !m.synchronized:
		s.WriteString(m.spinner.View())
		s.WriteString(warningStyle.Render(" Fetching scaling factors..."))
		s.WriteString("\n\n")
	default:
		s.WriteString(valueStyle.Render("✓ Synchronized"))
		if m.standby {
			s.WriteString(warningStyle.Render("  STANDBY"))
		}
		s.WriteString("\n\n")
	}

	// Device panel
	device := strings.Builder{}
	if !m.state.VersionSeen.IsZero() {
		device.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Version:"), valueStyle.Render(fmt.Sprintf("0x%08X", m.state.Version))))
	}
	if !m.state.LEDsSeen.IsZero() {
		device.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("LEDs on:"), valueStyle.Render(mk3.FormatLEDs(m.state.LEDsOn))))
		device.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("LEDs blink:"), valueStyle.Render(mk3.FormatLEDs(m.state.LEDsBlink))))
	}
	if !m.state.InterfaceSeen.IsZero() {
		device.WriteString(fmt.Sprintf("%s %s",
			labelStyle.Render("Interface:"), valueStyle.Render(mk3.FormatInterfaceFlags(m.state.Interface))))
	}
	if device.Len() == 0 {
		device.WriteString(headerStyle.Render("(waiting for device)"))
	}
	panels := []string{boxStyle.Render(device.String())}

	// DC panel
	if !m.state.DCSeen.IsZero() {
		dc := strings.Builder{}
		dc.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Battery:"), valueStyle.Render(fmt.Sprintf("%.2f V", m.state.DC.Voltage))))
		dc.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("To inverter:"), valueStyle.Render(fmt.Sprintf("%.1f A", m.state.DC.CurrentToInverter))))
		dc.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("From charger:"), valueStyle.Render(fmt.Sprintf("%.1f A", m.state.DC.CurrentFromCharger))))
		dc.WriteString(fmt.Sprintf("%s %s",
			labelStyle.Render("Inverter:"), valueStyle.Render(fmt.Sprintf("%.2f Hz", m.state.DC.InverterFrequency))))
		panels = append(panels, boxStyle.Render(dc.String()))
	}

	// AC panels
	for phase := 0; phase < mk3.ACPhasesSupported; phase++ {
		if m.state.ACSeen[phase].IsZero() {
			continue
		}
		report := m.state.AC[phase]
		ac := strings.Builder{}
		ac.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render(fmt.Sprintf("L%d state:", report.Phase)),
			valueStyle.Render(mk3.FormatOpState(report.OpState))))
		ac.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Mains:"),
			valueStyle.Render(fmt.Sprintf("%.1f V %.1f A %.2f Hz", report.MainsVoltage, report.MainsCurrent, report.MainsFrequency))))
		ac.WriteString(fmt.Sprintf("%s %s",
			labelStyle.Render("Inverter:"),
			valueStyle.Render(fmt.Sprintf("%.1f V %.1f A", report.InverterVoltage, report.InverterCurrent))))
		panels = append(panels, boxStyle.Render(ac.String()))
	}

	// Config panel
	if !m.state.ConfigSeen.IsZero() {
		cfg := m.state.Config
		cc := strings.Builder{}
		cc.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("AC inputs:"),
			valueStyle.Render(fmt.Sprintf("%d (last active: %d)", cfg.NumACInputs, cfg.LastActiveACInput))))
		limit := fmt.Sprintf("%.1f A (%.1f to %.1f A)", cfg.ActualCurrentLimit, cfg.MinimumCurrentLimit, cfg.MaximumCurrentLimit)
		if cfg.CurrentLimitOverride {
			cc.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Limit:"), warningStyle.Render(limit+" panel override")))
		} else {
			cc.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Limit:"), valueStyle.Render(limit)))
		}
		cc.WriteString(fmt.Sprintf("%s %s",
			labelStyle.Render("Switches:"), valueStyle.Render(mk3.FormatSwitchRegister(cfg.SwitchRegister))))
		panels = append(panels, boxStyle.Render(cc.String()))
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panels...))
	s.WriteString("\n\n")

	// Statistics line
	statsLine := fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("Frames:"), valueStyle.Render(fmt.Sprintf("%d (%.1f/s)", m.stats.FramesDecoded, m.stats.FrameRate)),
		labelStyle.Render("Checksum errors:"), func() string {
			if m.stats.ChecksumErrors > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", m.stats.ChecksumErrors))
			}
			return valueStyle.Render("0")
		}(),
		labelStyle.Render("Timeouts:"), func() string {
			if m.stats.RequestTimeouts > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", m.stats.RequestTimeouts))
			}
			return valueStyle.Render("0")
		}(),
	)
	s.WriteString(boxStyle.Render(statsLine))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 18 // Reserve space for header and panels
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}
