// grf-500-api
// Copyright (c) 2025 The grf-500-api Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of grf-500-api.
//
// grf-500-api is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// grf-500-api is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with grf-500-api; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	"github.com/LightWare-Optoelectronics/grf-500-api/polling"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
)

var (
	monitorInterval  time.Duration
	monitorLost      time.Duration
	monitorThreshold int32
	monitorRangeCM   int32
	monitorStream    bool
	monitorPlain     bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch the target distance live",
	Long: `Watch the target distance live.

The full screen view shows the distance as a bar, the target state and a
log of target events. Keys: q quits, l toggles the laser.
With --plain, events are printed one per line instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDevice(cmd.Context(), func(d *grf500.Device) error {
			return runMonitor(cmd.Context(), cmd.OutOrStdout(), d)
		})
	},
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 100*time.Millisecond, "Time between reads")
	monitorCmd.Flags().DurationVar(&monitorLost, "lost-after", time.Second,
		"How long the target may be missing before it is reported lost")
	monitorCmd.Flags().Int32Var(&monitorThreshold, "threshold", 10, "Distance change in cm reported as movement")
	monitorCmd.Flags().Int32Var(&monitorRangeCM, "range", 10000, "Distance in cm shown as a full bar")
	monitorCmd.Flags().BoolVar(&monitorStream, "stream", false,
		"Have a serial sensor stream distances instead of answering reads")
	monitorCmd.Flags().BoolVar(&monitorPlain, "plain", false, "Print events as text instead of the full screen view")
}

func runMonitor(ctx context.Context, w io.Writer, d *grf500.Device) error {
	info, err := d.ProductInfo(ctx)
	if err != nil {
		return err
	}
	distanceConfig, err := d.DistanceConfig(ctx)
	if err != nil {
		return err
	}

	config := polling.DefaultScanConfig()
	config.Logger = glogLogger
	config.PollInterval = monitorInterval
	config.SignalLostTimeout = monitorLost
	config.ChangeThresholdCM = monitorThreshold
	config.DistanceConfig = distanceConfig
	if monitorStream && d.IsStream() {
		if err := d.SetStream(ctx, grf500.StreamDistanceData); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
			defer cancel()
			if err := d.SetStream(ctx, grf500.StreamNone); err != nil {
				glog.Warningf("failed to stop streaming: %v", err)
			}
		}()
		config.Streaming = true
	}

	scanner, err := polling.NewScanner(d, config)
	if err != nil {
		return err
	}

	if monitorPlain {
		return runPlainMonitor(ctx, w, scanner)
	}

	m := newMonitorModel(info, scanner, monitorRangeCM)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(w))
	scanner.OnReading = func(r polling.Reading) { p.Send(readingMsg{reading: r}) }
	scanner.OnTargetAcquired = func(r polling.Reading) { p.Send(targetMsg{event: eventAcquired, reading: r}) }
	scanner.OnTargetMoved = func(r polling.Reading) { p.Send(targetMsg{event: eventMoved, reading: r}) }
	scanner.OnTargetLost = func() { p.Send(targetMsg{event: eventLost}) }
	scanner.OnError = func(err error) { p.Send(errorMsg{err: err}) }

	if err := scanner.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := scanner.Stop(); err != nil {
			glog.Warningf("stop scanner: %v", err)
		}
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// runPlainMonitor prints target events until ctx ends
func runPlainMonitor(ctx context.Context, w io.Writer, scanner *polling.Scanner) error {
	logf := func(format string, args ...any) {
		_, _ = fmt.Fprintf(w, "%s "+format+"\n", append([]any{time.Now().Format(time.TimeOnly)}, args...)...)
	}
	scanner.OnTargetAcquired = func(r polling.Reading) { logf("acquired %d cm", r.DistanceCM) }
	scanner.OnTargetMoved = func(r polling.Reading) { logf("moved to %d cm", r.DistanceCM) }
	scanner.OnTargetLost = func() { logf("lost") }
	scanner.OnError = func(err error) { logf("error: %v", err) }

	if err := scanner.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return scanner.Stop()
}

// Target events
const (
	eventAcquired = "acquired"
	eventMoved    = "moved"
	eventLost     = "lost"
)

// Messages
type (
	tickMsg    time.Time
	readingMsg struct {
		reading polling.Reading
	}
	targetMsg struct {
		reading polling.Reading
		event   string
	}
	errorMsg struct {
		err error
	}
	laserMsg struct {
		err error
		on  bool
	}
)

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// applier is the part of polling.Scanner the view needs
type applier interface {
	Apply(ctx context.Context, operation func(*grf500.Device) error) error
}

type monitorModel struct {
	started      time.Time
	device       applier
	info         *grf500.ProductInfo
	last         *polling.Reading
	spinner      spinner.Model
	bar          progress.Model
	log          []logEntry
	state        polling.TargetDetectionState
	readings     int
	errors       int
	rangeCM      int32
	maxLog       int
	width        int
	height       int
	laserOn      bool
	laserPending bool
	quitting     bool
}

func newMonitorModel(info *grf500.ProductInfo, dev applier, rangeCM int32) monitorModel {
	if rangeCM <= 0 {
		rangeCM = 1
	}
	return monitorModel{
		started: time.Now(),
		device:  dev,
		info:    info,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		rangeCM: rangeCM,
		maxLog:  100,
		width:   80,
		height:  24,
		laserOn: true,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.spinner.Tick,
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// toggleLaser runs on the scanning goroutine between two reads
func (m monitorModel) toggleLaser() tea.Cmd {
	on := !m.laserOn
	dev := m.device
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := dev.Apply(ctx, func(d *grf500.Device) error {
			return d.SetLaserFiring(ctx, on)
		})
		return laserMsg{on: on, err: err}
	}
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "l":
			if m.laserPending || m.device == nil {
				return m, nil
			}
			m.laserPending = true
			return m, m.toggleLaser()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(10, min(msg.Width-20, 80))

	case tickMsg:
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case readingMsg:
		r := msg.reading
		m.last = &r
		m.readings++

	case targetMsg:
		switch msg.event {
		case eventAcquired:
			m.state = polling.StateTracking
			m.addLogEntry(fmt.Sprintf("Target acquired at %d cm", msg.reading.DistanceCM), false)
		case eventMoved:
			m.state = polling.StateTracking
			m.addLogEntry(fmt.Sprintf("Target moved to %d cm", msg.reading.DistanceCM), false)
		case eventLost:
			m.state = polling.StateIdle
			m.addLogEntry("Target lost", false)
		}

	case errorMsg:
		m.errors++
		m.addLogEntry(msg.err.Error(), true)

	case laserMsg:
		m.laserPending = false
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("Laser: %v", msg.err), true)
			return m, nil
		}
		m.laserOn = msg.on
		if msg.on {
			m.addLogEntry("Laser on", false)
		} else {
			m.addLogEntry("Laser off", false)
		}
	}

	return m, nil
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.log = append(m.log, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.log) > m.maxLog {
		m.log = m.log[len(m.log)-m.maxLog:]
	}
}

// fraction maps a distance onto the bar
func (m monitorModel) fraction(distanceCM int32) float64 {
	f := float64(distanceCM) / float64(m.rangeCM)
	return max(0, min(f, 1))
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

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
	s.WriteString(titleStyle.Render("GRF-500 MONITOR"))
	s.WriteString("\n")
	laser := "on"
	if !m.laserOn {
		laser = "off"
	}
	name, serial := "unknown", "unknown"
	if m.info != nil {
		name, serial = m.info.Name, m.info.SerialNumber
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s #%s | Laser: %s | Press 'l' to toggle the laser, 'q' to quit",
		name, serial, laser)))
	s.WriteString("\n\n")

	content := strings.Builder{}
	switch {
	case m.last == nil:
		content.WriteString(warningStyle.Render(m.spinner.View() + " Waiting for the first reading..."))
		content.WriteString("\n")
	case m.last.HasTarget():
		content.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Distance:"),
			valueStyle.Render(fmt.Sprintf("%.2f m", float64(m.last.DistanceCM)/100))))
		content.WriteString(m.bar.ViewAs(m.fraction(m.last.DistanceCM)))
		content.WriteString("\n")
	default:
		content.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Distance:"), warningStyle.Render("no target")))
		content.WriteString(m.bar.ViewAs(0))
		content.WriteString("\n")
	}

	elapsed := time.Since(m.started).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(m.readings) / elapsed
	}
	errorsText := valueStyle.Render("0")
	if m.errors > 0 {
		errorsText = errorStyle.Render(fmt.Sprintf("%d", m.errors))
	}
	content.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s",
		labelStyle.Render("State:"), valueStyle.Render(m.state.String()),
		labelStyle.Render("Readings:"), valueStyle.Render(fmt.Sprintf("%d (%.1f/s)", m.readings, rate)),
		labelStyle.Render("Errors:"), errorsText,
	))

	s.WriteString(boxStyle.Render(content.String()))
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Reserve space for header and distance box
	logHeight := max(m.height-14, 5)
	logContent := strings.Builder{}
	if len(m.log) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	}
	for _, entry := range m.log[max(0, len(m.log)-logHeight):] {
		timestamp := entry.timestamp.Format("15:04:05.000")
		if entry.isError {
			logContent.WriteString(fmt.Sprintf("%s %s\n",
				headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message)))
		} else {
			logContent.WriteString(fmt.Sprintf("%s %s\n",
				headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message)))
		}
	}
	s.WriteString(boxStyle.Width(max(m.width-4, 20)).Render(logContent.String()))

	return s.String()
}
