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

package polling

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
)

// Monitor tracks the target in front of a sensor. It owns the device while
// Start runs; nothing else may use the device until Start returns.
type Monitor struct {
	device           *grf500.Device
	config           *Config
	OnReading        func(Reading)
	OnTargetAcquired func(Reading)
	OnTargetMoved    func(Reading)
	OnTargetLost     func()
	OnError          func(error)
	// beforePoll runs on the polling goroutine ahead of every poll
	beforePoll func(ctx context.Context)
	resumeChan chan struct{}
	now        func() time.Time
	state      TargetState
	isPaused   atomic.Bool
}

// NewMonitor creates a new target monitor
func NewMonitor(device *grf500.Device, config *Config) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Monitor{
		device:     device,
		config:     config,
		resumeChan: make(chan struct{}, 1),
		now:        time.Now,
	}
}

// Start polls until ctx is done. It always returns a non-nil error.
func (m *Monitor) Start(ctx context.Context) error {
	if m.device == nil {
		return fmt.Errorf("monitor has no device: %w", grf500.ErrInvalidParameter)
	}
	if m.config.PollInterval <= 0 {
		return fmt.Errorf("poll interval %v: %w", m.config.PollInterval, grf500.ErrInvalidParameter)
	}
	return m.continuousPolling(ctx)
}

// Pause stops polling after the current poll. The target state is kept.
func (m *Monitor) Pause() {
	m.isPaused.Store(true)
}

// Resume continues polling after Pause
func (m *Monitor) Resume() {
	if m.isPaused.CompareAndSwap(true, false) {
		select {
		case m.resumeChan <- struct{}{}:
		default:
		}
	}
}

// IsPaused reports whether polling is paused
func (m *Monitor) IsPaused() bool {
	return m.isPaused.Load()
}

// GetState returns the current target state. It is only consistent when
// called from a callback or after Start returns.
func (m *Monitor) GetState() TargetState {
	return m.state
}

// GetDevice returns the underlying device
func (m *Monitor) GetDevice() *grf500.Device {
	return m.device
}

// Close closes the device
func (m *Monitor) Close() error {
	if err := m.device.Close(); err != nil {
		return fmt.Errorf("failed to close device: %w", err)
	}
	return nil
}

func (m *Monitor) continuousPolling(ctx context.Context) error {
	for {
		if err := m.waitWhilePaused(ctx); err != nil {
			return err
		}
		if m.beforePoll != nil {
			m.beforePoll(ctx)
		}

		reading, err := m.performSinglePoll(ctx)
		switch {
		case err == nil:
			m.processReading(reading)
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, ErrNoReadingInPoll):
			m.processMissingReading()
		default:
			m.handlePollingError(err)
		}

		// A streamed wait already spent the interval
		if m.config.Streaming && err == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.config.PollInterval):
		}
	}
}

func (m *Monitor) waitWhilePaused(ctx context.Context) error {
	for m.isPaused.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.resumeChan:
		case <-time.After(m.config.PollInterval):
		}
	}
	return ctx.Err()
}

// performSinglePoll reads one distance sample
func (m *Monitor) performSinglePoll(ctx context.Context) (Reading, error) {
	var (
		data grf500.DistanceData
		err  error
	)
	if m.config.Streaming {
		data, err = m.device.WaitForStreamedDistanceData(ctx, m.config.DistanceConfig, m.config.PollInterval)
		if errors.Is(err, grf500.ErrTimeout) {
			return Reading{}, ErrNoReadingInPoll
		}
	} else {
		data, err = m.device.DistanceData(ctx, m.config.DistanceConfig)
	}
	if err != nil {
		return Reading{}, fmt.Errorf("distance read failed: %w", err)
	}
	return newReading(m.now(), m.config.DistanceConfig, data), nil
}

func (m *Monitor) handlePollingError(err error) {
	m.logf("poll error: %v", err)
	if m.OnError != nil {
		m.OnError(err)
	}
	// The sensor may be gone. Report the loss now instead of waiting for
	// the timeout.
	m.handleTargetLoss()
}

func (m *Monitor) processReading(r Reading) {
	if m.OnReading != nil {
		m.OnReading(r)
	}
	if !r.HasTarget() {
		m.processMissingReading()
		return
	}

	switch {
	case !m.state.Present:
		m.state.TransitionToTracking(r.Time, r.DistanceCM)
		if m.OnTargetAcquired != nil {
			m.OnTargetAcquired(r)
		}
	case m.state.Moved(r.DistanceCM, m.config.ChangeThresholdCM):
		m.state.TransitionToTracking(r.Time, r.DistanceCM)
		if m.OnTargetMoved != nil {
			m.OnTargetMoved(r)
		}
	default:
		// Small changes keep the reference distance so slow drift still
		// adds up to a move
		distance := m.state.LastDistanceCM
		m.state.TransitionToTracking(r.Time, distance)
	}
}

func (m *Monitor) processMissingReading() {
	m.state.TransitionToHolding()
	if m.state.SignalLost(m.now(), m.config.SignalLostTimeout) {
		m.handleTargetLoss()
	}
}

func (m *Monitor) handleTargetLoss() {
	if !m.state.Present {
		return
	}
	m.state.TransitionToIdle()
	if m.OnTargetLost != nil {
		m.OnTargetLost()
	}
}

func (m *Monitor) logf(format string, args ...any) {
	if m.config.Logger != nil {
		m.config.Logger.Debugf(format, args...)
	}
}
