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
	"sync"
	"sync/atomic"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
)

// idleSlowdownAfter is how long without a target before the actor polls
// at the slow rate
const idleSlowdownAfter = 5 * time.Second

// maxSlowInterval caps the slow polling interval
const maxSlowInterval = 500 * time.Millisecond

// DeviceCallbacks defines callback functions for device events
type DeviceCallbacks struct {
	OnReading func(Reading) error
	OnError   func(error)
}

// DeviceMetrics tracks operational metrics for DeviceActor
type DeviceMetrics struct {
	PollCycles      int64         // Total number of polling cycles
	PollErrors      int64         // Number of polling errors
	Readings        int64         // Number of readings that saw a target
	CallbackErrors  int64         // Number of callback errors
	LastPollLatency time.Duration // Duration of last polling operation
}

// DeviceActor reads the distance register on a ticker and slows down while
// nothing is in range. It suits register transports, where reads are
// cheap and the sensor never streams.
type DeviceActor struct {
	device    *grf500.Device
	config    *Config
	callbacks DeviceCallbacks
	stopChan  chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
	// Atomic counters for metrics
	pollCycles      atomic.Int64
	readings        atomic.Int64
	pollErrors      atomic.Int64
	callbackErrors  atomic.Int64
	lastPollLatency atomic.Int64 // in nanoseconds
	// Adaptive polling state
	currentInterval atomic.Int64 // Current polling interval in nanoseconds
	lastTarget      atomic.Int64 // Timestamp of last reading with a target
}

// NewDeviceActor creates a new device actor
func NewDeviceActor(device *grf500.Device, config *Config, callbacks DeviceCallbacks) *DeviceActor {
	if config == nil {
		config = DefaultConfig()
	}
	da := &DeviceActor{
		device:    device,
		config:    config,
		callbacks: callbacks,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	da.currentInterval.Store(config.PollInterval.Nanoseconds())
	da.lastTarget.Store(time.Now().UnixNano())
	return da
}

// Start launches the polling goroutine. Polling ends when ctx is done or
// Stop is called.
func (da *DeviceActor) Start(ctx context.Context) error {
	if da.device == nil || da.config.PollInterval <= 0 {
		return grf500.ErrInvalidParameter
	}
	da.startOnce.Do(func() {
		go da.pollLoop(ctx)
	})
	return nil
}

// pollLoop runs continuous polling until stopped
func (da *DeviceActor) pollLoop(ctx context.Context) {
	defer close(da.done)

	ticker := time.NewTicker(da.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			da.pollOnce(ctx)

			// Adaptive polling: adjust interval based on target presence
			da.adjustPollInterval()
			ticker.Reset(da.GetCurrentPollInterval())
		case <-ctx.Done():
			return
		case <-da.stopChan:
			return
		}
	}
}

func (da *DeviceActor) pollOnce(ctx context.Context) {
	start := time.Now()
	data, err := da.device.DistanceData(ctx, da.config.DistanceConfig)
	da.pollCycles.Add(1)
	da.lastPollLatency.Store(time.Since(start).Nanoseconds())

	if err != nil {
		da.pollErrors.Add(1)
		if da.callbacks.OnError != nil {
			da.callbacks.OnError(err)
		}
		return
	}

	r := newReading(start, da.config.DistanceConfig, data)
	if r.HasTarget() {
		da.readings.Add(1)
		da.lastTarget.Store(start.UnixNano())
	}
	if da.callbacks.OnReading != nil {
		if err := da.callbacks.OnReading(r); err != nil {
			da.callbackErrors.Add(1)
		}
	}
}

// adjustPollInterval implements adaptive polling logic
func (da *DeviceActor) adjustPollInterval() {
	sinceTarget := time.Since(time.Unix(0, da.lastTarget.Load()))

	if sinceTarget > idleSlowdownAfter {
		// Increase interval to 5x the original (up to 500ms max)
		slowInterval := min(da.config.PollInterval*5, maxSlowInterval)
		da.currentInterval.Store(max(slowInterval, da.config.PollInterval).Nanoseconds())
		return
	}
	da.currentInterval.Store(da.config.PollInterval.Nanoseconds())
}

// Stop ends polling and waits for the goroutine to exit or ctx to expire
func (da *DeviceActor) Stop(ctx context.Context) error {
	da.stopOnce.Do(func() {
		close(da.stopChan)
	})
	// Never started: nothing to wait for
	da.startOnce.Do(func() {
		close(da.done)
	})
	select {
	case <-da.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetMetrics returns current operational metrics
func (da *DeviceActor) GetMetrics() DeviceMetrics {
	return DeviceMetrics{
		PollCycles:      da.pollCycles.Load(),
		PollErrors:      da.pollErrors.Load(),
		Readings:        da.readings.Load(),
		CallbackErrors:  da.callbackErrors.Load(),
		LastPollLatency: time.Duration(da.lastPollLatency.Load()),
	}
}

// GetCurrentPollInterval returns the current adaptive polling interval
func (da *DeviceActor) GetCurrentPollInterval() time.Duration {
	return time.Duration(da.currentInterval.Load())
}
