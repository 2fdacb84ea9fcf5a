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
	"strconv"
	"sync"
	"testing"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	testutil "github.com/LightWare-Optoelectronics/grf-500-api/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createSensorDevice creates a register device backed by a virtual sensor
func createSensorDevice(t *testing.T) (*grf500.Device, *testutil.VirtualSensor) {
	t.Helper()
	sensor := testutil.NewVirtualSensor()
	device, err := grf500.New(grf500.NewMockRegisterTransport(sensor))
	require.NoError(t, err)
	return device, sensor
}

func fastConfig() *Config {
	c := DefaultConfig()
	c.PollInterval = 2 * time.Millisecond
	c.SignalLostTimeout = 20 * time.Millisecond
	return c
}

func receive[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for event")
	}
	var zero T
	return zero
}

func TestNewMonitor(t *testing.T) {
	t.Parallel()
	device, _ := createSensorDevice(t)

	t.Run("WithDefaultConfig", func(t *testing.T) {
		t.Parallel()
		monitor := NewMonitor(device, nil)

		assert.NotNil(t, monitor)
		assert.Equal(t, device, monitor.GetDevice())
		assert.Equal(t, DefaultConfig(), monitor.config)
		assert.NotNil(t, monitor.resumeChan)
		assert.False(t, monitor.IsPaused())
		assert.Equal(t, StateIdle, monitor.GetState().DetectionState)
	})

	t.Run("WithCustomConfig", func(t *testing.T) {
		t.Parallel()
		config := &Config{PollInterval: 50 * time.Millisecond}
		monitor := NewMonitor(device, config)
		assert.Same(t, config, monitor.config)
	})
}

func TestMonitor_StartRejectsBadSetup(t *testing.T) {
	t.Parallel()
	device, _ := createSensorDevice(t)

	err := NewMonitor(device, &Config{}).Start(context.Background())
	require.ErrorIs(t, err, grf500.ErrInvalidParameter)

	err = NewMonitor(nil, nil).Start(context.Background())
	require.ErrorIs(t, err, grf500.ErrInvalidParameter)
}

func TestMonitor_PauseResume(t *testing.T) {
	t.Parallel()

	t.Run("PauseOperation", func(t *testing.T) {
		t.Parallel()
		device, _ := createSensorDevice(t)
		monitor := NewMonitor(device, nil)
		monitor.Pause()
		assert.True(t, monitor.IsPaused())

		// Pausing again should be idempotent
		monitor.Pause()
		assert.True(t, monitor.IsPaused())
	})

	t.Run("ResumeOperation", func(t *testing.T) {
		t.Parallel()
		device, _ := createSensorDevice(t)
		monitor := NewMonitor(device, nil)
		monitor.Pause()
		monitor.Resume()
		assert.False(t, monitor.IsPaused())

		// Resuming again should be idempotent
		monitor.Resume()
		assert.False(t, monitor.IsPaused())
	})

	t.Run("PausedMonitorDoesNotPoll", func(t *testing.T) {
		t.Parallel()
		sensor := testutil.NewVirtualSensor()
		mock := grf500.NewMockRegisterTransport(sensor)
		device, err := grf500.New(mock)
		require.NoError(t, err)

		monitor := NewMonitor(device, fastConfig())
		monitor.Pause()
		readings := make(chan Reading, 16)
		monitor.OnReading = func(r Reading) {
			select {
			case readings <- r:
			default:
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- monitor.Start(ctx) }()

		time.Sleep(20 * time.Millisecond)
		assert.Empty(t, mock.Calls())

		monitor.Resume()
		r := receive(t, readings)
		assert.Equal(t, int32(1010), r.DistanceCM)

		cancel()
		assert.ErrorIs(t, receive(t, errCh), context.Canceled)
	})
}

func TestMonitor_ConcurrentPauseResume(t *testing.T) {
	t.Parallel()
	device, _ := createSensorDevice(t)
	monitor := NewMonitor(device, nil)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				monitor.Pause()
				time.Sleep(time.Microsecond)
				monitor.Resume()
			}
		}()
	}
	wg.Wait()

	assert.False(t, monitor.IsPaused())
}

func TestMonitor_TargetStateMachine(t *testing.T) {
	t.Parallel()

	type step struct {
		at       time.Duration
		distance int32
		missing  bool
	}

	tests := []struct {
		name       string
		steps      []step
		wantEvents []string
		wantState  TargetDetectionState
	}{
		{
			name:       "acquire",
			steps:      []step{{at: 0, distance: 500}},
			wantEvents: []string{"acquired 500"},
			wantState:  StateTracking,
		},
		{
			name:       "small jitter is not a move",
			steps:      []step{{at: 0, distance: 500}, {at: 10, distance: 505}, {at: 20, distance: 495}},
			wantEvents: []string{"acquired 500"},
			wantState:  StateTracking,
		},
		{
			name:       "move past threshold",
			steps:      []step{{at: 0, distance: 500}, {at: 10, distance: 520}},
			wantEvents: []string{"acquired 500", "moved 520"},
			wantState:  StateTracking,
		},
		{
			name:       "slow drift adds up",
			steps:      []step{{at: 0, distance: 500}, {at: 10, distance: 506}, {at: 20, distance: 512}},
			wantEvents: []string{"acquired 500", "moved 512"},
			wantState:  StateTracking,
		},
		{
			name:       "brief dropout holds",
			steps:      []step{{at: 0, distance: 500}, {at: 50, missing: true}},
			wantEvents: []string{"acquired 500"},
			wantState:  StateHolding,
		},
		{
			name:       "dropout past timeout loses target",
			steps:      []step{{at: 0, distance: 500}, {at: 50, missing: true}, {at: 100, missing: true}},
			wantEvents: []string{"acquired 500", "lost"},
			wantState:  StateIdle,
		},
		{
			name:       "zero distance counts as missing",
			steps:      []step{{at: 0, distance: 500}, {at: 100, distance: 0}},
			wantEvents: []string{"acquired 500", "lost"},
			wantState:  StateIdle,
		},
		{
			name:       "reacquire after loss",
			steps:      []step{{at: 0, distance: 500}, {at: 100, missing: true}, {at: 110, distance: 300}},
			wantEvents: []string{"acquired 500", "lost", "acquired 300"},
			wantState:  StateTracking,
		},
		{
			name:      "missing without target stays idle",
			steps:     []step{{at: 0, missing: true}, {at: 500, missing: true}},
			wantState: StateIdle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			start := time.Now()
			var now time.Time
			monitor := NewMonitor(nil, &Config{
				PollInterval:      time.Millisecond,
				SignalLostTimeout: 100 * time.Millisecond,
				ChangeThresholdCM: 10,
				DistanceConfig:    grf500.DistanceFirstReturnRaw,
			})
			monitor.now = func() time.Time { return now }

			var events []string
			monitor.OnTargetAcquired = func(r Reading) { events = append(events, "acquired "+itoa(r.DistanceCM)) }
			monitor.OnTargetMoved = func(r Reading) { events = append(events, "moved "+itoa(r.DistanceCM)) }
			monitor.OnTargetLost = func() { events = append(events, "lost") }

			for _, s := range tt.steps {
				now = start.Add(s.at * time.Millisecond)
				if s.missing {
					monitor.processMissingReading()
					continue
				}
				monitor.processReading(newReading(now, grf500.DistanceFirstReturnRaw,
					grf500.DistanceData{FirstReturnRawCM: s.distance}))
			}

			assert.Equal(t, tt.wantEvents, events)
			assert.Equal(t, tt.wantState, monitor.GetState().DetectionState)
		})
	}
}

func itoa(v int32) string {
	return strconv.FormatInt(int64(v), 10)
}

func TestMonitor_RegisterPolling(t *testing.T) {
	t.Parallel()
	device, sensor := createSensorDevice(t)

	monitor := NewMonitor(device, fastConfig())
	acquired := make(chan Reading, 1)
	lost := make(chan struct{}, 1)
	monitor.OnTargetAcquired = func(r Reading) { acquired <- r }
	monitor.OnTargetLost = func() { lost <- struct{}{} }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- monitor.Start(ctx) }()

	r := receive(t, acquired)
	assert.Equal(t, int32(1010), r.DistanceCM)
	assert.Equal(t, int32(1000), r.Data.FirstReturnRawCM)

	sensor.SetRegister(testutil.CmdDistanceData, testutil.Int32sLE(0, 0))
	receive(t, lost)

	cancel()
	assert.ErrorIs(t, receive(t, errCh), context.Canceled)
}

func TestMonitor_StreamedReadings(t *testing.T) {
	t.Parallel()

	mock := grf500.NewMockStreamTransport()
	device, err := grf500.New(mock)
	require.NoError(t, err)

	config := fastConfig()
	config.Streaming = true
	config.PollInterval = 10 * time.Millisecond
	monitor := NewMonitor(device, config)

	readings := make(chan Reading, 4)
	monitor.OnReading = func(r Reading) { readings <- r }

	// A stray reply to another command is skipped
	mock.Queue(testutil.BuildResponseFrame(testutil.CmdUpdateRate, testutil.Uint32LE(50))...)
	mock.Queue(testutil.BuildResponseFrame(testutil.CmdDistanceData, testutil.Int32sLE(250, 251))...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- monitor.Start(ctx) }()

	r := receive(t, readings)
	assert.Equal(t, int32(2510), r.DistanceCM)
	assert.True(t, r.HasTarget())

	cancel()
	assert.ErrorIs(t, receive(t, errCh), context.Canceled)
	assert.Empty(t, mock.Writes(), "streamed monitoring never sends requests")
}

func TestMonitor_DeviceErrorLosesTarget(t *testing.T) {
	t.Parallel()

	sensor := testutil.NewVirtualSensor()
	mock := grf500.NewMockRegisterTransport(sensor)
	device, err := grf500.New(mock)
	require.NoError(t, err)

	config := fastConfig()
	config.SignalLostTimeout = time.Hour
	monitor := NewMonitor(device, config)

	acquired := make(chan Reading, 1)
	lost := make(chan struct{}, 1)
	errs := make(chan error, 16)
	monitor.OnTargetAcquired = func(r Reading) { acquired <- r }
	monitor.OnTargetLost = func() { lost <- struct{}{} }
	monitor.OnError = func(err error) {
		select {
		case errs <- err:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = monitor.Start(ctx) }()

	receive(t, acquired)
	unplugged := errors.New("unplugged")
	mock.SetError(testutil.CmdDistanceData, unplugged)

	// Lost immediately even with an hour long signal timeout
	receive(t, lost)
	assert.ErrorIs(t, receive(t, errs), unplugged)
}

func TestNewReading(t *testing.T) {
	t.Parallel()

	data := grf500.DistanceData{
		FirstReturnRawCM:      10,
		FirstReturnFilteredCM: 11,
		LastReturnRawCM:       20,
		LastReturnFilteredCM:  21,
	}

	tests := []struct {
		name   string
		config grf500.DistanceConfig
		want   int32
	}{
		{name: "first filtered preferred", config: grf500.DistanceAll, want: 11},
		{name: "first raw", config: grf500.DistanceFirstReturnRaw | grf500.DistanceLastReturnRaw, want: 10},
		{name: "last filtered", config: grf500.DistanceLastReturnFiltered | grf500.DistanceLastReturnRaw, want: 21},
		{name: "last raw", config: grf500.DistanceLastReturnRaw, want: 20},
		{name: "no distance fields", config: grf500.DistanceTemperature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, newReading(time.Now(), tt.config, data).DistanceCM)
		})
	}
}
