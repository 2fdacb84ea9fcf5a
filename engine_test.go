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

package grf500

import (
	"context"
	"errors"
	"testing"
	"time"

	testutil "github.com/LightWare-Optoelectronics/grf-500-api/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamDevice(t *testing.T, opts ...Option) (*Device, *MockStreamTransport) {
	t.Helper()
	mock := NewMockStreamTransport()
	device, err := New(mock, opts...)
	require.NoError(t, err)
	return device, mock
}

func newRegisterDevice(t *testing.T, backend RegisterBackend, opts ...Option) (*Device, *MockRegisterTransport) {
	t.Helper()
	mock := NewMockRegisterTransport(backend)
	device, err := New(mock, opts...)
	require.NoError(t, err)
	return device, mock
}

func TestFirmwareVersionOverRegisters(t *testing.T) {
	t.Parallel()

	device, mock := newRegisterDevice(t, nil)
	mock.SetRegister(byte(CmdFirmwareVersion), []byte{0x02, 0x00, 0x00, 0x00})

	version, err := device.FirmwareVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FirmwareVersion{Major: 0, Minor: 0, Patch: 2}, version)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Read)
	assert.Equal(t, byte(CmdFirmwareVersion), calls[0].CommandID)
	assert.Len(t, calls[0].Data, 4)
}

func TestFirmwareVersionOverStream(t *testing.T) {
	t.Parallel()

	device, mock := newStreamDevice(t)
	mock.OnWrite = func([]byte) []byte {
		return []byte{0xAA, 0x40, 0x01, 0x02, 0x02, 0x00, 0x00, 0x00, 0x32, 0x26}
	}

	version, err := device.FirmwareVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FirmwareVersion{Patch: 2}, version)

	writes := mock.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, []byte{0xAA, 0x40, 0x00, 0x02, 0x32, 0xBF}, writes[0])
}

func TestSendRequestFraming(t *testing.T) {
	t.Parallel()

	tests := []struct {
		build func(*Request) error
		name  string
		want  []byte
	}{
		{
			name:  "read product name",
			build: CreateReadProductName,
			want:  []byte{0xAA, 0x40, 0x00, 0x00, 0x70, 0x9F},
		},
		{
			name:  "write update rate 5 Hz",
			build: func(r *Request) error { return CreateWriteUpdateRate(r, 5) },
			want:  []byte{0xAA, 0x41, 0x01, 0x4A, 0x32, 0x00, 0x00, 0x00, 0xFF, 0xA1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock := newStreamDevice(t)
			require.NoError(t, tt.build(device.Request()))
			require.NoError(t, device.SendRequest(context.Background()))
			assert.Equal(t, [][]byte{tt.want}, mock.Writes())
		})
	}
}

func TestSendRequestZeroBytesWritten(t *testing.T) {
	t.Parallel()

	device, mock := newStreamDevice(t)
	mock.SetZeroWrite(true)

	require.NoError(t, CreateReadToken(device.Request()))
	err := device.SendRequest(context.Background())
	require.ErrorIs(t, err, ErrNoBytesWritten)
	assert.ErrorIs(t, err, ErrError)
}

func TestWaitForResponseTimeoutBound(t *testing.T) {
	t.Parallel()

	device, _ := newStreamDevice(t)
	const timeout = 100 * time.Millisecond

	start := time.Now()
	err := device.WaitForResponse(context.Background(), ForCommand(CmdDistanceData), timeout)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, ResultTimeout, ResultOf(err))
	assert.GreaterOrEqual(t, elapsed, timeout)
	assert.Less(t, elapsed, timeout+250*time.Millisecond)
}

func TestWaitForResponseUsesInjectedClock(t *testing.T) {
	t.Parallel()

	clock := testutil.NewFakeClock(time.Millisecond)
	device, mock := newStreamDevice(t, WithClock(clock))

	err := device.WaitForResponse(context.Background(), AnyCommand, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	// one Now for the deadline, then one per loop iteration
	assert.Equal(t, 101, clock.NowCalls())
	assert.Equal(t, 99, mock.ReadCalls())
}

func TestWaitForResponseDemux(t *testing.T) {
	t.Parallel()

	temperature := testutil.BuildResponseFrame(byte(CmdTemperature), testutil.Int32LE(2100))
	distance := testutil.BuildResponseFrame(byte(CmdDistanceData), testutil.Int32sLE(50))

	tests := []struct {
		name   string
		filter CommandFilter
		want   CommandID
	}{
		{name: "any command takes the first packet", filter: AnyCommand, want: CmdTemperature},
		{name: "specific command skips others", filter: ForCommand(CmdDistanceData), want: CmdDistanceData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, mock := newStreamDevice(t)
			mock.Queue(testutil.Concat(temperature, distance)...)

			require.NoError(t, device.WaitForResponse(context.Background(), tt.filter, time.Second))
			assert.Equal(t, tt.want, device.Response().CommandID)
		})
	}
}

func TestWaitForResponseReadError(t *testing.T) {
	t.Parallel()

	device, mock := newStreamDevice(t)
	mock.SetReadError(errors.New("port unplugged"))

	err := device.WaitForResponse(context.Background(), AnyCommand, time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrError)
	assert.Equal(t, ResultError, ResultOf(err))
}

func TestWaitForResponseContextCancelled(t *testing.T) {
	t.Parallel()

	device, _ := newStreamDevice(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := device.WaitForResponse(ctx, AnyCommand, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPollResponsePreservesProgress(t *testing.T) {
	t.Parallel()

	device, mock := newStreamDevice(t)
	filter := ForCommand(CmdDistanceData)

	other := testutil.BuildResponseFrame(byte(CmdMultiData), testutil.Int32sLE(1, 2, 3))
	wanted := testutil.BuildResponseFrame(byte(CmdDistanceData), testutil.Int32sLE(77))

	device.ResetResponse()
	require.ErrorIs(t, device.PollResponse(filter), ErrAgain)

	// half of the other packet
	mock.Queue(other[:5]...)
	require.ErrorIs(t, device.PollResponse(filter), ErrAgain)
	assert.Equal(t, StateBodyPartial, device.assembler.State())
	assert.Equal(t, 5, device.assembler.Buffered())

	// rest of it plus the start of the wanted packet
	mock.Queue(other[5:]...)
	mock.Queue(wanted[:4]...)
	require.ErrorIs(t, device.PollResponse(filter), ErrAgain)
	assert.Equal(t, 4, device.assembler.Buffered())
	assert.False(t, device.Response().IsSet(), "non matching packet must not be kept")

	mock.Queue(wanted[4:]...)
	require.NoError(t, device.PollResponse(filter))
	assert.Equal(t, CmdDistanceData, device.Response().CommandID)
	assert.Equal(t, int32(77), device.Response().Int32(0))
	assert.Equal(t, 0, mock.Pending())
}

func TestPollResponseLeavesLaterBytesQueued(t *testing.T) {
	t.Parallel()

	device, mock := newStreamDevice(t)
	first := testutil.BuildResponseFrame(byte(CmdDistanceData), testutil.Int32sLE(1))
	second := testutil.BuildResponseFrame(byte(CmdDistanceData), testutil.Int32sLE(2))
	mock.Queue(testutil.Concat(first, second)...)

	require.NoError(t, device.PollResponse(AnyCommand))
	assert.Equal(t, int32(1), device.Response().Int32(0))
	assert.Equal(t, len(second), mock.Pending())

	require.NoError(t, device.PollResponse(AnyCommand))
	assert.Equal(t, int32(2), device.Response().Int32(0))
}

func TestWaitPrimitivesRejectRegisterTransport(t *testing.T) {
	t.Parallel()

	device, _ := newRegisterDevice(t, nil)

	require.ErrorIs(t, device.WaitForResponse(context.Background(), AnyCommand, time.Second), ErrInvalidParameter)
	require.ErrorIs(t, device.PollResponse(AnyCommand), ErrInvalidParameter)
	require.ErrorIs(t, device.SendRequest(context.Background()), ErrInvalidParameter)
}

func TestRegisterReadFailureLeavesResponseUnset(t *testing.T) {
	t.Parallel()

	device, mock := newRegisterDevice(t, nil)
	mock.SetError(byte(CmdTemperature), errors.New("nack"))

	_, err := device.Temperature(context.Background())
	require.ErrorIs(t, err, ErrError)
	assert.False(t, device.Response().IsSet())
}

func TestRegisterWrite(t *testing.T) {
	t.Parallel()

	device, mock := newRegisterDevice(t, nil)
	require.NoError(t, device.SetUpdateRate(context.Background(), 7.5))

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].Read)
	assert.Equal(t, byte(CmdUpdateRate), calls[0].CommandID)
	assert.Equal(t, []byte{75, 0, 0, 0}, calls[0].Data)
}

func TestInvalidValueSendsNothing(t *testing.T) {
	t.Parallel()

	device, mock := newStreamDevice(t)
	err := device.SetUpdateRate(context.Background(), 12.0)
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Empty(t, mock.Writes())
}

func TestSerialRetries(t *testing.T) {
	t.Parallel()

	reply := testutil.BuildResponseFrame(byte(CmdTemperature), testutil.Int32LE(1999))

	tests := []struct {
		wantErr    error
		name       string
		answerOn   int
		retries    int
		wantWrites int
	}{
		{name: "answered first time", answerOn: 1, retries: 2, wantWrites: 1},
		{name: "answered on last retry", answerOn: 3, retries: 2, wantWrites: 3},
		{name: "retries exhausted", answerOn: 4, retries: 2, wantWrites: 3, wantErr: ErrExceededRetries},
		{name: "no retries", answerOn: 2, retries: 0, wantWrites: 1, wantErr: ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			clock := testutil.NewFakeClock(time.Millisecond)
			device, mock := newStreamDevice(t,
				WithClock(clock),
				WithTimeout(20*time.Millisecond),
				WithRetries(tt.retries),
				WithRetryDelay(5*time.Millisecond),
			)
			writes := 0
			mock.OnWrite = func([]byte) []byte {
				writes++
				if writes == tt.answerOn {
					return reply
				}
				return nil
			}

			temp, err := device.Temperature(context.Background())
			assert.Len(t, mock.Writes(), tt.wantWrites)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int32(1999), temp)
			assert.Len(t, clock.Sleeps(), tt.wantWrites-1)
		})
	}
}

func TestRegisterRetries(t *testing.T) {
	t.Parallel()

	device, mock := newRegisterDevice(t, nil, WithRetries(2))
	mock.SetRegister(byte(CmdUpdateRate), []byte{50, 0, 0, 0})
	mock.FailNext(2, NewTransportError("read", "", ErrTransportRead, ErrorTypeTransient))

	rate, err := device.UpdateRate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 5.0, rate, 1e-9)
	assert.Len(t, mock.Calls(), 3)
}

func TestRegisterPermanentErrorNotRetried(t *testing.T) {
	t.Parallel()

	device, mock := newRegisterDevice(t, nil, WithRetries(3))
	mock.FailNext(1, NewTransportError("read", "", errors.New("bus gone"), ErrorTypePermanent))

	_, err := device.UpdateRate(context.Background())
	require.ErrorIs(t, err, ErrError)
	assert.Len(t, mock.Calls(), 1)
}

func TestEngineLogsFrames(t *testing.T) {
	t.Parallel()

	var lines []string
	logger := LoggerFunc(func(format string, _ ...any) { lines = append(lines, format) })

	device, mock := newStreamDevice(t, WithLogger(logger))
	mock.OnWrite = func([]byte) []byte {
		return testutil.BuildResponseFrame(byte(CmdLEDState), []byte{1})
	}

	on, err := device.LEDState(context.Background())
	require.NoError(t, err)
	assert.True(t, on)
	assert.Contains(t, lines, "tx %s: % X")
	assert.Contains(t, lines, "rx %s: % X")
}
