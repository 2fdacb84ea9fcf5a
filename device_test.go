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

// bareTransport implements neither register nor stream access
type bareTransport struct{}

func (bareTransport) Close() error        { return nil }
func (bareTransport) IsConnected() bool   { return true }
func (bareTransport) Type() TransportType { return TransportMock }

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		transport  Transport
		name       string
		opts       []Option
		wantErr    bool
		wantStream bool
	}{
		{
			name:       "Stream_Transport",
			transport:  NewMockStreamTransport(),
			wantStream: true,
		},
		{
			name:      "Register_Transport",
			transport: NewMockRegisterTransport(nil),
		},
		{
			name:      "Nil_Transport",
			transport: nil,
			wantErr:   true,
		},
		{
			name:      "Bare_Transport",
			transport: bareTransport{},
			wantErr:   true,
		},
		{
			name:      "Negative_Retries",
			transport: NewMockStreamTransport(),
			opts:      []Option{WithRetries(-1)},
			wantErr:   true,
		},
		{
			name:      "Zero_Timeout",
			transport: NewMockStreamTransport(),
			opts:      []Option{WithTimeout(0)},
			wantErr:   true,
		},
		{
			name:      "Nil_Clock",
			transport: NewMockStreamTransport(),
			opts:      []Option{WithClock(nil)},
			wantErr:   true,
		},
		{
			name:      "Negative_Retry_Delay",
			transport: NewMockStreamTransport(),
			opts:      []Option{WithRetryDelay(-time.Second)},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device, err := New(tt.transport, tt.opts...)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidParameter)
				assert.Nil(t, device)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.transport, device.Transport())
			assert.Equal(t, tt.wantStream, device.IsStream())
			assert.False(t, device.Response().IsSet())
		})
	}
}

func TestDevice_Config(t *testing.T) {
	t.Parallel()

	device, _ := newStreamDevice(t,
		WithTimeout(250*time.Millisecond),
		WithRetries(3),
		WithRetryDelay(10*time.Millisecond),
		WithLogger(nil),
	)

	config := device.Config()
	assert.Equal(t, 250*time.Millisecond, config.Timeout)
	assert.Equal(t, 3, config.Retries)
	assert.Equal(t, 10*time.Millisecond, config.RetryDelay)

	require.NoError(t, device.SetTimeout(time.Second))
	assert.Equal(t, time.Second, device.Config().Timeout)
	require.ErrorIs(t, device.SetTimeout(-time.Second), ErrInvalidParameter)

	defaults := DefaultDeviceConfig()
	assert.Equal(t, time.Second, defaults.Timeout)
	assert.Zero(t, defaults.Retries)
}

func TestDevice_Close(t *testing.T) {
	t.Parallel()

	device, mock := newStreamDevice(t)
	require.NoError(t, device.Close())
	assert.False(t, mock.IsConnected())

	_, err := device.Temperature(context.Background())
	require.ErrorIs(t, err, ErrError)
	assert.ErrorIs(t, err, ErrTransportClosed)
}

func TestDevice_InitiateContext(t *testing.T) {
	t.Parallel()

	t.Run("Serial", func(t *testing.T) {
		t.Parallel()

		device, mock := newStreamDevice(t)
		sensor := testutil.NewVirtualSensor()
		mock.OnWrite = sensor.HandleSerial

		require.NoError(t, device.Initiate(context.Background()))
		assert.Equal(t, [][]byte{[]byte("UUU")}, mock.Writes())
		assert.True(t, sensor.Initiated)
	})

	t.Run("Register", func(t *testing.T) {
		t.Parallel()

		sensor := testutil.NewVirtualSensor()
		device, mock := newRegisterDevice(t, sensor)

		require.NoError(t, device.Initiate(context.Background()))
		calls := mock.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, RegisterCall{CommandID: 0, Data: []byte{0x80}}, calls[0])
		assert.True(t, sensor.Initiated)
	})

	t.Run("Zero_Bytes_Written", func(t *testing.T) {
		t.Parallel()

		device, mock := newStreamDevice(t)
		mock.SetZeroWrite(true)

		err := device.Initiate(context.Background())
		require.ErrorIs(t, err, ErrNoBytesWritten)
		assert.ErrorIs(t, err, ErrError)
	})

	t.Run("Cancelled", func(t *testing.T) {
		t.Parallel()

		device, mock := newStreamDevice(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.ErrorIs(t, device.Initiate(ctx), context.Canceled)
		assert.Empty(t, mock.Writes())
	})
}

func TestDevice_ProductInfoContext(t *testing.T) {
	t.Parallel()

	want := &ProductInfo{
		Name:            testutil.TestProductName,
		SerialNumber:    testutil.TestSerialNumber,
		FirmwareVersion: FirmwareVersion{Major: 1, Minor: 2, Patch: 3},
		HardwareVersion: testutil.TestHardwareVersion,
	}

	tests := []struct {
		setup func(t *testing.T, sensor *testutil.VirtualSensor) *Device
		name  string
	}{
		{
			name: "Serial",
			setup: func(t *testing.T, sensor *testutil.VirtualSensor) *Device {
				device, mock := newStreamDevice(t)
				mock.OnWrite = sensor.HandleSerial
				return device
			},
		},
		{
			name: "Register",
			setup: func(t *testing.T, sensor *testutil.VirtualSensor) *Device {
				device, _ := newRegisterDevice(t, sensor)
				return device
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			device := tt.setup(t, testutil.NewVirtualSensor())
			info, err := device.ProductInfo(context.Background())
			require.NoError(t, err)
			assert.Equal(t, want, info)
		})
	}
}

func TestDevice_ProductInfoStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	device, mock := newRegisterDevice(t, nil)
	mock.SetRegister(byte(CmdProductName), testutil.FixedString("GRF500"))
	mock.SetError(byte(CmdHardwareVersion), errors.New("nack"))

	info, err := device.ProductInfo(context.Background())
	require.ErrorIs(t, err, ErrError)
	assert.Nil(t, info)
	assert.Contains(t, err.Error(), "hardware version")
	assert.Len(t, mock.Calls(), 2)
}

func TestDevice_TokenGatedWrites(t *testing.T) {
	t.Parallel()

	tests := []struct {
		run   func(*Device, context.Context) error
		count func(*testutil.VirtualSensor) int
		name  string
	}{
		{
			name:  "SaveParameters",
			run:   (*Device).SaveParameters,
			count: func(s *testutil.VirtualSensor) int { return s.Saves },
		},
		{
			name:  "Reset",
			run:   (*Device).Reset,
			count: func(s *testutil.VirtualSensor) int { return s.Resets },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+"_Serial", func(t *testing.T) {
			t.Parallel()

			sensor := testutil.NewVirtualSensor()
			device, mock := newStreamDevice(t)
			mock.OnWrite = sensor.HandleSerial

			require.NoError(t, tt.run(device, context.Background()))
			require.NoError(t, tt.run(device, context.Background()))
			assert.Equal(t, 2, tt.count(sensor))
			assert.NotEqual(t, uint16(testutil.TestToken), sensor.Token())
		})

		t.Run(tt.name+"_Register", func(t *testing.T) {
			t.Parallel()

			sensor := testutil.NewVirtualSensor()
			device, _ := newRegisterDevice(t, sensor)

			require.NoError(t, tt.run(device, context.Background()))
			require.NoError(t, tt.run(device, context.Background()))
			assert.Equal(t, 2, tt.count(sensor))
		})
	}
}

func TestDevice_StaleTokenRejected(t *testing.T) {
	t.Parallel()

	sensor := testutil.NewVirtualSensor()
	device, _ := newRegisterDevice(t, sensor)

	// a token read once and reused is refused by the sensor
	token, err := device.Token(context.Background())
	require.NoError(t, err)
	require.NoError(t, CreateWriteSaveParameters(device.Request(), token))
	require.NoError(t, device.SendRequestGetResponse(context.Background()))
	require.NoError(t, CreateWriteSaveParameters(device.Request(), token))
	err = device.SendRequestGetResponse(context.Background())
	require.ErrorIs(t, err, testutil.ErrTokenMismatch)
	assert.Equal(t, 1, sensor.Saves)
}

func TestDevice_Sleep(t *testing.T) {
	t.Parallel()

	sensor := testutil.NewVirtualSensor()
	device, mock := newStreamDevice(t, WithTimeout(50*time.Millisecond))
	mock.OnWrite = sensor.HandleSerial

	require.NoError(t, device.Sleep(context.Background()))
	assert.True(t, sensor.Asleep)

	_, err := device.Temperature(context.Background())
	require.ErrorIs(t, err, ErrTimeout)

	require.NoError(t, device.Initiate(context.Background()))
	assert.False(t, sensor.Asleep)
}

func TestDevice_SettingsRoundTrip(t *testing.T) {
	t.Parallel()

	sensor := testutil.NewVirtualSensor()
	device, mock := newStreamDevice(t)
	mock.OnWrite = sensor.HandleSerial
	ctx := context.Background()

	require.NoError(t, device.SetUpdateRate(ctx, 2.5))
	rate, err := device.UpdateRate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, rate, 1e-9)

	require.NoError(t, device.SetAlarmADistance(ctx, 1234))
	alarm, err := device.AlarmADistance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(1230), alarm)

	require.NoError(t, device.SetZeroOffset(ctx, -45))
	offset, err := device.ZeroOffset(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(-40), offset)

	require.NoError(t, device.SetDistanceConfig(ctx, DistanceAll))
	config, err := device.DistanceConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, DistanceAll, config)

	require.NoError(t, device.SetUserData(ctx, []byte("0123456789abcdef")))
	data, err := device.UserData(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef"), data)

	require.NoError(t, device.SetStream(ctx, StreamDistanceData))
	stream, err := device.Stream(ctx)
	require.NoError(t, err)
	assert.Equal(t, StreamDistanceData, stream)
}

func TestDevice_StreamedDistanceData(t *testing.T) {
	t.Parallel()

	sensor := testutil.NewVirtualSensor()
	device, mock := newStreamDevice(t)
	config := DistanceFirstReturnRaw | DistanceFirstReturnFiltered

	mock.Queue(sensor.StreamFrame(testutil.CmdDistanceData)...)
	data, err := device.WaitForStreamedDistanceData(context.Background(), config, time.Second)
	require.NoError(t, err)
	assert.Equal(t, DistanceData{FirstReturnRawCM: 1000, FirstReturnFilteredCM: 1010}, data)

	_, err = device.PollStreamedDistanceData(config)
	require.ErrorIs(t, err, ErrAgain)

	mock.Queue(sensor.StreamFrame(testutil.CmdDistanceData)...)
	data, err = device.PollStreamedDistanceData(config)
	require.NoError(t, err)
	assert.Equal(t, int32(1000), data.FirstReturnRawCM)
}

func TestDevice_StreamedMultiData(t *testing.T) {
	t.Parallel()

	device, mock := newStreamDevice(t)
	payload := testutil.Int32sLE(1500, 90, 0, 0, 0, 0, 0, 0, 0, 0, 2300)

	_, err := device.WaitForStreamedMultiData(context.Background(), 20*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	mock.Queue(testutil.BuildResponseFrame(testutil.CmdMultiData, payload)...)
	multi, err := device.PollStreamedMultiData()
	require.NoError(t, err)
	assert.Equal(t, int32(1500), multi.Signals[0].DistanceMM)
	assert.Equal(t, int32(90), multi.Signals[0].Strength)
	assert.Equal(t, int32(2300), multi.Temperature)

	mock.Queue(testutil.BuildResponseFrame(testutil.CmdMultiData, payload)...)
	multi, err = device.WaitForStreamedMultiData(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, int32(2300), multi.Temperature)
}

func TestConnect(t *testing.T) {
	t.Parallel()

	t.Run("Factory", func(t *testing.T) {
		t.Parallel()

		sensor := testutil.NewVirtualSensor()
		var opened string
		factory := func(path string) (Transport, error) {
			opened = path
			mock := NewMockStreamTransport()
			mock.OnWrite = sensor.HandleSerial
			return mock, nil
		}

		device, err := Connect(context.Background(), "/dev/ttyUSB0",
			WithTransportFactory(factory),
			WithDeviceOptions(WithTimeout(200*time.Millisecond)),
		)
		require.NoError(t, err)
		assert.Equal(t, "/dev/ttyUSB0", opened)
		assert.True(t, sensor.Initiated)
		assert.Equal(t, 200*time.Millisecond, device.Config().Timeout)
	})

	t.Run("Unexpected_Product", func(t *testing.T) {
		t.Parallel()

		sensor := testutil.NewVirtualSensor()
		sensor.SetRegister(testutil.CmdProductName, testutil.FixedString("SF30"))
		mock := NewMockRegisterTransport(sensor)

		_, err := Connect(context.Background(), "i2c-1",
			WithTransportFactory(func(string) (Transport, error) { return mock, nil }))
		require.ErrorIs(t, err, ErrUnexpectedProduct)
		assert.False(t, mock.IsConnected())
	})

	t.Run("Product_Check_Disabled", func(t *testing.T) {
		t.Parallel()

		sensor := testutil.NewVirtualSensor()
		sensor.SetRegister(testutil.CmdProductName, testutil.FixedString("SF30"))
		mock := NewMockRegisterTransport(sensor)

		device, err := Connect(context.Background(), "i2c-1",
			WithProductCheck(false),
			WithTransportFactory(func(string) (Transport, error) { return mock, nil }))
		require.NoError(t, err)
		assert.True(t, mock.IsConnected())
		require.NoError(t, device.Close())
	})

	t.Run("Nil_Factory", func(t *testing.T) {
		t.Parallel()

		_, err := Connect(context.Background(), "/dev/ttyUSB0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "transport factory not provided")
	})

	t.Run("Factory_Error", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("port busy")
		_, err := Connect(context.Background(), "/dev/ttyUSB0",
			WithTransportFactory(func(string) (Transport, error) { return nil, boom }))
		require.ErrorIs(t, err, boom)
	})

	t.Run("Silent_Sensor", func(t *testing.T) {
		t.Parallel()

		mock := NewMockStreamTransport()
		_, err := Connect(context.Background(), "/dev/ttyUSB0",
			WithDeviceOptions(WithTimeout(20*time.Millisecond)),
			WithTransportFactory(func(string) (Transport, error) { return mock, nil }))
		require.ErrorIs(t, err, ErrTimeout)
		assert.False(t, mock.IsConnected())
	})
}
