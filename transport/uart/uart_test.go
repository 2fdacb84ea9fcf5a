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

package uart

import (
	"errors"
	"testing"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	testutil "github.com/LightWare-Optoelectronics/grf-500-api/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakePort serves reads from a queue in chunks of at most chunk bytes.
// Methods the transport never calls fall through to the nil embedded Port.
type fakePort struct {
	serial.Port
	readErr     error
	sensor      *testutil.VirtualSensor
	rx          []byte
	written     [][]byte
	readTimeout time.Duration
	chunk       int
	resets      int
	closed      bool
}

func (p *fakePort) SetReadTimeout(d time.Duration) error {
	p.readTimeout = d
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.resets++
	p.rx = nil
	return nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	if p.readErr != nil {
		return 0, p.readErr
	}
	n := len(p.rx)
	if p.chunk > 0 && n > p.chunk {
		n = p.chunk
	}
	n = copy(b, p.rx[:n])
	p.rx = p.rx[n:]
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.written = append(p.written, append([]byte(nil), b...))
	if p.sensor != nil {
		p.rx = append(p.rx, p.sensor.HandleSerial(b)...)
	}
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestNewWithPort(t *testing.T) {
	t.Parallel()

	port := &fakePort{rx: []byte{0x01, 0x02}}
	tr, err := NewWithPort(port, "/dev/ttyUSB0")
	require.NoError(t, err)

	assert.Equal(t, pollSlice, port.readTimeout)
	assert.Equal(t, 1, port.resets)
	assert.Equal(t, "/dev/ttyUSB0", tr.PortName())
	assert.Equal(t, DefaultBaudRate, tr.BaudRate())
	assert.Equal(t, grf500.TransportUART, tr.Type())
	assert.True(t, tr.IsConnected())
	assert.True(t, grf500.HasCapability(tr, grf500.CapabilityStreaming))

	// stale input was dropped on attach
	_, ok, err := tr.ReadByte()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWithBaudRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		bps     int
		wantErr bool
	}{
		{name: "9600", bps: 9600},
		{name: "921600", bps: 921600},
		{name: "unsupported", bps: 14400, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tr := &Transport{}
			err := WithBaudRate(tt.bps)(tr)
			if tt.wantErr {
				require.ErrorIs(t, err, grf500.ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bps, tr.BaudRate())
		})
	}
}

func TestReadByteChunks(t *testing.T) {
	t.Parallel()

	port := &fakePort{chunk: 3}
	tr, err := NewWithPort(port, "fake")
	require.NoError(t, err)
	port.rx = []byte{1, 2, 3, 4, 5}

	var got []byte
	for {
		b, ok, err := tr.ReadByte()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, b)
	}
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, got)
}

func TestReadError(t *testing.T) {
	t.Parallel()

	port := &fakePort{}
	tr, err := NewWithPort(port, "fake")
	require.NoError(t, err)
	port.readErr = errors.New("device unplugged")

	_, _, err = tr.ReadByte()
	require.ErrorIs(t, err, grf500.ErrTransportRead)
	assert.ErrorIs(t, err, grf500.ErrError)
}

func TestDeviceOverUART(t *testing.T) {
	t.Parallel()

	sensor := testutil.NewVirtualSensor()
	port := &fakePort{sensor: sensor, chunk: 4}
	tr, err := NewWithPort(port, "fake")
	require.NoError(t, err)

	device, err := grf500.New(tr, grf500.WithTimeout(100*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, device.Initiate(t.Context()))
	assert.True(t, sensor.Initiated)

	name, err := device.ProductName(t.Context())
	require.NoError(t, err)
	assert.Equal(t, testutil.TestProductName, name)
	assert.Equal(t, []byte{0xAA, 0x40, 0x00, 0x00, 0x70, 0x9F}, port.written[1])
}

func TestClose(t *testing.T) {
	t.Parallel()

	port := &fakePort{}
	tr, err := NewWithPort(port, "fake")
	require.NoError(t, err)

	require.NoError(t, tr.Close())
	assert.True(t, port.closed)
	assert.False(t, tr.IsConnected())

	_, err = tr.Write([]byte{1})
	require.ErrorIs(t, err, grf500.ErrTransportClosed)
	_, _, err = tr.ReadByte()
	require.ErrorIs(t, err, grf500.ErrTransportClosed)
	require.NoError(t, tr.Close())
}
