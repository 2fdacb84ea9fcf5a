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

package i2c

import (
	"errors"
	"testing"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	testutil "github.com/LightWare-Optoelectronics/grf-500-api/internal/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

// fakeBus answers transactions from a VirtualSensor and can NACK a number
// of transactions first
type fakeBus struct {
	sensor *testutil.VirtualSensor
	txs    []fakeTx
	speed  physic.Frequency
	nacks  int
}

type fakeTx struct {
	w    []byte
	rLen int
	addr uint16
}

var errNack = errors.New("i2c nack")

func (*fakeBus) String() string { return "fake" }

func (b *fakeBus) SetSpeed(f physic.Frequency) error {
	b.speed = f
	return nil
}

func (b *fakeBus) Tx(addr uint16, w, r []byte) error {
	b.txs = append(b.txs, fakeTx{addr: addr, w: append([]byte(nil), w...), rLen: len(r)})
	if b.nacks > 0 {
		b.nacks--
		return errNack
	}
	if len(r) > 0 {
		return b.sensor.ReadRegister(w[0], r)
	}
	return b.sensor.WriteRegister(w[0], w[1:])
}

func newFakeBus() *fakeBus {
	return &fakeBus{sensor: testutil.NewVirtualSensor()}
}

func TestNewWithBus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     []Option
		wantAddr uint16
		wantErr  bool
	}{
		{name: "defaults", wantAddr: DefaultAddress},
		{name: "custom address", opts: []Option{WithAddress(0x10)}, wantAddr: 0x10},
		{name: "address too low", opts: []Option{WithAddress(0x07)}, wantErr: true},
		{name: "address too high", opts: []Option{WithAddress(0x78)}, wantErr: true},
		{name: "zero speed", opts: []Option{WithBusSpeed(0)}, wantErr: true},
		{name: "negative retries", opts: []Option{WithRetries(-1, 0)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bus := newFakeBus()
			tr, err := NewWithBus(bus, tt.opts...)
			if tt.wantErr {
				require.ErrorIs(t, err, grf500.ErrInvalidParameter)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, tr.Address())
			assert.Equal(t, maxClockFreq, bus.speed)
			assert.Equal(t, grf500.TransportI2C, tr.Type())
			assert.True(t, tr.IsConnected())
		})
	}

	_, err := NewWithBus(nil)
	require.ErrorIs(t, err, grf500.ErrInvalidParameter)
}

func TestTransactions(t *testing.T) {
	t.Parallel()

	bus := newFakeBus()
	tr, err := NewWithBus(bus, WithBusSpeed(100*physic.KiloHertz))
	require.NoError(t, err)
	assert.Equal(t, 100*physic.KiloHertz, bus.speed)

	buf := make([]byte, 4)
	require.NoError(t, tr.ReadRegister(testutil.CmdFirmwareVersion, buf))
	assert.Equal(t, testutil.Uint32LE(testutil.TestFirmwareVersion), buf)

	require.NoError(t, tr.WriteRegister(testutil.CmdUpdateRate, []byte{20, 0, 0, 0}))
	assert.Equal(t, []byte{20, 0, 0, 0}, bus.sensor.Register(testutil.CmdUpdateRate))

	require.Len(t, bus.txs, 2)
	assert.Equal(t, fakeTx{addr: DefaultAddress, w: []byte{testutil.CmdFirmwareVersion}, rLen: 4}, bus.txs[0])
	assert.Equal(t, fakeTx{addr: DefaultAddress, w: []byte{testutil.CmdUpdateRate, 20, 0, 0, 0}}, bus.txs[1])
}

func TestNackRetries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		nacks   int
		wantTxs int
		wantErr bool
	}{
		{name: "no nack", nacks: 0, wantTxs: 1},
		{name: "recovers", nacks: 2, wantTxs: 3},
		{name: "gives up", nacks: 5, wantTxs: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bus := newFakeBus()
			bus.nacks = tt.nacks
			tr, err := NewWithBus(bus, WithRetries(2, time.Microsecond))
			require.NoError(t, err)

			err = tr.ReadRegister(testutil.CmdHardwareVersion, make([]byte, 4))
			assert.Len(t, bus.txs, tt.wantTxs)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errNack)
			require.ErrorIs(t, err, grf500.ErrTransportRead)
			assert.True(t, grf500.IsRetryable(err))
		})
	}
}

func TestDeviceOverI2C(t *testing.T) {
	t.Parallel()

	bus := newFakeBus()
	tr, err := NewWithBus(bus)
	require.NoError(t, err)

	device, err := grf500.New(tr)
	require.NoError(t, err)
	require.NoError(t, device.Initiate(t.Context()))
	assert.True(t, bus.sensor.Initiated)

	version, err := device.FirmwareVersion(t.Context())
	require.NoError(t, err)
	assert.Equal(t, grf500.FirmwareVersion{Major: 1, Minor: 2, Patch: 3}, version)
}

func TestClose(t *testing.T) {
	t.Parallel()

	tr, err := NewWithBus(newFakeBus())
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())
	assert.Zero(t, tr.Address())

	err = tr.ReadRegister(0, make([]byte, 1))
	require.ErrorIs(t, err, grf500.ErrTransportClosed)
	require.NoError(t, tr.Close())
}
