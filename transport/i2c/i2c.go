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

// Package i2c provides the I2C transport for the GRF-500. The sensor exposes
// every command as a register: a read selects the register and reads the
// value back in one transaction, a write sends the register followed by
// the value.
package i2c

import (
	"errors"
	"fmt"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	"github.com/LightWare-Optoelectronics/grf-500-api/internal/transport"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the factory 7-bit address of the GRF-500
	DefaultAddress = 0x66

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz

	defaultRetries    = 2
	defaultRetryDelay = 2 * time.Millisecond
)

// Option configures a Transport
type Option func(*Transport) error

// WithAddress selects a non-default device address
func WithAddress(addr uint16) Option {
	return func(t *Transport) error {
		if addr < 0x08 || addr > 0x77 {
			return fmt.Errorf("i2c address 0x%02X: %w", addr, grf500.ErrInvalidParameter)
		}
		t.dev.Addr = addr
		return nil
	}
}

// WithBusSpeed sets the bus clock. Buses that cannot change speed keep
// their default.
func WithBusSpeed(f physic.Frequency) Option {
	return func(t *Transport) error {
		if f <= 0 {
			return fmt.Errorf("bus speed %v: %w", f, grf500.ErrInvalidParameter)
		}
		t.speed = f
		return nil
	}
}

// WithRetries sets how many times a NACKed transaction is repeated
func WithRetries(n int, delay time.Duration) Option {
	return func(t *Transport) error {
		if n < 0 || delay < 0 {
			return fmt.Errorf("retries %d delay %v: %w", n, delay, grf500.ErrInvalidParameter)
		}
		t.retries = n
		t.retryDelay = delay
		return nil
	}
}

// Transport implements grf500.RegisterTransport over an I2C bus
type Transport struct {
	dev        *i2c.Dev
	closer     func() error
	busName    string
	speed      physic.Frequency
	retries    int
	retryDelay time.Duration
	tx         []byte
}

// New opens busName (for example "1" or "/dev/i2c-1") and addresses the
// sensor at DefaultAddress unless WithAddress says otherwise
func New(busName string, opts ...Option) (*Transport, error) {
	// Initialize host
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	t, err := NewWithBus(bus, opts...)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	t.busName = busName
	t.closer = bus.Close
	return t, nil
}

// NewWithBus wraps an already opened bus. The caller keeps ownership of
// bus; Close does not close it.
func NewWithBus(bus i2c.Bus, opts ...Option) (*Transport, error) {
	if bus == nil {
		return nil, fmt.Errorf("nil bus: %w", grf500.ErrInvalidParameter)
	}

	t := &Transport{
		dev:        &i2c.Dev{Addr: DefaultAddress, Bus: bus},
		busName:    bus.String(),
		speed:      maxClockFreq,
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	_ = bus.SetSpeed(t.speed) // Ignore error, continue with default speed
	return t, nil
}

// Address returns the 7-bit device address in use
func (t *Transport) Address() uint16 {
	if t.dev == nil {
		return 0
	}
	return t.dev.Addr
}

// ReadRegister selects register commandID and reads len(buf) bytes
func (t *Transport) ReadRegister(commandID byte, buf []byte) error {
	t.tx = append(t.tx[:0], commandID)
	return t.transact("read", t.tx, buf)
}

// WriteRegister writes data to register commandID
func (t *Transport) WriteRegister(commandID byte, data []byte) error {
	t.tx = append(append(t.tx[:0], commandID), data...)
	return t.transact("write", t.tx, nil)
}

// transact runs one bus transaction, repeating it while the sensor NACKs
func (t *Transport) transact(op string, w, r []byte) error {
	if t.dev == nil {
		return grf500.NewTransportError(op, t.busName, grf500.ErrTransportClosed, grf500.ErrorTypePermanent)
	}

	var lastErr error
	_, err := transport.WithRetry(transport.RetryConfig{
		Description: op,
		MaxRetries:  t.retries,
		RetryDelay:  t.retryDelay,
	}, func(int) (struct{}, bool, error) {
		if err := t.dev.Tx(w, r); err != nil {
			lastErr = err
			return struct{}{}, true, nil
		}
		return struct{}{}, false, nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, transport.ErrRetriesExhausted) {
		return grf500.NewTransportError(op, t.busName,
			fmt.Errorf("%w: %w", errTxFailed(op), lastErr), grf500.ErrorTypeTransient)
	}
	return grf500.NewTransportError(op, t.busName, err, grf500.ErrorTypePermanent)
}

func errTxFailed(op string) error {
	if op == "write" {
		return grf500.ErrTransportWrite
	}
	return grf500.ErrTransportRead
}

// Close closes the transport connection
func (t *Transport) Close() error {
	if t.dev == nil {
		return nil
	}
	t.dev = nil
	if t.closer != nil {
		if err := t.closer(); err != nil {
			return fmt.Errorf("failed to close I2C bus %s: %w", t.busName, err)
		}
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	return t.dev != nil
}

// Type returns the transport type
func (*Transport) Type() grf500.TransportType {
	return grf500.TransportI2C
}

// Ensure Transport implements grf500.RegisterTransport
var _ grf500.RegisterTransport = (*Transport)(nil)
