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

// Package uart provides the serial transport for the GRF-500, used for both
// the UART pins and the USB CDC port
package uart

import (
	"fmt"
	"sync"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the factory serial speed
	DefaultBaudRate = 115200

	// pollSlice bounds how long ReadByte may block when no data is waiting
	pollSlice = time.Millisecond

	readChunk = 64
)

// Option configures a Transport before the port is opened
type Option func(*Transport) error

// WithBaudRate opens the port at a non-default speed. It must match the
// sensor's baud rate setting.
func WithBaudRate(bps int) Option {
	return func(t *Transport) error {
		if _, err := grf500.BaudRateFromBitsPerSecond(bps); err != nil {
			return err
		}
		t.baudRate = bps
		return nil
	}
}

// Transport implements grf500.StreamTransport over a serial port
type Transport struct {
	port     serial.Port
	portName string
	buf      [readChunk]byte
	baudRate int
	head     int
	tail     int
	mu       sync.Mutex
}

// New opens portName at 115200 8N1 (or the WithBaudRate speed)
func New(portName string, opts ...Option) (*Transport, error) {
	t := &Transport{
		portName: portName,
		baudRate: DefaultBaudRate,
	}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	mode := &serial.Mode{
		BaudRate: t.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	if err := t.attach(port); err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

// NewWithPort wraps an already opened port
func NewWithPort(port serial.Port, portName string) (*Transport, error) {
	t := &Transport{portName: portName, baudRate: DefaultBaudRate}
	if err := t.attach(port); err != nil {
		return nil, err
	}
	return t, nil
}

// attach makes reads non-blocking and drops anything received before the
// session started
func (t *Transport) attach(port serial.Port) error {
	if err := port.SetReadTimeout(pollSlice); err != nil {
		return fmt.Errorf("failed to set read timeout on %s: %w", t.portName, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("failed to reset input buffer on %s: %w", t.portName, err)
	}
	t.port = port
	return nil
}

// Write sends raw bytes
func (t *Transport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return 0, grf500.NewTransportError("write", t.portName, grf500.ErrTransportClosed, grf500.ErrorTypePermanent)
	}
	n, err := t.port.Write(p)
	if err != nil {
		return n, grf500.NewTransportError("write", t.portName,
			fmt.Errorf("%w: %w", grf500.ErrTransportWrite, err), grf500.ErrorTypeTransient)
	}
	return n, nil
}

// ReadByte returns the next received byte, waiting at most one poll slice
// for the port to deliver more
func (t *Transport) ReadByte() (byte, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return 0, false, grf500.NewTransportError("read", t.portName, grf500.ErrTransportClosed, grf500.ErrorTypePermanent)
	}

	if t.head == t.tail {
		n, err := t.port.Read(t.buf[:])
		if err != nil {
			return 0, false, grf500.NewTransportError("read", t.portName,
				fmt.Errorf("%w: %w", grf500.ErrTransportRead, err), grf500.ErrorTypePermanent)
		}
		if n == 0 {
			return 0, false, nil
		}
		t.head, t.tail = 0, n
	}

	b := t.buf[t.head]
	t.head++
	return b, true, nil
}

// Close closes the transport connection
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true if the transport is connected
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// PortName returns the port the transport was opened on
func (t *Transport) PortName() string {
	return t.portName
}

// BaudRate returns the configured port speed
func (t *Transport) BaudRate() int {
	return t.baudRate
}

// Type returns the transport type
func (*Transport) Type() grf500.TransportType {
	return grf500.TransportUART
}

// HasCapability implements grf500.TransportCapabilityChecker
func (*Transport) HasCapability(capability grf500.TransportCapability) bool {
	switch capability {
	case grf500.CapabilityStreaming, grf500.CapabilityNonBlocking:
		return true
	default:
		return false
	}
}

// Ensure Transport implements grf500.StreamTransport
var _ grf500.StreamTransport = (*Transport)(nil)
