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
	"time"
)

// Transport is the part every GRF-500 backend shares. A usable transport
// also implements either RegisterTransport or StreamTransport.
type Transport interface {
	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is connected
	IsConnected() bool

	// Type returns the transport type
	Type() TransportType
}

// RegisterTransport is a register-addressed bus such as I2C, where the
// command id is the register address. Each call is one atomic transaction
// from the Device's point of view.
type RegisterTransport interface {
	Transport

	// ReadRegister selects register commandID and reads len(buf) bytes
	ReadRegister(commandID byte, buf []byte) error

	// WriteRegister writes data to register commandID
	WriteRegister(commandID byte, data []byte) error
}

// StreamTransport is a byte stream without framing, such as a UART
type StreamTransport interface {
	Transport

	// Write sends raw bytes and returns how many were written
	Write(p []byte) (int, error)

	// ReadByte returns the next received byte. ok is false when no byte is
	// available right now; err reports a hard failure. It must not block
	// for longer than a short poll slice.
	ReadByte() (b byte, ok bool, err error)
}

// TransportType represents the type of transport
type TransportType string

const (
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportI2C represents I2C bus transport.
	TransportI2C TransportType = "i2c"
	// TransportWebSocket represents a serial bridge reached over WebSocket.
	TransportWebSocket TransportType = "websocket"
	// TransportMock represents a mock transport for testing
	TransportMock TransportType = "mock"
)

// Clock supplies time to the blocking wait loop
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns the wall clock. time.Now carries a monotonic
// reading, so deadlines are not affected by clock adjustments.
func SystemClock() Clock {
	return systemClock{}
}
