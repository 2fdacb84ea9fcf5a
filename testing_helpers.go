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
	"sync"
)

// MockStreamTransport is a scripted StreamTransport for tests. Bytes queued
// with Queue are handed out one at a time by ReadByte; OnWrite, if set, is
// called for every write and its result is queued as the device's reply.
type MockStreamTransport struct {
	OnWrite   func(p []byte) []byte
	writeErr  error
	readErr   error
	rx        []byte
	writes    [][]byte
	mu        sync.Mutex
	reads     int
	zeroWrite bool
	closed    bool
}

// NewMockStreamTransport creates an empty, connected mock stream
func NewMockStreamTransport() *MockStreamTransport {
	return &MockStreamTransport{}
}

// Queue appends bytes for ReadByte to return
func (m *MockStreamTransport) Queue(b ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rx = append(m.rx, b...)
}

// SetWriteError makes every following Write fail with err
func (m *MockStreamTransport) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// SetReadError makes every following ReadByte fail with err
func (m *MockStreamTransport) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetZeroWrite makes Write report that nothing was written
func (m *MockStreamTransport) SetZeroWrite(zero bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zeroWrite = zero
}

// Writes returns a copy of every successful write
func (m *MockStreamTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	for i, w := range m.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Pending returns the number of queued bytes not yet read
func (m *MockStreamTransport) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rx)
}

// ReadCalls returns how many times ReadByte was called
func (m *MockStreamTransport) ReadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Write implements StreamTransport
func (m *MockStreamTransport) Write(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, ErrTransportClosed
	}
	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()
		return 0, err
	}
	if m.zeroWrite {
		m.mu.Unlock()
		return 0, nil
	}
	m.writes = append(m.writes, append([]byte(nil), p...))
	onWrite := m.OnWrite
	m.mu.Unlock()

	if onWrite != nil {
		if reply := onWrite(p); len(reply) > 0 {
			m.Queue(reply...)
		}
	}
	return len(p), nil
}

// ReadByte implements StreamTransport
func (m *MockStreamTransport) ReadByte() (byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	if m.closed {
		return 0, false, ErrTransportClosed
	}
	if m.readErr != nil {
		return 0, false, m.readErr
	}
	if len(m.rx) == 0 {
		return 0, false, nil
	}
	b := m.rx[0]
	m.rx = m.rx[1:]
	return b, true, nil
}

// Close implements Transport
func (m *MockStreamTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected implements Transport
func (m *MockStreamTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type implements Transport
func (*MockStreamTransport) Type() TransportType {
	return TransportMock
}

// HasCapability reports the capabilities of a non-blocking stream
func (*MockStreamTransport) HasCapability(capability TransportCapability) bool {
	return capability == CapabilityStreaming || capability == CapabilityNonBlocking
}

// RegisterBackend answers register transactions for MockRegisterTransport
type RegisterBackend interface {
	ReadRegister(commandID byte, buf []byte) error
	WriteRegister(commandID byte, data []byte) error
}

// RegisterCall is one recorded register transaction
type RegisterCall struct {
	Data      []byte
	CommandID byte
	Read      bool
}

// MockRegisterTransport is a RegisterTransport for tests. Without a backend
// it serves reads from a register map and stores writes in it.
type MockRegisterTransport struct {
	backend   RegisterBackend
	registers map[byte][]byte
	errs      map[byte]error
	failErr   error
	calls     []RegisterCall
	failNext  int
	mu        sync.Mutex
	closed    bool
}

// NewMockRegisterTransport creates a mock bus. backend may be nil.
func NewMockRegisterTransport(backend RegisterBackend) *MockRegisterTransport {
	return &MockRegisterTransport{
		backend:   backend,
		registers: make(map[byte][]byte),
		errs:      make(map[byte]error),
	}
}

// SetRegister sets the bytes returned for reads of commandID
func (m *MockRegisterTransport) SetRegister(commandID byte, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registers[commandID] = append([]byte(nil), data...)
}

// Register returns the bytes last written to commandID
func (m *MockRegisterTransport) Register(commandID byte) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.registers[commandID]...)
}

// SetError makes every transaction on commandID fail with err
func (m *MockRegisterTransport) SetError(commandID byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, commandID)
		return
	}
	m.errs[commandID] = err
}

// FailNext makes the next n transactions fail with err
func (m *MockRegisterTransport) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = n
	m.failErr = err
}

// Calls returns every transaction in order
func (m *MockRegisterTransport) Calls() []RegisterCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RegisterCall(nil), m.calls...)
}

// check runs with m.mu held
func (m *MockRegisterTransport) check(commandID byte) error {
	if m.closed {
		return ErrTransportClosed
	}
	if m.failNext > 0 {
		m.failNext--
		return m.failErr
	}
	return m.errs[commandID]
}

// ReadRegister implements RegisterTransport
func (m *MockRegisterTransport) ReadRegister(commandID byte, buf []byte) error {
	m.mu.Lock()
	m.calls = append(m.calls, RegisterCall{CommandID: commandID, Read: true, Data: make([]byte, len(buf))})
	if err := m.check(commandID); err != nil {
		m.mu.Unlock()
		return err
	}
	backend := m.backend
	if backend == nil {
		clear(buf)
		copy(buf, m.registers[commandID])
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	return backend.ReadRegister(commandID, buf)
}

// WriteRegister implements RegisterTransport
func (m *MockRegisterTransport) WriteRegister(commandID byte, data []byte) error {
	m.mu.Lock()
	m.calls = append(m.calls, RegisterCall{CommandID: commandID, Data: append([]byte(nil), data...)})
	if err := m.check(commandID); err != nil {
		m.mu.Unlock()
		return err
	}
	backend := m.backend
	if backend == nil {
		m.registers[commandID] = append([]byte(nil), data...)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	return backend.WriteRegister(commandID, data)
}

// Close implements Transport
func (m *MockRegisterTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected implements Transport
func (m *MockRegisterTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type implements Transport
func (*MockRegisterTransport) Type() TransportType {
	return TransportMock
}
