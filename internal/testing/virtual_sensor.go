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

package testing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/LightWare-Optoelectronics/grf-500-api/internal/frame"
)

// Virtual sensor errors
var (
	ErrSensorNotPresent = errors.New("virtual sensor not present")
	ErrSensorAsleep     = errors.New("virtual sensor asleep")
	ErrTokenMismatch    = errors.New("token mismatch")
)

// WriteRecord is one accepted write
type WriteRecord struct {
	Data    []byte
	Command byte
}

// VirtualSensor simulates a GRF-500 for tests. It answers register reads
// and writes directly and serial requests through HandleSerial. Values are
// kept as raw little-endian bytes keyed by command id.
type VirtualSensor struct {
	registers  map[byte][]byte
	rx         []byte
	writes     []WriteRecord
	mu         sync.Mutex
	Saves      int
	Resets     int
	token      uint16
	Present    bool
	Asleep     bool
	Initiated  bool
	EchoWrites bool
}

// NewVirtualSensor creates a sensor with factory defaults: 5 Hz update
// rate, first return raw and filtered distance output, no stream.
func NewVirtualSensor() *VirtualSensor {
	v := &VirtualSensor{
		registers:  make(map[byte][]byte),
		token:      TestToken,
		Present:    true,
		EchoWrites: true,
	}
	v.registers[CmdProductName] = FixedString(TestProductName)
	v.registers[CmdHardwareVersion] = Uint32LE(TestHardwareVersion)
	v.registers[CmdFirmwareVersion] = Uint32LE(TestFirmwareVersion)
	v.registers[CmdSerialNumber] = FixedString(TestSerialNumber)
	v.registers[CmdDistanceConfig] = Uint32LE(0x03)
	v.registers[CmdStream] = Uint32LE(0)
	v.registers[CmdUpdateRate] = Uint32LE(50)
	v.registers[CmdDistanceData] = Int32sLE(100, 101)
	return v
}

// SetRegister replaces the value returned for cmd
func (v *VirtualSensor) SetRegister(cmd byte, data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.registers[cmd] = append([]byte(nil), data...)
}

// Register returns a copy of the value stored for cmd
func (v *VirtualSensor) Register(cmd byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]byte(nil), v.registers[cmd]...)
}

// Token returns the token the next gated write must carry
func (v *VirtualSensor) Token() uint16 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.token
}

// Writes returns every accepted write in order
func (v *VirtualSensor) Writes() []WriteRecord {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]WriteRecord(nil), v.writes...)
}

// ReadRegister fills buf with the value of cmd, zero padded
func (v *VirtualSensor) ReadRegister(cmd byte, buf []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.checkAwake(); err != nil {
		return err
	}
	clear(buf)
	copy(buf, v.value(cmd))
	return nil
}

// WriteRegister applies a write to cmd
func (v *VirtualSensor) WriteRegister(cmd byte, data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.Present {
		return ErrSensorNotPresent
	}
	if cmd == CmdProductName && len(data) == 1 && data[0] == 0x80 {
		v.Initiated = true
		v.Asleep = false
		return nil
	}
	if v.Asleep {
		return ErrSensorAsleep
	}
	return v.applyWrite(cmd, data)
}

// HandleSerial consumes bytes sent by the host and returns the reply
// frames. Partial frames are kept until the rest arrives.
func (v *VirtualSensor) HandleSerial(p []byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.Present {
		return nil
	}

	var out []byte
	for _, b := range p {
		if b == 'U' && len(v.rx) == 0 {
			v.Initiated = true
			v.Asleep = false
			continue
		}
		if len(v.rx) == 0 && b != frame.StartByte {
			continue
		}
		v.rx = append(v.rx, b)
		if reply, done := v.tryFrame(); done {
			out = append(out, reply...)
		}
	}
	return out
}

// StreamFrame returns a streamed packet carrying the current value of cmd
func (v *VirtualSensor) StreamFrame(cmd byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	return BuildResponseFrame(cmd, v.value(cmd))
}

// tryFrame handles v.rx once it holds a whole frame
func (v *VirtualSensor) tryFrame() ([]byte, bool) {
	if len(v.rx) < frame.HeaderSize {
		return nil, false
	}
	flags := binary.LittleEndian.Uint16(v.rx[1:frame.HeaderSize])
	total := frame.HeaderSize + frame.PayloadLength(flags) + frame.CRCSize
	if total > frame.MaxFrameSize || frame.PayloadLength(flags) < 1 {
		v.rx = v.rx[:0]
		return nil, true
	}
	if len(v.rx) < total {
		return nil, false
	}

	frm := v.rx[:total]
	defer func() { v.rx = v.rx[:0] }()
	if !frame.VerifyCRC(frm) || v.Asleep {
		return nil, true
	}

	cmd := frm[frame.CommandOffset]
	data := frm[frame.DataOffset : total-frame.CRCSize]
	if flags&frame.WriteFlag == 0 {
		return BuildResponseFrame(cmd, v.value(cmd)), true
	}
	if err := v.applyWrite(cmd, data); err != nil {
		return nil, true
	}
	if !v.EchoWrites {
		return nil, true
	}
	return BuildResponseFrame(cmd, data), true
}

func (v *VirtualSensor) checkAwake() error {
	if !v.Present {
		return ErrSensorNotPresent
	}
	if v.Asleep {
		return ErrSensorAsleep
	}
	return nil
}

// applyWrite runs with v.mu held
func (v *VirtualSensor) applyWrite(cmd byte, data []byte) error {
	switch cmd {
	case CmdSaveParameters, CmdReset:
		if len(data) != 2 || binary.LittleEndian.Uint16(data) != v.token {
			return fmt.Errorf("command %d: %w", cmd, ErrTokenMismatch)
		}
		v.token = v.token*31 + 7
		if cmd == CmdSaveParameters {
			v.Saves++
		} else {
			v.Resets++
		}
	case CmdSleep:
		v.Asleep = true
	default:
		v.registers[cmd] = append([]byte(nil), data...)
	}
	v.writes = append(v.writes, WriteRecord{Command: cmd, Data: append([]byte(nil), data...)})
	return nil
}

// value runs with v.mu held. The token register always reads the current
// token.
func (v *VirtualSensor) value(cmd byte) []byte {
	if cmd == CmdToken {
		return Uint16LE(v.token)
	}
	return v.registers[cmd]
}
