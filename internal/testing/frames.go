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

	"github.com/LightWare-Optoelectronics/grf-500-api/internal/frame"
)

// BuildFrame creates a serial frame exactly as the device would send it
func BuildFrame(commandID byte, write bool, data []byte) []byte {
	return frame.Append(nil, commandID, write, data)
}

// BuildResponseFrame creates a device reply or streamed packet for commandID
func BuildResponseFrame(commandID byte, data []byte) []byte {
	return BuildFrame(commandID, false, data)
}

// BuildRequestFrame creates the frame a host sends for a request
func BuildRequestFrame(commandID byte, write bool, data []byte) []byte {
	return frame.Encode(nil, commandID, write, data)
}

// CorruptCRC returns a copy of frm with the last CRC byte flipped
func CorruptCRC(frm []byte) []byte {
	out := append([]byte(nil), frm...)
	out[len(out)-1] ^= 0xFF
	return out
}

// Concat joins byte slices into one stream
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Uint32LE encodes v little-endian
func Uint32LE(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

// Int32LE encodes v little-endian
func Int32LE(v int32) []byte {
	return Uint32LE(uint32(v))
}

// Uint16LE encodes v little-endian
func Uint16LE(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

// Int32sLE encodes a run of int32 values little-endian
func Int32sLE(values ...int32) []byte {
	out := make([]byte, 0, len(values)*4)
	for _, v := range values {
		out = binary.LittleEndian.AppendUint32(out, uint32(v))
	}
	return out
}

// FixedString pads s with NUL bytes to the 16 byte string width
func FixedString(s string) []byte {
	out := make([]byte, 16)
	copy(out, s)
	return out
}

// Well known test values
var (
	// TestProductName is what the virtual sensor reports
	TestProductName = "GRF500"

	// TestSerialNumber is the virtual sensor's serial number
	TestSerialNumber = "GRF5-000123"

	// TestFirmwareVersion packs version 1.2.3
	TestFirmwareVersion uint32 = 0x010203

	// TestHardwareVersion is the virtual sensor's hardware revision
	TestHardwareVersion uint32 = 3

	// TestToken is the first token the virtual sensor hands out
	TestToken uint16 = 0x4D2A
)

// Command ids the virtual sensor treats specially
const (
	CmdProductName     = 0
	CmdHardwareVersion = 1
	CmdFirmwareVersion = 2
	CmdSerialNumber    = 3
	CmdToken           = 10
	CmdSaveParameters  = 12
	CmdReset           = 14
	CmdDistanceConfig  = 27
	CmdStream          = 30
	CmdDistanceData    = 44
	CmdMultiData       = 45
	CmdUpdateRate      = 74
	CmdSleep           = 98
)
