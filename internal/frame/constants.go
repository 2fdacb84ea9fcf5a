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

// Package frame provides the serial wire framing used by GRF-500 devices
package frame

// Frame markers
const (
	StartByte = 0xAA // First byte of every serial frame
	WriteFlag = 0x01 // Low bit of the flags word, set for write requests
)

// Frame layout. A frame is:
//
//	0xAA | flags lo | flags hi | command id | data... | crc lo | crc hi
//
// where flags = payload length << 6 | write bit and the payload length
// counts the command id plus the data bytes.
const (
	HeaderSize    = 3    // start byte and flags word
	CommandOffset = 3    // offset of the command id
	DataOffset    = 4    // offset of the first data byte
	CRCSize       = 2    // trailing CRC16, little-endian
	MaxFrameSize  = 1024 // largest frame the assembler buffers
	lengthShift   = 6
)

// Length limits for the bytes that follow the header (payload plus CRC)
const (
	MinRemaining = 3    // command id and CRC
	MaxRemaining = 1019 // device firmware limit
)
