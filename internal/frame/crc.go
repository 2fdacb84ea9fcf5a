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

package frame

// CRC16 computes the CRC-16/XMODEM checksum (polynomial 0x1021, initial
// value 0) the device appends to every frame.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		code := byte(crc>>8) ^ b
		code ^= code >> 4
		crc = crc<<8 ^ uint16(code) ^ uint16(code)<<5 ^ uint16(code)<<12
	}
	return crc
}
