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

import "encoding/binary"

// Flags packs the payload length and write bit into the flags word
func Flags(payloadLength int, write bool) uint16 {
	flags := uint16(payloadLength) << lengthShift
	if write {
		flags |= WriteFlag
	}
	return flags
}

// PayloadLength extracts the payload length from a flags word
func PayloadLength(flags uint16) int {
	return int(flags >> lengthShift)
}

// EncodedSize returns the frame size for a request carrying n data bytes
func EncodedSize(n int) int {
	return DataOffset + n + CRCSize
}

// Encode appends a request frame for command id to dst and returns the
// extended slice. Read requests carry no data.
func Encode(dst []byte, commandID byte, write bool, data []byte) []byte {
	if !write {
		data = nil
	}
	return Append(dst, commandID, write, data)
}

// Append appends a frame carrying data regardless of direction. Device
// replies and streamed packets are read frames with data.
func Append(dst []byte, commandID byte, write bool, data []byte) []byte {
	start := len(dst)
	flags := Flags(1+len(data), write)
	dst = append(dst, StartByte, byte(flags), byte(flags>>8), commandID)
	dst = append(dst, data...)
	return binary.LittleEndian.AppendUint16(dst, CRC16(dst[start:]))
}

// VerifyCRC checks the trailing CRC of a complete frame
func VerifyCRC(frm []byte) bool {
	if len(frm) < HeaderSize+MinRemaining {
		return false
	}
	body := frm[:len(frm)-CRCSize]
	return CRC16(body) == binary.LittleEndian.Uint16(frm[len(frm)-CRCSize:])
}
