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
	"bytes"
	"encoding/binary"
)

const (
	// RequestCapacity is the largest payload a Request can carry
	RequestCapacity = 160

	// CommandIDUnset marks a Response that has not been populated yet
	CommandIDUnset = 0xFF

	// StringSize is the fixed width of every string field on the wire
	StringSize = 16
)

// Request is an outgoing command. For writes the payload holds the value
// being written; for reads the payload size is the number of bytes a
// register transport has to read back.
type Request struct {
	payload   [RequestCapacity]byte
	size      int
	CommandID CommandID
	Write     bool
}

// Reset clears the request to a zero-length read of command 0
func (r *Request) Reset() {
	r.CommandID = 0
	r.Write = false
	r.size = 0
}

// Size returns the number of meaningful payload bytes
func (r *Request) Size() int {
	return r.size
}

// Payload returns the meaningful part of the payload buffer. The slice
// aliases the request and is only valid until the request is rebuilt.
func (r *Request) Payload() []byte {
	return r.payload[:r.size]
}

// CreateRead builds a read request that expects size bytes back
func (r *Request) CreateRead(id CommandID, size int) error {
	if size < 0 || size > ResponseCapacity {
		return ErrInvalidParameter
	}
	r.CommandID = id
	r.Write = false
	r.size = size
	return nil
}

// CreateWrite builds a write request carrying a copy of data
func (r *Request) CreateWrite(id CommandID, data []byte) error {
	if len(data) > RequestCapacity {
		return ErrInvalidParameter
	}
	r.CommandID = id
	r.Write = true
	r.size = copy(r.payload[:], data)
	return nil
}

// CreateWriteUint8 builds a one byte write
func (r *Request) CreateWriteUint8(id CommandID, v uint8) error {
	return r.CreateWrite(id, []byte{v})
}

// CreateWriteUint16 builds a little-endian two byte write
func (r *Request) CreateWriteUint16(id CommandID, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	return r.CreateWrite(id, b[:])
}

// CreateWriteUint32 builds a little-endian four byte write
func (r *Request) CreateWriteUint32(id CommandID, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return r.CreateWrite(id, b[:])
}

// CreateWriteInt8 builds a one byte signed write
func (r *Request) CreateWriteInt8(id CommandID, v int8) error {
	return r.CreateWriteUint8(id, uint8(v))
}

// CreateWriteInt16 builds a two byte signed write
func (r *Request) CreateWriteInt16(id CommandID, v int16) error {
	return r.CreateWriteUint16(id, uint16(v))
}

// CreateWriteInt32 builds a four byte signed write
func (r *Request) CreateWriteInt32(id CommandID, v int32) error {
	return r.CreateWriteUint32(id, uint32(v))
}

// CreateWriteString builds a 16 byte string write. Longer strings are cut,
// shorter ones are padded with NUL bytes.
func (r *Request) CreateWriteString(id CommandID, s string) error {
	var b [StringSize]byte
	copy(b[:], s)
	return r.CreateWrite(id, b[:])
}

// CreateWriteData builds a write of arbitrary bytes
func (r *Request) CreateWriteData(id CommandID, data []byte) error {
	return r.CreateWrite(id, data)
}

// Response is an incoming reply or streamed packet.
//
// The typed getters do not check the offset against Size: callers must only
// read fields the command actually returns. Reading beyond the buffer
// capacity panics.
type Response struct {
	payload   [ResponseCapacity]byte
	size      int
	CommandID CommandID
}

// Reset marks the response as not yet populated
func (r *Response) Reset() {
	r.CommandID = CommandIDUnset
	r.size = 0
}

// IsSet reports whether the response holds a packet
func (r *Response) IsSet() bool {
	return r.CommandID != CommandIDUnset
}

// Size returns the number of valid payload bytes
func (r *Response) Size() int {
	return r.size
}

// Payload returns the valid part of the payload buffer. The slice aliases
// the response.
func (r *Response) Payload() []byte {
	return r.payload[:r.size]
}

// Fill replaces the response with a packet for id. Transports and the
// stream assembler use it; it fails when data does not fit.
func (r *Response) Fill(id CommandID, data []byte) error {
	if len(data) > ResponseCapacity {
		return ErrInvalidParameter
	}
	r.CommandID = id
	r.size = copy(r.payload[:], data)
	return nil
}

// buffer exposes n bytes of the payload for a register read
func (r *Response) buffer(n int) []byte {
	return r.payload[:n]
}

// Uint8 reads a byte at offset
func (r *Response) Uint8(offset int) uint8 {
	return r.payload[offset]
}

// Uint16 reads a little-endian uint16 at offset
func (r *Response) Uint16(offset int) uint16 {
	return binary.LittleEndian.Uint16(r.payload[offset : offset+2])
}

// Uint32 reads a little-endian uint32 at offset
func (r *Response) Uint32(offset int) uint32 {
	return binary.LittleEndian.Uint32(r.payload[offset : offset+4])
}

// Int8 reads a signed byte at offset
func (r *Response) Int8(offset int) int8 {
	return int8(r.Uint8(offset))
}

// Int16 reads a little-endian int16 at offset
func (r *Response) Int16(offset int) int16 {
	return int16(r.Uint16(offset))
}

// Int32 reads a little-endian int32 at offset
func (r *Response) Int32(offset int) int32 {
	return int32(r.Uint32(offset))
}

// FixedString reads the 16 byte string at offset, stopping at the first NUL
func (r *Response) FixedString(offset int) string {
	b := r.payload[offset : offset+StringSize]
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// Data copies n bytes starting at offset
func (r *Response) Data(offset, n int) []byte {
	out := make([]byte, n)
	copy(out, r.payload[offset:offset+n])
	return out
}
