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
	"encoding/binary"

	"github.com/LightWare-Optoelectronics/grf-500-api/internal/frame"
)

// AssemblerState is the position of an Assembler within a frame
type AssemblerState int

const (
	// StateEmpty waits for the start byte
	StateEmpty AssemblerState = iota
	// StateHeaderPartial collects the flags word
	StateHeaderPartial
	// StateBodyPartial collects command id, data and CRC
	StateBodyPartial
	// StateComplete is reported for a frame that passed its CRC check.
	// The assembler moves back to StateEmpty on the next byte.
	StateComplete
)

// FeedResult is the outcome of feeding one byte to an Assembler
type FeedResult int

const (
	// FeedIncomplete means more bytes are needed
	FeedIncomplete FeedResult = iota
	// FeedComplete means the response now holds a validated packet
	FeedComplete
	// FeedInvalid means the frame was rejected and the assembler reset.
	// Callers treat it like FeedIncomplete and keep feeding.
	FeedInvalid
)

func (r FeedResult) String() string {
	switch r {
	case FeedComplete:
		return "complete"
	case FeedInvalid:
		return "invalid"
	default:
		return "incomplete"
	}
}

// Assembler rebuilds serial frames one byte at a time. Noise before a
// start byte is skipped. A frame with a bad length or CRC is dropped and
// every byte after its start byte is fed again, so a real frame that
// began inside a false or truncated one is still found.
//
// The zero value is ready to use.
type Assembler struct {
	buf       [frame.MaxFrameSize]byte
	pending   []byte
	head      int
	n         int
	remaining int
	state     AssemblerState
}

// Reset drops any partial frame and any bytes waiting to be fed again
func (a *Assembler) Reset() {
	a.state = StateEmpty
	a.n = 0
	a.remaining = 0
	a.pending = a.pending[:0]
	a.head = 0
}

// State returns the current assembler state
func (a *Assembler) State() AssemblerState {
	return a.state
}

// Buffered returns the number of bytes of the current partial frame
func (a *Assembler) Buffered() int {
	return a.n
}

// Feed consumes one byte. On FeedComplete resp holds the packet's command
// id and data; resp is left untouched otherwise. Bytes that follow a
// packet completed while earlier bytes were fed again stay queued and are
// consumed ahead of b on the next call.
func (a *Assembler) Feed(b byte, resp *Response) FeedResult {
	if a.head == len(a.pending) {
		a.pending = a.pending[:0]
		a.head = 0
		return a.step(b, resp)
	}
	a.pending = append(a.pending, b)
	return a.drain(resp)
}

// drain feeds queued bytes until a packet completes or the queue is empty
func (a *Assembler) drain(resp *Response) FeedResult {
	result := FeedIncomplete
	for a.head < len(a.pending) {
		b := a.pending[a.head]
		a.head++
		switch a.step(b, resp) {
		case FeedComplete:
			return FeedComplete
		case FeedInvalid:
			result = FeedInvalid
		case FeedIncomplete:
		}
	}
	a.pending = a.pending[:0]
	a.head = 0
	return result
}

// step runs the state machine for one byte
func (a *Assembler) step(b byte, resp *Response) FeedResult {
	if a.state == StateComplete {
		a.state = StateEmpty
		a.n = 0
		a.remaining = 0
	}

	switch a.state {
	case StateEmpty:
		if b != frame.StartByte {
			return FeedIncomplete
		}
		a.buf[0] = b
		a.n = 1
		a.state = StateHeaderPartial
		return FeedIncomplete

	case StateHeaderPartial:
		a.buf[a.n] = b
		a.n++
		if a.n < frame.HeaderSize {
			return FeedIncomplete
		}
		flags := binary.LittleEndian.Uint16(a.buf[1:frame.HeaderSize])
		a.remaining = frame.PayloadLength(flags) + frame.CRCSize
		if a.remaining > frame.MaxRemaining || a.remaining < frame.MinRemaining {
			return a.reject(resp)
		}
		a.state = StateBodyPartial
		return FeedIncomplete

	case StateBodyPartial:
		a.buf[a.n] = b
		a.n++
		a.remaining--
		if a.remaining > 0 {
			return a.findInner(resp)
		}
		return a.finish(resp)
	}

	return a.reject(resp)
}

// finish validates a fully collected frame and copies it into resp
func (a *Assembler) finish(resp *Response) FeedResult {
	frm := a.buf[:a.n]
	if !frame.VerifyCRC(frm) {
		return a.reject(resp)
	}

	data := frm[frame.DataOffset : len(frm)-frame.CRCSize]
	if err := resp.Fill(CommandID(frm[frame.CommandOffset]), data); err != nil {
		return a.reject(resp)
	}

	a.state = StateComplete
	return FeedComplete
}

// findInner reports a packet that ends at the current byte but started
// after the start byte of the frame being collected. A stray start byte
// followed by a real header reads as a long frame that would otherwise
// swallow the real one.
func (a *Assembler) findInner(resp *Response) FeedResult {
	for k := 1; k+frame.HeaderSize+frame.MinRemaining <= a.n; k++ {
		if a.buf[k] != frame.StartByte {
			continue
		}
		flags := binary.LittleEndian.Uint16(a.buf[k+1 : k+frame.HeaderSize])
		if k+frame.HeaderSize+frame.PayloadLength(flags)+frame.CRCSize != a.n {
			continue
		}
		inner := a.buf[k:a.n]
		if !frame.VerifyCRC(inner) {
			continue
		}
		data := inner[frame.DataOffset : len(inner)-frame.CRCSize]
		if resp.Fill(CommandID(inner[frame.CommandOffset]), data) != nil {
			continue
		}
		a.state = StateComplete
		return FeedComplete
	}
	return FeedIncomplete
}

// reject drops the current frame and queues the bytes after its start
// byte, ahead of anything already queued, to be fed again. A packet found
// among them is reported in place of the rejection.
func (a *Assembler) reject(resp *Response) FeedResult {
	rest := a.pending[a.head:]
	replay := make([]byte, 0, a.n-1+len(rest))
	replay = append(replay, a.buf[1:a.n]...)
	replay = append(replay, rest...)

	a.state = StateEmpty
	a.n = 0
	a.remaining = 0
	a.pending = replay
	a.head = 0
	if a.drain(resp) == FeedComplete {
		return FeedComplete
	}
	return FeedInvalid
}
