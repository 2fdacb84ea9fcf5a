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

package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// Format selects how records are encoded on a stream or in an MQTT payload
type Format string

// Formats
const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ParseFormat accepts "json" or "cbor"
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatCBOR:
		return f, nil
	default:
		return "", fmt.Errorf("unknown telemetry format %q", s)
	}
}

// cborMode encodes times as RFC 3339 strings with tag 0 so nanoseconds
// survive the round trip
var cborMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano, TimeTag: cbor.EncTagRequired}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Marshal encodes one record in format f
func Marshal(f Format, r Record) ([]byte, error) {
	switch f {
	case FormatCBOR:
		return cborMode.Marshal(r)
	case FormatJSON:
		return json.Marshal(r)
	default:
		return nil, fmt.Errorf("unknown telemetry format %q", f)
	}
}

// encoder is satisfied by both json.Encoder and cbor.Encoder
type encoder interface {
	Encode(v any) error
}

// StreamSink writes records to an io.Writer, one JSON document per line
// or back to back CBOR items (a CBOR sequence)
type StreamSink struct {
	enc    encoder
	closer io.Closer
	mu     sync.Mutex
	closed bool
}

// NewStreamSink encodes records to w. If w is an io.Closer, Close closes it.
func NewStreamSink(w io.Writer, f Format) (*StreamSink, error) {
	s := &StreamSink{}
	switch f {
	case FormatJSON:
		s.enc = json.NewEncoder(w)
	case FormatCBOR:
		s.enc = cborMode.NewEncoder(w)
	default:
		return nil, fmt.Errorf("unknown telemetry format %q", f)
	}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s, nil
}

// Write implements Sink
func (s *StreamSink) Write(ctx context.Context, r Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	if err := s.enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	return nil
}

// Close implements Sink
func (s *StreamSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
