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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LightWare-Optoelectronics/grf-500-api/internal/frame"
	"github.com/LightWare-Optoelectronics/grf-500-api/internal/transport"
)

// errNoMatch is an internal marker: a byte was consumed but no matching
// packet is ready yet
var errNoMatch = errors.New("no matching packet")

// SendRequestGetResponse sends the scratch request and fills the scratch
// response.
//
// On a register transport a write is one WriteRegister call and a read is
// one ReadRegister call of the request's size. On a stream transport the
// framed request is written and the device waits for a reply carrying the
// same command id, up to the configured timeout.
func (d *Device) SendRequestGetResponse(ctx context.Context) error {
	if d.config.Retries <= 0 {
		return d.exchange(ctx)
	}

	id := d.request.CommandID
	_, err := transport.WithRetry(transport.RetryConfig{
		Description: id.String(),
		MaxRetries:  d.config.Retries,
		RetryDelay:  d.config.RetryDelay,
		Sleep:       d.clock.Sleep,
		Exhausted:   ErrExceededRetries,
		OnRetry: func(attempt int) error {
			d.logger.Debugf("retrying %s, attempt %d of %d", id, attempt, d.config.Retries)
			return ctx.Err()
		},
	}, func(int) (struct{}, bool, error) {
		err := d.exchange(ctx)
		switch {
		case err == nil:
			return struct{}{}, false, nil
		case ctx.Err() == nil && IsRetryable(err):
			return struct{}{}, true, nil
		default:
			return struct{}{}, false, err
		}
	})
	if errors.Is(err, ErrExceededRetries) {
		return fmt.Errorf("%s: %w", id, err)
	}
	return err
}

func (d *Device) exchange(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.registers != nil {
		return d.exchangeRegister()
	}
	if err := d.SendRequest(ctx); err != nil {
		return err
	}
	return d.WaitForResponse(ctx, ForCommand(d.request.CommandID), d.config.Timeout)
}

// exchangeRegister runs the request as a single register transaction. The
// response keeps its unset marker if the read fails.
func (d *Device) exchangeRegister() error {
	req := &d.request
	if req.Write {
		d.logger.Debugf("i2c write %s: % X", req.CommandID, req.Payload())
		if err := d.registers.WriteRegister(byte(req.CommandID), req.Payload()); err != nil {
			return asTransportError("write "+req.CommandID.String(), err)
		}
		return nil
	}

	d.response.Reset()
	buf := d.response.buffer(req.Size())
	if err := d.registers.ReadRegister(byte(req.CommandID), buf); err != nil {
		return asTransportError("read "+req.CommandID.String(), err)
	}
	d.response.CommandID = req.CommandID
	d.response.size = req.Size()
	d.logger.Debugf("i2c read %s: % X", req.CommandID, buf)
	return nil
}

// SendRequest writes the framed scratch request to a stream transport
// without waiting for a reply
func (d *Device) SendRequest(ctx context.Context) error {
	if d.stream == nil {
		return fmt.Errorf("send request on %s transport: %w", d.transport.Type(), ErrInvalidParameter)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	req := &d.request
	d.txBuf = frame.Encode(d.txBuf[:0], byte(req.CommandID), req.Write, req.Payload())
	d.logger.Debugf("tx %s: % X", req.CommandID, d.txBuf)

	n, err := d.stream.Write(d.txBuf)
	if err != nil {
		return asTransportError("send "+req.CommandID.String(), err)
	}
	if n == 0 {
		return NewTransportError("send "+req.CommandID.String(), "", ErrNoBytesWritten, ErrorTypeTransient)
	}
	if n < len(d.txBuf) {
		return NewTransportError("send "+req.CommandID.String(), "",
			fmt.Errorf("%w: short write %d of %d bytes", ErrTransportWrite, n, len(d.txBuf)), ErrorTypeTransient)
	}
	return nil
}

// ResetResponse clears the scratch response and any partial frame. Call it
// before starting a series of PollResponse calls.
func (d *Device) ResetResponse() {
	d.response.Reset()
	d.assembler.Reset()
}

// WaitForResponse blocks until a packet accepted by filter arrives, the
// timeout passes (ErrTimeout) or ctx is done. Packets for other commands
// are dropped. The loop polls the transport without sleeping.
func (d *Device) WaitForResponse(ctx context.Context, filter CommandFilter, timeout time.Duration) error {
	if d.stream == nil {
		return fmt.Errorf("wait for response on %s transport: %w", d.transport.Type(), ErrInvalidParameter)
	}

	deadline := d.clock.Now().Add(timeout)
	d.ResetResponse()

	for {
		if !d.clock.Now().Before(deadline) {
			return ErrTimeout
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := d.feedNext(filter)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrAgain), errors.Is(err, errNoMatch):
			continue
		default:
			return err
		}
	}
}

// PollResponse consumes every byte that is already available and returns
// nil once a packet accepted by filter is complete, or ErrAgain when the
// transport runs dry first. Partial frames survive between calls.
func (d *Device) PollResponse(filter CommandFilter) error {
	if d.stream == nil {
		return fmt.Errorf("poll response on %s transport: %w", d.transport.Type(), ErrInvalidParameter)
	}

	for {
		err := d.feedNext(filter)
		if errors.Is(err, errNoMatch) {
			continue
		}
		return err
	}
}

// feedNext reads at most one byte and feeds it to the assembler
func (d *Device) feedNext(filter CommandFilter) error {
	b, ok, err := d.stream.ReadByte()
	if err != nil {
		return asTransportError("read byte", err)
	}
	if !ok {
		return ErrAgain
	}

	switch d.assembler.Feed(b, &d.response) {
	case FeedComplete:
		d.logger.Debugf("rx %s: % X", d.response.CommandID, d.response.Payload())
		if filter.Matches(d.response.CommandID) {
			return nil
		}
		d.logger.Debugf("dropping %s while waiting for %s", d.response.CommandID, filter)
		d.response.Reset()
	case FeedInvalid:
		d.logger.Debugf("dropped invalid frame")
	case FeedIncomplete:
	}
	return errNoMatch
}

// asTransportError keeps an existing TransportError (adding op as
// context) and classifies any other error
func asTransportError(op string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return NewTransportError(op, "", err, GetErrorType(err))
}
