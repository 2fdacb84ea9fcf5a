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
	"fmt"
	"time"
)

// Initiate switches the sensor into protocol mode. On a serial link it
// sends the "UUU" wake sequence; on a register bus it writes 0x80 to
// register 0.
func (d *Device) Initiate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if d.registers != nil {
		if err := d.registers.WriteRegister(0, []byte{i2cInitiate}); err != nil {
			return asTransportError("initiate", err)
		}
		return nil
	}

	n, err := d.stream.Write([]byte(serialWakeup))
	if err != nil {
		return asTransportError("initiate", err)
	}
	if n == 0 {
		return NewTransportError("initiate", "", ErrNoBytesWritten, ErrorTypeTransient)
	}
	d.logger.Debugf("sent wake sequence")
	return nil
}

// ProductInfo reads the name, hardware version, firmware version and
// serial number, stopping at the first failure
func (d *Device) ProductInfo(ctx context.Context) (*ProductInfo, error) {
	var (
		info ProductInfo
		err  error
	)

	if info.Name, err = d.ProductName(ctx); err != nil {
		return nil, fmt.Errorf("product name: %w", err)
	}
	if info.HardwareVersion, err = d.HardwareVersion(ctx); err != nil {
		return nil, fmt.Errorf("hardware version: %w", err)
	}
	if info.FirmwareVersion, err = d.FirmwareVersion(ctx); err != nil {
		return nil, fmt.Errorf("firmware version: %w", err)
	}
	if info.SerialNumber, err = d.SerialNumber(ctx); err != nil {
		return nil, fmt.Errorf("serial number: %w", err)
	}
	return &info, nil
}

// Reset restarts the sensor. A fresh token is fetched for every call.
func (d *Device) Reset(ctx context.Context) error {
	token, err := d.Token(ctx)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return d.set(ctx, func(r *Request) error { return CreateWriteReset(r, token) })
}

// SaveParameters stores the current settings in non-volatile memory. A
// fresh token is fetched for every call.
func (d *Device) SaveParameters(ctx context.Context) error {
	token, err := d.Token(ctx)
	if err != nil {
		return fmt.Errorf("save parameters: %w", err)
	}
	return d.set(ctx, func(r *Request) error { return CreateWriteSaveParameters(r, token) })
}

// Sleep puts the sensor into low power mode
func (d *Device) Sleep(ctx context.Context) error {
	return d.set(ctx, CreateWriteSleep)
}

// WaitForStreamedDistanceData blocks until the next streamed distance
// packet arrives. config must match the device's distance config.
func (d *Device) WaitForStreamedDistanceData(
	ctx context.Context, config DistanceConfig, timeout time.Duration,
) (DistanceData, error) {
	if err := d.WaitForResponse(ctx, ForCommand(CmdDistanceData), timeout); err != nil {
		return DistanceData{}, err
	}
	return ParseDistanceData(&d.response, config)
}

// WaitForStreamedMultiData blocks until the next streamed multi-return
// packet arrives
func (d *Device) WaitForStreamedMultiData(ctx context.Context, timeout time.Duration) (MultiData, error) {
	if err := d.WaitForResponse(ctx, ForCommand(CmdMultiData), timeout); err != nil {
		return MultiData{}, err
	}
	return ParseMultiData(&d.response)
}

// PollStreamedDistanceData is the non-blocking form of
// WaitForStreamedDistanceData. It returns ErrAgain until a packet is
// complete; partial packets carry over to the next call.
func (d *Device) PollStreamedDistanceData(config DistanceConfig) (DistanceData, error) {
	if err := d.PollResponse(ForCommand(CmdDistanceData)); err != nil {
		return DistanceData{}, err
	}
	return ParseDistanceData(&d.response, config)
}

// PollStreamedMultiData is the non-blocking form of WaitForStreamedMultiData
func (d *Device) PollStreamedMultiData() (MultiData, error) {
	if err := d.PollResponse(ForCommand(CmdMultiData)); err != nil {
		return MultiData{}, err
	}
	return ParseMultiData(&d.response)
}
