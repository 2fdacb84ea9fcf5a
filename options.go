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
	"fmt"
	"time"
)

// Option is a functional option for configuring a Device
type Option func(*Device) error

// WithTimeout sets the default timeout for serial responses
func WithTimeout(timeout time.Duration) Option {
	return func(d *Device) error {
		return d.SetTimeout(timeout)
	}
}

// WithRetries re-sends a request up to n times after a timeout or a
// retryable transport error. Once all retries fail the call returns
// ErrExceededRetries.
func WithRetries(n int) Option {
	return func(d *Device) error {
		if n < 0 {
			return fmt.Errorf("retries %d: %w", n, ErrInvalidParameter)
		}
		d.config.Retries = n
		return nil
	}
}

// WithRetryDelay sets the pause between retries
func WithRetryDelay(delay time.Duration) Option {
	return func(d *Device) error {
		if delay < 0 {
			return fmt.Errorf("retry delay %v: %w", delay, ErrInvalidParameter)
		}
		d.config.RetryDelay = delay
		return nil
	}
}

// WithClock replaces the clock used for wait deadlines and retry delays
func WithClock(clock Clock) Option {
	return func(d *Device) error {
		if clock == nil {
			return fmt.Errorf("nil clock: %w", ErrInvalidParameter)
		}
		d.clock = clock
		return nil
	}
}

// WithLogger routes debug output (packet hex dumps, retries) to logger
func WithLogger(logger Logger) Option {
	return func(d *Device) error {
		if logger == nil {
			logger = NopLogger{}
		}
		d.logger = logger
		return nil
	}
}
