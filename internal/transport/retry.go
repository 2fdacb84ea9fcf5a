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

// Package transport provides internal transport utilities
package transport

import (
	"errors"
	"time"
)

// ErrRetriesExhausted is returned when a RetryConfig has no Exhausted error
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryOperation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type RetryOperation[T any] func(attempt int) (T, bool, error)

// RetryConfig configures retry behavior
type RetryConfig struct {
	OnRetry       func(attempt int) error
	OnRetryFailed func() error
	// Exhausted is returned once every attempt asked for a retry
	Exhausted error
	// Sleep waits between attempts; time.Sleep when nil
	Sleep       func(time.Duration)
	Description string
	MaxRetries  int
	RetryDelay  time.Duration
}

// WithRetry runs operation once plus up to MaxRetries more times while it
// keeps asking for a retry
func WithRetry[T any](config RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		result, shouldRetry, err := operation(attempt)
		if err != nil {
			return zero, err
		}

		if !shouldRetry {
			return result, nil
		}

		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(attempt + 1); err != nil {
				return zero, err
			}
		}

		if config.RetryDelay > 0 {
			sleep := config.Sleep
			if sleep == nil {
				sleep = time.Sleep
			}
			sleep(config.RetryDelay)
		}
	}

	return handleRetriesExhausted[T](config)
}

// handleRetriesExhausted handles the case when all retries are exhausted
func handleRetriesExhausted[T any](config RetryConfig) (T, error) {
	var zero T

	if config.OnRetryFailed != nil {
		if failErr := config.OnRetryFailed(); failErr != nil {
			return zero, failErr
		}
	}

	if config.Exhausted != nil {
		return zero, config.Exhausted
	}
	return zero, ErrRetriesExhausted
}
