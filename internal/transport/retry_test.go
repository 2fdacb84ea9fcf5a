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

package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetry_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	calls := 0
	got, err := WithRetry(RetryConfig{MaxRetries: 3}, func(int) (int, bool, error) {
		calls++
		return 42, false, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	var attempts []int
	var retried []int
	config := RetryConfig{
		MaxRetries: 3,
		OnRetry: func(attempt int) error {
			retried = append(retried, attempt)
			return nil
		},
	}

	got, err := WithRetry(config, func(attempt int) (string, bool, error) {
		attempts = append(attempts, attempt)
		if attempt < 2 {
			return "", true, nil
		}
		return "ok", false, nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, []int{0, 1, 2}, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestWithRetry_Exhausted(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("gave up")
	calls := 0
	_, err := WithRetry(RetryConfig{MaxRetries: 2, Exhausted: sentinel}, func(int) (int, bool, error) {
		calls++
		return 0, true, nil
	})

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_DefaultExhaustedError(t *testing.T) {
	t.Parallel()

	_, err := WithRetry(RetryConfig{}, func(int) (int, bool, error) {
		return 0, true, nil
	})

	require.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestWithRetry_PermanentErrorStops(t *testing.T) {
	t.Parallel()

	permanent := errors.New("permanent")
	calls := 0
	_, err := WithRetry(RetryConfig{MaxRetries: 5}, func(int) (int, bool, error) {
		calls++
		return 0, false, permanent
	})

	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_UsesInjectedSleep(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	config := RetryConfig{
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
		Sleep:      func(d time.Duration) { slept = append(slept, d) },
	}

	_, _ = WithRetry(config, func(int) (int, bool, error) {
		return 0, true, nil
	})

	assert.Equal(t, []time.Duration{5 * time.Millisecond, 5 * time.Millisecond}, slept)
}

func TestWithRetry_OnRetryFailedOverrides(t *testing.T) {
	t.Parallel()

	override := errors.New("override")
	config := RetryConfig{
		MaxRetries:    1,
		OnRetryFailed: func() error { return override },
	}

	_, err := WithRetry(config, func(int) (int, bool, error) {
		return 0, true, nil
	})

	require.ErrorIs(t, err, override)
}
