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

package testing

import (
	"sync"
	"time"
)

// FakeClock is a manual clock for deadline tests. Every call to Now moves
// time forward by Step, so a busy loop against it always terminates.
type FakeClock struct {
	now    time.Time
	sleeps []time.Duration
	Step   time.Duration
	mu     sync.Mutex
	calls  int
}

// NewFakeClock creates a clock starting at a fixed instant
func NewFakeClock(step time.Duration) *FakeClock {
	return &FakeClock{
		now:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Step: step,
	}
}

// Now returns the current fake time and then advances it by Step
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.Step)
	c.calls++
	return now
}

// Sleep records d and advances the clock by it
func (c *FakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

// Advance moves the clock forward without recording a sleep
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleeps returns every duration passed to Sleep
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// NowCalls returns how many times Now was called
func (c *FakeClock) NowCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
