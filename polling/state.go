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

package polling

import (
	"errors"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
)

// TargetDetectionState represents the finite state machine for target tracking
type TargetDetectionState int

const (
	// StateIdle has no target
	StateIdle TargetDetectionState = iota
	// StateTracking saw the target on the last poll
	StateTracking
	// StateHolding lost sight of the target but is still inside the
	// signal lost timeout
	StateHolding
)

func (s TargetDetectionState) String() string {
	switch s {
	case StateTracking:
		return "tracking"
	case StateHolding:
		return "holding"
	default:
		return "idle"
	}
}

// ErrNoReadingInPoll indicates no packet arrived during a polling cycle (not an error condition)
var ErrNoReadingInPoll = errors.New("no reading in polling cycle")

// Reading is one distance sample
type Reading struct {
	Time time.Time
	Data grf500.DistanceData
	// DistanceCM is the preferred distance of the sample: the first
	// filtered return if present, otherwise the first raw return, then
	// the last return. Zero or less means no target.
	DistanceCM int32
}

// HasTarget reports whether the sensor saw a target
func (r Reading) HasTarget() bool {
	return r.DistanceCM > 0
}

// newReading picks the preferred distance out of data
func newReading(at time.Time, config grf500.DistanceConfig, data grf500.DistanceData) Reading {
	r := Reading{Time: at, Data: data}
	switch {
	case config.Has(grf500.DistanceFirstReturnFiltered):
		r.DistanceCM = data.FirstReturnFilteredCM
	case config.Has(grf500.DistanceFirstReturnRaw):
		r.DistanceCM = data.FirstReturnRawCM
	case config.Has(grf500.DistanceLastReturnFiltered):
		r.DistanceCM = data.LastReturnFilteredCM
	case config.Has(grf500.DistanceLastReturnRaw):
		r.DistanceCM = data.LastReturnRawCM
	}
	return r
}

// TargetState tracks the target in front of the sensor
type TargetState struct {
	LastSeenTime   time.Time
	AcquiredTime   time.Time
	LastDistanceCM int32
	DetectionState TargetDetectionState
	Present        bool
}

// TransitionToTracking records a sighting at distanceCM
func (ts *TargetState) TransitionToTracking(at time.Time, distanceCM int32) {
	if !ts.Present {
		ts.AcquiredTime = at
	}
	ts.DetectionState = StateTracking
	ts.Present = true
	ts.LastSeenTime = at
	ts.LastDistanceCM = distanceCM
}

// TransitionToHolding marks a poll without the target. The target stays
// present until SignalLost says otherwise.
func (ts *TargetState) TransitionToHolding() {
	if ts.Present {
		ts.DetectionState = StateHolding
	}
}

// TransitionToIdle resets to idle state
func (ts *TargetState) TransitionToIdle() {
	ts.DetectionState = StateIdle
	ts.Present = false
	ts.LastDistanceCM = 0
	ts.LastSeenTime = time.Time{}
	ts.AcquiredTime = time.Time{}
}

// SignalLost reports whether a present target has been missing for at
// least timeout
func (ts *TargetState) SignalLost(now time.Time, timeout time.Duration) bool {
	return ts.Present && ts.DetectionState == StateHolding && now.Sub(ts.LastSeenTime) >= timeout
}

// Moved reports whether distanceCM differs from the last sighting by at
// least thresholdCM
func (ts *TargetState) Moved(distanceCM, thresholdCM int32) bool {
	diff := distanceCM - ts.LastDistanceCM
	if diff < 0 {
		diff = -diff
	}
	return diff >= thresholdCM
}
