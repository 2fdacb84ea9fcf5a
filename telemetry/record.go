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

// Package telemetry turns distance samples into records and writes them to
// files, pipes or an MQTT broker.
package telemetry

import (
	"context"
	"errors"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
)

// ErrSinkClosed is returned by Write after Close
var ErrSinkClosed = errors.New("telemetry sink closed")

// Kind names the packet a record came from
type Kind string

// Record kinds
const (
	KindDistance Kind = "distance"
	KindMulti    Kind = "multi"
)

// Signal is one return of a multi-return record
type Signal struct {
	DistanceMM int32 `json:"distance_mm" cbor:"1,keyasint"`
	Strength   int32 `json:"strength" cbor:"2,keyasint"`
}

// Record is one sample. Fields the sensor was not configured to output are
// nil and left out of the encoding. Distances are centimetres except for
// multi-return signals, which the sensor reports in millimetres.
type Record struct {
	Time            time.Time `json:"time" cbor:"1,keyasint"`
	Device          string    `json:"device,omitempty" cbor:"2,keyasint,omitempty"`
	Kind            Kind      `json:"kind" cbor:"3,keyasint"`
	FirstRawCM      *int32    `json:"first_raw_cm,omitempty" cbor:"4,keyasint,omitempty"`
	FirstFilteredCM *int32    `json:"first_filtered_cm,omitempty" cbor:"5,keyasint,omitempty"`
	FirstStrength   *int32    `json:"first_strength,omitempty" cbor:"6,keyasint,omitempty"`
	LastRawCM       *int32    `json:"last_raw_cm,omitempty" cbor:"7,keyasint,omitempty"`
	LastFilteredCM  *int32    `json:"last_filtered_cm,omitempty" cbor:"8,keyasint,omitempty"`
	LastStrength    *int32    `json:"last_strength,omitempty" cbor:"9,keyasint,omitempty"`
	TemperatureC    *float64  `json:"temperature_c,omitempty" cbor:"10,keyasint,omitempty"`
	AlarmStatus     *int32    `json:"alarm_status,omitempty" cbor:"11,keyasint,omitempty"`
	Signals         []Signal  `json:"signals,omitempty" cbor:"12,keyasint,omitempty"`
}

// FromDistance builds a record from a distance packet parsed with config
func FromDistance(device string, at time.Time, config grf500.DistanceConfig, data grf500.DistanceData) Record {
	r := Record{Time: at, Device: device, Kind: KindDistance}
	pick := func(flag grf500.DistanceConfig, v int32) *int32 {
		if !config.Has(flag) {
			return nil
		}
		return &v
	}
	r.FirstRawCM = pick(grf500.DistanceFirstReturnRaw, data.FirstReturnRawCM)
	r.FirstFilteredCM = pick(grf500.DistanceFirstReturnFiltered, data.FirstReturnFilteredCM)
	r.FirstStrength = pick(grf500.DistanceFirstReturnStrength, data.FirstReturnStrength)
	r.LastRawCM = pick(grf500.DistanceLastReturnRaw, data.LastReturnRawCM)
	r.LastFilteredCM = pick(grf500.DistanceLastReturnFiltered, data.LastReturnFilteredCM)
	r.LastStrength = pick(grf500.DistanceLastReturnStrength, data.LastReturnStrength)
	r.AlarmStatus = pick(grf500.DistanceAlarmStatus, data.AlarmStatus)
	if config.Has(grf500.DistanceTemperature) {
		r.TemperatureC = celsius(data.Temperature)
	}
	return r
}

// FromMulti builds a record from a multi-return packet
func FromMulti(device string, at time.Time, data grf500.MultiData) Record {
	r := Record{
		Time:         at,
		Device:       device,
		Kind:         KindMulti,
		TemperatureC: celsius(data.Temperature),
		Signals:      make([]Signal, len(data.Signals)),
	}
	for i, s := range data.Signals {
		r.Signals[i] = Signal{DistanceMM: s.DistanceMM, Strength: s.Strength}
	}
	return r
}

// celsius converts hundredths of a degree
func celsius(hundredths int32) *float64 {
	c := float64(hundredths) / 100
	return &c
}

// Sink receives records. Implementations are safe for concurrent use.
type Sink interface {
	Write(ctx context.Context, r Record) error
	Close() error
}

// MultiSink fans records out to several sinks
type MultiSink []Sink

// Write writes r to every sink and joins their errors
func (m MultiSink) Write(ctx context.Context, r Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
