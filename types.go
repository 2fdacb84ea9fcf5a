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
	"math/bits"
	"strings"
)

// FirmwareVersion is the decoded firmware version
type FirmwareVersion struct {
	Major uint8
	Minor uint8
	Patch uint8
}

// ExpandFirmwareVersion splits a packed version: bits 16-23 major,
// 8-15 minor, 0-7 patch. The top byte is ignored.
func ExpandFirmwareVersion(v uint32) FirmwareVersion {
	return FirmwareVersion{
		Major: uint8(v >> 16),
		Minor: uint8(v >> 8),
		Patch: uint8(v),
	}
}

func (v FirmwareVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ProductInfo identifies a connected sensor
type ProductInfo struct {
	Name            string
	SerialNumber    string
	FirmwareVersion FirmwareVersion
	HardwareVersion uint32
}

// DistanceConfig selects which fields a distance data packet carries
type DistanceConfig uint32

// Distance data fields, in the order they appear on the wire
const (
	DistanceFirstReturnRaw      DistanceConfig = 1 << 0
	DistanceFirstReturnFiltered DistanceConfig = 1 << 1
	DistanceFirstReturnStrength DistanceConfig = 1 << 2
	DistanceLastReturnRaw       DistanceConfig = 1 << 3
	DistanceLastReturnFiltered  DistanceConfig = 1 << 4
	DistanceLastReturnStrength  DistanceConfig = 1 << 5
	DistanceTemperature         DistanceConfig = 1 << 6
	DistanceAlarmStatus         DistanceConfig = 1 << 7
	DistanceAll                 DistanceConfig = 0xFF
)

var distanceConfigNames = []struct {
	name string
	flag DistanceConfig
}{
	{"first_raw", DistanceFirstReturnRaw},
	{"first_filtered", DistanceFirstReturnFiltered},
	{"first_strength", DistanceFirstReturnStrength},
	{"last_raw", DistanceLastReturnRaw},
	{"last_filtered", DistanceLastReturnFiltered},
	{"last_strength", DistanceLastReturnStrength},
	{"temperature", DistanceTemperature},
	{"alarm_status", DistanceAlarmStatus},
}

// Has reports whether every bit of flag is set
func (c DistanceConfig) Has(flag DistanceConfig) bool {
	return c&flag == flag
}

// Fields returns the number of int32 values a distance data packet carries
func (c DistanceConfig) Fields() int {
	return bits.OnesCount32(uint32(c & DistanceAll))
}

// DataSize is the payload size of a distance data packet for this config
func (c DistanceConfig) DataSize() int {
	return c.Fields() * 4
}

func (c DistanceConfig) String() string {
	if c&DistanceAll == 0 {
		return "none"
	}
	names := make([]string, 0, c.Fields())
	for _, f := range distanceConfigNames {
		if c.Has(f.flag) {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, "|")
}

// DistanceConfigFromString parses names joined by '|' or ',' as printed
// by DistanceConfig.String. "all" selects every field.
func DistanceConfigFromString(s string) (DistanceConfig, error) {
	var c DistanceConfig
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "all" {
			c |= DistanceAll
			continue
		}
		found := false
		for _, f := range distanceConfigNames {
			if f.name == part {
				c |= f.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown distance field %q: %w", part, ErrInvalidParameter)
		}
	}
	return c, nil
}

// DistanceData is one distance packet. Distances are centimetres and
// temperature is hundredths of a degree Celsius. Fields not selected by
// the DistanceConfig used to parse the packet are zero.
type DistanceData struct {
	FirstReturnRawCM      int32
	FirstReturnFilteredCM int32
	FirstReturnStrength   int32
	LastReturnRawCM       int32
	LastReturnFilteredCM  int32
	LastReturnStrength    int32
	Temperature           int32
	AlarmStatus           int32
}

// Signal is one return in a multi data packet
type Signal struct {
	DistanceMM int32
	Strength   int32
}

// MultiSignalCount is the number of returns in a multi data packet
const MultiSignalCount = 5

// multiDataSize is 5 returns of two int32 plus an int32 temperature
const multiDataSize = MultiSignalCount*8 + 4

// MultiData is one multi-return packet
type MultiData struct {
	Signals     [MultiSignalCount]Signal
	Temperature int32
}

// StreamID selects the packet the device streams unsolicited
type StreamID uint32

// Stream ids
const (
	StreamNone         StreamID = 0
	StreamDistanceData StreamID = 5
	StreamMultiData    StreamID = 6
)

// Valid reports whether s is a stream the device accepts
func (s StreamID) Valid() bool {
	return s == StreamNone || s == StreamDistanceData || s == StreamMultiData
}

func (s StreamID) String() string {
	switch s {
	case StreamNone:
		return "none"
	case StreamDistanceData:
		return "distance_data"
	case StreamMultiData:
		return "multi_data"
	default:
		return fmt.Sprintf("stream(%d)", uint32(s))
	}
}

// AlarmStatus reports which distance alarms are active
type AlarmStatus struct {
	AlarmA bool
	AlarmB bool
}

// ReturnMode selects which return the alarms evaluate
type ReturnMode uint8

// Alarm return modes
const (
	ReturnFirst ReturnMode = 0
	ReturnLast  ReturnMode = 1
)

func (m ReturnMode) String() string {
	switch m {
	case ReturnFirst:
		return "first"
	case ReturnLast:
		return "last"
	default:
		return fmt.Sprintf("return_mode(%d)", uint8(m))
	}
}

// GPIOMode selects what drives the alarm output pin
type GPIOMode uint8

// GPIO modes
const (
	GPIONoOutput GPIOMode = 0
	GPIOAlarmA   GPIOMode = 1
	GPIOAlarmB   GPIOMode = 2
)

func (m GPIOMode) String() string {
	switch m {
	case GPIONoOutput:
		return "no_output"
	case GPIOAlarmA:
		return "alarm_a"
	case GPIOAlarmB:
		return "alarm_b"
	default:
		return fmt.Sprintf("gpio_mode(%d)", uint8(m))
	}
}

// BaudRate is the serial speed index stored on the device
type BaudRate uint8

// Serial baud rates
const (
	Baud9600 BaudRate = iota
	Baud19200
	Baud38400
	Baud57600
	Baud115200
	Baud230400
	Baud460800
	Baud921600
)

var baudRates = [...]int{9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600}

// BitsPerSecond returns the speed, or 0 for an unknown index
func (b BaudRate) BitsPerSecond() int {
	if int(b) >= len(baudRates) {
		return 0
	}
	return baudRates[b]
}

// Valid reports whether b is a known index
func (b BaudRate) Valid() bool {
	return int(b) < len(baudRates)
}

func (b BaudRate) String() string {
	if !b.Valid() {
		return fmt.Sprintf("baud_rate(%d)", uint8(b))
	}
	return fmt.Sprintf("%d", b.BitsPerSecond())
}

// BaudRateFromBitsPerSecond maps a speed to its index
func BaudRateFromBitsPerSecond(bps int) (BaudRate, error) {
	for i, rate := range baudRates {
		if rate == bps {
			return BaudRate(i), nil
		}
	}
	return 0, fmt.Errorf("baud rate %d: %w", bps, ErrInvalidParameter)
}
