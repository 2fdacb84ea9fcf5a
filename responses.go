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

import "fmt"

// expect is the command id gate every parser runs before touching the payload
func expect(resp *Response, id CommandID) error {
	if resp.CommandID != id {
		return fmt.Errorf("expected %s, got %s: %w", id, resp.CommandID, ErrIncorrectCommandID)
	}
	return nil
}

func parseUint32(resp *Response, id CommandID) (uint32, error) {
	if err := expect(resp, id); err != nil {
		return 0, err
	}
	return resp.Uint32(0), nil
}

func parseBool(resp *Response, id CommandID) (bool, error) {
	if err := expect(resp, id); err != nil {
		return false, err
	}
	return resp.Uint8(0) != 0, nil
}

func parseString(resp *Response, id CommandID) (string, error) {
	if err := expect(resp, id); err != nil {
		return "", err
	}
	return resp.FixedString(0), nil
}

// ParseProductName returns the product name, e.g. "GRF500"
func ParseProductName(resp *Response) (string, error) {
	return parseString(resp, CmdProductName)
}

// ParseHardwareVersion returns the hardware revision
func ParseHardwareVersion(resp *Response) (uint32, error) {
	return parseUint32(resp, CmdHardwareVersion)
}

// ParseFirmwareVersion returns the expanded firmware version
func ParseFirmwareVersion(resp *Response) (FirmwareVersion, error) {
	v, err := parseUint32(resp, CmdFirmwareVersion)
	if err != nil {
		return FirmwareVersion{}, err
	}
	return ExpandFirmwareVersion(v), nil
}

// ParseSerialNumber returns the serial number
func ParseSerialNumber(resp *Response) (string, error) {
	return parseString(resp, CmdSerialNumber)
}

// ParseUserData returns the first n bytes of the user data block. n may
// not exceed 16.
func ParseUserData(resp *Response, n int) ([]byte, error) {
	if n < 0 || n > UserDataSize {
		return nil, invalid("user data size", n)
	}
	if err := expect(resp, CmdUserData); err != nil {
		return nil, err
	}
	return resp.Data(0, n), nil
}

// ParseToken returns the one-time safety token
func ParseToken(resp *Response) (uint16, error) {
	if err := expect(resp, CmdToken); err != nil {
		return 0, err
	}
	return resp.Uint16(0), nil
}

// ParseDistanceConfig returns the distance output selection
func ParseDistanceConfig(resp *Response) (DistanceConfig, error) {
	v, err := parseUint32(resp, CmdDistanceConfig)
	return DistanceConfig(v), err
}

// ParseStream returns the active stream
func ParseStream(resp *Response) (StreamID, error) {
	v, err := parseUint32(resp, CmdStream)
	return StreamID(v), err
}

// ParseDistanceData decodes a distance packet laid out according to
// config. Raw and filtered distances arrive in decimetres and are
// returned in centimetres.
func ParseDistanceData(resp *Response, config DistanceConfig) (DistanceData, error) {
	var data DistanceData
	if err := expect(resp, CmdDistanceData); err != nil {
		return data, err
	}

	offset := 0
	next := func(flag DistanceConfig, dst *int32, scale int32) {
		if !config.Has(flag) {
			return
		}
		*dst = resp.Int32(offset) * scale
		offset += 4
	}

	next(DistanceFirstReturnRaw, &data.FirstReturnRawCM, 10)
	next(DistanceFirstReturnFiltered, &data.FirstReturnFilteredCM, 10)
	next(DistanceFirstReturnStrength, &data.FirstReturnStrength, 1)
	next(DistanceLastReturnRaw, &data.LastReturnRawCM, 10)
	next(DistanceLastReturnFiltered, &data.LastReturnFilteredCM, 10)
	next(DistanceLastReturnStrength, &data.LastReturnStrength, 1)
	next(DistanceTemperature, &data.Temperature, 1)
	next(DistanceAlarmStatus, &data.AlarmStatus, 1)
	return data, nil
}

// ParseMultiData decodes a multi-return packet
func ParseMultiData(resp *Response) (MultiData, error) {
	var data MultiData
	if err := expect(resp, CmdMultiData); err != nil {
		return data, err
	}

	offset := 0
	for i := range data.Signals {
		data.Signals[i].DistanceMM = resp.Int32(offset)
		data.Signals[i].Strength = resp.Int32(offset + 4)
		offset += 8
	}
	data.Temperature = resp.Int32(offset)
	return data, nil
}

// ParseLaserFiring returns the laser enable flag
func ParseLaserFiring(resp *Response) (bool, error) {
	return parseBool(resp, CmdLaserFiring)
}

// ParseTemperature returns the internal temperature in 1/100 °C
func ParseTemperature(resp *Response) (int32, error) {
	if err := expect(resp, CmdTemperature); err != nil {
		return 0, err
	}
	return resp.Int32(0), nil
}

// ParseAutoExposure returns the auto exposure flag
func ParseAutoExposure(resp *Response) (bool, error) {
	return parseBool(resp, CmdAutoExposure)
}

// ParseUpdateRate returns the measurement rate in Hz
func ParseUpdateRate(resp *Response) (float64, error) {
	v, err := parseUint32(resp, CmdUpdateRate)
	if err != nil {
		return 0, err
	}
	return float64(v) / 10, nil
}

// ParseAlarmStatus returns the alarm flags
func ParseAlarmStatus(resp *Response) (AlarmStatus, error) {
	if err := expect(resp, CmdAlarmStatus); err != nil {
		return AlarmStatus{}, err
	}
	return AlarmStatus{
		AlarmA: resp.Uint8(0) != 0,
		AlarmB: resp.Uint8(1) != 0,
	}, nil
}

// ParseAlarmReturnMode returns the alarm return mode
func ParseAlarmReturnMode(resp *Response) (ReturnMode, error) {
	if err := expect(resp, CmdAlarmReturnMode); err != nil {
		return 0, err
	}
	return ReturnMode(resp.Uint8(0)), nil
}

// ParseLostSignalCounter returns the lost signal counter
func ParseLostSignalCounter(resp *Response) (uint32, error) {
	return parseUint32(resp, CmdLostSignalCounter)
}

func parseDecimetres(resp *Response, id CommandID) (uint32, error) {
	v, err := parseUint32(resp, id)
	return v * 10, err
}

// ParseAlarmADistance returns alarm A's trigger distance in centimetres
func ParseAlarmADistance(resp *Response) (uint32, error) {
	return parseDecimetres(resp, CmdAlarmADistance)
}

// ParseAlarmBDistance returns alarm B's trigger distance in centimetres
func ParseAlarmBDistance(resp *Response) (uint32, error) {
	return parseDecimetres(resp, CmdAlarmBDistance)
}

// ParseAlarmHysteresis returns the alarm hysteresis in centimetres
func ParseAlarmHysteresis(resp *Response) (uint32, error) {
	return parseDecimetres(resp, CmdAlarmHysteresis)
}

// ParseGPIOMode returns the alarm output mode
func ParseGPIOMode(resp *Response) (GPIOMode, error) {
	if err := expect(resp, CmdGPIOMode); err != nil {
		return 0, err
	}
	return GPIOMode(resp.Uint8(0)), nil
}

// ParseGPIOAlarmConfirmCount returns the alarm confirm count
func ParseGPIOAlarmConfirmCount(resp *Response) (uint32, error) {
	return parseUint32(resp, CmdGPIOAlarmConfirmCount)
}

// ParseMedianFilterEnable returns the median filter flag
func ParseMedianFilterEnable(resp *Response) (bool, error) {
	return parseBool(resp, CmdMedianFilterEnable)
}

// ParseMedianFilterSize returns the median window size
func ParseMedianFilterSize(resp *Response) (uint32, error) {
	return parseUint32(resp, CmdMedianFilterSize)
}

// ParseSmoothFilterEnable returns the smoothing filter flag
func ParseSmoothFilterEnable(resp *Response) (bool, error) {
	return parseBool(resp, CmdSmoothFilterEnable)
}

// ParseSmoothFilterFactor returns the smoothing factor
func ParseSmoothFilterFactor(resp *Response) (uint32, error) {
	return parseUint32(resp, CmdSmoothFilterFactor)
}

// ParseBaudRate returns the serial speed index
func ParseBaudRate(resp *Response) (BaudRate, error) {
	if err := expect(resp, CmdBaudRate); err != nil {
		return 0, err
	}
	return BaudRate(resp.Uint8(0)), nil
}

// ParseI2CAddress returns the bus address
func ParseI2CAddress(resp *Response) (uint8, error) {
	if err := expect(resp, CmdI2CAddress); err != nil {
		return 0, err
	}
	return resp.Uint8(0), nil
}

// ParseRollingAverageEnable returns the rolling average flag
func ParseRollingAverageEnable(resp *Response) (bool, error) {
	return parseBool(resp, CmdRollingAverageEnable)
}

// ParseRollingAverageSize returns the rolling average window
func ParseRollingAverageSize(resp *Response) (uint32, error) {
	return parseUint32(resp, CmdRollingAverageSize)
}

// ParseLEDState returns the status LED flag
func ParseLEDState(resp *Response) (bool, error) {
	return parseBool(resp, CmdLEDState)
}

// ParseZeroOffset returns the distance zero offset in centimetres
func ParseZeroOffset(resp *Response) (int32, error) {
	if err := expect(resp, CmdZeroOffset); err != nil {
		return 0, err
	}
	return resp.Int32(0) * 10, nil
}
