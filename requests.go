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
	"math"
)

// Setting ranges enforced by the write builders
const (
	MinUpdateRate            = 0.5
	MaxUpdateRate            = 10.0
	MinLostSignalCounter     = 1
	MaxLostSignalCounter     = 250
	MaxAlarmDistanceCM       = 30000
	MaxAlarmHysteresisCM     = 3000
	MaxGPIOAlarmConfirmCount = 1000
	MinMedianFilterSize      = 3
	MaxMedianFilterSize      = 32
	MinSmoothFilterFactor    = 1
	MaxSmoothFilterFactor    = 99
	MinRollingAverageSize    = 2
	MaxRollingAverageSize    = 32
	MinI2CAddress            = 0x08
	MaxI2CAddress            = 0x77
	UserDataSize             = 16
)

// Read sizes of the fixed width fields
const (
	sizeUint8       = 1
	sizeToken       = 2
	sizeAlarmStatus = 2
	sizeUint32      = 4
)

// rateEpsilon absorbs float error so 0.3*10 style products do not truncate
// to the decihertz below
const rateEpsilon = 1e-9

func invalid(field string, v any) error {
	return fmt.Errorf("%s %v: %w", field, v, ErrInvalidParameter)
}

func checkRange[T int | uint32 | int32 | float64](field string, v, lo, hi T) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s %v outside %v..%v: %w", field, v, lo, hi, ErrInvalidParameter)
	}
	return nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// CreateReadProductName builds a read of the 16 byte product name
func CreateReadProductName(req *Request) error {
	return req.CreateRead(CmdProductName, StringSize)
}

// CreateReadHardwareVersion builds a read of the hardware revision
func CreateReadHardwareVersion(req *Request) error {
	return req.CreateRead(CmdHardwareVersion, sizeUint32)
}

// CreateReadFirmwareVersion builds a read of the packed firmware version
func CreateReadFirmwareVersion(req *Request) error {
	return req.CreateRead(CmdFirmwareVersion, sizeUint32)
}

// CreateReadSerialNumber builds a read of the 16 byte serial number
func CreateReadSerialNumber(req *Request) error {
	return req.CreateRead(CmdSerialNumber, StringSize)
}

// CreateReadUserData builds a read of the 16 byte user data block
func CreateReadUserData(req *Request) error {
	return req.CreateRead(CmdUserData, UserDataSize)
}

// CreateWriteUserData builds a write of the user data block. data must be
// exactly 16 bytes.
func CreateWriteUserData(req *Request, data []byte) error {
	if len(data) != UserDataSize {
		return fmt.Errorf("user data must be %d bytes, got %d: %w", UserDataSize, len(data), ErrInvalidParameter)
	}
	return req.CreateWriteData(CmdUserData, data)
}

// CreateReadToken builds a read of the one-time safety token
func CreateReadToken(req *Request) error {
	return req.CreateRead(CmdToken, sizeToken)
}

// CreateWriteSaveParameters builds the token-gated save of all settings
func CreateWriteSaveParameters(req *Request, token uint16) error {
	return req.CreateWriteUint16(CmdSaveParameters, token)
}

// CreateWriteReset builds the token-gated device restart
func CreateWriteReset(req *Request, token uint16) error {
	return req.CreateWriteUint16(CmdReset, token)
}

// CreateReadDistanceConfig builds a read of the distance output selection
func CreateReadDistanceConfig(req *Request) error {
	return req.CreateRead(CmdDistanceConfig, sizeUint32)
}

// CreateWriteDistanceConfig builds a write of the distance output selection
func CreateWriteDistanceConfig(req *Request, config DistanceConfig) error {
	return req.CreateWriteUint32(CmdDistanceConfig, uint32(config))
}

// CreateReadStream builds a read of the active stream
func CreateReadStream(req *Request) error {
	return req.CreateRead(CmdStream, sizeUint32)
}

// CreateWriteStream builds a write selecting the streamed packet
func CreateWriteStream(req *Request, stream StreamID) error {
	if !stream.Valid() {
		return invalid("stream", uint32(stream))
	}
	return req.CreateWriteUint32(CmdStream, uint32(stream))
}

// CreateReadDistanceData builds a read of one distance packet. The read
// size follows the fields selected in config.
func CreateReadDistanceData(req *Request, config DistanceConfig) error {
	return req.CreateRead(CmdDistanceData, config.DataSize())
}

// CreateReadMultiData builds a read of one multi-return packet
func CreateReadMultiData(req *Request) error {
	return req.CreateRead(CmdMultiData, multiDataSize)
}

// CreateReadLaserFiring builds a read of the laser enable flag
func CreateReadLaserFiring(req *Request) error {
	return req.CreateRead(CmdLaserFiring, sizeUint8)
}

// CreateWriteLaserFiring builds a write of the laser enable flag
func CreateWriteLaserFiring(req *Request, enable bool) error {
	return req.CreateWriteUint8(CmdLaserFiring, boolByte(enable))
}

// CreateReadTemperature builds a read of the internal temperature
func CreateReadTemperature(req *Request) error {
	return req.CreateRead(CmdTemperature, sizeUint32)
}

// CreateReadAutoExposure builds a read of the auto exposure flag
func CreateReadAutoExposure(req *Request) error {
	return req.CreateRead(CmdAutoExposure, sizeUint8)
}

// CreateWriteAutoExposure builds a write of the auto exposure flag
func CreateWriteAutoExposure(req *Request, enable bool) error {
	return req.CreateWriteUint8(CmdAutoExposure, boolByte(enable))
}

// CreateReadUpdateRate builds a read of the measurement rate
func CreateReadUpdateRate(req *Request) error {
	return req.CreateRead(CmdUpdateRate, sizeUint32)
}

// CreateWriteUpdateRate builds a write of the measurement rate in Hz.
// The device stores decihertz; finer values are truncated.
func CreateWriteUpdateRate(req *Request, hz float64) error {
	if math.IsNaN(hz) {
		return invalid("update rate", hz)
	}
	if err := checkRange("update rate", hz, MinUpdateRate, MaxUpdateRate); err != nil {
		return err
	}
	return req.CreateWriteUint32(CmdUpdateRate, uint32(hz*10+rateEpsilon))
}

// CreateReadAlarmStatus builds a read of the alarm flags
func CreateReadAlarmStatus(req *Request) error {
	return req.CreateRead(CmdAlarmStatus, sizeAlarmStatus)
}

// CreateReadAlarmReturnMode builds a read of the alarm return mode
func CreateReadAlarmReturnMode(req *Request) error {
	return req.CreateRead(CmdAlarmReturnMode, sizeUint8)
}

// CreateWriteAlarmReturnMode builds a write of the alarm return mode
func CreateWriteAlarmReturnMode(req *Request, mode ReturnMode) error {
	if mode != ReturnFirst && mode != ReturnLast {
		return invalid("alarm return mode", uint8(mode))
	}
	return req.CreateWriteUint8(CmdAlarmReturnMode, uint8(mode))
}

// CreateReadLostSignalCounter builds a read of the lost signal counter
func CreateReadLostSignalCounter(req *Request) error {
	return req.CreateRead(CmdLostSignalCounter, sizeUint32)
}

// CreateWriteLostSignalCounter builds a write of the number of missed
// returns before a lost signal is reported
func CreateWriteLostSignalCounter(req *Request, counter uint32) error {
	if err := checkRange("lost signal counter", counter, MinLostSignalCounter, MaxLostSignalCounter); err != nil {
		return err
	}
	return req.CreateWriteUint32(CmdLostSignalCounter, counter)
}

// CreateReadAlarmADistance builds a read of alarm A's trigger distance
func CreateReadAlarmADistance(req *Request) error {
	return req.CreateRead(CmdAlarmADistance, sizeUint32)
}

// CreateWriteAlarmADistance builds a write of alarm A's trigger distance.
// The device stores decimetres.
func CreateWriteAlarmADistance(req *Request, distanceCM uint32) error {
	if err := checkRange("alarm a distance", distanceCM, 0, MaxAlarmDistanceCM); err != nil {
		return err
	}
	return req.CreateWriteUint32(CmdAlarmADistance, distanceCM/10)
}

// CreateReadAlarmBDistance builds a read of alarm B's trigger distance
func CreateReadAlarmBDistance(req *Request) error {
	return req.CreateRead(CmdAlarmBDistance, sizeUint32)
}

// CreateWriteAlarmBDistance builds a write of alarm B's trigger distance.
// The device stores decimetres.
func CreateWriteAlarmBDistance(req *Request, distanceCM uint32) error {
	if err := checkRange("alarm b distance", distanceCM, 0, MaxAlarmDistanceCM); err != nil {
		return err
	}
	return req.CreateWriteUint32(CmdAlarmBDistance, distanceCM/10)
}

// CreateReadAlarmHysteresis builds a read of the alarm hysteresis
func CreateReadAlarmHysteresis(req *Request) error {
	return req.CreateRead(CmdAlarmHysteresis, sizeUint32)
}

// CreateWriteAlarmHysteresis builds a write of the alarm hysteresis.
// The device stores decimetres.
func CreateWriteAlarmHysteresis(req *Request, hysteresisCM uint32) error {
	if err := checkRange("alarm hysteresis", hysteresisCM, 0, MaxAlarmHysteresisCM); err != nil {
		return err
	}
	return req.CreateWriteUint32(CmdAlarmHysteresis, hysteresisCM/10)
}

// CreateReadGPIOMode builds a read of the alarm output mode
func CreateReadGPIOMode(req *Request) error {
	return req.CreateRead(CmdGPIOMode, sizeUint8)
}

// CreateWriteGPIOMode builds a write of the alarm output mode
func CreateWriteGPIOMode(req *Request, mode GPIOMode) error {
	if mode > GPIOAlarmB {
		return invalid("gpio mode", uint8(mode))
	}
	return req.CreateWriteUint8(CmdGPIOMode, uint8(mode))
}

// CreateReadGPIOAlarmConfirmCount builds a read of the alarm confirm count
func CreateReadGPIOAlarmConfirmCount(req *Request) error {
	return req.CreateRead(CmdGPIOAlarmConfirmCount, sizeUint32)
}

// CreateWriteGPIOAlarmConfirmCount builds a write of the number of
// readings that must agree before the alarm output changes
func CreateWriteGPIOAlarmConfirmCount(req *Request, count uint32) error {
	if err := checkRange("gpio alarm confirm count", count, 0, MaxGPIOAlarmConfirmCount); err != nil {
		return err
	}
	return req.CreateWriteUint32(CmdGPIOAlarmConfirmCount, count)
}

// CreateReadMedianFilterEnable builds a read of the median filter flag
func CreateReadMedianFilterEnable(req *Request) error {
	return req.CreateRead(CmdMedianFilterEnable, sizeUint8)
}

// CreateWriteMedianFilterEnable builds a write of the median filter flag
func CreateWriteMedianFilterEnable(req *Request, enable bool) error {
	return req.CreateWriteUint8(CmdMedianFilterEnable, boolByte(enable))
}

// CreateReadMedianFilterSize builds a read of the median window size
func CreateReadMedianFilterSize(req *Request) error {
	return req.CreateRead(CmdMedianFilterSize, sizeUint32)
}

// CreateWriteMedianFilterSize builds a write of the median window size
func CreateWriteMedianFilterSize(req *Request, size uint32) error {
	if err := checkRange("median filter size", size, MinMedianFilterSize, MaxMedianFilterSize); err != nil {
		return err
	}
	return req.CreateWriteUint32(CmdMedianFilterSize, size)
}

// CreateReadSmoothFilterEnable builds a read of the smoothing filter flag
func CreateReadSmoothFilterEnable(req *Request) error {
	return req.CreateRead(CmdSmoothFilterEnable, sizeUint8)
}

// CreateWriteSmoothFilterEnable builds a write of the smoothing filter flag
func CreateWriteSmoothFilterEnable(req *Request, enable bool) error {
	return req.CreateWriteUint8(CmdSmoothFilterEnable, boolByte(enable))
}

// CreateReadSmoothFilterFactor builds a read of the smoothing factor
func CreateReadSmoothFilterFactor(req *Request) error {
	return req.CreateRead(CmdSmoothFilterFactor, sizeUint32)
}

// CreateWriteSmoothFilterFactor builds a write of the smoothing factor
func CreateWriteSmoothFilterFactor(req *Request, factor uint32) error {
	if err := checkRange("smooth filter factor", factor, MinSmoothFilterFactor, MaxSmoothFilterFactor); err != nil {
		return err
	}
	return req.CreateWriteUint32(CmdSmoothFilterFactor, factor)
}

// CreateReadBaudRate builds a read of the serial speed index
func CreateReadBaudRate(req *Request) error {
	return req.CreateRead(CmdBaudRate, sizeUint8)
}

// CreateWriteBaudRate builds a write of the serial speed index. The new
// speed applies after the settings are saved and the device restarts.
func CreateWriteBaudRate(req *Request, rate BaudRate) error {
	if !rate.Valid() {
		return invalid("baud rate", uint8(rate))
	}
	return req.CreateWriteUint8(CmdBaudRate, uint8(rate))
}

// CreateReadI2CAddress builds a read of the bus address
func CreateReadI2CAddress(req *Request) error {
	return req.CreateRead(CmdI2CAddress, sizeUint8)
}

// CreateWriteI2CAddress builds a write of the 7-bit bus address
func CreateWriteI2CAddress(req *Request, address uint8) error {
	if address < MinI2CAddress || address > MaxI2CAddress {
		return invalid("i2c address", fmt.Sprintf("0x%02X", address))
	}
	return req.CreateWriteUint8(CmdI2CAddress, address)
}

// CreateReadRollingAverageEnable builds a read of the rolling average flag
func CreateReadRollingAverageEnable(req *Request) error {
	return req.CreateRead(CmdRollingAverageEnable, sizeUint8)
}

// CreateWriteRollingAverageEnable builds a write of the rolling average flag
func CreateWriteRollingAverageEnable(req *Request, enable bool) error {
	return req.CreateWriteUint8(CmdRollingAverageEnable, boolByte(enable))
}

// CreateReadRollingAverageSize builds a read of the rolling average window
func CreateReadRollingAverageSize(req *Request) error {
	return req.CreateRead(CmdRollingAverageSize, sizeUint32)
}

// CreateWriteRollingAverageSize builds a write of the rolling average window
func CreateWriteRollingAverageSize(req *Request, size uint32) error {
	if err := checkRange("rolling average size", size, MinRollingAverageSize, MaxRollingAverageSize); err != nil {
		return err
	}
	return req.CreateWriteUint32(CmdRollingAverageSize, size)
}

// CreateWriteSleep builds the command that puts the device to sleep
func CreateWriteSleep(req *Request) error {
	return req.CreateWriteUint8(CmdSleep, sleepMagic)
}

// CreateReadLEDState builds a read of the status LED flag
func CreateReadLEDState(req *Request) error {
	return req.CreateRead(CmdLEDState, sizeUint8)
}

// CreateWriteLEDState builds a write of the status LED flag
func CreateWriteLEDState(req *Request, enable bool) error {
	return req.CreateWriteUint8(CmdLEDState, boolByte(enable))
}

// CreateReadZeroOffset builds a read of the distance zero offset
func CreateReadZeroOffset(req *Request) error {
	return req.CreateRead(CmdZeroOffset, sizeUint32)
}

// CreateWriteZeroOffset builds a write of the distance zero offset.
// The device stores decimetres; the value is truncated toward zero.
func CreateWriteZeroOffset(req *Request, offsetCM int32) error {
	return req.CreateWriteInt32(CmdZeroOffset, offsetCM/10)
}
