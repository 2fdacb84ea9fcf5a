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

import "context"

// get runs one read exchange and parses the scratch response
func get[T any](ctx context.Context, d *Device, build func(*Request) error, parse func(*Response) (T, error)) (T, error) {
	var zero T
	if err := build(&d.request); err != nil {
		return zero, err
	}
	if err := d.SendRequestGetResponse(ctx); err != nil {
		return zero, err
	}
	return parse(&d.response)
}

// set validates and sends one write. Nothing is sent if build fails.
func (d *Device) set(ctx context.Context, build func(*Request) error) error {
	if err := build(&d.request); err != nil {
		return err
	}
	return d.SendRequestGetResponse(ctx)
}

// ProductName reads the product name
func (d *Device) ProductName(ctx context.Context) (string, error) {
	return get(ctx, d, CreateReadProductName, ParseProductName)
}

// HardwareVersion reads the hardware revision
func (d *Device) HardwareVersion(ctx context.Context) (uint32, error) {
	return get(ctx, d, CreateReadHardwareVersion, ParseHardwareVersion)
}

// FirmwareVersion reads the firmware version
func (d *Device) FirmwareVersion(ctx context.Context) (FirmwareVersion, error) {
	return get(ctx, d, CreateReadFirmwareVersion, ParseFirmwareVersion)
}

// SerialNumber reads the serial number
func (d *Device) SerialNumber(ctx context.Context) (string, error) {
	return get(ctx, d, CreateReadSerialNumber, ParseSerialNumber)
}

// UserData reads the 16 byte user data block
func (d *Device) UserData(ctx context.Context) ([]byte, error) {
	return get(ctx, d, CreateReadUserData, func(r *Response) ([]byte, error) {
		return ParseUserData(r, UserDataSize)
	})
}

// SetUserData writes the 16 byte user data block
func (d *Device) SetUserData(ctx context.Context, data []byte) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteUserData(r, data) })
}

// Token reads a fresh one-time safety token
func (d *Device) Token(ctx context.Context) (uint16, error) {
	return get(ctx, d, CreateReadToken, ParseToken)
}

// DistanceConfig reads which fields distance packets carry
func (d *Device) DistanceConfig(ctx context.Context) (DistanceConfig, error) {
	return get(ctx, d, CreateReadDistanceConfig, ParseDistanceConfig)
}

// SetDistanceConfig selects which fields distance packets carry
func (d *Device) SetDistanceConfig(ctx context.Context, config DistanceConfig) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteDistanceConfig(r, config) })
}

// Stream reads the active stream
func (d *Device) Stream(ctx context.Context) (StreamID, error) {
	return get(ctx, d, CreateReadStream, ParseStream)
}

// SetStream selects the packet the device streams unsolicited. Streaming
// only makes sense on a serial link.
func (d *Device) SetStream(ctx context.Context, stream StreamID) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteStream(r, stream) })
}

// DistanceData reads one distance packet laid out according to config,
// which must match the device's current distance config
func (d *Device) DistanceData(ctx context.Context, config DistanceConfig) (DistanceData, error) {
	return get(ctx, d,
		func(r *Request) error { return CreateReadDistanceData(r, config) },
		func(r *Response) (DistanceData, error) { return ParseDistanceData(r, config) })
}

// MultiData reads one multi-return packet
func (d *Device) MultiData(ctx context.Context) (MultiData, error) {
	return get(ctx, d, CreateReadMultiData, ParseMultiData)
}

// LaserFiring reads the laser enable flag
func (d *Device) LaserFiring(ctx context.Context) (bool, error) {
	return get(ctx, d, CreateReadLaserFiring, ParseLaserFiring)
}

// SetLaserFiring turns the laser on or off
func (d *Device) SetLaserFiring(ctx context.Context, enable bool) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteLaserFiring(r, enable) })
}

// Temperature reads the internal temperature in 1/100 °C
func (d *Device) Temperature(ctx context.Context) (int32, error) {
	return get(ctx, d, CreateReadTemperature, ParseTemperature)
}

// AutoExposure reads the auto exposure flag
func (d *Device) AutoExposure(ctx context.Context) (bool, error) {
	return get(ctx, d, CreateReadAutoExposure, ParseAutoExposure)
}

// SetAutoExposure turns auto exposure on or off
func (d *Device) SetAutoExposure(ctx context.Context, enable bool) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteAutoExposure(r, enable) })
}

// UpdateRate reads the measurement rate in Hz
func (d *Device) UpdateRate(ctx context.Context) (float64, error) {
	return get(ctx, d, CreateReadUpdateRate, ParseUpdateRate)
}

// SetUpdateRate sets the measurement rate, 0.5 to 10 Hz
func (d *Device) SetUpdateRate(ctx context.Context, hz float64) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteUpdateRate(r, hz) })
}

// AlarmStatus reads which alarms are active
func (d *Device) AlarmStatus(ctx context.Context) (AlarmStatus, error) {
	return get(ctx, d, CreateReadAlarmStatus, ParseAlarmStatus)
}

// AlarmReturnMode reads which return the alarms evaluate
func (d *Device) AlarmReturnMode(ctx context.Context) (ReturnMode, error) {
	return get(ctx, d, CreateReadAlarmReturnMode, ParseAlarmReturnMode)
}

// SetAlarmReturnMode selects which return the alarms evaluate
func (d *Device) SetAlarmReturnMode(ctx context.Context, mode ReturnMode) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteAlarmReturnMode(r, mode) })
}

// LostSignalCounter reads the lost signal counter
func (d *Device) LostSignalCounter(ctx context.Context) (uint32, error) {
	return get(ctx, d, CreateReadLostSignalCounter, ParseLostSignalCounter)
}

// SetLostSignalCounter sets the lost signal counter, 1 to 250
func (d *Device) SetLostSignalCounter(ctx context.Context, counter uint32) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteLostSignalCounter(r, counter) })
}

// AlarmADistance reads alarm A's trigger distance in centimetres
func (d *Device) AlarmADistance(ctx context.Context) (uint32, error) {
	return get(ctx, d, CreateReadAlarmADistance, ParseAlarmADistance)
}

// SetAlarmADistance sets alarm A's trigger distance, 0 to 30000 cm
func (d *Device) SetAlarmADistance(ctx context.Context, distanceCM uint32) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteAlarmADistance(r, distanceCM) })
}

// AlarmBDistance reads alarm B's trigger distance in centimetres
func (d *Device) AlarmBDistance(ctx context.Context) (uint32, error) {
	return get(ctx, d, CreateReadAlarmBDistance, ParseAlarmBDistance)
}

// SetAlarmBDistance sets alarm B's trigger distance, 0 to 30000 cm
func (d *Device) SetAlarmBDistance(ctx context.Context, distanceCM uint32) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteAlarmBDistance(r, distanceCM) })
}

// AlarmHysteresis reads the alarm hysteresis in centimetres
func (d *Device) AlarmHysteresis(ctx context.Context) (uint32, error) {
	return get(ctx, d, CreateReadAlarmHysteresis, ParseAlarmHysteresis)
}

// SetAlarmHysteresis sets the alarm hysteresis, 0 to 3000 cm
func (d *Device) SetAlarmHysteresis(ctx context.Context, hysteresisCM uint32) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteAlarmHysteresis(r, hysteresisCM) })
}

// GPIOMode reads the alarm output mode
func (d *Device) GPIOMode(ctx context.Context) (GPIOMode, error) {
	return get(ctx, d, CreateReadGPIOMode, ParseGPIOMode)
}

// SetGPIOMode selects the alarm output mode
func (d *Device) SetGPIOMode(ctx context.Context, mode GPIOMode) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteGPIOMode(r, mode) })
}

// GPIOAlarmConfirmCount reads the alarm confirm count
func (d *Device) GPIOAlarmConfirmCount(ctx context.Context) (uint32, error) {
	return get(ctx, d, CreateReadGPIOAlarmConfirmCount, ParseGPIOAlarmConfirmCount)
}

// SetGPIOAlarmConfirmCount sets the alarm confirm count, 0 to 1000
func (d *Device) SetGPIOAlarmConfirmCount(ctx context.Context, count uint32) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteGPIOAlarmConfirmCount(r, count) })
}

// MedianFilterEnable reads the median filter flag
func (d *Device) MedianFilterEnable(ctx context.Context) (bool, error) {
	return get(ctx, d, CreateReadMedianFilterEnable, ParseMedianFilterEnable)
}

// SetMedianFilterEnable turns the median filter on or off
func (d *Device) SetMedianFilterEnable(ctx context.Context, enable bool) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteMedianFilterEnable(r, enable) })
}

// MedianFilterSize reads the median window size
func (d *Device) MedianFilterSize(ctx context.Context) (uint32, error) {
	return get(ctx, d, CreateReadMedianFilterSize, ParseMedianFilterSize)
}

// SetMedianFilterSize sets the median window size, 3 to 32
func (d *Device) SetMedianFilterSize(ctx context.Context, size uint32) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteMedianFilterSize(r, size) })
}

// SmoothFilterEnable reads the smoothing filter flag
func (d *Device) SmoothFilterEnable(ctx context.Context) (bool, error) {
	return get(ctx, d, CreateReadSmoothFilterEnable, ParseSmoothFilterEnable)
}

// SetSmoothFilterEnable turns the smoothing filter on or off
func (d *Device) SetSmoothFilterEnable(ctx context.Context, enable bool) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteSmoothFilterEnable(r, enable) })
}

// SmoothFilterFactor reads the smoothing factor
func (d *Device) SmoothFilterFactor(ctx context.Context) (uint32, error) {
	return get(ctx, d, CreateReadSmoothFilterFactor, ParseSmoothFilterFactor)
}

// SetSmoothFilterFactor sets the smoothing factor, 1 to 99
func (d *Device) SetSmoothFilterFactor(ctx context.Context, factor uint32) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteSmoothFilterFactor(r, factor) })
}

// BaudRate reads the serial speed index
func (d *Device) BaudRate(ctx context.Context) (BaudRate, error) {
	return get(ctx, d, CreateReadBaudRate, ParseBaudRate)
}

// SetBaudRate sets the serial speed index
func (d *Device) SetBaudRate(ctx context.Context, rate BaudRate) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteBaudRate(r, rate) })
}

// I2CAddress reads the bus address
func (d *Device) I2CAddress(ctx context.Context) (uint8, error) {
	return get(ctx, d, CreateReadI2CAddress, ParseI2CAddress)
}

// SetI2CAddress sets the 7-bit bus address
func (d *Device) SetI2CAddress(ctx context.Context, address uint8) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteI2CAddress(r, address) })
}

// RollingAverageEnable reads the rolling average flag
func (d *Device) RollingAverageEnable(ctx context.Context) (bool, error) {
	return get(ctx, d, CreateReadRollingAverageEnable, ParseRollingAverageEnable)
}

// SetRollingAverageEnable turns the rolling average on or off
func (d *Device) SetRollingAverageEnable(ctx context.Context, enable bool) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteRollingAverageEnable(r, enable) })
}

// RollingAverageSize reads the rolling average window
func (d *Device) RollingAverageSize(ctx context.Context) (uint32, error) {
	return get(ctx, d, CreateReadRollingAverageSize, ParseRollingAverageSize)
}

// SetRollingAverageSize sets the rolling average window, 2 to 32
func (d *Device) SetRollingAverageSize(ctx context.Context, size uint32) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteRollingAverageSize(r, size) })
}

// LEDState reads the status LED flag
func (d *Device) LEDState(ctx context.Context) (bool, error) {
	return get(ctx, d, CreateReadLEDState, ParseLEDState)
}

// SetLEDState turns the status LED on or off
func (d *Device) SetLEDState(ctx context.Context, enable bool) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteLEDState(r, enable) })
}

// ZeroOffset reads the distance zero offset in centimetres
func (d *Device) ZeroOffset(ctx context.Context) (int32, error) {
	return get(ctx, d, CreateReadZeroOffset, ParseZeroOffset)
}

// SetZeroOffset sets the distance zero offset in centimetres
func (d *Device) SetZeroOffset(ctx context.Context, offsetCM int32) error {
	return d.set(ctx, func(r *Request) error { return CreateWriteZeroOffset(r, offsetCM) })
}
