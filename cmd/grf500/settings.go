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

package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	"github.com/spf13/cobra"
)

// setting is one named device parameter. set is nil for read-only values.
type setting struct {
	get  func(ctx context.Context, d *grf500.Device) (string, error)
	set  func(ctx context.Context, d *grf500.Device, value string) error
	help string
}

// getter adapts a typed device read
func getter[T any](read func(*grf500.Device, context.Context) (T, error)) func(context.Context, *grf500.Device) (string, error) {
	return func(ctx context.Context, d *grf500.Device) (string, error) {
		v, err := read(d, ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%+v", v), nil
	}
}

// setter adapts a typed device write
func setter[T any](
	parse func(string) (T, error), write func(*grf500.Device, context.Context, T) error,
) func(context.Context, *grf500.Device, string) error {
	return func(ctx context.Context, d *grf500.Device, value string) error {
		v, err := parse(value)
		if err != nil {
			return err
		}
		return write(d, ctx, v)
	}
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not an unsigned number: %w", s, grf500.ErrInvalidParameter)
	}
	return uint32(v), nil
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number: %w", s, grf500.ErrInvalidParameter)
	}
	return int32(v), nil
}

func parseUint8(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("%q is not a byte value: %w", s, grf500.ErrInvalidParameter)
	}
	return uint8(v), nil
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number: %w", s, grf500.ErrInvalidParameter)
	}
	return v, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "enable", "enabled":
		return true, nil
	case "off", "disable", "disabled":
		return false, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%q is not on or off: %w", s, grf500.ErrInvalidParameter)
	}
	return v, nil
}

// parseNamed matches s against the String form of each value
func parseNamed[T fmt.Stringer](values ...T) func(string) (T, error) {
	return func(s string) (T, error) {
		names := make([]string, len(values))
		for i, v := range values {
			if strings.EqualFold(v.String(), s) {
				return v, nil
			}
			names[i] = v.String()
		}
		var zero T
		return zero, fmt.Errorf("%q is not one of %s: %w", s, strings.Join(names, ", "), grf500.ErrInvalidParameter)
	}
}

func parseBaudRate(s string) (grf500.BaudRate, error) {
	bps, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a baud rate: %w", s, grf500.ErrInvalidParameter)
	}
	return grf500.BaudRateFromBitsPerSecond(bps)
}

var settings = map[string]setting{
	"product-name":     {help: "product name", get: getter((*grf500.Device).ProductName)},
	"hardware-version": {help: "hardware revision", get: getter((*grf500.Device).HardwareVersion)},
	"firmware-version": {help: "firmware version", get: getter((*grf500.Device).FirmwareVersion)},
	"serial-number":    {help: "serial number", get: getter((*grf500.Device).SerialNumber)},
	"temperature": {help: "internal temperature (hundredths of a degree C)",
		get: getter((*grf500.Device).Temperature)},
	"alarm-status": {help: "active distance alarms", get: getter((*grf500.Device).AlarmStatus)},
	"update-rate": {help: "measurements per second (0.5 to 10)",
		get: getter((*grf500.Device).UpdateRate),
		set: setter(parseFloat, (*grf500.Device).SetUpdateRate)},
	"distance-config": {help: "distance output fields, for example first_raw|temperature or all",
		get: getter((*grf500.Device).DistanceConfig),
		set: setter(grf500.DistanceConfigFromString, (*grf500.Device).SetDistanceConfig)},
	"stream": {help: "streamed packet: none, distance_data or multi_data",
		get: getter((*grf500.Device).Stream),
		set: setter(parseNamed(grf500.StreamNone, grf500.StreamDistanceData, grf500.StreamMultiData),
			(*grf500.Device).SetStream)},
	"laser-firing": {help: "laser on or off",
		get: getter((*grf500.Device).LaserFiring),
		set: setter(parseBool, (*grf500.Device).SetLaserFiring)},
	"auto-exposure": {help: "automatic exposure on or off",
		get: getter((*grf500.Device).AutoExposure),
		set: setter(parseBool, (*grf500.Device).SetAutoExposure)},
	"alarm-return-mode": {help: "return the alarms evaluate: first or last",
		get: getter((*grf500.Device).AlarmReturnMode),
		set: setter(parseNamed(grf500.ReturnFirst, grf500.ReturnLast), (*grf500.Device).SetAlarmReturnMode)},
	"lost-signal-counter": {help: "readings before a lost signal is reported (1 to 250)",
		get: getter((*grf500.Device).LostSignalCounter),
		set: setter(parseUint32, (*grf500.Device).SetLostSignalCounter)},
	"alarm-a": {help: "alarm A distance in cm",
		get: getter((*grf500.Device).AlarmADistance),
		set: setter(parseUint32, (*grf500.Device).SetAlarmADistance)},
	"alarm-b": {help: "alarm B distance in cm",
		get: getter((*grf500.Device).AlarmBDistance),
		set: setter(parseUint32, (*grf500.Device).SetAlarmBDistance)},
	"alarm-hysteresis": {help: "alarm hysteresis in cm",
		get: getter((*grf500.Device).AlarmHysteresis),
		set: setter(parseUint32, (*grf500.Device).SetAlarmHysteresis)},
	"gpio-mode": {help: "alarm pin: no_output, alarm_a or alarm_b",
		get: getter((*grf500.Device).GPIOMode),
		set: setter(parseNamed(grf500.GPIONoOutput, grf500.GPIOAlarmA, grf500.GPIOAlarmB),
			(*grf500.Device).SetGPIOMode)},
	"gpio-confirm-count": {help: "readings before the alarm pin changes",
		get: getter((*grf500.Device).GPIOAlarmConfirmCount),
		set: setter(parseUint32, (*grf500.Device).SetGPIOAlarmConfirmCount)},
	"median-filter": {help: "median filter on or off",
		get: getter((*grf500.Device).MedianFilterEnable),
		set: setter(parseBool, (*grf500.Device).SetMedianFilterEnable)},
	"median-filter-size": {help: "median filter window (3 to 32)",
		get: getter((*grf500.Device).MedianFilterSize),
		set: setter(parseUint32, (*grf500.Device).SetMedianFilterSize)},
	"smooth-filter": {help: "smoothing filter on or off",
		get: getter((*grf500.Device).SmoothFilterEnable),
		set: setter(parseBool, (*grf500.Device).SetSmoothFilterEnable)},
	"smooth-filter-factor": {help: "smoothing factor (1 to 99)",
		get: getter((*grf500.Device).SmoothFilterFactor),
		set: setter(parseUint32, (*grf500.Device).SetSmoothFilterFactor)},
	"baud-rate": {help: "serial speed in bits per second",
		get: getter((*grf500.Device).BaudRate),
		set: setter(parseBaudRate, (*grf500.Device).SetBaudRate)},
	"i2c-address": {help: "I2C address (0x08 to 0x77)",
		get: getter((*grf500.Device).I2CAddress),
		set: setter(parseUint8, (*grf500.Device).SetI2CAddress)},
	"rolling-average": {help: "rolling average on or off",
		get: getter((*grf500.Device).RollingAverageEnable),
		set: setter(parseBool, (*grf500.Device).SetRollingAverageEnable)},
	"rolling-average-size": {help: "rolling average window (2 to 32)",
		get: getter((*grf500.Device).RollingAverageSize),
		set: setter(parseUint32, (*grf500.Device).SetRollingAverageSize)},
	"led": {help: "status LED on or off",
		get: getter((*grf500.Device).LEDState),
		set: setter(parseBool, (*grf500.Device).SetLEDState)},
	"zero-offset": {help: "zero offset in cm",
		get: getter((*grf500.Device).ZeroOffset),
		set: setter(parseInt32, (*grf500.Device).SetZeroOffset)},
}

func settingNames(writable bool) []string {
	names := make([]string, 0, len(settings))
	for name, s := range settings {
		if writable && s.set == nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupSetting(name string) (setting, error) {
	s, ok := settings[name]
	if !ok {
		return setting{}, fmt.Errorf("unknown setting %q", name)
	}
	return s, nil
}

func settingsHelp(writable bool) string {
	var b strings.Builder
	b.WriteString("Settings:\n")
	for _, name := range settingNames(writable) {
		fmt.Fprintf(&b, "  %-22s %s\n", name, settings[name].help)
	}
	return b.String()
}

var getCmd = &cobra.Command{
	Use:   "get <setting>...",
	Short: "Read settings",
	Long:  "Read one or more settings.\n\n" + settingsHelp(false),
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range args {
			if _, err := lookupSetting(name); err != nil {
				return err
			}
		}
		return withDevice(cmd.Context(), func(d *grf500.Device) error {
			for _, name := range args {
				value, err := settings[name].get(cmd.Context(), d)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, value)
			}
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set <setting> <value>",
	Short: "Change a setting",
	Long: "Change a setting. Changes are lost on power off unless followed by save.\n\n" +
		settingsHelp(true),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, value := args[0], args[1]
		s, err := lookupSetting(name)
		if err != nil {
			return err
		}
		if s.set == nil {
			return fmt.Errorf("setting %q is read-only", name)
		}
		return withDevice(cmd.Context(), func(d *grf500.Device) error {
			if err := s.set(cmd.Context(), d, value); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			readBack, err := s.get(cmd.Context(), d)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", name, readBack)
			return nil
		})
	},
}
