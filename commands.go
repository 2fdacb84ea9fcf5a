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

// CommandID selects the device register a request addresses
type CommandID uint8

// GRF-500 command ids
const (
	CmdProductName           CommandID = 0
	CmdHardwareVersion       CommandID = 1
	CmdFirmwareVersion       CommandID = 2
	CmdSerialNumber          CommandID = 3
	CmdUserData              CommandID = 9
	CmdToken                 CommandID = 10
	CmdSaveParameters        CommandID = 12
	CmdReset                 CommandID = 14
	CmdDistanceConfig        CommandID = 27
	CmdStream                CommandID = 30
	CmdDistanceData          CommandID = 44
	CmdMultiData             CommandID = 45
	CmdLaserFiring           CommandID = 50
	CmdTemperature           CommandID = 55
	CmdAutoExposure          CommandID = 70
	CmdUpdateRate            CommandID = 74
	CmdAlarmStatus           CommandID = 76
	CmdAlarmReturnMode       CommandID = 77
	CmdLostSignalCounter     CommandID = 78
	CmdAlarmADistance        CommandID = 79
	CmdAlarmBDistance        CommandID = 80
	CmdAlarmHysteresis       CommandID = 81
	CmdGPIOMode              CommandID = 83
	CmdGPIOAlarmConfirmCount CommandID = 84
	CmdMedianFilterEnable    CommandID = 86
	CmdMedianFilterSize      CommandID = 87
	CmdSmoothFilterEnable    CommandID = 88
	CmdSmoothFilterFactor    CommandID = 89
	CmdBaudRate              CommandID = 91
	CmdI2CAddress            CommandID = 92
	CmdRollingAverageEnable  CommandID = 93
	CmdRollingAverageSize    CommandID = 94
	CmdSleep                 CommandID = 98
	CmdLEDState              CommandID = 110
	CmdZeroOffset            CommandID = 114
)

var commandNames = map[CommandID]string{
	CmdProductName:           "product_name",
	CmdHardwareVersion:       "hardware_version",
	CmdFirmwareVersion:       "firmware_version",
	CmdSerialNumber:          "serial_number",
	CmdUserData:              "user_data",
	CmdToken:                 "token",
	CmdSaveParameters:        "save_parameters",
	CmdReset:                 "reset",
	CmdDistanceConfig:        "distance_config",
	CmdStream:                "stream",
	CmdDistanceData:          "distance_data",
	CmdMultiData:             "multi_data",
	CmdLaserFiring:           "laser_firing",
	CmdTemperature:           "temperature",
	CmdAutoExposure:          "auto_exposure",
	CmdUpdateRate:            "update_rate",
	CmdAlarmStatus:           "alarm_status",
	CmdAlarmReturnMode:       "alarm_return_mode",
	CmdLostSignalCounter:     "lost_signal_counter",
	CmdAlarmADistance:        "alarm_a_distance",
	CmdAlarmBDistance:        "alarm_b_distance",
	CmdAlarmHysteresis:       "alarm_hysteresis",
	CmdGPIOMode:              "gpio_mode",
	CmdGPIOAlarmConfirmCount: "gpio_alarm_confirm_count",
	CmdMedianFilterEnable:    "median_filter_enable",
	CmdMedianFilterSize:      "median_filter_size",
	CmdSmoothFilterEnable:    "smooth_filter_enable",
	CmdSmoothFilterFactor:    "smooth_filter_factor",
	CmdBaudRate:              "baud_rate",
	CmdI2CAddress:            "i2c_address",
	CmdRollingAverageEnable:  "rolling_average_enable",
	CmdRollingAverageSize:    "rolling_average_size",
	CmdSleep:                 "sleep",
	CmdLEDState:              "led_state",
	CmdZeroOffset:            "zero_offset",
}

func (c CommandID) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", uint8(c))
}

// Magic values written by composed commands
const (
	sleepMagic    = 123  // written to CmdSleep
	i2cInitiate   = 0x80 // written to register 0 to start I2C communication
	serialWakeup  = "UUU"
	productPrefix = "GRF"
)

// CommandFilter selects which completed packets a wait accepts
type CommandFilter int

// AnyCommand accepts every packet
const AnyCommand CommandFilter = -1

// ForCommand accepts only packets for id
func ForCommand(id CommandID) CommandFilter {
	return CommandFilter(id)
}

// Matches reports whether a packet for id passes the filter
func (f CommandFilter) Matches(id CommandID) bool {
	return f == AnyCommand || CommandID(f) == id
}

func (f CommandFilter) String() string {
	if f == AnyCommand {
		return "any"
	}
	return CommandID(f).String()
}
