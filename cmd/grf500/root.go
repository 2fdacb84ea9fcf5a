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
	"flag"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// I2C connection flags
	i2cBus  string
	i2cAddr uint16

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Protocol flags
	timeout time.Duration
	retries int
)

var rootCmd = &cobra.Command{
	Use:   "grf500",
	Short: "LightWare GRF-500 LIDAR tool",
	Long: `grf500 reads distances from and configures a LightWare GRF-500.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  I2C:       --i2c /dev/i2c-1 [--i2c-addr 0x66]
  WebSocket: --url ws://host/path [--username user]
  Detected:  no connection flag; the first sensor found is used

For WebSocket authentication, the password is read from the GRF500_PASSWORD
environment variable, or prompted interactively if not set.

Library debug output is logged by glog at -v=2.`,
	Version:      "0.1.0",
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		// glog reads its flags from the go flag set, which pflag already
		// filled in
		return flag.CommandLine.Parse(nil)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	rootCmd.PersistentFlags().StringVar(&i2cBus, "i2c", "", "I2C bus (for example /dev/i2c-1 or 1)")
	rootCmd.PersistentFlags().Uint16Var(&i2cAddr, "i2c-addr", 0x66, "I2C device address")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false,
		"Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", time.Second, "Response timeout (serial only)")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", 0, "Times a timed out request is resent")

	_ = flag.Set("logtostderr", "true")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(infoCmd, getCmd, setCmd, streamCmd, monitorCmd, detectCmd, resetCmd, saveCmd)
}
