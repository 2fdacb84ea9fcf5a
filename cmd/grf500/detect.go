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
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/LightWare-Optoelectronics/grf-500-api/detection"
	"github.com/spf13/cobra"
)

var (
	detectSafe    bool
	detectTimeout time.Duration
	detectIgnore  []string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "List sensors on serial ports and I2C buses",
	Long: `List sensors on serial ports and I2C buses.

Passive detection only enumerates candidates. With --safe each candidate
is woken and asked for its product name, which writes to the port.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := detection.DefaultOptions()
		opts.Timeout = detectTimeout
		opts.IgnorePaths = detectIgnore
		if detectSafe {
			opts.Mode = detection.Safe
		}

		devices, err := detection.DetectAllContext(cmd.Context(), &opts)
		if err != nil {
			return err
		}
		printDevices(cmd.OutOrStdout(), devices)
		return nil
	},
}

func init() {
	detectCmd.Flags().BoolVar(&detectSafe, "safe", false, "Query candidates for a product name")
	detectCmd.Flags().DurationVar(&detectTimeout, "detect-timeout", 5*time.Second, "Time limit for detection")
	detectCmd.Flags().StringSliceVar(&detectIgnore, "ignore", nil, "Device paths to skip")
}

// printDevices lists the most likely sensors first
func printDevices(w io.Writer, devices []detection.DeviceInfo) {
	if len(devices) == 0 {
		_, _ = fmt.Fprintln(w, "No sensors found")
		return
	}
	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	for _, d := range devices {
		_, _ = fmt.Fprintln(w, d)
	}
}
