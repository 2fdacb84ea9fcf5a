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
	"io"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show product information and the measurement setup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDevice(cmd.Context(), func(d *grf500.Device) error {
			return printInfo(cmd.Context(), cmd.OutOrStdout(), d)
		})
	},
}

func printInfo(ctx context.Context, w io.Writer, d *grf500.Device) error {
	info, err := d.ProductInfo(ctx)
	if err != nil {
		return err
	}
	rate, err := d.UpdateRate(ctx)
	if err != nil {
		return err
	}
	config, err := d.DistanceConfig(ctx)
	if err != nil {
		return err
	}
	stream, err := d.Stream(ctx)
	if err != nil {
		return err
	}
	temperature, err := d.Temperature(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(w, "Product:          %s\n", info.Name)
	_, _ = fmt.Fprintf(w, "Serial number:    %s\n", info.SerialNumber)
	_, _ = fmt.Fprintf(w, "Firmware:         %s\n", info.FirmwareVersion)
	_, _ = fmt.Fprintf(w, "Hardware:         %d\n", info.HardwareVersion)
	_, _ = fmt.Fprintf(w, "Transport:        %s\n", d.Transport().Type())
	_, _ = fmt.Fprintf(w, "Update rate:      %.1f Hz\n", rate)
	_, _ = fmt.Fprintf(w, "Distance config:  %s\n", config)
	_, _ = fmt.Fprintf(w, "Stream:           %s\n", stream)
	_, _ = fmt.Fprintf(w, "Temperature:      %.2f C\n", float64(temperature)/100)
	return nil
}
