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

// Package i2c detects GRF-500 sensors on I2C buses. Importing it registers
// the detector with the detection package.
package i2c

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/LightWare-Optoelectronics/grf-500-api/detection"
)

const (
	// DefaultAddress is the factory I2C address of the GRF-500
	DefaultAddress = 0x66

	// productNameRegister holds the 16 byte product name
	productNameRegister = 0x00
	productNameSize     = 16
)

// detector implements the Detector interface for I2C devices
type detector struct{}

// New creates a new I2C detector
func New() detection.Detector {
	return &detector{}
}

// init registers the detector on package import
func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "i2c"
}

// Detect searches for GRF-500 sensors on I2C buses
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	// I2C detection is platform-specific
	if runtime.GOOS != "linux" {
		return nil, detection.ErrUnsupportedPlatform
	}
	return detectLinux(ctx, opts)
}

// queryFunc reads the product name of the device at addr
type queryFunc func(ctx context.Context, addr uint8) (string, bool)

// classify turns the responding addresses of one bus into devices. In
// Passive mode only the default address is reported; in Safe mode every
// address is asked for its product name and only GRF sensors are kept.
func classify(
	ctx context.Context, busPath string, addresses []uint8, opts *detection.Options, query queryFunc,
) []detection.DeviceInfo {
	devices := make([]detection.DeviceInfo, 0, len(addresses))

	for _, addr := range addresses {
		if ctx.Err() != nil {
			break
		}

		devicePath := fmt.Sprintf("%s:0x%02X", busPath, addr)
		if detection.IsPathIgnored(devicePath, opts.IgnorePaths) {
			continue
		}

		device := detection.DeviceInfo{
			Transport:  "i2c",
			Path:       devicePath,
			Name:       fmt.Sprintf("I2C device at %s address 0x%02X", busPath, addr),
			Confidence: detection.Medium,
			Metadata: map[string]string{
				"bus":     busPath,
				"address": fmt.Sprintf("0x%02X", addr),
			},
		}

		if opts.Mode == detection.Passive {
			if addr == DefaultAddress {
				devices = append(devices, device)
			}
			continue
		}

		name, ok := query(ctx, addr)
		if !ok || !strings.HasPrefix(name, "GRF") {
			continue
		}
		device.Name = name
		device.Confidence = detection.High
		device.Metadata["product_name"] = name
		devices = append(devices, device)
	}

	return devices
}

// SplitPath splits a detected path such as "/dev/i2c-1:0x66" into the bus
// and the address
func SplitPath(path string) (bus string, addr uint16, err error) {
	idx := strings.LastIndex(path, ":")
	if idx < 0 {
		return path, DefaultAddress, nil
	}
	if _, err := fmt.Sscanf(path[idx+1:], "0x%x", &addr); err != nil {
		return "", 0, fmt.Errorf("invalid address in %q: %w", path, err)
	}
	return path[:idx], addr, nil
}

// trimName cuts a fixed width product name at the first NUL
func trimName(raw []byte) string {
	if idx := strings.IndexByte(string(raw), 0); idx >= 0 {
		raw = raw[:idx]
	}
	return string(raw)
}
