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

// Package uart detects GRF-500 sensors on serial ports. Importing it
// registers the detector with the detection package.
package uart

import (
	"context"
	"fmt"
	"strings"
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	"github.com/LightWare-Optoelectronics/grf-500-api/detection"
	"github.com/LightWare-Optoelectronics/grf-500-api/transport/uart"
	"go.bug.st/serial/enumerator"
)

const queryTimeout = 250 * time.Millisecond

// productHints are USB product strings that suggest a LightWare sensor
var productHints = []string{"lightware", "grf"}

// QueryFunc reads the product name of the sensor on path
type QueryFunc func(ctx context.Context, path string) (string, error)

// detector implements detection.Detector for serial ports
type detector struct {
	list  func() ([]*enumerator.PortDetails, error)
	query QueryFunc
}

// New creates a serial port detector
func New() detection.Detector {
	return &detector{
		list:  enumerator.GetDetailedPortsList,
		query: QueryProductName,
	}
}

func init() {
	detection.RegisterDetector(New())
}

// Transport returns the transport type
func (*detector) Transport() string {
	return "uart"
}

// Detect lists serial ports and, in Safe mode, asks each unblocked port
// for its product name
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := d.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		if device, ok := d.inspect(ctx, port, opts); ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// inspect decides whether port is reported and how confidently
func (d *detector) inspect(
	ctx context.Context, port *enumerator.PortDetails, opts *detection.Options,
) (detection.DeviceInfo, bool) {
	if detection.IsPathIgnored(port.Name, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  "uart",
		Path:       port.Name,
		Name:       port.Name,
		Confidence: detection.Low,
		Metadata:   map[string]string{},
	}

	vidpid := ""
	if port.IsUSB {
		vidpid = strings.ToUpper(port.VID + ":" + port.PID)
		device.Metadata["vid_pid"] = vidpid
		device.Metadata["serial_number"] = port.SerialNumber
		device.Metadata["product"] = port.Product
		if port.Product != "" {
			device.Name = port.Product
		}
		if hasProductHint(port.Product) {
			device.Confidence = detection.Medium
		}
	}

	if opts.Mode == detection.Passive {
		return device, true
	}
	if vidpid != "" && detection.IsBlocked(vidpid, opts.Blocklist) {
		return detection.DeviceInfo{}, false
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	name, err := d.query(queryCtx, port.Name)
	cancel()
	if err != nil || !strings.HasPrefix(name, "GRF") {
		return detection.DeviceInfo{}, false
	}

	device.Name = name
	device.Confidence = detection.High
	device.Metadata["product_name"] = name
	return device, true
}

func hasProductHint(product string) bool {
	product = strings.ToLower(product)
	for _, hint := range productHints {
		if strings.Contains(product, hint) {
			return true
		}
	}
	return false
}

// QueryProductName opens path at the default baud rate, wakes the sensor
// and reads its product name
func QueryProductName(ctx context.Context, path string) (string, error) {
	transport, err := uart.New(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = transport.Close() }()

	device, err := grf500.New(transport, grf500.WithTimeout(queryTimeout))
	if err != nil {
		return "", err
	}
	if err := device.Initiate(ctx); err != nil {
		return "", err
	}
	return device.ProductName(ctx)
}
