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
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
	"github.com/LightWare-Optoelectronics/grf-500-api/detection"
	i2cdetect "github.com/LightWare-Optoelectronics/grf-500-api/detection/i2c"
	// Registers the serial port detector
	_ "github.com/LightWare-Optoelectronics/grf-500-api/detection/uart"
	"github.com/LightWare-Optoelectronics/grf-500-api/transport/i2c"
	"github.com/LightWare-Optoelectronics/grf-500-api/transport/uart"
	"github.com/LightWare-Optoelectronics/grf-500-api/transport/websocket"
	"github.com/golang/glog"
	"golang.org/x/term"
)

// passwordEnv holds the WebSocket password so it stays out of shell history
const passwordEnv = "GRF500_PASSWORD"

// glogLogger routes library debug output to glog at verbosity 2
var glogLogger = grf500.LoggerFunc(func(format string, args ...any) {
	glog.V(2).Infof(format, args...)
})

func deviceOptions() []grf500.Option {
	return []grf500.Option{
		grf500.WithTimeout(timeout),
		grf500.WithRetries(retries),
		grf500.WithLogger(glogLogger),
	}
}

// openDevice connects using whichever connection flag was given
func openDevice(ctx context.Context) (*grf500.Device, error) {
	opts := []grf500.ConnectOption{grf500.WithDeviceOptions(deviceOptions()...)}

	switch {
	case wsURL != "":
		password := ""
		if wsUsername != "" {
			var err error
			if password, err = getPassword(); err != nil {
				return nil, err
			}
		}
		factory := func(path string) (grf500.Transport, error) {
			return websocket.Dial(ctx, path,
				websocket.WithBasicAuth(wsUsername, password),
				websocket.WithInsecureSkipVerify(wsNoSSLVerify))
		}
		return grf500.Connect(ctx, wsURL, append(opts, grf500.WithTransportFactory(factory))...)
	case i2cBus != "":
		path := fmt.Sprintf("%s:0x%02x", i2cBus, i2cAddr)
		return grf500.Connect(ctx, path, append(opts, grf500.WithTransportFactory(newI2CTransport))...)
	case portName != "":
		return grf500.Connect(ctx, portName, append(opts, grf500.WithTransportFactory(newUARTTransport))...)
	default:
		glog.Info("no connection flag given, detecting sensors")
		return grf500.Connect(ctx, "", append(opts,
			grf500.WithAutoDetection(),
			grf500.WithTransportFromDeviceFactory(newTransportFromDevice))...)
	}
}

func newUARTTransport(path string) (grf500.Transport, error) {
	t, err := uart.New(path, uart.WithBaudRate(baudRate))
	if err != nil {
		return nil, fmt.Errorf("failed to create UART transport: %w", err)
	}
	return t, nil
}

// newI2CTransport accepts "bus" or "bus:0xADDR"
func newI2CTransport(path string) (grf500.Transport, error) {
	bus, addr, err := i2cdetect.SplitPath(path)
	if err != nil {
		return nil, err
	}
	t, err := i2c.New(bus, i2c.WithAddress(addr))
	if err != nil {
		return nil, fmt.Errorf("failed to create I2C transport: %w", err)
	}
	return t, nil
}

// newTransportFromDevice creates a new transport from a detected device
func newTransportFromDevice(device detection.DeviceInfo) (grf500.Transport, error) {
	glog.Infof("using %s", device)
	switch strings.ToLower(device.Transport) {
	case "uart":
		return newUARTTransport(device.Path)
	case "i2c":
		return newI2CTransport(device.Path)
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", device.Transport)
	}
}

// getPassword retrieves password from environment or prompts user
func getPassword() (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		passwordBytes, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(passwordBytes), nil
	}

	// Piped input
	password, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(password), nil
}

// withDevice opens the device, runs fn and closes the device
func withDevice(ctx context.Context, fn func(*grf500.Device) error) error {
	device, err := openDevice(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := device.Close(); err != nil {
			glog.Warningf("close: %v", err)
		}
	}()
	return fn(device)
}
