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

/*
Package grf500 provides a pure Go library for the LightWare GRF-500 LIDAR
rangefinder.

The GRF-500 is a single-beam laser rangefinder that speaks the same command
protocol over a register-addressed I2C bus and over a serial byte stream.
This library builds the command packets, reassembles serial replies one byte
at a time and exposes every device setting as a typed Go method.

Features:
  - I2C, UART and WebSocket serial bridge transports
  - Blocking and non-blocking waits for streamed distance data
  - Validated setters that reject out-of-range values before sending
  - Automatic device detection
  - Optional retries for lost serial replies

Basic Usage:

	import (
	    "github.com/LightWare-Optoelectronics/grf-500-api"
	    "github.com/LightWare-Optoelectronics/grf-500-api/transport/uart"
	)

	transport, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}

	device, err := grf500.New(transport, grf500.WithTimeout(500*time.Millisecond))
	if err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	if err := device.Initiate(ctx); err != nil {
	    log.Fatal(err)
	}

	info, err := device.ProductInfo(ctx)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("%s %s firmware %s\n", info.Name, info.SerialNumber, info.FirmwareVersion)

Streaming:

On a serial link the device can push distance packets without being asked.
Select the fields once, start the stream and wait for packets:

	cfg := grf500.DistanceFirstReturnRaw | grf500.DistanceTemperature
	_ = device.SetDistanceConfig(ctx, cfg)
	_ = device.SetStream(ctx, grf500.StreamDistanceData)

	for {
	    data, err := device.WaitForStreamedDistanceData(ctx, cfg, time.Second)
	    if err != nil {
	        break
	    }
	    fmt.Println(data.FirstReturnRawCM)
	}

PollStreamedDistanceData does the same without blocking and returns
ErrAgain until a whole packet has arrived.

Unmanaged Use:

Request, Response and the CreateRead/CreateWrite and Parse functions give
direct access to the packet layer for callers that drive the exchange
themselves:

	req := device.Request()
	_ = grf500.CreateReadTemperature(req)
	if err := device.SendRequestGetResponse(ctx); err != nil {
	    return err
	}
	temp, err := grf500.ParseTemperature(device.Response())

Error Handling:

Every failure maps onto a closed set of results:

	switch grf500.ResultOf(err) {
	case grf500.ResultTimeout:
	    // no reply in time
	case grf500.ResultInvalidParameter:
	    // value rejected before anything was sent
	}

errors.Is works as well, e.g. errors.Is(err, grf500.ErrTimeout).

Thread Safety:

Device operations are not thread-safe. The polling package shows how to
share one device between goroutines.
*/
package grf500
