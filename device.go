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

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LightWare-Optoelectronics/grf-500-api/detection"
)

// DeviceConfig contains configuration options for the Device
type DeviceConfig struct {
	// Timeout bounds each wait for a serial response
	Timeout time.Duration
	// Retries is the number of times a request is re-sent after a timeout
	// or a retryable transport error. Zero disables retries.
	Retries int
	// RetryDelay is the pause before each retry
	RetryDelay time.Duration
}

// DefaultDeviceConfig returns default device configuration
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		Timeout:    1 * time.Second,
		Retries:    0,
		RetryDelay: 0,
	}
}

// Device is a session with one GRF-500 over one transport. It owns a
// scratch Request, a scratch Response and a stream Assembler that every
// call reuses, so a session does not allocate per command.
//
// Thread Safety: Device is NOT thread-safe. All methods must be called from
// a single goroutine or protected with external synchronization. The
// polling package shows one way to share a device between goroutines.
type Device struct {
	transport Transport
	registers RegisterTransport
	stream    StreamTransport
	config    *DeviceConfig
	clock     Clock
	logger    Logger
	txBuf     []byte
	request   Request
	response  Response
	assembler Assembler
}

// New creates a Device on transport, which must implement RegisterTransport
// or StreamTransport
func New(transport Transport, opts ...Option) (*Device, error) {
	if transport == nil {
		return nil, fmt.Errorf("nil transport: %w", ErrInvalidParameter)
	}

	device := &Device{
		transport: transport,
		config:    DefaultDeviceConfig(),
		clock:     SystemClock(),
		logger:    NopLogger{},
	}

	switch t := transport.(type) {
	case StreamTransport:
		device.stream = t
	case RegisterTransport:
		device.registers = t
	default:
		return nil, fmt.Errorf("transport %s is neither a stream nor a register transport: %w",
			transport.Type(), ErrInvalidParameter)
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	device.request.Reset()
	device.response.Reset()
	return device, nil
}

// Transport returns the underlying transport
func (d *Device) Transport() Transport {
	return d.transport
}

// IsStream reports whether the device talks over a byte stream
func (d *Device) IsStream() bool {
	return d.stream != nil
}

// Request returns the scratch request used by the next exchange
func (d *Device) Request() *Request {
	return &d.request
}

// Response returns the scratch response filled by the last exchange or wait
func (d *Device) Response() *Response {
	return &d.response
}

// Config returns a copy of the device configuration
func (d *Device) Config() DeviceConfig {
	return *d.config
}

// SetTimeout sets the default timeout for serial responses
func (d *Device) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("timeout %v: %w", timeout, ErrInvalidParameter)
	}
	d.config.Timeout = timeout
	return nil
}

// Close closes the device connection
func (d *Device) Close() error {
	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

// TransportFactory is a function type for creating transports
type TransportFactory func(path string) (Transport, error)

// TransportFromDeviceFactory is a function type for creating transports from detected devices
type TransportFromDeviceFactory func(device detection.DeviceInfo) (Transport, error)

// ConnectOption represents a functional option for Connect
type ConnectOption func(*connectConfig) error

// connectConfig holds configuration options for device connection
type connectConfig struct {
	transportFactory       TransportFactory
	transportDeviceFactory TransportFromDeviceFactory
	deviceOptions          []Option
	timeout                time.Duration
	autoDetect             bool
	checkProduct           bool
}

// WithAutoDetection enables automatic device detection instead of using a specific path
func WithAutoDetection() ConnectOption {
	return func(c *connectConfig) error {
		c.autoDetect = true
		return nil
	}
}

// WithDeviceOptions adds device-level options
func WithDeviceOptions(opts ...Option) ConnectOption {
	return func(c *connectConfig) error {
		c.deviceOptions = append(c.deviceOptions, opts...)
		return nil
	}
}

// WithConnectTimeout bounds the whole connect sequence
func WithConnectTimeout(timeout time.Duration) ConnectOption {
	return func(c *connectConfig) error {
		c.timeout = timeout
		return nil
	}
}

// WithTransportFactory sets the transport factory function
func WithTransportFactory(factory TransportFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportFactory = factory
		return nil
	}
}

// WithTransportFromDeviceFactory sets the transport from device factory function
func WithTransportFromDeviceFactory(factory TransportFromDeviceFactory) ConnectOption {
	return func(c *connectConfig) error {
		c.transportDeviceFactory = factory
		return nil
	}
}

// WithProductCheck controls whether Connect verifies that the product name
// starts with "GRF". It is on by default.
func WithProductCheck(enabled bool) ConnectOption {
	return func(c *connectConfig) error {
		c.checkProduct = enabled
		return nil
	}
}

func applyConnectOptions(opts []ConnectOption) (*connectConfig, error) {
	config := &connectConfig{
		timeout:      10 * time.Second,
		checkProduct: true,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("failed to apply connect option: %w", err)
		}
	}

	return config, nil
}

// Connect opens a transport for path (or the first detected device),
// wakes the sensor into protocol mode and checks that it is a GRF unit.
//
// Example usage:
//
//	// Connect to a specific serial port
//	device, err := grf500.Connect(ctx, "/dev/ttyUSB0",
//		grf500.WithTransportFactory(newTransport))
//
//	// Auto-detect
//	device, err := grf500.Connect(ctx, "", grf500.WithAutoDetection(),
//		grf500.WithTransportFromDeviceFactory(newTransportFromDevice))
func Connect(ctx context.Context, path string, opts ...ConnectOption) (*Device, error) {
	config, err := applyConnectOptions(opts)
	if err != nil {
		return nil, err
	}

	if config.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.timeout)
		defer cancel()
	}

	transport, err := createTransport(ctx, path, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	device, err := setupDevice(ctx, transport, config)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}

	return device, nil
}

func createTransport(ctx context.Context, path string, config *connectConfig) (Transport, error) {
	if config.autoDetect || path == "" {
		return createAutoDetectedTransport(ctx, config.transportDeviceFactory)
	}
	return createManualTransport(path, config.transportFactory)
}

func setupDevice(ctx context.Context, transport Transport, config *connectConfig) (*Device, error) {
	device, err := New(transport, config.deviceOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	if err := device.Initiate(ctx); err != nil {
		return nil, fmt.Errorf("failed to initiate communication: %w", err)
	}

	if !config.checkProduct {
		return device, nil
	}

	name, err := device.ProductName(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read product name: %w", err)
	}
	if !strings.HasPrefix(name, productPrefix) {
		return nil, fmt.Errorf("%w: %q", ErrUnexpectedProduct, name)
	}

	return device, nil
}

// createManualTransport handles creation of transport for a specific path
func createManualTransport(path string, factory TransportFactory) (Transport, error) {
	if factory == nil {
		return nil, errors.New("transport factory not provided")
	}

	transport, err := factory(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport for path %s: %w", path, err)
	}

	return transport, nil
}

// createAutoDetectedTransport handles auto-detection of devices
func createAutoDetectedTransport(ctx context.Context, factory TransportFromDeviceFactory) (Transport, error) {
	if factory == nil {
		return nil, errors.New("transport device factory not provided")
	}

	opts := detection.DefaultOptions()
	opts.Mode = detection.Safe

	devices, err := detection.DetectAllContext(ctx, &opts)
	if errors.Is(err, detection.ErrNoDevicesFound) || (err == nil && len(devices) == 0) {
		return nil, fmt.Errorf("no GRF-500 devices found: %w", ErrDeviceNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to detect devices: %w", err)
	}

	return factory(devices[0])
}
