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

// Package detection finds GRF-500 sensors attached to the host. Transport
// specific detectors (detection/uart, detection/i2c) register themselves on
// import; DetectAll runs every registered detector.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Detection errors
var (
	ErrNoDevicesFound      = errors.New("no devices found")
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	ErrDetectionTimeout    = errors.New("detection timed out")
)

// Mode controls how intrusive detection is
type Mode int

const (
	// Passive only enumerates ports and buses; nothing is written to them
	Passive Mode = iota
	// Safe wakes candidates and reads the product name register
	Safe
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Confidence is how sure a detector is that a device is a GRF-500
type Confidence int

const (
	// Low means the device only looks like a possible candidate
	Low Confidence = iota
	// Medium means a strong hint such as the default address or a USB
	// product string
	Medium
	// High means the device answered with a GRF product name
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return fmt.Sprintf("confidence(%d)", int(c))
	}
}

// DeviceInfo describes one detected device
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Confidence Confidence
}

// String returns a one line description
func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s %s (%s, %s confidence)", d.Transport, d.Path, d.Name, d.Confidence)
}

// Options configures detection
type Options struct {
	// IgnorePaths lists device paths that are never reported or queried
	IgnorePaths []string
	// Blocklist lists USB VID:PID pairs that are never queried
	Blocklist []string
	// Timeout bounds the whole detection run
	Timeout time.Duration
	Mode    Mode
}

// DefaultOptions returns passive detection with a five second timeout
func DefaultOptions() Options {
	return Options{
		Mode:      Passive,
		Timeout:   5 * time.Second,
		Blocklist: DefaultBlocklist(),
	}
}

// Detector finds devices on one kind of transport
type Detector interface {
	// Transport returns the transport name, for example "uart"
	Transport() string
	// Detect returns every candidate device. It returns
	// ErrUnsupportedPlatform when the host cannot use the transport.
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Detector)
)

// RegisterDetector adds d to the registry, replacing any detector for the
// same transport
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Transport()] = d
}

// Detectors returns the registered detectors ordered by transport name
func Detectors() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Detector, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Transport() < out[j].Transport() })
	return out
}

// DetectAll runs every registered detector
func DetectAll(opts *Options) ([]DeviceInfo, error) {
	return DetectAllContext(context.Background(), opts)
}

// DetectAllContext runs every registered detector and returns the devices
// found, most confident first. Unsupported transports are skipped.
func DetectAllContext(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return detectWith(ctx, opts, Detectors())
}

func detectWith(ctx context.Context, opts *Options, detectors []Detector) ([]DeviceInfo, error) {
	var (
		devices []DeviceInfo
		errs    []error
	)
	for _, d := range detectors {
		if ctx.Err() != nil {
			return devices, ErrDetectionTimeout
		}

		found, err := d.Detect(ctx, opts)
		switch {
		case err == nil:
		case errors.Is(err, ErrUnsupportedPlatform), errors.Is(err, ErrNoDevicesFound):
			continue
		default:
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
			continue
		}

		for _, device := range found {
			if !IsPathIgnored(device.Path, opts.IgnorePaths) {
				devices = append(devices, device)
			}
		}
	}

	if len(devices) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		return nil, ErrNoDevicesFound
	}

	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	return devices, nil
}
