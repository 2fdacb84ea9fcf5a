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

package polling

import (
	"time"

	grf500 "github.com/LightWare-Optoelectronics/grf-500-api"
)

// Config controls a Monitor
type Config struct {
	// Logger receives polling errors; nil discards them
	Logger grf500.Logger
	// PollInterval is the pause between reads, and the wait bound for one
	// streamed packet when Streaming is set
	PollInterval time.Duration
	// SignalLostTimeout is how long the target may be missing before
	// OnTargetLost fires
	SignalLostTimeout time.Duration
	// ChangeThresholdCM is the distance change that counts as the target
	// moving
	ChangeThresholdCM int32
	// DistanceConfig must match the sensor's distance output setting
	DistanceConfig grf500.DistanceConfig
	// Streaming waits for packets the sensor streams on its own instead
	// of reading the distance register
	Streaming bool
}

// DefaultConfig polls the first return every 100 ms
func DefaultConfig() *Config {
	return &Config{
		PollInterval:      100 * time.Millisecond,
		SignalLostTimeout: time.Second,
		ChangeThresholdCM: 10,
		DistanceConfig:    grf500.DistanceFirstReturnRaw | grf500.DistanceFirstReturnFiltered,
	}
}

// ScanConfig holds configuration options for the Scanner
type ScanConfig struct {
	Logger            grf500.Logger
	PollInterval      time.Duration
	SignalLostTimeout time.Duration
	ChangeThresholdCM int32
	DistanceConfig    grf500.DistanceConfig
	Streaming         bool
}

// DefaultScanConfig returns sensible default configuration values
func DefaultScanConfig() *ScanConfig {
	c := DefaultConfig()
	return &ScanConfig{
		PollInterval:      c.PollInterval,
		SignalLostTimeout: c.SignalLostTimeout,
		ChangeThresholdCM: c.ChangeThresholdCM,
		DistanceConfig:    c.DistanceConfig,
	}
}

func (c *ScanConfig) monitorConfig() *Config {
	return &Config{
		Logger:            c.Logger,
		PollInterval:      c.PollInterval,
		SignalLostTimeout: c.SignalLostTimeout,
		ChangeThresholdCM: c.ChangeThresholdCM,
		DistanceConfig:    c.DistanceConfig,
		Streaming:         c.Streaming,
	}
}
