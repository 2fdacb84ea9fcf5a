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

package uart

import (
	"context"
	"errors"
	"testing"

	"github.com/LightWare-Optoelectronics/grf-500-api/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func testPorts() []*enumerator.PortDetails {
	return []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "0403", PID: "6015", Product: "LightWare GRF-500"},
		{Name: "/dev/ttyACM1", IsUSB: true, VID: "2341", PID: "0043", Product: "Arduino Uno"},
	}
}

// queryNames answers queries from a path to product name table
func queryNames(names map[string]string) QueryFunc {
	return func(_ context.Context, path string) (string, error) {
		name, ok := names[path]
		if !ok {
			return "", errors.New("no reply")
		}
		return name, nil
	}
}

func TestDetectPassive(t *testing.T) {
	t.Parallel()

	queried := false
	d := &detector{
		list: func() ([]*enumerator.PortDetails, error) { return testPorts(), nil },
		query: func(context.Context, string) (string, error) {
			queried = true
			return "", nil
		},
	}

	opts := detection.DefaultOptions()
	devices, err := d.Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.False(t, queried)

	assert.Equal(t, detection.Low, devices[0].Confidence)
	assert.Equal(t, detection.Medium, devices[1].Confidence)
	assert.Equal(t, "LightWare GRF-500", devices[1].Name)
	assert.Equal(t, "0403:6015", devices[1].Metadata["vid_pid"])
}

func TestDetectSafe(t *testing.T) {
	t.Parallel()

	var queriedPaths []string
	names := queryNames(map[string]string{
		"/dev/ttyS0":   "SF30",
		"/dev/ttyACM0": "GRF500",
		"/dev/ttyACM1": "GRF500",
	})
	d := &detector{
		list: func() ([]*enumerator.PortDetails, error) { return testPorts(), nil },
		query: func(ctx context.Context, path string) (string, error) {
			queriedPaths = append(queriedPaths, path)
			return names(ctx, path)
		},
	}

	opts := detection.DefaultOptions()
	opts.Mode = detection.Safe
	devices, err := d.Detect(context.Background(), &opts)
	require.NoError(t, err)

	require.Len(t, devices, 1)
	assert.Equal(t, "/dev/ttyACM0", devices[0].Path)
	assert.Equal(t, detection.High, devices[0].Confidence)
	assert.Equal(t, "GRF500", devices[0].Name)

	// the blocked Arduino is never opened
	assert.Equal(t, []string{"/dev/ttyS0", "/dev/ttyACM0"}, queriedPaths)
}

func TestDetectIgnoredAndEmpty(t *testing.T) {
	t.Parallel()

	d := &detector{
		list:  func() ([]*enumerator.PortDetails, error) { return testPorts(), nil },
		query: queryNames(nil),
	}

	opts := detection.DefaultOptions()
	opts.IgnorePaths = []string{"/dev/ttyS0", "/dev/ttyACM0", "/dev/ttyACM1"}
	_, err := d.Detect(context.Background(), &opts)
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}

func TestDetectListError(t *testing.T) {
	t.Parallel()

	d := &detector{
		list: func() ([]*enumerator.PortDetails, error) { return nil, errors.New("no sysfs") },
	}
	opts := detection.DefaultOptions()
	_, err := d.Detect(context.Background(), &opts)
	require.Error(t, err)
	assert.Equal(t, "uart", d.Transport())
}
