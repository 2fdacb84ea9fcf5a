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

// Logger receives debug output from a Device. The zero configuration uses
// NopLogger, so nothing is printed unless a logger is supplied with
// WithLogger.
type Logger interface {
	Debugf(format string, args ...any)
}

// LoggerFunc adapts a printf-style function to Logger
type LoggerFunc func(format string, args ...any)

// Debugf calls f
func (f LoggerFunc) Debugf(format string, args ...any) {
	f(format, args...)
}

// NopLogger discards everything
type NopLogger struct{}

// Debugf does nothing
func (NopLogger) Debugf(string, ...any) {}
