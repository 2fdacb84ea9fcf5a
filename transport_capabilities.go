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

// TransportCapability represents specific capabilities or behaviors of a transport
type TransportCapability string

const (
	// CapabilityStreaming indicates the transport can deliver unsolicited
	// streamed packets (serial links, not register buses)
	CapabilityStreaming TransportCapability = "streaming"

	// CapabilityNonBlocking indicates ReadByte returns within one poll slice
	// when no data is pending
	CapabilityNonBlocking TransportCapability = "non_blocking"
)

// TransportCapabilityChecker defines an interface for querying transport capabilities
type TransportCapabilityChecker interface {
	// HasCapability returns true if the transport has the specified capability
	HasCapability(capability TransportCapability) bool
}

// HasCapability reports whether t declares capability. Transports that do
// not implement TransportCapabilityChecker get defaults from their shape:
// stream transports stream, register transports do not.
func HasCapability(t Transport, capability TransportCapability) bool {
	if checker, ok := t.(TransportCapabilityChecker); ok {
		return checker.HasCapability(capability)
	}
	_, isStream := t.(StreamTransport)
	switch capability {
	case CapabilityStreaming, CapabilityNonBlocking:
		return isStream
	default:
		return false
	}
}
