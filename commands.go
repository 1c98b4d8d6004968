// go-usbasp
// Copyright (c) 2026 The AVRKit Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-usbasp.
//
// go-usbasp is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-usbasp is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-usbasp; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package usbasp

// USBasp function codes
const (
	funcConnect            = 1
	funcDisconnect         = 2
	funcTransmit           = 3
	funcReadFlash          = 4
	funcEnableProg         = 5
	funcWriteFlash         = 6
	funcReadEEPROM         = 7
	funcWriteEEPROM        = 8
	funcSetExtendedAddress = 9
	funcSetClockSpeed      = 10
	funcGetCapabilities    = 127
)

// Capability bits reported by the get-capabilities command
const (
	// CapabilityTPI indicates Tiny Programming Interface support.
	// Not implemented by this engine.
	CapabilityTPI uint32 = 1 << 0
)

// capabilities is the bitmask this engine reports to the host.
const capabilities uint32 = 0
