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

// State is the programmer's transfer state. Exactly one state is active
// at any time; StateIdle is both the initial state and the terminal state
// of every individual transfer.
type State byte

// Programmer transfer states.
const (
	StateIdle State = iota
	StateWritingFlash
	StateReadingFlash
	StateReadingEEPROM
	StateWritingEEPROM
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWritingFlash:
		return "writing-flash"
	case StateReadingFlash:
		return "reading-flash"
	case StateReadingEEPROM:
		return "reading-eeprom"
	case StateWritingEEPROM:
		return "writing-eeprom"
	default:
		return "unknown"
	}
}

// reading reports whether a read transfer is armed.
func (s State) reading() bool {
	return s == StateReadingFlash || s == StateReadingEEPROM
}

// writing reports whether a write transfer is armed.
func (s State) writing() bool {
	return s == StateWritingFlash || s == StateWritingEEPROM
}

// AddressingMode selects how transfer commands derive their start address.
type AddressingMode byte

const (
	// AddressingLegacy recomputes the address from each command frame's
	// embedded 16-bit field. The default; restored on connect and
	// disconnect.
	AddressingLegacy AddressingMode = iota

	// AddressingExtended ignores the embedded field and keeps the 32-bit
	// address set by a preceding set-extended-address command. Required
	// for targets with more than 64 KiB of flash.
	AddressingExtended
)

// String returns a human-readable addressing mode name.
func (m AddressingMode) String() string {
	if m == AddressingExtended {
		return "extended"
	}
	return "legacy"
}

// BlockFlags mark a chunked write command's position inside a larger
// multi-command transfer. A single logical flash image may be split
// across many write commands, each limited by the 16-bit length field,
// glued together by these flags.
type BlockFlags byte

const (
	// BlockFirst marks the first block; it resets the page buffer
	// position.
	BlockFirst BlockFlags = 1 << 0

	// BlockLast marks the final block; a partial page still pending when
	// the transfer completes is force-flushed.
	BlockLast BlockFlags = 1 << 1
)

// Has reports whether all flags in mask are set.
func (f BlockFlags) Has(mask BlockFlags) bool {
	return f&mask == mask
}
