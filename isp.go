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

// ISP defines the interface to the low-level in-system-programming
// backend that actually talks to the target device.
// This can be implemented by SPI hardware, bit-banged GPIO, or an
// in-memory target for testing.
//
// All operations are synchronous and complete before returning. The
// engine never retries a backend call; failures are surfaced to the host
// which drives all recovery by reissuing commands.
type ISP interface {
	// Connect enters the target's reset state and prepares the serial
	// programming interface.
	Connect() error

	// Disconnect releases the target and tristates the programming lines.
	Disconnect() error

	// Transmit shifts one raw byte out to the target and returns the byte
	// clocked back in the same transaction.
	Transmit(b byte) (byte, error)

	// EnterProgrammingMode issues the programming-enable sequence. The
	// returned status byte is forwarded verbatim to the host: 0 means the
	// target acknowledged, non-zero means it did not.
	EnterProgrammingMode() (byte, error)

	// ReadFlash reads one byte of program memory.
	ReadFlash(addr uint32) (byte, error)

	// ReadEEPROM reads one byte of EEPROM.
	ReadEEPROM(addr uint32) (byte, error)

	// WriteFlash writes one byte of program memory. With commit set the
	// byte is programmed immediately (unpaged devices); otherwise it is
	// only loaded into the target's page buffer and takes effect at the
	// next FlushPage.
	WriteFlash(addr uint32, b byte, commit bool) error

	// WriteEEPROM writes one byte of EEPROM.
	WriteEEPROM(addr uint32, b byte) error

	// FlushPage commits the target's page buffer. addr is the address of
	// the last byte loaded and last is its value, used by backends that
	// poll the target for write completion.
	FlushPage(addr uint32, last byte) error

	// SetClockOption selects the serial programming clock rate.
	SetClockOption(opt ClockOption) error
}

// ClockOption selects the ISP clock (SCK) rate. The values are the wire
// encoding used by the set-clock command and must not be renumbered.
type ClockOption byte

// ISP clock options.
const (
	SCKAuto    ClockOption = 0  // let the programmer pick (fastest)
	SCK500Hz   ClockOption = 1  // 500 Hz
	SCK1kHz    ClockOption = 2  // 1 kHz
	SCK2kHz    ClockOption = 3  // 2 kHz
	SCK4kHz    ClockOption = 4  // 4 kHz
	SCK8kHz    ClockOption = 5  // 8 kHz, the forced-slow jumper setting
	SCK16kHz   ClockOption = 6  // 16 kHz
	SCK32kHz   ClockOption = 7  // 32 kHz
	SCK94kHz   ClockOption = 8  // 93.75 kHz
	SCK188kHz  ClockOption = 9  // 187.5 kHz
	SCK375kHz  ClockOption = 10 // 375 kHz, the historical fast default
	SCK750kHz  ClockOption = 11 // 750 kHz
	SCK1500kHz ClockOption = 12 // 1.5 MHz
)

// resolve maps SCKAuto onto a concrete rate.
func (c ClockOption) resolve() ClockOption {
	if c == SCKAuto {
		return SCK375kHz
	}
	return c
}

// Indicator receives connect/disconnect state changes, typically to drive
// a status LED. Implementations must not block.
type Indicator interface {
	On()
	Off()
}

// nopIndicator is the default Indicator.
type nopIndicator struct{}

func (nopIndicator) On()  {}
func (nopIndicator) Off() {}
