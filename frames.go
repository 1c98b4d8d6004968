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

import (
	"encoding/binary"

	"github.com/avrkit/go-usbasp/internal/wire"
)

// Host-side setup frame builders. These encode the 8-byte command frames
// accepted by HandleSetup, so hosts, tools and tests share one encoder.

// Frame is one 8-byte setup frame.
type Frame = [wire.FrameLen]byte

// ConnectFrame encodes the connect command.
func ConnectFrame() Frame {
	return Frame{0, funcConnect}
}

// DisconnectFrame encodes the disconnect command.
func DisconnectFrame() Frame {
	return Frame{0, funcDisconnect}
}

// TransmitFrame encodes a raw 4-byte transmit command.
func TransmitFrame(b0, b1, b2, b3 byte) Frame {
	return Frame{0, funcTransmit, b0, b1, b2, b3}
}

// EnableProgrammingFrame encodes the programming-enable command.
func EnableProgrammingFrame() Frame {
	return Frame{0, funcEnableProg}
}

// ReadFlashFrame encodes a flash read of n bytes starting at addr. The
// address field is ignored by the engine while extended addressing is
// armed.
func ReadFlashFrame(addr, n uint16) Frame {
	return transferFrame(funcReadFlash, addr, n)
}

// ReadEEPROMFrame encodes an EEPROM read of n bytes starting at addr.
func ReadEEPROMFrame(addr, n uint16) Frame {
	return transferFrame(funcReadEEPROM, addr, n)
}

// WriteFlashFrame encodes a flash write of n bytes starting at addr with
// the given page size (0 for unpaged targets, up to 4095) and block
// flags.
func WriteFlashFrame(addr, pageSize uint16, flags BlockFlags, n uint16) Frame {
	f := transferFrame(funcWriteFlash, addr, n)
	f[wire.OffPage], f[wire.OffFlags] = wire.PackPage(pageSize, byte(flags))
	return f
}

// WriteEEPROMFrame encodes an EEPROM write of n bytes starting at addr.
func WriteEEPROMFrame(addr, n uint16) Frame {
	return transferFrame(funcWriteEEPROM, addr, n)
}

// SetExtendedAddressFrame encodes a 32-bit extended start address for the
// next transfer command.
func SetExtendedAddressFrame(addr uint32) Frame {
	var f Frame
	f[wire.OffFunc] = funcSetExtendedAddress
	binary.LittleEndian.PutUint32(f[wire.OffAddr:], addr)
	return f
}

// SetClockSpeedFrame encodes a clock speed selection.
func SetClockSpeedFrame(opt ClockOption) Frame {
	return Frame{0, funcSetClockSpeed, byte(opt)}
}

// GetCapabilitiesFrame encodes the capabilities query.
func GetCapabilitiesFrame() Frame {
	return Frame{0, funcGetCapabilities}
}

func transferFrame(fn byte, addr, n uint16) Frame {
	var f Frame
	f[wire.OffFunc] = fn
	binary.LittleEndian.PutUint16(f[wire.OffAddr:], addr)
	binary.LittleEndian.PutUint16(f[wire.OffLength:], n)
	return f
}
