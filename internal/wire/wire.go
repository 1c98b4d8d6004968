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

// Package wire provides the setup-frame layout and protocol constants of
// the USBasp control protocol.
package wire

import "encoding/binary"

// Setup frame layout. Every command is carried in an 8-byte control frame:
// byte 0 is the request type (owned by the transport), byte 1 selects the
// function, bytes 2-7 are function-specific parameters. Multi-byte values
// are little-endian.
const (
	FrameLen = 8 // fixed setup frame size

	OffFunc   = 1 // function (opcode) selector
	OffAddr   = 2 // 16-bit address, or first of 4 raw transmit bytes
	OffPage   = 4 // low 8 bits of the flash page size
	OffFlags  = 5 // block flags nibble + page size high nibble
	OffLength = 6 // 16-bit transfer length
)

// ChunkSize is the maximum payload of one data transaction in either
// direction. The transport hands transfers to the engine in units of at
// most this many bytes.
const ChunkSize = 8

// Legacy reply sentinels. These are the raw byte values the firmware
// protocol uses on the wire; inside the engine they are represented as a
// discriminated result and only translated back at the transport edge.
const (
	// LenChunked is the setup reply length meaning "an open-ended chunked
	// transfer follows" rather than a fixed immediate reply.
	LenChunked byte = 0xFF

	// ChunkInvalid is returned for a chunk transaction issued while no
	// matching transfer is armed.
	ChunkInvalid byte = 0xFF

	// WriteContinue acknowledges a write chunk with more data expected.
	WriteContinue byte = 0x00

	// WriteComplete acknowledges the write chunk that consumed the last
	// byte of the armed transfer.
	WriteComplete byte = 0x01
)

// Block flags and page size packing. The flags byte carries the block
// flags in its low nibble; its high nibble holds bits 8-11 of the page
// size, allowing page sizes beyond 255 bytes.
const (
	BlockFlagMask     = 0x0F
	PageSizeHighMask  = 0xF0
	PageSizeHighShift = 4
)

// Addr16 decodes the legacy 16-bit address field.
func Addr16(frame [FrameLen]byte) uint16 {
	return binary.LittleEndian.Uint16(frame[OffAddr:])
}

// Addr32 decodes the 32-bit extended address carried by the
// set-extended-address command in bytes 2-5.
func Addr32(frame [FrameLen]byte) uint32 {
	return binary.LittleEndian.Uint32(frame[OffAddr:])
}

// Length decodes the 16-bit transfer length field.
func Length(frame [FrameLen]byte) uint16 {
	return binary.LittleEndian.Uint16(frame[OffLength:])
}

// PageSize decodes the bit-packed flash page size: byte 4 plus the high
// nibble of byte 5 shifted up to form bits 8-11.
func PageSize(frame [FrameLen]byte) uint16 {
	return uint16(frame[OffPage]) |
		(uint16(frame[OffFlags]&PageSizeHighMask) << PageSizeHighShift)
}

// BlockFlags extracts the block flags nibble.
func BlockFlags(frame [FrameLen]byte) byte {
	return frame[OffFlags] & BlockFlagMask
}

// PackPage encodes a page size and block flags into the packed byte pair
// used by the write-flash command. The inverse of PageSize and BlockFlags.
func PackPage(pageSize uint16, flags byte) (pageByte, flagsByte byte) {
	pageByte = byte(pageSize)
	flagsByte = flags&BlockFlagMask |
		byte(pageSize>>PageSizeHighShift)&PageSizeHighMask
	return pageByte, flagsByte
}
