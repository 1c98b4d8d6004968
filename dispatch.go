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

// ReplyKind discriminates what a setup frame produces on the wire.
type ReplyKind byte

const (
	// ReplyNone means a zero-length immediate reply.
	ReplyNone ReplyKind = iota

	// ReplyData means a small fixed immediate reply carried in
	// SetupResult.Data.
	ReplyData

	// ReplyChunkedIn means the host must now perform IN chunk
	// transactions until the armed byte count is served.
	ReplyChunkedIn

	// ReplyChunkedOut means the host must now perform OUT chunk
	// transactions delivering the armed byte count.
	ReplyChunkedOut
)

// SetupResult is the outcome of dispatching one setup frame. It replaces
// the wire protocol's sentinel length values with an explicit result; the
// transport edge translates it back to the legacy encoding.
type SetupResult struct {
	Data []byte
	Kind ReplyKind
}

// HandleSetup decodes an 8-byte command frame, mutates session state and
// performs at most one immediate backend action. Unknown function codes
// are silently ignored with a zero-length reply; the command surface is
// permissive by design.
func (p *Programmer) HandleSetup(frame [wire.FrameLen]byte) (SetupResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch frame[wire.OffFunc] {
	case funcConnect:
		return p.connect()

	case funcDisconnect:
		return p.disconnect()

	case funcTransmit:
		return p.transmit(frame)

	case funcEnableProg:
		status, err := p.isp.EnterProgrammingMode()
		if err != nil {
			return SetupResult{}, newBackendError("enter programming mode", err)
		}
		return SetupResult{Kind: ReplyData, Data: []byte{status}}, nil

	case funcReadFlash:
		p.armTransfer(StateReadingFlash, frame)
		return SetupResult{Kind: ReplyChunkedIn}, nil

	case funcReadEEPROM:
		p.armTransfer(StateReadingEEPROM, frame)
		return SetupResult{Kind: ReplyChunkedIn}, nil

	case funcWriteFlash:
		p.armWriteFlash(frame)
		return SetupResult{Kind: ReplyChunkedOut}, nil

	case funcWriteEEPROM:
		p.armTransfer(StateWritingEEPROM, frame)
		// EEPROM is never paged
		p.pageSize = 0
		p.blockFlags = 0
		return SetupResult{Kind: ReplyChunkedOut}, nil

	case funcSetExtendedAddress:
		p.addressing = AddressingExtended
		p.address = wire.Addr32(frame)
		debugf("extended address armed: %#08x", p.address)
		return SetupResult{Kind: ReplyNone}, nil

	case funcSetClockSpeed:
		p.clockSpeed = ClockOption(frame[wire.OffAddr])
		debugf("clock speed stored: %d", p.clockSpeed)
		// The acknowledgement byte is always zero, also for settings the
		// backend does not support. Observed protocol behavior.
		return SetupResult{Kind: ReplyData, Data: []byte{0}}, nil

	case funcGetCapabilities:
		caps := make([]byte, 4)
		binary.LittleEndian.PutUint32(caps, capabilities)
		return SetupResult{Kind: ReplyData, Data: caps}, nil

	default:
		debugf("ignoring unknown function %#02x", frame[wire.OffFunc])
		return SetupResult{Kind: ReplyNone}, nil
	}
}

// connect selects the effective clock speed, resets the session to legacy
// addressing and brings up the programming interface. The stored clock
// speed survives connect/disconnect cycles; only the hardware slow probe
// overrides it.
func (p *Programmer) connect() (SetupResult, error) {
	speed := p.clockSpeed.resolve()
	if p.slowProbe != nil && p.slowProbe() {
		speed = SCK8kHz
	}
	if err := p.isp.SetClockOption(speed); err != nil {
		return SetupResult{}, newBackendError("set clock option", err)
	}

	p.addressing = AddressingLegacy
	p.resetTransfer()

	if err := p.isp.Connect(); err != nil {
		return SetupResult{}, newBackendError("connect", err)
	}
	p.indicator.On()
	debugf("connected, sck option %d", speed)
	return SetupResult{Kind: ReplyNone}, nil
}

// disconnect releases the target and abandons any in-flight transfer.
func (p *Programmer) disconnect() (SetupResult, error) {
	p.addressing = AddressingLegacy
	p.resetTransfer()

	if err := p.isp.Disconnect(); err != nil {
		return SetupResult{}, newBackendError("disconnect", err)
	}
	p.indicator.Off()
	debugln("disconnected")
	return SetupResult{Kind: ReplyNone}, nil
}

// transmit passes four raw bytes through the backend, collecting the four
// bytes clocked back.
func (p *Programmer) transmit(frame [wire.FrameLen]byte) (SetupResult, error) {
	reply := make([]byte, 4)
	for i, b := range frame[wire.OffAddr : wire.OffAddr+4] {
		r, err := p.isp.Transmit(b)
		if err != nil {
			return SetupResult{}, newBackendError("transmit", err)
		}
		reply[i] = r
	}
	return SetupResult{Kind: ReplyData, Data: reply}, nil
}

// armTransfer arms a read or EEPROM write: start address (unless extended
// addressing is in effect), byte count, state.
func (p *Programmer) armTransfer(st State, frame [wire.FrameLen]byte) {
	if p.addressing == AddressingLegacy {
		p.address = uint32(wire.Addr16(frame))
	}
	p.bytesRemaining = uint32(wire.Length(frame))
	p.state = st
	debugf("%s armed: addr %#x, %d bytes", st, p.address, p.bytesRemaining)
}

// armWriteFlash additionally decodes the bit-packed page size and block
// flags. Only a first-flagged block resets the page buffer position;
// continuation blocks inherit the pending page counter so a page may
// span command boundaries.
func (p *Programmer) armWriteFlash(frame [wire.FrameLen]byte) {
	p.armTransfer(StateWritingFlash, frame)
	p.pageSize = uint32(wire.PageSize(frame))
	p.blockFlags = BlockFlags(wire.BlockFlags(frame))
	if p.blockFlags.Has(BlockFirst) {
		p.pageCounter = p.pageSize
	}
	debugf("write flash: page size %d, flags %#x, counter %d",
		p.pageSize, p.blockFlags, p.pageCounter)
}
