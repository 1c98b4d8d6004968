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

import "github.com/avrkit/go-usbasp/internal/wire"

// ChunkSize is the maximum payload of one chunk transaction in either
// direction.
const ChunkSize = wire.ChunkSize

// ReadChunk services one IN chunk transaction of an armed read transfer:
// it fills buf by reading sequentially from the current address using the
// backend primitive matching the armed state, advancing the address by
// one per byte.
//
// External contract, host side: a chunk shorter than ChunkSize is the
// transfer's termination signal. Producing one returns the session to
// idle regardless of the remaining byte count. A read whose total length
// is an exact multiple of ChunkSize therefore stays armed until the host
// requests one further zero-length chunk or issues the next command;
// hosts rely on this and it must not be "fixed" to key off the byte
// count instead.
//
// Returns ErrInvalidState if no read transfer is armed.
func (p *Programmer) ReadChunk(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.state.reading() {
		return 0, ErrInvalidState
	}
	if len(buf) > ChunkSize {
		return 0, ErrChunkTooLarge
	}

	for i := range buf {
		var (
			b   byte
			err error
		)
		if p.state == StateReadingFlash {
			b, err = p.isp.ReadFlash(p.address)
		} else {
			b, err = p.isp.ReadEEPROM(p.address)
		}
		if err != nil {
			return i, newBackendError("read", err)
		}
		buf[i] = b
		p.address++
		if p.bytesRemaining > 0 {
			p.bytesRemaining--
		}
	}

	// last chunk?
	if len(buf) < ChunkSize {
		p.state = StateIdle
	}

	return len(buf), nil
}

// WriteChunk services one OUT chunk transaction of an armed write
// transfer, consuming up to ChunkSize delivered bytes in order. Flash
// bytes go through the page buffer when a page size is armed, with a
// flush each time the page boundary is reached; unpaged flash and EEPROM
// bytes are committed immediately.
//
// It returns done=true with the chunk that consumes the last armed byte;
// the transport surfaces this as the transfer-complete acknowledgement
// distinct from the default per-chunk one. If the transfer completes on
// a last-flagged block with a partial page still pending, that page is
// force-flushed before the engine goes idle. Any bytes delivered after
// the armed count is exhausted are ignored.
//
// Returns ErrInvalidState, consuming nothing, if no write transfer is
// armed.
func (p *Programmer) WriteChunk(data []byte) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.state.writing() {
		return false, ErrInvalidState
	}
	if len(data) > ChunkSize {
		return false, ErrChunkTooLarge
	}

	for _, b := range data {
		if err := p.writeByte(b); err != nil {
			return false, err
		}

		if p.bytesRemaining > 0 {
			p.bytesRemaining--
		}

		if p.bytesRemaining == 0 {
			p.state = StateIdle
			if p.blockFlags.Has(BlockLast) && p.pageCounter != p.pageSize {
				// last block and a page flush still pending
				if err := p.isp.FlushPage(p.address, b); err != nil {
					return false, newBackendError("flush page", err)
				}
			}
			p.address++
			return true, nil
		}

		p.address++
	}

	return false, nil
}

// writeByte routes one byte to the backend according to the armed state
// and paging mode. Caller holds mu.
func (p *Programmer) writeByte(b byte) error {
	if p.state == StateWritingEEPROM {
		if err := p.isp.WriteEEPROM(p.address, b); err != nil {
			return newBackendError("write eeprom", err)
		}
		return nil
	}

	if p.pageSize == 0 {
		// not paged
		if err := p.isp.WriteFlash(p.address, b, true); err != nil {
			return newBackendError("write flash", err)
		}
		return nil
	}

	// paged
	if err := p.isp.WriteFlash(p.address, b, false); err != nil {
		return newBackendError("write flash", err)
	}
	p.pageCounter--
	if p.pageCounter == 0 {
		if err := p.isp.FlushPage(p.address, b); err != nil {
			return newBackendError("flush page", err)
		}
		p.pageCounter = p.pageSize
	}
	return nil
}
