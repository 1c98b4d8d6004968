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

/*
Package usbasp implements the command/session engine of a USBasp-style
in-circuit programmer for AVR microcontrollers.

The engine receives 8-byte setup frames and fixed-size data chunks (the
units a USB control transport delivers them in), tracks an in-flight
transfer's address, length and page-buffer state, and drives a pluggable
ISP backend that performs the actual serial programming of the target's
flash and EEPROM memories.

The package is transport-agnostic: it exposes HandleSetup for command
frames and ReadChunk/WriteChunk for data transactions, and any layer able
to deliver those (a USB gadget stack, a serial bridge, an in-process
host) can serve it. A serial bridge frontend is provided under
transport/serial, and two ISP backends ship with the module: a real SPI
backend under isp/spi and an in-memory virtual target under isp/mem.

Basic usage:

	import (
	    "github.com/avrkit/go-usbasp"
	    "github.com/avrkit/go-usbasp/isp/mem"
	)

	target := mem.New(32*1024, 1024)
	prog, err := usbasp.New(target)
	if err != nil {
	    log.Fatal(err)
	}

	// Drive it the way a USB host would.
	res, err := prog.HandleSetup(usbasp.ConnectFrame())
	...
	res, err = prog.HandleSetup(usbasp.WriteFlashFrame(0, 128, usbasp.BlockFirst|usbasp.BlockLast, uint16(len(image))))
	for off := 0; off < len(image); off += usbasp.ChunkSize {
	    end := min(off+usbasp.ChunkSize, len(image))
	    done, err := prog.WriteChunk(image[off:end])
	    ...
	}

Wire behavior:

The engine reproduces the USBasp wire protocol exactly, including its
less obvious corners: read transfers terminate on the first chunk
shorter than ChunkSize rather than on the byte count; flash page flushes
are keyed to a countdown that may span several write commands glued
together by the First/Last block flags; and two addressing conventions
coexist, the legacy 16-bit field embedded in each transfer command and a
32-bit extended address armed by a dedicated command.

Error handling:

Chunk transactions issued while no matching transfer is armed return
ErrInvalidState; the host recovers by reissuing a correct command.
Unknown function codes are silently ignored. Backend failures are wrapped
in BackendError and never retried internally:

	if errors.Is(err, usbasp.ErrInvalidState) {
	    // no transfer armed
	}

Thread safety:

Programmer methods serialize on an internal mutex, so a transport
goroutine may drive the engine directly. The protocol itself remains
single-session: one command, then its chunk transactions, then the next
command.
*/
package usbasp
