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

// Package serial provides a serial bridge frontend for the programmer
// engine: it services setup frames and chunk transactions arriving over
// a byte stream, translating the engine's results back to the legacy
// wire encoding.
//
// Bridge protocol, one transaction at a time:
//
//	peer -> bridge: 8-byte setup frame
//	bridge -> peer: 1 length byte, then that many immediate reply bytes;
//	                or the chunked sentinel (0xFF) announcing a chunked
//	                transfer
//	chunked in:     bridge streams the armed byte count, in chunks of up
//	                to 8 bytes
//	chunked out:    peer streams the armed byte count in chunks of up to
//	                8 bytes; bridge acknowledges every chunk with one
//	                status byte (0 continue, 1 complete, 0xFF rejected)
//
// The peer derives chunk boundaries from the length field it sent, the
// same way a USB host derives them from its control transfer, so the
// stream carries no per-chunk framing.
package serial

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.bug.st/serial"

	usbasp "github.com/avrkit/go-usbasp"
	"github.com/avrkit/go-usbasp/internal/wire"
)

// Frontend serves the programmer protocol over a byte stream.
type Frontend struct {
	prog   *usbasp.Programmer
	rw     io.ReadWriter
	closer io.Closer
}

// New creates a frontend serving prog over rw.
func New(prog *usbasp.Programmer, rw io.ReadWriter) *Frontend {
	return &Frontend{prog: prog, rw: rw}
}

// Open creates a frontend bound to a serial port.
func Open(prog *usbasp.Programmer, portName string, baudRate int) (*Frontend, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	f := New(prog, port)
	f.closer = port
	return f, nil
}

// Close closes the underlying port, if this frontend owns one.
func (f *Frontend) Close() error {
	if f.closer == nil {
		return nil
	}
	if err := f.closer.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}

// Serve runs the transaction loop until the stream ends or ctx is
// canceled. Cancellation is checked between transactions; a blocking
// read is only abandoned when the underlying port unblocks it.
func (f *Frontend) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var frame usbasp.Frame
		if _, err := io.ReadFull(f.rw, frame[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read setup frame: %w", err)
		}

		if err := f.handleFrame(frame); err != nil {
			return err
		}
	}
}

// handleFrame dispatches one setup frame and services any chunked
// transfer it arms.
func (f *Frontend) handleFrame(frame usbasp.Frame) error {
	res, err := f.prog.HandleSetup(frame)
	if err != nil {
		// Backend failure. The wire has no error channel for setup
		// frames; reply empty and let the host decide what to reissue.
		return f.writeReply(nil)
	}

	switch res.Kind {
	case usbasp.ReplyNone:
		return f.writeReply(nil)

	case usbasp.ReplyData:
		return f.writeReply(res.Data)

	case usbasp.ReplyChunkedIn:
		if err := f.writeByte(wire.LenChunked); err != nil {
			return err
		}
		return f.serveChunkedIn(int(wire.Length(frame)))

	case usbasp.ReplyChunkedOut:
		if err := f.writeByte(wire.LenChunked); err != nil {
			return err
		}
		return f.serveChunkedOut(int(wire.Length(frame)))

	default:
		return fmt.Errorf("unhandled reply kind %d", res.Kind)
	}
}

// serveChunkedIn streams total bytes to the peer in chunks of up to
// ChunkSize. A transfer whose length is an exact chunk multiple leaves
// the engine armed, exactly as the USB protocol does; the next setup
// frame re-arms it.
func (f *Frontend) serveChunkedIn(total int) error {
	buf := make([]byte, usbasp.ChunkSize)
	for total > 0 {
		n := min(total, usbasp.ChunkSize)
		got, err := f.prog.ReadChunk(buf[:n])
		if err != nil {
			if errors.Is(err, usbasp.ErrInvalidState) {
				return f.writeByte(wire.ChunkInvalid)
			}
			return fmt.Errorf("read chunk: %w", err)
		}
		if _, err := f.rw.Write(buf[:got]); err != nil {
			return fmt.Errorf("failed to write chunk: %w", err)
		}
		total -= got
	}
	return nil
}

// serveChunkedOut collects total bytes from the peer in chunks of up to
// ChunkSize, acknowledging each one.
func (f *Frontend) serveChunkedOut(total int) error {
	buf := make([]byte, usbasp.ChunkSize)
	for total > 0 {
		n := min(total, usbasp.ChunkSize)
		if _, err := io.ReadFull(f.rw, buf[:n]); err != nil {
			return fmt.Errorf("failed to read chunk: %w", err)
		}

		done, err := f.prog.WriteChunk(buf[:n])
		switch {
		case errors.Is(err, usbasp.ErrInvalidState):
			return f.writeByte(wire.ChunkInvalid)
		case err != nil:
			return fmt.Errorf("write chunk: %w", err)
		case done:
			return f.writeByte(wire.WriteComplete)
		default:
			if err := f.writeByte(wire.WriteContinue); err != nil {
				return err
			}
		}
		total -= n
	}
	return nil
}

// writeReply writes an immediate reply: one length byte plus payload.
func (f *Frontend) writeReply(data []byte) error {
	out := make([]byte, 0, len(data)+1)
	out = append(out, byte(len(data)))
	out = append(out, data...)
	if _, err := f.rw.Write(out); err != nil {
		return fmt.Errorf("failed to write reply: %w", err)
	}
	return nil
}

func (f *Frontend) writeByte(b byte) error {
	if _, err := f.rw.Write([]byte{b}); err != nil {
		return fmt.Errorf("failed to write status byte: %w", err)
	}
	return nil
}
