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

// Package spi provides an ISP backend implementation over SPI hardware,
// driving a target's serial programming interface with a GPIO-controlled
// reset line.
package spi

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	usbasp "github.com/avrkit/go-usbasp"
)

// AVR serial programming instruction bytes.
const (
	instrProgEnable  = 0xAC
	progEnableKey    = 0x53
	instrReadLow     = 0x20
	instrReadHigh    = 0x28
	instrLoadLow     = 0x40
	instrLoadHigh    = 0x48
	instrWritePage   = 0x4C
	instrReadEEPROM  = 0xA0
	instrWriteEEPROM = 0xC0
)

var errNotConnected = errors.New("spi backend not connected")

// Target write delays when readback polling is not possible.
const (
	flashWriteDelay  = 5 * time.Millisecond
	eepromWriteDelay = 10 * time.Millisecond
	pollTimeout      = 50 * time.Millisecond
	progEnableTries  = 3
)

// Backend implements usbasp.ISP over a SPI port and a reset GPIO.
//
// Not safe for concurrent use; the engine serializes access.
type Backend struct {
	port  spi.PortCloser
	conn  spi.Conn
	reset gpio.PinIO
	freq  physic.Frequency
}

// New creates a SPI backend on the named SPI port with the named GPIO as
// the target's reset line. Names are resolved through the periph
// registries; empty names select the first available port.
func New(portName, resetPin string) (*Backend, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %q: %w", portName, err)
	}

	reset := gpioreg.ByName(resetPin)
	if reset == nil {
		_ = port.Close()
		return nil, fmt.Errorf("reset pin %q not found", resetPin)
	}

	return &Backend{
		port:  port,
		reset: reset,
		freq:  clockFrequency(usbasp.SCK375kHz),
	}, nil
}

// SetClockOption implements usbasp.ISP. The rate takes effect at the
// next Connect.
func (b *Backend) SetClockOption(opt usbasp.ClockOption) error {
	b.freq = clockFrequency(opt)
	return nil
}

// Connect implements usbasp.ISP: it holds the target in reset and brings
// up the SPI connection at the selected rate.
func (b *Backend) Connect() error {
	if err := b.reset.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to assert reset: %w", err)
	}
	// The target samples SCK while reset settles.
	time.Sleep(20 * time.Millisecond)

	conn, err := b.port.Connect(b.freq, spi.Mode0, 8)
	if err != nil {
		return fmt.Errorf("failed to connect SPI at %s: %w", b.freq, err)
	}
	b.conn = conn
	return nil
}

// Disconnect implements usbasp.ISP: it releases the reset line so the
// target resumes running.
func (b *Backend) Disconnect() error {
	b.conn = nil
	if err := b.reset.Out(gpio.High); err != nil {
		return fmt.Errorf("failed to release reset: %w", err)
	}
	if err := b.reset.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return fmt.Errorf("failed to tristate reset: %w", err)
	}
	return nil
}

// Transmit implements usbasp.ISP.
func (b *Backend) Transmit(tx byte) (byte, error) {
	w := []byte{tx}
	r := make([]byte, 1)
	if err := b.tx(w, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

// EnterProgrammingMode implements usbasp.ISP. The programming-enable
// instruction is acknowledged by the target echoing the key byte; on a
// failed echo the target is re-synchronized with a reset pulse and the
// sequence retried. The returned status byte is 0 on success, 1 when the
// target never acknowledged.
func (b *Backend) EnterProgrammingMode() (byte, error) {
	for attempt := 0; attempt < progEnableTries; attempt++ {
		res, err := b.txn(instrProgEnable, progEnableKey, 0, 0)
		if err != nil {
			return 0, err
		}
		if res[2] == progEnableKey {
			return 0, nil
		}

		if err := b.pulseReset(); err != nil {
			return 0, err
		}
	}
	return 1, nil
}

// ReadFlash implements usbasp.ISP. Program memory is word-addressed on
// the wire; the low bit of the byte address selects the instruction.
func (b *Backend) ReadFlash(addr uint32) (byte, error) {
	instr := flashReadInstr(addr)
	res, err := b.txn(instr[0], instr[1], instr[2], instr[3])
	if err != nil {
		return 0, err
	}
	return res[3], nil
}

// ReadEEPROM implements usbasp.ISP.
func (b *Backend) ReadEEPROM(addr uint32) (byte, error) {
	res, err := b.txn(instrReadEEPROM, byte(addr>>8), byte(addr), 0)
	if err != nil {
		return 0, err
	}
	return res[3], nil
}

// WriteFlash implements usbasp.ISP. Without commit the byte is only
// loaded into the target's page buffer; with commit (unpaged devices)
// the write programs the cell directly and is polled for completion.
func (b *Backend) WriteFlash(addr uint32, v byte, commit bool) error {
	instr := flashLoadInstr(addr, v)
	if _, err := b.txn(instr[0], instr[1], instr[2], instr[3]); err != nil {
		return err
	}
	if !commit {
		return nil
	}
	return b.waitFlash(addr, v)
}

// WriteEEPROM implements usbasp.ISP.
func (b *Backend) WriteEEPROM(addr uint32, v byte) error {
	if _, err := b.txn(instrWriteEEPROM, byte(addr>>8), byte(addr), v); err != nil {
		return err
	}
	return b.waitEEPROM(addr, v)
}

// FlushPage implements usbasp.ISP, committing the target's page buffer
// to the page containing addr.
func (b *Backend) FlushPage(addr uint32, last byte) error {
	instr := pageWriteInstr(addr)
	if _, err := b.txn(instr[0], instr[1], instr[2], instr[3]); err != nil {
		return err
	}
	return b.waitFlash(addr, last)
}

// waitFlash waits for a program memory write to complete, polling the
// written cell when its value is distinguishable from a busy readback.
func (b *Backend) waitFlash(addr uint32, v byte) error {
	if v == 0xFF {
		// erased value reads back immediately, cannot poll
		time.Sleep(flashWriteDelay)
		return nil
	}
	deadline := time.Now().Add(pollTimeout)
	for time.Now().Before(deadline) {
		got, err := b.ReadFlash(addr)
		if err != nil {
			return err
		}
		if got == v {
			return nil
		}
	}
	return fmt.Errorf("flash write at %#x did not complete within %s", addr, pollTimeout)
}

// waitEEPROM waits for an EEPROM write to complete.
func (b *Backend) waitEEPROM(addr uint32, v byte) error {
	if v == 0xFF {
		time.Sleep(eepromWriteDelay)
		return nil
	}
	deadline := time.Now().Add(pollTimeout)
	for time.Now().Before(deadline) {
		got, err := b.ReadEEPROM(addr)
		if err != nil {
			return err
		}
		if got == v {
			return nil
		}
	}
	return fmt.Errorf("eeprom write at %#x did not complete within %s", addr, pollTimeout)
}

// pulseReset gives the target a positive reset pulse to restart the
// programming-enable synchronization.
func (b *Backend) pulseReset() error {
	if err := b.reset.Out(gpio.High); err != nil {
		return fmt.Errorf("failed to pulse reset: %w", err)
	}
	time.Sleep(time.Millisecond)
	if err := b.reset.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to reassert reset: %w", err)
	}
	time.Sleep(20 * time.Millisecond)
	return nil
}

// txn performs one 4-byte programming instruction.
func (b *Backend) txn(b0, b1, b2, b3 byte) ([4]byte, error) {
	var res [4]byte
	w := []byte{b0, b1, b2, b3}
	r := make([]byte, 4)
	if err := b.tx(w, r); err != nil {
		return res, err
	}
	copy(res[:], r)
	return res, nil
}

func (b *Backend) tx(w, r []byte) error {
	if b.conn == nil {
		return errNotConnected
	}
	if err := b.conn.Tx(w, r); err != nil {
		return fmt.Errorf("spi transaction failed: %w", err)
	}
	return nil
}

// Close releases the SPI port.
func (b *Backend) Close() error {
	if err := b.port.Close(); err != nil {
		return fmt.Errorf("failed to close SPI port: %w", err)
	}
	return nil
}

// flashReadInstr builds the read-program-memory instruction for a byte
// address.
func flashReadInstr(addr uint32) [4]byte {
	instr := byte(instrReadLow)
	if addr&1 != 0 {
		instr = instrReadHigh
	}
	word := addr >> 1
	return [4]byte{instr, byte(word >> 8), byte(word), 0}
}

// flashLoadInstr builds the load/write-program-memory instruction for a
// byte address.
func flashLoadInstr(addr uint32, v byte) [4]byte {
	instr := byte(instrLoadLow)
	if addr&1 != 0 {
		instr = instrLoadHigh
	}
	word := addr >> 1
	return [4]byte{instr, byte(word >> 8), byte(word), v}
}

// pageWriteInstr builds the write-program-memory-page instruction for
// the page containing a byte address.
func pageWriteInstr(addr uint32) [4]byte {
	word := addr >> 1
	return [4]byte{instrWritePage, byte(word >> 8), byte(word), 0}
}

// clockFrequency maps a wire clock option onto a SPI frequency.
func clockFrequency(opt usbasp.ClockOption) physic.Frequency {
	switch opt {
	case usbasp.SCK500Hz:
		return 500 * physic.Hertz
	case usbasp.SCK1kHz:
		return physic.KiloHertz
	case usbasp.SCK2kHz:
		return 2 * physic.KiloHertz
	case usbasp.SCK4kHz:
		return 4 * physic.KiloHertz
	case usbasp.SCK8kHz:
		return 8 * physic.KiloHertz
	case usbasp.SCK16kHz:
		return 16 * physic.KiloHertz
	case usbasp.SCK32kHz:
		return 32 * physic.KiloHertz
	case usbasp.SCK94kHz:
		return 93750 * physic.Hertz
	case usbasp.SCK188kHz:
		return 187500 * physic.Hertz
	case usbasp.SCK375kHz:
		return 375 * physic.KiloHertz
	case usbasp.SCK750kHz:
		return 750 * physic.KiloHertz
	case usbasp.SCK1500kHz:
		return 1500 * physic.KiloHertz
	default:
		// SCKAuto and unknown wire values fall back to the fast default.
		return 375 * physic.KiloHertz
	}
}
