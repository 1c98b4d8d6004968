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

// Package mem provides an in-memory ISP backend simulating an AVR target.
// It backs the engine's tests and the emulator daemon, and records every
// backend call so page-flush timing and write ordering can be asserted.
package mem

import (
	"fmt"

	usbasp "github.com/avrkit/go-usbasp"
)

// FlushRecord captures one page flush: the address of the last byte
// loaded and its value.
type FlushRecord struct {
	Addr uint32
	Last byte
}

// WriteRecord captures one flash write and which path it took.
type WriteRecord struct {
	Addr   uint32
	Value  byte
	Commit bool
}

// Target is a virtual AVR target with flash and EEPROM memories. Paged
// flash writes are staged in a page buffer and only reach the flash
// array on FlushPage, so a missing flush is visible as unprogrammed
// bytes.
//
// Not safe for concurrent use; the engine serializes access.
type Target struct {
	errs map[string]error

	Flash  []byte
	EEPROM []byte

	// staged holds loaded-but-unflushed page buffer bytes by address.
	staged map[uint32]byte

	// Call records for assertions.
	Flushes      []FlushRecord
	FlashWrites  []WriteRecord
	EEPROMWrites []uint32
	Transmitted  []byte

	Clock     usbasp.ClockOption
	Connected bool

	// ProgStatus is returned by EnterProgrammingMode; 0 means the target
	// acknowledged.
	ProgStatus byte
}

// New creates a virtual target with the given memory sizes. Both
// memories are initialized to the erased state (0xFF).
func New(flashSize, eepromSize int) *Target {
	t := &Target{
		Flash:  make([]byte, flashSize),
		EEPROM: make([]byte, eepromSize),
		staged: make(map[uint32]byte),
		errs:   make(map[string]error),
	}
	for i := range t.Flash {
		t.Flash[i] = 0xFF
	}
	for i := range t.EEPROM {
		t.EEPROM[i] = 0xFF
	}
	return t
}

// SetError makes the named operation ("connect", "read", "write",
// "flush", "transmit", ...) fail with err. Pass nil to clear.
func (t *Target) SetError(op string, err error) {
	if err == nil {
		delete(t.errs, op)
		return
	}
	t.errs[op] = err
}

// Connect implements usbasp.ISP.
func (t *Target) Connect() error {
	if err := t.errs["connect"]; err != nil {
		return err
	}
	t.Connected = true
	return nil
}

// Disconnect implements usbasp.ISP.
func (t *Target) Disconnect() error {
	if err := t.errs["disconnect"]; err != nil {
		return err
	}
	t.Connected = false
	return nil
}

// Transmit implements usbasp.ISP. The virtual target echoes the previous
// byte, which is close enough to SPI shifting for protocol tests.
func (t *Target) Transmit(b byte) (byte, error) {
	if err := t.errs["transmit"]; err != nil {
		return 0, err
	}
	var prev byte
	if n := len(t.Transmitted); n > 0 {
		prev = t.Transmitted[n-1]
	}
	t.Transmitted = append(t.Transmitted, b)
	return prev, nil
}

// EnterProgrammingMode implements usbasp.ISP.
func (t *Target) EnterProgrammingMode() (byte, error) {
	if err := t.errs["enableprog"]; err != nil {
		return 0, err
	}
	return t.ProgStatus, nil
}

// ReadFlash implements usbasp.ISP.
func (t *Target) ReadFlash(addr uint32) (byte, error) {
	if err := t.errs["read"]; err != nil {
		return 0, err
	}
	if int(addr) >= len(t.Flash) {
		return 0, fmt.Errorf("flash address %#x out of range", addr)
	}
	return t.Flash[addr], nil
}

// ReadEEPROM implements usbasp.ISP.
func (t *Target) ReadEEPROM(addr uint32) (byte, error) {
	if err := t.errs["read"]; err != nil {
		return 0, err
	}
	if int(addr) >= len(t.EEPROM) {
		return 0, fmt.Errorf("eeprom address %#x out of range", addr)
	}
	return t.EEPROM[addr], nil
}

// WriteFlash implements usbasp.ISP. Committed writes land in the flash
// array immediately; uncommitted ones are staged until FlushPage.
func (t *Target) WriteFlash(addr uint32, b byte, commit bool) error {
	if err := t.errs["write"]; err != nil {
		return err
	}
	if int(addr) >= len(t.Flash) {
		return fmt.Errorf("flash address %#x out of range", addr)
	}
	t.FlashWrites = append(t.FlashWrites, WriteRecord{Addr: addr, Value: b, Commit: commit})
	if commit {
		t.Flash[addr] = b
	} else {
		t.staged[addr] = b
	}
	return nil
}

// WriteEEPROM implements usbasp.ISP.
func (t *Target) WriteEEPROM(addr uint32, b byte) error {
	if err := t.errs["write"]; err != nil {
		return err
	}
	if int(addr) >= len(t.EEPROM) {
		return fmt.Errorf("eeprom address %#x out of range", addr)
	}
	t.EEPROMWrites = append(t.EEPROMWrites, addr)
	t.EEPROM[addr] = b
	return nil
}

// FlushPage implements usbasp.ISP, committing all staged bytes.
func (t *Target) FlushPage(addr uint32, last byte) error {
	if err := t.errs["flush"]; err != nil {
		return err
	}
	t.Flushes = append(t.Flushes, FlushRecord{Addr: addr, Last: last})
	for a, b := range t.staged {
		t.Flash[a] = b
	}
	t.staged = make(map[uint32]byte)
	return nil
}

// SetClockOption implements usbasp.ISP.
func (t *Target) SetClockOption(opt usbasp.ClockOption) error {
	if err := t.errs["clock"]; err != nil {
		return err
	}
	t.Clock = opt
	return nil
}

// StagedBytes returns the number of loaded-but-unflushed page buffer
// bytes.
func (t *Target) StagedBytes() int {
	return len(t.staged)
}
