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

// uaspflash programs and dumps Intel HEX images through the session
// engine, driving it the way a USB host would: one setup frame per
// command, then 8-byte chunk transactions.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"github.com/cheggaaa/pb"
	"github.com/marcinbor85/gohex"

	usbasp "github.com/avrkit/go-usbasp"
	"github.com/avrkit/go-usbasp/isp/mem"
	ispspi "github.com/avrkit/go-usbasp/isp/spi"
)

// maxBlock is the largest write block issued per command; the command's
// length field is 16-bit.
const maxBlock = 0x8000

type config struct {
	hexFile  *string
	readFile *string
	readSize *int
	eeprom   *bool
	pageSize *uint
	spiPort  *string
	resetPin *string
	clock    *uint
	dryRun   *bool
	verify   *bool
	debug    *bool
}

func parseFlags() *config {
	cfg := &config{
		hexFile:  flag.String("hex", "", "Intel HEX image to program"),
		readFile: flag.String("read", "", "Dump target memory to this Intel HEX file"),
		readSize: flag.Int("read-size", 32*1024, "Bytes to dump with -read"),
		eeprom:   flag.Bool("eeprom", false, "Operate on EEPROM instead of flash"),
		pageSize: flag.Uint("pagesize", 128, "Target flash page size in bytes (0 for unpaged targets)"),
		spiPort:  flag.String("spi", "", "SPI port driving the target"),
		resetPin: flag.String("reset", "GPIO25", "GPIO pin wired to the target's reset line"),
		clock:    flag.Uint("clock", 0, "ISP clock option (0 = auto)"),
		dryRun:   flag.Bool("dry-run", false, "Program a virtual in-memory target"),
		verify:   flag.Bool("verify", false, "Read back and compare after programming"),
		debug:    flag.Bool("debug", false, "Enable debug output"),
	}
	flag.Parse()

	if *cfg.debug {
		usbasp.SetDebugEnabled(true)
	}

	return cfg
}

// setup issues one command frame and checks the reply kind.
func setup(prog *usbasp.Programmer, frame usbasp.Frame, want usbasp.ReplyKind) (usbasp.SetupResult, error) {
	res, err := prog.HandleSetup(frame)
	if err != nil {
		return res, err
	}
	if res.Kind != want {
		return res, fmt.Errorf("unexpected reply kind %d (want %d)", res.Kind, want)
	}
	return res, nil
}

// writeBlock streams one armed write command's payload in chunks,
// checking that the engine reports completion on the final chunk.
func writeBlock(prog *usbasp.Programmer, data []byte, bar *pb.ProgressBar) error {
	for off := 0; off < len(data); off += usbasp.ChunkSize {
		end := off + usbasp.ChunkSize
		if end > len(data) {
			end = len(data)
		}
		done, err := prog.WriteChunk(data[off:end])
		if err != nil {
			return err
		}
		if done != (end == len(data)) {
			return fmt.Errorf("transfer completion at byte %d, expected at %d", end, len(data))
		}
		bar.Add(end - off)
	}
	return nil
}

// writeMemory programs data at addr, splitting it into blocks the 16-bit
// length field can express and gluing them with the first/last flags.
func writeMemory(prog *usbasp.Programmer, addr uint32, data []byte, cfg *config) error {
	bar := pb.StartNew(len(data))
	defer bar.Finish()

	for off := 0; off < len(data); off += maxBlock {
		end := off + maxBlock
		if end > len(data) {
			end = len(data)
		}
		blockAddr := addr + uint32(off)
		n := uint16(end - off)

		var frame usbasp.Frame
		if *cfg.eeprom {
			frame = usbasp.WriteEEPROMFrame(uint16(blockAddr), n)
		} else {
			var flags usbasp.BlockFlags
			if off == 0 {
				flags |= usbasp.BlockFirst
			}
			if end == len(data) {
				flags |= usbasp.BlockLast
			}
			// Extended addressing keeps block addresses exact beyond the
			// 16-bit field.
			if _, err := setup(prog, usbasp.SetExtendedAddressFrame(blockAddr), usbasp.ReplyNone); err != nil {
				return err
			}
			frame = usbasp.WriteFlashFrame(uint16(blockAddr), uint16(*cfg.pageSize), flags, n)
		}

		if _, err := setup(prog, frame, usbasp.ReplyChunkedOut); err != nil {
			return err
		}
		if err := writeBlock(prog, data[off:end], bar); err != nil {
			return err
		}
	}
	return nil
}

// readMemory dumps n bytes starting at addr through the chunked read
// path.
func readMemory(prog *usbasp.Programmer, addr uint32, n int, eeprom bool) ([]byte, error) {
	bar := pb.StartNew(n)
	defer bar.Finish()

	out := make([]byte, 0, n)
	for off := 0; off < n; off += maxBlock {
		end := off + maxBlock
		if end > n {
			end = n
		}
		blockAddr := addr + uint32(off)
		blockLen := end - off

		var frame usbasp.Frame
		if eeprom {
			frame = usbasp.ReadEEPROMFrame(uint16(blockAddr), uint16(blockLen))
		} else {
			if _, err := setup(prog, usbasp.SetExtendedAddressFrame(blockAddr), usbasp.ReplyNone); err != nil {
				return nil, err
			}
			frame = usbasp.ReadFlashFrame(uint16(blockAddr), uint16(blockLen))
		}
		if _, err := setup(prog, frame, usbasp.ReplyChunkedIn); err != nil {
			return nil, err
		}

		buf := make([]byte, usbasp.ChunkSize)
		for left := blockLen; left > 0; {
			c := usbasp.ChunkSize
			if left < c {
				c = left
			}
			got, err := prog.ReadChunk(buf[:c])
			if err != nil {
				return nil, err
			}
			out = append(out, buf[:got]...)
			left -= got
			bar.Add(got)
		}
		if blockLen%usbasp.ChunkSize == 0 {
			// terminal zero-length request, as a USB host would end an
			// exact-multiple read
			if _, err := prog.ReadChunk(nil); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func newBackend(cfg *config) (usbasp.ISP, func() error, error) {
	if *cfg.dryRun {
		return mem.New(256*1024, 8192), func() error { return nil }, nil
	}
	backend, err := ispspi.New(*cfg.spiPort, *cfg.resetPin)
	if err != nil {
		return nil, nil, err
	}
	return backend, backend.Close, nil
}

func connect(prog *usbasp.Programmer) error {
	if _, err := setup(prog, usbasp.ConnectFrame(), usbasp.ReplyNone); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	res, err := setup(prog, usbasp.EnableProgrammingFrame(), usbasp.ReplyData)
	if err != nil {
		return fmt.Errorf("enable programming: %w", err)
	}
	if res.Data[0] != 0 {
		return fmt.Errorf("target did not enter programming mode (status %#02x)", res.Data[0])
	}
	return nil
}

func program(prog *usbasp.Programmer, cfg *config) error {
	f, err := os.Open(*cfg.hexFile)
	if err != nil {
		return err
	}
	defer f.Close()

	image := gohex.NewMemory()
	if err := image.ParseIntelHex(f); err != nil {
		return fmt.Errorf("failed to parse %s: %w", *cfg.hexFile, err)
	}

	for _, seg := range image.GetDataSegments() {
		fmt.Printf("Writing %d bytes at %#08x\n", len(seg.Data), seg.Address)
		if err := writeMemory(prog, seg.Address, seg.Data, cfg); err != nil {
			return err
		}
		if *cfg.verify {
			fmt.Println("Verifying...")
			got, err := readMemory(prog, seg.Address, len(seg.Data), *cfg.eeprom)
			if err != nil {
				return err
			}
			if !bytes.Equal(got, seg.Data) {
				return fmt.Errorf("verify failed at %#08x", seg.Address)
			}
		}
	}
	return nil
}

func dump(prog *usbasp.Programmer, cfg *config) error {
	fmt.Printf("Reading %d bytes\n", *cfg.readSize)
	data, err := readMemory(prog, 0, *cfg.readSize, *cfg.eeprom)
	if err != nil {
		return err
	}

	out := gohex.NewMemory()
	if err := out.AddBinary(0, data); err != nil {
		return fmt.Errorf("failed to assemble hex image: %w", err)
	}
	w, err := os.Create(*cfg.readFile)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := out.DumpIntelHex(w, 16); err != nil {
		return fmt.Errorf("failed to write %s: %w", *cfg.readFile, err)
	}
	return nil
}

func run() error {
	cfg := parseFlags()
	if *cfg.hexFile == "" && *cfg.readFile == "" {
		return fmt.Errorf("nothing to do, use -hex or -read")
	}

	backend, closeBackend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeBackend() }()

	prog, err := usbasp.New(backend,
		usbasp.WithClockSpeed(usbasp.ClockOption(*cfg.clock)))
	if err != nil {
		return err
	}

	if err := connect(prog); err != nil {
		return err
	}
	defer func() {
		_, _ = prog.HandleSetup(usbasp.DisconnectFrame())
	}()

	if *cfg.hexFile != "" {
		if err := program(prog, cfg); err != nil {
			return err
		}
	}
	if *cfg.readFile != "" {
		if err := dump(prog, cfg); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
