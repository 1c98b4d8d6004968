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

// uaspd serves the programmer protocol over a serial port, bridging a
// remote host to a local SPI-attached target or to a virtual in-memory
// target.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	usbasp "github.com/avrkit/go-usbasp"
	"github.com/avrkit/go-usbasp/isp/mem"
	ispspi "github.com/avrkit/go-usbasp/isp/spi"
	"github.com/avrkit/go-usbasp/transport/serial"
)

type config struct {
	port       *string
	baud       *int
	spiPort    *string
	resetPin   *string
	virtual    *bool
	flashSize  *int
	eepromSize *int
	debug      *bool
}

func parseFlags() *config {
	cfg := &config{
		port:       flag.String("port", "", "Serial port to serve on (e.g., /dev/ttyUSB0 or COM3)"),
		baud:       flag.Int("baud", 115200, "Serial baud rate"),
		spiPort:    flag.String("spi", "", "SPI port driving the target (empty selects the first registered port)"),
		resetPin:   flag.String("reset", "GPIO25", "GPIO pin wired to the target's reset line"),
		virtual:    flag.Bool("virtual", false, "Serve a virtual in-memory target instead of SPI hardware"),
		flashSize:  flag.Int("flash-size", 128*1024, "Virtual target flash size in bytes"),
		eepromSize: flag.Int("eeprom-size", 4096, "Virtual target EEPROM size in bytes"),
		debug:      flag.Bool("debug", false, "Enable debug output"),
	}
	flag.Parse()

	if *cfg.debug {
		usbasp.SetDebugEnabled(true)
	}

	return cfg
}

func newBackend(cfg *config) (usbasp.ISP, func() error, error) {
	if *cfg.virtual {
		fmt.Printf("Serving virtual target: %d KiB flash, %d bytes EEPROM\n",
			*cfg.flashSize/1024, *cfg.eepromSize)
		return mem.New(*cfg.flashSize, *cfg.eepromSize), func() error { return nil }, nil
	}

	backend, err := ispspi.New(*cfg.spiPort, *cfg.resetPin)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open SPI backend: %w", err)
	}
	fmt.Printf("Serving SPI target on %q, reset %q\n", *cfg.spiPort, *cfg.resetPin)
	return backend, backend.Close, nil
}

func run() error {
	cfg := parseFlags()
	if *cfg.port == "" {
		return fmt.Errorf("no serial port given, use -port")
	}

	backend, closeBackend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeBackend() }()

	prog, err := usbasp.New(backend)
	if err != nil {
		return fmt.Errorf("failed to create programmer: %w", err)
	}

	frontend, err := serial.Open(prog, *cfg.port, *cfg.baud)
	if err != nil {
		return err
	}
	defer func() { _ = frontend.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Listening on %s at %d baud\n", *cfg.port, *cfg.baud)
	if err := frontend.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
