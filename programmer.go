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

import "sync"

// Config contains configuration options for the Programmer.
type Config struct {
	// ClockSpeed is the initial ISP clock setting. It persists across
	// connect/disconnect cycles until overwritten by a set-clock command.
	ClockSpeed ClockOption
}

// DefaultConfig returns the default programmer configuration.
func DefaultConfig() *Config {
	return &Config{
		ClockSpeed: SCKAuto,
	}
}

// Programmer is the command/session engine of a USBasp-style in-circuit
// programmer. It interprets host-issued setup frames, tracks an in-flight
// transfer's address/length/paging state across chunk transactions, and
// drives the ISP backend.
//
// There is exactly one session per Programmer and the protocol is
// inherently single-session: a new command is never dispatched while a
// chunk transaction for a previous command is being serviced. All methods
// serialize on an internal mutex so the engine may be driven from a
// transport goroutine without external locking.
type Programmer struct {
	isp       ISP
	config    *Config
	indicator Indicator
	slowProbe func() bool

	mu sync.Mutex

	// Session state. Guarded by mu.
	state          State
	addressing     AddressingMode
	address        uint32
	bytesRemaining uint32
	pageSize       uint32
	pageCounter    uint32
	blockFlags     BlockFlags
	clockSpeed     ClockOption
}

// New creates a new Programmer driving the given ISP backend.
func New(isp ISP, opts ...Option) (*Programmer, error) {
	p := &Programmer{
		isp:       isp,
		config:    DefaultConfig(),
		indicator: nopIndicator{},
	}
	p.clockSpeed = p.config.ClockSpeed

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// ISP returns the underlying backend.
func (p *Programmer) ISP() ISP {
	return p.isp
}

// State returns the current transfer state.
func (p *Programmer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Addressing returns the current addressing mode.
func (p *Programmer) Addressing() AddressingMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addressing
}

// ClockSpeed returns the session's stored clock setting.
func (p *Programmer) ClockSpeed() ClockOption {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clockSpeed
}

// resetTransfer abandons any in-flight transfer so stale counters cannot
// leak into the next session. Caller holds mu.
func (p *Programmer) resetTransfer() {
	p.state = StateIdle
	p.bytesRemaining = 0
	p.pageSize = 0
	p.pageCounter = 0
	p.blockFlags = 0
}
