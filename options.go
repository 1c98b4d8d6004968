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

// Option is a functional option for configuring a Programmer
type Option func(*Programmer) error

// WithClockSpeed sets the initial ISP clock setting
func WithClockSpeed(opt ClockOption) Option {
	return func(p *Programmer) error {
		p.config.ClockSpeed = opt
		p.clockSpeed = opt
		return nil
	}
}

// WithIndicator sets the connect/disconnect indicator, typically a status
// LED driver
func WithIndicator(ind Indicator) Option {
	return func(p *Programmer) error {
		if ind == nil {
			return ErrInvalidParameter
		}
		p.indicator = ind
		return nil
	}
}

// WithSlowClockProbe installs a hardware override probe consulted at
// connect time. When the probe reports true the connect command forces
// the slow clock setting regardless of the session's stored speed,
// mirroring the slow-SCK jumper on USBasp hardware.
func WithSlowClockProbe(probe func() bool) Option {
	return func(p *Programmer) error {
		if probe == nil {
			return ErrInvalidParameter
		}
		p.slowProbe = probe
		return nil
	}
}
