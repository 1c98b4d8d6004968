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
	"errors"
	"fmt"
)

// Engine errors
var (
	// ErrInvalidState is returned for a chunk transaction issued while no
	// matching transfer is armed. Recoverable: the host reissues a correct
	// command. Translated to the wire's invalid-state sentinel at the
	// transport edge.
	ErrInvalidState = errors.New("no matching transfer armed")

	// ErrChunkTooLarge is returned when a chunk exceeds the protocol's
	// fixed chunk capacity.
	ErrChunkTooLarge = errors.New("chunk exceeds maximum capacity")

	// ErrInvalidParameter is returned for invalid configuration values.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// BackendError wraps a failure reported by the ISP backend. The engine
// never retries; the host recovers by reissuing commands.
type BackendError struct {
	Err error
	Op  string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("isp %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying backend error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// newBackendError wraps err with the failing backend operation name.
func newBackendError(op string, err error) *BackendError {
	return &BackendError{Op: op, Err: err}
}
