// go-busside
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-busside.
//
// go-busside is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-busside is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-busside; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package busside

import (
	"io"
	"time"
)

// Transport is a byte-level link to the controller. Implementations follow
// go.bug.st/serial read semantics: Read blocks for at most the configured
// timeout and reports an expired timeout as (0, nil).
type Transport interface {
	io.ReadWriter

	// Drain blocks until all written bytes have been transmitted
	Drain() error

	// ResetInput discards any bytes received but not yet read
	ResetInput() error

	// SetTimeout sets the per-read timeout
	SetTimeout(timeout time.Duration) error

	// Close closes the transport connection
	Close() error

	// IsConnected returns true if the transport is open
	IsConnected() bool

	// PortName returns the device path the transport was opened on
	PortName() string
}

// TransportFactory opens a transport on a device path with the given read timeout
type TransportFactory func(path string, timeout time.Duration) (Transport, error)

// writeAll writes all bytes in data to the transport.
func writeAll(t Transport, data []byte) error {
	for written := 0; written < len(data); {
		n, err := t.Write(data[written:])
		written += n
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}
