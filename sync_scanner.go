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
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ZaparooProject/go-busside/internal/frame"
	"github.com/ZaparooProject/go-busside/internal/transport"
)

// WaitForSync consumes bytes from r until the sync marker 0xFE 0xCA is seen
// or timeout elapses.
//
// After a 0xFE exactly one more byte is read. If it is not 0xCA both bytes
// are dropped and the hunt resumes with the next byte, so that second byte
// is never itself considered as the start of a marker.
func WaitForSync(r io.Reader, timeout time.Duration) error {
	var b [1]byte

	_, err := transport.TimeoutRetry(timeout, 0, func(int) (struct{}, bool, error) {
		first, ok, err := readByte(r, b[:])
		if err != nil || !ok || first != frame.SyncByte1 {
			return struct{}{}, err == nil, err
		}

		second, ok, err := readByte(r, b[:])
		if err != nil {
			return struct{}{}, false, err
		}
		if ok && second == frame.SyncByte2 {
			return struct{}{}, false, nil
		}
		return struct{}{}, true, nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, transport.ErrDeadlineExceeded):
		return ErrSyncTimeout
	default:
		return fmt.Errorf("%w: %w", ErrTransportRead, err)
	}
}

// readByte reads a single byte; ok is false when the read timed out
func readByte(r io.Reader, buf []byte) (b byte, ok bool, err error) {
	n, err := r.Read(buf[:1])
	if n == 1 {
		return buf[0], true, nil
	}
	if errors.Is(err, io.EOF) {
		return 0, false, nil
	}
	return 0, false, err
}
