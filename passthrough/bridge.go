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

// Package passthrough bridges a host terminal to a device UART exposed by
// the controller in passthrough mode.
package passthrough

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
)

// DefaultSentinel is printed by the controller when it leaves passthrough mode
const DefaultSentinel = "BUSSIDE_EXIT_UART_PASSTHROUGH"

const bufferSize = 4096

// ExitReason tells why Bridge returned
type ExitReason int

const (
	ExitCanceled ExitReason = iota
	ExitSentinel
	ExitInputClosed
	ExitDeviceClosed
	ExitError
)

func (r ExitReason) String() string {
	switch r {
	case ExitSentinel:
		return "exit sentinel received"
	case ExitInputClosed:
		return "input closed"
	case ExitDeviceClosed:
		return "device closed"
	case ExitError:
		return "error"
	default:
		return "canceled"
	}
}

type outcome struct {
	err    error
	reason ExitReason
}

// Bridge copies in to port and port to out until the device prints
// sentinel, in reaches EOF, ctx is canceled or either side fails.
//
// port reads must time out periodically (as serial ports do) so that
// cancellation is noticed. A read from in that is blocked when Bridge
// returns is abandoned; its data, if any, is dropped.
func Bridge(ctx context.Context, port io.ReadWriter, in io.Reader, out io.Writer, sentinel []byte) (ExitReason, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fromDevice := make(chan outcome, 1)
	toDevice := make(chan outcome, 1)

	go func() { fromDevice <- copyFromDevice(ctx, port, out, sentinel) }()
	go func() { toDevice <- copyToDevice(ctx, in, port) }()

	var res outcome
	select {
	case res = <-fromDevice:
		return res.reason, res.err
	case res = <-toDevice:
	case <-ctx.Done():
		res = outcome{reason: ExitCanceled}
	}

	cancel()
	<-fromDevice
	return res.reason, res.err
}

func copyFromDevice(ctx context.Context, port io.Reader, out io.Writer, sentinel []byte) outcome {
	buf := make([]byte, bufferSize)
	m := newMatcher(sentinel)

	for ctx.Err() == nil {
		n, err := port.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return outcome{reason: ExitError, err: fmt.Errorf("write output: %w", werr)}
			}
			if m.feed(buf[:n]) {
				return outcome{reason: ExitSentinel}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return outcome{reason: ExitDeviceClosed}
			}
			return outcome{reason: ExitError, err: fmt.Errorf("read from device: %w", err)}
		}
	}
	return outcome{reason: ExitCanceled}
}

func copyToDevice(ctx context.Context, in io.Reader, port io.Writer) outcome {
	buf := make([]byte, bufferSize)

	for ctx.Err() == nil {
		n, err := in.Read(buf)
		if n > 0 {
			if _, werr := port.Write(buf[:n]); werr != nil {
				return outcome{reason: ExitError, err: fmt.Errorf("write to device: %w", werr)}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return outcome{reason: ExitInputClosed}
			}
			return outcome{reason: ExitError, err: fmt.Errorf("read input: %w", err)}
		}
	}
	return outcome{reason: ExitCanceled}
}

// matcher finds a pattern in a stream delivered in arbitrary chunks
type matcher struct {
	pattern []byte
	tail    []byte
}

func newMatcher(pattern []byte) *matcher {
	return &matcher{pattern: pattern}
}

func (m *matcher) feed(chunk []byte) bool {
	if len(m.pattern) == 0 {
		return false
	}
	window := append(m.tail, chunk...)
	if bytes.Contains(window, m.pattern) {
		return true
	}
	keep := min(len(window), len(m.pattern)-1)
	m.tail = append(m.tail[:0], window[len(window)-keep:]...)
	return false
}
