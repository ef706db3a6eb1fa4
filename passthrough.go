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
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-busside/internal/frame"
)

// Passthrough is exclusive raw access to the link. While it is open the
// session refuses to send commands. Read and Write may be used from
// different goroutines.
type Passthrough struct {
	session   *Session
	transport Transport
	closed    atomic.Bool
}

// Passthrough takes raw ownership of the transport
func (s *Session) Passthrough() (*Passthrough, error) {
	if s.passthrough != nil {
		return nil, ErrPassthroughActive
	}
	if s.transport == nil {
		return nil, ErrNotConnected
	}
	p := &Passthrough{session: s, transport: s.transport}
	s.passthrough = p
	s.log.Info("passthrough started")
	return p, nil
}

// PassthroughActive reports whether raw access is currently held
func (s *Session) PassthroughActive() bool {
	return s.passthrough != nil
}

func (p *Passthrough) Read(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	return p.transport.Read(b)
}

func (p *Passthrough) Write(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	return p.transport.Write(b)
}

// SetTimeout changes the read timeout of the underlying link. The session
// timeout is restored on Close.
func (p *Passthrough) SetTimeout(timeout time.Duration) error {
	return p.transport.SetTimeout(timeout)
}

// PortName returns the device path of the underlying link
func (p *Passthrough) PortName() string {
	return p.transport.PortName()
}

// Close sends the sync marker, which the device takes as the exit signal
// from passthrough mode, and hands the link back to the session.
func (p *Passthrough) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	if p.session.passthrough == p {
		p.session.passthrough = nil
	}

	err := writeAll(p.transport, frame.SyncMarker)
	if err == nil {
		err = p.transport.Drain()
	}
	if tErr := p.transport.SetTimeout(p.session.timeout); tErr != nil && err == nil {
		err = tErr
	}
	p.session.log.Info("passthrough closed")
	if err != nil {
		return NewTransportError("passthrough exit", p.transport.PortName(), err, ErrorTypePermanent)
	}
	return nil
}
