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
	"context"
	"fmt"
	"time"
)

// uartPassthroughTimeout bounds the single passthrough request; the device
// often switches modes before its reply is complete.
const uartPassthroughTimeout = time.Second

// Echo sends the echo command. The controller returns the words unchanged,
// which makes it a liveness check and a resynchronization point.
func (s *Session) Echo(ctx context.Context, words ...uint32) (*Reply, error) {
	return s.SendContext(ctx, CmdEcho, words)
}

// SetLEDBlink sets the status LED blink interval in milliseconds; zero
// stops blinking.
func (s *Session) SetLEDBlink(ctx context.Context, intervalMS uint32) error {
	_, err := s.SendContext(ctx, CmdLEDBlink, []uint32{intervalMS})
	return err
}

// StartUARTPassthrough asks the controller to bridge the host link to a
// target UART on the given pins and returns raw access to the link. Pins
// are zero-based indices, so the pin labelled D1 is 0. A tx pin above
// MaxUARTPin is sent as UARTNoPin.
//
// The request is sent once with a short timeout and its outcome is ignored.
// After the settle delay pending input is flushed.
func (s *Session) StartUARTPassthrough(ctx context.Context, rx, tx, baud uint32) (*Passthrough, error) {
	if baud == 0 {
		return nil, fmt.Errorf("%w: baud rate must be positive", ErrInvalidParameter)
	}
	if tx > MaxUARTPin {
		tx = UARTNoPin
	}
	if s.passthrough != nil {
		return nil, ErrPassthroughActive
	}
	if s.transport == nil {
		return nil, ErrNotConnected
	}

	saved := s.timeout
	if err := s.SetTimeout(uartPassthroughTimeout); err != nil {
		return nil, err
	}
	if _, err := s.SendAttempts(ctx, CmdUARTPassthrough, []uint32{rx, tx, baud}, 1); err != nil {
		s.log.Debug("passthrough request not acknowledged", "error", err)
	}
	if err := s.SetTimeout(saved); err != nil {
		return nil, err
	}

	if err := sleepContext(ctx, s.config.PassthroughSettle); err != nil {
		return nil, err
	}
	if err := s.transport.ResetInput(); err != nil {
		return nil, NewTransportError("flush", s.device, err, ErrorTypeTransient)
	}
	return s.Passthrough()
}
