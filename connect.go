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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-busside/internal/transport"
)

// Connect opens the device and performs the echo handshake. It tries up to
// ConnectAttempts times (at least once); each try opens the port, waits for
// the device to boot, flushes the boot noise and sends an echo with a
// single attempt. With ConnectAttempts set to zero the port is opened once
// and no handshake is sent, in which case the returned reply is nil.
//
// The sequence counter is resumed from the configured SequenceStore.
func Connect(ctx context.Context, device string, opts ...Option) (*Session, *Reply, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, nil, err
	}

	s := newSession(device, cfg)
	if err := s.sequencer.Resume(); err != nil {
		s.log.Warn("could not restore sequence number", "error", err)
	}

	tries := max(1, cfg.ConnectAttempts)
	var lastErr error

	reply, err := transport.WithRetry(transport.RetryConfig{
		MaxRetries: tries - 1,
		OnRetry: func(int) error {
			return ctx.Err()
		},
	}, func(attempt int) (*Reply, bool, error) {
		t, err := s.open(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, false, ctxErr
			}
			lastErr = err
			s.log.Warn("open failed", "attempt", attempt+1, "of", tries, "error", err)
			return nil, true, nil
		}
		s.attach(t)

		if cfg.ConnectAttempts == 0 {
			return nil, false, nil
		}

		reply, err := s.SendAttempts(ctx, CmdEcho, nil, 1)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				_ = s.Close()
				return nil, false, ctxErr
			}
			lastErr = err
			s.log.Warn("handshake failed", "attempt", attempt+1, "of", tries, "error", err)
			_ = s.Close()
			return nil, true, nil
		}
		return reply, false, nil
	})
	if err != nil {
		if errors.Is(err, transport.ErrAttemptsExhausted) {
			return nil, nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrConnectFailed, device, tries, lastErr)
		}
		return nil, nil, err
	}

	s.log.Info("connected", "seq", s.sequencer.Current())
	return s, reply, nil
}
