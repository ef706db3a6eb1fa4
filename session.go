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
	"time"

	"github.com/ZaparooProject/go-busside/internal/frame"
	"github.com/ZaparooProject/go-busside/internal/transport"
	"github.com/ZaparooProject/go-busside/logger"
)

// Session is an open link to a BUSSide controller.
//
// Thread Safety: Session is NOT thread-safe. The protocol allows a single
// outstanding request, so all methods must be called from one goroutine or
// be externally synchronized. Metrics may be read concurrently.
type Session struct {
	transport   Transport
	config      *Config
	sequencer   *Sequencer
	metrics     *ConnectionMetrics
	log         logger.Logger
	passthrough *Passthrough
	device      string
	timeout     time.Duration
	closed      bool
}

func newSession(device string, cfg *Config) *Session {
	l := cfg.Logger
	if l == nil {
		l = logger.GetLogger()
	}
	l = l.With("port", device)

	return &Session{
		config:    cfg,
		sequencer: NewSequencer(cfg.SequenceStore, l),
		metrics:   cfg.Metrics,
		log:       l,
		device:    device,
		timeout:   cfg.Timeout,
	}
}

// Device returns the device path the session was opened on
func (s *Session) Device() string {
	return s.device
}

// Sequencer returns the session's sequence counter
func (s *Session) Sequencer() *Sequencer {
	return s.sequencer
}

// Metrics returns the session's counters
func (s *Session) Metrics() *ConnectionMetrics {
	return s.metrics
}

// Timeout returns the current per-read timeout
func (s *Session) Timeout() time.Duration {
	return s.timeout
}

// IsConnected reports whether the session holds an open transport
func (s *Session) IsConnected() bool {
	return s.transport != nil && s.transport.IsConnected()
}

// SetTimeout changes the per-read timeout on the open link
func (s *Session) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidParameter, timeout)
	}
	s.timeout = timeout
	if s.transport == nil {
		return nil
	}
	if err := s.transport.SetTimeout(timeout); err != nil {
		return NewTransportError("set timeout", s.device, err, ErrorTypePermanent)
	}
	return nil
}

// Send issues a command with the default attempt budget
func (s *Session) Send(command uint32, args ...uint32) (*Reply, error) {
	return s.SendAttempts(context.Background(), command, args, s.config.MaxAttempts)
}

// SendContext issues a command with the default attempt budget. The context
// is checked between attempts.
func (s *Session) SendContext(ctx context.Context, command uint32, args []uint32) (*Reply, error) {
	return s.SendAttempts(ctx, command, args, s.config.MaxAttempts)
}

// SendAttempts issues a command and waits for the matching reply, retrying
// up to maxAttempts times. Every attempt carries a fresh sequence number.
// Attempts past the reconnect threshold reopen the link first.
//
// When all attempts fail the error is an *ExhaustedError that matches
// ErrRetriesExhausted and wraps each attempt's cause.
//
// If an earlier in-loop reconnect left the session without a link, the link
// is reopened once before sending. A session ended with Close stays closed
// and returns ErrNotConnected.
func (s *Session) SendAttempts(ctx context.Context, command uint32, args []uint32, maxAttempts int) (*Reply, error) {
	if maxAttempts < 1 {
		return nil, fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidParameter, maxAttempts)
	}
	if len(args) > frame.MaxPayloadWords {
		return nil, fmt.Errorf("%w: %d argument words exceed the payload bound", ErrInvalidParameter, len(args))
	}
	if s.passthrough != nil {
		return nil, ErrPassthroughActive
	}
	if s.transport == nil {
		if s.closed {
			return nil, ErrNotConnected
		}
		s.metrics.reconnects.Add(1)
		s.log.Info("link lost, reopening")
		if err := s.reopen(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
	}

	s.metrics.requests.Add(1)
	failures := make([]AttemptFailure, 0, maxAttempts)

	reply, err := transport.WithRetry(transport.RetryConfig{
		MaxRetries: maxAttempts - 1,
		OnRetry: func(attempt int) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s.metrics.retransmissions.Add(1)
			s.log.Info("retransmitting", "command", command, "attempt", attempt+1, "of", maxAttempts)
			return nil
		},
	}, func(attempt int) (*Reply, bool, error) {
		if attempt > s.config.ReconnectAfter {
			if err := s.reconnectForRetry(ctx); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, false, ctxErr
				}
				failure := AttemptFailure{Attempt: attempt, Cause: err}
				failures = append(failures, failure)
				s.metrics.observeFailure(failure)
				s.log.Warn("reconnect failed, skipping attempt", "attempt", attempt+1, "error", err)
				return nil, true, nil
			}
		}

		seq := s.sequencer.Current()
		s.sequencer.Advance()

		reply, err := s.exchange(command, seq, args)
		if err != nil {
			failure := AttemptFailure{Attempt: attempt, Sequence: seq, Cause: err, Sent: true}
			failures = append(failures, failure)
			s.metrics.observeFailure(failure)
			s.log.Debug("attempt failed", "command", command, "seq", seq, "attempt", attempt+1, "error", err)
			return nil, true, nil
		}
		return reply, false, nil
	})
	if err == nil {
		return reply, nil
	}

	if errors.Is(err, transport.ErrAttemptsExhausted) {
		s.metrics.exhausted.Add(1)
		exhausted := &ExhaustedError{Command: command, Failures: failures}
		s.log.Error("command failed", "command", command, "error", exhausted)
		return nil, exhausted
	}
	return nil, fmt.Errorf("command %d: %w", command, err)
}

// exchange performs a single request/reply round trip
func (s *Session) exchange(command, seq uint32, args []uint32) (*Reply, error) {
	s.metrics.attempts.Add(1)
	s.metrics.sequence.Store(s.sequencer.Current())

	if err := writeAll(s.transport, frame.Encode(command, seq, args)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransportWrite, err)
	}
	if err := s.transport.Drain(); err != nil {
		return nil, fmt.Errorf("%w: drain: %w", ErrTransportWrite, err)
	}

	if err := WaitForSync(s.transport, s.timeout); err != nil {
		if errors.Is(err, ErrSyncTimeout) {
			return nil, NewSyncTimeoutError(s.device)
		}
		return nil, err
	}

	reply, err := DecodeReply(s.transport, seq)
	if err != nil {
		return nil, err
	}
	s.metrics.replies.Add(1)
	return reply, nil
}

// reconnectForRetry flushes pending input, waits for the device to settle
// and reopens the link.
func (s *Session) reconnectForRetry(ctx context.Context) error {
	s.metrics.reconnects.Add(1)
	s.log.Warn("reconnecting", "delay", s.config.ReconnectDelay)

	if s.transport != nil {
		_ = s.transport.ResetInput()
	}
	if err := sleepContext(ctx, s.config.ReconnectDelay); err != nil {
		return err
	}
	if err := s.reopen(ctx); err != nil {
		return err
	}

	if s.config.ReconnectHandshake {
		if _, err := s.SendAttempts(ctx, CmdEcho, nil, 1); err != nil {
			return fmt.Errorf("reconnect handshake: %w", err)
		}
	}
	return nil
}

// Reconnect closes and reopens the link without a handshake
func (s *Session) Reconnect(ctx context.Context) error {
	if s.passthrough != nil {
		return ErrPassthroughActive
	}
	s.metrics.reconnects.Add(1)
	return s.reopen(ctx)
}

func (s *Session) reopen(ctx context.Context) error {
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			s.log.Debug("close before reopen failed", "error", err)
		}
		s.transport = nil
	}

	t, err := s.open(ctx)
	if err != nil {
		return err
	}
	s.attach(t)
	return nil
}

func (s *Session) attach(t Transport) {
	s.transport = t
	s.closed = false
}

// open opens a new transport, waits for the device to boot and discards
// whatever it printed meanwhile.
func (s *Session) open(ctx context.Context) (Transport, error) {
	t, err := s.config.TransportFactory(s.device, s.timeout)
	if err != nil {
		s.metrics.openErrors.Add(1)
		return nil, NewTransportError("open", s.device,
			fmt.Errorf("%w: %w", ErrTransportOpen, err), ErrorTypeTransient)
	}

	if err := sleepContext(ctx, s.config.BootSettle); err != nil {
		_ = t.Close()
		return nil, err
	}
	if err := t.ResetInput(); err != nil {
		_ = t.Close()
		return nil, NewTransportError("flush", s.device,
			fmt.Errorf("%w: %w", ErrTransportRead, err), ErrorTypeTransient)
	}
	return t, nil
}

// Close releases the link. An active passthrough is closed first. After
// Close only Reconnect brings the session back.
func (s *Session) Close() error {
	s.closed = true
	if s.passthrough != nil {
		if err := s.passthrough.Close(); err != nil {
			s.log.Debug("closing passthrough failed", "error", err)
		}
	}
	if s.transport == nil {
		return nil
	}
	err := s.transport.Close()
	s.transport = nil
	if err != nil {
		return NewTransportError("close", s.device, err, ErrorTypePermanent)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
