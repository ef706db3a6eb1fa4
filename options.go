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
	"fmt"
	"time"

	"github.com/ZaparooProject/go-busside/logger"
	"github.com/ZaparooProject/go-busside/transport/uart"
)

// Config contains the connection and request settings for a Session
type Config struct {
	// TransportFactory opens the link; defaults to the UART transport
	TransportFactory TransportFactory
	// SequenceStore persists the sequence counter; defaults to a FileStore
	// at DefaultSequencePath
	SequenceStore SequenceStore
	Logger        logger.Logger
	Metrics       *ConnectionMetrics
	// Timeout is the per-read timeout used for sync and reply reads
	Timeout time.Duration
	// BootSettle is how long to wait after opening the port while the
	// device resets
	BootSettle time.Duration
	// ReconnectDelay is slept before an in-loop reconnect
	ReconnectDelay time.Duration
	// PassthroughSettle is slept after requesting UART passthrough
	PassthroughSettle time.Duration
	// MaxAttempts is the default attempt budget for Send
	MaxAttempts int
	// ConnectAttempts is how many times Connect tries to open and echo.
	// Zero opens the port once without the echo handshake.
	ConnectAttempts int
	// ReconnectAfter is the last attempt index that reuses the open link.
	// Every later attempt reconnects first.
	ReconnectAfter int
	// ReconnectHandshake sends an echo after each in-loop reconnect
	ReconnectHandshake bool
}

// DefaultConfig returns the default session configuration
func DefaultConfig() *Config {
	return &Config{
		TransportFactory:  uartFactory,
		Timeout:           2 * time.Second,
		BootSettle:        2 * time.Second,
		ReconnectDelay:    5 * time.Second,
		PassthroughSettle: 500 * time.Millisecond,
		MaxAttempts:       10,
		ConnectAttempts:   10,
		ReconnectAfter:    3,
	}
}

func uartFactory(path string, timeout time.Duration) (Transport, error) {
	t, err := uart.New(path, uart.WithTimeout(timeout))
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Option is a functional option for configuring a Session
type Option func(*Config) error

func newConfig(opts []Option) (*Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.SequenceStore == nil {
		cfg.SequenceStore = NewFileStore("")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewConnectionMetrics()
	}
	return cfg, nil
}

// WithTransportFactory sets how transports are opened
func WithTransportFactory(factory TransportFactory) Option {
	return func(c *Config) error {
		if factory == nil {
			return fmt.Errorf("%w: transport factory is nil", ErrInvalidParameter)
		}
		c.TransportFactory = factory
		return nil
	}
}

// WithSequenceStore sets where the sequence counter is persisted
func WithSequenceStore(store SequenceStore) Option {
	return func(c *Config) error {
		if store == nil {
			return fmt.Errorf("%w: sequence store is nil", ErrInvalidParameter)
		}
		c.SequenceStore = store
		return nil
	}
}

// WithLogger sets the session logger
func WithLogger(l logger.Logger) Option {
	return func(c *Config) error {
		c.Logger = l
		return nil
	}
}

// WithMetrics shares a metrics instance with the session
func WithMetrics(m *ConnectionMetrics) Option {
	return func(c *Config) error {
		c.Metrics = m
		return nil
	}
}

// WithTimeout sets the per-read timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidParameter, timeout)
		}
		c.Timeout = timeout
		return nil
	}
}

// WithBootSettle sets the delay after opening the port
func WithBootSettle(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return fmt.Errorf("%w: boot settle must not be negative", ErrInvalidParameter)
		}
		c.BootSettle = d
		return nil
	}
}

// WithReconnectDelay sets the delay before an in-loop reconnect
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return fmt.Errorf("%w: reconnect delay must not be negative", ErrInvalidParameter)
		}
		c.ReconnectDelay = d
		return nil
	}
}

// WithPassthroughSettle sets the delay after entering UART passthrough
func WithPassthroughSettle(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return fmt.Errorf("%w: passthrough settle must not be negative", ErrInvalidParameter)
		}
		c.PassthroughSettle = d
		return nil
	}
}

// WithMaxAttempts sets the default attempt budget for Send
func WithMaxAttempts(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("%w: max attempts must be at least 1, got %d", ErrInvalidParameter, n)
		}
		c.MaxAttempts = n
		return nil
	}
}

// WithConnectAttempts sets how many times Connect tries the handshake
func WithConnectAttempts(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return fmt.Errorf("%w: connect attempts must not be negative, got %d", ErrInvalidParameter, n)
		}
		c.ConnectAttempts = n
		return nil
	}
}

// WithReconnectAfter sets the attempt index after which Send reconnects
func WithReconnectAfter(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return fmt.Errorf("%w: reconnect threshold must not be negative, got %d", ErrInvalidParameter, n)
		}
		c.ReconnectAfter = n
		return nil
	}
}

// WithReconnectHandshake enables the echo handshake after in-loop reconnects.
// Each handshake consumes a sequence number.
func WithReconnectHandshake(enabled bool) Option {
	return func(c *Config) error {
		c.ReconnectHandshake = enabled
		return nil
	}
}
