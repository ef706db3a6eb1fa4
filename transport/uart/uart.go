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

// Package uart implements the BUSSide host link over a serial port
package uart

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Link defaults
const (
	DefaultBaudRate = 500000
	DefaultTimeout  = 2 * time.Second
)

// ErrNotOpen is returned by operations on a closed transport
var ErrNotOpen = errors.New("serial port not open")

// openPort is replaced in tests
var openPort = serial.Open

type config struct {
	timeout  time.Duration
	baudRate int
}

// Option configures a Transport
type Option func(*config)

// WithBaudRate overrides the link speed
func WithBaudRate(baud int) Option {
	return func(c *config) {
		c.baudRate = baud
	}
}

// WithTimeout sets the per-read timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.timeout = timeout
	}
}

// Transport is a serial link to the controller. Read returns (0, nil) when
// the read timeout expires without data.
type Transport struct {
	port     serial.Port
	portName string
	timeout  time.Duration
	mu       sync.Mutex
}

// New opens portName at 8N1 with DTR and RTS held low from the moment the
// port is opened, so the controller is not reset by the open itself.
func New(portName string, opts ...Option) (*Transport, error) {
	cfg := config{
		baudRate: DefaultBaudRate,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.baudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", cfg.baudRate)
	}
	if cfg.timeout <= 0 {
		return nil, fmt.Errorf("invalid timeout %v", cfg.timeout)
	}

	mode := &serial.Mode{
		BaudRate: cfg.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		InitialStatusBits: &serial.ModemOutputBits{
			DTR: false,
			RTS: false,
		},
	}

	port, err := openPort(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(cfg.timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", portName, err)
	}

	return &Transport{
		port:     port,
		portName: portName,
		timeout:  cfg.timeout,
	}, nil
}

func (t *Transport) current() (serial.Port, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil, ErrNotOpen
	}
	return t.port, nil
}

func (t *Transport) Read(p []byte) (int, error) {
	port, err := t.current()
	if err != nil {
		return 0, err
	}
	return port.Read(p)
}

func (t *Transport) Write(p []byte) (int, error) {
	port, err := t.current()
	if err != nil {
		return 0, err
	}
	return port.Write(p)
}

// Drain waits until all written bytes have left the output buffer
func (t *Transport) Drain() error {
	port, err := t.current()
	if err != nil {
		return err
	}
	return port.Drain()
}

// ResetInput discards received bytes that have not been read
func (t *Transport) ResetInput() error {
	port, err := t.current()
	if err != nil {
		return err
	}
	return port.ResetInputBuffer()
}

// SetTimeout sets the per-read timeout
func (t *Transport) SetTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("invalid timeout %v", timeout)
	}
	port, err := t.current()
	if err != nil {
		return err
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		return err
	}

	t.mu.Lock()
	t.timeout = timeout
	t.mu.Unlock()
	return nil
}

// Timeout returns the current per-read timeout
func (t *Transport) Timeout() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeout
}

// Close closes the port. Closing twice is a no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	port := t.port
	t.port = nil
	t.mu.Unlock()

	if port == nil {
		return nil
	}
	return port.Close()
}

// IsConnected reports whether the port is open
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// PortName returns the device path
func (t *Transport) PortName() string {
	return t.portName
}
