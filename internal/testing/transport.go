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

// Package testing provides a scripted byte-stream transport and frame
// builders for exercising the link protocol without hardware.
package testing

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZaparooProject/go-busside/internal/frame"
)

// DefaultIdle is how long an empty Read waits before reporting a timeout
const DefaultIdle = time.Millisecond

// Responder produces the bytes a device would send back for one write.
// It receives a copy of the written bytes.
type Responder func(written []byte) []byte

// ScriptedTransport is an in-memory transport. Bytes queued with Feed or
// produced by the Responder are returned by Read; an empty input buffer
// reads as a timeout (0, nil), like a serial port.
type ScriptedTransport struct {
	readErr   error
	writeErr  error
	resetErr  error
	responder Responder
	port      string
	rx        []byte
	writes    [][]byte
	timeout   time.Duration
	idle      time.Duration
	resets    int
	drains    int
	closes    int
	mu        sync.Mutex
	closed    bool
}

// NewScriptedTransport creates an open transport named port
func NewScriptedTransport(port string) *ScriptedTransport {
	return &ScriptedTransport{
		port:    port,
		idle:    DefaultIdle,
		timeout: time.Second,
	}
}

// SetResponder installs the function that answers writes
func (m *ScriptedTransport) SetResponder(fn Responder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responder = fn
}

// SetIdle sets how long a Read on an empty buffer blocks
func (m *ScriptedTransport) SetIdle(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idle = d
}

// SetReadError makes every following Read fail with err
func (m *ScriptedTransport) SetReadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readErr = err
}

// SetWriteError makes every following Write fail with err
func (m *ScriptedTransport) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// SetResetError makes every following ResetInput fail with err
func (m *ScriptedTransport) SetResetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetErr = err
}

// Feed queues bytes for reading
func (m *ScriptedTransport) Feed(data ...[]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range data {
		m.rx = append(m.rx, d...)
	}
}

func (m *ScriptedTransport) Read(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if m.readErr != nil {
		err := m.readErr
		m.mu.Unlock()
		return 0, err
	}
	if len(m.rx) > 0 {
		n := copy(p, m.rx)
		m.rx = m.rx[n:]
		m.mu.Unlock()
		return n, nil
	}
	idle := min(m.idle, m.timeout)
	m.mu.Unlock()

	if idle > 0 {
		time.Sleep(idle)
	}
	return 0, nil
}

func (m *ScriptedTransport) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}

	data := bytes.Clone(p)
	m.writes = append(m.writes, data)
	if m.responder != nil {
		m.rx = append(m.rx, m.responder(bytes.Clone(data))...)
	}
	return len(p), nil
}

func (m *ScriptedTransport) Drain() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drains++
	return nil
}

// ResetInput discards queued input
func (m *ScriptedTransport) ResetInput() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
	if m.resetErr != nil {
		return m.resetErr
	}
	m.rx = nil
	return nil
}

func (m *ScriptedTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

func (m *ScriptedTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	m.closed = true
	return nil
}

func (m *ScriptedTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

func (m *ScriptedTransport) PortName() string {
	return m.port
}

// Writes returns a copy of every Write call's bytes
func (m *ScriptedTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// Written returns all written bytes concatenated
func (m *ScriptedTransport) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Join(m.writes, nil)
}

// Resets returns how many times ResetInput was called
func (m *ScriptedTransport) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// Drains returns how many times Drain was called
func (m *ScriptedTransport) Drains() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drains
}

// Closed reports whether Close was called
func (m *ScriptedTransport) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Timeout returns the last timeout set
func (m *ScriptedTransport) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// Pending returns how many input bytes are queued
func (m *ScriptedTransport) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rx)
}

// Request is a decoded request frame
type Request struct {
	Args     []uint32
	Command  uint32
	Sequence uint32
}

// ParseRequest decodes a request written by the host, including its sync
// marker
func ParseRequest(data []byte) (*Request, error) {
	if !bytes.HasPrefix(data, frame.SyncMarker) {
		return nil, errors.New("missing sync marker")
	}
	f, err := frame.Read(bytes.NewReader(data[frame.SyncSize:]))
	if err != nil {
		return nil, fmt.Errorf("parse request: %w", err)
	}
	return &Request{Command: f.Command, Sequence: f.Sequence, Args: f.Words()}, nil
}

// BuildReply encodes a reply frame with its sync marker
func BuildReply(command, sequence uint32, args ...uint32) []byte {
	return frame.Encode(command, sequence, args)
}

// Corrupt flips one bit in a built frame. The last payload byte is used
// when there is a payload, otherwise the low checksum byte.
func Corrupt(data []byte) []byte {
	out := bytes.Clone(data)
	if len(out) > frame.SyncSize+frame.HeaderSize {
		out[len(out)-1] ^= 0x01
	} else if len(out) >= frame.SyncSize+frame.HeaderSize {
		out[frame.SyncSize+12] ^= 0x01
	}
	return out
}

// EchoResponder answers every request with its own command, sequence and
// arguments
func EchoResponder() Responder {
	return ReplyWith(func(req *Request) []byte {
		return BuildReply(req.Command, req.Sequence, req.Args...)
	})
}

// ReplyWith adapts a per-request function into a Responder. Writes that are
// not complete request frames get no answer.
func ReplyWith(fn func(req *Request) []byte) Responder {
	return func(written []byte) []byte {
		req, err := ParseRequest(written)
		if err != nil {
			return nil
		}
		return fn(req)
	}
}

// Silent never answers
func Silent() Responder {
	return func([]byte) []byte { return nil }
}
