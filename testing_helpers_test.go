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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	testutil "github.com/ZaparooProject/go-busside/internal/testing"
	"github.com/ZaparooProject/go-busside/logger"
)

const testTimeout = 30 * time.Millisecond

// testFactory opens scripted transports and remembers each one
type testFactory struct {
	setup   func(call int, m *testutil.ScriptedTransport)
	openErr func(call int) error
	opened  []*testutil.ScriptedTransport
	calls   int
	mu      sync.Mutex
}

func (f *testFactory) open(path string, timeout time.Duration) (Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := f.calls
	f.calls++
	if f.openErr != nil {
		if err := f.openErr(call); err != nil {
			return nil, err
		}
	}

	m := testutil.NewScriptedTransport(path)
	_ = m.SetTimeout(timeout)
	if f.setup != nil {
		f.setup(call, m)
	}
	f.opened = append(f.opened, m)
	return m, nil
}

func (f *testFactory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *testFactory) Opened() []*testutil.ScriptedTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*testutil.ScriptedTransport(nil), f.opened...)
}

// respondWith gives every opened transport the same responder
func respondWith(r testutil.Responder) *testFactory {
	return &testFactory{
		setup: func(_ int, m *testutil.ScriptedTransport) {
			m.SetResponder(r)
		},
	}
}

func discardLogger() logger.Logger {
	return logger.NewSlog(logger.Options{Output: io.Discard, Level: logger.DebugLevel})
}

func testOptions(f *testFactory, extra ...Option) []Option {
	opts := []Option{
		WithTransportFactory(f.open),
		WithSequenceStore(NewMemoryStore()),
		WithLogger(discardLogger()),
		WithTimeout(testTimeout),
		WithBootSettle(0),
		WithReconnectDelay(0),
		WithPassthroughSettle(0),
	}
	return append(opts, extra...)
}

// openSession connects without the echo handshake
func openSession(t *testing.T, f *testFactory, extra ...Option) *Session {
	t.Helper()

	opts := append(testOptions(f, WithConnectAttempts(0)), extra...)
	s, reply, err := Connect(t.Context(), "/dev/ttyUSB0", opts...)
	require.NoError(t, err)
	require.Nil(t, reply)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// requests decodes every request frame written to m
func requests(t *testing.T, m *testutil.ScriptedTransport) []*testutil.Request {
	t.Helper()

	var out []*testutil.Request
	for _, w := range m.Writes() {
		req, err := testutil.ParseRequest(w)
		if err != nil {
			continue
		}
		out = append(out, req)
	}
	return out
}
