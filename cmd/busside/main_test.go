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

package main

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-busside"
	"github.com/ZaparooProject/go-busside/detection"
	mocks "github.com/ZaparooProject/go-busside/internal/testing"
	"github.com/ZaparooProject/go-busside/logger"
)

func quietLogger() logger.Logger {
	return logger.NewSlog(logger.Options{Output: io.Discard, Format: logger.FormatJSON})
}

func testSettings(t *testing.T) settings {
	t.Helper()
	cfg := defaultSettings()
	cfg.Device = "/dev/ttyFAKE0"
	cfg.SequenceFile = filepath.Join(t.TempDir(), "BUSSide.seq")
	cfg.Timeout = 50 * time.Millisecond
	cfg.BootSettle = 0
	cfg.ReconnectDelay = 0
	return cfg
}

// useTransport routes every port open to the given transports in order.
// Tests calling it must not run in parallel.
func useTransport(t *testing.T, transports ...*mocks.ScriptedTransport) *[]string {
	t.Helper()
	var opened []string
	openTransport = func(path string, _ time.Duration) (busside.Transport, error) {
		if len(opened) >= len(transports) {
			return nil, errors.New("no such port")
		}
		tr := transports[len(opened)]
		opened = append(opened, path)
		return tr, nil
	}
	t.Cleanup(func() { openTransport = nil })
	return &opened
}

func TestUARTPins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rx      uint32
		tx      uint32
		wantRx  uint32
		wantTx  uint32
		wantErr bool
	}{
		{name: "D1 and D2", rx: 1, tx: 2, wantRx: 0, wantTx: 1},
		{name: "no tx pin", rx: 3, tx: 0, wantRx: 2, wantTx: busside.UARTNoPin},
		{name: "tx out of range", rx: 3, tx: 252, wantRx: 2, wantTx: busside.UARTNoPin},
		{name: "highest pins", rx: 251, tx: 251, wantRx: 250, wantTx: 250},
		{name: "rx zero", rx: 0, tx: 2, wantErr: true},
		{name: "rx out of range", rx: 252, tx: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rx, tx, err := uartPins(tt.rx, tt.tx)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRx, rx)
			assert.Equal(t, tt.wantTx, tx)
		})
	}
}

func TestDispatch_PassthroughSendsPinIndices(t *testing.T) {
	port := mocks.NewScriptedTransport("/dev/ttyFAKE0")
	port.SetResponder(mocks.EchoResponder())
	useTransport(t, port)

	var out bytes.Buffer
	err := dispatch(t.Context(), testSettings(t), []string{"passthrough", "1", "0", "115200"},
		quietLogger(), strings.NewReader(""), &out)
	require.NoError(t, err)

	var sent *mocks.Request
	for _, w := range port.Writes() {
		req, perr := mocks.ParseRequest(w)
		if perr == nil && req.Command == busside.CmdUARTPassthrough {
			sent = req
		}
	}
	require.NotNil(t, sent, "passthrough request not written")
	assert.Equal(t, []uint32{0, busside.UARTNoPin, 115200}, sent.Args)
	assert.True(t, port.Closed())
}

func TestDispatch_PassthroughRejectsPinZero(t *testing.T) {
	opened := useTransport(t)

	err := dispatch(t.Context(), testSettings(t), []string{"passthrough", "0", "2", "9600"},
		quietLogger(), strings.NewReader(""), io.Discard)
	require.Error(t, err)
	assert.Empty(t, *opened, "invalid pins must not open the port")
}

func TestProbeFunc(t *testing.T) {
	answering := mocks.NewScriptedTransport("/dev/ttyFAKE0")
	answering.SetResponder(mocks.EchoResponder())
	silent := mocks.NewScriptedTransport("/dev/ttyFAKE1")
	silent.SetResponder(mocks.Silent())
	opened := useTransport(t, answering, silent)

	probe := probeFunc(testSettings(t), quietLogger())

	assert.True(t, probe(t.Context(), "/dev/ttyFAKE0"))
	assert.True(t, answering.Closed(), "probe releases the port")

	assert.False(t, probe(t.Context(), "/dev/ttyFAKE1"))
	assert.True(t, silent.Closed())

	assert.False(t, probe(t.Context(), "/dev/ttyFAKE2"), "open failure")
	assert.Equal(t, []string{"/dev/ttyFAKE0", "/dev/ttyFAKE1"}, *opened)
}

func TestDetectOptions(t *testing.T) {
	t.Parallel()

	cfg := testSettings(t)
	passive := detectOptions(cfg, quietLogger())
	assert.Equal(t, detection.Passive, passive.Mode)
	assert.Nil(t, passive.Probe)
	assert.Equal(t, detection.DefaultOptions().Timeout, passive.Timeout)

	cfg.Probe = true
	safe := detectOptions(cfg, quietLogger())
	assert.Equal(t, detection.Safe, safe.Mode)
	assert.NotNil(t, safe.Probe)
	assert.Zero(t, safe.Timeout)
}
