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

package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDetector struct {
	err     error
	name    string
	devices []DeviceInfo
}

func (f *fakeDetector) Detect(context.Context, *Options) ([]DeviceInfo, error) {
	return f.devices, f.err
}

func (f *fakeDetector) Transport() string {
	return f.name
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		vidpid    string
		blocklist []string
		expected  bool
	}{
		{name: "empty blocklist", vidpid: "1A86:7523", blocklist: nil, expected: false},
		{name: "exact match", vidpid: "1A86:7523", blocklist: []string{"1A86:7523"}, expected: true},
		{name: "case insensitive", vidpid: "1a86:7523", blocklist: []string{"1A86:7523"}, expected: true},
		{name: "whitespace trimmed", vidpid: " 1A86:7523 ", blocklist: []string{"1a86:7523 "}, expected: true},
		{name: "no match", vidpid: "10C4:EA60", blocklist: []string{"1A86:7523"}, expected: false},
		{name: "default blocklist", vidpid: "2341:0043", blocklist: DefaultBlocklist(), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsBlocked(tt.vidpid, tt.blocklist))
		})
	}
}

func TestParseVIDPID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lower case", input: "1a86:7523", expected: "1A86:7523"},
		{name: "hex prefix", input: "0x10c4:0xea60", expected: "10C4:EA60"},
		{name: "short ids padded", input: "403:6001", expected: "0403:6001"},
		{name: "surrounding space", input: " 0403:6015 ", expected: "0403:6015"},
		{name: "missing pid", input: "0403:", expected: ""},
		{name: "not hex", input: "ttyS0:1", expected: ""},
		{name: "no separator", input: "04036001", expected: ""},
		{name: "too long", input: "104036:6001", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, ParseVIDPID(tt.input))
		})
	}
}

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", devicePath: "/dev/ttyUSB0", expected: false},
		{name: "empty device path", devicePath: "", ignorePaths: []string{"/dev/ttyUSB0"}, expected: false},
		{name: "exact unix path", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"/dev/ttyUSB0"}, expected: true},
		{name: "windows case", devicePath: "com3", ignorePaths: []string{"COM3"}, expected: true},
		{name: "relative components", devicePath: "/dev/../dev/ttyUSB0", ignorePaths: []string{"/dev/ttyUSB0"}, expected: true},
		{name: "empty entries skipped", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"", "/dev/ttyUSB0"}, expected: true},
		{name: "no match", devicePath: "/dev/ttyUSB1", ignorePaths: []string{"/dev/ttyUSB0", "COM3"}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestConfidence_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "low", Low.String())
	assert.Equal(t, "medium", Medium.String())
	assert.Equal(t, "high", High.String())
}

// The registry is package-global, so the registry tests run sequentially.
func TestDetectAll_Registry(t *testing.T) {
	registryMu.Lock()
	saved := detectors
	detectors = map[string]Detector{}
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		detectors = saved
		registryMu.Unlock()
	})

	_, err := DetectAll(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoDevicesFound)

	broken := errors.New("bus error")
	RegisterDetector(&fakeDetector{name: "broken", err: broken})
	_, err = DetectAll(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoDevicesFound)
	require.ErrorIs(t, err, broken)

	RegisterDetector(&fakeDetector{name: "uart", devices: []DeviceInfo{
		{Path: "/dev/ttyUSB1", Confidence: Low},
		{Path: "/dev/ttyUSB9", Confidence: High},
		{Path: "/dev/ttyUSB0", Confidence: Low},
	}})

	devices, err := DetectAll(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, "/dev/ttyUSB9", devices[0].Path)
	assert.Equal(t, "/dev/ttyUSB0", devices[1].Path)
	assert.Equal(t, "/dev/ttyUSB1", devices[2].Path)

	path, err := FirstPath(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB9", path)
}
