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

package uart

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"

	"github.com/ZaparooProject/go-busside/detection"
)

func withPorts(t *testing.T, ports []*enumerator.PortDetails, err error) {
	t.Helper()
	prev := listPorts
	listPorts = func() ([]*enumerator.PortDetails, error) { return ports, err }
	t.Cleanup(func() { listPorts = prev })
}

func testPorts() []*enumerator.PortDetails {
	return []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "1a86", PID: "7523", SerialNumber: "A1"},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "2341", PID: "0043", Product: "Arduino Uno"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "1234", PID: "5678", Product: "Some Modem"},
		{Name: "/dev/ttyUSB2", IsUSB: true, VID: "10C4", PID: "EA60"},
	}
}

func TestDetect_Passive(t *testing.T) {
	withPorts(t, testPorts(), nil)

	opts := detection.DefaultOptions()
	devices, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 3)

	byPath := map[string]detection.DeviceInfo{}
	for _, d := range devices {
		byPath[d.Path] = d
	}

	ch340 := byPath["/dev/ttyUSB0"]
	assert.Equal(t, detection.Medium, ch340.Confidence)
	assert.Equal(t, "CH340", ch340.Name)
	assert.Equal(t, "1A86:7523", ch340.Metadata["vidpid"])
	assert.Equal(t, "A1", ch340.Metadata["serial"])

	assert.Equal(t, detection.Low, byPath["/dev/ttyACM0"].Confidence)
	assert.Equal(t, "Some Modem", byPath["/dev/ttyACM0"].Name)
	assert.Equal(t, detection.Medium, byPath["/dev/ttyUSB2"].Confidence)

	assert.NotContains(t, byPath, "/dev/ttyS0", "non-USB ports are skipped")
	assert.NotContains(t, byPath, "/dev/ttyUSB1", "blocklisted devices are skipped")
}

func TestDetect_IgnorePaths(t *testing.T) {
	withPorts(t, testPorts(), nil)

	opts := detection.DefaultOptions()
	opts.IgnorePaths = []string{"/dev/ttyUSB0", "/dev/ttyACM0"}
	devices, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "/dev/ttyUSB2", devices[0].Path)
}

func TestDetect_SafeModeProbes(t *testing.T) {
	withPorts(t, testPorts(), nil)

	var probed []string
	opts := detection.DefaultOptions()
	opts.Mode = detection.Safe
	opts.Probe = func(_ context.Context, path string) bool {
		probed = append(probed, path)
		return path == "/dev/ttyUSB2"
	}

	devices, err := New().Detect(context.Background(), &opts)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "/dev/ttyUSB2", devices[0].Path)
	assert.Equal(t, detection.High, devices[0].Confidence)
	assert.Equal(t, "true", devices[0].Metadata["probed"])
	assert.Equal(t, []string{"/dev/ttyUSB0", "/dev/ttyACM0", "/dev/ttyUSB2"}, probed)
}

func TestDetect_EnumerationError(t *testing.T) {
	boom := errors.New("udev unavailable")
	withPorts(t, nil, boom)

	opts := detection.DefaultOptions()
	_, err := New().Detect(context.Background(), &opts)
	require.ErrorIs(t, err, boom)
}

func TestDetectAll_RanksRegisteredUART(t *testing.T) {
	withPorts(t, testPorts(), nil)

	devices, err := detection.DetectAll(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, devices, 3)
	assert.Equal(t, "/dev/ttyUSB0", devices[0].Path)
	assert.Equal(t, "/dev/ttyUSB2", devices[1].Path)
	assert.Equal(t, "/dev/ttyACM0", devices[2].Path)

	path, err := detection.FirstPath(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", path)
}

func TestDetectAll_NothingFound(t *testing.T) {
	withPorts(t, []*enumerator.PortDetails{{Name: "/dev/ttyS0"}}, nil)

	_, err := detection.DetectAll(context.Background(), nil)
	require.ErrorIs(t, err, detection.ErrNoDevicesFound)
}
