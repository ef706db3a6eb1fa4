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

// Package uart detects USB serial bridges that a BUSSide may sit behind.
// Importing it registers the detector with the detection package.
package uart

import (
	"context"
	"fmt"

	"go.bug.st/serial/enumerator"

	"github.com/ZaparooProject/go-busside/detection"
)

// KnownBridges maps VID:PID of USB serial chips found on ESP8266 boards
// to a readable name.
var KnownBridges = map[string]string{
	"1A86:7523": "CH340",
	"10C4:EA60": "CP210x",
	"0403:6001": "FT232R",
	"0403:6015": "FT231X",
}

// listPorts is replaced in tests
var listPorts = enumerator.GetDetailedPortsList

type detector struct{}

// New creates the UART detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

func (*detector) Transport() string {
	return "uart"
}

// Detect lists USB serial ports. Known bridge chips rank as Medium, other
// USB ports as Low. Ports without USB metadata are skipped. In Safe mode
// only ports confirmed by the probe are returned, ranked High.
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	ports, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, p := range ports {
		if err := ctx.Err(); err != nil {
			return devices, err
		}

		device, ok := classify(p, opts)
		if !ok {
			continue
		}

		if opts.Mode == detection.Safe && opts.Probe != nil {
			if !opts.Probe(ctx, device.Path) {
				continue
			}
			device.Confidence = detection.High
			device.Metadata["probed"] = "true"
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func classify(p *enumerator.PortDetails, opts *detection.Options) (detection.DeviceInfo, bool) {
	if p == nil || !p.IsUSB || p.Name == "" {
		return detection.DeviceInfo{}, false
	}
	if detection.IsPathIgnored(p.Name, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}

	vidpid := detection.FormatVIDPID(p.VID, p.PID)
	if vidpid == "" || detection.IsBlocked(vidpid, opts.Blocklist) {
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  "uart",
		Path:       p.Name,
		Name:       p.Product,
		Confidence: detection.Low,
		Metadata: map[string]string{
			"vidpid": vidpid,
		},
	}
	if p.SerialNumber != "" {
		device.Metadata["serial"] = p.SerialNumber
	}
	if chip, ok := KnownBridges[vidpid]; ok {
		device.Confidence = detection.Medium
		device.Metadata["chip"] = chip
		if device.Name == "" {
			device.Name = chip
		}
	}
	if device.Name == "" {
		device.Name = "USB serial " + vidpid
	}
	return device, true
}
