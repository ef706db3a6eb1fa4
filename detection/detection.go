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

// Package detection finds serial ports that may have a BUSSide controller
// attached. Transport-specific detectors register themselves on import.
package detection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNoDevicesFound is returned when no candidate device was detected
var ErrNoDevicesFound = errors.New("no devices found")

// Mode controls how much a detector may touch a port
type Mode int

const (
	// Passive only inspects port metadata
	Passive Mode = iota
	// Safe additionally confirms candidates with Options.Probe
	Safe
)

// Confidence ranks how likely a port has the controller attached
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case High:
		return "high"
	case Medium:
		return "medium"
	default:
		return "low"
	}
}

// DeviceInfo describes a detected device
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Confidence Confidence
}

// ProbeFunc reports whether a controller answers on path
type ProbeFunc func(ctx context.Context, path string) bool

// Options configures detection
type Options struct {
	Probe ProbeFunc
	// Blocklist holds VID:PID pairs that are never reported
	Blocklist []string
	// IgnorePaths holds device paths that are never reported
	IgnorePaths []string
	// Timeout bounds the whole detection run
	Timeout time.Duration
	Mode    Mode
}

// DefaultOptions returns passive detection with the default blocklist
func DefaultOptions() Options {
	return Options{
		Mode:      Passive,
		Timeout:   5 * time.Second,
		Blocklist: DefaultBlocklist(),
	}
}

// Detector finds devices on one kind of transport
type Detector interface {
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
	Transport() string
}

var (
	registryMu sync.RWMutex
	detectors  = map[string]Detector{}
)

// RegisterDetector makes a detector available to DetectAll
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	detectors[d.Transport()] = d
}

func registered() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Detector, 0, len(detectors))
	for _, d := range detectors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Transport() < out[j].Transport() })
	return out
}

// DetectAll runs every registered detector and returns the devices found,
// most likely first.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var (
		found []DeviceInfo
		errs  []error
	)
	for _, d := range registered() {
		devices, err := d.Detect(ctx, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Transport(), err))
			continue
		}
		found = append(found, devices...)
	}

	if len(found) == 0 {
		if len(errs) > 0 {
			return nil, errors.Join(append([]error{ErrNoDevicesFound}, errs...)...)
		}
		return nil, ErrNoDevicesFound
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Confidence != found[j].Confidence {
			return found[i].Confidence > found[j].Confidence
		}
		return found[i].Path < found[j].Path
	})
	return found, nil
}

// FirstPath returns the path of the most likely device
func FirstPath(ctx context.Context, opts *Options) (string, error) {
	devices, err := DetectAll(ctx, opts)
	if err != nil {
		return "", err
	}
	return devices[0].Path, nil
}
