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
	"path/filepath"
	"slices"
	"strings"
)

// DefaultBlocklist returns USB serial devices that are never a BUSSide
// and must not be opened during detection. Entries are VID:PID in hex.
func DefaultBlocklist() []string {
	return []string{
		"1366:0105", // SEGGER J-Link CDC, resets the attached target when opened
		"2341:0043", // Arduino Uno, auto-resets on DTR
	}
}

// FormatVIDPID renders USB ids as the upper-case VID:PID key used by
// blocklists and KnownBridges. Short ids are zero padded to four digits.
// It returns "" when either id is missing or not hexadecimal.
func FormatVIDPID(vid, pid string) string {
	vid, pid = normalizeID(vid), normalizeID(pid)
	if vid == "" || pid == "" {
		return ""
	}
	return vid + ":" + pid
}

// ParseVIDPID parses a "vid:pid" string such as a blocklist entry.
func ParseVIDPID(s string) string {
	vid, pid, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ""
	}
	return FormatVIDPID(vid, pid)
}

func normalizeID(id string) string {
	id = strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(id), "0x"))
	if id == "" || len(id) > 4 {
		return ""
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return ""
		}
	}
	return strings.Repeat("0", 4-len(id)) + id
}

// IsBlocked reports whether vidpid matches an entry of blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	key := ParseVIDPID(vidpid)
	if key == "" {
		return false
	}
	return slices.ContainsFunc(blocklist, func(entry string) bool {
		return ParseVIDPID(entry) == key
	})
}

// IsPathIgnored reports whether devicePath names one of ignorePaths.
// Paths are cleaned and compared case-insensitively so COM ports match
// regardless of how the user typed them.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	device := filepath.Clean(devicePath)
	return slices.ContainsFunc(ignorePaths, func(p string) bool {
		return p != "" && strings.EqualFold(filepath.Clean(p), device)
	})
}
