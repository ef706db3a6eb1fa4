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

// Package frame provides frame layout, CRC and codec helpers for BUSSide communication
package frame

// Sync marker bytes - every frame on the wire is prefixed with these
const (
	SyncByte1 = 0xFE
	SyncByte2 = 0xCA
)

// Frame layout
const (
	WordSize    = 4                      // All header fields and payload items are 32-bit words
	HeaderWords = 4                      // command, length, sequence, checksum
	HeaderSize  = HeaderWords * WordSize // Header size in bytes
	SyncSize    = 2                      // Sync marker size in bytes
)

// Frame limits
const (
	// MaxPayloadLength is the sanity bound for a declared reply length.
	// Anything above it is treated as a desynchronized read.
	MaxPayloadLength = 65356
	// MaxPayloadWords is the largest word count a frame may carry.
	MaxPayloadWords = MaxPayloadLength / WordSize
	// SequenceModulus bounds the correlation counter to [0, 2^30).
	SequenceModulus = 1 << 30
)

// SyncMarker is the 2-byte sequence that precedes every frame
var SyncMarker = []byte{SyncByte1, SyncByte2}
