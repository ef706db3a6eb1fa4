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

package frame

import (
	"encoding/binary"
	"hash/crc32"
)

// CalculateChecksum returns the CRC-32 (IEEE) of a frame. The checksum slot
// is always hashed as 0x00000000, whatever the header carries.
func CalculateChecksum(command, length, sequence uint32, payload []byte) uint32 {
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], command)
	binary.LittleEndian.PutUint32(hdr[4:8], length)
	binary.LittleEndian.PutUint32(hdr[8:12], sequence)
	// hdr[12:16] stays zero

	crc := crc32.ChecksumIEEE(hdr[:])
	return crc32.Update(crc, crc32.IEEETable, payload)
}

// ValidateChecksum reports whether the frame's checksum matches its contents
func ValidateChecksum(f *Frame) bool {
	return CalculateChecksum(f.Command, f.Length, f.Sequence, f.Payload) == f.Checksum
}
