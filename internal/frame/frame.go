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
	"errors"
	"fmt"
	"io"
)

// Codec errors
var (
	ErrShortRead         = errors.New("short read")
	ErrPayloadTooLarge   = errors.New("payload length exceeds sanity bound")
	ErrMisalignedPayload = errors.New("payload length is not a multiple of the word size")
	ErrCRCMismatch       = errors.New("frame checksum mismatch")
)

// Header holds the four fixed header words of a frame
type Header struct {
	Command  uint32
	Length   uint32
	Sequence uint32
	Checksum uint32
}

// Frame is a decoded frame with its raw payload bytes
type Frame struct {
	Payload []byte
	Header
}

// Words returns the payload decoded as little-endian 32-bit words
func (f *Frame) Words() []uint32 {
	return DecodeWords(f.Payload)
}

// Encode builds the on-wire bytes for a request: sync marker, header with
// the computed CRC, then the argument words.
func Encode(command, sequence uint32, args []uint32) []byte {
	length := uint32(len(args) * WordSize)
	buf := make([]byte, SyncSize+HeaderSize, SyncSize+HeaderSize+int(length))

	copy(buf, SyncMarker)
	binary.LittleEndian.PutUint32(buf[2:6], command)
	binary.LittleEndian.PutUint32(buf[6:10], length)
	binary.LittleEndian.PutUint32(buf[10:14], sequence)
	buf = AppendWords(buf, args)

	crc := CalculateChecksum(command, length, sequence, buf[SyncSize+HeaderSize:])
	binary.LittleEndian.PutUint32(buf[14:18], crc)
	return buf
}

// AppendWords appends little-endian encoded words to dst
func AppendWords(dst []byte, words []uint32) []byte {
	for _, w := range words {
		dst = binary.LittleEndian.AppendUint32(dst, w)
	}
	return dst
}

// DecodeWords decodes little-endian 32-bit words; trailing bytes are ignored
func DecodeWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/WordSize)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*WordSize:])
	}
	return words
}

// ReadFull fills buf from r. Readers report an expired read timeout as a
// zero-byte read, which is treated as a short read instead of retried.
func ReadFull(r io.Reader, buf []byte) error {
	for read := 0; read < len(buf); {
		n, err := r.Read(buf[read:])
		read += n
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: got %d of %d bytes", ErrShortRead, read, len(buf))
			}
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: got %d of %d bytes", ErrShortRead, read, len(buf))
		}
	}
	return nil
}

func readWord(r io.Reader) (uint32, error) {
	var b [WordSize]byte
	if err := ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// Read reads one frame (without sync marker) from r and validates its
// length and checksum. The declared length is checked before the rest of
// the header is consumed so a desynchronized stream is never trusted for
// a large read.
func Read(r io.Reader) (*Frame, error) {
	var f Frame
	var err error

	if f.Command, err = readWord(r); err != nil {
		return nil, fmt.Errorf("command: %w", err)
	}
	if f.Length, err = readWord(r); err != nil {
		return nil, fmt.Errorf("length: %w", err)
	}
	if f.Length > MaxPayloadLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, f.Length)
	}
	if f.Length%WordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMisalignedPayload, f.Length)
	}
	if f.Sequence, err = readWord(r); err != nil {
		return nil, fmt.Errorf("sequence: %w", err)
	}
	if f.Checksum, err = readWord(r); err != nil {
		return nil, fmt.Errorf("checksum: %w", err)
	}

	f.Payload = make([]byte, f.Length)
	if err := ReadFull(r, f.Payload); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}

	if want := CalculateChecksum(f.Command, f.Length, f.Sequence, f.Payload); want != f.Checksum {
		return nil, fmt.Errorf("%w: got %08X, want %08X", ErrCRCMismatch, f.Checksum, want)
	}
	return &f, nil
}
