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
	"errors"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-busside/internal/frame"
)

// Reply is a validated reply frame
type Reply struct {
	// Args holds the payload words; empty for a zero-length reply
	Args     []uint32
	Command  uint32
	Length   uint32
	Sequence uint32
}

// DecodeReply reads one reply frame (the sync marker must already have been
// consumed) and checks it against the sequence number of the request. The
// checksum is verified before the sequence.
func DecodeReply(r io.Reader, expectedSequence uint32) (*Reply, error) {
	f, err := frame.Read(r)
	if err != nil {
		if isCodecError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrTransportRead, err)
	}

	if f.Sequence != expectedSequence {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSequenceMismatch, f.Sequence, expectedSequence)
	}

	return &Reply{
		Command:  f.Command,
		Length:   f.Length,
		Sequence: f.Sequence,
		Args:     f.Words(),
	}, nil
}

func isCodecError(err error) bool {
	return errors.Is(err, ErrShortRead) ||
		errors.Is(err, ErrPayloadTooLarge) ||
		errors.Is(err, ErrMisalignedPayload) ||
		errors.Is(err, ErrCRCMismatch)
}
