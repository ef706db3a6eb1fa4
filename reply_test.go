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
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-busside/internal/frame"
	testutil "github.com/ZaparooProject/go-busside/internal/testing"
)

// body strips the sync marker from a built frame
func body(b []byte) []byte {
	return b[frame.SyncSize:]
}

func TestDecodeReply(t *testing.T) {
	t.Parallel()

	raw := body(testutil.BuildReply(17, 99, 1, 2, 3))
	reply, err := DecodeReply(bytes.NewReader(raw), 99)
	require.NoError(t, err)
	assert.Equal(t, uint32(17), reply.Command)
	assert.Equal(t, uint32(12), reply.Length)
	assert.Equal(t, uint32(99), reply.Sequence)
	assert.Equal(t, []uint32{1, 2, 3}, reply.Args)
}

func TestDecodeReply_Errors(t *testing.T) {
	t.Parallel()

	oversized := make([]byte, 8)
	binary.LittleEndian.PutUint32(oversized[4:], frame.MaxPayloadLength+4)

	tests := []struct {
		want  error
		name  string
		input []byte
		seq   uint32
	}{
		{name: "sequence mismatch", input: body(testutil.BuildReply(0, 5)), seq: 6, want: ErrSequenceMismatch},
		{name: "checksum before sequence", input: body(testutil.Corrupt(testutil.BuildReply(0, 5, 1))), seq: 6, want: ErrCRCMismatch},
		{name: "truncated header", input: body(testutil.BuildReply(0, 5))[:10], seq: 5, want: ErrShortRead},
		{name: "truncated payload", input: body(testutil.BuildReply(0, 5, 1, 2))[:20], seq: 5, want: ErrShortRead},
		{name: "length over bound", input: oversized, seq: 5, want: ErrPayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := DecodeReply(bytes.NewReader(tt.input), tt.seq)
			require.ErrorIs(t, err, tt.want)
			assert.True(t, IsRetryable(err))
		})
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestDecodeReply_TransportError(t *testing.T) {
	t.Parallel()

	boom := errors.New("i/o error")
	_, err := DecodeReply(errReader{err: boom}, 5)
	require.ErrorIs(t, err, ErrTransportRead)
	require.ErrorIs(t, err, boom)
}
