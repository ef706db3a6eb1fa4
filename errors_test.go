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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "open failure", err: ErrTransportOpen, want: true},
		{name: "sync timeout", err: ErrSyncTimeout, want: true},
		{name: "short read", err: ErrShortRead, want: true},
		{name: "payload too large", err: ErrPayloadTooLarge, want: true},
		{name: "misaligned payload", err: ErrMisalignedPayload, want: true},
		{name: "crc mismatch", err: ErrCRCMismatch, want: true},
		{name: "sequence mismatch", err: ErrSequenceMismatch, want: true},
		{name: "transport read", err: ErrTransportRead, want: true},
		{name: "transport write", err: ErrTransportWrite, want: true},
		{name: "wrapped crc mismatch", err: fmt.Errorf("attempt 3: %w", ErrCRCMismatch), want: true},
		{name: "retries exhausted", err: ErrRetriesExhausted, want: false},
		{name: "invalid parameter", err: ErrInvalidParameter, want: false},
		{name: "passthrough active", err: ErrPassthroughActive, want: false},
		{name: "text only", err: errors.New("outer: " + ErrSyncTimeout.Error()), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestIsRetryable_TransportError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		transport *TransportError
		name      string
		want      bool
	}{
		{
			name: "retryable flag set",
			transport: &TransportError{
				Err: errors.New("test error"), Op: "read", Port: "/dev/ttyUSB0",
				Type: ErrorTypeTransient, Retryable: true,
			},
			want: true,
		},
		{
			name: "retryable flag cleared",
			transport: &TransportError{
				Err: errors.New("test error"), Op: "write", Port: "/dev/ttyUSB0",
				Type: ErrorTypeTransient, Retryable: false,
			},
			want: false,
		},
		{
			name: "flag wins over a retryable cause",
			transport: &TransportError{
				Err: ErrSyncTimeout, Op: "sync", Port: "/dev/ttyUSB0",
				Type: ErrorTypeTimeout, Retryable: false,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.transport))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want ErrorType
	}{
		{name: "nil", err: nil, want: ErrorTypePermanent},
		{name: "sync timeout", err: ErrSyncTimeout, want: ErrorTypeTimeout},
		{name: "crc mismatch", err: ErrCRCMismatch, want: ErrorTypeTransient},
		{name: "short read", err: fmt.Errorf("payload: %w", ErrShortRead), want: ErrorTypeTransient},
		{name: "open failure", err: ErrTransportOpen, want: ErrorTypeTransient},
		{name: "not connected", err: ErrNotConnected, want: ErrorTypePermanent},
		{name: "unknown", err: errors.New("boom"), want: ErrorTypePermanent},
		{
			name: "transport error type wins",
			err:  NewTransportError("open", "COM3", ErrInvalidParameter, ErrorTypeTransient),
			want: ErrorTypeTransient,
		},
		{name: "sync timeout error", err: NewSyncTimeoutError("/dev/ttyUSB0"), want: ErrorTypeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestErrorType_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "transient", ErrorTypeTransient.String())
	assert.Equal(t, "timeout", ErrorTypeTimeout.String())
	assert.Equal(t, "permanent", ErrorTypePermanent.String())
}

func TestNewTransportError(t *testing.T) {
	t.Parallel()

	cause := errors.New("device busy")

	transient := NewTransportError("open", "/dev/ttyUSB0", cause, ErrorTypeTransient)
	assert.Equal(t, "open", transient.Op)
	assert.Equal(t, "/dev/ttyUSB0", transient.Port)
	assert.Equal(t, ErrorTypeTransient, transient.Type)
	assert.True(t, transient.Retryable)
	require.ErrorIs(t, transient, cause)

	permanent := NewTransportError("close", "/dev/ttyUSB0", cause, ErrorTypePermanent)
	assert.False(t, permanent.Retryable)
}

func TestTransportError_Error(t *testing.T) {
	t.Parallel()

	withPort := NewTransportError("open", "/dev/ttyUSB0", ErrTransportOpen, ErrorTypeTransient)
	assert.Equal(t, "open on /dev/ttyUSB0: transport open failed", withPort.Error())

	withoutPort := NewTransportError("flush", "", ErrTransportRead, ErrorTypeTransient)
	assert.Equal(t, "flush: transport read failed", withoutPort.Error())
}

func TestNewSyncTimeoutError(t *testing.T) {
	t.Parallel()

	err := NewSyncTimeoutError("COM4")
	require.ErrorIs(t, err, ErrSyncTimeout)
	assert.Equal(t, "sync", err.Op)
	assert.True(t, err.Retryable)
}

func TestExhaustedError(t *testing.T) {
	t.Parallel()

	err := &ExhaustedError{
		Command: 13,
		Failures: []AttemptFailure{
			{Attempt: 0, Sequence: 5, Sent: true, Cause: fmt.Errorf("%w: got 1, want 2", ErrCRCMismatch)},
			{Attempt: 1, Sequence: 6, Sent: true, Cause: ErrSyncTimeout},
			{Attempt: 2, Sequence: 7, Sent: true, Cause: ErrCRCMismatch},
		},
	}

	require.ErrorIs(t, err, ErrRetriesExhausted)
	require.ErrorIs(t, err, ErrCRCMismatch)
	require.ErrorIs(t, err, ErrSyncTimeout)
	require.NotErrorIs(t, err, ErrSequenceMismatch)

	assert.Equal(t, 2, err.Count(ErrCRCMismatch))
	assert.Equal(t, 1, err.Count(ErrSyncTimeout))
	assert.Equal(t, ErrCRCMismatch, err.LastCause())
	assert.Equal(t, "command 13: retries exhausted after 3 attempts (last: frame checksum mismatch)", err.Error())

	var wrapped error = fmt.Errorf("echo: %w", err)
	var target *ExhaustedError
	require.ErrorAs(t, wrapped, &target)
	assert.Len(t, target.Failures, 3)
}

func TestExhaustedError_Empty(t *testing.T) {
	t.Parallel()

	err := &ExhaustedError{Command: 0}
	require.NoError(t, err.LastCause())
	assert.Empty(t, err.Unwrap())
	assert.Equal(t, "command 0: retries exhausted after 0 attempts", err.Error())
}
