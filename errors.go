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
	"strings"

	"github.com/ZaparooProject/go-busside/internal/frame"
)

// Link protocol errors. Every one of these is transient inside the request
// engine: it fails the current attempt and the retry loop carries on.
var (
	ErrTransportOpen     = errors.New("transport open failed")
	ErrSyncTimeout       = errors.New("sync marker not received")
	ErrShortRead         = frame.ErrShortRead
	ErrPayloadTooLarge   = frame.ErrPayloadTooLarge
	ErrMisalignedPayload = frame.ErrMisalignedPayload
	ErrCRCMismatch       = frame.ErrCRCMismatch
	ErrSequenceMismatch  = errors.New("reply sequence mismatch")
)

// Transport I/O errors
var (
	ErrTransportRead  = errors.New("transport read failed")
	ErrTransportWrite = errors.New("transport write failed")
)

// Session errors
var (
	ErrRetriesExhausted  = errors.New("retries exhausted")
	ErrConnectFailed     = errors.New("could not connect to device")
	ErrNotConnected      = errors.New("not connected")
	ErrPassthroughActive = errors.New("transport is in passthrough mode")
	ErrInvalidParameter  = errors.New("invalid parameter")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent errors will not go away by retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient errors may succeed on a later attempt
	ErrorTypeTransient
	// ErrorTypeTimeout errors are transient errors caused by an expired wait
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransportError carries the failed operation and port alongside the cause
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a TransportError; non-permanent errors are retryable
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Err:       err,
		Op:        op,
		Port:      port,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewSyncTimeoutError creates a timeout error for a missed sync marker
func NewSyncTimeoutError(port string) *TransportError {
	return NewTransportError("sync", port, ErrSyncTimeout, ErrorTypeTimeout)
}

var transientErrors = []error{
	ErrTransportOpen,
	ErrShortRead,
	ErrPayloadTooLarge,
	ErrMisalignedPayload,
	ErrCRCMismatch,
	ErrSequenceMismatch,
	ErrTransportRead,
	ErrTransportWrite,
}

// IsRetryable reports whether an error is worth another attempt
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	return GetErrorType(err) != ErrorTypePermanent
}

// GetErrorType classifies an error
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}

	if errors.Is(err, ErrSyncTimeout) {
		return ErrorTypeTimeout
	}
	for _, transient := range transientErrors {
		if errors.Is(err, transient) {
			return ErrorTypeTransient
		}
	}
	return ErrorTypePermanent
}

// AttemptFailure records why a single request attempt failed
type AttemptFailure struct {
	Cause    error
	Attempt  int
	Sequence uint32
	// Sent is false when the attempt never reached the wire (reconnect failed)
	Sent bool
}

// ExhaustedError is returned when a request used up its attempt budget.
// It matches ErrRetriesExhausted and, through Unwrap, every attempt's cause,
// so errors.Is(err, ErrCRCMismatch) tells whether any attempt hit a CRC error.
type ExhaustedError struct {
	Failures []AttemptFailure
	Command  uint32
}

func (e *ExhaustedError) Error() string {
	var b strings.Builder
	_, _ = fmt.Fprintf(&b, "command %d: %v after %d attempts", e.Command, ErrRetriesExhausted, len(e.Failures))
	if last := e.LastCause(); last != nil {
		_, _ = fmt.Fprintf(&b, " (last: %v)", last)
	}
	return b.String()
}

// Is makes errors.Is(err, ErrRetriesExhausted) succeed
func (*ExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

func (e *ExhaustedError) Unwrap() []error {
	causes := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Cause != nil {
			causes = append(causes, f.Cause)
		}
	}
	return causes
}

// LastCause returns the cause of the final attempt, or nil
func (e *ExhaustedError) LastCause() error {
	if len(e.Failures) == 0 {
		return nil
	}
	return e.Failures[len(e.Failures)-1].Cause
}

// Count returns how many attempts failed with the given error
func (e *ExhaustedError) Count(target error) int {
	n := 0
	for _, f := range e.Failures {
		if errors.Is(f.Cause, target) {
			n++
		}
	}
	return n
}
