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

// Package transport provides internal attempt and deadline loops shared by
// the request engine, the connection manager and the sync scanner
package transport

import (
	"errors"
	"time"
)

// Loop outcome errors
var (
	ErrAttemptsExhausted = errors.New("attempts exhausted")
	ErrDeadlineExceeded  = errors.New("deadline exceeded")
)

// RetryOperation represents a function that can be retried
// Receives: the zero-based attempt index
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type RetryOperation[T any] func(attempt int) (T, bool, error)

// RetryConfig configures retry behavior
type RetryConfig struct {
	// OnRetry runs before every attempt after the first and receives that
	// attempt's index. A non-nil error stops the loop.
	OnRetry    func(attempt int) error
	MaxRetries int
}

// WithRetry executes an operation with retry logic. The operation runs at
// most MaxRetries+1 times.
func WithRetry[T any](config RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := executeRetryCallback(config, attempt); err != nil {
				return zero, err
			}
		}

		result, shouldRetry, err := operation(attempt)
		if err != nil {
			return zero, err
		}

		if !shouldRetry {
			return result, nil
		}
	}

	// Callers translate this into their own, more specific error
	return zero, ErrAttemptsExhausted
}

// executeRetryCallback executes the retry callback if provided
func executeRetryCallback(config RetryConfig, attempt int) error {
	if config.OnRetry != nil {
		return config.OnRetry(attempt)
	}
	return nil
}

// TimeoutRetry executes an operation until it succeeds, fails permanently or
// the wall-clock timeout elapses. interval is slept between attempts; zero
// means poll again immediately, which suits operations that already block.
func TimeoutRetry[T any](timeout, interval time.Duration, operation RetryOperation[T]) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for attempt := 0; time.Now().Before(deadline); attempt++ {
		result, shouldRetry, err := operation(attempt)
		if err != nil {
			return zero, err
		}

		if !shouldRetry {
			return result, nil
		}

		if interval > 0 {
			time.Sleep(interval)
		}
	}

	return zero, ErrDeadlineExceeded
}
