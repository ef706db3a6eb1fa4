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
	"sync/atomic"
)

// ConnectionMetrics counts link activity. It is safe to read from other
// goroutines while a session is running, e.g. from a metrics exporter.
type ConnectionMetrics struct {
	requests          atomic.Uint64
	replies           atomic.Uint64
	attempts          atomic.Uint64
	retransmissions   atomic.Uint64
	exhausted         atomic.Uint64
	reconnects        atomic.Uint64
	reconnectFailures atomic.Uint64
	openErrors        atomic.Uint64
	syncTimeouts      atomic.Uint64
	shortReads        atomic.Uint64
	oversized         atomic.Uint64
	crcErrors         atomic.Uint64
	sequenceErrors    atomic.Uint64
	ioErrors          atomic.Uint64
	sequence          atomic.Uint32
}

// MetricsSnapshot is a point-in-time copy of ConnectionMetrics
type MetricsSnapshot struct {
	Requests          uint64
	Replies           uint64
	Attempts          uint64
	Retransmissions   uint64
	Exhausted         uint64
	Reconnects        uint64
	ReconnectFailures uint64
	OpenErrors        uint64
	SyncTimeouts      uint64
	ShortReads        uint64
	Oversized         uint64
	CRCErrors         uint64
	SequenceErrors    uint64
	IOErrors          uint64
	Sequence          uint32
}

func NewConnectionMetrics() *ConnectionMetrics {
	return &ConnectionMetrics{}
}

// Snapshot returns the current counter values
func (m *ConnectionMetrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Requests:          m.requests.Load(),
		Replies:           m.replies.Load(),
		Attempts:          m.attempts.Load(),
		Retransmissions:   m.retransmissions.Load(),
		Exhausted:         m.exhausted.Load(),
		Reconnects:        m.reconnects.Load(),
		ReconnectFailures: m.reconnectFailures.Load(),
		OpenErrors:        m.openErrors.Load(),
		SyncTimeouts:      m.syncTimeouts.Load(),
		ShortReads:        m.shortReads.Load(),
		Oversized:         m.oversized.Load(),
		CRCErrors:         m.crcErrors.Load(),
		SequenceErrors:    m.sequenceErrors.Load(),
		IOErrors:          m.ioErrors.Load(),
		Sequence:          m.sequence.Load(),
	}
}

// observeFailure counts a failed attempt. Attempts that never reached the
// wire are reconnect failures whatever the cause.
func (m *ConnectionMetrics) observeFailure(f AttemptFailure) {
	err := f.Cause
	switch {
	case !f.Sent:
		m.reconnectFailures.Add(1)
	case errors.Is(err, ErrSyncTimeout):
		m.syncTimeouts.Add(1)
	case errors.Is(err, ErrShortRead):
		m.shortReads.Add(1)
	case errors.Is(err, ErrPayloadTooLarge), errors.Is(err, ErrMisalignedPayload):
		m.oversized.Add(1)
	case errors.Is(err, ErrCRCMismatch):
		m.crcErrors.Add(1)
	case errors.Is(err, ErrSequenceMismatch):
		m.sequenceErrors.Add(1)
	default:
		m.ioErrors.Add(1)
	}
}
