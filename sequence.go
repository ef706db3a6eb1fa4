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

	"github.com/ZaparooProject/go-busside/internal/frame"
	"github.com/ZaparooProject/go-busside/logger"
)

// DefaultInitialSequence is used when no persisted sequence is available
const DefaultInitialSequence uint32 = 5

// ErrNoStoredSequence is returned by a SequenceStore that holds no value yet
var ErrNoStoredSequence = errors.New("no stored sequence number")

// SequenceStore persists the sequence counter across process restarts
type SequenceStore interface {
	Load() (uint32, error)
	Save(seq uint32) error
}

// Sequencer hands out correlation ids in [0, 2^30) and persists every
// advance so a restarted process does not reuse ids the device may still
// associate with in-flight state.
//
// Sequencer is not goroutine-safe; it is owned by a single Session.
type Sequencer struct {
	store SequenceStore
	log   logger.Logger
	value uint32
}

// NewSequencer creates a sequencer starting at DefaultInitialSequence.
// store may be nil, in which case nothing is persisted.
func NewSequencer(store SequenceStore, l logger.Logger) *Sequencer {
	if l == nil {
		l = logger.GetLogger()
	}
	return &Sequencer{
		store: store,
		log:   l,
		value: DefaultInitialSequence,
	}
}

// Current returns the sequence number the next frame will carry
func (s *Sequencer) Current() uint32 {
	return s.value
}

// Advance moves to the next sequence number, persists it and returns it.
// A persist failure is logged; the in-memory counter still advances.
func (s *Sequencer) Advance() uint32 {
	s.value = (s.value + 1) % frame.SequenceModulus
	if s.store != nil {
		if err := s.store.Save(s.value); err != nil {
			s.log.Warn("failed to persist sequence number", "seq", s.value, "error", err)
		}
	}
	return s.value
}

// Restore sets the counter, e.g. to a value recovered from storage
func (s *Sequencer) Restore(seq uint32) {
	s.value = seq % frame.SequenceModulus
}

// Resume restores the counter from the store. A missing value is not an
// error; the current value is kept.
func (s *Sequencer) Resume() error {
	if s.store == nil {
		return nil
	}
	seq, err := s.store.Load()
	if errors.Is(err, ErrNoStoredSequence) {
		return nil
	}
	if err != nil {
		return err
	}
	s.Restore(seq)
	return nil
}
