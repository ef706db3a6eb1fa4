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
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// SequenceFileName is the well-known name of the persisted sequence file
const SequenceFileName = "BUSSide.seq"

// DefaultSequencePath returns the sequence file location in the temp directory
func DefaultSequencePath() string {
	return filepath.Join(os.TempDir(), SequenceFileName)
}

// FileStore persists the sequence number as a 4-byte little-endian value.
// Access is serialized across processes with an advisory file lock.
type FileStore struct {
	path string
}

// NewFileStore creates a store at path, or at DefaultSequencePath if empty
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultSequencePath()
	}
	return &FileStore{path: path}
}

// Path returns the file location
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the stored sequence number
func (f *FileStore) Load() (uint32, error) {
	file, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, ErrNoStoredSequence
	}
	if err != nil {
		return 0, fmt.Errorf("open sequence file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := lockFile(file); err != nil {
		return 0, fmt.Errorf("lock sequence file: %w", err)
	}
	defer func() { _ = unlockFile(file) }()

	var buf [4]byte
	if _, err := io.ReadFull(file, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrNoStoredSequence
		}
		return 0, fmt.Errorf("read sequence file: %w", err)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// Save writes seq and flushes it to stable storage
func (f *FileStore) Save(seq uint32) error {
	file, err := os.OpenFile(f.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("open sequence file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := lockFile(file); err != nil {
		return fmt.Errorf("lock sequence file: %w", err)
	}
	defer func() { _ = unlockFile(file) }()

	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], seq)
	if _, err := file.WriteAt(buf[:], 0); err != nil {
		return fmt.Errorf("write sequence file: %w", err)
	}
	if err := file.Truncate(int64(len(buf))); err != nil {
		return fmt.Errorf("truncate sequence file: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync sequence file: %w", err)
	}
	return nil
}

// MemoryStore keeps the sequence number in memory
type MemoryStore struct {
	mu    sync.Mutex
	value uint32
	saves int
	set   bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the last saved value, or ErrNoStoredSequence before the
// first Save
func (m *MemoryStore) Load() (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return 0, ErrNoStoredSequence
	}
	return m.value, nil
}

// Save records seq
func (m *MemoryStore) Save(seq uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = seq
	m.set = true
	m.saves++
	return nil
}

// Saves returns how many times Save was called
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
