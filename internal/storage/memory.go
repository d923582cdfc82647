// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package storage

import (
	"os"
	"sync"

	"github.com/spf13/afero"
)

// MemBackend is an in-memory card used for bench runs and tests. Presence
// and failures can be toggled to simulate card removal.
type MemBackend struct {
	mu          sync.Mutex
	fs          afero.Fs
	present     bool
	capacityKiB uint64

	// Injected failures, returned once set until cleared.
	MountErr   error
	UnmountErr error
	FormatErr  error
}

func NewMemBackend(capacityKiB uint64) *MemBackend {
	return &MemBackend{fs: newCard(), present: true, capacityKiB: capacityKiB}
}

// newCard roots the in-memory filesystem at "/" so that "a.csv" and
// "/a.csv" name the same file.
func newCard() afero.Fs {
	return afero.NewBasePathFs(afero.NewMemMapFs(), "/")
}

// SetPresent inserts or removes the simulated card.
func (b *MemBackend) SetPresent(present bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.present = present
}

func (b *MemBackend) Present() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.present
}

// Fs exposes the card contents regardless of mount state.
func (b *MemBackend) Fs() afero.Fs {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fs
}

func (b *MemBackend) Mount() (afero.Fs, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.MountErr != nil {
		return nil, b.MountErr
	}
	return b.fs, nil
}

func (b *MemBackend) Unmount() error {
	return b.UnmountErr
}

func (b *MemBackend) Format() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FormatErr != nil {
		return b.FormatErr
	}
	b.fs = newCard()
	return nil
}

func (b *MemBackend) Usage() (uint64, uint64, error) {
	var used uint64
	err := afero.Walk(b.Fs(), "/", func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			used += uint64(info.Size())
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	usedKiB := (used + 1023) / 1024
	if usedKiB > b.capacityKiB {
		return b.capacityKiB, 0, nil
	}
	return b.capacityKiB, b.capacityKiB - usedKiB, nil
}
