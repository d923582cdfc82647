// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package storage

import (
	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/spf13/afero"
)

// State is the mount state of a volume.
type State int

const (
	Unmounted State = iota
	Mounted
	Error
)

func (s State) String() string {
	switch s {
	case Unmounted:
		return "unmounted"
	case Mounted:
		return "mounted"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Volume is a snapshot of one logical volume.
type Volume struct {
	Name    string
	State   State
	LastErr errors.ErrorCode
}

// Backend is the filesystem/block-device collaborator behind a volume.
// All calls block until the device answers.
type Backend interface {
	// Present probes the physical media, independent of mount state.
	Present() bool
	// Mount attaches the filesystem and returns a handle rooted at it.
	Mount() (afero.Fs, error)
	Unmount() error
	// Format creates a fresh filesystem. Called only while unmounted.
	Format() error
	// Usage reports capacity in KiB. Called only while mounted.
	Usage() (totalKiB, freeKiB uint64, err error)
}
