// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build !linux

package storage

import (
	"fmt"

	"github.com/spf13/afero"
)

// BlockBackend is only available on Linux.
type BlockBackend struct {
	Device     string
	Mountpoint string
	FSType     string
}

func NewBlockBackend(device, mountpoint, fstype string) *BlockBackend {
	return &BlockBackend{Device: device, Mountpoint: mountpoint, FSType: fstype}
}

func (b *BlockBackend) Present() bool { return false }

func (b *BlockBackend) Mount() (afero.Fs, error) {
	return nil, fmt.Errorf("block volumes are not supported on this platform")
}

func (b *BlockBackend) Unmount() error                 { return nil }
func (b *BlockBackend) Format() error                  { return fmt.Errorf("block volumes are not supported on this platform") }
func (b *BlockBackend) Usage() (uint64, uint64, error) { return statfsKiB(b.Mountpoint) }
