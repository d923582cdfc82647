// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package storage

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// DirBackend serves a volume from a directory, typically the mount point of
// a card the OS mounts by itself. The media counts as present while the
// directory exists.
type DirBackend struct {
	base afero.Fs
	root string

	// usage is replaceable for filesystems statfs cannot see.
	usage func(root string) (uint64, uint64, error)
}

func NewDirBackend(base afero.Fs, root string) *DirBackend {
	return &DirBackend{base: base, root: filepath.Clean(root), usage: statfsKiB}
}

func (d *DirBackend) Present() bool {
	ok, err := afero.DirExists(d.base, d.root)
	return err == nil && ok
}

func (d *DirBackend) Mount() (afero.Fs, error) {
	if _, err := afero.ReadDir(d.base, d.root); err != nil {
		return nil, fmt.Errorf("read %s: %w", d.root, err)
	}
	return afero.NewBasePathFs(d.base, d.root), nil
}

func (d *DirBackend) Unmount() error {
	return nil
}

// Format removes every entry below the root directory.
func (d *DirBackend) Format() error {
	entries, err := afero.ReadDir(d.base, d.root)
	if err != nil {
		return fmt.Errorf("read %s: %w", d.root, err)
	}
	for _, e := range entries {
		if err := d.base.RemoveAll(filepath.Join(d.root, e.Name())); err != nil {
			return fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	return nil
}

func (d *DirBackend) Usage() (uint64, uint64, error) {
	return d.usage(d.root)
}
