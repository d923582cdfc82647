// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

//go:build linux

package storage

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/afero"
	"golang.org/x/sys/unix"
)

// BlockBackend mounts a removable block device (an SD card reader, usually
// /dev/mmcblk1p1 or /dev/sda1) itself. Needs CAP_SYS_ADMIN.
type BlockBackend struct {
	Device     string
	Mountpoint string
	FSType     string
}

func NewBlockBackend(device, mountpoint, fstype string) *BlockBackend {
	return &BlockBackend{Device: device, Mountpoint: mountpoint, FSType: fstype}
}

// Present reports whether the device node exists and is a block device.
func (b *BlockBackend) Present() bool {
	fi, err := os.Stat(b.Device)
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeDevice != 0
}

func (b *BlockBackend) Mount() (afero.Fs, error) {
	if err := os.MkdirAll(b.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("create mount point: %w", err)
	}
	err := unix.Mount(b.Device, b.Mountpoint, b.FSType, unix.MS_NOATIME|unix.MS_NODEV|unix.MS_NOSUID, "")
	if err != nil && err != unix.EBUSY {
		return nil, fmt.Errorf("mount %s on %s: %w", b.Device, b.Mountpoint, err)
	}
	return afero.NewBasePathFs(afero.NewOsFs(), b.Mountpoint), nil
}

func (b *BlockBackend) Unmount() error {
	unix.Sync()
	if err := unix.Unmount(b.Mountpoint, 0); err != nil && err != unix.EINVAL {
		return fmt.Errorf("unmount %s: %w", b.Mountpoint, err)
	}
	return nil
}

// Format runs mkfs.<fstype> on the device.
func (b *BlockBackend) Format() error {
	out, err := exec.Command("mkfs."+b.FSType, b.Device).CombinedOutput()
	if err != nil {
		return fmt.Errorf("mkfs.%s %s: %w: %s", b.FSType, b.Device, err, out)
	}
	return nil
}

func (b *BlockBackend) Usage() (uint64, uint64, error) {
	return statfsKiB(b.Mountpoint)
}
