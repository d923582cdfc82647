// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package storage

import (
	"fmt"

	"github.com/relabs-tech/imu_logger/internal/config"
	"github.com/spf13/afero"
)

// memCapacityKiB is the size reported by the memory backend (1 GiB).
const memCapacityKiB = 1 << 20

// NewBackend builds the backend selected by VOLUME_BACKEND.
func NewBackend(cfg *config.Config) (Backend, error) {
	switch cfg.VolumeBackend {
	case config.BackendDir:
		return NewDirBackend(afero.NewOsFs(), cfg.VolumeDir), nil
	case config.BackendBlock:
		return NewBlockBackend(cfg.VolumeDevice, cfg.VolumeMountpoint, cfg.VolumeFSType), nil
	case config.BackendMemory:
		return NewMemBackend(memCapacityKiB), nil
	default:
		return nil, fmt.Errorf("unknown volume backend %q", cfg.VolumeBackend)
	}
}
