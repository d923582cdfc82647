// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/relabs-tech/imu_logger/internal/config"
	"github.com/relabs-tech/imu_logger/internal/imu"
)

// IMURawReader is the motion-sensor collaborator used by the control loop.
// Probe checks that the device still answers; ReadRaw returns one sample.
// Both block for at most one bus transaction timeout.
type IMURawReader interface {
	Probe() error
	ReadRaw() (imu.IMURaw, error)
	Close() error
}

// Open builds the reader selected by SENSOR_KIND.
func Open(cfg *config.Config) (IMURawReader, error) {
	switch cfg.SensorKind {
	case config.SensorMPU6050:
		return OpenMPU6050(cfg.SensorI2CBus, cfg.SensorI2CAddr, cfg.TempOffsetC)
	case config.SensorMPU9250:
		return OpenMPU9250(cfg.SensorSPIDevice, cfg.SensorCSPin, cfg.SensorTempSPIDevice)
	case config.SensorMock:
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown sensor kind %q", cfg.SensorKind)
	}
}
