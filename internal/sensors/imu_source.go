// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/relabs-tech/imu_logger/internal/imu"
	"github.com/relabs-tech/imu_logger/internal/logger"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

type imuSource struct {
	imu  *mpu9250.MPU9250
	temp *envSource
}

// OpenMPU9250 initializes an MPU9250 over SPI. The temperature column comes
// from the BMx280 on tempSPIDev when one is configured, else it reads 0.
func OpenMPU9250(spiDev, csPin, tempSPIDev string) (IMURawReader, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("MPU9250: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("MPU9250: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("MPU9250: SPI transport (%s): %w", spiDev, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("MPU9250: device creation: %w", err)
	}

	if err := dev.Init(); err != nil {
		return nil, errors.New().Wrap(errors.ErrSensorComm, fmt.Errorf("MPU9250 initialization: %w", err))
	}

	log := logger.For("sensor")
	if err := dev.Calibrate(); err != nil {
		log.Warn().Err(err).Msg("MPU9250 calibration failed")
	}

	s := &imuSource{imu: dev}
	if tempSPIDev != "" {
		s.temp, err = openEnv(tempSPIDev)
		if err != nil {
			return nil, err
		}
	}

	log.Info().Str("spi", spiDev).Str("cs", csPin).Bool("temperature", s.temp != nil).Msg("MPU9250 ready")
	return s, nil
}

// Probe does a full axis read; the driver has no cheaper identity check.
func (s *imuSource) Probe() error {
	if _, err := s.imu.GetAccelerationZ(); err != nil {
		return errors.New().Wrap(errors.ErrSensorComm, fmt.Errorf("MPU9250 probe: %w", err))
	}
	return nil
}

// ReadRaw reads accelerometer and gyroscope data, plus the companion
// temperature.
func (s *imuSource) ReadRaw() (imu.IMURaw, error) {
	ax, err := s.imu.GetAccelerationX()
	if err != nil {
		return imu.IMURaw{}, commErr("accel X", err)
	}
	ay, err := s.imu.GetAccelerationY()
	if err != nil {
		return imu.IMURaw{}, commErr("accel Y", err)
	}
	az, err := s.imu.GetAccelerationZ()
	if err != nil {
		return imu.IMURaw{}, commErr("accel Z", err)
	}

	gx, err := s.imu.GetRotationX()
	if err != nil {
		return imu.IMURaw{}, commErr("gyro X", err)
	}
	gy, err := s.imu.GetRotationY()
	if err != nil {
		return imu.IMURaw{}, commErr("gyro Y", err)
	}
	gz, err := s.imu.GetRotationZ()
	if err != nil {
		return imu.IMURaw{}, commErr("gyro Z", err)
	}

	var tempC float64
	if s.temp != nil {
		if tempC, err = s.temp.Celsius(); err != nil {
			return imu.IMURaw{}, commErr("temperature", err)
		}
	}

	return imu.IMURaw{
		Ax:    ax,
		Ay:    ay,
		Az:    az,
		Gx:    gx,
		Gy:    gy,
		Gz:    gz,
		TempC: tempC,
	}, nil
}

func (s *imuSource) Close() error {
	if s.temp != nil {
		return s.temp.Close()
	}
	return nil
}

func commErr(what string, err error) error {
	return errors.New().Wrap(errors.ErrSensorComm, fmt.Errorf("MPU9250 %s: %w", what, err))
}
