// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/relabs-tech/imu_logger/internal/imu"
	"github.com/relabs-tech/imu_logger/internal/logger"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// MPU6050 registers
const (
	regPwrMgmt1 = 0x6B
	regAccelOut = 0x3B // ACCEL_XOUT_H, followed by TEMP_OUT and GYRO_OUT
	regWhoAmI   = 0x75

	pwrDeviceReset = 0x80

	burstLen = 14
)

// resetSettle is the time the chip needs after a device reset.
var resetSettle = 100 * time.Millisecond

// MPU6050 talks to the sensor register by register over I2C.
type MPU6050 struct {
	dev         *i2c.Dev
	closer      i2c.BusCloser
	tempOffsetC float64
}

// OpenMPU6050 opens the named I2C bus ("" picks the first one) and resets
// the sensor.
func OpenMPU6050(busName string, addr uint16, tempOffsetC float64) (IMURawReader, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("MPU6050: periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("MPU6050: open I2C bus %q: %w", busName, err)
	}

	s, err := NewMPU6050(bus, addr, tempOffsetC)
	if err != nil {
		bus.Close()
		return nil, err
	}
	s.closer = bus
	return s, nil
}

// NewMPU6050 probes and resets an MPU6050 on an already open bus.
func NewMPU6050(bus i2c.Bus, addr uint16, tempOffsetC float64) (*MPU6050, error) {
	s := &MPU6050{
		dev:         &i2c.Dev{Bus: bus, Addr: addr},
		tempOffsetC: tempOffsetC,
	}

	if err := s.Probe(); err != nil {
		return nil, err
	}

	if _, err := s.dev.Write([]byte{regPwrMgmt1, pwrDeviceReset}); err != nil {
		return nil, errors.New().Wrap(errors.ErrSensorComm, fmt.Errorf("MPU6050 reset: %w", err))
	}
	time.Sleep(resetSettle)
	if _, err := s.dev.Write([]byte{regPwrMgmt1, 0x00}); err != nil {
		return nil, errors.New().Wrap(errors.ErrSensorComm, fmt.Errorf("MPU6050 wake: %w", err))
	}

	logger.For("sensor").Info().Str("bus", bus.String()).Uint16("addr", addr).Msg("MPU6050 ready")
	return s, nil
}

// Probe reads WHO_AM_I. Both the MPU6050 (0x68) and the pin-compatible
// MPU6500 family (0x70) are accepted.
func (s *MPU6050) Probe() error {
	var id [1]byte
	if err := s.dev.Tx([]byte{regWhoAmI}, id[:]); err != nil {
		return errors.New().Wrap(errors.ErrSensorComm, fmt.Errorf("MPU6050 WHO_AM_I: %w", err))
	}
	if id[0] != 0x68 && id[0] != 0x70 {
		return errors.New().WithData(errors.ErrSensorComm, fmt.Sprintf("unexpected WHO_AM_I 0x%02X", id[0]))
	}
	return nil
}

// ReadRaw reads accelerometer, temperature and gyroscope in one burst so
// all axes belong to the same conversion.
func (s *MPU6050) ReadRaw() (imu.IMURaw, error) {
	var b [burstLen]byte
	if err := s.dev.Tx([]byte{regAccelOut}, b[:]); err != nil {
		return imu.IMURaw{}, errors.New().Wrap(errors.ErrSensorComm, fmt.Errorf("MPU6050 data read: %w", err))
	}

	return imu.IMURaw{
		Ax:    imu.BigEndian16(b[0], b[1]),
		Ay:    imu.BigEndian16(b[2], b[3]),
		Az:    imu.BigEndian16(b[4], b[5]),
		TempC: imu.MPU6050TempC(imu.BigEndian16(b[6], b[7]), s.tempOffsetC),
		Gx:    imu.BigEndian16(b[8], b[9]),
		Gy:    imu.BigEndian16(b[10], b[11]),
		Gz:    imu.BigEndian16(b[12], b[13]),
	}, nil
}

func (s *MPU6050) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
