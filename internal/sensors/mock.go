// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/relabs-tech/imu_logger/internal/imu"
)

// Mock generates smoothly changing readings for bench runs without a
// sensor. Failures can be injected to exercise the error paths.
type Mock struct {
	mu    sync.Mutex
	start time.Time
	n     int
	fail  error
}

// NewMock creates a mock sensor.
func NewMock() *Mock {
	return &Mock{start: time.Now()}
}

// Fail makes every following Probe and ReadRaw return err; nil clears it.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

func (m *Mock) Probe() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return errors.New().Wrap(errors.ErrSensorComm, m.fail)
	}
	return nil
}

// ReadRaw returns a 1 g gravity vector rocking around X, a matching gyro
// rate and a slow temperature drift.
func (m *Mock) ReadRaw() (imu.IMURaw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return imu.IMURaw{}, errors.New().Wrap(errors.ErrSensorComm, m.fail)
	}
	m.n++

	elapsed := time.Since(m.start).Seconds()
	const oneG = 16384 // LSB/g at ±2g

	return imu.IMURaw{
		Ax:    int16(oneG * 0.1 * math.Sin(elapsed*0.7)),
		Ay:    int16(oneG * 0.3 * math.Sin(elapsed*0.5)),
		Az:    int16(oneG * math.Cos(elapsed*0.5)),
		Gx:    int16(131 * 20 * math.Cos(elapsed*0.5)), // 131 LSB/(deg/s)
		Gy:    int16(131 * 5 * math.Sin(elapsed)),
		TempC: 25 + 0.5*math.Sin(elapsed/60),
	}, nil
}

// Reads returns how many successful reads were served.
func (m *Mock) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.n
}

func (m *Mock) Close() error {
	return nil
}
