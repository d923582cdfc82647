// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// IMURaw represents a single raw motion-sensor sample. Axis values are in
// device units as read from the data registers.
type IMURaw struct {
	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	// TempC is the die or companion-sensor temperature, already scaled.
	TempC float64 `json:"temp_c"`
}

// MPU6050TempC converts the MPU6050 TEMP_OUT register to degrees. The
// offset is calibrated per board; the datasheet value is 36.53.
func MPU6050TempC(raw int16, offsetC float64) float64 {
	return float64(raw)/340.0 + offsetC
}

// BigEndian16 decodes one register pair as a signed value.
func BigEndian16(hi, lo byte) int16 {
	return int16(uint16(hi)<<8 | uint16(lo))
}
