// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package clock

import (
	"fmt"
	"time"

	"github.com/relabs-tech/imu_logger/internal/errors"
)

// RTC is the wall clock. It starts unset unless seeded from the host clock,
// and keeps running from the moment it is set using the tick source.
type RTC struct {
	ticks  Source
	set    bool
	base   time.Time
	baseAt Ticks
}

func NewRTC(ticks Source) *RTC {
	return &RTC{ticks: ticks}
}

// NewSystemRTC returns an RTC seeded from the host wall clock.
func NewSystemRTC(ticks Source) *RTC {
	r := NewRTC(ticks)
	r.Set(time.Now())
	return r
}

// Set makes t the current wall-clock time.
func (r *RTC) Set(t time.Time) {
	r.base = t.Truncate(time.Second)
	r.baseAt = r.ticks.Now()
	r.set = true
}

// SetFields sets the clock from the console form: two-digit year offset from
// 2000. Out-of-range fields are rejected.
func (r *RTC) SetFields(day, month, year2, hour, minute, second int) error {
	if year2 < 0 || year2 > 99 || month < 1 || month > 12 || day < 1 ||
		hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return errors.New().WithData(errors.ErrInvalidArgument,
			fmt.Sprintf("%02d/%02d/%02d %02d:%02d:%02d", day, month, year2, hour, minute, second))
	}
	t := time.Date(2000+year2, time.Month(month), day, hour, minute, second, 0, time.Local)
	if t.Day() != day {
		return errors.New().WithData(errors.ErrInvalidArgument, fmt.Sprintf("day %d out of range", day))
	}
	r.Set(t)
	return nil
}

// IsSet reports whether the clock holds a valid time.
func (r *RTC) IsSet() bool {
	return r.set
}

// Now returns the current time, or an ErrClockUnset error. Each read moves
// the base forward, so the clock survives tick wraparound as long as it is
// read at least once per wrap period.
func (r *RTC) Now() (time.Time, error) {
	if !r.set {
		return time.Time{}, errors.New().New(errors.ErrClockUnset)
	}
	now := r.ticks.Now()
	r.base = r.base.Add(time.Duration(now.Since(r.baseAt)) * time.Millisecond)
	r.baseAt = now
	return r.base, nil
}

// ParseRTCInit parses the "DD/MM/YY HH:MM:SS" form used in configuration.
func ParseRTCInit(value string) (time.Time, error) {
	return time.ParseInLocation("02/01/06 15:04:05", value, time.Local)
}
