// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package clock provides the two time sources used by the logger: a
// wrapping millisecond tick counter for deadlines and debounce, and a
// settable wall clock for file names and row timestamps.
package clock

import (
	"sync/atomic"
	"time"
)

// Ticks is a monotonic millisecond counter. It wraps after about 49.7 days;
// compare values only through Since, Before and Reached.
type Ticks uint32

// Add returns t advanced by ms milliseconds.
func (t Ticks) Add(ms uint32) Ticks {
	return t + Ticks(ms)
}

// Since returns the milliseconds elapsed from earlier to t. Valid while the
// real distance is below 2^32 ms. Reached and Before only hold below 2^31 ms.
func (t Ticks) Since(earlier Ticks) uint32 {
	return uint32(t - earlier)
}

// Reached reports whether t is at or past deadline.
func (t Ticks) Reached(deadline Ticks) bool {
	return int32(t-deadline) >= 0
}

// Before reports whether t is strictly earlier than other.
func (t Ticks) Before(other Ticks) bool {
	return int32(t-other) < 0
}

// Source yields the current tick value.
type Source interface {
	Now() Ticks
}

// Monotonic reads ticks from the Go monotonic clock.
type Monotonic struct {
	start time.Time
}

func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

func (m *Monotonic) Now() Ticks {
	return Ticks(uint32(time.Since(m.start).Milliseconds()))
}

// Manual is a Source driven explicitly by tests and simulations. It is safe
// to read from capture goroutines while the loop advances it.
type Manual struct {
	now atomic.Uint32
}

func NewManual(start Ticks) *Manual {
	m := &Manual{}
	m.now.Store(uint32(start))
	return m
}

func (m *Manual) Now() Ticks {
	return Ticks(m.now.Load())
}

// Advance moves the clock forward by ms and returns the new value.
func (m *Manual) Advance(ms uint32) Ticks {
	return Ticks(m.now.Add(ms))
}

func (m *Manual) Set(t Ticks) {
	m.now.Store(uint32(t))
}
