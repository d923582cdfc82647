// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package scheduler decides when the next sample is due.
package scheduler

import "github.com/relabs-tech/imu_logger/internal/clock"

// Scheduler is either idle or armed with the deadline of the next sample.
// It has no timers of its own: the control loop polls IsDue and calls
// Advance after servicing a sample.
type Scheduler struct {
	armed    bool
	deadline clock.Ticks
	periodMs uint32
	token    uint64
}

// Start arms the scheduler with the first deadline at now, so the first
// sample is taken on the next poll. It returns a token identifying this run.
func (s *Scheduler) Start(now clock.Ticks, periodMs uint32) uint64 {
	s.armed = true
	s.deadline = now
	s.periodMs = periodMs
	s.token++
	return s.token
}

// Stop disarms the scheduler.
func (s *Scheduler) Stop() {
	s.armed = false
}

func (s *Scheduler) Armed() bool {
	return s.armed
}

// Token returns the token of the current run, or 0 when idle.
func (s *Scheduler) Token() uint64 {
	if !s.armed {
		return 0
	}
	return s.token
}

func (s *Scheduler) Period() uint32 {
	return s.periodMs
}

// Deadline returns the next deadline and whether the scheduler is armed.
func (s *Scheduler) Deadline() (clock.Ticks, bool) {
	return s.deadline, s.armed
}

// IsDue reports whether an armed scheduler has reached its deadline.
func (s *Scheduler) IsDue(now clock.Ticks) bool {
	return s.armed && now.Reached(s.deadline)
}

// Advance moves the deadline one period past the one just serviced. If the
// loop fell more than a period behind, missed slots are skipped rather than
// fired back to back.
func (s *Scheduler) Advance(now clock.Ticks, periodMs uint32) clock.Ticks {
	s.periodMs = periodMs
	next := s.deadline.Add(periodMs)
	if next.Reached(now) {
		s.deadline = next
	} else {
		s.deadline = now.Add(periodMs)
	}
	return s.deadline
}
