// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package csvlog

import (
	"time"

	"github.com/relabs-tech/imu_logger/internal/errors"
)

// EndReason records why a session stopped.
type EndReason string

const (
	EndLimit        EndReason = "limit"
	EndStopped      EndReason = "stopped"
	EndWriteFailed  EndReason = "write_failed"
	EndSensorFailed EndReason = "sensor_failed"
	EndMediaFailed  EndReason = "media_failed"
	EndUnmounted    EndReason = "unmounted"
	EndFormatted    EndReason = "formatted"
)

// Session is the single logging session. The zero value is inactive.
type Session struct {
	active bool

	Volume    string
	File      string
	StartedAt time.Time
	Count     uint32
	Limit     uint32
	Reason    EndReason
}

// Begin activates the session. Only one session may be active at a time.
func (s *Session) Begin(volume, file string, start time.Time, limit uint32) error {
	if s.active {
		return errors.New().WithData(errors.ErrSessionActive, s.File)
	}
	*s = Session{
		active:    true,
		Volume:    volume,
		File:      file,
		StartedAt: start,
		Limit:     limit,
	}
	return nil
}

func (s *Session) Active() bool {
	return s.active
}

// NextSeq is the sequence number of the next row; rows count from 1.
func (s *Session) NextSeq() uint32 {
	return s.Count + 1
}

// Accepted counts one persisted row and reports whether the limit has been
// reached.
func (s *Session) Accepted() bool {
	s.Count++
	return s.Count >= s.Limit
}

// End deactivates the session. Ending an inactive session does nothing and
// returns false.
func (s *Session) End(reason EndReason) bool {
	if !s.active {
		return false
	}
	s.active = false
	s.Reason = reason
	return true
}
