// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"strings"

	"github.com/relabs-tech/imu_logger/internal/logger"
	"github.com/relabs-tech/imu_logger/internal/notify"
)

// LogDisplay writes display content to the log, for boards without a
// panel. Repeated identical idle views are logged once.
type LogDisplay struct {
	log  logger.Component
	last string
}

func NewLogDisplay() *LogDisplay {
	return &LogDisplay{log: logger.For("display")}
}

func (d *LogDisplay) ShowMessage(msg string) error {
	d.last = ""
	d.log.Info().Str("message", msg).Msg("notification")
	return nil
}

func (d *LogDisplay) ShowIdle(st notify.IdleStatus) error {
	// Seconds change every refresh; compare without the clock line.
	lines := IdleLines(st)
	key := strings.Join(lines[2:], "|")
	if key == d.last {
		return nil
	}
	d.last = key
	d.log.Info().Strs("lines", lines).Msg("idle view")
	return nil
}

func (d *LogDisplay) Close() error { return nil }
