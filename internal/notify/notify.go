// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package notify decides what the status display shows: a transient
// message until it expires, else the idle status view.
package notify

import (
	"time"

	"github.com/relabs-tech/imu_logger/internal/clock"
	"github.com/relabs-tech/imu_logger/internal/logger"
)

// IdleStatus is what the idle view renders.
type IdleStatus struct {
	Now       time.Time
	ClockSet  bool
	Volume    string
	Present   bool
	Mounted   bool
	Recording bool
	Samples   uint32
	Limit     uint32
}

// Display is the display collaborator.
type Display interface {
	ShowMessage(msg string) error
	ShowIdle(st IdleStatus) error
}

// View is the current content kind.
type View struct {
	Transient bool
	Message   string
}

// Controller owns the single transient message slot.
type Controller struct {
	display   Display
	timeoutMs uint32
	refreshMs uint32

	message string
	expiry  clock.Ticks
	active  bool

	lastIdle  clock.Ticks
	idleDrawn bool

	log logger.Component
}

// New returns a controller. timeoutMs is the default message lifetime,
// refreshMs the idle redraw interval.
func New(display Display, timeoutMs, refreshMs uint32) *Controller {
	return &Controller{
		display:   display,
		timeoutMs: timeoutMs,
		refreshMs: refreshMs,
		log:       logger.For("notify"),
	}
}

// Show replaces any pending message with msg until expiry, and draws it.
func (c *Controller) Show(msg string, expiry clock.Ticks) {
	c.message = msg
	c.expiry = expiry
	c.active = true
	c.idleDrawn = false
	if err := c.display.ShowMessage(msg); err != nil {
		c.log.Warn().Err(err).Str("message", msg).Msg("display update failed")
	}
}

// ShowFor shows msg for the default timeout from now.
func (c *Controller) ShowFor(now clock.Ticks, msg string) {
	c.Show(msg, now.Add(c.timeoutMs))
}

// Tick returns the current view. An expired message is dropped.
func (c *Controller) Tick(now clock.Ticks) View {
	if c.active && now.Before(c.expiry) {
		return View{Transient: true, Message: c.message}
	}
	c.active = false
	return View{}
}

// Refresh redraws the idle view when no message is showing and the refresh
// interval has passed. It reports whether it drew.
func (c *Controller) Refresh(now clock.Ticks, status func() IdleStatus) bool {
	if c.Tick(now).Transient {
		return false
	}
	if c.idleDrawn && now.Since(c.lastIdle) < c.refreshMs {
		return false
	}
	c.lastIdle = now
	c.idleDrawn = true
	if err := c.display.ShowIdle(status()); err != nil {
		c.log.Warn().Err(err).Msg("display update failed")
	}
	return true
}
