// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package feedback drives the status LED and the buzzer. Blink and beep
// patterns are step lists advanced by the control loop, never sleeps.
package feedback

import (
	"github.com/relabs-tech/imu_logger/internal/clock"
	"github.com/relabs-tech/imu_logger/internal/logger"
)

type Color uint8

const (
	Off Color = iota
	Red
	Green
	Blue
	Yellow
	Purple
)

// RGB returns the channels lit for c.
func (c Color) RGB() (r, g, b bool) {
	switch c {
	case Red:
		return true, false, false
	case Green:
		return false, true, false
	case Blue:
		return false, false, true
	case Yellow:
		return true, true, false
	case Purple:
		return true, false, true
	}
	return false, false, false
}

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Green:
		return "green"
	case Blue:
		return "blue"
	case Yellow:
		return "yellow"
	case Purple:
		return "purple"
	}
	return "off"
}

type LED interface {
	SetColor(c Color) error
}

type Buzzer interface {
	Tone(on bool) error
}

// Step is one segment of an animation.
type Step struct {
	Color Color
	Beep  bool
	Ms    uint32
}

// Blink returns n on/off cycles of c, each phase lasting ms.
func Blink(c Color, n int, ms uint32) []Step {
	steps := make([]Step, 0, 2*n)
	for i := 0; i < n; i++ {
		steps = append(steps, Step{Color: c, Ms: ms}, Step{Color: Off, Ms: ms})
	}
	return steps
}

// Beeps returns n beeps of ms separated by ms of silence.
func Beeps(n int, ms uint32) []Step {
	steps := make([]Step, 0, 2*n)
	for i := 0; i < n; i++ {
		steps = append(steps, Step{Beep: true, Ms: ms})
		if i < n-1 {
			steps = append(steps, Step{Ms: ms})
		}
	}
	return steps
}

var (
	MountAck     = Blink(Yellow, 2, 200)
	UnmountAck   = Blink(Yellow, 4, 500)
	SessionStart = append(Blink(Blue, 10, 100), Beeps(1, 200)...)
	SessionStop  = Beeps(2, 200)
)

// errorBlinkMs is the half period of the volume error blink.
const errorBlinkMs = 1000

// State is what the ambient colour is derived from.
type State struct {
	Booting     bool
	VolumeError bool
	Mounted     bool
	Recording   bool
}

// Ambient returns the steady colour for st. VolumeError is handled by
// Update since it blinks.
func Ambient(st State) Color {
	switch {
	case st.Booting:
		return Yellow
	case st.VolumeError:
		return Purple
	case st.Recording:
		return Red
	case st.Mounted:
		return Green
	}
	return Off
}

// Controller applies animations and the ambient colour to the hardware.
// Outputs are written only when they change.
type Controller struct {
	led    LED
	buzzer Buzzer

	steps    []Step
	idx      int
	deadline clock.Ticks

	blinkOn bool
	blinkAt clock.Ticks

	color   Color
	beep    bool
	written bool

	log logger.Component
}

// New returns a controller. Either collaborator may be nil.
func New(led LED, buzzer Buzzer) *Controller {
	return &Controller{led: led, buzzer: buzzer, log: logger.For("feedback")}
}

// Play starts steps at now, replacing any running animation.
func (c *Controller) Play(now clock.Ticks, steps []Step) {
	if len(steps) == 0 {
		return
	}
	c.steps = steps
	c.idx = 0
	c.deadline = now.Add(steps[0].Ms)
	c.apply(steps[0].Color, steps[0].Beep)
}

// Busy reports whether an animation is running.
func (c *Controller) Busy() bool {
	return c.steps != nil
}

// Color returns the colour last written.
func (c *Controller) Color() Color {
	return c.color
}

// Beeping reports whether the buzzer is on.
func (c *Controller) Beeping() bool {
	return c.beep
}

// Update advances the running animation, or shows the ambient colour for
// st once none is running.
func (c *Controller) Update(now clock.Ticks, st State) {
	for c.steps != nil && now.Reached(c.deadline) {
		c.idx++
		if c.idx >= len(c.steps) {
			c.steps = nil
			break
		}
		s := c.steps[c.idx]
		c.deadline = c.deadline.Add(s.Ms)
		c.apply(s.Color, s.Beep)
	}
	if c.steps != nil {
		return
	}

	color := Ambient(st)
	if color == Purple {
		if now.Reached(c.blinkAt) {
			c.blinkOn = !c.blinkOn
			c.blinkAt = now.Add(errorBlinkMs)
		}
		if !c.blinkOn {
			color = Off
		}
	} else {
		c.blinkOn = false
		c.blinkAt = now
	}
	c.apply(color, false)
}

func (c *Controller) apply(color Color, beep bool) {
	if c.written && color == c.color && beep == c.beep {
		return
	}
	if c.led != nil && (!c.written || color != c.color) {
		if err := c.led.SetColor(color); err != nil {
			c.log.Warn().Err(err).Str("color", color.String()).Msg("LED update failed")
		}
	}
	if c.buzzer != nil && (!c.written || beep != c.beep) {
		if err := c.buzzer.Tone(beep); err != nil {
			c.log.Warn().Err(err).Bool("on", beep).Msg("buzzer update failed")
		}
	}
	c.color = color
	c.beep = beep
	c.written = true
}
