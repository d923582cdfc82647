// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package feedback

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
)

// RGBLED is a common-cathode LED on three GPIO pins. Missing channels are
// nil and skipped.
type RGBLED struct {
	r, g, b gpio.PinOut
}

func NewRGBLED(r, g, b gpio.PinOut) *RGBLED {
	return &RGBLED{r: r, g: g, b: b}
}

// OpenRGBLED looks the pins up by name. Empty names leave a channel unwired.
func OpenRGBLED(red, green, blue string) (*RGBLED, error) {
	var pins [3]gpio.PinOut
	for i, name := range []string{red, green, blue} {
		if name == "" {
			continue
		}
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("LED: GPIO pin %q not found", name)
		}
		pins[i] = p
	}
	return NewRGBLED(pins[0], pins[1], pins[2]), nil
}

func (l *RGBLED) SetColor(c Color) error {
	r, g, b := c.RGB()
	for _, ch := range []struct {
		pin gpio.PinOut
		on  bool
	}{{l.r, r}, {l.g, g}, {l.b, b}} {
		if ch.pin == nil {
			continue
		}
		if err := ch.pin.Out(gpio.Level(ch.on)); err != nil {
			return fmt.Errorf("LED: set %s: %w", ch.pin, err)
		}
	}
	return nil
}

// PWMBuzzer is a passive buzzer driven by a 50% duty square wave.
type PWMBuzzer struct {
	pin  gpio.PinOut
	freq physic.Frequency
}

func NewPWMBuzzer(pin gpio.PinOut, hz uint32) *PWMBuzzer {
	return &PWMBuzzer{pin: pin, freq: physic.Frequency(hz) * physic.Hertz}
}

func OpenBuzzer(name string, hz uint32) (*PWMBuzzer, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("buzzer: GPIO pin %q not found", name)
	}
	return NewPWMBuzzer(p, hz), nil
}

func (b *PWMBuzzer) Tone(on bool) error {
	if !on {
		return b.pin.Out(gpio.Low)
	}
	if err := b.pin.PWM(gpio.DutyHalf, b.freq); err != nil {
		return fmt.Errorf("buzzer: %w", err)
	}
	return nil
}
