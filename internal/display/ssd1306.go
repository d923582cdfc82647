// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"image"

	"github.com/relabs-tech/imu_logger/internal/logger"
	"github.com/relabs-tech/imu_logger/internal/notify"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"
)

// OLED is a 128x64 SSD1306 on I2C.
type OLED struct {
	bus i2c.BusCloser
	dev *ssd1306.Dev
}

// OpenOLED opens the display on the named bus ("" picks the first one).
func OpenOLED(busName string) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("display: periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("display: open I2C bus %q: %w", busName, err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("display: initialize SSD1306: %w", err)
	}
	logger.For("display").Info().Str("bus", bus.String()).Msg("SSD1306 initialized")

	return &OLED{bus: bus, dev: dev}, nil
}

func (o *OLED) ShowMessage(msg string) error {
	return o.draw(MessageLines(msg))
}

func (o *OLED) ShowIdle(st notify.IdleStatus) error {
	return o.draw(IdleLines(st))
}

func (o *OLED) draw(lines []string) error {
	img := Render(lines)
	return o.dev.Draw(o.dev.Bounds(), img, image.Point{})
}

// Close blanks the panel and releases the bus.
func (o *OLED) Close() error {
	if err := o.dev.Halt(); err != nil {
		o.bus.Close()
		return err
	}
	return o.bus.Close()
}
