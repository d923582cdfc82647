// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/bmxx80"
)

// envSource is the BMx280 mounted next to the SPI IMU. Only its
// temperature is logged.
type envSource struct {
	port spi.PortCloser
	dev  *bmxx80.Dev
}

func openEnv(spiDev string) (*envSource, error) {
	port, err := spireg.Open(spiDev)
	if err != nil {
		return nil, fmt.Errorf("BMx280 SPI open (%s): %w", spiDev, err)
	}

	dev, err := bmxx80.NewSPI(port, &bmxx80.DefaultOpts)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("BMx280 init: %w", err)
	}

	return &envSource{port: port, dev: dev}, nil
}

func (e *envSource) Celsius() (float64, error) {
	var env physic.Env
	if err := e.dev.Sense(&env); err != nil {
		return 0, fmt.Errorf("BMx280 sense: %w", err)
	}
	return env.Temperature.Celsius(), nil
}

func (e *envSource) Close() error {
	if err := e.dev.Halt(); err != nil {
		return err
	}
	return e.port.Close()
}
