// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/imu_logger/internal/clock"
	"github.com/relabs-tech/imu_logger/internal/config"
	"github.com/relabs-tech/imu_logger/internal/console"
	"github.com/relabs-tech/imu_logger/internal/display"
	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/relabs-tech/imu_logger/internal/feedback"
	"github.com/relabs-tech/imu_logger/internal/imu"
	"github.com/relabs-tech/imu_logger/internal/input"
	"github.com/relabs-tech/imu_logger/internal/logger"
	"github.com/relabs-tech/imu_logger/internal/notify"
	"github.com/relabs-tech/imu_logger/internal/sensors"
	"github.com/relabs-tech/imu_logger/internal/storage"
	"github.com/relabs-tech/imu_logger/internal/telemetry"
	"periph.io/x/host/v3"
)

// RunLogger builds the device from cfg and runs the control loop until
// SIGINT/SIGTERM or a boot request.
func RunLogger(cfg *config.Config) error {
	log := logger.For("app")
	log.Info().
		Str("volume", cfg.VolumeName).
		Str("backend", cfg.VolumeBackend).
		Str("sensor", cfg.SensorKind).
		Msg("starting data logger")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticks := clock.NewMonotonic()
	rtc, err := newRTC(cfg, ticks)
	if err != nil {
		return err
	}

	backend, err := storage.NewBackend(cfg)
	if err != nil {
		return errors.New().Wrap(errors.ErrInitFailed, err)
	}
	vols := storage.NewManager()
	vols.Add(cfg.VolumeName, backend)

	if usesGPIO(cfg) {
		if _, err := host.Init(); err != nil {
			return errors.New().Wrap(errors.ErrInitFailed, fmt.Errorf("periph host init: %w", err))
		}
	}

	sensor, err := sensors.Open(cfg)
	if err != nil {
		// Keep running: captures will fail with a sensor error until the
		// device is fixed, and the console stays usable.
		log.Err(err).Msg("motion sensor unavailable")
		sensor = unavailableSensor{err: err}
	}
	defer sensor.Close()

	disp := openDisplay(cfg)
	defer disp.Close()

	in, out, closeConsole, err := openConsole(cfg)
	if err != nil {
		return errors.New().Wrap(errors.ErrInitFailed, err)
	}
	src := console.NewSource(in, 256)
	defer func() {
		src.Close()
		closeConsole()
	}()

	led, buzzer, err := openFeedback(cfg)
	if err != nil {
		log.Err(err).Msg("LED/buzzer unavailable")
	}

	pub := openTelemetry(cfg)
	defer pub.Close()

	edges := input.NewQueue(32)
	watchCtx, cancelWatch := context.WithCancel(ctx)
	watcher := input.NewWatcher(edges, ticks)
	defer func() {
		cancelWatch()
		watcher.Wait()
	}()
	for _, b := range []struct {
		pin string
		src input.Source
	}{
		{cfg.ButtonMountPin, input.MountButton},
		{cfg.ButtonRecordPin, input.RecordButton},
		{cfg.ButtonBootPin, input.BootRequest},
	} {
		if err := watcher.WatchByName(watchCtx, b.pin, b.src); err != nil {
			log.Err(err).Msg("button unavailable")
		}
	}

	loop, err := NewLoop(Deps{
		Config:    cfg,
		Ticks:     ticks,
		RTC:       rtc,
		Volumes:   vols,
		Sensor:    sensor,
		Display:   disp,
		Console:   src,
		Out:       out,
		Echo:      cfg.ConsoleEcho && cfg.ConsolePort != "",
		Edges:     edges,
		LED:       led,
		Buzzer:    buzzer,
		Telemetry: pub,
		Reprogram: reprogramFunc(ctx, cfg.ReprogramCommand),
	})
	if err != nil {
		return err
	}

	loop.Boot()
	return loop.Run(ctx)
}

func newRTC(cfg *config.Config, ticks clock.Source) (*clock.RTC, error) {
	switch cfg.RTCInit {
	case config.RTCSystem:
		return clock.NewSystemRTC(ticks), nil
	case config.RTCUnset:
		return clock.NewRTC(ticks), nil
	default:
		t, err := clock.ParseRTCInit(cfg.RTCInit)
		if err != nil {
			return nil, errors.New().Wrap(errors.ErrInvalidConfig, err).WithData("RTC_INIT")
		}
		rtc := clock.NewRTC(ticks)
		rtc.Set(t)
		return rtc, nil
	}
}

func usesGPIO(cfg *config.Config) bool {
	for _, pin := range []string{
		cfg.ButtonMountPin, cfg.ButtonRecordPin, cfg.ButtonBootPin,
		cfg.LEDRedPin, cfg.LEDGreenPin, cfg.LEDBluePin, cfg.BuzzerPin,
	} {
		if pin != "" {
			return true
		}
	}
	return false
}

type closableDisplay interface {
	notify.Display
	Close() error
}

// openDisplay falls back to the log display when the panel is missing.
func openDisplay(cfg *config.Config) closableDisplay {
	if cfg.DisplayKind == config.DisplaySSD1306 {
		oled, err := display.OpenOLED(cfg.DisplayI2CBus)
		if err == nil {
			return oled
		}
		logger.For("app").Err(err).Msg("OLED unavailable, logging display output")
	}
	return display.NewLogDisplay()
}

// openConsole returns the serial port when one is configured, else stdin
// and stdout.
func openConsole(cfg *config.Config) (io.Reader, io.Writer, func(), error) {
	if cfg.ConsolePort == "" {
		return os.Stdin, os.Stdout, func() {}, nil
	}
	port, err := console.OpenSerial(cfg.ConsolePort, cfg.ConsoleBaud)
	if err != nil {
		return nil, nil, nil, err
	}
	return port, port, func() { port.Close() }, nil
}

func openFeedback(cfg *config.Config) (feedback.LED, feedback.Buzzer, error) {
	var led feedback.LED
	var buzzer feedback.Buzzer

	if cfg.LEDRedPin != "" || cfg.LEDGreenPin != "" || cfg.LEDBluePin != "" {
		l, err := feedback.OpenRGBLED(cfg.LEDRedPin, cfg.LEDGreenPin, cfg.LEDBluePin)
		if err != nil {
			return nil, nil, err
		}
		led = l
	}
	if cfg.BuzzerPin != "" {
		b, err := feedback.OpenBuzzer(cfg.BuzzerPin, uint32(cfg.BuzzerFreqHz))
		if err != nil {
			return led, nil, err
		}
		buzzer = b
	}
	return led, buzzer, nil
}

func openTelemetry(cfg *config.Config) telemetry.Publisher {
	if cfg.MQTTBroker == "" {
		return telemetry.Nop{}
	}
	pub, err := telemetry.Connect(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
	if err != nil {
		logger.For("app").Err(err).Str("broker", cfg.MQTTBroker).Msg("MQTT unavailable, telemetry disabled")
		return telemetry.Nop{}
	}
	return pub
}

// reprogramFunc runs command through the shell; an empty command only
// leaves the loop.
func reprogramFunc(ctx context.Context, command string) func() error {
	if command == "" {
		return nil
	}
	return func() error {
		cmd := exec.CommandContext(ctx, "sh", "-c", command)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}
}

// unavailableSensor stands in for a sensor that failed to open.
type unavailableSensor struct {
	err error
}

func (s unavailableSensor) Probe() error {
	return errors.New().Wrap(errors.ErrSensorComm, s.err)
}

func (s unavailableSensor) ReadRaw() (imu.IMURaw, error) {
	return imu.IMURaw{}, s.Probe()
}

func (unavailableSensor) Close() error { return nil }
