// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/imu_logger/internal/clock"
	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when read from the environment,
// e.g. DATALOGGER_SAMPLE_PERIOD_MS.
const EnvPrefix = "DATALOGGER"

// Volume backends
const (
	BackendDir    = "dir"
	BackendBlock  = "block"
	BackendMemory = "memory"
)

// Sensor kinds
const (
	SensorMPU6050 = "mpu6050"
	SensorMPU9250 = "mpu9250"
	SensorMock    = "mock"
)

// Display kinds
const (
	DisplaySSD1306 = "ssd1306"
	DisplayLog     = "log"
)

// RTC seeding
const (
	RTCSystem = "system"
	RTCUnset  = "unset"
)

// Config holds all application configuration values.
type Config struct {
	// Timing (milliseconds)
	SamplePeriodMs   uint32
	MaxSamples       uint32
	LoopIntervalMs   uint32
	DebounceMs       uint32
	MessageTimeoutMs uint32
	DisplayRefreshMs uint32

	// Storage
	VolumeName       string
	VolumeBackend    string
	VolumeDir        string
	VolumeDevice     string
	VolumeMountpoint string
	VolumeFSType     string

	// Motion sensor
	SensorKind          string
	SensorI2CBus        string
	SensorI2CAddr       uint16
	SensorSPIDevice     string
	SensorCSPin         string
	SensorTempSPIDevice string
	TempOffsetC         float64

	// Display
	DisplayKind   string
	DisplayI2CBus string

	// Console
	ConsolePort string
	ConsoleBaud uint
	ConsoleEcho bool

	// Buttons ("" disables the input)
	ButtonMountPin  string
	ButtonRecordPin string
	ButtonBootPin   string

	// LED and buzzer ("" disables the output)
	LEDRedPin    string
	LEDGreenPin  string
	LEDBluePin   string
	BuzzerPin    string
	BuzzerFreqHz int

	// Wall clock: "system", "unset" or "DD/MM/YY HH:MM:SS"
	RTCInit string

	// Telemetry
	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string
	WebServerPort   int

	ReprogramCommand string
}

var defaults = map[string]any{
	"SAMPLE_PERIOD_MS":       1000,
	"MAX_SAMPLES":            99999,
	"LOOP_INTERVAL_MS":       50,
	"DEBOUNCE_MS":            200,
	"MESSAGE_TIMEOUT_MS":     2000,
	"DISPLAY_REFRESH_MS":     500,
	"VOLUME_NAME":            "0:",
	"VOLUME_BACKEND":         BackendDir,
	"VOLUME_DIR":             "sdcard",
	"VOLUME_DEVICE":          "",
	"VOLUME_MOUNTPOINT":      "",
	"VOLUME_FSTYPE":          "vfat",
	"SENSOR_KIND":            SensorMPU6050,
	"SENSOR_I2C_BUS":         "",
	"SENSOR_I2C_ADDR":        "0x68",
	"SENSOR_SPI_DEVICE":      "",
	"SENSOR_CS_PIN":          "",
	"SENSOR_TEMP_SPI_DEVICE": "",
	"TEMP_OFFSET_C":          15.0,
	"DISPLAY_KIND":           DisplaySSD1306,
	"DISPLAY_I2C_BUS":        "",
	"CONSOLE_PORT":           "",
	"CONSOLE_BAUD":           115200,
	"CONSOLE_ECHO":           true,
	"BUTTON_MOUNT_PIN":       "",
	"BUTTON_RECORD_PIN":      "",
	"BUTTON_BOOT_PIN":        "",
	"LED_RED_PIN":            "",
	"LED_GREEN_PIN":          "",
	"LED_BLUE_PIN":           "",
	"BUZZER_PIN":             "",
	"BUZZER_FREQ_HZ":         3500,
	"RTC_INIT":               RTCSystem,
	"MQTT_BROKER":            "",
	"MQTT_CLIENT_ID":         "datalogger",
	"MQTT_TOPIC_PREFIX":      "datalogger",
	"WEB_SERVER_PORT":        8080,
	"REPROGRAM_COMMAND":      "",
}

// Package-level singleton. InitGlobal sets it once, Get reads it.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the KEY=VALUE configuration file and returns a validated
// Config. An empty path yields defaults plus environment overrides.
func Load(configPath string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), configPath)
}

// LoadFs is Load against an explicit filesystem.
func LoadFs(fs afero.Fs, configPath string) (*Config, error) {
	v := newViper(fs)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.New().Wrap(errors.ErrReadConfig, err)
		}
	}

	for _, key := range v.AllKeys() {
		if _, ok := defaults[strings.ToUpper(key)]; !ok {
			return nil, errors.New().WithData(errors.ErrInvalidConfig, fmt.Sprintf("unknown config key: %q", strings.ToUpper(key)))
		}
	}

	cfg := &Config{}
	keys := make([]string, 0, len(defaults))
	for key := range defaults {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := cfg.setValue(key, strings.TrimSpace(v.GetString(key))); err != nil {
			return nil, errors.New().Wrap(errors.ErrInvalidConfig, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, errors.New().Wrap(errors.ErrInvalidConfig, err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given and no
// environment overrides are set.
func Default() *Config {
	cfg := &Config{}
	for key, value := range defaults {
		if err := cfg.setValue(key, fmt.Sprint(value)); err != nil {
			panic(err)
		}
	}
	return cfg
}

func newViper(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	v.SetEnvPrefix(EnvPrefix)
	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}
	return v
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// Timing
	case "SAMPLE_PERIOD_MS":
		c.SamplePeriodMs, err = parseMillis(key, value)
	case "MAX_SAMPLES":
		c.MaxSamples, err = parseMillis(key, value)
	case "LOOP_INTERVAL_MS":
		c.LoopIntervalMs, err = parseMillis(key, value)
	case "DEBOUNCE_MS":
		c.DebounceMs, err = parseMillis(key, value)
	case "MESSAGE_TIMEOUT_MS":
		c.MessageTimeoutMs, err = parseMillis(key, value)
	case "DISPLAY_REFRESH_MS":
		c.DisplayRefreshMs, err = parseMillis(key, value)

	// Storage
	case "VOLUME_NAME":
		c.VolumeName = value
	case "VOLUME_BACKEND":
		c.VolumeBackend = value
	case "VOLUME_DIR":
		c.VolumeDir = value
	case "VOLUME_DEVICE":
		c.VolumeDevice = value
	case "VOLUME_MOUNTPOINT":
		c.VolumeMountpoint = value
	case "VOLUME_FSTYPE":
		c.VolumeFSType = value

	// Motion sensor
	case "SENSOR_KIND":
		c.SensorKind = value
	case "SENSOR_I2C_BUS":
		c.SensorI2CBus = value
	case "SENSOR_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid SENSOR_I2C_ADDR %q: %w", value, perr)
		}
		c.SensorI2CAddr = uint16(addr)
	case "SENSOR_SPI_DEVICE":
		c.SensorSPIDevice = value
	case "SENSOR_CS_PIN":
		c.SensorCSPin = value
	case "SENSOR_TEMP_SPI_DEVICE":
		c.SensorTempSPIDevice = value
	case "TEMP_OFFSET_C":
		c.TempOffsetC, err = strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid TEMP_OFFSET_C %q: %w", value, err)
		}

	// Display
	case "DISPLAY_KIND":
		c.DisplayKind = value
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value

	// Console
	case "CONSOLE_PORT":
		c.ConsolePort = value
	case "CONSOLE_BAUD":
		baud, perr := strconv.ParseUint(value, 10, 32)
		if perr != nil {
			return fmt.Errorf("invalid CONSOLE_BAUD %q: %w", value, perr)
		}
		c.ConsoleBaud = uint(baud)
	case "CONSOLE_ECHO":
		c.ConsoleEcho, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid CONSOLE_ECHO %q: %w", value, err)
		}

	// Buttons
	case "BUTTON_MOUNT_PIN":
		c.ButtonMountPin = value
	case "BUTTON_RECORD_PIN":
		c.ButtonRecordPin = value
	case "BUTTON_BOOT_PIN":
		c.ButtonBootPin = value

	// LED and buzzer
	case "LED_RED_PIN":
		c.LEDRedPin = value
	case "LED_GREEN_PIN":
		c.LEDGreenPin = value
	case "LED_BLUE_PIN":
		c.LEDBluePin = value
	case "BUZZER_PIN":
		c.BuzzerPin = value
	case "BUZZER_FREQ_HZ":
		c.BuzzerFreqHz, err = strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BUZZER_FREQ_HZ %q: %w", value, err)
		}

	case "RTC_INIT":
		c.RTCInit = value

	// Telemetry
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_TOPIC_PREFIX":
		c.MQTTTopicPrefix = strings.TrimSuffix(value, "/")
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}

	case "REPROGRAM_COMMAND":
		c.ReprogramCommand = value

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseMillis(key, value string) (uint32, error) {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return uint32(n), nil
}

// validate checks ranges and the fields each selected backend requires.
func (c *Config) validate() error {
	if c.SamplePeriodMs == 0 {
		return fmt.Errorf("SAMPLE_PERIOD_MS must be positive")
	}
	if c.MaxSamples == 0 {
		return fmt.Errorf("MAX_SAMPLES must be positive")
	}
	if c.LoopIntervalMs == 0 {
		return fmt.Errorf("LOOP_INTERVAL_MS must be positive")
	}
	if c.DisplayRefreshMs == 0 {
		return fmt.Errorf("DISPLAY_REFRESH_MS must be positive")
	}
	if c.VolumeName == "" {
		return fmt.Errorf("VOLUME_NAME is required")
	}

	switch c.VolumeBackend {
	case BackendDir:
		if c.VolumeDir == "" {
			return fmt.Errorf("VOLUME_DIR is required for the %q backend", BackendDir)
		}
	case BackendBlock:
		if c.VolumeDevice == "" || c.VolumeMountpoint == "" {
			return fmt.Errorf("VOLUME_DEVICE and VOLUME_MOUNTPOINT are required for the %q backend", BackendBlock)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("VOLUME_BACKEND must be %q, %q or %q, got %q", BackendDir, BackendBlock, BackendMemory, c.VolumeBackend)
	}

	switch c.SensorKind {
	case SensorMPU6050, SensorMock:
	case SensorMPU9250:
		if c.SensorSPIDevice == "" {
			return fmt.Errorf("SENSOR_SPI_DEVICE is required for %q", SensorMPU9250)
		}
	default:
		return fmt.Errorf("SENSOR_KIND must be %q, %q or %q, got %q", SensorMPU6050, SensorMPU9250, SensorMock, c.SensorKind)
	}

	switch c.DisplayKind {
	case DisplaySSD1306, DisplayLog:
	default:
		return fmt.Errorf("DISPLAY_KIND must be %q or %q, got %q", DisplaySSD1306, DisplayLog, c.DisplayKind)
	}

	switch c.RTCInit {
	case RTCSystem, RTCUnset:
	default:
		if _, err := clock.ParseRTCInit(c.RTCInit); err != nil {
			return fmt.Errorf("RTC_INIT must be %q, %q or DD/MM/YY HH:MM:SS, got %q", RTCSystem, RTCUnset, c.RTCInit)
		}
	}

	if c.BuzzerFreqHz <= 0 {
		return fmt.Errorf("BUZZER_FREQ_HZ must be positive")
	}
	if c.MQTTBroker != "" && c.MQTTClientID == "" {
		return fmt.Errorf("MQTT_CLIENT_ID is required when MQTT_BROKER is set")
	}

	return nil
}

// InitGlobal initializes the global configuration from file. Only the
// first call has any effect.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
