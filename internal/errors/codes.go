// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package errors

const (
	// Hardware and media errors. These end any active session.
	ErrMediaAbsent     ErrorCode = "media_absent"
	ErrMountFailed     ErrorCode = "mount_failed"
	ErrWriteFailed     ErrorCode = "write_failed"
	ErrSensorComm      ErrorCode = "sensor_comm_failed"
	ErrUnknownVolume   ErrorCode = "unknown_volume"
	ErrNotMounted      ErrorCode = "not_mounted"
	ErrFormatFailed    ErrorCode = "format_failed"
	ErrFilesystem      ErrorCode = "filesystem_error"
	ErrDisplayFailed   ErrorCode = "display_failed"
	ErrFeedbackFailed  ErrorCode = "feedback_failed"
	ErrTelemetryFailed ErrorCode = "telemetry_failed"

	// Interpreter errors. Local to a single command.
	ErrUnknownCommand  ErrorCode = "unknown_command"
	ErrMissingArgument ErrorCode = "missing_argument"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrSessionActive   ErrorCode = "session_active"

	// Clock
	ErrClockUnset ErrorCode = "clock_unset"

	// Configuration errors
	ErrInvalidConfig ErrorCode = "invalid_configuration"
	ErrReadConfig    ErrorCode = "read_config_failed"

	// Application errors
	ErrInitFailed ErrorCode = "initialization_failed"
	ErrReprogram  ErrorCode = "reprogram_requested"
	ErrInternal   ErrorCode = "internal_error"
)

// WriteFailure identifies which step of a row append failed. It is carried
// as the data of an ErrWriteFailed error.
type WriteFailure string

const (
	WriteNotMounted  WriteFailure = "not_mounted"
	WriteOpenFailed  WriteFailure = "open_failed"
	WriteShortWrite  WriteFailure = "short_write"
	WriteCloseFailed WriteFailure = "close_failed"
)

var errorMessages = map[ErrorCode]string{
	ErrMediaAbsent:     "Storage media not present",
	ErrMountFailed:     "Failed to mount volume",
	ErrWriteFailed:     "Failed to write log row",
	ErrSensorComm:      "Sensor communication failed",
	ErrUnknownVolume:   "Unknown volume",
	ErrNotMounted:      "Volume not mounted",
	ErrFormatFailed:    "Failed to format volume",
	ErrFilesystem:      "Filesystem operation failed",
	ErrDisplayFailed:   "Display update failed",
	ErrFeedbackFailed:  "LED or buzzer update failed",
	ErrTelemetryFailed: "Telemetry publish failed",
	ErrUnknownCommand:  "Unknown command",
	ErrMissingArgument: "Missing argument",
	ErrInvalidArgument: "Invalid argument provided",
	ErrSessionActive:   "Capture already active",
	ErrClockUnset:      "Real-time clock not set",
	ErrInvalidConfig:   "Invalid configuration",
	ErrReadConfig:      "Failed to read configuration",
	ErrInitFailed:      "Initialization failed",
	ErrReprogram:       "Reprogramming mode requested",
	ErrInternal:        "Internal error occurred",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}

// IsHardware reports whether the code belongs to the media/sensor class that
// aborts the in-flight operation and ends the active session.
func IsHardware(code ErrorCode) bool {
	switch code {
	case ErrMediaAbsent, ErrMountFailed, ErrWriteFailed, ErrSensorComm, ErrNotMounted:
		return true
	default:
		return false
	}
}
