// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package csvlog

import (
	"fmt"
	"strconv"
	"time"

	"github.com/relabs-tech/imu_logger/internal/imu"
)

const (
	dateLayout = "02/01/06"
	timeLayout = "15:04:05"

	unsetDate = "00/00/00"
	unsetTime = "00:00:00"

	// FallbackFileName is used when the wall clock is unset.
	FallbackFileName = "data_fallback.csv"
)

// Columns is the fixed column order of every log file.
var Columns = []string{
	"Date", "Time", "Sample",
	"AccX", "AccY", "AccZ",
	"GyroX", "GyroY", "GyroZ",
	"Temperature",
}

// SampleRecord is one logged row. It is built, written once and dropped.
type SampleRecord struct {
	Time    time.Time
	Stamped bool // false when the wall clock was unset
	Seq     uint32
	Raw     imu.IMURaw
}

// NewRecord stamps raw with now. A zero now means the clock is unset and the
// row gets zeroed date and time fields.
func NewRecord(now time.Time, seq uint32, raw imu.IMURaw) SampleRecord {
	return SampleRecord{Time: now, Stamped: !now.IsZero(), Seq: seq, Raw: raw}
}

func (SampleRecord) CSVHeader() []string {
	return Columns
}

func (r *SampleRecord) CSVRow() []string {
	date, clk := unsetDate, unsetTime
	if r.Stamped {
		date = r.Time.Format(dateLayout)
		clk = r.Time.Format(timeLayout)
	}
	return []string{
		date, clk,
		strconv.FormatUint(uint64(r.Seq), 10),
		itoa(r.Raw.Ax), itoa(r.Raw.Ay), itoa(r.Raw.Az),
		itoa(r.Raw.Gx), itoa(r.Raw.Gy), itoa(r.Raw.Gz),
		strconv.FormatFloat(r.Raw.TempC, 'f', 2, 64),
	}
}

func itoa(v int16) string {
	return strconv.Itoa(int(v))
}

// FileName derives the session file name from its start time, e.g.
// data17102026083005.csv. A zero start yields FallbackFileName.
func FileName(start time.Time) string {
	if start.IsZero() {
		return FallbackFileName
	}
	return fmt.Sprintf("data%02d%02d%04d%02d%02d%02d.csv",
		start.Day(), int(start.Month()), start.Year(),
		start.Hour(), start.Minute(), start.Second())
}
