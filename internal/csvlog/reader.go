// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package csvlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/relabs-tech/imu_logger/internal/imu"
	"github.com/spf13/afero"
)

// Log is a parsed log file.
type Log struct {
	Records []SampleRecord
}

// Read parses a log written by Writer. It checks the header, the column
// count of every row and that sequence numbers run 1..N without gaps.
func Read(r io.Reader) (*Log, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, name := range Columns {
		if header[i] != name {
			return nil, fmt.Errorf("header column %d: got %q, want %q", i+1, header[i], name)
		}
	}

	l := &Log{}
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec, err := parseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if want := uint32(len(l.Records) + 1); rec.Seq != want {
			return nil, fmt.Errorf("line %d: sample %d out of sequence, want %d", line, rec.Seq, want)
		}
		l.Records = append(l.Records, rec)
	}
	return l, nil
}

// ReadFile opens and parses name on fs.
func ReadFile(fs afero.Fs, name string) (*Log, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

func parseRow(f []string) (SampleRecord, error) {
	var rec SampleRecord

	if f[0] != unsetDate || f[1] != unsetTime {
		t, err := time.ParseInLocation(dateLayout+" "+timeLayout, f[0]+" "+f[1], time.Local)
		if err != nil {
			return rec, fmt.Errorf("timestamp: %w", err)
		}
		rec.Time, rec.Stamped = t, true
	}

	seq, err := strconv.ParseUint(f[2], 10, 32)
	if err != nil {
		return rec, fmt.Errorf("Sample: %w", err)
	}
	rec.Seq = uint32(seq)

	axes := make([]int16, 6)
	for i := range axes {
		v, err := strconv.ParseInt(f[3+i], 10, 16)
		if err != nil {
			return rec, fmt.Errorf("%s: %w", Columns[3+i], err)
		}
		axes[i] = int16(v)
	}
	temp, err := strconv.ParseFloat(f[9], 64)
	if err != nil {
		return rec, fmt.Errorf("Temperature: %w", err)
	}

	rec.Raw = imu.IMURaw{
		Ax: axes[0], Ay: axes[1], Az: axes[2],
		Gx: axes[3], Gy: axes[4], Gz: axes[5],
		TempC: temp,
	}
	return rec, nil
}

// ColumnStats summarises one numeric column.
type ColumnStats struct {
	Name           string
	Min, Max, Mean float64
}

// Summary describes a whole log.
type Summary struct {
	Samples     int
	First, Last time.Time // zero when rows are unstamped
	Columns     []ColumnStats
}

// Summarize computes per-column statistics for the numeric columns.
func (l *Log) Summarize() Summary {
	s := Summary{Samples: len(l.Records)}
	names := Columns[3:]
	stats := make([]ColumnStats, len(names))
	for i, name := range names {
		stats[i] = ColumnStats{Name: name, Min: math.Inf(1), Max: math.Inf(-1)}
	}

	for _, r := range l.Records {
		if r.Stamped {
			if s.First.IsZero() {
				s.First = r.Time
			}
			s.Last = r.Time
		}
		values := []float64{
			float64(r.Raw.Ax), float64(r.Raw.Ay), float64(r.Raw.Az),
			float64(r.Raw.Gx), float64(r.Raw.Gy), float64(r.Raw.Gz),
			r.Raw.TempC,
		}
		for i, v := range values {
			stats[i].Min = math.Min(stats[i].Min, v)
			stats[i].Max = math.Max(stats[i].Max, v)
			stats[i].Mean += v
		}
	}

	if s.Samples > 0 {
		for i := range stats {
			stats[i].Mean /= float64(s.Samples)
		}
		s.Columns = stats
	}
	return s
}
