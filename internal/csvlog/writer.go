// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package csvlog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/spf13/afero"
)

// Volumes is the part of the storage manager the writer needs: a mounted
// filesystem, checked fresh on every call.
type Volumes interface {
	Verify(name string) (afero.Fs, error)
}

// Writer appends rows to the active session's file. Every row is a
// separate open, write, sync and close, so a failure never leaves a
// half-open file behind.
type Writer struct {
	vols Volumes
	errs errors.Factory
}

func NewWriter(vols Volumes) *Writer {
	return &Writer{vols: vols, errs: errors.New()}
}

// WriteHeader creates or truncates the session file and writes the column
// header. The header does not count towards the sample limit.
func (w *Writer) WriteHeader(s *Session) error {
	var rec SampleRecord
	return w.writeLine(s, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, rec.CSVHeader())
}

// AppendSample writes one row. Any failure is final for the session; the
// caller must not retry.
func (w *Writer) AppendSample(s *Session, rec *SampleRecord) error {
	return w.writeLine(s, os.O_WRONLY|os.O_CREATE|os.O_APPEND, rec.CSVRow())
}

func (w *Writer) writeLine(s *Session, flag int, fields []string) error {
	if !s.Active() {
		return w.errs.WithMessage(errors.ErrInternal, "no active session")
	}

	fs, err := w.vols.Verify(s.Volume)
	if err != nil {
		return w.fail(errors.WriteNotMounted, err)
	}

	line, err := encodeLine(fields)
	if err != nil {
		return w.fail(errors.WriteShortWrite, err)
	}

	f, err := fs.OpenFile(s.File, flag, 0o644)
	if err != nil {
		return w.fail(errors.WriteOpenFailed, err)
	}

	n, err := f.Write(line)
	if err == nil && n != len(line) {
		err = fmt.Errorf("wrote %d of %d bytes", n, len(line))
	}
	if err != nil {
		f.Close()
		return w.fail(errors.WriteShortWrite, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return w.fail(errors.WriteCloseFailed, fmt.Errorf("sync: %w", err))
	}
	if err := f.Close(); err != nil {
		return w.fail(errors.WriteCloseFailed, err)
	}
	return nil
}

func (w *Writer) fail(kind errors.WriteFailure, err error) error {
	return w.errs.Wrap(errors.ErrWriteFailed, err).WithData(kind)
}

func encodeLine(fields []string) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(fields); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
