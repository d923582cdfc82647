// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/relabs-tech/imu_logger/internal/csvlog"
	"github.com/spf13/afero"
)

// RunInspect reads a log file back, checks it and prints a summary.
func RunInspect(fs afero.Fs, path string, out io.Writer) error {
	lg, err := csvlog.ReadFile(fs, path)
	if err != nil {
		return err
	}
	s := lg.Summarize()

	fmt.Fprintf(out, "File:    %s\n", path)
	fmt.Fprintf(out, "Samples: %d\n", s.Samples)
	if s.First.IsZero() {
		fmt.Fprintln(out, "Span:    unstamped (clock was unset)")
	} else {
		fmt.Fprintf(out, "Span:    %s - %s (%s)\n",
			s.First.Format("02/01/2006 15:04:05"),
			s.Last.Format("02/01/2006 15:04:05"),
			s.Last.Sub(s.First))
	}
	if s.Samples == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Column\tMin\tMax\tMean\t")
	for _, c := range s.Columns {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t\n", c.Name, c.Min, c.Max, c.Mean)
	}
	return tw.Flush()
}
