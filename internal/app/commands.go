// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"os"

	"github.com/relabs-tech/imu_logger/internal/console"
	"github.com/relabs-tech/imu_logger/internal/csvlog"
	"github.com/relabs-tech/imu_logger/internal/errors"
	"github.com/spf13/afero"
)

// handlers binds every console command kind to a method of the loop.
func (l *Loop) handlers() map[console.Kind]console.Handler {
	return map[console.Kind]console.Handler{
		console.CmdSetRTC:  l.cmdSetRTC,
		console.CmdFormat:  l.cmdFormat,
		console.CmdMount:   l.cmdMount,
		console.CmdUnmount: l.cmdUnmount,
		console.CmdGetFree: l.cmdGetFree,
		console.CmdLs:      l.cmdLs,
		console.CmdCat:     l.cmdCat,
		console.CmdCapture: l.cmdCapture,
		console.CmdHelp:    l.cmdHelp,
	}
}

func (l *Loop) cmdSetRTC(args *console.Args) error {
	var fields [6]int
	names := [6]string{"day", "month", "year", "hour", "minute", "second"}
	for i, name := range names {
		v, err := args.Int(name)
		if err != nil {
			return err
		}
		fields[i] = v
	}

	if err := l.rtc.SetFields(fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]); err != nil {
		return err
	}
	now, _ := l.rtc.Now()
	fmt.Fprintf(l.out, "RTC set to %s\n", now.Format("02/01/2006 15:04:05"))
	l.notify("RTC updated")
	return nil
}

func (l *Loop) cmdFormat(args *console.Args) error {
	name := args.Optional(l.vols.Default())
	if l.endSessionOn(name, csvlog.EndFormatted) {
		fmt.Fprintln(l.out, "Capture stopped: volume formatted")
	}

	fmt.Fprintf(l.out, "Formatting %s...\n", name)
	err := l.vols.Format(name)
	l.agg.SetWantMounted(l.defaultMounted())
	if err != nil {
		return err
	}
	fmt.Fprintln(l.out, "Format completed")
	l.notify("Format completed")
	return nil
}

func (l *Loop) cmdMount(args *console.Args) error {
	name := args.Optional(l.vols.Default())
	if err := l.mountVolume(name); err != nil {
		return err
	}
	fmt.Fprintf(l.out, "%s mounted\n", name)
	return nil
}

func (l *Loop) cmdUnmount(args *console.Args) error {
	name := args.Optional(l.vols.Default())
	if err := l.unmountVolume(name); err != nil {
		return err
	}
	fmt.Fprintf(l.out, "%s unmounted\n", name)
	return nil
}

func (l *Loop) cmdGetFree(args *console.Args) error {
	name := args.Optional(l.vols.Default())
	total, free, err := l.vols.FreeSpace(name)
	if err != nil {
		return err
	}
	fmt.Fprintf(l.out, "%d KiB total drive space.\n%d KiB available.\n", total, free)
	return nil
}

func (l *Loop) cmdLs(args *console.Args) error {
	name, rel := l.vols.Resolve(args.Optional(""))
	fs, err := l.vols.Verify(name)
	if err != nil {
		return err
	}

	entries, err := afero.ReadDir(fs, rel)
	if err != nil {
		return l.errs.Wrap(errors.ErrFilesystem, err).WithData(rel)
	}

	label := name
	if rel != "." {
		label += "/" + rel
	}
	fmt.Fprintf(l.out, "Directory listing: %s\n", label)
	for _, e := range entries {
		fmt.Fprintf(l.out, "%s [%s] [size=%d]\n", e.Name(), entryTag(e), e.Size())
	}
	return nil
}

func entryTag(fi os.FileInfo) string {
	switch {
	case fi.IsDir():
		return "directory"
	case fi.Mode().Perm()&0o200 == 0:
		return "read-only file"
	default:
		return "writable file"
	}
}

func (l *Loop) cmdCat(args *console.Args) error {
	path, err := args.Required("path")
	if err != nil {
		return err
	}
	name, rel := l.vols.Resolve(path)
	fs, err := l.vols.Verify(name)
	if err != nil {
		return err
	}

	f, err := fs.Open(rel)
	if err != nil {
		return l.errs.Wrap(errors.ErrFilesystem, err).WithData(rel)
	}
	defer f.Close()

	n, err := io.Copy(l.out, f)
	if err != nil {
		return l.errs.Wrap(errors.ErrFilesystem, err).WithData(rel)
	}
	if n > 0 {
		fmt.Fprintln(l.out)
	}
	return nil
}

func (l *Loop) cmdCapture(*console.Args) error {
	return l.startSession()
}

func (l *Loop) cmdHelp(*console.Args) error {
	l.table.WriteHelp(l.out)
	return nil
}
