// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package console implements the line-oriented operator console: a small
// line editor, a tokenizer and a table of named commands.
package console

import (
	"fmt"
	"io"

	"github.com/relabs-tech/imu_logger/internal/errors"
)

// MaxLine is the longest command line kept; extra characters are dropped.
const MaxLine = 255

const (
	keyBackspace = 0x08
	keyDelete    = 0x7F
)

// State of the line editor.
type State int

const (
	Collecting State = iota
	Dispatching
)

// Interpreter collects characters into a line and dispatches complete lines
// through its Table. It is driven one byte at a time by the control loop.
type Interpreter struct {
	table  *Table
	out    io.Writer
	echo   bool
	notify func(string)

	buf    []byte
	state  State
	lastCR bool
}

// NewInterpreter returns an interpreter writing to out. notify receives a
// short message for every failed command; it may be nil.
func NewInterpreter(table *Table, out io.Writer, echo bool, notify func(string)) *Interpreter {
	if notify == nil {
		notify = func(string) {}
	}
	return &Interpreter{
		table:  table,
		out:    out,
		echo:   echo,
		notify: notify,
		buf:    make([]byte, 0, MaxLine),
	}
}

func (in *Interpreter) State() State {
	return in.state
}

// Line returns the characters collected so far.
func (in *Interpreter) Line() string {
	return string(in.buf)
}

// Prompt prints the input prompt.
func (in *Interpreter) Prompt() {
	fmt.Fprint(in.out, "> ")
}

// Feed handles one input byte. A carriage return or newline dispatches the
// line and returns the command's error; other bytes return nil.
func (in *Interpreter) Feed(c byte) error {
	wasCR := in.lastCR
	in.lastCR = c == '\r'

	switch {
	case c == '\r', c == '\n':
		if c == '\n' && wasCR {
			return nil
		}
		if in.echo {
			fmt.Fprint(in.out, "\n")
		}
		line := string(in.buf)
		in.buf = in.buf[:0]
		return in.Dispatch(line)

	case c == keyBackspace || c == keyDelete:
		if len(in.buf) > 0 {
			in.buf = in.buf[:len(in.buf)-1]
			if in.echo {
				fmt.Fprint(in.out, "\b \b")
			}
		}

	case c == '\t':
		in.appendByte(' ')

	case c >= 0x20 && c < 0x7F:
		in.appendByte(c)
	}
	return nil
}

func (in *Interpreter) appendByte(c byte) {
	if len(in.buf) >= MaxLine {
		return
	}
	in.buf = append(in.buf, c)
	if in.echo {
		in.out.Write([]byte{c})
	}
}

// Dispatch runs one complete line. The line buffer is always empty
// afterwards, whether or not a command matched.
func (in *Interpreter) Dispatch(line string) error {
	in.state = Dispatching
	defer func() {
		in.buf = in.buf[:0]
		in.state = Collecting
		in.Prompt()
	}()

	args := NewArgs(line)
	name, ok := args.Next()
	if !ok {
		return nil
	}

	run, _, ok := in.table.Lookup(name)
	if !ok {
		err := errors.New().WithData(errors.ErrUnknownCommand, name)
		fmt.Fprintf(in.out, "Unknown command: %s\n", name)
		in.notify("Unknown command")
		return err
	}

	if err := run(args); err != nil {
		fmt.Fprintf(in.out, "Error: %v\n", err)
		msg := "Command failed"
		if code := errors.CodeOf(err); code != "" {
			msg = errors.GetErrorMessage(code)
		}
		in.notify(msg)
		return err
	}
	return nil
}
