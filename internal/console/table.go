// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package console

import (
	"fmt"
	"io"
)

// Kind tags a console command.
type Kind int

const (
	CmdSetRTC Kind = iota
	CmdFormat
	CmdMount
	CmdUnmount
	CmdGetFree
	CmdLs
	CmdCat
	CmdCapture
	CmdHelp
)

// Spec is the static part of a command: its name, usage and help text.
type Spec struct {
	Name  string
	Kind  Kind
	Usage string
	Help  string
}

// Commands lists every console command in help order. "ajuda" and "help"
// are two names for the same listing.
var Commands = []Spec{
	{Name: "setrtc", Kind: CmdSetRTC, Usage: "<DD> <MM> <YY> <hh> <mm> <ss>", Help: "Set the real-time clock"},
	{Name: "format", Kind: CmdFormat, Usage: "[<volume>]", Help: "Format the volume (default first volume)"},
	{Name: "mount", Kind: CmdMount, Usage: "[<volume>]", Help: "Mount the volume"},
	{Name: "unmount", Kind: CmdUnmount, Usage: "[<volume>]", Help: "Unmount the volume"},
	{Name: "getfree", Kind: CmdGetFree, Usage: "[<volume>]", Help: "Show total and free space"},
	{Name: "ls", Kind: CmdLs, Usage: "[<path>]", Help: "List directory entries"},
	{Name: "cat", Kind: CmdCat, Usage: "<path>", Help: "Print a file"},
	{Name: "i", Kind: CmdCapture, Help: "Start capturing samples"},
	{Name: "ajuda", Kind: CmdHelp, Help: "List commands"},
	{Name: "help", Kind: CmdHelp, Help: "List commands"},
}

// Handler runs one command. It pulls its arguments from args.
type Handler func(args *Args) error

type entry struct {
	Spec
	run Handler
}

// Table maps command names to handlers. Read-only once built.
type Table struct {
	entries []entry
	byName  map[string]int
}

// NewTable binds a handler to every spec by kind. A spec whose kind has no
// handler is a programming error.
func NewTable(specs []Spec, handlers map[Kind]Handler) (*Table, error) {
	t := &Table{byName: make(map[string]int, len(specs))}
	for _, s := range specs {
		h, ok := handlers[s.Kind]
		if !ok {
			return nil, fmt.Errorf("console: no handler for %q", s.Name)
		}
		if _, dup := t.byName[s.Name]; dup {
			return nil, fmt.Errorf("console: duplicate command %q", s.Name)
		}
		t.byName[s.Name] = len(t.entries)
		t.entries = append(t.entries, entry{Spec: s, run: h})
	}
	return t, nil
}

// Lookup matches name exactly and case-sensitively.
func (t *Table) Lookup(name string) (Handler, Spec, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, Spec{}, false
	}
	return t.entries[i].run, t.entries[i].Spec, true
}

// WriteHelp prints the command list.
func (t *Table) WriteHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	for _, e := range t.entries {
		name := e.Name
		if e.Usage != "" {
			name += " " + e.Usage
		}
		fmt.Fprintf(w, "  %-38s %s\n", name, e.Help)
	}
}
