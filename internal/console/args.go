// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package console

import (
	"strconv"
	"strings"

	"github.com/relabs-tech/imu_logger/internal/errors"
)

// Args hands out the tokens after the command name, in order.
type Args struct {
	tokens []string
	pos    int
}

// NewArgs tokenizes line on whitespace.
func NewArgs(line string) *Args {
	return &Args{tokens: strings.Fields(line)}
}

// Next returns the next token, if any.
func (a *Args) Next() (string, bool) {
	if a.pos >= len(a.tokens) {
		return "", false
	}
	tok := a.tokens[a.pos]
	a.pos++
	return tok, true
}

// Optional returns the next token or def.
func (a *Args) Optional(def string) string {
	if tok, ok := a.Next(); ok {
		return tok
	}
	return def
}

// Required returns the next token or an ErrMissingArgument naming it.
func (a *Args) Required(name string) (string, error) {
	tok, ok := a.Next()
	if !ok {
		return "", errors.New().WithData(errors.ErrMissingArgument, name)
	}
	return tok, nil
}

// Int reads a required decimal integer.
func (a *Args) Int(name string) (int, error) {
	tok, err := a.Required(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errors.New().WithData(errors.ErrInvalidArgument, name+"="+tok)
	}
	return v, nil
}

// Remaining reports how many tokens are left.
func (a *Args) Remaining() int {
	return len(a.tokens) - a.pos
}
