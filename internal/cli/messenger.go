// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// Messenger prints session messages to the terminal, warnings and
// errors in color when the terminal supports it.
type Messenger struct {
	out   io.Writer
	color bool
}

// NewMessenger creates a messenger writing to out.
func NewMessenger(out io.Writer, color bool) *Messenger {
	return &Messenger{out: out, color: color}
}

func (m *Messenger) Msg(format string, args ...any) {
	fmt.Fprintf(m.out, format+"\n", args...)
}

func (m *Messenger) Warn(format string, args ...any) {
	m.printColored(termenv.ANSIYellow, format, args...)
}

func (m *Messenger) Error(format string, args ...any) {
	m.printColored(termenv.ANSIRed, format, args...)
}

func (m *Messenger) printColored(c termenv.Color, format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	if m.color {
		text = termenv.String(text).Foreground(c).String()
	}
	fmt.Fprintln(m.out, text)
}
