// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"sync"
)

// =============================================================================
// BUBBLE TEA MESSAGES
// =============================================================================

// redrawMsg asks the program for a repaint after session state changed.
type redrawMsg struct{}

// focusMsg brings a calibrated range into view.
type focusMsg struct{ lo, hi float64 }

// logMsg signals that the message log grew.
type logMsg struct{}

// =============================================================================
// WINDOW
// =============================================================================

// Window adapts the session's display contract onto a running program.
// The session calls it from command handlers (inside Update) and from
// the file watcher goroutine, so everything goes through program.Send.
type Window struct {
	mu   sync.Mutex
	send func(msg any)
}

// Attach connects the window to a running program's Send function.
func (w *Window) Attach(send func(msg any)) {
	w.mu.Lock()
	w.send = send
	w.mu.Unlock()
}

func (w *Window) post(msg any) {
	w.mu.Lock()
	send := w.send
	w.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (w *Window) Redraw()              { w.post(redrawMsg{}) }
func (w *Window) Focus(lo, hi float64) { w.post(focusMsg{lo: lo, hi: hi}) }

// =============================================================================
// MESSAGE LOG
// =============================================================================

// Level classifies a log line for styling.
type Level int

const (
	LevelMsg Level = iota
	LevelWarn
	LevelError
)

// Line is one entry in the message log.
type Line struct {
	Level Level
	Text  string
}

// MessageLog is the session.Messenger of the TUI. It buffers lines
// until a program is attached, so startup messages are not lost.
type MessageLog struct {
	mu    sync.Mutex
	lines []Line
	send  func(msg any)
}

// NewMessageLog creates an empty log.
func NewMessageLog() *MessageLog {
	return &MessageLog{}
}

// Attach connects the log to a running program's Send function.
func (l *MessageLog) Attach(send func(msg any)) {
	l.mu.Lock()
	l.send = send
	l.mu.Unlock()
}

func (l *MessageLog) append(level Level, format string, args ...any) {
	l.mu.Lock()
	l.lines = append(l.lines, Line{Level: level, Text: fmt.Sprintf(format, args...)})
	send := l.send
	l.mu.Unlock()
	if send != nil {
		send(logMsg{})
	}
}

func (l *MessageLog) Msg(format string, args ...any)   { l.append(LevelMsg, format, args...) }
func (l *MessageLog) Warn(format string, args ...any)  { l.append(LevelWarn, format, args...) }
func (l *MessageLog) Error(format string, args ...any) { l.append(LevelError, format, args...) }

// Lines returns a snapshot of the log.
func (l *MessageLog) Lines() []Line {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Line(nil), l.lines...)
}
