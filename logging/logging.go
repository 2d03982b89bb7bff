/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package logging is the structured logging sink shared by every component
// of the runtime. It wraps logrus the way the teacher library wraps it:
// a small Level type, an injectable *Logger per component (never a package
// global), and a colorized console hook for interactive use.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
)

// Level mirrors the handful of severities the runtime actually emits.
type Level uint8

const (
	ErrorLevel Level = iota
	WarnLevel
	InfoLevel
	DebugLevel
)

func (l Level) logrus() logrus.Level {
	switch l {
	case ErrorLevel:
		return logrus.ErrorLevel
	case WarnLevel:
		return logrus.WarnLevel
	case DebugLevel:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel accepts the §6 config surface's free-form level string.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return ErrorLevel
	case "warn", "warning":
		return WarnLevel
	case "debug":
		return DebugLevel
	default:
		return InfoLevel
	}
}

// Logger is the component-facing logging handle. Components hold one of
// these (injected, never a global) and attach fields for the entity they
// are reporting about (server name, connection id, worker id...).
type Logger struct {
	entry *logrus.Entry
}

// FuncLog constructs or returns a Logger lazily, mirroring the teacher's
// liblog.FuncLog injection pattern used across httpserver/config components.
type FuncLog func() *Logger

// New returns a Logger writing to w (os.Stdout when nil, wrapped
// for ANSI color support on terminals) at the given minimum level.
func New(w io.Writer, lvl Level) *Logger {
	if w == nil {
		if color.NoColor {
			w = os.Stdout
		} else {
			w = colorable.NewColorableStdout()
		}
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl.logrus())
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	return &Logger{entry: logrus.NewEntry(l)}
}

// Nop returns a Logger that discards everything, used as a safe default
// before a real logger is wired (mirrors the teacher's pre-bootstrap logger).
func Nop() *Logger {
	return New(io.Discard, ErrorLevel)
}

// With returns a child Logger carrying an additional structured field.
func (lg *Logger) With(key string, val any) *Logger {
	if lg == nil {
		return Nop().With(key, val)
	}
	return &Logger{entry: lg.entry.WithField(key, val)}
}

// WithFields returns a child Logger carrying several structured fields.
func (lg *Logger) WithFields(fields map[string]any) *Logger {
	if lg == nil {
		return Nop().WithFields(fields)
	}
	return &Logger{entry: lg.entry.WithFields(fields)}
}

func (lg *Logger) log(lvl Level, msg string) {
	if lg == nil {
		return
	}
	lg.entry.Log(lvl.logrus(), msg)
}

func (lg *Logger) Errorf(format string, args ...any) { lg.log(ErrorLevel, fmt.Sprintf(format, args...)) }
func (lg *Logger) Warnf(format string, args ...any)  { lg.log(WarnLevel, fmt.Sprintf(format, args...)) }
func (lg *Logger) Infof(format string, args ...any)  { lg.log(InfoLevel, fmt.Sprintf(format, args...)) }
func (lg *Logger) Debugf(format string, args ...any) { lg.log(DebugLevel, fmt.Sprintf(format, args...)) }
