/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package srverr implements the module-wide error-code convention: every
// package declares a block of CodeError constants with a package-scoped
// minimum and registers a message function, so that an error can be
// logged or compared by code without string matching.
package srverr

import "fmt"

// CodeError identifies an error condition by package and ordinal.
type CodeError uint32

// Message renders a human-readable description of a CodeError.
type Message func(code CodeError) string

const (
	// MinPkgRequest and friends reserve a 1000-wide band per package so
	// codes never collide when packages are logged or compared together.
	MinPkgRequest CodeError = (iota + 1) * 1000
	MinPkgLimits
	MinPkgFilter
	MinPkgValueCache
	MinPkgFastpath
	MinPkgReactor
	MinPkgDriver
	MinPkgWorkerPool
	MinPkgADP
	MinPkgServer
	MinPkgConfig
)

var registry = map[CodeError]Message{}

// RegisterMessages attaches a message function to every code in [min, min+999].
func RegisterMessages(min CodeError, fct Message) {
	registry[min] = fct
}

func lookup(c CodeError) Message {
	band := (c / 1000) * 1000
	return registry[band]
}

// Error wraps a CodeError with an optional parent error.
type Error interface {
	error
	Code() CodeError
	Unwrap() error
}

type codedErr struct {
	code   CodeError
	parent error
}

func (e *codedErr) Code() CodeError { return e.code }
func (e *codedErr) Unwrap() error   { return e.parent }

func (e *codedErr) Error() string {
	msg := e.code.String()

	if e.parent != nil {
		return fmt.Sprintf("%s: %v", msg, e.parent)
	}

	return msg
}

// String renders the registered message for the code, or a numeric fallback.
func (c CodeError) String() string {
	if fct := lookup(c); fct != nil {
		if m := fct(c); m != "" {
			return m
		}
	}

	return fmt.Sprintf("error code %d", uint32(c))
}

// Error builds an Error with an optional wrapped parent.
func (c CodeError) Error(parent error) Error {
	return &codedErr{code: c, parent: parent}
}

// Errorf builds an Error from a formatted message, wrapped as the parent.
func (c CodeError) Errorf(format string, args ...any) Error {
	return &codedErr{code: c, parent: fmt.Errorf(format, args...)}
}
