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

package adp

import (
	"bytes"
	"io"
)

// Exception mirrors the original's adp.exception: the non-local control
// flow a script block, tag handler, or nested Include can raise.
type Exception uint8

const (
	// OK is normal completion; evaluation continues to the next block.
	OK Exception = iota
	// Return stops the current frame only; an Include absorbs it and
	// reports success to its caller (NsAdpInclude's ADP_RETURN case).
	Return
	// Break stops the current frame and propagates to every ancestor.
	Break
	// Abort stops the entire request, propagating through every frame.
	Abort
	// Overflow is raised when Evaluator's MaxDepth is exceeded by a nested
	// Include.
	Overflow
)

// Frame is one activation of the evaluator: either the top-level page or
// one nested Include, mirroring the per-file fields NsAdpInclude pushes
// and pops around itPtr->adp (file, cwd, argv, depth) plus the frame's own
// output buffer, which Include copies into the parent frame's buffer when
// the nested frame finishes.
type Frame struct {
	File string
	Cwd  string
	Argv []string

	Output bytes.Buffer

	Exception Exception
	Depth     int

	Mimetype string
	Charset  string

	// DebugInfo carries the original's adp_debuglevel-style payload
	// (e.g. parsed include stack), opaque to this package.
	DebugInfo any

	// Stream, once true, makes Flush emit and truncate the buffer instead
	// of accumulating it for a single response write
	// (Ns_ConnSetRequiredCompress / "stream=on" NSD equivalent).
	Stream bool

	headersSent bool
}

// NewFrame returns a Frame for file, rooted at cwd, with argv available to
// script blocks as the include's invocation arguments.
func NewFrame(file, cwd string, argv []string) *Frame {
	return &Frame{File: file, Cwd: cwd, Argv: argv}
}

// Reset restores a Frame to a fresh, reusable state between requests, the
// Go equivalent of the original zeroing itPtr->adp per connection.
func (f *Frame) Reset() {
	f.Output.Reset()
	f.Exception = OK
	f.Depth = 0
	f.Mimetype = ""
	f.Charset = ""
	f.DebugInfo = nil
	f.Stream = false
	f.headersSent = false
}

// Flush writes the buffered output to w, invoking emitHeaders exactly once
// beforehand. When Stream is true the buffer is truncated after the write
// so subsequent Flush calls emit only newly appended output; otherwise the
// buffer is left intact for a final single write.
func (f *Frame) Flush(w io.Writer, emitHeaders func() error) error {
	if !f.headersSent {
		if emitHeaders != nil {
			if err := emitHeaders(); err != nil {
				return err
			}
		}
		f.headersSent = true
	}

	if f.Output.Len() == 0 {
		return nil
	}

	if _, err := w.Write(f.Output.Bytes()); err != nil {
		return err
	}
	if f.Stream {
		f.Output.Reset()
	}
	return nil
}
