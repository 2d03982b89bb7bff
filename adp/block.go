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

// Package adp implements the §4.H ADP template core: a two-pass parser
// lowering a text/script-mixed template into a block stream
// (nsd/adpparse.c's NsAdpParse/Parse/AppendBlock), and a request-time
// evaluator that drives it, honoring the RETURN/BREAK/ABORT/OVERFLOW
// exceptions and streaming output (nsd/adprequest.c's NsAdpEval/
// NsAdpInclude).
package adp

// BlockKind distinguishes what a Block does when the evaluator reaches it.
type BlockKind uint8

const (
	// Text is verbatim output, appended to the frame buffer as-is.
	Text BlockKind = iota
	// Script is a <% ... %> region: evaluated for side effects only: its
	// result, if any, is discarded (the reverse of Expr).
	Script
	// Expr is a <%= ... %> region: evaluated and its result appended to
	// the output buffer ("wraps its body in an append-result call").
	Expr
	// Tag is a registered-tag invocation (proc-tag or adp-tag): its
	// handler's result is appended to the output buffer the same way an
	// Expr's is, per AppendTag's "ns_adp_append [...]" wrapping of every
	// registered tag call regardless of its Type.
	Tag
	// EnableStream is an implicit block the parser synthesizes the first
	// time it sees a <script runat=server stream=on> region, turning on
	// Frame.Stream before the script block that follows it runs.
	EnableStream
)

// Block is one element of a compiled page's block stream.
type Block struct {
	Kind BlockKind

	// Text holds verbatim output for Text, source for Script/Expr.
	Text string

	// TagName, Attrs and Body are populated for Kind == Tag: TagName is
	// the lowercased registered name, Attrs its parsed attribute set,
	// and Body the inner text for a paired tag (empty for a no-end-tag
	// registration).
	TagName string
	Attrs   map[string]string
	Body    string
}

// Page is a compiled template: the block stream NsAdpParse produces. Unlike
// the original's parallel length header (a micro-optimization for
// iterating one flat C buffer), a Go slice of Block already gives O(1)
// length and cheap iteration, so there is nothing to replicate here.
type Page struct {
	Blocks []Block
}
