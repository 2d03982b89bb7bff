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

// Package filter implements the filter/trace/cleanup pipeline of §4.E,
// recovered from nsd/filter.c (Ns_RegisterFilter, NsRunFilters,
// Ns_RegisterServerTrace, Ns_RegisterCleanup, NsRunTraces/NsRunCleanups).
package filter

import (
	"github.com/aolserver/aolserver-sub004/glob"
	"github.com/aolserver/aolserver-sub004/request"
)

// When is a bitmask of the pipeline phases a filter fires on.
type When int

const (
	PreAuth When = 1 << iota
	PostAuth
	Trace
)

// Status is a filter's return code; it also doubles as a handler's return
// code in the request lifecycle (§4.I step 6).
type Status int

const (
	OK Status = iota
	Break
	Return
	Error
)

// Proc is a registered filter/handler function. arg is the opaque value
// supplied at registration time.
type Proc func(conn *request.Connection, why When, arg any) Status

// TraceProc is a server-trace or cleanup function; it cannot alter the
// pipeline's outcome.
type TraceProc func(conn *request.Connection, arg any)

type filterEntry struct {
	method string
	url    string
	when   When
	proc   Proc
	arg    any
}

type traceEntry struct {
	proc TraceProc
	arg  any
}

// Pipeline holds the process-wide filter, server-trace, and cleanup lists.
// Registration is expected at startup before concurrent request traffic
// begins, matching the teacher's "writes during startup are unlocked"
// convention (§5) — Pipeline itself is not safe for concurrent Register
// calls, only for concurrent Run* calls.
type Pipeline struct {
	filters  []filterEntry
	traces   []traceEntry
	cleanups []traceEntry
}

// New returns an empty Pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// RegisterFilter appends a filter matching method/url globs for the given
// when-mask, in registration order.
func (p *Pipeline) RegisterFilter(method, url string, when When, proc Proc, arg any) {
	p.filters = append(p.filters, filterEntry{method: method, url: url, when: when, proc: proc, arg: arg})
}

// RegisterServerTrace appends a FIFO trace, run only after a successful
// handler completion.
func (p *Pipeline) RegisterServerTrace(proc TraceProc, arg any) {
	p.traces = append(p.traces, traceEntry{proc: proc, arg: arg})
}

// RegisterCleanup prepends a LIFO cleanup, run for every request regardless
// of outcome.
func (p *Pipeline) RegisterCleanup(proc TraceProc, arg any) {
	p.cleanups = append([]traceEntry{{proc: proc, arg: arg}}, p.cleanups...)
}

// RunFilters scans the filter list in registration order for the given
// phase, stopping at the first non-OK status. Break short-circuits to OK
// for the caller; during Trace, Return is likewise coerced to OK.
func (p *Pipeline) RunFilters(conn *request.Connection, why When) Status {
	status := OK

	for _, f := range p.filters {
		if f.when&why == 0 {
			continue
		}
		if conn.Request == nil {
			continue
		}
		if !glob.Match(f.method, conn.Request.Method) || !glob.Match(f.url, conn.Request.URL) {
			continue
		}

		status = f.proc(conn, why, f.arg)
		if status != OK {
			break
		}
	}

	if status == Break || (why == Trace && status == Return) {
		status = OK
	}

	return status
}

// RunServerTraces invokes every registered server-trace, FIFO, unconditionally
// (the caller is responsible for only calling this after a successful
// handler completion, per §4.E).
func (p *Pipeline) RunServerTraces(conn *request.Connection) {
	for _, t := range p.traces {
		t.proc(conn, t.arg)
	}
}

// RunCleanups invokes every registered cleanup, LIFO, for every request.
func (p *Pipeline) RunCleanups(conn *request.Connection) {
	for _, c := range p.cleanups {
		c.proc(conn, c.arg)
	}
}

