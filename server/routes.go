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

package server

import (
	"github.com/aolserver/aolserver-sub004/filter"
	"github.com/aolserver/aolserver-sub004/glob"
	"github.com/aolserver/aolserver-sub004/request"
)

// HandlerFunc is a registered request handler (Ns_RegisterRequest's proc).
// It reports the filter.Status the request lifecycle should treat the
// dispatch outcome as.
type HandlerFunc func(conn *request.Connection, w ResponseWriter) Status

// ResponseWriter is the surface a HandlerFunc writes its response through;
// connWriter is the concrete implementation wired by dispatch, and also
// satisfies fastpath.ResponseWriter so the fast-path responder and ADP
// evaluator share the same sink.
type ResponseWriter interface {
	SetHeader(name, value string)
	WriteHeader(status int)
	Write(p []byte) (int, error)
	Redirect(url string)
	IsHead() bool
	SkipBody() bool
}

// Status re-exports filter.Status so callers registering handlers don't
// need to import the filter package just to return a status.
type Status = filter.Status

const (
	StatusOK     = filter.OK
	StatusBreak  = filter.Break
	StatusReturn = filter.Return
	StatusError  = filter.Error
)

type route struct {
	method string
	url    string
	proc   HandlerFunc
}

// routeTable is the process-wide registered-request table (Ns_RegisterRequest),
// matched most-recently-registered-first so a later, more specific
// registration can shadow an earlier broad one.
type routeTable struct {
	routes []route
}

func newRouteTable() *routeTable {
	return &routeTable{}
}

func (t *routeTable) register(method, url string, proc HandlerFunc) {
	t.routes = append(t.routes, route{method: method, url: url, proc: proc})
}

func (t *routeTable) resolve(method, url string) HandlerFunc {
	for i := len(t.routes) - 1; i >= 0; i-- {
		r := t.routes[i]
		if !glob.Match(r.method, method) {
			continue
		}
		if glob.Match(r.url, url) {
			return r.proc
		}
	}
	return nil
}
