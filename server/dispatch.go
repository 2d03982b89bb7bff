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
	"bufio"
	"context"
	"strings"

	uuid "github.com/hashicorp/go-uuid"

	"github.com/aolserver/aolserver-sub004/driver"
	"github.com/aolserver/aolserver-sub004/filter"
	"github.com/aolserver/aolserver-sub004/limits"
	"github.com/aolserver/aolserver-sub004/request"
)

// handleConn is the workerpool.Handler wired as the pool's per-connection
// entry point: one full request, from raw bytes to response, then the
// connection is closed, mirroring ConnThread's "one connection, one
// request" HTTP/1.0-style handling this runtime targets.
func (s *Server) handleConn(ctx context.Context, driverName string, conn driver.Conn) {
	defer conn.Close()

	cid, _ := uuid.GenerateUUID()
	log := s.log.With("driver", driverName).With("cid", cid)

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	defer w.Flush()

	rconn, err := readRequestHead(r, s.cfg.MaxHeaderBytes)
	if err != nil {
		log.Warnf("request parse failed: %v", err)
		newConnWriter(emptyConnection(), w, "GET").writeError(400)
		return
	}

	cw := newConnWriter(rconn, w, rconn.Request.Method)

	lim := s.limits.Resolve(rconn.Request.Method, rconn.Request.URL)

	if !lim.CheckUpload(contentLength(rconn.Headers)) {
		cw.writeError(413)
		return
	}
	if n := contentLength(rconn.Headers); n > 0 {
		if err := readBody(r, rconn, n); err != nil {
			log.Warnf("body read failed: %v", err)
			cw.writeError(400)
			return
		}
	}

	switch lim.Admit() {
	case limits.Overflow:
		cw.writeError(503)
		return
	case limits.TimedOut:
		cw.writeError(504)
		return
	}
	defer lim.Release()

	s.dispatch(ctx, log, rconn, cw)
}

// dispatch runs the §4.I pipeline against an admitted request: pre-auth
// filters, route resolution (registered handler, then ADP, then
// fast-path), post-auth filters, server traces on success, and cleanups
// unconditionally.
func (s *Server) dispatch(ctx context.Context, log logWarner, conn *request.Connection, cw *connWriter) {
	defer s.filters.RunCleanups(conn)

	if st := s.filters.RunFilters(conn, filter.PreAuth); st != filter.OK {
		finishFilterStatus(cw, st)
		return
	}

	st := s.route(conn, cw)
	if st != filter.OK && st != filter.Return {
		finishFilterStatus(cw, st)
		return
	}

	if st2 := s.filters.RunFilters(conn, filter.PostAuth); st2 != filter.OK {
		finishFilterStatus(cw, st2)
		return
	}

	s.filters.RunServerTraces(conn)
}

// route resolves and invokes the best handler for conn: a registered
// HandlerFunc first, then the ADP evaluator for a matching extension, then
// the fast-path static responder, mirroring Ns_RegisterRequest's
// precedence over the page-root default.
func (s *Server) route(conn *request.Connection, cw *connWriter) filter.Status {
	if proc := s.routes.resolve(conn.Request.Method, conn.Request.URL); proc != nil {
		return proc(conn, cw)
	}

	if s.adpEval != nil && s.cfg.ADP.Extension != "" && strings.HasSuffix(conn.Request.URL, s.cfg.ADP.Extension) {
		path, err := s.cfg.Fastpath.ResolveURL(conn.Request.URL)
		if err == nil {
			if err := s.serveADP(cw, path, conn.Request.URLV); err == nil {
				return filter.OK
			}
		}
		cw.writeError(404)
		return filter.OK
	}

	ims, _ := conn.Headers.Get("If-Modified-Since")
	if err := s.fastpath.Serve(cw, conn.Request.Method, conn.Request.URL, ims); err != nil {
		cw.writeError(500)
	}
	return filter.OK
}

func finishFilterStatus(cw *connWriter, st filter.Status) {
	if st == filter.Error {
		cw.writeError(500)
		return
	}
	if !cw.headerWritten {
		cw.writeError(403)
	}
}

func emptyConnection() *request.Connection {
	return request.NewConnection(&request.Request{Method: "GET", URL: "/"})
}

// logWarner is the minimal logging surface dispatch needs, satisfied by
// *logging.Logger; kept narrow so dispatch's tests can pass a stub.
type logWarner interface {
	Warnf(format string, args ...any)
}
