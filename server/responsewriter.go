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
	"fmt"
	"strconv"

	"github.com/aolserver/aolserver-sub004/request"
)

var statusText = map[int]string{
	200: "OK",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	413: "Request Entity Too Large",
	500: "Internal Server Error",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

func reasonPhrase(status int) string {
	if t, ok := statusText[status]; ok {
		return t
	}
	return "Status"
}

// connWriter adapts a request.Connection plus a raw connection writer into
// fastpath.ResponseWriter (and the wider ResponseWriter surface the ADP and
// registered-handler paths need), writing an HTTP/1.0 status line, headers,
// and body directly to the driver connection the way Ns_ConnWrite/
// Ns_ConnFlushHeaders' manual header assembly does (no net/http is
// involved on the wire side — this package owns the bytes on the socket).
type connWriter struct {
	conn   *request.Connection
	w      *bufio.Writer
	method string

	status        int
	headerWritten bool
	bytesWritten  int64
}

func newConnWriter(conn *request.Connection, w *bufio.Writer, method string) *connWriter {
	return &connWriter{conn: conn, w: w, method: method, status: 200}
}

// SetHeader stages an output header, replacing any prior value for name
// (Ns_ConnSetHeaders' typical single-value usage).
func (cw *connWriter) SetHeader(name, value string) {
	cw.conn.OutputHeaders.Update(name, value)
}

// WriteHeader flushes the status line and staged headers exactly once;
// later calls are no-ops, matching Ns_ConnFlushHeaders' "headers sent"
// guard.
func (cw *connWriter) WriteHeader(status int) {
	if cw.headerWritten {
		return
	}
	cw.status = status
	cw.conn.ResponseStatus = status
	cw.headerWritten = true
	cw.conn.ResponseSent = true

	fmt.Fprintf(cw.w, "HTTP/1.0 %d %s\r\n", status, reasonPhrase(status))
	cw.conn.OutputHeaders.Range(func(name, value string) bool {
		fmt.Fprintf(cw.w, "%s: %s\r\n", name, value)
		return true
	})
	cw.w.WriteString("\r\n")
}

// Write emits status/headers (with a 200 default) on first use, then body
// bytes, skipping the actual write for HEAD requests while still reporting
// the byte count the caller expects.
func (cw *connWriter) Write(p []byte) (int, error) {
	if !cw.headerWritten {
		cw.WriteHeader(200)
	}
	cw.bytesWritten += int64(len(p))
	if cw.SkipBody() {
		return len(p), nil
	}
	return cw.w.Write(p)
}

// Redirect sends a 302 with a Location header, mirroring Ns_ConnRedirect.
func (cw *connWriter) Redirect(url string) {
	cw.SetHeader("Location", url)
	cw.WriteHeader(302)
}

// IsHead reports whether the request method is HEAD.
func (cw *connWriter) IsHead() bool {
	return cw.method == "HEAD"
}

// SkipBody reports whether the body must be suppressed: HEAD requests, or
// any status the HTTP spec defines as bodiless.
func (cw *connWriter) SkipBody() bool {
	if cw.IsHead() {
		return true
	}
	switch cw.status {
	case 204, 304:
		return true
	}
	return false
}

func (cw *connWriter) writeError(status int) {
	body := []byte(strconv.Itoa(status) + " " + reasonPhrase(status))
	cw.SetHeader("Content-Type", "text/plain")
	cw.SetHeader("Content-Length", strconv.Itoa(len(body)))
	cw.WriteHeader(status)
	if !cw.SkipBody() {
		_, _ = cw.w.Write(body)
	}
}
