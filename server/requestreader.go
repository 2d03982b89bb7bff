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
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/aolserver/aolserver-sub004/headerset"
	"github.com/aolserver/aolserver-sub004/request"
)

// errBadRequest is returned by readRequestHead when the request line cannot
// be parsed, and by readLine when a line exceeds the size limit; the caller
// turns it into a 400 response.
var errBadRequest = errors.New("server: malformed request")

// readRequestHead parses the request line and the header block terminated
// by a blank line, mirroring NsGetRequest's line-then-headers read
// sequence. It deliberately stops short of the body: §5/§9's upload-too-
// large check must run against Content-Length before any body byte is
// read, so the caller reads the body itself via readBody once admission
// has cleared it.
func readRequestHead(r *bufio.Reader, maxHeaderBytes int) (*request.Connection, error) {
	line, err := readLine(r, maxHeaderBytes)
	if err != nil {
		return nil, err
	}
	for line == "" {
		// tolerate a leading blank line some clients send before the
		// request line, mirroring NsGetRequest's skip-blank-lines loop.
		line, err = readLine(r, maxHeaderBytes)
		if err != nil {
			return nil, err
		}
	}

	req := request.Parse(line)
	if req == nil {
		return nil, errBadRequest
	}
	conn := request.NewConnection(req)

	for {
		hline, err := readLine(r, maxHeaderBytes)
		if err != nil {
			return nil, err
		}
		if hline == "" {
			break
		}
		name, value, ok := strings.Cut(hline, ":")
		if !ok {
			continue
		}
		conn.Headers.Put(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	return conn, nil
}

// readBody reads exactly n bytes of request body off r into conn.Body.
// Called only after the caller's upload-size admission check has passed.
func readBody(r *bufio.Reader, conn *request.Connection, n int64) error {
	if n <= 0 {
		return nil
	}
	conn.Body = make([]byte, n)
	_, err := io.ReadFull(r, conn.Body)
	return err
}

func readLine(r *bufio.Reader, maxBytes int) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	if maxBytes > 0 && len(line) > maxBytes {
		return "", errBadRequest
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// contentLength returns the parsed Content-Length header value, or 0 when
// absent or malformed — used by the admission check before the body read.
func contentLength(h *headerset.Set) int64 {
	v, ok := h.Get("Content-Length")
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
