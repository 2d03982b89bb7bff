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

// Package request parses the HTTP request line and holds the per-connection
// data model (§3), recovered from nsd/request.c (Ns_Request/Ns_ParseRequest).
package request

import (
	"strconv"
	"strings"

	"github.com/aolserver/aolserver-sub004/headerset"
	"github.com/aolserver/aolserver-sub004/urlutil"
)

const httpPrefix = "HTTP/"

// Request is the parsed request line plus the decoded URL vector.
// Line is the trimmed, unparsed request line, kept for logging.
type Request struct {
	Line     string
	Method   string
	URL      string
	URLV     []string
	Query    string
	Protocol string
	Host     string
	Port     int
	Version  float64
}

// Connection is the per-request runtime context: the parsed Request plus
// its header sets and body, threaded through filters/traces/cleanups (§4.E)
// and the ADP frame stack (§4.H) via ctxstore.
type Connection struct {
	Request        *Request
	Headers        *headerset.Set
	OutputHeaders  *headerset.Set
	Body           []byte
	ResponseStatus int
	ResponseSent   bool
}

// NewConnection wraps a parsed Request in a fresh Connection with empty
// header sets.
func NewConnection(req *Request) *Connection {
	return &Connection{
		Request:       req,
		Headers:       headerset.New("headers"),
		OutputHeaders: headerset.New("outputheaders"),
	}
}

// Parse parses a raw HTTP request line into a Request. Returns nil if line
// is blank or has no url component, mirroring Ns_ParseRequest's NULL return.
func Parse(line string) *Request {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}

	req := &Request{Line: trimmed}

	method, rest, ok := cutSpace(trimmed)
	if !ok {
		return nil
	}
	req.Method = method

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}

	rawURL, version := splitVersion(rest)
	req.Version = version

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil
	}

	rawURL = splitProtocolHost(req, rawURL)

	setURL(req, rawURL)

	if req.URL == "" {
		return nil
	}

	return req
}

// cutSpace splits s on its first run of whitespace, returning (before,
// after, ok) where ok is false if s has no whitespace (no url to parse).
func cutSpace(s string) (before, after string, ok bool) {
	i := strings.IndexFunc(s, isSpace)
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// splitVersion strips a trailing "HTTP/N.N" token from url, returning the
// remaining url and the parsed version (0.0 if absent or unparsable).
func splitVersion(url string) (string, float64) {
	end := len(url)
	p := end
	for p > 0 {
		c := url[p-1]
		if (c >= '0' && c <= '9') || c == '.' {
			p--
			continue
		}
		break
	}

	prefixStart := p - len(httpPrefix)
	if prefixStart < 0 || !strings.HasPrefix(url[prefixStart:], httpPrefix) {
		return url, 0.0
	}

	versionStr := url[p:end]
	version, err := strconv.ParseFloat(versionStr, 64)
	if err != nil {
		version = 0.0
	}

	return strings.TrimSpace(url[:prefixStart]), version
}

// splitProtocolHost strips a leading "scheme://host[:port]" prefix from url
// when present, populating req.Protocol/Host/Port, and returns the
// remaining path+query.
func splitProtocolHost(req *Request, url string) string {
	if url == "" || url[0] == '/' {
		return url
	}

	i := strings.IndexAny(url, "/:")
	if i < 0 || url[i] != ':' {
		return url
	}

	protocol := url[:i]
	rest := url[i+1:]

	if !strings.HasPrefix(rest, "//") || len(rest) <= 3 {
		return url
	}
	rest = rest[2:]

	slash := strings.IndexByte(rest, '/')
	hostport := rest
	remainder := ""
	if slash >= 0 {
		hostport = rest[:slash]
		remainder = rest[slash:]
	}
	if hostport == "" {
		return url
	}

	req.Protocol = protocol

	host := hostport
	if c := strings.IndexByte(hostport, ':'); c >= 0 {
		host = hostport[:c]
		if port, err := strconv.Atoi(hostport[c+1:]); err == nil {
			req.Port = port
		}
	}
	req.Host = host

	return remainder
}

// setURL splits off the query string, decodes and normalizes the path, and
// populates URL/URLV, mirroring SetUrl.
func setURL(req *Request, raw string) {
	path := raw
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		path = raw[:i]
		req.Query = raw[i+1:]
	}

	decoded := urlutil.Decode(path)
	req.URL = urlutil.Normalize(decoded)
	req.URLV = urlutil.Split(req.URL)
}

// Skip returns the URL beginning n path segments in, or "" if n exceeds the
// number of segments.
func (r *Request) Skip(n int) string {
	if r == nil || n > len(r.URLV) {
		return ""
	}
	return "/" + strings.Join(r.URLV[n:], "/")
}
