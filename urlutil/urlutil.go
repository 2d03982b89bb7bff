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

// Package urlutil implements RFC 1738 percent-encoding/decoding and the URL
// path normalization rule of §3/§6, recovered from nsd/urlencode.c.
package urlutil

import (
	"strings"
)

const upperhex = "0123456789abcdef"

func isUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '.' || c == '-':
		return true
	}
	return false
}

// Encode percent-encodes every byte of s outside the unreserved set.
// Space encodes as '+', matching Ns_EncodeUrl's query-component behavior.
func Encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			b.WriteByte('+')
		case isUnreserved(c):
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0x0f])
		}
	}

	return b.String()
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

// Decode reverses Encode: "%XX" becomes the raw byte, '+' becomes a space.
// Malformed escapes are copied through verbatim (Ns_DecodeUrl has no error
// path; we mirror that rather than inventing one).
func Decode(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%':
			if i+2 < len(s) {
				hi, ok1 := hexVal(s[i+1])
				lo, ok2 := hexVal(s[i+2])
				if ok1 && ok2 {
					b.WriteByte(byte(hi<<4 | lo))
					i += 2
					continue
				}
			}
			b.WriteByte('%')
		case '+':
			b.WriteByte(' ')
		default:
			b.WriteByte(s[i])
		}
	}

	return b.String()
}

// Normalize collapses "." and ".." segments and duplicate slashes in an
// absolute URL path, preserving a single trailing slash iff p had one.
// An empty result becomes "/".
func Normalize(p string) string {
	if p == "" {
		return "/"
	}

	trailingSlash := strings.HasSuffix(p, "/") && p != "/"

	segments := strings.Split(p, "/")
	stack := make([]string, 0, len(segments))

	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}

	out := "/" + strings.Join(stack, "/")

	if trailingSlash && out != "/" {
		out += "/"
	}

	return out
}

// Split breaks a normalized URL path into its '/'-delimited segments,
// grounding Request.urlv (§3).
func Split(p string) []string {
	n := Normalize(p)
	n = strings.Trim(n, "/")

	if n == "" {
		return nil
	}

	return strings.Split(n, "/")
}
