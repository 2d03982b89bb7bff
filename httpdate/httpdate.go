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

// Package httpdate formats and parses HTTP dates per §6, recovered from
// nsd/httptime.c. Format always emits RFC 1123; Parse additionally accepts
// RFC 850 and asctime, the same three forms the original recognized.
package httpdate

import "time"

const (
	rfc1123 = "Mon, 02 Jan 2006 15:04:05 GMT"
	rfc850  = "Monday, 02-Jan-06 15:04:05 GMT"
	asctime = "Mon Jan  2 15:04:05 2006 GMT"
)

var parseLayouts = []string{rfc1123, rfc850, asctime}

// Format renders t as an RFC 1123 HTTP date, always in UTC.
func Format(t time.Time) string {
	return t.UTC().Format(rfc1123)
}

// Now is Format(time.Now()), split out so callers needing "the current HTTP
// date" read intent directly.
func Now() string {
	return Format(time.Now())
}

// Parse accepts RFC 1123, RFC 850 or asctime and returns the UTC instant.
// Reports an error if none of the three forms match.
func Parse(s string) (time.Time, error) {
	var lastErr error

	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, lastErr
}

// Covers reports whether an If-Modified-Since header value ims covers
// (is greater than or equal to, at one-second resolution) mtime — the
// §6 "304 Not Modified" rule.
func Covers(ims string, mtime time.Time) bool {
	t, err := Parse(ims)
	if err != nil {
		return false
	}

	return !t.Before(mtime.UTC().Truncate(time.Second))
}
