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

// Package headerset implements the ordered, case-insensitive multi-value
// header set the Connection data model (§3) refers to as "header set",
// recovered from nsd/set.c (Ns_Set). Unlike a plain map, insertion order
// and duplicate keys (e.g. repeated "Set-Cookie") are both preserved.
package headerset

import "strings"

type field struct {
	name  string
	value string
}

// Set is an ordered, case-insensitive multi-map of name/value pairs.
type Set struct {
	name   string
	fields []field
}

// New returns an empty, named Set.
func New(name string) *Set {
	return &Set{name: name}
}

// Name returns the set's identifying name (e.g. "headers", "outputheaders").
func (s *Set) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Put appends a new name/value tuple, even if name already exists.
func (s *Set) Put(name, value string) int {
	s.fields = append(s.fields, field{name: name, value: value})
	return len(s.fields) - 1
}

// Find returns the index of the first tuple whose name matches
// case-insensitively, or -1.
func (s *Set) Find(name string) int {
	for i, f := range s.fields {
		if strings.EqualFold(f.name, name) {
			return i
		}
	}
	return -1
}

// Get returns the first value for name, or "" with ok=false.
func (s *Set) Get(name string) (string, bool) {
	if i := s.Find(name); i >= 0 {
		return s.fields[i].value, true
	}
	return "", false
}

// GetAll returns every value stored under name, in insertion order.
func (s *Set) GetAll(name string) []string {
	var out []string
	for _, f := range s.fields {
		if strings.EqualFold(f.name, name) {
			out = append(out, f.value)
		}
	}
	return out
}

// Update deletes every existing tuple for name and inserts a single new one
// (Ns_SetUpdate's delete-then-put semantics).
func (s *Set) Update(name, value string) {
	s.DeleteKey(name)
	s.Put(name, value)
}

// DeleteKey removes every tuple whose name matches case-insensitively.
func (s *Set) DeleteKey(name string) {
	out := s.fields[:0]
	for _, f := range s.fields {
		if !strings.EqualFold(f.name, name) {
			out = append(out, f)
		}
	}
	s.fields = out
}

// Len returns the number of stored tuples.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

// At returns the name/value pair at position i.
func (s *Set) At(i int) (name, value string) {
	f := s.fields[i]
	return f.name, f.value
}

// Range calls fct for every tuple in insertion order, stopping early if fct
// returns false.
func (s *Set) Range(fct func(name, value string) bool) {
	if s == nil {
		return
	}
	for _, f := range s.fields {
		if !fct(f.name, f.value) {
			return
		}
	}
}
