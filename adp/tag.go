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

package adp

import "sync"

// TagType documents how a registered tag was meant to be invoked in the
// original (a direct proc call vs. a nested ADP evaluation); both converge
// on the same TagHandlerFunc signature here since the embedded language is
// an opaque, caller-supplied capability per this package's scope.
type TagType uint8

const (
	ProcTag TagType = iota
	AdpTag
)

// TagHandlerFunc runs a registered tag's invocation (Ns_RegisterTag /
// Ns_RegisterAdpTag's callback), given its parsed attributes and, for a
// paired tag, the raw inner body text. Its result is appended to the
// calling frame's output the same way AppendTag wraps every registered
// tag in "ns_adp_append [...]".
type TagHandlerFunc func(frame *Frame, attrs map[string]string, body string) (result string, exception Exception, err error)

// TagSpec is one entry in the tag Registry.
type TagSpec struct {
	Name      string
	Type      TagType
	HasEndTag bool
	Handler   TagHandlerFunc
}

// Registry is the process-wide (or per-server) registered-tag table the
// parser consults during tag scanning, grounded on servPtr->adp.tags
// (a Tcl_HashTable guarded by a reader/writer lock per §5's "read-mostly
// structures use reader/writer locks").
type Registry struct {
	mu   sync.RWMutex
	tags map[string]TagSpec
}

// NewRegistry returns an empty tag Registry.
func NewRegistry() *Registry {
	return &Registry{tags: make(map[string]TagSpec)}
}

// Register adds or replaces spec under its lowercased Name.
func (r *Registry) Register(spec TagSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[lower(spec.Name)] = spec
}

func (r *Registry) lookup(name string) (TagSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.tags[name]
	return spec, ok
}

// Names returns every registered tag name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tags))
	for n := range r.tags {
		names = append(names, n)
	}
	return names
}
