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

// Package valuecache implements the named-value cache of §4.C, recovered
// from nsd/tclcache.c (ns_cache create/set/get/incr/append/lappend/flush/
// names/eval). The original's "update in progress" sentinel plus condition
// variable becomes golang.org/x/sync/singleflight.Group: concurrent Eval
// calls for the same key naturally collapse to one thunk execution, and
// Group already implements "waiter observes the loader's result or error".
package valuecache

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aolserver/aolserver-sub004/glob"
)

// ErrTimeout is returned by Eval when a caller waits longer than maxwait
// for another in-flight thunk to finish.
var ErrTimeout = errors.New("valuecache: timeout waiting for update")

// ErrNotFound is returned by Get/Incr/Append/Lappend when key is absent.
var ErrNotFound = errors.New("valuecache: key not found")

type entry struct {
	value     []byte
	expiresAt time.Time
	hasExpiry bool
}

func (e entry) expired(now time.Time) bool {
	return e.hasExpiry && !e.expiresAt.After(now)
}

// Cache is one named value cache, sized and timed independently of every
// other cache the process creates.
type Cache struct {
	Name string

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group

	ttl     time.Duration
	maxwait time.Duration
}

// Options configures a Cache at creation time, mirroring ns_cache create's
// -size/-timeout/-maxwait flags (size enforcement is left to the registry's
// eviction policy, not modeled here as the distilled spec treats named-cache
// sizing as advisory bookkeeping rather than a hard enforcement path).
type Options struct {
	TTL     time.Duration // 0 means entries never expire on their own
	MaxWait time.Duration // default applied if zero
}

func (o Options) withDefaults() Options {
	if o.MaxWait <= 0 {
		o.MaxWait = 2 * time.Second
	}
	return o
}

func newCache(name string, opts Options) *Cache {
	opts = opts.withDefaults()
	return &Cache{
		Name:    name,
		entries: make(map[string]entry),
		ttl:     opts.TTL,
		maxwait: opts.MaxWait,
	}
}

// Registry is the process-wide table of named caches.
type Registry struct {
	mu     sync.RWMutex
	caches map[string]*Cache
}

// NewRegistry returns an empty cache registry.
func NewRegistry() *Registry {
	return &Registry{caches: make(map[string]*Cache)}
}

// Create registers a new named cache, returning an error if name already
// exists.
func (r *Registry) Create(name string, opts Options) (*Cache, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.caches[name]; ok {
		return nil, errors.New("valuecache: cache already exists: " + name)
	}

	c := newCache(name, opts)
	r.caches[name] = c
	return c, nil
}

// Get returns the named cache, or nil if it has not been created.
func (r *Registry) Get(name string) *Cache {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.caches[name]
}

// Names returns every registered cache name, optionally filtered by a
// glob pattern ("" matches all).
func (r *Registry) Names(pattern string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for name := range r.caches {
		if pattern == "" || glob.Match(pattern, name) {
			out = append(out, name)
		}
	}
	return out
}

func (c *Cache) makeEntry(value []byte) entry {
	e := entry{value: value}
	if c.ttl > 0 {
		e.expiresAt = time.Now().Add(c.ttl)
		e.hasExpiry = true
	}
	return e
}

// Set stores value under key, replacing any previous entry and resetting
// its expiry.
func (c *Cache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = c.makeEntry(value)
}

// Get returns the current value for key. An expired entry is flushed and
// reported as absent.
func (c *Cache) Get(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	if e.expired(time.Now()) {
		delete(c.entries, key)
		return nil, ErrNotFound
	}
	return e.value, nil
}

// Incr parses key's value as an integer, adds delta, stores and returns the
// result. A missing key starts from zero.
func (c *Cache) Incr(key string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := int64(0)
	if e, ok := c.entries[key]; ok && !e.expired(time.Now()) {
		n, err := strconv.ParseInt(string(e.value), 10, 64)
		if err != nil {
			return 0, err
		}
		cur = n
	}

	cur += delta
	c.entries[key] = c.makeEntry([]byte(strconv.FormatInt(cur, 10)))
	return cur, nil
}

// Append concatenates value onto key's current bytes (treated as empty if
// absent or expired).
func (c *Cache) Append(key string, value []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := []byte{}
	if e, ok := c.entries[key]; ok && !e.expired(time.Now()) {
		cur = e.value
	}

	out := append(append([]byte{}, cur...), value...)
	c.entries[key] = c.makeEntry(out)
	return out
}

// Lappend appends item as a new Tcl-list-style element (space-joined) onto
// key's current value.
func (c *Cache) Lappend(key string, item string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := ""
	if e, ok := c.entries[key]; ok && !e.expired(time.Now()) {
		cur = string(e.value)
	}

	var out string
	if cur == "" {
		out = item
	} else {
		out = cur + " " + item
	}

	c.entries[key] = c.makeEntry([]byte(out))
	return out
}

// Flush removes the listed keys, or every key if keys is empty.
func (c *Cache) Flush(keys ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(keys) == 0 {
		n := len(c.entries)
		c.entries = make(map[string]entry)
		return n
	}

	n := 0
	for _, k := range keys {
		if _, ok := c.entries[k]; ok {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Names returns every live (non-expired) key, lazily purging expired ones
// it encounters, optionally filtered by a glob pattern.
func (c *Cache) Names(pattern string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var out []string
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			continue
		}
		if pattern == "" || glob.Match(pattern, k) {
			out = append(out, k)
		}
	}
	return out
}

// Eval returns key's cached value, computing it via thunk on a miss or
// expiry. Concurrent Eval calls for the same key share a single thunk
// execution (singleflight); a caller that waits longer than maxwait for
// another goroutine's in-flight thunk receives ErrTimeout.
func (c *Cache) Eval(key string, thunk func() ([]byte, error)) ([]byte, error) {
	if v, err := c.Get(key); err == nil {
		return v, nil
	}

	resultCh := c.group.DoChan(key, func() (any, error) {
		v, err := thunk()
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})

	select {
	case res := <-resultCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-time.After(c.maxwait):
		return nil, ErrTimeout
	}
}
