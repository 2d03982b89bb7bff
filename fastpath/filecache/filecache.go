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

// Package filecache implements the fast-path content cache of §4.G,
// recovered from nsd/fastpath.c's FastGet cache branch: entries keyed by
// (dev, inode), validated against (mtime, size), with refcounted reads so
// eviction never frees bytes a concurrent reader is still transmitting.
// The original's per-entry "loading" sentinel plus Ns_CacheWait condition
// variable becomes golang.org/x/sync/singleflight, the same substitution
// used in valuecache.Eval.
package filecache

import (
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Key identifies a cached file by device and inode, stable across renames
// but not across copies — exactly the identity stat(2) gives us.
type Key struct {
	Dev uint64
	Ino uint64
}

type file struct {
	mtime    time.Time
	size     int64
	bytes    []byte
	refcount int32
}

func (f *file) matches(mtime time.Time, size int64) bool {
	return f.mtime.Equal(mtime) && f.size == size
}

// Cache is a refcounted content cache with no capacity bound: an entry
// stays until Evict removes it or a reload replaces it, and nothing evicts
// by total size. Load itself admits any size; the fastpath responder skips
// the cache for files larger than its CacheMaxEntry before calling in.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*file
	group   singleflight.Group
}

// New returns an empty content cache.
func New() *Cache {
	return &Cache{entries: make(map[Key]*file)}
}

// Handle is a live reference to a cached file's bytes. Callers must call
// Release exactly once after they finish transmitting Bytes.
type Handle struct {
	Bytes []byte
	c     *Cache
	key   Key
	f     *file
}

// Release decrements the handle's refcount. If the entry was meanwhile
// evicted, this is a no-op beyond the decrement — Go's garbage collector
// reclaims the backing bytes once the last Handle drops its reference,
// which is the refcount-gated free the original implemented by hand.
func (h Handle) Release() {
	h.c.mu.Lock()
	h.f.refcount--
	h.c.mu.Unlock()
}

// Load returns a Handle on the cached content for key, loading (or
// reloading, on an mtime/size mismatch) from path via the os.ReadFile
// when the entry is missing or stale. Concurrent Load calls for the same
// key that are all loading collapse into a single read (singleflight),
// matching the documented "never a partial file" guarantee (§5).
func (c *Cache) Load(key Key, path string, mtime time.Time, size int64) (Handle, error) {
	c.mu.Lock()
	f, ok := c.entries[key]
	if ok && f.matches(mtime, size) {
		f.refcount++
		c.mu.Unlock()
		return Handle{Bytes: f.bytes, c: c, key: key, f: f}, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(keyString(key), func() (any, error) {
		bytes, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}

		nf := &file{mtime: mtime, size: size, bytes: bytes, refcount: 0}

		c.mu.Lock()
		c.entries[key] = nf
		c.mu.Unlock()

		return nf, nil
	})
	if err != nil {
		return Handle{}, err
	}

	nf := v.(*file)
	c.mu.Lock()
	nf.refcount++
	c.mu.Unlock()

	return Handle{Bytes: nf.bytes, c: c, key: key, f: nf}, nil
}

// Evict removes key's table slot unconditionally, without waiting for
// outstanding readers; their Handle.Bytes remain valid until they Release.
func (c *Cache) Evict(key Key) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len reports the number of distinct cached files, used by the server's
// metrics/monitor surface.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func keyString(k Key) string {
	var b [16]byte
	putUint64(b[:8], k.Dev)
	putUint64(b[8:], k.Ino)
	return string(b[:])
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
