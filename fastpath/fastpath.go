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

// Package fastpath implements the default static-file responder of §4.G,
// recovered from nsd/fastpath.c (FastGet/FastGetRestart/UrlIs). It is
// registered as the handler for GET/HEAD/POST "/" the way NsInitFastpath
// registers Ns_RegisterRequest.
package fastpath

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/gabriel-vasile/mimetype"

	"github.com/aolserver/aolserver-sub004/fastpath/filecache"
	"github.com/aolserver/aolserver-sub004/httpdate"
)

// Config is the per-server fast-path policy, mirroring nsconf.fastpath.
type Config struct {
	PageRoot       string
	DirectoryFiles []string // CONFIG_INDEX candidates, e.g. "index.adp", "index.html"
	CacheEnabled   bool
	CacheMaxEntry  int64 // entries larger than this bypass the cache

	// URLToFile resolves a URL to a filesystem path, defaulting to
	// PageRoot+url (Ns_UrlToFile's fallback). Set to override, mirroring
	// Ns_SetUrlToFileProc.
	URLToFile func(url string) (string, error)

	// DirectoryHandler is invoked when a directory has no matching
	// DirectoryFiles entry (the ADP/Tcl dirproc fallback).
	DirectoryHandler func(w ResponseWriter, path string)
}

func (c *Config) resolve(url string) (string, error) {
	if c.URLToFile != nil {
		return c.URLToFile(url)
	}
	p := filepath.Join(c.PageRoot, filepath.FromSlash(url))
	return strings.TrimRight(p, "/"), nil
}

// ResolveURL exposes the URL-to-filesystem-path mapping (Ns_UrlToFile) to
// callers outside the package, e.g. the ADP dispatcher picking a page's
// on-disk path before handing it to the template evaluator.
func (c *Config) ResolveURL(url string) (string, error) {
	return c.resolve(url)
}

// ResponseWriter is the minimum surface the fast-path responder needs from
// a connection; server wires this to the real Connection/driver output.
type ResponseWriter interface {
	SetHeader(name, value string)
	WriteHeader(status int)
	Write(p []byte) (int, error)
	Redirect(url string)
	IsHead() bool
	SkipBody() bool
}

// Responder serves the fast-path algorithm against a Config and an
// optional content cache. CacheEnabled/CacheMaxEntry are mirrored into
// atomics so SetCachePolicy can be called from a config-reload goroutine
// while request goroutines are reading them, without a Responder-wide lock.
type Responder struct {
	cfg   Config
	cache *filecache.Cache

	cacheEnabled  atomic.Bool
	cacheMaxEntry atomic.Int64
}

// New returns a Responder; pass a non-nil *filecache.Cache when cfg.CacheEnabled.
func New(cfg Config, cache *filecache.Cache) *Responder {
	r := &Responder{cfg: cfg, cache: cache}
	r.cacheEnabled.Store(cfg.CacheEnabled)
	r.cacheMaxEntry.Store(cfg.CacheMaxEntry)
	return r
}

// SetCachePolicy updates the content-cache policy (content-cache.enabled,
// content-cache.per-entry-limit) on a running Responder. A cache must
// already have been constructed at New time for enabled=true to take
// effect; this does not allocate one on the fly.
func (r *Responder) SetCachePolicy(enabled bool, maxEntry int64) {
	r.cacheEnabled.Store(enabled && r.cache != nil)
	r.cacheMaxEntry.Store(maxEntry)
}

// Serve runs the §4.G algorithm for method/url against w, returning an
// error only for conditions the caller cannot itself translate into a
// status code (resolve and stat failures write a 404 and return nil).
func (r *Responder) Serve(w ResponseWriter, method, url, ifModifiedSince string) error {
	path, err := r.cfg.resolve(url)
	if err != nil {
		return notFound(w)
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound(w)
		}
		return notFound(w)
	}

	switch {
	case info.Mode().IsRegular():
		return r.serveFile(w, path, info, ifModifiedSince)
	case info.IsDir():
		return r.serveDir(w, url, path)
	default:
		return notFound(w)
	}
}

func (r *Responder) serveFile(w ResponseWriter, path string, info os.FileInfo, ifModifiedSince string) error {
	mtime := info.ModTime()
	w.SetHeader("Last-Modified", httpdate.Format(mtime))

	if httpdate.Covers(ifModifiedSince, mtime) {
		w.WriteHeader(304)
		return nil
	}

	mtype := detectType(path)

	if w.SkipBody() {
		w.SetHeader("Content-Type", mtype)
		w.WriteHeader(200)
		return nil
	}

	if !r.cacheEnabled.Load() || r.cache == nil || info.Size() > r.cacheMaxEntry.Load() {
		return r.streamFile(w, path, mtype)
	}

	return r.serveCached(w, path, info, mtype)
}

func (r *Responder) streamFile(w ResponseWriter, path, mtype string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return notFound(w)
	}
	w.SetHeader("Content-Type", mtype)
	w.WriteHeader(200)
	_, err = w.Write(data)
	return err
}

func (r *Responder) serveCached(w ResponseWriter, path string, info os.FileInfo, mtype string) error {
	key := fileKey(info)

	h, err := r.cache.Load(key, path, info.ModTime(), info.Size())
	if err != nil {
		return notFound(w)
	}
	defer h.Release()

	w.SetHeader("Content-Type", mtype)
	w.WriteHeader(200)
	_, werr := w.Write(h.Bytes)
	return werr
}

func (r *Responder) serveDir(w ResponseWriter, url, path string) error {
	for _, name := range r.cfg.DirectoryFiles {
		candidate := filepath.Join(path, name)
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		if !strings.HasSuffix(url, "/") {
			w.Redirect(url + "/")
			return nil
		}

		return r.Serve(w, "GET", joinURL(url, name), "")
	}

	if r.cfg.DirectoryHandler != nil {
		r.cfg.DirectoryHandler(w, path)
		return nil
	}

	return notFound(w)
}

func notFound(w ResponseWriter) error {
	w.WriteHeader(404)
	return nil
}

func joinURL(url, name string) string {
	if strings.HasSuffix(url, "/") {
		return url + name
	}
	return url + "/" + name
}

func detectType(path string) string {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return mt.String()
}

// IsFile reports whether url resolves to a regular file under cfg.
func (c *Config) IsFile(url string) bool {
	return c.urlIs(url, false)
}

// IsDir reports whether url resolves to a directory under cfg.
func (c *Config) IsDir(url string) bool {
	return c.urlIs(url, true)
}

func (c *Config) urlIs(url string, dir bool) bool {
	path, err := c.resolve(url)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if dir {
		return info.IsDir()
	}
	return info.Mode().IsRegular()
}
