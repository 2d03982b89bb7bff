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
	"os"
	"sync"
	"time"

	"github.com/aolserver/aolserver-sub004/adp"
)

// pageCacheEntry pairs a compiled adp.Page with the mtime/size it was
// compiled from, the same staleness check fastpath/filecache.file.matches
// uses for raw byte blobs.
type pageCacheEntry struct {
	page  *adp.Page
	mtime time.Time
	size  int64
}

// pageCache memoizes parsed ADP pages keyed by file path, avoiding a
// re-parse on every hit the way NsAdpStatProc's page cache avoids
// re-reading and re-parsing a .adp file that hasn't changed on disk.
type pageCache struct {
	parser *adp.Parser

	mu         sync.Mutex
	pages      map[string]pageCacheEntry
	disabled   bool // !adp.cache: every load re-parses, nothing is retained
	maxEntries int  // adp.cache-size; 0 means unbounded
	noExpire   bool // !adp.enable-expire: skip the mtime/size staleness check once cached
}

func newPageCache(parser *adp.Parser) *pageCache {
	return &pageCache{parser: parser, pages: make(map[string]pageCacheEntry)}
}

// configure applies the adp.cache / adp.cache-size / adp.enable-expire
// policy; called once at bootstrap and again by the config watcher on a
// live reload.
func (pc *pageCache) configure(enabled bool, maxEntries int, noExpire bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.disabled = !enabled
	pc.maxEntries = maxEntries
	pc.noExpire = noExpire
	if pc.disabled {
		pc.pages = make(map[string]pageCacheEntry)
	}
}

func (pc *pageCache) load(path string) (*adp.Page, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	pc.mu.Lock()
	if !pc.disabled {
		if e, ok := pc.pages[path]; ok && (pc.noExpire || (e.mtime.Equal(info.ModTime()) && e.size == info.Size())) {
			pc.mu.Unlock()
			return e.page, nil
		}
	}
	pc.mu.Unlock()

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	page := pc.parser.Parse(string(src))

	pc.mu.Lock()
	if !pc.disabled {
		if pc.maxEntries > 0 && len(pc.pages) >= pc.maxEntries {
			if _, exists := pc.pages[path]; !exists {
				pc.pages = make(map[string]pageCacheEntry, pc.maxEntries)
			}
		}
		pc.pages[path] = pageCacheEntry{page: page, mtime: info.ModTime(), size: info.Size()}
	}
	pc.mu.Unlock()

	return page, nil
}

// adpResponseWriter lets the ADP evaluator's output reach the socket
// through the same connWriter used by every other dispatch path, while
// giving script/tag handlers a write sink distinct from the frame's own
// buffered Output (used for the final flush instead of direct writes).
type adpResponseWriter struct {
	cw *connWriter
}

func (w adpResponseWriter) emitHeaders(mimetype string) func() error {
	return func() error {
		if mimetype != "" {
			w.cw.SetHeader("Content-Type", mimetype)
		}
		w.cw.WriteHeader(200)
		return nil
	}
}

// serveADP parses (or reuses a cached parse of) path, evaluates it against
// a fresh Frame, and flushes the result to cw, mirroring NsAdpRequest's
// parse-then-eval-then-flush sequence including the stream=on path, where
// Flush may have already been called mid-evaluation by a tag handler that
// chooses to stream.
func (s *Server) serveADP(cw *connWriter, path string, argv []string) error {
	page, err := s.pages.load(path)
	if err != nil {
		return err
	}

	frame := adp.NewFrame(path, s.cfg.ADP.PageRoot, argv)
	frame.Mimetype = s.cfg.ADP.DefaultMimetype
	if frame.Mimetype == "" {
		frame.Mimetype = "text/html"
	}
	if s.cfg.ADP.EnableDebug {
		frame.DebugInfo = map[string]any{"file": path, "argv": argv}
	}

	w := adpResponseWriter{cw: cw}
	evalErr := s.adpEval.Eval(frame, page)

	if flushErr := frame.Flush(cw, w.emitHeaders(frame.Mimetype)); flushErr != nil {
		return flushErr
	}
	return evalErr
}
