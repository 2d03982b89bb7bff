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

// Package server implements the request lifecycle glue of §4.I: parse,
// limits admission, pre-auth filters, dispatch (registered handler, ADP,
// or fast-path fallback), post-auth filters, traces, cleanups — recovered
// from nsd/connio.c/nsd/queue.c's ConnThread request loop, tying together
// driver, workerpool, filter, limits, fastpath and adp.
package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aolserver/aolserver-sub004/adp"
	"github.com/aolserver/aolserver-sub004/fastpath"
	"github.com/aolserver/aolserver-sub004/logging"
	"github.com/aolserver/aolserver-sub004/workerpool"
)

// ADPConfig is the ADP subsystem's server-level policy.
type ADPConfig struct {
	// Extension is the file suffix (including the dot) routed to the ADP
	// evaluator instead of being served as a static file, e.g. ".adp".
	Extension string

	PageRoot        string
	DefaultMimetype string

	// Language names the embedded scripting language server-script
	// regions must declare (or omit) to be treated as server-side.
	Language string

	// MaxIncludeDepth bounds nested adp.Include calls; 0 uses adp's own
	// default.
	MaxIncludeDepth int

	// Script is the pluggable language evaluator; nil disables ADP
	// entirely (server falls back to fast-path for every URL).
	Script adp.ScriptEvaluator

	// Tags lets the caller pre-populate registered tags before the
	// server starts; may be nil.
	Tags *adp.Registry

	// Cache enables the parsed-page cache (adp.cache); CacheSize bounds
	// its entry count (adp.cache-size, 0 unbounded).
	Cache     bool
	CacheSize int

	// EnableDebug attaches the page's file path and argv as debug info to
	// every evaluated Frame (adp.enable-debug).
	EnableDebug bool

	// NoExpire, when true, serves a cached page for the life of the
	// process instead of re-checking mtime/size on every hit (the
	// negation of adp.enable-expire, so the zero value matches the
	// spec's expire-checking default).
	NoExpire bool

	// TagLocks carries adp.tag-locks. The tag Registry is always guarded
	// by a reader/writer lock and the server never reads this field, so
	// it has no effect.
	TagLocks bool
}

// Config is the server's full bootstrap policy (§6's config surface, minus
// the driver list which is registered separately via RegisterDriver since
// drivers are concrete Go values, not data).
type Config struct {
	Name string

	Pool     workerpool.Config
	Fastpath fastpath.Config
	ADP      ADPConfig

	// MaxHeaderBytes bounds a single request-line/header-line read,
	// guarding against an unbounded-length attack before Content-Length
	// admission even applies.
	MaxHeaderBytes int

	// MonitorAddr, when non-empty, serves Prometheus's /metrics (and a
	// /healthz liveness probe) on this address.
	MonitorAddr     string
	MonitorInterval time.Duration

	Logger *logging.Logger

	// Registry is the Prometheus registry every component's gauges are
	// registered into; nil gets a fresh prometheus.NewRegistry(). Using
	// the concrete type (rather than the Registerer interface) lets the
	// monitor endpoint also Gather from it for /metrics.
	Registry *prometheus.Registry
}

func (c Config) withDefaults() Config {
	if c.MaxHeaderBytes <= 0 {
		c.MaxHeaderBytes = 8192
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = 5 * time.Second
	}
	if c.ADP.Extension == "" {
		c.ADP.Extension = ".adp"
	}
	return c
}
