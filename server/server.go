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
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aolserver/aolserver-sub004/adp"
	"github.com/aolserver/aolserver-sub004/driver"
	"github.com/aolserver/aolserver-sub004/fastpath"
	"github.com/aolserver/aolserver-sub004/fastpath/filecache"
	"github.com/aolserver/aolserver-sub004/filter"
	"github.com/aolserver/aolserver-sub004/limits"
	"github.com/aolserver/aolserver-sub004/logging"
	"github.com/aolserver/aolserver-sub004/valuecache"
	"github.com/aolserver/aolserver-sub004/workerpool"
)

// Server ties the nine components into one running process: drivers feed
// a worker pool, each worker runs dispatch against the filter pipeline,
// limits registry, route table, ADP evaluator and fast-path responder.
type Server struct {
	cfg Config
	log *logging.Logger

	drivers  *driver.Registry
	pool     *workerpool.Pool
	filters  *filter.Pipeline
	limits   *limits.Registry
	caches   *valuecache.Registry
	fastpath *fastpath.Responder
	routes   *routeTable

	pages     *pageCache
	adpParser *adp.Parser
	adpEval   *adp.Evaluator
	tags      *adp.Registry

	monitor *monitorServer
}

// New assembles a Server from cfg. RegisterDriver and RegisterHandler may
// be called any time before Start.
func New(cfg Config) *Server {
	cfg = cfg.withDefaults()

	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}

	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	s := &Server{
		cfg:     cfg,
		log:     log,
		drivers: driver.NewRegistry(log),
		filters: filter.New(),
		limits:  limits.NewRegistry(reg),
		caches:  valuecache.NewRegistry(),
		routes:  newRouteTable(),
	}

	var cache *filecache.Cache
	if cfg.Fastpath.CacheEnabled {
		cache = filecache.New()
	}
	s.fastpath = fastpath.New(cfg.Fastpath, cache)

	s.tags = cfg.ADP.Tags
	if s.tags == nil {
		s.tags = adp.NewRegistry()
	}
	s.adpParser = &adp.Parser{Tags: s.tags, Language: cfg.ADP.Language}
	if s.adpParser.Language == "" {
		s.adpParser.Language = "tcl"
	}
	s.pages = newPageCache(s.adpParser)
	s.pages.configure(cfg.ADP.Cache, cfg.ADP.CacheSize, cfg.ADP.NoExpire)
	if cfg.ADP.Script != nil {
		s.adpEval = adp.NewEvaluator(cfg.ADP.Script, s.tags, cfg.ADP.MaxIncludeDepth)
	}

	s.pool = workerpool.New(cfg.Pool, s.handleConn, log).WithMetrics(reg, cfg.Name)

	if cfg.MonitorAddr != "" {
		s.monitor = newMonitorServer(cfg.MonitorAddr, reg, s.limits, s.caches, cfg.MonitorInterval)
	}

	return s
}

// RegisterDriver adds a byte-stream driver to the server's driver registry.
func (s *Server) RegisterDriver(d driver.Driver) {
	s.drivers.Register(d)
}

// RegisterHandler binds method/url (Ns_RegisterRequest-style globs) to
// proc, taking priority over both the ADP evaluator and the fast-path
// responder for matching requests.
func (s *Server) RegisterHandler(method, url string, proc HandlerFunc) {
	s.routes.register(method, url, proc)
}

// RegisterFilter exposes the filter pipeline's registration surface.
func (s *Server) RegisterFilter(method, url string, when filter.When, proc filter.Proc, arg any) {
	s.filters.RegisterFilter(method, url, when, proc, arg)
}

// RegisterServerTrace exposes the filter pipeline's trace registration.
func (s *Server) RegisterServerTrace(proc filter.TraceProc, arg any) {
	s.filters.RegisterServerTrace(proc, arg)
}

// RegisterCleanup exposes the filter pipeline's cleanup registration.
func (s *Server) RegisterCleanup(proc filter.TraceProc, arg any) {
	s.filters.RegisterCleanup(proc, arg)
}

// Limits returns the named-limits registry so bootstrap code can configure
// policy and register URL rules before Start.
func (s *Server) Limits() *limits.Registry { return s.limits }

// ReconfigurePool applies a new worker-pool scaling policy to the running
// server (pool sizing's live-reload path; see workerpool.Pool.Reconfigure).
func (s *Server) ReconfigurePool(cfg workerpool.Config) {
	s.pool.Reconfigure(cfg)
}

// ReconfigureCache applies new fast-path and ADP content-cache policy to a
// running server (content-cache.* / adp.cache* live-reload path).
func (s *Server) ReconfigureCache(fastpathEnabled bool, fastpathMaxEntry int64, adpEnabled bool, adpCacheSize int, adpNoExpire bool) {
	s.fastpath.SetCachePolicy(fastpathEnabled, fastpathMaxEntry)
	s.pages.configure(adpEnabled, adpCacheSize, adpNoExpire)
}

// Caches returns the named-value cache registry.
func (s *Server) Caches() *valuecache.Registry { return s.caches }

// Tags returns the ADP registered-tag table.
func (s *Server) Tags() *adp.Registry { return s.tags }

// Start brings the worker pool and every registered driver up, and the
// monitor endpoint if configured.
func (s *Server) Start(ctx context.Context) error {
	if err := s.pool.Start(ctx); err != nil {
		return err
	}
	if err := s.drivers.Start(ctx, s.pool.Enqueue); err != nil {
		return err
	}
	if s.monitor != nil {
		s.monitor.Start()
	}
	return nil
}

// Stop halts new acceptance, drains the worker pool bounded by ctx, and
// stops the monitor endpoint.
func (s *Server) Stop(ctx context.Context) error {
	var errs []error
	if err := s.drivers.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.pool.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.monitor != nil {
		if err := s.monitor.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
