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

package config

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aolserver/aolserver-sub004/fastpath"
	"github.com/aolserver/aolserver-sub004/limits"
	"github.com/aolserver/aolserver-sub004/logging"
	"github.com/aolserver/aolserver-sub004/server"
	"github.com/aolserver/aolserver-sub004/workerpool"
)

// PoolConfig projects the pool-sizing subset onto workerpool.Config.
func (c *Config) PoolConfig() workerpool.Config {
	return workerpool.Config{
		Min:            c.MinThreads,
		Max:            c.MaxThreads,
		ConnsPerWorker: c.ConnsPerThread,
		IdleTimeout:    c.ThreadTimeout,
	}
}

// ServerConfig projects the full config surface onto server.Config, the
// bootstrap-time decode this package exists to produce. log and reg are
// injected rather than constructed here, following the teacher's FuncLog/
// FuncViper injection idiom instead of a package global.
func (c *Config) ServerConfig(log *logging.Logger, reg *prometheus.Registry) server.Config {
	return server.Config{
		Name: c.Name,
		Pool: c.PoolConfig(),
		Fastpath: fastpath.Config{
			PageRoot:      c.PageRoot,
			CacheEnabled:  c.ContentCache.Enabled,
			CacheMaxEntry: c.ContentCache.PerEntryLimit,
		},
		ADP: server.ADPConfig{
			PageRoot:     c.PageRoot,
			Cache:        c.ADP.Cache,
			CacheSize:    c.ADP.CacheSize,
			EnableDebug:  c.ADP.EnableDebug,
			NoExpire:     !c.ADP.EnableExpire,
			TagLocks:     c.ADP.TagLocks,
		},
		MonitorAddr:     c.Monitor.Address,
		MonitorInterval: c.Monitor.Interval,
		Logger:          log,
		Registry:        reg,
	}
}

// ApplyLive pushes the non-bootstrap subset of c onto a running Server:
// pool sizing, the "default" limits policy, and content/ADP cache policy —
// exactly the set §2.3 promises the fsnotify-driven Watcher live-reloads.
// Listen address, page root and every other bootstrap-only field are
// decoded into c but intentionally never read here; changing them takes
// a restart.
func (c *Config) ApplyLive(s *server.Server) {
	s.ReconfigurePool(c.PoolConfig())

	def := s.Limits().Get(limits.DefaultName, true)
	def.Configure(c.Limits.Default.MaxRun, c.Limits.Default.MaxWait, c.Limits.Default.MaxUpload, c.Limits.Default.Timeout)

	s.ReconfigureCache(
		c.ContentCache.Enabled, c.ContentCache.PerEntryLimit,
		c.ADP.Cache, c.ADP.CacheSize, !c.ADP.EnableExpire,
	)
}
