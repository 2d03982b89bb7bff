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
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v3"

	"github.com/aolserver/aolserver-sub004/limits"
	"github.com/aolserver/aolserver-sub004/valuecache"
)

// monitorServer exposes /metrics (this process's §3 "live counters") and a
// /healthz liveness probe on a dedicated address, separate from the
// request-serving drivers, the way nsd's own stats/monitor endpoint is
// never multiplexed onto the page-serving port.
//
// net/http.Server is used here only as the transport promhttp.Handler
// expects — there is no ecosystem replacement for serving a plain
// http.Handler, and this is the canonical way client_golang recommends
// exposing a registry.
type monitorServer struct {
	httpServer *http.Server
	limits     *limits.Registry
	interval   time.Duration

	stopTicker context.CancelFunc
}

// limitsDump and introspectDump give the "ns_limits list"/"ns_cache names"
// introspection output a stable structured form, marshalled as YAML the
// same way viper itself treats YAML as a config interchange format.
type limitsDump struct {
	Name      string `yaml:"name"`
	NRunning  int    `yaml:"nrunning"`
	NWaiting  int    `yaml:"nwaiting"`
	NTimeout  int    `yaml:"ntimeout"`
	NDropped  int    `yaml:"ndropped"`
	NOverflow int    `yaml:"noverflow"`
	MaxRun    int    `yaml:"maxrun"`
	MaxWait   int    `yaml:"maxwait"`
	MaxUpload int64  `yaml:"maxupload"`
	Timeout   string `yaml:"timeout"`
}

type introspectDump struct {
	Limits []limitsDump `yaml:"limits"`
	Caches []string     `yaml:"caches"`
}

func newMonitorServer(addr string, reg *prometheus.Registry, lim *limits.Registry, caches *valuecache.Registry, interval time.Duration) *monitorServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/introspect", func(w http.ResponseWriter, r *http.Request) {
		dump := introspectDump{}
		for _, name := range lim.Names("") {
			snap := lim.Get(name, false).Stats()
			dump.Limits = append(dump.Limits, limitsDump{
				Name: snap.Name, NRunning: snap.NRunning, NWaiting: snap.NWaiting,
				NTimeout: snap.NTimeout, NDropped: snap.NDropped, NOverflow: snap.NOverflow,
				MaxRun: snap.MaxRun, MaxWait: snap.MaxWait, MaxUpload: snap.MaxUpload,
				Timeout: snap.Timeout.String(),
			})
		}
		if caches != nil {
			dump.Caches = caches.Names("")
		}

		out, err := yaml.Marshal(dump)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(out)
	})

	return &monitorServer{
		httpServer: &http.Server{Addr: addr, Handler: mux},
		limits:     lim,
		interval:   interval,
	}
}

// Start runs the HTTP listener and the periodic limits.Observe() refresh
// loop in background goroutines.
func (m *monitorServer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.stopTicker = cancel

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.limits.Observe()
			}
		}
	}()

	go func() {
		_ = m.httpServer.ListenAndServe()
	}()
}

// Stop shuts down the HTTP listener bounded by ctx and halts the observe
// ticker.
func (m *monitorServer) Stop(ctx context.Context) error {
	if m.stopTicker != nil {
		m.stopTicker()
	}
	return m.httpServer.Shutdown(ctx)
}
