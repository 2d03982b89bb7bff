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

// Package limits implements the named resource-limits registry and the
// admission algorithm of §4.D, recovered from nsd/limits.c. The Tcl hash
// table plus Ns_UrlSpecific lookup becomes a typed registry (a mutex-guarded map)
// plus an explicit URL-space index with most-specific-match semantics.
package limits

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aolserver/aolserver-sub004/glob"
)

// Default name every process must have, created at startup if absent.
const DefaultName = "default"

// Limits holds one named admission policy and its running counters.
type Limits struct {
	Name string

	mu        sync.Mutex
	cond      *sync.Cond
	nrunning  int
	nwaiting  int
	ntimeout  int
	ndropped  int
	noverflow int

	MaxRun     int
	MaxWait    int
	MaxUpload  int64
	Timeout    time.Duration
}

func newLimits(name string) *Limits {
	l := &Limits{
		Name:      name,
		MaxRun:    100,
		MaxWait:   100,
		MaxUpload: 10 * 1024 * 1000,
		Timeout:   60 * time.Second,
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Snapshot is the read-only counters/config view returned by Stats, mirroring
// ns_limits get's key/value result.
type Snapshot struct {
	Name      string
	NRunning  int
	NWaiting  int
	NTimeout  int
	NDropped  int
	NOverflow int
	MaxRun    int
	MaxWait   int
	MaxUpload int64
	Timeout   time.Duration
}

// Stats returns a point-in-time snapshot of l's counters and config.
func (l *Limits) Stats() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		Name:      l.Name,
		NRunning:  l.nrunning,
		NWaiting:  l.nwaiting,
		NTimeout:  l.ntimeout,
		NDropped:  l.ndropped,
		NOverflow: l.noverflow,
		MaxRun:    l.MaxRun,
		MaxWait:   l.MaxWait,
		MaxUpload: l.MaxUpload,
		Timeout:   l.Timeout,
	}
}

// Configure updates the admission policy fields under lock.
func (l *Limits) Configure(maxRun, maxWait int, maxUpload int64, timeout time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.MaxRun = maxRun
	l.MaxWait = maxWait
	l.MaxUpload = maxUpload
	l.Timeout = timeout
}

// Decision is the outcome of Admit.
type Decision int

const (
	// Admitted means the caller may proceed to dispatch and must call
	// Release when done.
	Admitted Decision = iota
	// Overflow means nrunning and nwaiting were both saturated; the
	// connection must be dropped (503-equivalent) without waiting.
	Overflow
	// TimedOut means the caller waited past Timeout for a run slot.
	TimedOut
)

// Admit runs the §4.D admission algorithm: admit immediately if under
// MaxRun, else queue (incrementing NWaiting) until a slot frees or Timeout
// elapses. Callers that receive Admitted must call Release exactly once.
func (l *Limits) Admit() Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.nrunning >= l.MaxRun && l.nwaiting >= l.MaxWait {
		l.noverflow++
		return Overflow
	}

	if l.nrunning >= l.MaxRun {
		l.nwaiting++
		deadline := time.Now().Add(l.Timeout)

		for l.nrunning >= l.MaxRun {
			if !l.waitUntil(deadline) {
				l.nwaiting--
				l.ntimeout++
				return TimedOut
			}
		}
		l.nwaiting--
	}

	l.nrunning++
	return Admitted
}

// waitUntil blocks on the condition variable until woken or deadline
// passes, returning false on timeout. sync.Cond has no deadline-aware wait,
// so a helper goroutine performs the broadcast-on-timeout translation.
func (l *Limits) waitUntil(deadline time.Time) bool {
	timer := time.AfterFunc(time.Until(deadline), func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer timer.Stop()

	l.cond.Wait()
	return time.Now().Before(deadline)
}

// Release decrements nrunning and wakes any waiter, called once per Admitted
// decision when the request finishes dispatch.
func (l *Limits) Release() {
	l.mu.Lock()
	l.nrunning--
	l.cond.Broadcast()
	l.mu.Unlock()
}

// CheckUpload reports whether a declared Content-Length exceeds MaxUpload,
// incrementing NDropped when it does. Checked before the body is read.
func (l *Limits) CheckUpload(contentLength int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.MaxUpload > 0 && contentLength > l.MaxUpload {
		l.ndropped++
		return false
	}
	return true
}

// rule binds a (method, url-pattern) glob to a named Limits record, the
// URL-space registration side of ns_limits register.
type rule struct {
	method  string
	pattern string
	name    string
}

// Registry is the process-wide named-limits table plus its URL-space index.
type Registry struct {
	mu      sync.RWMutex
	named   map[string]*Limits
	rules   []rule
	metrics *metricSet
}

// NewRegistry returns a Registry seeded with the mandatory "default" record.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{named: make(map[string]*Limits)}
	r.named[DefaultName] = newLimits(DefaultName)
	if reg != nil {
		r.metrics = newMetricSet(reg, r)
	}
	return r
}

// Get returns the named Limits, creating it (seeded from defaults) if
// absent and create is true.
func (r *Registry) Get(name string, create bool) *Limits {
	r.mu.RLock()
	l, ok := r.named[name]
	r.mu.RUnlock()
	if ok {
		return l
	}
	if !create {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok = r.named[name]; ok {
		return l
	}
	l = newLimits(name)
	r.named[name] = l
	return l
}

// Names returns every registered limits name, optionally filtered by a glob
// pattern (nil/"" matches all), mirroring ns_limits list.
func (r *Registry) Names(pattern string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for name := range r.named {
		if pattern == "" {
			out = append(out, name)
			continue
		}
		if glob.Match(pattern, name) {
			out = append(out, name)
		}
	}
	return out
}

// Register binds method+urlPattern to a named Limits record.
func (r *Registry) Register(method, urlPattern, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{method: method, pattern: urlPattern, name: name})
}

// Resolve returns the effective Limits for a request, picking the
// most-specific matching rule (longest literal pattern prefix wins) and
// falling back to "default".
func (r *Registry) Resolve(method, url string) *Limits {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *rule
	for i := range r.rules {
		rl := &r.rules[i]
		if !strings.EqualFold(rl.method, method) && rl.method != "*" {
			continue
		}
		if !glob.Match(rl.pattern, url) {
			continue
		}
		if best == nil || specificity(rl.pattern) > specificity(best.pattern) {
			best = rl
		}
	}

	if best != nil {
		if l, ok := r.named[best.name]; ok {
			return l
		}
	}
	return r.named[DefaultName]
}

// specificity approximates "most specific" by the length of the pattern's
// literal (non-glob) prefix — the longer the fixed prefix, the narrower
// the match.
func specificity(pattern string) int {
	if i := strings.IndexAny(pattern, "*?["); i >= 0 {
		return i
	}
	return len(pattern)
}
