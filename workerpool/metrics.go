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

package workerpool

import "github.com/prometheus/client_golang/prometheus"

// poolMetrics exposes the live worker/queue counters §4.F's monitor loop
// cares about, mirroring limits.metricSet's shape for the same reason: keep
// the hot path (Enqueue/runWorker) free of anything but a Set() call.
type poolMetrics struct {
	workers    prometheus.Gauge
	idle       prometheus.Gauge
	queueDepth prometheus.Gauge
}

func newPoolMetrics(reg prometheus.Registerer, name string) *poolMetrics {
	m := &poolMetrics{
		workers:    gauge(reg, name, "workers", "worker goroutines currently alive"),
		idle:       gauge(reg, name, "idle", "worker goroutines currently idle"),
		queueDepth: gauge(reg, name, "queue_depth", "connections waiting in the FIFO"),
	}
	return m
}

func gauge(reg prometheus.Registerer, pool, metric, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "aolserverd_workerpool_" + metric,
		Help:        help,
		ConstLabels: prometheus.Labels{"pool": pool},
	})
	reg.MustRegister(g)
	return g
}

// WithMetrics registers Prometheus gauges for this pool under reg, labeled
// by name. Call before Start.
func (p *Pool) WithMetrics(reg prometheus.Registerer, name string) *Pool {
	if reg == nil {
		return p
	}
	p.metrics = newPoolMetrics(reg, name)
	return p
}
