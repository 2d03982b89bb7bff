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

package limits

import "github.com/prometheus/client_golang/prometheus"

// metricSet exposes every named Limits' counters as gauges: one GaugeVec
// per field, labelled by limits name, registered once at Registry
// construction time and refreshed by Observe.
type metricSet struct {
	running  *prometheus.GaugeVec
	waiting  *prometheus.GaugeVec
	timeout  *prometheus.GaugeVec
	dropped  *prometheus.GaugeVec
	overflow *prometheus.GaugeVec
}

func newMetricSet(reg prometheus.Registerer, r *Registry) *metricSet {
	m := &metricSet{
		running:  gaugeVec(reg, "limits_running", "requests currently dispatching under a limits record"),
		waiting:  gaugeVec(reg, "limits_waiting", "requests queued for admission"),
		timeout:  gaugeVec(reg, "limits_timeout_total", "admissions abandoned after exceeding timeout"),
		dropped:  gaugeVec(reg, "limits_dropped_total", "requests rejected for exceeding maxupload"),
		overflow: gaugeVec(reg, "limits_overflow_total", "requests rejected with both run and wait queues full"),
	}
	return m
}

func gaugeVec(reg prometheus.Registerer, name, help string) *prometheus.GaugeVec {
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "aolserverd_" + name,
		Help: help,
	}, []string{"limits"})
	reg.MustRegister(g)
	return g
}

// Observe refreshes every registered Limits' metric series from its current
// Stats snapshot. Called periodically by the server's monitor loop rather
// than on every Admit/Release to keep the hot path lock-free of Prometheus.
func (r *Registry) Observe() {
	if r.metrics == nil {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, l := range r.named {
		s := l.Stats()
		r.metrics.running.WithLabelValues(name).Set(float64(s.NRunning))
		r.metrics.waiting.WithLabelValues(name).Set(float64(s.NWaiting))
		r.metrics.timeout.WithLabelValues(name).Set(float64(s.NTimeout))
		r.metrics.dropped.WithLabelValues(name).Set(float64(s.NDropped))
		r.metrics.overflow.WithLabelValues(name).Set(float64(s.NOverflow))
	}
}
