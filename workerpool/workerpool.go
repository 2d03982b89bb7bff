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

// Package workerpool implements the connection queue and worker pool of
// §4.F: a single FIFO of pending connections drained by a dynamically
// scaled set of worker goroutines, grounded on nsd/queue.c
// (NsQueueConn/NsGetConn/ConnThread).
package workerpool

import (
	"context"
	"sync"
	"time"

	"github.com/aolserver/aolserver-sub004/driver"
	"github.com/aolserver/aolserver-sub004/logging"
)

// Handler processes one dequeued connection to completion. The pool treats
// it as opaque; server wires this to the full parse/limits/filter/dispatch
// chain (§4.I).
type Handler func(ctx context.Context, driverName string, conn driver.Conn)

// Config is the pool's scaling policy (nsconf.threads' minthreads/
// maxthreads/timeout/connsperthread).
type Config struct {
	Min            int           // workers kept alive even when idle
	Max            int           // ceiling on concurrently running workers
	IdleTimeout    time.Duration // a worker beyond Min exits after this much idle time
	ConnsPerWorker int           // 0 means unbounded; recycles the worker after N requests
}

func (c Config) withDefaults() Config {
	if c.Min < 0 {
		c.Min = 0
	}
	if c.Max < 1 {
		c.Max = 1
	}
	if c.Max < c.Min {
		c.Max = c.Min
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
	return c
}

type queued struct {
	driverName string
	conn       driver.Conn
}

// Pool is a single FIFO connection queue plus its worker goroutines.
type Pool struct {
	cfg     Config
	handler Handler
	log     *logging.Logger
	metrics *poolMetrics

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []queued
	draining bool
	workers  int
	idle     int
	done     sync.WaitGroup
}

// New returns a Pool. Start must be called before Enqueue.
func New(cfg Config, handler Handler, log *logging.Logger) *Pool {
	if log == nil {
		log = logging.Nop()
	}
	p := &Pool{cfg: cfg.withDefaults(), handler: handler, log: log}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start brings the pool up to its minimum worker count.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.workers < p.cfg.Min {
		p.spawnLocked(ctx)
	}
	return nil
}

// Enqueue implements driver.EnqueueFunc: it appends conn to the FIFO and
// spawns a new worker when the queue has work, no worker is idle, and the
// pool is below Max (the §4.F "spawn rule").
func (p *Pool) Enqueue(driverName string, conn driver.Conn) error {
	return p.enqueue(context.Background(), driverName, conn)
}

func (p *Pool) enqueue(ctx context.Context, driverName string, conn driver.Conn) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.draining {
		return errDraining
	}

	p.queue = append(p.queue, queued{driverName: driverName, conn: conn})
	if p.metrics != nil {
		p.metrics.queueDepth.Set(float64(len(p.queue)))
	}

	if p.idle == 0 && p.workers < p.cfg.Max {
		p.spawnLocked(ctx)
	}
	p.cond.Signal()
	return nil
}

func (p *Pool) spawnLocked(ctx context.Context) {
	p.workers++
	if p.metrics != nil {
		p.metrics.workers.Set(float64(p.workers))
	}
	p.done.Add(1)
	go p.runWorker(ctx)
}

// runWorker is the §4.F ConnThread loop: pop, handle, recycle-or-continue,
// idle-shrink when above Min.
func (p *Pool) runWorker(ctx context.Context) {
	defer p.done.Done()

	served := 0
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.draining {
			p.idle++
			if p.metrics != nil {
				p.metrics.idle.Set(float64(p.idle))
			}
			woke := p.waitIdle(p.cfg.IdleTimeout)
			p.idle--
			if p.metrics != nil {
				p.metrics.idle.Set(float64(p.idle))
			}
			if !woke && len(p.queue) == 0 && !p.draining && p.workers > p.cfg.Min {
				p.workers--
				if p.metrics != nil {
					p.metrics.workers.Set(float64(p.workers))
				}
				p.mu.Unlock()
				return
			}
		}

		if len(p.queue) == 0 && p.draining {
			p.workers--
			if p.metrics != nil {
				p.metrics.workers.Set(float64(p.workers))
			}
			p.mu.Unlock()
			return
		}

		item := p.queue[0]
		p.queue = p.queue[1:]
		if p.metrics != nil {
			p.metrics.queueDepth.Set(float64(len(p.queue)))
		}
		p.mu.Unlock()

		p.handler(ctx, item.driverName, item.conn)
		served++

		if p.cfg.ConnsPerWorker > 0 && served >= p.cfg.ConnsPerWorker {
			p.mu.Lock()
			p.workers--
			if p.metrics != nil {
				p.metrics.workers.Set(float64(p.workers))
			}
			needReplacement := len(p.queue) > 0 && p.workers < p.cfg.Max
			if needReplacement {
				p.spawnLocked(ctx)
			}
			p.mu.Unlock()
			return
		}
	}
}

// waitIdle blocks on the pool's condition variable until signalled or
// timeout elapses, returning false on timeout. sync.Cond has no deadline-
// aware wait, so a helper timer performs the broadcast-on-timeout
// translation, mirroring the limits package's admission wait.
func (p *Pool) waitIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	timer := time.AfterFunc(timeout, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer timer.Stop()

	p.cond.Wait()
	return time.Now().Before(deadline)
}

// Stop marks the pool draining, wakes every idle worker, and waits for all
// workers to finish their current connection (if any) and exit, bounded by
// ctx's deadline — the §4.F "bounded wait ensures deadlock-free shutdown"
// rule.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.draining = true
	p.cond.Broadcast()
	p.mu.Unlock()

	wait := make(chan struct{})
	go func() {
		p.done.Wait()
		close(wait)
	}()

	select {
	case <-wait:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reconfigure applies a new scaling policy to a running pool: Min/Max take
// effect on the next spawn-rule check and idle-shrink pass, IdleTimeout and
// ConnsPerWorker take effect for workers parked or recycled after the call.
// Existing workers above the new Max are not killed outright; they drain
// down to Max as they idle out or recycle, the same bounded-wait shutdown
// path Stop uses rather than a separate forced-eviction mechanism.
func (p *Pool) Reconfigure(cfg Config) {
	cfg = cfg.withDefaults()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	for p.workers < p.cfg.Min {
		p.spawnLocked(context.Background())
	}
	p.cond.Broadcast()
}

// Stats is a point-in-time snapshot for monitoring/introspection.
type Stats struct {
	Workers    int
	Idle       int
	QueueDepth int
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Workers: p.workers, Idle: p.idle, QueueDepth: len(p.queue)}
}

type poolError string

func (e poolError) Error() string { return string(e) }

const errDraining poolError = "workerpool: pool is draining"
