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

package driver

import (
	"context"
	"errors"
	"sync"

	"github.com/aolserver/aolserver-sub004/logging"
)

// EnqueueFunc hands an accepted Conn off to the rest of the server (the
// workerpool's connection queue). A non-nil error means the connection was
// rejected before a worker could own it; the registry closes it immediately.
type EnqueueFunc func(driverName string, conn Conn) error

type registered struct {
	d      Driver
	cancel context.CancelFunc
}

// Registry holds the process-wide, registration-ordered driver list:
// NsInitDrivers/NsStartDrivers' "ordered list" in §3's data model.
type Registry struct {
	mu  sync.Mutex
	log *logging.Logger
	reg []*registered
	wg  sync.WaitGroup
}

// NewRegistry returns an empty Registry. Pass the server's shared logger;
// logging.Nop() is fine for tests.
func NewRegistry(log *logging.Logger) *Registry {
	if log == nil {
		log = logging.Nop()
	}
	return &Registry{log: log}
}

// Register appends d to the ordered driver list. Registration order is
// preserved for Start and for Names.
func (r *Registry) Register(d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reg = append(r.reg, &registered{d: d})
}

// Names returns the registered driver names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.reg))
	for _, e := range r.reg {
		out = append(out, e.d.Name())
	}
	return out
}

// Start calls Start on every registered driver in order. A driver whose
// Start fails is logged and skipped — per §4.A, one bad driver must never
// prevent the others from serving. Drivers that also implement Acceptor get
// a dedicated goroutine running "loop: accept -> enqueue" until Stop or ctx
// cancellation; enqueue failures close the connection immediately.
func (r *Registry) Start(ctx context.Context, enqueue EnqueueFunc) error {
	r.mu.Lock()
	entries := append([]*registered(nil), r.reg...)
	r.mu.Unlock()

	started := 0
	for _, e := range entries {
		dctx, cancel := context.WithCancel(ctx)
		if err := e.d.Start(dctx); err != nil {
			r.log.Errorf("driver %s failed to start: %v", e.d.Name(), err)
			cancel()
			continue
		}
		e.cancel = cancel
		started++

		if a, ok := e.d.(Acceptor); ok {
			r.wg.Add(1)
			go r.acceptLoop(dctx, a, enqueue)
		}
	}

	if started == 0 && len(entries) > 0 {
		return errors.New("driver: no driver started successfully")
	}
	return nil
}

func (r *Registry) acceptLoop(ctx context.Context, a Acceptor, enqueue EnqueueFunc) {
	defer r.wg.Done()
	name := a.Name()
	for {
		conn, err := a.Accept(ctx)
		if err != nil {
			if errors.Is(err, ErrShutdown) || ctx.Err() != nil {
				return
			}
			r.log.Warnf("driver %s accept error: %v", name, err)
			continue
		}

		if enqueue == nil {
			_ = conn.Close()
			continue
		}
		if err := enqueue(name, conn); err != nil {
			r.log.Warnf("driver %s enqueue failed, closing: %v", name, err)
			_ = conn.Close()
		}
	}
}

// Stop calls Stop exactly once on every registered driver, cancels their
// acceptor context, and waits for every acceptor loop to return.
func (r *Registry) Stop(ctx context.Context) error {
	r.mu.Lock()
	entries := append([]*registered(nil), r.reg...)
	r.mu.Unlock()

	var first error
	for _, e := range entries {
		if e.cancel != nil {
			e.cancel()
		}
		if err := e.d.Stop(ctx); err != nil && first == nil {
			first = err
		}
	}
	r.wg.Wait()
	return first
}
