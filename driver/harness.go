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
	"bytes"
	"context"
	"io"
	"sync"
)

// HarnessDriver is the in-process, no-socket driver §1's "test harness"
// non-goal-carve-out names: it lets server/workerpool tests feed Conns
// directly without binding a port, the same role a net.Pipe-backed fake
// would play, but queued through the same Acceptor contract a real driver
// uses so the framework code under test cannot tell the difference.
type HarnessDriver struct {
	name string

	mu      sync.Mutex
	pending chan Conn
	closed  bool
}

// NewHarnessDriver returns a HarnessDriver with the given registered name.
func NewHarnessDriver(name string) *HarnessDriver {
	return &HarnessDriver{name: name, pending: make(chan Conn, 64)}
}

func (h *HarnessDriver) Name() string { return h.name }

func (h *HarnessDriver) Start(ctx context.Context) error { return nil }

func (h *HarnessDriver) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.closed {
		h.closed = true
		close(h.pending)
	}
	return nil
}

// Accept returns the next Push'd Conn, or ErrShutdown once Stop has run and
// the queue has drained.
func (h *HarnessDriver) Accept(ctx context.Context) (Conn, error) {
	select {
	case c, ok := <-h.pending:
		if !ok {
			return nil, ErrShutdown
		}
		return c, nil
	case <-ctx.Done():
		return nil, ErrShutdown
	}
}

// Push enqueues a Conn as though it had just been accepted. It returns false
// if the driver has already been stopped.
func (h *HarnessDriver) Push(c Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.pending <- c
	return true
}

// HarnessConn is an in-memory Conn pairing a readable request buffer with a
// response buffer a test can inspect after the handler runs.
type HarnessConn struct {
	in     *bytes.Reader
	out    bytes.Buffer
	peer   string
	mu     sync.Mutex
	closed bool
}

// NewHarnessConn returns a HarnessConn whose Read side yields request.
func NewHarnessConn(peer string, request []byte) *HarnessConn {
	return &HarnessConn{in: bytes.NewReader(request), peer: peer}
}

func (c *HarnessConn) Read(p []byte) (int, error) {
	n, err := c.in.Read(p)
	if err == io.EOF {
		return n, io.EOF
	}
	return n, err
}

func (c *HarnessConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

func (c *HarnessConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *HarnessConn) Peer() string { return c.peer }

// Written returns the bytes written to the connection so far (the response
// a handler produced).
func (c *HarnessConn) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.out.Bytes()...)
}

// Closed reports whether Close has been called.
func (c *HarnessConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
