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
	"fmt"
	"net"
	"sync"
	"time"
)

// TCPConfig is the plain-TCP driver's bind policy, mirroring nsconf.driver
// (address and port; the listen backlog is not configurable here) for the
// one driver this module ships a concrete
// implementation of: NsConfigureDriver/NsDriverListen for the no-TLS case.
type TCPConfig struct {
	Name     string // registered driver name, e.g. "nssock"
	Address  string // bind host, "" for all interfaces
	Port     int
	Location string // URL scheme://host:port prefix for generated links
}

// TCPDriver is a plain-TCP Driver/Acceptor backed by net.Listener. It is the
// one network driver this package ships; the test harness driver (see
// harness.go) implements the same Driver/Acceptor surface independently,
// and any other transport would do the same, exactly as §4.A's "agnostic to
// which byte-stream driver feeds it" invariant requires.
type TCPDriver struct {
	cfg TCPConfig

	mu sync.Mutex
	ln net.Listener
}

// NewTCPDriver returns a TCPDriver bound to cfg; it does not listen until Start.
func NewTCPDriver(cfg TCPConfig) *TCPDriver {
	return &TCPDriver{cfg: cfg}
}

// Addr returns the bound listener address, useful when Port was 0 and the
// kernel chose an ephemeral port. Returns nil before Start or after Stop.
func (d *TCPDriver) Addr() net.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ln == nil {
		return nil
	}
	return d.ln.Addr()
}

func (d *TCPDriver) Name() string {
	if d.cfg.Name == "" {
		return "nssock"
	}
	return d.cfg.Name
}

// Start opens the listening socket. Per §4.A, a failure here is reported to
// the caller, which logs it and continues with any other registered driver.
func (d *TCPDriver) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", d.cfg.Address, d.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	d.ln = ln
	return nil
}

// Stop closes the listener, which unblocks any in-flight Accept with an
// error Accept translates to ErrShutdown.
func (d *TCPDriver) Stop(ctx context.Context) error {
	d.mu.Lock()
	ln := d.ln
	d.ln = nil
	d.mu.Unlock()

	if ln == nil {
		return nil
	}
	return ln.Close()
}

// Accept blocks for the next inbound connection. A closed listener (Stop
// having run, or never started) surfaces as ErrShutdown so the registry's
// acceptor loop exits cleanly rather than busy-looping on a dead socket.
func (d *TCPDriver) Accept(ctx context.Context) (Conn, error) {
	d.mu.Lock()
	ln := d.ln
	d.mu.Unlock()

	if ln == nil {
		return nil, ErrShutdown
	}

	c, err := ln.Accept()
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, ErrShutdown
		default:
		}
		d.mu.Lock()
		stopped := d.ln == nil
		d.mu.Unlock()
		if stopped {
			return nil, ErrShutdown
		}
		return nil, err
	}
	return &tcpConn{Conn: c, location: d.cfg.Location}, nil
}

// tcpConn adapts net.Conn to driver.Conn, adding the optional Peerer and
// Locationer capabilities NsGetConn's TCP path exposes.
type tcpConn struct {
	net.Conn
	location string
}

func (c *tcpConn) Peer() string {
	return c.Conn.RemoteAddr().String()
}

func (c *tcpConn) Location() string {
	return c.location
}

// SetDeadlineIdle applies a read and write deadline the way the original
// NsDriverThread bounds an idle keep-alive connection; a non-positive d
// clears it. It is not part of the Conn interface since it's TCP-specific;
// a caller reaches it by type assertion, as with any other optional
// capability.
func (c *tcpConn) SetDeadlineIdle(d time.Duration) error {
	if d <= 0 {
		return c.Conn.SetDeadline(time.Time{})
	}
	return c.Conn.SetDeadline(time.Now().Add(d))
}
