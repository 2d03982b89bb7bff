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

// Package driver implements the pluggable byte-stream provider framework of
// §4.A, recovered from nsd/drv.c. A Driver is a capability set: read, write
// and close are required of every Conn it hands out, everything else
// (peer address, location string, fd access, detach, sendfile) is an
// optional capability a concrete Conn may or may not implement, tested via
// the usual Go type-assertion idiom rather than a fixed struct of function
// pointers.
package driver

import (
	"context"
	"errors"
	"io"
)

// ErrShutdown is returned by Accept once the driver has been told to stop;
// the framework's acceptor loop treats it as the clean-exit signal (NsDriverListen's
// acceptor thread returning on NS_SHUTDOWN).
var ErrShutdown = errors.New("driver: shutdown")

// Conn is the minimum byte-stream surface every driver connection provides.
type Conn interface {
	io.Reader
	io.Writer
	io.Closer
}

// Peerer is an optional Conn capability reporting the remote peer address.
type Peerer interface {
	Peer() string
}

// Locationer is an optional Conn capability reporting the URL-visible
// scheme://host:port prefix for links generated against this connection.
type Locationer interface {
	Location() string
}

// FileDescriptor is an optional Conn capability exposing the raw descriptor,
// needed by drivers that support Detach (handing the socket to another
// subsystem, e.g. a WebSocket upgrade) or SendFD.
type FileDescriptor interface {
	FD() (uintptr, error)
}

// Detacher is an optional Conn capability allowing a handler to take
// ownership of the underlying descriptor away from the driver.
type Detacher interface {
	Detach() error
}

// Freer is an optional Conn capability for releasing driver-private
// resources distinct from Close (e.g. a pooled buffer); most drivers have
// nothing extra to free and simply don't implement it.
type Freer interface {
	Free()
}

// Driver is the process-wide capability set a byte-stream provider
// registers. Name, Start and Stop are required; a driver that never
// accepts connections on its own (e.g. it is fed externally) need not
// implement Acceptor.
type Driver interface {
	// Name identifies the driver in logs and in Registry.Names.
	Name() string

	// Start brings the driver up. A driver that also implements Acceptor
	// is expected to be ready to Accept once Start returns.
	Start(ctx context.Context) error

	// Stop is invoked exactly once and must be idempotent with Close on
	// any Conn already handed out: outstanding connections are not
	// forcibly closed by Stop, only new acceptance is halted.
	Stop(ctx context.Context) error
}

// Acceptor is the optional capability a Driver implements when the
// framework's own acceptor loop ("loop: accept -> enqueue") should drive
// it, rather than the driver running its own internal accept loop.
type Acceptor interface {
	Driver

	// Accept blocks until a new Conn arrives, the driver is stopped (in
	// which case it returns ErrShutdown), or ctx is done.
	Accept(ctx context.Context) (Conn, error)
}
