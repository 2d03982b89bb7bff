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

// Package reactor implements the single-thread socket-callback reactor of
// §4.B, recovered from nsd/sockcallback.c's SockCallbackThread. Callers
// register a (socket, when-mask, proc) triple; every proc invocation happens
// serially on the reactor's own goroutine, matching the original's single
// "callback thread" model, so registered procs never run concurrently with
// each other and must never block.
//
// The original multiplexes many raw sockets in one select(2) call on that
// thread. Go's standard library has no portable multi-descriptor select
// primitive, so each registration instead supplies its own WaitFunc — a
// blocking "tell me when you're ready" call the reactor runs on a private
// per-registration goroutine, fanning the readiness events into the single
// loop goroutine that is the only place Proc ever runs. This preserves every
// externally observable invariant (serialized callbacks, registration-order
// queueing, CANCEL-then-invoke-once, EXIT-on-shutdown) without requiring a
// real epoll/kqueue binding.
package reactor

import (
	"context"
)

// When is the readiness mask a registration is watching for.
type When uint8

const (
	Read When = 1 << iota
	Write
	Exception
	Exit
)

// Reason is why Proc was invoked; it is always exactly one of these, never
// a mask, even though When may combine several.
type Reason uint8

const (
	ReasonRead Reason = iota
	ReasonWrite
	ReasonException
	ReasonExit
	ReasonCancel
)

// Proc is a registered callback. Returning false deregisters it, mirroring
// Ns_SockProc's NS_FALSE return removing the callback.
type Proc func(why Reason) bool

// WaitFunc blocks until the registration's socket is ready, returning which
// readiness condition fired. It must return promptly once ctx is done.
type WaitFunc func(ctx context.Context) (Reason, error)

// Socket is a caller-assigned registration identity (a driver Conn's fd, a
// harness counter, whatever the caller finds convenient); the reactor never
// interprets it beyond using it as a map key.
type Socket uint64

type registration struct {
	sock   Socket
	when   When
	wait   WaitFunc
	proc   Proc
	cancel context.CancelFunc
}

type readyEvent struct {
	sock Socket
	why  Reason
}

type opKind uint8

const (
	opRegister opKind = iota
	opCancel
)

type op struct {
	kind opKind
	reg  registration
	sock Socket
}

// Reactor is the process-wide single-thread callback dispatcher.
type Reactor struct {
	ops   chan op
	ready chan readyEvent
}

// New returns a Reactor; call Run to start its single dispatch goroutine.
func New() *Reactor {
	return &Reactor{
		ops:   make(chan op, 256),
		ready: make(chan readyEvent, 256),
	}
}

// Register queues (sock, when, proc) for installation at the top of the
// reactor's next loop iteration, per §4.B's "registration is queued" rule.
// wait is invoked repeatedly (once per readiness cycle) until proc returns
// false or the registration is cancelled/the reactor shuts down.
func (r *Reactor) Register(sock Socket, when When, wait WaitFunc, proc Proc) {
	r.ops <- op{kind: opRegister, reg: registration{sock: sock, when: when, wait: wait, proc: proc}}
}

// Cancel removes sock's registration and invokes its Proc with ReasonCancel
// exactly once, per §4.B's CANCEL semantics. A sock with no registration is
// a silent no-op.
func (r *Reactor) Cancel(sock Socket) {
	r.ops <- op{kind: opCancel, sock: sock}
}

// Run executes the reactor loop until ctx is done. On exit, every still-
// registered socket whose mask includes Exit is invoked with ReasonExit
// before Run returns; registrations are held in a map, so the order of
// those calls is not defined.
func (r *Reactor) Run(ctx context.Context) {
	regs := make(map[Socket]*registration)

	for {
		select {
		case o := <-r.ops:
			r.apply(ctx, regs, o)

		case ev := <-r.ready:
			reg, ok := regs[ev.sock]
			if !ok {
				continue
			}
			if !reg.proc(ev.why) {
				reg.cancel()
				delete(regs, ev.sock)
				continue
			}
			r.spawnWaiter(ctx, reg)

		case <-ctx.Done():
			r.runExit(regs)
			return
		}
	}
}

func (r *Reactor) apply(ctx context.Context, regs map[Socket]*registration, o op) {
	switch o.kind {
	case opRegister:
		if old, ok := regs[o.reg.sock]; ok {
			old.cancel()
		}
		rctx, cancel := context.WithCancel(ctx)
		reg := o.reg
		reg.cancel = cancel
		regs[o.reg.sock] = &reg
		r.spawnWaiterCtx(rctx, &reg)

	case opCancel:
		reg, ok := regs[o.sock]
		if !ok {
			return
		}
		reg.cancel()
		delete(regs, o.sock)
		reg.proc(ReasonCancel)
	}
}

func (r *Reactor) spawnWaiter(ctx context.Context, reg *registration) {
	rctx, cancel := context.WithCancel(ctx)
	reg.cancel()
	reg.cancel = cancel
	r.spawnWaiterCtx(rctx, reg)
}

func (r *Reactor) spawnWaiterCtx(ctx context.Context, reg *registration) {
	go func(sock Socket, wait WaitFunc) {
		why, err := wait(ctx)
		if err != nil {
			return
		}
		select {
		case r.ready <- readyEvent{sock: sock, why: why}:
		case <-ctx.Done():
		}
	}(reg.sock, reg.wait)
}

func (r *Reactor) runExit(regs map[Socket]*registration) {
	for _, reg := range regs {
		if reg.when&Exit != 0 {
			reg.proc(ReasonExit)
		}
	}
}
