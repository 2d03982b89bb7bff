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

// Package ctxstore provides a generic, key-addressable store layered on top
// of a context.Context, used to hold per-worker and per-connection state
// (the ADP frame stack, the active connection, driver-local data) that must
// be cleared deterministically when a request or a worker's lifetime ends.
package ctxstore

import (
	"context"

	libatm "github.com/aolserver/aolserver-sub004/atomic"
)

// FuncWalk is called for every entry during Walk; returning false stops the walk.
type FuncWalk[T comparable] func(key T, val any) bool

// Store is a keyed, concurrency-safe bag of values scoped to a context.
// It is the backbone of the ADP frame (§3 "ADP frame") and of worker-local
// state that must be wiped between requests (§4.H "per-request state cleanup").
type Store[T comparable] interface {
	context.Context

	Load(key T) (val any, ok bool)
	Store(key T, val any)
	Delete(key T)
	LoadOrStore(key T, val any) (actual any, loaded bool)
	Walk(fct FuncWalk[T])
	// Clean removes every key, used at the end of a request/worker lifetime.
	Clean()
}

type store[T comparable] struct {
	context.Context
	cancel context.CancelFunc
	m      libatm.MapTyped[T, any]
}

// New returns a Store bound to ctx (context.Background() if nil). Cancelling
// the returned store's context (or the parent ctx) is observed by Clean
// being implicitly safe to call afterwards; it does not auto-clean.
func New[T comparable](ctx context.Context) Store[T] {
	if ctx == nil {
		ctx = context.Background()
	}

	c, cancel := context.WithCancel(ctx)

	return &store[T]{
		Context: c,
		cancel:  cancel,
		m:       libatm.NewMapTyped[T, any](),
	}
}

func (s *store[T]) Load(key T) (any, bool) {
	return s.m.Load(key)
}

func (s *store[T]) Store(key T, val any) {
	if val == nil {
		s.m.Delete(key)
		return
	}
	s.m.Store(key, val)
}

func (s *store[T]) Delete(key T) {
	s.m.Delete(key)
}

func (s *store[T]) LoadOrStore(key T, val any) (any, bool) {
	return s.m.LoadOrStore(key, val)
}

func (s *store[T]) Walk(fct FuncWalk[T]) {
	s.m.Range(func(key T, val any) bool {
		return fct(key, val)
	})
}

func (s *store[T]) Clean() {
	s.m.Range(func(key T, _ any) bool {
		s.m.Delete(key)
		return true
	})
}
