/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

// Package atomic provides small generic, lock-free value and map wrappers
// for mutable state that is read far more often than it is written.
package atomic

import (
	"sync/atomic"
)

// Value is a type-safe wrapper around atomic.Value.
type Value[T any] interface {
	Load() T
	Store(val T)
	Swap(new T) (old T)
	CompareAndSwap(old, new T) (swapped bool)
}

type val[T any] struct {
	av atomic.Value
}

// NewValue returns an empty atomic Value[T].
func NewValue[T any]() Value[T] {
	return &val[T]{}
}

func (o *val[T]) Load() (v T) {
	if i := o.av.Load(); i != nil {
		if b, k := i.(box[T]); k {
			return b.v
		}
	}
	return v
}

func (o *val[T]) Store(v T) {
	o.av.Store(box[T]{v: v})
}

func (o *val[T]) Swap(new T) (old T) {
	if i := o.av.Swap(box[T]{v: new}); i != nil {
		if b, k := i.(box[T]); k {
			return b.v
		}
	}
	return old
}

func (o *val[T]) CompareAndSwap(old, new T) bool {
	cur := o.av.Load()
	if cur == nil {
		var zero T
		if !isNilOrZero(old, zero) {
			return false
		}
		return o.av.CompareAndSwap(nil, box[T]{v: new})
	}
	if b, k := cur.(box[T]); !k || any(b.v) != any(old) {
		return false
	}

	return o.av.CompareAndSwap(cur, box[T]{v: new})
}

// box avoids storing T directly, so atomic.Value never sees mismatched
// concrete types across calls (a requirement of sync/atomic.Value).
type box[T any] struct {
	v T
}

func isNilOrZero[T any](v, zero T) bool {
	return any(v) == any(zero)
}
