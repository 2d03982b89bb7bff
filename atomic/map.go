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

package atomic

import "sync"

// MapTyped is a generic, concurrency-safe map backed by sync.Map; ctxstore
// uses it for its key/value store.
type MapTyped[K comparable, V any] interface {
	Load(key K) (V, bool)
	Store(key K, val V)
	Delete(key K)
	LoadOrStore(key K, val V) (actual V, loaded bool)
	Range(f func(key K, val V) bool)
	Len() int
}

type mapTyped[K comparable, V any] struct {
	m sync.Map
}

// NewMapTyped returns an empty MapTyped[K, V].
func NewMapTyped[K comparable, V any]() MapTyped[K, V] {
	return &mapTyped[K, V]{}
}

func (o *mapTyped[K, V]) Load(key K) (v V, ok bool) {
	i, found := o.m.Load(key)
	if !found {
		return v, false
	}
	v, ok = i.(V)
	return v, ok
}

func (o *mapTyped[K, V]) Store(key K, val V) {
	o.m.Store(key, val)
}

func (o *mapTyped[K, V]) Delete(key K) {
	o.m.Delete(key)
}

func (o *mapTyped[K, V]) LoadOrStore(key K, val V) (actual V, loaded bool) {
	i, loaded := o.m.LoadOrStore(key, val)
	actual, _ = i.(V)
	return actual, loaded
}

func (o *mapTyped[K, V]) Range(f func(key K, val V) bool) {
	o.m.Range(func(key, value any) bool {
		k, kok := key.(K)
		v, vok := value.(V)
		if !kok || !vok {
			return true
		}
		return f(k, v)
	})
}

func (o *mapTyped[K, V]) Len() int {
	var n int
	o.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
