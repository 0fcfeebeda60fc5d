// Copyright © 2024 André Müller (muellan@uni-mainz.de)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package batch provides a single-producer batching pipeline: the
// producer fills fixed-size batches item by item, full batches travel
// through a bounded queue, and consumer goroutines invoke a callback
// per batch. With one consumer (the default) batches arrive in FIFO
// order and the callback needs no locking.
package batch

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Options control batching and queue capacity.
type Options struct {
	BatchSize   int // items per batch (default 1000)
	QueueSize   int // batches buffered between producer and consumers (default 100)
	Concurrency int // consumer goroutines (default 1)
}

// DefaultOptions are used for zero-valued fields.
var DefaultOptions = Options{
	BatchSize:   1000,
	QueueSize:   100,
	Concurrency: 1,
}

// Executor hands batches of items from one producer to its consumers.
// The producer side (NextItem) is not safe for concurrent use.
type Executor[T any] struct {
	opt     Options
	consume func(worker int, batch []T)

	queue chan []T
	cur   []T
	pool  *sync.Pool

	wg      sync.WaitGroup
	invalid atomic.Bool
	errOnce sync.Once
	err     error
	closed  bool
}

// New starts the consumer goroutines and returns the executor.
// consume is called once per batch; with Concurrency 1 it is never
// called concurrently.
func New[T any](opt Options, consume func(worker int, batch []T)) *Executor[T] {
	if opt.BatchSize < 1 {
		opt.BatchSize = DefaultOptions.BatchSize
	}
	if opt.QueueSize < 1 {
		opt.QueueSize = DefaultOptions.QueueSize
	}
	if opt.Concurrency < 1 {
		opt.Concurrency = DefaultOptions.Concurrency
	}

	e := &Executor[T]{
		opt:     opt,
		consume: consume,
		queue:   make(chan []T, opt.QueueSize),
	}
	e.pool = &sync.Pool{New: func() interface{} {
		tmp := make([]T, 0, opt.BatchSize)
		return &tmp
	}}
	e.cur = *e.pool.Get().(*[]T)

	for w := 0; w < opt.Concurrency; w++ {
		e.wg.Add(1)
		go e.run(w)
	}
	return e
}

func (e *Executor[T]) run(worker int) {
	defer e.wg.Done()
	for b := range e.queue {
		e.runOne(worker, b)
		b = b[:0]
		e.pool.Put(&b)
	}
}

func (e *Executor[T]) runOne(worker int, b []T) {
	defer func() {
		if p := recover(); p != nil {
			e.errOnce.Do(func() {
				e.err = fmt.Errorf("batch: consumer failed: %v", p)
			})
			e.invalid.Store(true)
		}
	}()
	if !e.invalid.Load() {
		e.consume(worker, b)
	}
}

// NextItem returns a pointer to the next free slot of the current
// batch. When the batch is full it is pushed to the queue first,
// blocking while the queue is full. Slots are reused across batches;
// callers must overwrite every field they care about.
func (e *Executor[T]) NextItem() *T {
	if len(e.cur) == e.opt.BatchSize {
		e.queue <- e.cur
		e.cur = *e.pool.Get().(*[]T)
	}
	if len(e.cur) < cap(e.cur) {
		e.cur = e.cur[:len(e.cur)+1]
	} else {
		var zero T
		e.cur = append(e.cur, zero)
	}
	return &e.cur[len(e.cur)-1]
}

// Valid reports whether the consumers are still healthy. It turns
// false once a consumer callback panicked; the error is returned by
// Close.
func (e *Executor[T]) Valid() bool {
	return !e.invalid.Load()
}

// Close flushes the pending partial batch, closes the queue, waits
// for the consumers and returns the first stored consumer error.
// The executor must not be used afterwards.
func (e *Executor[T]) Close() error {
	if e.closed {
		return e.err
	}
	e.closed = true
	if len(e.cur) > 0 {
		e.queue <- e.cur
		e.cur = nil
	}
	close(e.queue)
	e.wg.Wait()
	return e.err
}
