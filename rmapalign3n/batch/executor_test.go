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

package batch

import (
	"testing"
)

func TestExecutorOrdering(t *testing.T) {
	// 1000 items across 3 batches (400+400+200), one consumer
	var arrived []int
	var batches int

	e := New(Options{BatchSize: 400, QueueSize: 4, Concurrency: 1},
		func(_ int, b []int) {
			batches++
			arrived = append(arrived, b...)
		})

	for i := 0; i < 1000; i++ {
		item := e.NextItem()
		*item = i
	}

	if !e.Valid() {
		t.Errorf("executor invalid before close")
		return
	}
	if err := e.Close(); err != nil {
		t.Errorf("closing executor: %s", err)
		return
	}

	if batches != 3 {
		t.Errorf("number of batches: %d != 3", batches)
		return
	}
	if len(arrived) != 1000 {
		t.Errorf("number of items: %d != 1000", len(arrived))
		return
	}
	for i, v := range arrived {
		if v != i {
			t.Errorf("item %d arrived as %d", i, v)
			return
		}
	}
	if !e.Valid() {
		t.Errorf("executor invalid after clean close")
	}
}

func TestExecutorPartialFlush(t *testing.T) {
	var arrived []int
	e := New(Options{BatchSize: 100, QueueSize: 2, Concurrency: 1},
		func(_ int, b []int) {
			arrived = append(arrived, b...)
		})

	for i := 0; i < 42; i++ {
		*e.NextItem() = i
	}
	if err := e.Close(); err != nil {
		t.Errorf("closing executor: %s", err)
		return
	}
	if len(arrived) != 42 {
		t.Errorf("number of items: %d != 42", len(arrived))
	}
}

func TestExecutorConsumerError(t *testing.T) {
	e := New(Options{BatchSize: 10, QueueSize: 2, Concurrency: 1},
		func(_ int, b []int) {
			panic("boom")
		})

	for i := 0; i < 100; i++ {
		*e.NextItem() = i
	}
	err := e.Close()
	if err == nil {
		t.Errorf("consumer error not propagated")
		return
	}
	if e.Valid() {
		t.Errorf("executor still valid after consumer error")
	}
}
