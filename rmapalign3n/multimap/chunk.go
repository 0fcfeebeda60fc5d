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

package multimap

// chunkMinSlab is the size of the first slab.
const chunkMinSlab = 1 << 12

// ChunkAllocator hands out contiguous runs of location slots carved
// from geometrically growing slabs. Freed runs are recycled in
// per-capacity free lists, so buckets of the same capacity class reuse
// each other's storage instead of hitting the heap.
//
// Not safe for concurrent use; all multimap mutations are serialized
// through the batch executor's single consumer.
type ChunkAllocator struct {
	slab []Location // current slab
	used int
	free map[int][][]Location // capacity class -> recycled runs
}

// NewChunkAllocator creates an empty allocator.
func NewChunkAllocator() *ChunkAllocator {
	return &ChunkAllocator{
		free: make(map[int][][]Location, 16),
	}
}

// Allocate returns a run of n contiguous location slots.
func (a *ChunkAllocator) Allocate(n int) []Location {
	if n < 1 {
		return nil
	}
	if runs := a.free[n]; len(runs) > 0 {
		r := runs[len(runs)-1]
		a.free[n] = runs[:len(runs)-1]
		return r
	}
	if a.used+n > len(a.slab) {
		size := chunkMinSlab
		if len(a.slab) > 0 {
			size = len(a.slab) << 1
		}
		if size < n {
			size = n
		}
		a.slab = make([]Location, size)
		a.used = 0
	}
	r := a.slab[a.used : a.used+n : a.used+n]
	a.used += n
	return r
}

// Deallocate recycles a run previously returned by Allocate.
// The run is keyed by its exact capacity.
func (a *ChunkAllocator) Deallocate(run []Location) {
	if cap(run) < 1 {
		return
	}
	run = run[:cap(run)]
	a.free[len(run)] = append(a.free[len(run)], run)
}
