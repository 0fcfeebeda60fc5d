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

import (
	"math/rand"
	"testing"
)

func TestInsertFind(t *testing.T) {
	m := New()

	n := 10000
	r := rand.New(rand.NewSource(1))
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = r.Uint64()
		m.Insert(keys[i], Location{Win: WindowID(i), Tgt: 0})
	}

	for i, key := range keys {
		it := m.Find(key)
		if !it.Found() {
			t.Errorf("key missing: %d", key)
			return
		}
		found := false
		for _, loc := range it.Locations() {
			if loc.Win == WindowID(i) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("location missing for key %d", key)
			return
		}
	}

	if m.Find(0xdeadbeef).Found() != false {
		// rand.Uint64 almost surely never produced this value
		t.Errorf("found a key that was never inserted")
	}

	// load factor invariant after all inserts settled
	if float64(m.KeyCount()) > m.MaxLoadFactor()*float64(m.BucketCount()) {
		t.Errorf("load factor violated: %d keys in %d buckets",
			m.KeyCount(), m.BucketCount())
	}
}

func TestBucketCap(t *testing.T) {
	m := New()

	// maxLocationsPerFeature = 2: the bucket stores the first two
	const f = uint64(42)
	const max = 2

	for w := 0; w < 3; w++ {
		it := m.Insert(f, Location{Win: WindowID(w), Tgt: 0})
		if it.Size() > max {
			m.Shrink(it, max)
		}
	}

	it := m.Find(f)
	if !it.Found() {
		t.Errorf("feature missing")
		return
	}
	if it.Size() != 2 {
		t.Errorf("bucket size: %d != 2", it.Size())
		return
	}
	locs := it.Locations()
	if locs[0].Win != 0 || locs[1].Win != 1 {
		t.Errorf("unexpected bucket contents: %v", locs)
		return
	}
	if m.ValueCount() != 2 {
		t.Errorf("value count: %d != 2", m.ValueCount())
	}
}

func TestBucketOrdering(t *testing.T) {
	m := New()

	// insertion in increasing (tgt, win) order, as during the build;
	// features are distinct within one window
	for tgt := 0; tgt < 4; tgt++ {
		for win := 0; win < 500; win++ {
			for j := 0; j < 4; j++ {
				f := uint64((win*7 + j*13) % 800)
				m.Insert(f, Location{Win: WindowID(win), Tgt: TargetID(tgt)})
			}
		}
	}

	m.Walk(func(key uint64, locs []Location) bool {
		if len(locs) > MaxSupportedLocationsPerFeature {
			t.Errorf("bucket of %d larger than supported: %d", key, len(locs))
			return false
		}
		for i := 1; i < len(locs); i++ {
			if !locs[i-1].Less(locs[i]) {
				t.Errorf("bucket of %d not strictly ordered at %d", key, i)
				return false
			}
		}
		return true
	})
}

func TestEraseAndTombstones(t *testing.T) {
	m := New()

	for i := uint64(0); i < 1000; i++ {
		m.Insert(i, Location{Win: WindowID(i), Tgt: 0})
	}
	values := m.ValueCount()

	for i := uint64(0); i < 1000; i += 2 {
		m.Erase(m.Find(i))
	}

	if m.KeyCount() != 500 {
		t.Errorf("key count: %d != 500", m.KeyCount())
		return
	}
	if m.ValueCount() != values-500 {
		t.Errorf("value count: %d != %d", m.ValueCount(), values-500)
		return
	}

	// erased keys gone, probes over tombstones still find the others
	for i := uint64(0); i < 1000; i++ {
		found := m.Find(i).Found()
		if i%2 == 0 && found {
			t.Errorf("erased key still found: %d", i)
			return
		}
		if i%2 == 1 && !found {
			t.Errorf("key lost after erasing others: %d", i)
			return
		}
	}

	// inserting past the load factor rehashes and purges tombstones
	for i := uint64(1000); i < 5000; i++ {
		m.Insert(i, Location{Win: WindowID(i), Tgt: 0})
	}
	for i := uint64(1); i < 1000; i += 2 {
		if !m.Find(i).Found() {
			t.Errorf("key lost after rehash: %d", i)
			return
		}
	}
}

func TestRemoveOverpopulated(t *testing.T) {
	m := New()

	for w := 0; w < 10; w++ {
		m.Insert(1, Location{Win: WindowID(w), Tgt: 0})
	}
	m.Insert(2, Location{Win: 0, Tgt: 0})

	if n := m.RemoveFeaturesWithMoreLocationsThan(5); n != 1 {
		t.Errorf("removed features: %d != 1", n)
		return
	}
	if m.Find(1).Found() {
		t.Errorf("overpopulated feature still present")
		return
	}
	if !m.Find(2).Found() {
		t.Errorf("small feature removed")
	}
}

func TestRemoveAmbiguous(t *testing.T) {
	m := New()

	// feature F with locations in targets {0,1,2,3}
	const f = uint64(7)
	for tgt := 0; tgt < 4; tgt++ {
		m.Insert(f, Location{Win: 0, Tgt: TargetID(tgt)})
	}

	if n := m.RemoveAmbiguousFeatures(4); n != 0 {
		t.Errorf("removed features with maxambig=4: %d != 0", n)
		return
	}
	if !m.Find(f).Found() {
		t.Errorf("feature erased although within the ambiguity limit")
		return
	}

	if n := m.RemoveAmbiguousFeatures(3); n != 1 {
		t.Errorf("removed features with maxambig=3: %d != 1", n)
		return
	}
	if m.Find(f).Found() {
		t.Errorf("ambiguous feature still present")
	}
}

func TestChunkAllocatorReuse(t *testing.T) {
	a := NewChunkAllocator()

	r1 := a.Allocate(4)
	if len(r1) != 4 {
		t.Errorf("run length: %d != 4", len(r1))
		return
	}
	r1[0] = Location{Win: 1, Tgt: 2}
	a.Deallocate(r1)

	r2 := a.Allocate(4)
	if cap(r2) != 4 {
		t.Errorf("recycled run capacity: %d != 4", cap(r2))
		return
	}
	if &r1[0] != &r2[0] {
		t.Errorf("run of the same capacity class not recycled")
	}

	// different capacity class gets fresh memory
	r3 := a.Allocate(8)
	if len(r3) != 8 {
		t.Errorf("run length: %d != 8", len(r3))
	}
}
