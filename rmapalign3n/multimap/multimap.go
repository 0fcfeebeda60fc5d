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
	"github.com/muellan/rmapalign3n/rmapalign3n/util"
)

// DefaultMaxLoadFactor is the load threshold that triggers rehashing.
const DefaultMaxLoadFactor = 0.8

// initialBucketCount is the table size after the first insertion.
const initialBucketCount = 127

type slotState uint8

const (
	slotEmpty slotState = iota
	slotOccupied
	slotDeleted // tombstone; probes continue past it
)

// bucket is one table slot: the feature key plus a bounded list of
// locations stored in a chunk-allocated run. size <= cap(locs) and
// cap(locs) never exceeds MaxSupportedLocationsPerFeature.
type bucket struct {
	key   uint64
	locs  []Location // len == capacity, carved from the chunk allocator
	size  uint8
	state slotState
}

// Multimap maps features to bounded multisets of target locations.
// Open addressing with linear probing; an empty slot terminates a
// probe sequence, tombstones do not. Tombstones are purged whenever
// the table rehashes.
type Multimap struct {
	hash  func(uint64) uint64
	alloc *ChunkAllocator
	slots []bucket

	keys       uint64 // occupied slots
	tombstones uint64
	nonEmpty   uint64 // occupied slots with size > 0
	values     uint64 // total stored locations

	maxLoadFactor float64
}

// New creates an empty multimap with the default key hash.
func New() *Multimap {
	return NewWithHash(util.Hash64)
}

// NewWithHash creates an empty multimap with a custom key hash.
func NewWithHash(hash func(uint64) uint64) *Multimap {
	return &Multimap{
		hash:          hash,
		alloc:         NewChunkAllocator(),
		maxLoadFactor: DefaultMaxLoadFactor,
	}
}

// MaxLoadFactor returns the current load threshold.
func (m *Multimap) MaxLoadFactor() float64 { return m.maxLoadFactor }

// SetMaxLoadFactor sets the load threshold; values outside (0.1, 0.99)
// are clamped.
func (m *Multimap) SetMaxLoadFactor(f float64) {
	if f < 0.1 {
		f = 0.1
	} else if f > 0.99 {
		f = 0.99
	}
	m.maxLoadFactor = f
}

// BucketCount returns the number of table slots.
func (m *Multimap) BucketCount() uint64 { return uint64(len(m.slots)) }

// KeyCount returns the number of stored features.
func (m *Multimap) KeyCount() uint64 { return m.keys }

// NonEmptyBucketCount returns the number of features with at least one
// location.
func (m *Multimap) NonEmptyBucketCount() uint64 { return m.nonEmpty }

// ValueCount returns the total number of stored locations.
func (m *Multimap) ValueCount() uint64 { return m.values }

// Empty reports whether no feature is stored.
func (m *Multimap) Empty() bool { return m.keys == 0 }

// Iter addresses one bucket of the multimap. It stays valid until the
// next Insert (which may rehash the table).
type Iter struct {
	m *Multimap
	i int
}

// Found reports whether the iterator addresses a bucket.
func (it Iter) Found() bool { return it.i >= 0 }

// Key returns the bucket's feature.
func (it Iter) Key() uint64 { return it.m.slots[it.i].key }

// Size returns the number of locations in the bucket.
func (it Iter) Size() int { return int(it.m.slots[it.i].size) }

// Locations returns the bucket's locations. The slice aliases the
// multimap's storage and must not be modified.
func (it Iter) Locations() []Location {
	b := &it.m.slots[it.i]
	return b.locs[:b.size]
}

// end is the not-found sentinel.
func (m *Multimap) end() Iter { return Iter{m: m, i: -1} }

// Find probes for key and returns an iterator to its bucket, or the
// end sentinel if the key is not present.
func (m *Multimap) Find(key uint64) Iter {
	if len(m.slots) == 0 {
		return m.end()
	}
	n := uint64(len(m.slots))
	i := m.hash(key) % n
	for probed := uint64(0); probed < n; probed++ {
		s := &m.slots[i]
		switch s.state {
		case slotEmpty:
			return m.end()
		case slotOccupied:
			if s.key == key {
				return Iter{m: m, i: int(i)}
			}
		}
		i++
		if i == n {
			i = 0
		}
	}
	return m.end()
}

// Insert appends loc to the bucket of key, creating the bucket on its
// first insertion. Bucket capacity starts at 1 and doubles up to
// MaxSupportedLocationsPerFeature; once that cap is reached further
// insertions into the bucket are dropped. If the table load (occupied
// plus tombstoned slots) would exceed the max load factor, the table
// is rehashed to the next prime >= 2x its size first.
//
// Returns an iterator to the key's bucket.
func (m *Multimap) Insert(key uint64, loc Location) Iter {
	if len(m.slots) == 0 {
		m.rehash(initialBucketCount)
	} else if float64(m.keys+m.tombstones+1) > m.maxLoadFactor*float64(len(m.slots)) {
		m.rehash(util.NextPrime(2 * uint64(len(m.slots))))
	}

	n := uint64(len(m.slots))
	i := m.hash(key) % n
	firstTombstone := -1
	for {
		s := &m.slots[i]
		if s.state == slotOccupied {
			if s.key == key {
				m.appendToBucket(s, loc)
				return Iter{m: m, i: int(i)}
			}
		} else if s.state == slotDeleted {
			if firstTombstone < 0 {
				firstTombstone = int(i)
			}
		} else { // empty, place here or in an earlier tombstone
			at := int(i)
			if firstTombstone >= 0 {
				at = firstTombstone
				m.tombstones--
			}
			s = &m.slots[at]
			s.key = key
			s.state = slotOccupied
			s.locs = m.alloc.Allocate(1)
			s.locs[0] = loc
			s.size = 1
			m.keys++
			m.nonEmpty++
			m.values++
			return Iter{m: m, i: at}
		}
		i++
		if i == n {
			i = 0
		}
	}
}

func (m *Multimap) appendToBucket(s *bucket, loc Location) {
	if int(s.size) == len(s.locs) {
		if len(s.locs) >= MaxSupportedLocationsPerFeature {
			return // hard cap reached
		}
		newCap := len(s.locs) << 1
		if newCap > MaxSupportedLocationsPerFeature {
			newCap = MaxSupportedLocationsPerFeature
		}
		run := m.alloc.Allocate(newCap)
		copy(run, s.locs[:s.size])
		m.alloc.Deallocate(s.locs)
		s.locs = run
	}
	s.locs[s.size] = loc
	s.size++
	m.values++
}

// Shrink truncates the bucket to at most max locations.
func (m *Multimap) Shrink(it Iter, max int) {
	if !it.Found() {
		return
	}
	s := &m.slots[it.i]
	if int(s.size) > max {
		m.values -= uint64(int(s.size) - max)
		s.size = uint8(max)
	}
}

// Erase removes the bucket, frees its run and leaves a tombstone.
// Tombstones are cleaned up on the next rehash.
func (m *Multimap) Erase(it Iter) {
	if !it.Found() {
		return
	}
	m.eraseAt(it.i)
}

func (m *Multimap) eraseAt(i int) {
	s := &m.slots[i]
	if s.state != slotOccupied {
		return
	}
	m.values -= uint64(s.size)
	if s.size > 0 {
		m.nonEmpty--
	}
	m.alloc.Deallocate(s.locs)
	s.locs = nil
	s.size = 0
	s.state = slotDeleted
	m.keys--
	m.tombstones++
}

// InsertRun places a whole bucket at once, used when rebuilding the
// map from a database file. Runs longer than the supported maximum are
// truncated.
func (m *Multimap) InsertRun(key uint64, locs []Location) {
	if len(locs) == 0 {
		return
	}
	if len(locs) > MaxSupportedLocationsPerFeature {
		locs = locs[:MaxSupportedLocationsPerFeature]
	}
	it := m.Insert(key, locs[0])
	s := &m.slots[it.i]
	if len(s.locs) < len(locs) {
		run := m.alloc.Allocate(len(locs))
		copy(run, s.locs[:s.size])
		m.alloc.Deallocate(s.locs)
		s.locs = run
	}
	n := copy(s.locs[s.size:], locs[1:])
	s.size += uint8(n)
	m.values += uint64(n)
}

// RemoveFeaturesWithMoreLocationsThan erases all buckets with more
// than max locations and returns the number of removed features.
func (m *Multimap) RemoveFeaturesWithMoreLocationsThan(max int) uint64 {
	var removed uint64
	for i := range m.slots {
		if m.slots[i].state == slotOccupied && int(m.slots[i].size) > max {
			m.eraseAt(i)
			removed++
		}
	}
	return removed
}

// RemoveAmbiguousFeatures erases all buckets whose locations span more
// than maxambig distinct targets and returns the number of removed
// features. Bucket locations are ordered by target, so one pass
// counting target changes suffices.
func (m *Multimap) RemoveAmbiguousFeatures(maxambig int) uint64 {
	var removed uint64
	for i := range m.slots {
		s := &m.slots[i]
		if s.state != slotOccupied || s.size == 0 {
			continue
		}
		targets := 1
		prev := s.locs[0].Tgt
		for _, loc := range s.locs[1:s.size] {
			if loc.Tgt != prev {
				targets++
				prev = loc.Tgt
			}
		}
		if targets > maxambig {
			m.eraseAt(i)
			removed++
		}
	}
	return removed
}

// Walk visits every non-empty bucket in slot order.
// Returning false from fn stops the walk.
func (m *Multimap) Walk(fn func(key uint64, locs []Location) bool) {
	for i := range m.slots {
		s := &m.slots[i]
		if s.state == slotOccupied && s.size > 0 {
			if !fn(s.key, s.locs[:s.size]) {
				return
			}
		}
	}
}

// Clear drops all buckets and the backing storage.
func (m *Multimap) Clear() {
	m.slots = nil
	m.alloc = NewChunkAllocator()
	m.keys = 0
	m.tombstones = 0
	m.nonEmpty = 0
	m.values = 0
}

func (m *Multimap) rehash(n uint64) {
	old := m.slots
	m.slots = make([]bucket, n)
	m.tombstones = 0
	for i := range old {
		s := &old[i]
		if s.state != slotOccupied {
			continue
		}
		j := m.hash(s.key) % n
		for m.slots[j].state == slotOccupied {
			j++
			if j == n {
				j = 0
			}
		}
		m.slots[j] = *s
	}
}
