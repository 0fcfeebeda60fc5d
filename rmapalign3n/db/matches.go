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

package db

// MatchSorter is per-query scratch for match accumulation. Bucket
// contents are appended as runs (each bucket is already sorted by
// (target, window) because locations are inserted in that order during
// the single-pass build); Sort merges the runs into one sorted list.
//
// A MatchSorter is owned by one query worker; Clear keeps the backing
// capacity for the next query.
type MatchSorter struct {
	locs    []Location // match locations gathered from the feature map
	offsets []int      // run boundaries for the merge
	temp    []Location // merge buffer
}

// NewMatchSorter creates an empty sorter.
func NewMatchSorter() *MatchSorter {
	return &MatchSorter{
		locs:    make([]Location, 0, 1024),
		offsets: []int{0},
		temp:    make([]Location, 0, 1024),
	}
}

// Clear drops the gathered matches but keeps the capacity.
func (s *MatchSorter) Clear() {
	s.locs = s.locs[:0]
	s.offsets = append(s.offsets[:0], 0)
}

// Empty reports whether no match was gathered.
func (s *MatchSorter) Empty() bool { return len(s.locs) == 0 }

// Len returns the number of gathered match locations.
func (s *MatchSorter) Len() int { return len(s.locs) }

// Locations returns the gathered (after Sort: sorted) locations.
func (s *MatchSorter) Locations() []Location { return s.locs }

// Sort merges the sorted runs bottom-up into a single list ordered by
// (target, window), using the run boundaries recorded during
// accumulation. O(L log R) for L locations in R runs.
func (s *MatchSorter) Sort() {
	if len(s.offsets) < 3 {
		return
	}
	if cap(s.temp) < len(s.locs) {
		s.temp = make([]Location, len(s.locs))
	}
	s.temp = s.temp[:len(s.locs)]

	numChunks := len(s.offsets) - 1
	inout, temp := s.locs, s.temp
	for step := 1; step < numChunks; step <<= 1 {
		for i := 0; i < numChunks; i += 2 * step {
			begin := s.offsets[i]
			mid := s.offsets[numChunks]
			if i+step <= numChunks {
				mid = s.offsets[i+step]
			}
			end := s.offsets[numChunks]
			if i+2*step <= numChunks {
				end = s.offsets[i+2*step]
			}
			mergeLocations(inout[begin:mid], inout[mid:end], temp[begin:end])
		}
		inout, temp = temp, inout
	}
	s.locs, s.temp = inout, temp
}

// mergeLocations merges two sorted runs into out.
// len(out) == len(a)+len(b).
func mergeLocations(a, b, out []Location) {
	var i, j, k int
	for i < len(a) && j < len(b) {
		if b[j].Less(a[i]) {
			out[k] = b[j]
			j++
		} else {
			out[k] = a[i]
			i++
		}
		k++
	}
	k += copy(out[k:], a[i:])
	copy(out[k:], b[j:])
}
