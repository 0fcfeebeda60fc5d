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

// Package candidates turns a sorted match location list into per-target
// hit clusters: for every target the contiguous window range (at most
// MaxWindowsInRange long) with the highest hit count.
package candidates

import (
	"sort"

	"github.com/muellan/rmapalign3n/rmapalign3n/multimap"
)

// WindowRange is an inclusive window index range [Beg, End].
type WindowRange struct {
	Beg multimap.WindowID
	End multimap.WindowID
}

// Size returns the number of windows in the range.
func (r WindowRange) Size() multimap.WindowID { return r.End - r.Beg + 1 }

// Candidate is a hit count and its position in a candidate target.
type Candidate struct {
	Tgt  multimap.TargetID
	Hits uint64
	Pos  WindowRange
}

// Rules control candidate generation.
type Rules struct {
	// maximum length of a contiguous window range
	MaxWindowsInRange multimap.WindowID

	// maximum number of candidates to be generated; <= 0 means no limit
	MaxCandidates int
}

// DefaultRules generate at most unbounded candidates over 3-window
// ranges.
var DefaultRules = Rules{MaxWindowsInRange: 3}

// ForAllContiguousWindowRanges produces, per target, the contiguous
// window range of matches at most numWindows long with the maximal hit
// count. matches must be sorted by target first and window second.
// The scan is aborted if consume returns false.
func ForAllContiguousWindowRanges(
	matches []multimap.Location,
	numWindows multimap.WindowID,
	consume func(Candidate) bool,
) {
	if len(matches) == 0 {
		return
	}

	// first entry in the list
	fst := 0
	cur := Candidate{
		Tgt:  matches[0].Tgt,
		Hits: 1,
		Pos:  WindowRange{matches[0].Win, matches[0].Win},
	}
	hits := uint64(1)

	// rest of the list: look for neighboring windows with the highest
	// total hit count as long as we stay in the same target and in a
	// contiguous range
	for lst := 1; lst < len(matches); lst++ {
		if matches[lst].Tgt == cur.Tgt {
			// add new hits to the right
			hits++
			// subtract hits on the left that fall out of range
			for fst != lst && matches[lst].Win-matches[fst].Win >= numWindows {
				hits--
				fst++
			}
			// track the best of the local sub-ranges
			if hits > cur.Hits {
				cur.Hits = hits
				cur.Pos.Beg = matches[fst].Win
				cur.Pos.End = matches[lst].Win
			}
		} else { // end of the current target
			if !consume(cur) {
				return
			}
			fst = lst
			hits = 1
			cur = Candidate{
				Tgt:  matches[lst].Tgt,
				Hits: 1,
				Pos:  WindowRange{matches[lst].Win, matches[lst].Win},
			}
		}
	}
	consume(cur)
}

// BestDistinct collects contiguous-window-range candidates of distinct
// targets, keeps them sorted by hits descending and truncates the list
// to Rules.MaxCandidates. With equal hit counts, earlier-inserted
// (lower target id) candidates come first.
type BestDistinct struct {
	top []Candidate
}

// CollectBest scans a sorted match list and returns the top candidates
// according to the rules.
func CollectBest(matches []multimap.Location, rules Rules) *BestDistinct {
	b := &BestDistinct{}
	ForAllContiguousWindowRanges(matches, rules.MaxWindowsInRange,
		func(c Candidate) bool {
			return b.Insert(c, rules)
		})
	return b
}

// Insert adds a candidate, keeping the list sorted by hits descending.
func (b *BestDistinct) Insert(c Candidate, rules Rules) bool {
	i := sort.Search(len(b.top), func(i int) bool {
		return b.top[i].Hits < c.Hits
	})
	if i < len(b.top) || rules.MaxCandidates <= 0 || len(b.top) < rules.MaxCandidates {
		b.top = append(b.top, Candidate{})
		copy(b.top[i+1:], b.top[i:])
		b.top[i] = c

		if rules.MaxCandidates > 0 && len(b.top) > rules.MaxCandidates {
			b.top = b.top[:rules.MaxCandidates]
		}
	}
	return true
}

// Candidates returns the collected list, highest hit count first.
func (b *BestDistinct) Candidates() []Candidate { return b.top }

// Empty reports whether no candidate was collected.
func (b *BestDistinct) Empty() bool { return len(b.top) == 0 }

// Len returns the number of collected candidates.
func (b *BestDistinct) Len() int { return len(b.top) }

// AllDistinct collects every per-target best candidate in emission
// order, without any bound.
type AllDistinct struct {
	cands []Candidate
}

// CollectAll scans a sorted match list and returns all per-target best
// candidates.
func CollectAll(matches []multimap.Location, rules Rules) *AllDistinct {
	a := &AllDistinct{}
	ForAllContiguousWindowRanges(matches, rules.MaxWindowsInRange,
		func(c Candidate) bool {
			a.cands = append(a.cands, c)
			return true
		})
	return a
}

// Candidates returns the collected list in emission (target id) order.
func (a *AllDistinct) Candidates() []Candidate { return a.cands }

// Len returns the number of collected candidates.
func (a *AllDistinct) Len() int { return len(a.cands) }
