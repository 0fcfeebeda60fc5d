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

package candidates

import (
	"testing"

	"github.com/muellan/rmapalign3n/rmapalign3n/multimap"
)

func loc(tgt, win int) multimap.Location {
	return multimap.Location{Win: multimap.WindowID(win), Tgt: multimap.TargetID(tgt)}
}

func TestSlidingWindowScan(t *testing.T) {
	matches := []multimap.Location{
		loc(0, 0), loc(0, 1), loc(0, 2), loc(0, 10), loc(0, 11), loc(1, 0),
	}

	var emitted []Candidate
	ForAllContiguousWindowRanges(matches, 3, func(c Candidate) bool {
		emitted = append(emitted, c)
		return true
	})

	if len(emitted) != 2 {
		t.Errorf("number of candidates: %d != 2", len(emitted))
		return
	}

	c := emitted[0]
	if c.Tgt != 0 || c.Hits != 3 || c.Pos.Beg != 0 || c.Pos.End != 2 {
		t.Errorf("candidate for target 0: %+v", c)
		return
	}

	c = emitted[1]
	if c.Tgt != 1 || c.Hits != 1 || c.Pos.Beg != 0 || c.Pos.End != 0 {
		t.Errorf("candidate for target 1: %+v", c)
	}
}

func TestScanAbort(t *testing.T) {
	matches := []multimap.Location{
		loc(0, 0), loc(1, 0), loc(2, 0),
	}

	var emitted int
	ForAllContiguousWindowRanges(matches, 3, func(c Candidate) bool {
		emitted++
		return emitted < 2
	})
	if emitted != 2 {
		t.Errorf("number of emitted candidates: %d != 2", emitted)
	}
}

func TestCandidateInvariants(t *testing.T) {
	matches := make([]multimap.Location, 0, 256)
	// dense and sparse stretches in several targets
	for tgt := 0; tgt < 5; tgt++ {
		for win := 0; win < 50; win += tgt + 1 {
			matches = append(matches, loc(tgt, win))
		}
	}

	const W = 4
	ForAllContiguousWindowRanges(matches, W, func(c Candidate) bool {
		size := uint64(c.Pos.Size())
		if size > W {
			t.Errorf("range longer than W: %+v", c)
			return false
		}
		if c.Pos.Beg > c.Pos.End {
			t.Errorf("inverted range: %+v", c)
			return false
		}
		if c.Hits > size {
			// every window of this test contributes at most one hit
			t.Errorf("more hits than windows in range: %+v", c)
			return false
		}
		return true
	})
}

func TestBestDistinct(t *testing.T) {
	matches := []multimap.Location{
		loc(0, 0),
		loc(1, 0), loc(1, 1), loc(1, 2),
		loc(2, 5), loc(2, 6),
		loc(3, 1), loc(3, 2),
	}

	best := CollectBest(matches, Rules{MaxWindowsInRange: 3, MaxCandidates: 3})

	if best.Len() != 3 {
		t.Errorf("number of candidates: %d != 3", best.Len())
		return
	}

	cands := best.Candidates()
	if cands[0].Tgt != 1 || cands[0].Hits != 3 {
		t.Errorf("top candidate: %+v", cands[0])
		return
	}
	// equal hit counts: earlier-emitted target first
	if cands[1].Tgt != 2 || cands[1].Hits != 2 {
		t.Errorf("second candidate: %+v", cands[1])
		return
	}
	if cands[2].Tgt != 3 || cands[2].Hits != 2 {
		t.Errorf("third candidate: %+v", cands[2])
		return
	}

	// sorted by hits descending, each target at most once
	seen := make(map[multimap.TargetID]bool, best.Len())
	for i, c := range cands {
		if i > 0 && c.Hits > cands[i-1].Hits {
			t.Errorf("candidates not sorted by hits at %d", i)
			return
		}
		if seen[c.Tgt] {
			t.Errorf("target %d appears twice", c.Tgt)
			return
		}
		seen[c.Tgt] = true
	}
}

func TestAllDistinct(t *testing.T) {
	matches := []multimap.Location{
		loc(0, 0), loc(1, 0), loc(1, 1), loc(2, 7),
	}

	all := CollectAll(matches, Rules{MaxWindowsInRange: 3})
	if all.Len() != 3 {
		t.Errorf("number of candidates: %d != 3", all.Len())
		return
	}
	for i, c := range all.Candidates() {
		if c.Tgt != multimap.TargetID(i) {
			t.Errorf("candidate %d has target %d", i, c.Tgt)
			return
		}
	}
}
