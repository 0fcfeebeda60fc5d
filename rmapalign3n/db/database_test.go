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

import (
	"math/rand"
	"os"
	"testing"

	"github.com/muellan/rmapalign3n/rmapalign3n/candidates"
	"github.com/muellan/rmapalign3n/rmapalign3n/sketch"
)

var testBases = []byte("ACGT")

func randomSeq(r *rand.Rand, n int) []byte {
	seq := make([]byte, n)
	for i := range seq {
		seq[i] = testBases[r.Intn(4)]
	}
	return seq
}

func testSketcher(t *testing.T) *sketch.Sketcher {
	s, err := sketch.New(sketch.Options{
		K: 5, WinLen: 16, WinStride: 4, SketchLen: 4,
		ConvOrig: 'C', ConvRepl: 'T',
		Seed: 1,
	})
	if err != nil {
		t.Fatalf("creating sketcher: %s", err)
	}
	return s
}

func buildTestDatabase(t *testing.T, seqs [][]byte) *Database {
	database := New(testSketcher(t))
	for i, seq := range seqs {
		added, err := database.AddTarget(seq, "ref"+string(rune('A'+i)),
			FileSource{Filename: "refs.fa", Index: uint64(i)})
		if err != nil {
			t.Fatalf("adding target %d: %s", i, err)
		}
		if !added {
			t.Fatalf("target %d rejected", i)
		}
	}
	if err := database.WaitUntilAddTargetComplete(); err != nil {
		t.Fatalf("finishing ingestion: %s", err)
	}
	return database
}

func TestIngestion(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	seqs := [][]byte{randomSeq(r, 64), randomSeq(r, 64)}

	database := buildTestDatabase(t, seqs)

	if database.TargetCount() != 2 {
		t.Errorf("target count: %d != 2", database.TargetCount())
		return
	}

	// exactly (len-w+1)/s + 1 windows per target
	for i := uint64(0); i < 2; i++ {
		tgt := database.GetTarget(TargetID(i))
		if want := uint64((64-16+1)/4 + 1); tgt.Source.Windows != want {
			t.Errorf("windows of target %d: %d != %d", i, tgt.Source.Windows, want)
			return
		}
	}

	// duplicate names are rejected without changing the database
	added, err := database.AddTarget(seqs[0], "refA", FileSource{})
	if err != nil {
		t.Errorf("adding duplicate: %s", err)
		return
	}
	if added {
		t.Errorf("duplicate target name accepted")
		return
	}
	if err := database.WaitUntilAddTargetComplete(); err != nil {
		t.Errorf("finishing ingestion: %s", err)
		return
	}
	if database.TargetCount() != 2 {
		t.Errorf("target count after duplicate: %d != 2", database.TargetCount())
		return
	}

	if database.TargetWithName("refB") != 1 {
		t.Errorf("name lookup failed")
	}
	if database.TargetWithName("nope") != NullTarget {
		t.Errorf("lookup of unknown name did not return the null target")
	}
	if database.TargetWithSimilarName("ref") == NullTarget {
		t.Errorf("prefix lookup failed")
	}

	// every bucket is ordered by (target, window)
	database.WalkFeatures(func(key uint64, locs []Location) bool {
		for i := 1; i < len(locs); i++ {
			if !locs[i-1].Less(locs[i]) {
				t.Errorf("bucket of %d not strictly ordered", key)
				return false
			}
		}
		return true
	})
}

func TestAccumulateAndSort(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	seqs := [][]byte{randomSeq(r, 200), randomSeq(r, 200), randomSeq(r, 200)}

	database := buildTestDatabase(t, seqs)

	ms := NewMatchSorter()
	database.AccumulateMatches(seqs[1][20:100], ms)
	if ms.Empty() {
		t.Errorf("no matches for a subsequence of an indexed target")
		return
	}

	// multiset must survive sorting
	before := make(map[Location]int, ms.Len())
	for _, loc := range ms.Locations() {
		before[loc]++
	}

	ms.Sort()

	locs := ms.Locations()
	for i := 1; i < len(locs); i++ {
		if locs[i].Less(locs[i-1]) {
			t.Errorf("locations not sorted at %d", i)
			return
		}
	}
	after := make(map[Location]int, len(locs))
	for _, loc := range locs {
		after[loc]++
	}
	if len(before) != len(after) {
		t.Errorf("multiset changed by sorting")
		return
	}
	for loc, n := range before {
		if after[loc] != n {
			t.Errorf("multiset changed by sorting: %v", loc)
			return
		}
	}

	// scratch is reusable
	ms.Clear()
	if !ms.Empty() {
		t.Errorf("sorter not empty after clearing")
	}
}

func TestDatabaseRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(9))
	seqs := [][]byte{randomSeq(r, 64), randomSeq(r, 64)}

	db1 := buildTestDatabase(t, seqs)

	file := "test.db"
	n, err := db1.WriteToFile(file)
	if err != nil {
		t.Errorf("writing database: %s", err)
		return
	}
	t.Logf("%d features saved to %s, %d bytes", db1.FeatureCount(), file, n)

	db2, err := ReadFromFile(file, Everything)
	if err != nil {
		t.Errorf("reading database: %s", err)
		return
	}

	if db1.TargetCount() != db2.TargetCount() {
		t.Errorf("target counts unmatched: %d vs %d", db1.TargetCount(), db2.TargetCount())
		return
	}
	for i := uint64(0); i < db1.TargetCount(); i++ {
		t1, t2 := db1.GetTarget(TargetID(i)), db2.GetTarget(TargetID(i))
		if t1.Name != t2.Name || t1.Source != t2.Source {
			t.Errorf("target %d unmatched: %+v vs %+v", i, t1, t2)
			return
		}
	}

	if db1.FeatureCount() != db2.FeatureCount() ||
		db1.LocationCount() != db2.LocationCount() {
		t.Errorf("content counts unmatched: %d/%d vs %d/%d",
			db1.FeatureCount(), db1.LocationCount(),
			db2.FeatureCount(), db2.LocationCount())
		return
	}

	// every bucket must match as a sequence of locations
	db1.WalkFeatures(func(key uint64, locs []Location) bool {
		locs2 := db2.FindLocations(key)
		if len(locs) != len(locs2) {
			t.Errorf("bucket sizes of %d unmatched: %d vs %d", key, len(locs), len(locs2))
			return false
		}
		for i := range locs {
			if locs[i] != locs2[i] {
				t.Errorf("bucket of %d unmatched at %d", key, i)
				return false
			}
		}
		return true
	})

	// metadata-only scope skips the feature map
	db3, err := ReadFromFile(file, MetadataOnly)
	if err != nil {
		t.Errorf("reading metadata: %s", err)
		return
	}
	if db3.TargetCount() != db1.TargetCount() {
		t.Errorf("metadata target count unmatched")
		return
	}
	if db3.FeatureCount() != 0 {
		t.Errorf("metadata-only load read the feature map")
		return
	}

	if os.RemoveAll(file) != nil {
		t.Errorf("failed to remove the file: %s", file)
	}
}

func TestQuerySelfMapping(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	seqs := [][]byte{randomSeq(r, 64), randomSeq(r, 64)}

	database := buildTestDatabase(t, seqs)

	s := database.QuerySketcher()
	stride := s.WindowStride()
	winlen := s.WindowLen()

	// querying a window of the first reference must put that window's
	// target on top
	for win := 0; win < s.NumWindows(len(seqs[0])); win++ {
		beg := win * stride
		end := beg + winlen
		if end > len(seqs[0]) {
			end = len(seqs[0])
		}
		query := seqs[0][beg:end]

		// this window's own sketch
		var ownSketch []uint64
		s.ForEachSketch(query, func(_ int, sk []uint64) bool {
			ownSketch = append(ownSketch[:0], sk...)
			return false
		})
		if len(ownSketch) == 0 {
			continue
		}

		ms := NewMatchSorter()
		database.AccumulateMatches(query, ms)
		ms.Sort()

		best := candidates.CollectBest(ms.Locations(),
			candidates.Rules{MaxWindowsInRange: 1, MaxCandidates: 1})
		if best.Empty() {
			t.Errorf("window %d of target 0 yields no candidate", win)
			return
		}
		top := best.Candidates()[0]
		if top.Tgt != 0 {
			t.Errorf("window %d of target 0 mapped to target %d", win, top.Tgt)
			return
		}
		if top.Pos.Beg != top.Pos.End {
			t.Errorf("range longer than one window: %+v", top)
			return
		}
		if top.Hits != uint64(len(ownSketch)) {
			t.Errorf("window %d: top hits %d != sketch size %d", win, top.Hits, len(ownSketch))
			return
		}
		// the best window's sketch must contain all query features
		for _, f := range ownSketch {
			found := false
			for _, loc := range database.FindLocations(f) {
				if loc.Tgt == 0 && loc.Win == top.Pos.Beg {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("window %d: feature %d not located in best window %d",
					win, f, top.Pos.Beg)
				return
			}
		}
	}
}
