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
	"fmt"
	"io"

	"gonum.org/v1/gonum/stat"
)

// LocationListStatistics summarizes the bucket (location list) sizes
// of the feature map.
type LocationListStatistics struct {
	Buckets uint64
	Mean    float64
	StdDev  float64
	Min     int
	Max     int
}

// LocationListSizeStatistics computes bucket size statistics over all
// non-empty buckets.
func (db *Database) LocationListSizeStatistics() LocationListStatistics {
	sizes := make([]float64, 0, db.features.NonEmptyBucketCount())
	s := LocationListStatistics{Min: 0, Max: 0}
	first := true
	db.features.Walk(func(_ uint64, locs []Location) bool {
		n := len(locs)
		sizes = append(sizes, float64(n))
		if first || n < s.Min {
			s.Min = n
		}
		if first || n > s.Max {
			s.Max = n
		}
		first = false
		return true
	})
	s.Buckets = uint64(len(sizes))
	if len(sizes) > 0 {
		s.Mean, s.StdDev = stat.MeanStdDev(sizes, nil)
		if len(sizes) == 1 {
			s.StdDev = 0
		}
	}
	return s
}

// PrintFeatureMap writes every feature with its locations, one feature
// per line: "feature -> (tgt,win)(tgt,win)...".
func (db *Database) PrintFeatureMap(w io.Writer) {
	db.features.Walk(func(key uint64, locs []Location) bool {
		fmt.Fprintf(w, "%d -> ", key)
		for _, loc := range locs {
			fmt.Fprintf(w, "(%d,%d)", loc.Tgt, loc.Win)
		}
		fmt.Fprintln(w)
		return true
	})
}

// PrintFeatureCounts writes every feature with its location count.
func (db *Database) PrintFeatureCounts(w io.Writer) {
	db.features.Walk(func(key uint64, locs []Location) bool {
		fmt.Fprintf(w, "%d -> %d\n", key, len(locs))
		return true
	})
}
