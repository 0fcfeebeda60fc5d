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

import "math"

// TargetID identifies a reference sequence in the database.
// IDs are dense, assigned in order of ingestion and never reused.
type TargetID uint32

// WindowID is the 0-based index of a sketching window within a target.
type WindowID uint32

// Width (bits) of the persisted integer types. Written to the database
// header so that loaders can reject binaries built with other widths.
const (
	FeatureBits    = 64
	TargetIDBits   = 32
	WindowIDBits   = 32
	BucketSizeBits = 8
)

// MaxTargetCount is the number of targets a database can hold.
const MaxTargetCount = uint64(math.MaxUint32)

// NullTarget marks "no target".
const NullTarget = TargetID(math.MaxUint32)

// MaxSupportedLocationsPerFeature is the hard cap on bucket sizes
// imposed by the bucket size type; one value is reserved.
const MaxSupportedLocationsPerFeature = math.MaxUint8 - 1

// Location is one sketching window of one target.
type Location struct {
	Win WindowID
	Tgt TargetID
}

// Less orders locations by target first, window second.
func (a Location) Less(b Location) bool {
	if a.Tgt != b.Tgt {
		return a.Tgt < b.Tgt
	}
	return a.Win < b.Win
}
