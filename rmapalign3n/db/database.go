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

// Package db implements the sketch database: it maps features (min-hash
// values of 3N-converted k-mers) to locations (window, target) in
// reference sequences, and gathers the matches of query sequences.
//
// Terminology:
//
//	target    reference sequence whose sketches are stored in the db
//	query     sequence (usually reads) matched against the targets
//	window    sampling interval of a target, identified by its index
//	location  (window, target) pair
//	feature   single element of a window sketch
package db

import (
	"errors"
	"sort"
	"strings"

	"github.com/muellan/rmapalign3n/rmapalign3n/batch"
	"github.com/muellan/rmapalign3n/rmapalign3n/multimap"
	"github.com/muellan/rmapalign3n/rmapalign3n/sketch"
)

// TargetID identifies a reference sequence, see package multimap.
type TargetID = multimap.TargetID

// WindowID identifies a window within a target, see package multimap.
type WindowID = multimap.WindowID

// Location is one sketching window of one target, see package multimap.
type Location = multimap.Location

// MaxTargetCount is the number of targets a database can hold.
const MaxTargetCount = multimap.MaxTargetCount

// NullTarget marks "no target".
const NullTarget = multimap.NullTarget

// MaxSupportedLocationsPerFeature is the hard per-feature location cap
// imposed by the bucket size type.
const MaxSupportedLocationsPerFeature = multimap.MaxSupportedLocationsPerFeature

// ErrTargetLimitExceeded is returned by AddTarget when the target id
// space is exhausted.
var ErrTargetLimitExceeded = errors.New("db: target count limit exceeded")

// windowSketch is the unit of batched, asynchronous insertion into the
// feature map.
type windowSketch struct {
	tgt TargetID
	win WindowID
	sk  []uint64
}

// Database owns the sketchers, the feature multimap, the target
// metadata and the name index. It is mutated only during ingestion
// (through a single inserter goroutine) and is immutable afterwards;
// query workers share it read-only.
type Database struct {
	targetSketcher *sketch.Sketcher
	querySketcher  *sketch.Sketcher

	maxLocsPerFeature int
	features          *multimap.Multimap

	targets []*Target
	name2id map[string]TargetID

	inserter *batch.Executor[windowSketch]
	insErr   error
}

// New creates an empty database using s for both target and query
// sketching.
func New(s *sketch.Sketcher) *Database {
	return NewWithSketchers(s, s)
}

// NewWithSketchers creates an empty database with separate target and
// query sketchers.
func NewWithSketchers(targetSketcher, querySketcher *sketch.Sketcher) *Database {
	return &Database{
		targetSketcher:    targetSketcher,
		querySketcher:     querySketcher,
		maxLocsPerFeature: MaxSupportedLocationsPerFeature,
		features:          multimap.New(),
		targets:           make([]*Target, 0, 128),
		name2id:           make(map[string]TargetID, 128),
	}
}

// TargetSketcher returns the sketcher used for reference sequences.
func (db *Database) TargetSketcher() *sketch.Sketcher { return db.targetSketcher }

// QuerySketcher returns the sketcher used for query sequences.
func (db *Database) QuerySketcher() *sketch.Sketcher { return db.querySketcher }

// SetQuerySketcher replaces the query sketcher.
func (db *Database) SetQuerySketcher(s *sketch.Sketcher) { db.querySketcher = s }

// MaxLocationsPerFeature returns the per-feature location cap.
func (db *Database) MaxLocationsPerFeature() int { return db.maxLocsPerFeature }

// SetMaxLocationsPerFeature sets the per-feature location cap. If the
// new cap is lower than before, existing buckets are truncated.
func (db *Database) SetMaxLocationsPerFeature(n int) {
	if n < 1 {
		n = 1
	} else if n > MaxSupportedLocationsPerFeature {
		n = MaxSupportedLocationsPerFeature
	}
	shrink := n < db.maxLocsPerFeature
	db.maxLocsPerFeature = n
	if shrink {
		db.features.Walk(func(key uint64, locs []Location) bool {
			if len(locs) > n {
				db.features.Shrink(db.features.Find(key), n)
			}
			return true
		})
	}
}

// MaxLoadFactor returns the feature map's load threshold.
func (db *Database) MaxLoadFactor() float64 { return db.features.MaxLoadFactor() }

// SetMaxLoadFactor sets the feature map's load threshold.
func (db *Database) SetMaxLoadFactor(f float64) { db.features.SetMaxLoadFactor(f) }

// TargetCount returns the number of ingested targets.
func (db *Database) TargetCount() uint64 { return uint64(len(db.targets)) }

// GetTarget returns the metadata of target id.
func (db *Database) GetTarget(id TargetID) *Target { return db.targets[id] }

// TargetWithName returns the id of the exactly named target, or
// NullTarget.
func (db *Database) TargetWithName(name string) TargetID {
	if name == "" {
		return NullTarget
	}
	if id, ok := db.name2id[name]; ok {
		return id
	}
	return NullTarget
}

// TargetWithSimilarName returns the id of the first target whose name
// starts with name (e.g. versioned accessions), or NullTarget.
func (db *Database) TargetWithSimilarName(name string) TargetID {
	if name == "" {
		return NullTarget
	}
	if id, ok := db.name2id[name]; ok {
		return id
	}
	names := make([]string, 0, len(db.name2id))
	for n := range db.name2id {
		names = append(names, n)
	}
	sort.Strings(names)
	i := sort.SearchStrings(names, name)
	if i < len(names) && strings.HasPrefix(names[i], name) {
		return db.name2id[names[i]]
	}
	return NullTarget
}

// AddTarget sketches seq and schedules all window sketches for
// insertion into the feature map. The target becomes addressable
// immediately; its sketches are in the map once
// WaitUntilAddTargetComplete returned.
//
// Returns false if name is already present (nil error) or if the
// target id space is exhausted (ErrTargetLimitExceeded); in both cases
// the database is unchanged.
func (db *Database) AddTarget(seq []byte, name string, source FileSource) (bool, error) {
	if uint64(len(db.targets)) >= MaxTargetCount {
		return false, ErrTargetLimitExceeded
	}
	if _, ok := db.name2id[name]; ok {
		return false, nil
	}

	if db.inserter == nil {
		db.makeSketchInserter()
	}

	tgt := TargetID(len(db.targets))
	wins := db.addAllWindowSketches(seq, tgt)
	source.Windows = uint64(wins)

	db.targets = append(db.targets, &Target{Name: name, Source: source})
	db.name2id[name] = tgt
	return true, nil
}

func (db *Database) addAllWindowSketches(seq []byte, tgt TargetID) int {
	var wins int
	db.targetSketcher.ForEachSketch(seq, func(win int, sk []uint64) bool {
		wins = win + 1
		if db.inserter.Valid() && len(sk) > 0 {
			item := db.inserter.NextItem()
			item.tgt = tgt
			item.win = WindowID(win)
			item.sk = append(item.sk[:0], sk...)
		}
		return true
	})
	return wins
}

func (db *Database) addSketchBatch(batch []windowSketch) {
	for i := range batch {
		ws := &batch[i]
		for _, f := range ws.sk {
			it := db.features.Insert(f, Location{Win: ws.win, Tgt: ws.tgt})
			if it.Size() > db.maxLocsPerFeature {
				db.features.Shrink(it, db.maxLocsPerFeature)
			}
		}
	}
}

func (db *Database) makeSketchInserter() {
	db.inserter = batch.New(batch.Options{
		BatchSize:   1000,
		QueueSize:   100,
		Concurrency: 1, // keeps buckets sorted by insertion order
	}, func(_ int, b []windowSketch) {
		db.addSketchBatch(b)
	})
}

// WaitUntilAddTargetComplete flushes and joins the sketch inserter.
// It must be called after the last AddTarget and before any query or
// serialization. Returns the first insertion error, if any.
func (db *Database) WaitUntilAddTargetComplete() error {
	if db.inserter == nil {
		return db.insErr
	}
	db.insErr = db.inserter.Close()
	db.inserter = nil
	return db.insErr
}

// AddTargetFailed reports whether the sketch inserter died.
func (db *Database) AddTargetFailed() bool {
	return db.inserter != nil && !db.inserter.Valid()
}

// RemoveFeaturesWithMoreLocationsThan erases features with more than
// max locations from the feature map, returning the number of removed
// features.
func (db *Database) RemoveFeaturesWithMoreLocationsThan(max int) uint64 {
	return db.features.RemoveFeaturesWithMoreLocationsThan(max)
}

// RemoveAmbiguousFeatures erases features that appear in more than
// maxambig distinct targets, returning the number of removed features.
func (db *Database) RemoveAmbiguousFeatures(maxambig int) uint64 {
	return db.features.RemoveAmbiguousFeatures(maxambig)
}

// AccumulateMatches sketches the query and appends, for every feature
// of every window sketch, the feature's bucket contents to the sorter.
func (db *Database) AccumulateMatches(query []byte, res *MatchSorter) {
	db.querySketcher.ForEachSketch(query, func(_ int, sk []uint64) bool {
		for _, f := range sk {
			it := db.features.Find(f)
			if it.Found() && it.Size() > 0 {
				res.locs = append(res.locs, it.Locations()...)
				res.offsets = append(res.offsets, len(res.locs))
			}
		}
		return true
	})
}

// WalkFeatures visits every stored feature with its locations
// (read-only). Returning false from fn stops the walk.
func (db *Database) WalkFeatures(fn func(key uint64, locs []Location) bool) {
	db.features.Walk(fn)
}

// FindLocations returns the stored locations of a single feature
// (read-only), or nil.
func (db *Database) FindLocations(f uint64) []Location {
	it := db.features.Find(f)
	if !it.Found() {
		return nil
	}
	return it.Locations()
}

// BucketCount returns the number of feature map slots.
func (db *Database) BucketCount() uint64 { return db.features.BucketCount() }

// FeatureCount returns the number of stored features.
func (db *Database) FeatureCount() uint64 { return db.features.KeyCount() }

// DeadFeatureCount returns the number of features without locations.
func (db *Database) DeadFeatureCount() uint64 {
	return db.features.KeyCount() - db.features.NonEmptyBucketCount()
}

// LocationCount returns the total number of stored locations.
func (db *Database) LocationCount() uint64 { return db.features.ValueCount() }

// Clear drops all targets and the feature map.
func (db *Database) Clear() {
	db.features.Clear()
	db.targets = db.targets[:0]
	db.name2id = make(map[string]TargetID, 128)
}
