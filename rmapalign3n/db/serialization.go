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
	"encoding/binary"
	"errors"
	"io"
	"math"

	"github.com/muellan/rmapalign3n/rmapalign3n/multimap"
	"github.com/muellan/rmapalign3n/rmapalign3n/sketch"
	"github.com/pelletier/go-toml/v2"
	"github.com/shenwei356/xopen"
)

var le = binary.LittleEndian

// Magic number for checking the file format
var Magic = [8]byte{'.', 'r', 'm', 'a', '3', 'n', 'd', 'b'}

// DBVersion is bumped on every incompatible change of the layout.
const DBVersion uint64 = 20241004

// InfoFileExt is the extension of the TOML sidecar next to a database.
const InfoFileExt = ".info.toml"

// ErrInvalidFileFormat means invalid file format.
var ErrInvalidFileFormat = errors.New("db: invalid binary format")

// ErrBrokenFile means the file is not complete.
var ErrBrokenFile = errors.New("db: broken file")

// ErrVersionMismatch means version mismatch between file and program.
var ErrVersionMismatch = errors.New("db: version mismatch")

// ErrWidthMismatch means the file was written by a binary compiled
// with other integer widths.
var ErrWidthMismatch = errors.New("db: integer width mismatch")

// Scope selects how much of a database file to load.
type Scope int

const (
	// MetadataOnly loads configuration and target metadata but not the
	// feature map.
	MetadataOnly Scope = iota
	// Sketches loads the sketching configuration and the feature map.
	Sketches
	// Everything loads the whole database.
	Everything
)

// WriteToFile writes the database to a binary file. All persisted
// integers are fixed-width little-endian, strings are 64-bit length
// prefixed. Must not be called while ingestion is still running.
//
// Layout:
//
//	Magic number, 8 bytes, ".rma3ndb".
//	Database version, 8 bytes.
//	Integer widths (feature, target id, window id, bucket size), 4 bytes, 4 blank.
//	Sketching: k, winlen, winstride, sketchlen, 8 bytes each.
//	Conversion pair, 2 bytes, 6 blank.
//	Feature hash seed, 8 bytes.
//	Max locations per feature, 8 bytes; max load factor, 8 bytes.
//	Target store: count, then per target {name, filename, index, windows}.
//	Feature map: bucket count, then per bucket {feature, size, size x location}.
func (db *Database) WriteToFile(file string) (int, error) {
	outfh, err := xopen.Wopen(file)
	if err != nil {
		return 0, err
	}
	defer outfh.Close()

	return db.Write(outfh)
}

// Write writes the database to a writer, returning the number of
// bytes written.
func (db *Database) Write(w io.Writer) (int, error) {
	sw := &sectionWriter{w: w}

	sw.writeBytes(Magic[:])
	sw.writeUint64(DBVersion)
	sw.writeBytes([]byte{
		multimap.FeatureBits, multimap.TargetIDBits,
		multimap.WindowIDBits, multimap.BucketSizeBits,
		0, 0, 0, 0,
	})

	opt := db.targetSketcher.Options()
	sw.writeUint64(uint64(opt.K))
	sw.writeUint64(uint64(opt.WinLen))
	sw.writeUint64(uint64(opt.WinStride))
	sw.writeUint64(uint64(opt.SketchLen))
	sw.writeBytes([]byte{opt.ConvOrig, opt.ConvRepl, 0, 0, 0, 0, 0, 0})
	sw.writeUint64(opt.Seed)

	sw.writeUint64(uint64(db.maxLocsPerFeature))
	sw.writeUint64(math.Float64bits(db.features.MaxLoadFactor()))

	// target store
	sw.writeUint64(uint64(len(db.targets)))
	for _, t := range db.targets {
		sw.writeString(t.Name)
		sw.writeString(t.Source.Filename)
		sw.writeUint64(t.Source.Index)
		sw.writeUint64(t.Source.Windows)
	}

	// feature map
	sw.writeUint64(db.features.NonEmptyBucketCount())
	db.features.Walk(func(key uint64, locs []Location) bool {
		sw.writeUint64(key)
		sw.writeBytes([]byte{uint8(len(locs))})
		for _, loc := range locs {
			sw.writeUint32(uint32(loc.Win))
			sw.writeUint32(uint32(loc.Tgt))
		}
		return sw.err == nil
	})

	return sw.n, sw.err
}

// ReadFromFile loads a database from a binary file. The feature map is
// not deserialized wholesale but rebuilt by inserting keys and whole
// buckets, which keeps database files valid across changes of the
// table layout.
func ReadFromFile(file string, what Scope) (*Database, error) {
	fh, err := xopen.Ropen(file)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	return Read(fh, what)
}

// Read loads a database from a reader.
func Read(r io.Reader, what Scope) (*Database, error) {
	sr := &sectionReader{r: r, buf: make([]byte, 8)}

	magic := sr.readBytes(8)
	if sr.err != nil {
		return nil, sr.err
	}
	for i := 0; i < 8; i++ {
		if magic[i] != Magic[i] {
			return nil, ErrInvalidFileFormat
		}
	}
	if sr.readUint64() != DBVersion {
		if sr.err != nil {
			return nil, sr.err
		}
		return nil, ErrVersionMismatch
	}
	widths := sr.readBytes(8)
	if sr.err != nil {
		return nil, sr.err
	}
	if widths[0] != multimap.FeatureBits || widths[1] != multimap.TargetIDBits ||
		widths[2] != multimap.WindowIDBits || widths[3] != multimap.BucketSizeBits {
		return nil, ErrWidthMismatch
	}

	opt := sketch.Options{
		K:         int(sr.readUint64()),
		WinLen:    int(sr.readUint64()),
		WinStride: int(sr.readUint64()),
		SketchLen: int(sr.readUint64()),
	}
	conv := sr.readBytes(8)
	if sr.err != nil {
		return nil, sr.err
	}
	opt.ConvOrig = conv[0]
	opt.ConvRepl = conv[1]
	opt.Seed = sr.readUint64()

	maxLocs := sr.readUint64()
	loadFactor := math.Float64frombits(sr.readUint64())
	if sr.err != nil {
		return nil, sr.err
	}

	s, err := sketch.New(opt)
	if err != nil {
		return nil, err
	}
	db := New(s)
	db.SetMaxLoadFactor(loadFactor)
	db.maxLocsPerFeature = int(maxLocs)

	// target store
	nTargets := sr.readUint64()
	if sr.err != nil {
		return nil, sr.err
	}
	for i := uint64(0); i < nTargets; i++ {
		t := &Target{
			Name: sr.readString(),
			Source: FileSource{
				Filename: sr.readString(),
				Index:    sr.readUint64(),
				Windows:  sr.readUint64(),
			},
		}
		if sr.err != nil {
			return nil, sr.err
		}
		db.name2id[t.Name] = TargetID(len(db.targets))
		db.targets = append(db.targets, t)
	}

	if what == MetadataOnly {
		return db, nil
	}

	// feature map
	nBuckets := sr.readUint64()
	if sr.err != nil {
		return nil, sr.err
	}
	locs := make([]Location, 0, 256)
	for i := uint64(0); i < nBuckets; i++ {
		key := sr.readUint64()
		size := int(sr.readBytes(1)[0])
		if sr.err != nil {
			return nil, sr.err
		}
		locs = locs[:0]
		for j := 0; j < size; j++ {
			win := sr.readUint32()
			tgt := sr.readUint32()
			locs = append(locs, Location{Win: WindowID(win), Tgt: TargetID(tgt)})
		}
		if sr.err != nil {
			return nil, sr.err
		}
		db.features.InsertRun(key, locs)
	}

	return db, nil
}

// Info is the summary written to the TOML sidecar file.
type Info struct {
	Version uint64 `toml:"version"`

	Kmerlen   int    `toml:"kmerlen"`
	Winlen    int    `toml:"winlen"`
	Winstride int    `toml:"winstride"`
	Sketchlen int    `toml:"sketchlen"`
	ConvOrig  string `toml:"conv-orig"`
	ConvRepl  string `toml:"conv-repl"`
	HashSeed  uint64 `toml:"hash-seed"`

	MaxLocationsPerFeature int     `toml:"max-locations-per-feature"`
	MaxLoadFactor          float64 `toml:"max-load-factor"`

	Targets   uint64 `toml:"targets"`
	Features  uint64 `toml:"features"`
	Locations uint64 `toml:"locations"`
}

// InfoSummary collects the sidecar summary of the database.
func (db *Database) InfoSummary() Info {
	opt := db.targetSketcher.Options()
	return Info{
		Version:                DBVersion,
		Kmerlen:                opt.K,
		Winlen:                 opt.WinLen,
		Winstride:              opt.WinStride,
		Sketchlen:              opt.SketchLen,
		ConvOrig:               string(opt.ConvOrig),
		ConvRepl:               string(opt.ConvRepl),
		HashSeed:               opt.Seed,
		MaxLocationsPerFeature: db.maxLocsPerFeature,
		MaxLoadFactor:          db.features.MaxLoadFactor(),
		Targets:                db.TargetCount(),
		Features:               db.FeatureCount(),
		Locations:              db.LocationCount(),
	}
}

// WriteInfoFile writes the TOML sidecar next to the database file.
func (db *Database) WriteInfoFile(dbfile string) error {
	outfh, err := xopen.Wopen(dbfile + InfoFileExt)
	if err != nil {
		return err
	}
	defer outfh.Close()

	return toml.NewEncoder(outfh).Encode(db.InfoSummary())
}

// ---------------------------------------------------------------

type sectionWriter struct {
	w   io.Writer
	n   int
	err error
	buf [8]byte
}

func (w *sectionWriter) writeBytes(b []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(b)
	w.n += n
	w.err = err
}

func (w *sectionWriter) writeUint64(v uint64) {
	le.PutUint64(w.buf[:], v)
	w.writeBytes(w.buf[:8])
}

func (w *sectionWriter) writeUint32(v uint32) {
	le.PutUint32(w.buf[:4], v)
	w.writeBytes(w.buf[:4])
}

func (w *sectionWriter) writeString(s string) {
	w.writeUint64(uint64(len(s)))
	w.writeBytes([]byte(s))
}

type sectionReader struct {
	r   io.Reader
	err error
	buf []byte
}

func (r *sectionReader) readBytes(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if n > cap(r.buf) {
		r.buf = make([]byte, n)
	}
	b := r.buf[:n]
	nr, err := io.ReadFull(r.r, b)
	if err != nil {
		if err == io.ErrUnexpectedEOF || (err == io.EOF && nr > 0) {
			err = ErrBrokenFile
		}
		r.err = err
	}
	return b
}

func (r *sectionReader) readUint64() uint64 {
	return le.Uint64(r.readBytes(8))
}

func (r *sectionReader) readUint32() uint32 {
	return le.Uint32(r.readBytes(4))
}

func (r *sectionReader) readString() string {
	n := r.readUint64()
	if r.err != nil {
		return ""
	}
	return string(r.readBytes(int(n)))
}
