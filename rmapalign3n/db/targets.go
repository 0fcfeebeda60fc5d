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

	"github.com/shenwei356/bio/seqio/fastx"
)

// FileSource records where a target came from: the sequence file, the
// 0-based record index within it, and the number of sketching windows.
// Stable across runs, so targets can be re-read later.
type FileSource struct {
	Filename string
	Index    uint64
	Windows  uint64
}

// Target is the metadata of one reference sequence. Header and Seq are
// only populated by RereadTargets, when alignment or SAM output needs
// the raw sequence again.
type Target struct {
	Name   string
	Source FileSource

	Header string
	Seq    []byte
}

// RereadTargets re-opens the source files (grouped by filename, one
// sequential pass each) and caches header and raw sequence of every
// target. Needed for the alignment pass and for SAM output.
func (db *Database) RereadTargets() error {
	byFile := make(map[string]map[uint64]TargetID, 8)
	for id, t := range db.targets {
		m, ok := byFile[t.Source.Filename]
		if !ok {
			m = make(map[uint64]TargetID, 8)
			byFile[t.Source.Filename] = m
		}
		m[t.Source.Index] = TargetID(id)
	}

	for file, wanted := range byFile {
		reader, err := fastx.NewReader(nil, file, "")
		if err != nil {
			return fmt.Errorf("db: rereading targets from %s: %w", file, err)
		}
		var idx uint64
		for {
			record, err := reader.Read()
			if err != nil {
				if err == io.EOF {
					break
				}
				reader.Close()
				return fmt.Errorf("db: rereading targets from %s: %w", file, err)
			}
			if id, ok := wanted[idx]; ok {
				t := db.targets[id]
				t.Header = string(record.Name)
				t.Seq = append(t.Seq[:0], record.Seq.Seq...)
			}
			idx++
		}
		reader.Close()
	}
	return nil
}

// TargetsReread reports whether the raw sequences are cached.
func (db *Database) TargetsReread() bool {
	return len(db.targets) > 0 && len(db.targets[0].Seq) > 0
}

// SAMHeader writes the @HD/@SQ/@PG header lines for the stored
// targets. RereadTargets must have been called, otherwise sequence
// lengths are unknown and reported as the window extent.
func (db *Database) SAMHeader(w io.Writer, version string) error {
	if _, err := fmt.Fprint(w, "@HD\tVN:1.0\tSO:unsorted\n"); err != nil {
		return err
	}
	stride := db.targetSketcher.WindowStride()
	winlen := db.targetSketcher.WindowLen()
	for _, t := range db.targets {
		ln := len(t.Seq)
		if ln == 0 && t.Source.Windows > 0 {
			// estimated from the window count when sequences were not re-read
			ln = int(t.Source.Windows-1)*stride + winlen
		}
		if _, err := fmt.Fprintf(w, "@SQ\tSN:%s\tLN:%d\n", t.Name, ln); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "@PG\tID:rmapalign3n\tPN:rmapalign3n\tVN:%s\n", version)
	return err
}
