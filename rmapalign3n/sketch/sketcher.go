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

package sketch

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/muellan/rmapalign3n/rmapalign3n/util"
	"github.com/zeebo/wyhash"
)

// ErrKOverflow means K < 1 or K > 32.
var ErrKOverflow = errors.New("sketch: k-mer size [1, 32] overflow")

// ErrInvalidWindow means winlen < k or winstride < 1.
var ErrInvalidWindow = errors.New("sketch: invalid window length/stride")

// ErrInvalidSketchLen means sketchlen < 1.
var ErrInvalidSketchLen = errors.New("sketch: sketch length must be >= 1")

// ErrInvalidConversion means the conversion pair is not two distinct
// bases out of ACGT (U is accepted and coded as T).
var ErrInvalidConversion = errors.New("sketch: invalid nucleotide conversion pair")

// Options configure a windowed min-hash sketcher over the 3N-converted
// nucleotide alphabet.
type Options struct {
	K         int // k-mer size, 1-32
	WinLen    int // sampling window length, >= K
	WinStride int // distance between window starts; 0 -> WinLen-K+1
	SketchLen int // number of features per window sketch

	ConvOrig byte // base to be replaced, e.g. 'C'
	ConvRepl byte // replacement base, e.g. 'T'

	Seed uint64 // seed of the default feature hash

	// Hash overrides the seeded default feature hash.
	// Only used for testing; it can not be persisted in a database.
	Hash func(kmer uint64) uint64
}

// DefaultOptions are the sketching parameters used when the user does
// not override them.
var DefaultOptions = Options{
	K:         16,
	WinLen:    128,
	WinStride: 113, // w-k+1
	SketchLen: 16,
	ConvOrig:  'C',
	ConvRepl:  'T',
	Seed:      1,
}

// Sketcher produces, for every sampling window of a sequence, the
// sketch of the SketchLen smallest distinct feature values (hashed
// k-mers), sorted ascending.
type Sketcher struct {
	opt  Options
	mask uint64   // 2k low bits
	conv [4]uint8 // 3N conversion on 2-bit codes
	hash func(uint64) uint64

	poolFeats *sync.Pool
}

// New creates a Sketcher and validates the options.
func New(opt Options) (*Sketcher, error) {
	if opt.K < 1 || opt.K > 32 {
		return nil, ErrKOverflow
	}
	if opt.SketchLen < 1 {
		return nil, ErrInvalidSketchLen
	}
	if opt.WinStride == 0 {
		opt.WinStride = opt.WinLen - opt.K + 1
	}
	if opt.WinLen < opt.K || opt.WinStride < 1 {
		return nil, ErrInvalidWindow
	}
	if !validBase(opt.ConvOrig) || !validBase(opt.ConvRepl) ||
		nt2code[opt.ConvOrig] == nt2code[opt.ConvRepl] {
		return nil, ErrInvalidConversion
	}

	s := &Sketcher{
		opt:  opt,
		mask: (uint64(1) << (2 * opt.K)) - 1,
		conv: conversionTable(opt.ConvOrig, opt.ConvRepl),
		hash: opt.Hash,
	}
	if s.hash == nil {
		seed := opt.Seed
		s.hash = func(kmer uint64) uint64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], kmer)
			return wyhash.Hash(b[:], seed)
		}
	}
	s.poolFeats = &sync.Pool{New: func() interface{} {
		tmp := make([]uint64, 0, opt.WinLen)
		return &tmp
	}}
	return s, nil
}

// Options returns the validated options (with the stride default
// filled in).
func (s *Sketcher) Options() Options { return s.opt }

// K returns the k-mer size.
func (s *Sketcher) K() int { return s.opt.K }

// WindowStride returns the distance between window starting positions.
func (s *Sketcher) WindowStride() int { return s.opt.WinStride }

// WindowLen returns the sampling window length.
func (s *Sketcher) WindowLen() int { return s.opt.WinLen }

// SketchLen returns the maximum number of features per sketch.
func (s *Sketcher) SketchLen() int { return s.opt.SketchLen }

// NumWindows returns the number of sketching windows of a sequence of
// the given length: 0 if seqlen < winlen, (seqlen-winlen+1)/stride + 1
// otherwise. The last window may be truncated at the sequence end.
func (s *Sketcher) NumWindows(seqlen int) int {
	if seqlen < s.opt.WinLen {
		return 0
	}
	return (seqlen-s.opt.WinLen+1)/s.opt.WinStride + 1
}

// ForEachSketch calls consume for every window of seq, in window
// order, with the window index and the window's sketch. The sketch
// slice is reused between windows, callers that keep it must copy.
// Returning false from consume aborts the iteration.
//
// K-mers containing non-ACGT bases are skipped: the encoder resets and
// only emits again once k valid bases are buffered. Windows with fewer
// than SketchLen distinct valid k-mers yield a shorter sketch,
// possibly an empty one.
func (s *Sketcher) ForEachSketch(seq []byte, consume func(win int, sk []uint64) bool) {
	n := s.NumWindows(len(seq))
	if n == 0 {
		return
	}

	k := s.opt.K
	m := s.opt.SketchLen

	feats := s.poolFeats.Get().(*[]uint64)
	defer s.poolFeats.Put(feats)

	var kmer uint64
	var valid int
	var c uint8
	var start, end int
	for win := 0; win < n; win++ {
		start = win * s.opt.WinStride
		end = start + s.opt.WinLen
		if end > len(seq) {
			end = len(seq)
		}

		*feats = (*feats)[:0]
		kmer = 0
		valid = 0
		for _, b := range seq[start:end] {
			c = nt2code[b]
			if c >= 4 { // ambiguous base, restart the k-mer
				valid = 0
				kmer = 0
				continue
			}
			kmer = (kmer<<2 | uint64(s.conv[c])) & s.mask
			valid++
			if valid >= k {
				*feats = append(*feats, s.hash(kmer))
			}
		}

		// m smallest distinct values, ascending
		util.UniqUint64s(feats)
		sk := *feats
		if len(sk) > m {
			sk = sk[:m]
		}

		if !consume(win, sk) {
			return
		}
	}
}
