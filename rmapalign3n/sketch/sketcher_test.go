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
	"math/rand"
	"testing"

	"github.com/shenwei356/kmers"
)

func identity(kmer uint64) uint64 { return kmer }

func newTestSketcher(t *testing.T, opt Options) *Sketcher {
	s, err := New(opt)
	if err != nil {
		t.Fatalf("creating sketcher: %s", err)
	}
	return s
}

func collectSketches(s *Sketcher, seq []byte) [][]uint64 {
	var sketches [][]uint64
	s.ForEachSketch(seq, func(win int, sk []uint64) bool {
		cp := make([]uint64, len(sk))
		copy(cp, sk)
		sketches = append(sketches, cp)
		return true
	})
	return sketches
}

func TestSketchDeterminism(t *testing.T) {
	// k=4, w=8, s=5, m=3, conv C->T, identity hash
	s := newTestSketcher(t, Options{
		K: 4, WinLen: 8, WinStride: 5, SketchLen: 3,
		ConvOrig: 'C', ConvRepl: 'T',
		Hash: identity,
	})

	seq := []byte("ACGTACGTACGT")

	if n := s.NumWindows(len(seq)); n != 2 {
		t.Errorf("number of windows: %d != 2", n)
		return
	}

	// window 0 = "ACGTACGT" -> "ATGTATGT" after conversion,
	// k-mers: ATGT TGTA GTAT TATG ATGT;
	// the three smallest distinct encodings: ATGT GTAT TATG
	expected := []uint64{0x3b, 0xb3, 0xce}

	sketches := collectSketches(s, seq)
	if len(sketches) != 2 {
		t.Errorf("number of sketches: %d != 2", len(sketches))
		return
	}
	if len(sketches[0]) != 3 {
		t.Errorf("sketch size: %d != 3", len(sketches[0]))
		return
	}
	for i, f := range expected {
		if sketches[0][i] != f {
			t.Errorf("sketch[0][%d]: %d != %d", i, sketches[0][i], f)
			return
		}
	}

	// same input twice yields identical sketches
	sketches2 := collectSketches(s, seq)
	if len(sketches) != len(sketches2) {
		t.Errorf("sketch counts differ between runs")
		return
	}
	for i := range sketches {
		if len(sketches[i]) != len(sketches2[i]) {
			t.Errorf("sketch %d sizes differ between runs", i)
			return
		}
		for j := range sketches[i] {
			if sketches[i][j] != sketches2[i][j] {
				t.Errorf("sketch %d differs between runs", i)
				return
			}
		}
	}
}

func TestSketchProperties(t *testing.T) {
	s := newTestSketcher(t, Options{
		K: 5, WinLen: 16, WinStride: 4, SketchLen: 4,
		ConvOrig: 'C', ConvRepl: 'T',
		Seed: 1,
	})

	r := rand.New(rand.NewSource(11))
	seq := make([]byte, 0, 1000)
	for i := 0; i < 1000; i++ {
		seq = append(seq, code2nt[r.Intn(4)])
	}

	n := s.NumWindows(len(seq))
	if want := (len(seq)-16+1)/4 + 1; n != want {
		t.Errorf("number of windows: %d != %d", n, want)
		return
	}

	var wins int
	s.ForEachSketch(seq, func(win int, sk []uint64) bool {
		if win != wins {
			t.Errorf("windows out of order: %d != %d", win, wins)
			return false
		}
		wins++

		if len(sk) > 4 {
			t.Errorf("sketch longer than m: %d", len(sk))
			return false
		}
		for i := 1; i < len(sk); i++ {
			if sk[i] <= sk[i-1] {
				t.Errorf("sketch not sorted/distinct at %d", i)
				return false
			}
		}
		return true
	})
	if wins != n {
		t.Errorf("number of emitted sketches: %d != %d", wins, n)
	}
}

func TestNumWindows(t *testing.T) {
	s := newTestSketcher(t, Options{
		K: 4, WinLen: 8, WinStride: 5, SketchLen: 3,
		ConvOrig: 'C', ConvRepl: 'T',
	})

	tests := [][2]int{ // length, windows
		{0, 0}, {7, 0}, {8, 1}, {12, 2}, {13, 2}, {16, 2}, {17, 3},
	}
	for _, tt := range tests {
		if n := s.NumWindows(tt[0]); n != tt[1] {
			t.Errorf("NumWindows(%d): %d != %d", tt[0], n, tt[1])
		}
	}
}

// the rolling encoder must agree with the kmers package on converted
// sequences
func TestEncoderAgainstKmers(t *testing.T) {
	s := newTestSketcher(t, Options{
		K: 6, WinLen: 24, WinStride: 24, SketchLen: 24,
		ConvOrig: 'C', ConvRepl: 'T',
		Hash: identity,
	})

	seq := []byte("ACGTTGCAGCTAGCTAATCGGCTA")
	conv := make([]byte, len(seq))
	for i, b := range seq {
		conv[i] = Convert3N(b, 'C', 'T')
	}

	expected := make(map[uint64]bool, len(seq))
	for i := 0; i+6 <= len(conv); i++ {
		code, err := kmers.Encode(conv[i : i+6])
		if err != nil {
			t.Errorf("encoding %s: %s", conv[i:i+6], err)
			return
		}
		expected[code] = true
	}

	sketches := collectSketches(s, seq)
	if len(sketches) != 1 {
		t.Errorf("number of sketches: %d != 1", len(sketches))
		return
	}
	for _, f := range sketches[0] {
		if !expected[f] {
			t.Errorf("feature %d not produced by kmers.Encode", f)
			return
		}
	}
}

func TestAmbiguousBases(t *testing.T) {
	s := newTestSketcher(t, Options{
		K: 4, WinLen: 8, WinStride: 8, SketchLen: 8,
		ConvOrig: 'C', ConvRepl: 'T',
		Hash: identity,
	})

	// N invalidates every k-mer that overlaps it:
	// only ACGT (pos 4) remains -> ATGT after conversion
	sketches := collectSketches(s, []byte("ACGNACGT"))
	if len(sketches) != 1 {
		t.Errorf("number of sketches: %d != 1", len(sketches))
		return
	}
	if len(sketches[0]) != 1 || sketches[0][0] != 0x3b {
		t.Errorf("unexpected sketch: %v", sketches[0])
	}
}

func TestOptionValidation(t *testing.T) {
	if _, err := New(Options{K: 0, WinLen: 8, SketchLen: 1, ConvOrig: 'C', ConvRepl: 'T'}); err != ErrKOverflow {
		t.Errorf("expected ErrKOverflow, got %v", err)
	}
	if _, err := New(Options{K: 33, WinLen: 64, SketchLen: 1, ConvOrig: 'C', ConvRepl: 'T'}); err != ErrKOverflow {
		t.Errorf("expected ErrKOverflow, got %v", err)
	}
	if _, err := New(Options{K: 8, WinLen: 4, SketchLen: 1, ConvOrig: 'C', ConvRepl: 'T'}); err != ErrInvalidWindow {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
	if _, err := New(Options{K: 8, WinLen: 16, SketchLen: 0, ConvOrig: 'C', ConvRepl: 'T'}); err != ErrInvalidSketchLen {
		t.Errorf("expected ErrInvalidSketchLen, got %v", err)
	}
	if _, err := New(Options{K: 8, WinLen: 16, SketchLen: 1, ConvOrig: 'C', ConvRepl: 'C'}); err != ErrInvalidConversion {
		t.Errorf("expected ErrInvalidConversion, got %v", err)
	}
	if _, err := New(Options{K: 8, WinLen: 16, SketchLen: 1, ConvOrig: 'N', ConvRepl: 'T'}); err != ErrInvalidConversion {
		t.Errorf("expected ErrInvalidConversion, got %v", err)
	}
}
