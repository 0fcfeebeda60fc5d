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

// 2-bit base codes: A, C, G, T -> 0, 1, 2, 3.
// Everything else (N, IUPAC ambiguity codes, gaps) maps to 4 and
// invalidates the k-mer being built.
var nt2code [256]uint8

func init() {
	for i := range nt2code {
		nt2code[i] = 4
	}
	nt2code['A'], nt2code['a'] = 0, 0
	nt2code['C'], nt2code['c'] = 1, 1
	nt2code['G'], nt2code['g'] = 2, 2
	nt2code['T'], nt2code['t'] = 3, 3
	nt2code['U'], nt2code['u'] = 3, 3
}

var code2nt = [4]byte{'A', 'C', 'G', 'T'}

// conversionTable returns a per-code substitution table that replaces
// every occurrence of orig with repl before encoding (3N conversion,
// e.g. C->T for bisulfite-treated reads).
func conversionTable(orig, repl byte) [4]uint8 {
	t := [4]uint8{0, 1, 2, 3}
	o := nt2code[orig]
	r := nt2code[repl]
	if o < 4 && r < 4 {
		t[o] = r
	}
	return t
}

// validBase reports whether b is one of ACGTU (case-insensitive).
func validBase(b byte) bool {
	return nt2code[b] < 4
}

// Convert3N applies the orig->repl base substitution to a single base,
// preserving case-insensitive matching but returning upper case.
func Convert3N(b, orig, repl byte) byte {
	c := nt2code[b]
	if c >= 4 {
		return b
	}
	if c == nt2code[orig] {
		return code2nt[nt2code[repl]]
	}
	return code2nt[c]
}
