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

// Package align verifies mapping candidates with a semi-global
// edit-distance alignment of the query against the candidate's target
// region. Bases are compared after 3N conversion on both sides.
package align

import (
	"bytes"
	"strconv"
)

// Result of a semi-global alignment: the query is aligned end to end,
// leading and trailing gaps in the target are free.
type Result struct {
	EditDistance int
	CIGAR        string
	TgtBegin     int // 0-based start of the alignment within the target slice
	TgtEnd       int // 0-based end (exclusive)
}

type op struct {
	code  byte // M, I (insertion to target), D (deletion from target)
	count int
}

// SemiGlobal aligns query against target with unit costs. conv is
// applied to every base of both sequences before comparison (nil for
// exact comparison). If maxEdit >= 0 and the best alignment has a
// higher edit distance, ok is false.
func SemiGlobal(query, target []byte, maxEdit int, conv func(byte) byte) (Result, bool) {
	m := len(query)
	n := len(target)
	if m == 0 || n == 0 {
		return Result{}, false
	}

	q := query
	t := target
	if conv != nil {
		q = convert(query, conv)
		t = convert(target, conv)
	}

	// dp[i][j]: best cost of aligning q[:i] against any suffix of
	// t[:j]; the first row is free (alignment may start anywhere).
	dp := make([][]int32, m+1)
	for i := range dp {
		dp[i] = make([]int32, n+1)
	}
	for i := 1; i <= m; i++ {
		dp[i][0] = int32(i)
	}
	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := int32(1)
			if q[i-1] == t[j-1] {
				cost = 0
			}
			best := dp[i-1][j-1] + cost
			if v := dp[i-1][j] + 1; v < best { // consume query base
				best = v
			}
			if v := dp[i][j-1] + 1; v < best { // consume target base
				best = v
			}
			dp[i][j] = best
		}
	}

	// free end gap in the target: best cell of the last row
	endJ := n
	for j := 0; j <= n; j++ {
		if dp[m][j] < dp[m][endJ] {
			endJ = j
		}
	}
	dist := int(dp[m][endJ])
	if maxEdit >= 0 && dist > maxEdit {
		return Result{EditDistance: dist}, false
	}

	// traceback
	ops := make([]op, 0, 16)
	i, j := m, endJ
	for i > 0 {
		switch {
		case j > 0 && dp[i][j] == dp[i-1][j-1]+matchCost(q[i-1], t[j-1]):
			pushOp(&ops, 'M')
			i--
			j--
		case dp[i][j] == dp[i-1][j]+1:
			pushOp(&ops, 'I')
			i--
		default:
			pushOp(&ops, 'D')
			j--
		}
	}

	var buf bytes.Buffer
	for k := len(ops) - 1; k >= 0; k-- {
		buf.WriteString(strconv.Itoa(ops[k].count))
		buf.WriteByte(ops[k].code)
	}

	return Result{
		EditDistance: dist,
		CIGAR:        buf.String(),
		TgtBegin:     j,
		TgtEnd:       endJ,
	}, true
}

func matchCost(a, b byte) int32 {
	if a == b {
		return 0
	}
	return 1
}

func pushOp(ops *[]op, code byte) {
	if n := len(*ops); n > 0 && (*ops)[n-1].code == code {
		(*ops)[n-1].count++
		return
	}
	*ops = append(*ops, op{code: code, count: 1})
}

func convert(s []byte, conv func(byte) byte) []byte {
	out := make([]byte, len(s))
	for i, b := range s {
		out[i] = conv(b)
	}
	return out
}
