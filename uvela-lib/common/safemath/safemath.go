// Copyright 2017 The go-ethereum Authors
// (original work)
// Copyright 2024 The Erigon Authors
// (modifications)
// Copyright 2026 The Uvela Authors
// (adaptation for the uvela runtime core)
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Package safemath collects the small overflow-checked integer helpers the
// memory manager and GC threshold policy lean on. Every GC byte count is
// attacker-adjacent (script-controlled table/string sizes), so additions and
// multiplications that size allocations never wrap silently here.
package safemath

import "math/bits"

// Integer limit values, reused when clamping table asize/hbits growth.
const (
	MaxInt32  = 1<<31 - 1
	MaxUint32 = 1<<32 - 1
)

// AbsoluteDifference returns |x-y| in uint64 form without an intermediate
// signed subtraction that could overflow.
func AbsoluteDifference(x, y uint64) uint64 {
	if x > y {
		return x - y
	}
	return y - x
}

// SafeMul returns x*y and reports whether the multiplication overflowed.
func SafeMul(x, y uint64) (uint64, bool) {
	hi, lo := bits.Mul64(x, y)
	return lo, hi != 0
}

// SafeAdd returns x+y and reports whether the addition overflowed.
func SafeAdd(x, y uint64) (uint64, bool) {
	sum, carryOut := bits.Add64(x, y, 0)
	return sum, carryOut != 0
}

// CeilDiv computes ceil(x/y), returning 0 for a zero divisor instead of
// panicking: callers use it for work-unit budgeting where a misconfigured
// zero stepmul should degrade, not crash, a GC step.
func CeilDiv(x, y int) int {
	if y == 0 {
		return 0
	}
	return (x + y - 1) / y
}
