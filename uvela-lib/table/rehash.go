// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package table

import "github.com/luavela-go/uvela-lib/value"

// Rehash rebuilds the array and hash parts from scratch, sized by a
// histogram of the integer keys currently stored anywhere in the table
// (grounded on lj_tab.c's countarray/counthash/bestasize/rehashtab). It
// also drops every dead node, which is the only point at which a deleted
// key's node is actually reclaimed.
func (t *Table) Rehash() {
	hist := make([]int, 32) // hist[i] = count of integer keys in (2^(i-1), 2^i]
	total := 0

	count := func(k value.Value) {
		if !k.IsNumber() {
			return
		}
		n := k.Number()
		if n != float64(int64(n)) || n < 1 {
			return
		}
		bit := bitsFor(int64(n))
		hist[bit]++
		total++
	}

	for i, v := range t.array {
		if !v.IsNil() {
			count(value.Number(float64(i + 1)))
		}
	}
	var entries []node
	for _, n := range t.nodes {
		if n.isEmpty() || n.dead {
			continue
		}
		count(n.key)
		entries = append(entries, n)
	}

	asize := bestASize(hist, total)

	oldArray := t.array
	t.array = make([]value.Value, asize)
	for i := 0; i < asize && i < len(oldArray); i++ {
		t.array[i] = oldArray[i]
	}

	hsize := npot(len(entries) + 1)
	t.resizeHash(hsize)

	for _, n := range entries {
		if idx, ok := arrayIndex(n.key, asize); ok {
			t.array[idx] = n.val
			continue
		}
		slot, _ := t.findOrInsert(n.key)
		slot.val = n.val
	}
	for i, v := range oldArray {
		if i >= asize && !v.IsNil() {
			slot, _ := t.findOrInsert(value.Number(float64(i + 1)))
			slot.val = v
		}
	}
}

func arrayIndex(k value.Value, asize int) (int, bool) {
	if !k.IsNumber() {
		return 0, false
	}
	n := k.Number()
	if n != float64(int64(n)) {
		return 0, false
	}
	idx := int64(n)
	if idx >= 1 && int(idx) <= asize {
		return int(idx - 1), true
	}
	return 0, false
}

func bitsFor(n int64) int {
	bit := 0
	for bit < 31 && int64(1)<<uint(bit) < n {
		bit++
	}
	return bit
}

// bestASize picks the largest power-of-two array size whose prefix of the
// histogram accounts for more than half of its own slots, matching the
// original's ">50% density" rule for deciding how much of the integer-key
// population belongs in the dense array part rather than the hash part.
// It returns 0 when no size passes that test.
func bestASize(hist []int, total int) int {
	best := 0
	bestSize := 0
	cum := 0
	for i, c := range hist {
		cum += c
		size := 1 << uint(i)
		if cum > size/2 && cum > best {
			best = cum
			bestSize = size
		}
	}
	return bestSize
}
