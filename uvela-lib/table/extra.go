// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package table

import "github.com/luavela-go/uvela-lib/value"

// DeepCopy returns a new, independent table with the same array/hash
// contents as t, recursively copying any nested table values (but not
// other GC-managed payloads, which remain shared by reference — matching
// the original test suite's lj_tab_deepcopy, which only recurses through
// tables). Cyclic table graphs are handled via seen, a fresh map the
// top-level call creates.
func (t *Table) DeepCopy() *Table {
	return t.deepCopy(make(map[*Table]*Table))
}

func (t *Table) deepCopy(seen map[*Table]*Table) *Table {
	if existing, ok := seen[t]; ok {
		return existing
	}
	out := New(len(t.array), len(t.nodes))
	seen[t] = out

	for i, v := range t.array {
		out.array[i] = deepCopyValue(v, seen)
	}
	for _, n := range t.nodes {
		if n.isEmpty() || n.dead {
			continue
		}
		slot, _ := out.findOrInsert(deepCopyValue(n.key, seen))
		slot.val = deepCopyValue(n.val, seen)
	}
	if t.metatable != nil {
		out.metatable = t.metatable.deepCopy(seen)
	}
	return out
}

func deepCopyValue(v value.Value, seen map[*Table]*Table) value.Value {
	if inner, ok := v.GC().(*Table); ok {
		return value.FromGC(value.TagTable, inner.deepCopy(seen))
	}
	return v
}

// Keys returns every live key in t, array part first in index order, then
// hash-part keys in bucket order. Order within the hash part is not
// meaningful across rehashes, matching Next's own guarantees.
func (t *Table) Keys() []value.Value {
	keys := make([]value.Value, 0, len(t.array)+len(t.nodes))
	for i, v := range t.array {
		if !v.IsNil() {
			keys = append(keys, value.Number(float64(i+1)))
		}
	}
	for _, n := range t.nodes {
		if !n.isEmpty() && !n.dead {
			keys = append(keys, n.key)
		}
	}
	return keys
}

// Values returns every live value in t, in the same order as Keys.
func (t *Table) Values() []value.Value {
	vals := make([]value.Value, 0, len(t.array)+len(t.nodes))
	for _, v := range t.array {
		if !v.IsNil() {
			vals = append(vals, v)
		}
	}
	for _, n := range t.nodes {
		if !n.isEmpty() && !n.dead {
			vals = append(vals, n.val)
		}
	}
	return vals
}

// ToSet returns a new table mapping every live value of t to Bool(true),
// discarding t's own keys. It is the Go-idiomatic equivalent of the
// original test suite's lj_tab_toset, used to turn a sequence into a
// membership set.
func (t *Table) ToSet() *Table {
	out := New(0, len(t.array)+len(t.nodes))
	for _, v := range t.Values() {
		if v.IsNil() {
			continue
		}
		slot, err := out.findOrInsert(v)
		if err != nil {
			continue
		}
		slot.val = value.True()
	}
	return out
}
