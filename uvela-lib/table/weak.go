// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package table

import "github.com/luavela-go/uvela-lib/value"

// WeakKey and WeakValue report the table's own weak-mode mark bits; the
// collector reads these during the atomic phase to decide whether a
// table's entries need SweepWeak applied before the final sweep.
func (t *Table) WeakKey() bool   { return t.HasMark(weakKeyBit) }
func (t *Table) WeakValue() bool { return t.HasMark(weakValueBit) }

const (
	weakKeyBit   = 0x08
	weakValueBit = 0x10
)

// SweepWeak clears every array slot and marks dead every hash node for
// which deadKey or deadVal reports true, called by the collector on a weak
// table once it knows which objects are about to be swept away. A nil
// predicate is treated as "never dead" (the table isn't weak on that
// side).
func (t *Table) SweepWeak(deadKey, deadVal func(value.Value) bool) {
	if deadVal != nil {
		for i, v := range t.array {
			if !v.IsNil() && deadVal(v) {
				t.array[i] = value.Nil
			}
		}
	}
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.isEmpty() || n.dead {
			continue
		}
		if (deadKey != nil && deadKey(n.key)) || (deadVal != nil && deadVal(n.val)) {
			n.dead = true
		}
	}
}
