// Copyright 2026 The Uvela Authors
// This file is part of uvela.

// Package table implements the hybrid array+hash Lua table: a dense array
// part for the common sequence case and a chained hash part for
// everything else, grounded on the original runtime's lj_tab.c.
package table

import "github.com/luavela-go/uvela-lib/value"

// noNext marks the end of a hash-part collision chain; node indices are
// otherwise non-negative, so -1 is never a valid chain target.
const noNext int32 = -1

// node is one slot of the hash part. Collisions are resolved with Brent's
// variation (lj_tab_newkey): instead of appending to a chain unconditionally,
// a colliding key displaces whichever entry does not belong at its own main
// position, keeping chains short without a separate overflow area.
type node struct {
	key  value.Value
	val  value.Value
	next int32 // index of the next node in this key's chain, or noNext
	dead bool  // val was cleared by Set(key, nil) but the node is kept for iteration stability until the next Rehash
}

func (n *node) isEmpty() bool { return n.key.IsNil() }
