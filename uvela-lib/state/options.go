// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package state

import (
	"github.com/luavela-go/uvela-lib/common"
	"github.com/luavela-go/uvela-lib/gc"
)

// Options configures a GlobalState at construction. The zero value is
// usable: default allocator, Murmur3 hashing, an enabled intern cache, and
// no mounted data state.
type Options struct {
	// DataState, when set, is mounted read-only: every value reachable
	// from its Root is visible to this VM, but none of it counts toward
	// this VM's own GC cycles or byte accounting (it is already sealed
	// and permanent, owned by whichever VM originally sealed it).
	DataState *DataState

	HashFunction common.HashFunction
	AllocFn      common.AllocFunc

	// DisableIntern turns off the fast-path LRU lookup cache in front of
	// the live/sealed string hash tables (strintern.Table.DisableCache).
	DisableIntern bool

	// GCPolicy overrides the default pause/step-multiplier tuning.
	GCPolicy *gc.Policy
}

func (o Options) allocFn() common.AllocFunc {
	if o.AllocFn != nil {
		return o.AllocFn
	}
	return common.DefaultAllocFunc
}

func (o Options) gcPolicy() gc.Policy {
	if o.GCPolicy != nil {
		return *o.GCPolicy
	}
	return gc.DefaultPolicy
}
