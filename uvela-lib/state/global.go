// Copyright 2026 The Uvela Authors
// This file is part of uvela.

// Package state ties memory management, string interning, garbage
// collection, and sealing together into the single object an embedder
// constructs per VM: GlobalState.
package state

import (
	"github.com/luavela-go/uvela-lib/common"
	"github.com/luavela-go/uvela-lib/gc"
	"github.com/luavela-go/uvela-lib/gcobj"
	"github.com/luavela-go/uvela-lib/seal"
	"github.com/luavela-go/uvela-lib/strintern"
	"github.com/luavela-go/uvela-lib/table"
)

// GlobalState is the root of one VM's world: its allocator, its interned
// strings, its collector, and its global environment table. Multiple
// GlobalStates may run concurrently in one process, each with its own
// heap, optionally sharing a single read-only DataState between them.
type GlobalState struct {
	Memory  *common.Memory
	Strings *strintern.Table
	GC      *gc.Collector

	globals  *table.Table
	registry *table.Table

	dataState   *DataState
	emptyString *strintern.String
}

// New constructs a GlobalState ready for use: its globals and registry
// tables already exist and are registered as GC roots.
func New(opts Options) *GlobalState {
	mem := common.NewMemory(opts.allocFn(), nil)
	strs := strintern.NewTable(opts.HashFunction)
	if opts.DisableIntern {
		strs.DisableCache()
	}
	collector := gc.NewCollector(strs, opts.gcPolicy())

	g := &GlobalState{
		Memory:    mem,
		Strings:   strs,
		GC:        collector,
		globals:   table.New(0, 0),
		registry:  table.New(0, 0),
		dataState: opts.DataState,
	}
	g.globals.SetBarrierHook(collector.BarrierBack)
	g.registry.SetBarrierHook(collector.BarrierBack)
	collector.AddRoot(g.globals)
	collector.AddRoot(g.registry)
	// A mounted DataState's root is deliberately NOT added to this
	// collector: it was sealed (and hence made permanent) by whichever VM
	// produced it, so it needs no reachability tracking of its own here.
	// Linking it into this VM's allocation list would also violate
	// sweepStep's "sealed objects only trail at the tail" invariant,
	// since AddRoot prepends to the head — sweepStep would see a sealed
	// object first and stop before sweeping any of this VM's own garbage.

	// The empty string is interned once up front (§4.2 step 1): every VM
	// needs it (e.g. as a table key or concat identity) and a single shared
	// instance avoids every caller re-checking for the zero-length case.
	g.emptyString, _ = strs.Intern("")

	return g
}

// EmptyString returns the single interned *strintern.String for "",
// allocated once at construction (§4.2's empty-string singleton step).
func (g *GlobalState) EmptyString() *strintern.String { return g.emptyString }

// Globals returns the VM's global environment table (Lua's _G).
func (g *GlobalState) Globals() *table.Table { return g.globals }

// Registry returns the VM's internal registry table, used for state that
// embedder code needs reachable but that Lua code itself has no direct
// reference to.
func (g *GlobalState) Registry() *table.Table { return g.registry }

// DataState returns the read-only graph mounted at construction time, or
// nil if none was mounted.
func (g *GlobalState) DataState() *DataState { return g.dataState }

// NewTable allocates a table sized for asize array slots and hsize hash
// slots and registers it with this VM's collector.
func (g *GlobalState) NewTable(asize, hsize int) *table.Table {
	t := table.New(asize, hsize)
	g.GC.Register(t)
	t.SetBarrierHook(g.GC.BarrierBack)
	return t
}

// InternString returns the unique *strintern.String for s, consulting this
// VM's own sealed string table before its live one. Each GlobalState has
// its own strintern.Table; the strings of a mounted DataState are not
// consulted.
func (g *GlobalState) InternString(s string) (*strintern.String, error) {
	return g.Strings.Intern(s)
}

// Step runs one incremental collection step bounded by budget bytes of
// work, returning true if a full cycle completed during the call.
func (g *GlobalState) Step(budget uint64) bool { return g.GC.Step(budget) }

// FullGC forces an entire collection cycle to completion.
func (g *GlobalState) FullGC() { g.GC.FullGC() }

// Seal freezes every object reachable from root and returns a DataState
// other GlobalStates can mount. root is typically (but need not be) this
// VM's own globals table.
func (g *GlobalState) Seal(root gcobj.Object) (*DataState, error) {
	n, err := seal.Seal(root, g.Strings, g.GC)
	if err != nil {
		return nil, NewError(ErrKindNotSealable, "%s", err)
	}
	g.Memory.Sealed(g.GC.ApproxBytes(n))
	return NewDataState(root), nil
}

// Immutable makes t and every object reachable from it reject further
// mutation (see seal.Immutable), without sealing any of them.
func (g *GlobalState) Immutable(t *table.Table) error {
	if err := seal.Immutable(t); err != nil {
		return NewError(ErrKindReadOnly, "%s", err)
	}
	return nil
}

// Metrics returns a point-in-time resource usage snapshot, assembling §6.6's
// full metrics shape from each subsystem's own counters. Reading it resets
// every interval counter (MemoryAllocated/Freed, Steps, StrHashHit/Miss)
// but leaves every live gauge untouched.
func (g *GlobalState) Metrics() Metrics {
	// gc_total/gc_sealed (I9: gc_total + gc_sealed == sizeof(all allocated))
	// both come from common.Memory's own total/sealed buckets, which Seal's
	// call to Memory.Sealed moves bytes between directly — using gc.Collector's
	// separate approxSize-based pacing estimate here would compare two
	// different unit systems and make the invariant meaningless.
	_, _, steps := g.GC.Snapshot()
	memSnap := g.Memory.Snapshot()
	hit, miss := g.Strings.HashStats()
	return Metrics{
		MemoryTotal:     g.Memory.Total(),
		MemoryAllocated: memSnap.Allocated,
		MemoryFreed:     memSnap.Freed,
		MemorySealed:    g.Memory.SealedBytes(),
		StringsLive:     g.Strings.LiveCount(),
		StringsSealed:   g.Strings.SealedCount(),
		TableCount:      g.GC.TableCount(),
		UserdataCount:   g.GC.UserdataCount(),
		Steps:           steps,
		StrHashHit:      hit,
		StrHashMiss:     miss,
		GCPhase:         g.GC.Phase().String(),
	}
}
