// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package gc

import (
	"testing"

	"github.com/luavela-go/uvela-lib/common"
	"github.com/luavela-go/uvela-lib/gcobj"
	"github.com/luavela-go/uvela-lib/objects"
	"github.com/luavela-go/uvela-lib/strintern"
	"github.com/luavela-go/uvela-lib/table"
	"github.com/luavela-go/uvela-lib/value"
	"github.com/stretchr/testify/require"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	strs := strintern.NewTable(common.HashMurmur3)
	return NewCollector(strs, Policy{PausePercent: 100, StepMulPercent: 100})
}

func TestMarkObjectMovesWhiteToGray(t *testing.T) {
	c := newTestCollector(t)
	tbl := table.New(0, 0)
	c.Register(tbl)
	require.True(t, tbl.HasMark(gcobj.White0) || tbl.HasMark(gcobj.White1))

	c.MarkObject(tbl)
	require.True(t, tbl.GCHeader().IsGray())
}

func TestBarrierForwardGraysWhiteChildOfBlackParent(t *testing.T) {
	c := newTestCollector(t)
	parent := objects.NewUserdata(nil)
	child := table.New(0, 0)
	c.Register(parent)
	c.Register(child)

	parent.GCHeader().SetMark(gcobj.Black)
	c.BarrierForward(parent, value.FromGC(value.TagTable, child))

	require.True(t, child.GCHeader().IsGray())
}

func TestBarrierBackDemotesBlackTableToGray(t *testing.T) {
	c := newTestCollector(t)
	tbl := table.New(0, 0)
	c.Register(tbl)
	tbl.GCHeader().SetMark(gcobj.Black)

	c.BarrierBack(tbl)
	require.False(t, tbl.GCHeader().IsBlack())
	require.Contains(t, c.grayAgain, tbl)
}

func TestFullCycleCollectsUnreachableTable(t *testing.T) {
	c := newTestCollector(t)
	root := table.New(0, 0)
	c.AddRoot(root)

	garbage := table.New(0, 0)
	c.Register(garbage)

	reachable := table.New(0, 0)
	c.Register(reachable)
	require.NoError(t, root.Set(value.Number(1), value.FromGC(value.TagTable, reachable)))

	c.liveBytes = c.threshold // force the next cycle to start
	c.FullGC()

	require.Equal(t, PhasePause, c.Phase())

	found := false
	for o := c.allocHead; o != nil; o = o.GCHeader().Next() {
		if o == garbage {
			found = true
		}
	}
	require.False(t, found, "unreachable table must be unlinked by sweep")

	found = false
	for o := c.allocHead; o != nil; o = o.GCHeader().Next() {
		if o == reachable {
			found = true
		}
	}
	require.True(t, found, "reachable table must survive sweep")
}

func TestWeakValueTableDropsDeadEntries(t *testing.T) {
	c := newTestCollector(t)
	root := table.New(0, 0)
	c.AddRoot(root)

	weak := table.New(0, 0)
	weak.SetMark(0x10) // WeakValue
	c.Register(weak)
	require.NoError(t, root.Set(value.Number(1), value.FromGC(value.TagTable, weak)))

	garbage := table.New(0, 0)
	c.Register(garbage)
	require.NoError(t, weak.Set(value.Number(1), value.FromGC(value.TagTable, garbage)))

	c.liveBytes = c.threshold
	c.FullGC()

	require.True(t, weak.Get(value.Number(1)).IsNil(), "weak value referencing dead object must be cleared")
}

// TestWiredBarrierBackSurvivesInterleavedStepAndMutation exercises the
// integration BarrierBack/BarrierForward exist for, not just the barrier
// functions in isolation: a table already blackened by propagation is
// mutated, through table.Table.Set's wired hook (the same path
// state.GlobalState wires into every table it hands out), to point at a
// fresh white table, and that fresh table must survive the same cycle's
// sweep. Without the hook, parent.Set would never call BarrierBack, fresh
// would keep its stale white color through sweepStep, and it would be
// unlinked even though it is reachable again — the tri-color invariant I1
// violation the review flagged.
func TestWiredBarrierBackSurvivesInterleavedStepAndMutation(t *testing.T) {
	c := newTestCollector(t)
	root := table.New(0, 0)
	c.AddRoot(root)

	parent := table.New(0, 0)
	c.Register(parent)
	parent.SetBarrierHook(c.BarrierBack)
	require.NoError(t, root.Set(value.Number(1), value.FromGC(value.TagTable, parent)))

	c.startCycle()
	for len(c.gray) > 0 {
		c.propagateOne()
	}
	require.True(t, parent.GCHeader().IsBlack(), "parent must be blackened before the mutation under test")

	fresh := table.New(0, 0)
	c.Register(fresh)

	require.NoError(t, parent.Set(value.Number(1), value.FromGC(value.TagTable, fresh)))
	require.False(t, parent.GCHeader().IsBlack(), "Set's wired barrier must demote parent back to gray")
	require.Contains(t, c.grayAgain, parent)

	c.runAtomic()
	c.runSweepString()
	for c.phase == PhaseSweep {
		c.sweepStep(1 << 20)
	}
	require.Equal(t, PhaseFinalize, c.phase)

	found := false
	for o := c.allocHead; o != nil; o = o.GCHeader().Next() {
		if o == fresh {
			found = true
		}
	}
	require.True(t, found, "table reachable only via a post-black mutation must survive the cycle's sweep")
}

func TestPolicyThresholdGrowsWithLiveBytes(t *testing.T) {
	p := DefaultPolicy
	small, err := p.NextThreshold(1000)
	require.NoError(t, err)
	large, err := p.NextThreshold(2000)
	require.NoError(t, err)
	require.Greater(t, large, small)
}
