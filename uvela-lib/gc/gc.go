// Copyright 2026 The Uvela Authors
// This file is part of uvela.

// Package gc implements the tri-color incremental mark-sweep collector:
// a pause -> propagate -> atomic -> sweep-string -> sweep -> finalize
// phase ring, driven one budgeted Step at a time so a long-running VM
// never stops the world for longer than a single step's budget.
package gc

import (
	"github.com/luavela-go/uvela-lib/gcobj"
	"github.com/luavela-go/uvela-lib/objects"
	"github.com/luavela-go/uvela-lib/strintern"
	"github.com/luavela-go/uvela-lib/table"
	"github.com/luavela-go/uvela-lib/value"
)

// Phase identifies where in the cycle the collector currently is.
type Phase uint8

const (
	PhasePause Phase = iota
	PhasePropagate
	PhaseAtomic
	PhaseSweepString
	PhaseSweep
	PhaseFinalize
)

func (p Phase) String() string {
	switch p {
	case PhasePause:
		return "pause"
	case PhasePropagate:
		return "propagate"
	case PhaseAtomic:
		return "atomic"
	case PhaseSweepString:
		return "sweepstring"
	case PhaseSweep:
		return "sweep"
	case PhaseFinalize:
		return "finalize"
	default:
		return "invalid"
	}
}

// approxSize estimates an object's contribution to the heap, used only to
// pace the collector (accurate byte accounting lives in common.Memory,
// which tracks every realloc directly).
const approxSize = 48

// Collector is a single VM's garbage collector: it owns the root list, the
// gray worklist, and the phase state machine, and cooperates with the
// string table's separate sweep-string invariant.
type Collector struct {
	strings *strintern.Table
	policy  Policy

	currentWhite uint8
	deadWhite    uint8 // captured at the start of sweep: objects still carrying this color are unreachable

	phase     Phase
	gray      []gcobj.Object
	grayAgain []*table.Table // tables flipped back to gray by the backward write barrier

	roots []gcobj.Object

	allocHead  gcobj.Object // intrusive list of every non-string object ever registered
	sweepPrev  gcobj.Object // sweep cursor's trailing pointer, for in-place unlinking
	sweepCur   gcobj.Object

	liveBytes       uint64
	threshold       uint64
	allocatedSince  uint64 // drives pacing only, reset every finalized cycle

	tableCount    uint64
	userdataCount uint64

	// allocatedBytes/freedBytes/stepCounts are interval counters consumed by
	// state.Metrics (§6.6): Snapshot reads and resets them, independent of
	// allocatedSince's per-cycle pacing reset.
	allocatedBytes uint64
	freedBytes     uint64
	stepCounts     [6]uint64
}

// StepCounts reports how many units of incremental work (one per pass of
// Step's inner loop, e.g. one per object propagated) each phase performed
// since the last Snapshot, the gc_steps_* family of §6.6.
type StepCounts struct {
	Pause       uint64
	Propagate   uint64
	Atomic      uint64
	SweepString uint64
	Sweep       uint64
	Finalize    uint64
}

// NewCollector constructs a collector in the paused state, ready for its
// first cycle once enough bytes have been allocated to cross threshold.
func NewCollector(strings *strintern.Table, policy Policy) *Collector {
	c := &Collector{
		strings:      strings,
		policy:       policy,
		currentWhite: gcobj.White0,
		phase:        PhasePause,
	}
	c.threshold, _ = policy.NextThreshold(0)
	return c
}

// AddRoot registers o as a GC root: always re-marked at the start of every
// cycle, never swept. Typical roots are a VM's globals table and registry.
func (c *Collector) AddRoot(o gcobj.Object) {
	c.roots = append(c.roots, o)
	c.Register(o)
}

// Register adds a freshly allocated object to the sweep-managed allocation
// list and paints it the current white, mirroring every NewXxx
// constructor's expected follow-up call.
func (c *Collector) Register(o gcobj.Object) {
	h := o.GCHeader()
	h.MakeWhite(c.currentWhite)
	h.SetNext(c.allocHead)
	c.allocHead = o
	c.liveBytes += approxSize
	c.allocatedSince += approxSize
	c.allocatedBytes += approxSize
	switch o.(type) {
	case *table.Table:
		c.tableCount++
	case *objects.Userdata:
		c.userdataCount++
	}
}

// NoteBytes records additional heap bytes attributable to a mutation (e.g.
// a table's array part growing) so pacing reflects more than fixed
// per-object overhead.
func (c *Collector) NoteBytes(n uint64) {
	c.liveBytes += n
	c.allocatedSince += n
	c.allocatedBytes += n
}

// ApproxBytes converts a count of objects into the same fixed-size-per-object
// estimate Register/sweepStep use internally, letting callers outside this
// package (state.GlobalState.Seal, accounting for sealed bytes) convert an
// object count without this package exporting approxSize itself.
func (c *Collector) ApproxBytes(count int) uint64 { return uint64(count) * approxSize }

// TableCount and UserdataCount report live object counts without resetting
// anything, surfaced through state.Metrics' tabnum/udatanum (§6.6).
func (c *Collector) TableCount() int    { return int(c.tableCount) }
func (c *Collector) UserdataCount() int { return int(c.userdataCount) }

// LiveBytes reports the collector's own approximate live-heap estimate,
// surfaced through state.Metrics' gc_total (§6.6).
func (c *Collector) LiveBytes() uint64 { return c.liveBytes }

// Snapshot returns the interval byte/step counters accumulated since the
// last Snapshot call and resets them, matching §6.6's "all counters reset
// on read" for gc_freed/gc_allocated/gc_steps_*.
func (c *Collector) Snapshot() (freed, allocated uint64, steps StepCounts) {
	freed, allocated = c.freedBytes, c.allocatedBytes
	steps = StepCounts{
		Pause:       c.stepCounts[PhasePause],
		Propagate:   c.stepCounts[PhasePropagate],
		Atomic:      c.stepCounts[PhaseAtomic],
		SweepString: c.stepCounts[PhaseSweepString],
		Sweep:       c.stepCounts[PhaseSweep],
		Finalize:    c.stepCounts[PhaseFinalize],
	}
	c.freedBytes, c.allocatedBytes = 0, 0
	c.stepCounts = [6]uint64{}
	return
}

// ShouldStep reports whether the mutator has allocated enough since the
// last cycle to justify starting or continuing one.
func (c *Collector) ShouldStep() bool {
	return c.phase != PhasePause || c.liveBytes >= c.threshold
}

// Mark implements objects.Marker for a value: a GC-managed Value whose
// referent is still white is grayed and pushed onto the worklist.
func (c *Collector) Mark(v value.Value) {
	if o := v.GC(); o != nil {
		c.MarkObject(o)
	}
}

// MarkObject implements objects.Marker for a direct object reference.
func (c *Collector) MarkObject(o gcobj.Object) {
	h := o.GCHeader()
	if !h.IsWhite() {
		return
	}
	h.ClearMark(gcobj.Whites)
	c.gray = append(c.gray, o)
}

// BarrierForward enforces "no black object points to a white object": call
// it immediately after storing child into a field of parent. If parent is
// already black, child is grayed in place instead of waiting for parent to
// be re-traversed (which black objects never are).
func (c *Collector) BarrierForward(parent gcobj.Object, child value.Value) {
	ph := parent.GCHeader()
	co := child.GC()
	if co == nil || !ph.IsBlack() {
		return
	}
	if co.GCHeader().IsWhite() {
		c.MarkObject(co)
	}
}

// BarrierBack handles the one case forward barriers can't cover cheaply:
// a table mutated through many distinct key writes. Instead of graying
// each child individually, the whole table is demoted back to gray and
// re-traversed in the atomic phase, trading a little extra marking work
// for a barrier that is O(1) per table write.
func (c *Collector) BarrierBack(t *table.Table) {
	h := t.GCHeader()
	if !h.IsBlack() {
		return
	}
	h.Black2Gray()
	c.grayAgain = append(c.grayAgain, t)
}

func (c *Collector) Phase() Phase { return c.phase }

// Step performs up to budget bytes of collector work and returns true if a
// full cycle (pause->...->finalize->pause) completed during the call.
func (c *Collector) Step(budget uint64) bool {
	spent := uint64(0)
	for spent < budget {
		switch c.phase {
		case PhasePause:
			if c.liveBytes < c.threshold {
				return false
			}
			c.startCycle()
			c.stepCounts[PhasePause]++
			spent += approxSize
		case PhasePropagate:
			if len(c.gray) == 0 {
				c.phase = PhaseAtomic
				continue
			}
			spent += c.propagateOne()
			c.stepCounts[PhasePropagate]++
		case PhaseAtomic:
			c.runAtomic()
			c.stepCounts[PhaseAtomic]++
			spent += approxSize
		case PhaseSweepString:
			c.runSweepString()
			c.stepCounts[PhaseSweepString]++
			spent += approxSize
		case PhaseSweep:
			spent += c.sweepStep(budget - spent)
			c.stepCounts[PhaseSweep]++
		case PhaseFinalize:
			c.phase = PhasePause
			c.allocatedSince = 0
			c.threshold, _ = c.policy.NextThreshold(c.liveBytes)
			c.stepCounts[PhaseFinalize]++
			return true
		}
	}
	return false
}

// FullGC drives the collector through entire cycles until one full cycle
// completes, regardless of whether threshold would normally have been
// reached yet — used for an explicit "collect now" request.
func (c *Collector) FullGC() {
	if c.phase == PhasePause {
		c.startCycle()
	}
	for {
		if c.Step(1 << 30) {
			return
		}
	}
}

func (c *Collector) startCycle() {
	c.gray = c.gray[:0]
	c.grayAgain = c.grayAgain[:0]
	for _, r := range c.roots {
		c.MarkObject(r)
	}
	c.phase = PhasePropagate
}

func (c *Collector) propagateOne() uint64 {
	o := c.gray[len(c.gray)-1]
	c.gray = c.gray[:len(c.gray)-1]
	traverse(o, c)
	o.GCHeader().SetMark(gcobj.Black)
	return approxSize
}

func (c *Collector) runAtomic() {
	for len(c.gray) > 0 {
		c.propagateOne()
	}
	for _, t := range c.grayAgain {
		traverse(t, c)
		t.GCHeader().SetMark(gcobj.Black)
	}
	c.grayAgain = c.grayAgain[:0]

	c.deadWhite = c.currentWhite
	c.clearWeakTables()

	c.currentWhite = gcobj.Whites &^ c.currentWhite
	c.sweepPrev = nil
	c.sweepCur = c.allocHead
	c.strings.BeginSweepString()
	c.phase = PhaseSweepString
}

// clearWeakTables walks every registered table looking for weak-mode
// tables and drops entries whose key or value did not get marked this
// cycle. Rather than track weak tables in a separate registry, this pass
// inspects the allocation list directly for tables carrying a weak bit.
func (c *Collector) clearWeakTables() {
	for o := c.allocHead; o != nil; o = o.GCHeader().Next() {
		t, ok := o.(*table.Table)
		if !ok || (!t.WeakKey() && !t.WeakValue()) {
			continue
		}
		var deadKey, deadVal func(value.Value) bool
		if t.WeakKey() {
			deadKey = c.isDeadValue
		}
		if t.WeakValue() {
			deadVal = c.isDeadValue
		}
		t.SweepWeak(deadKey, deadVal)
	}
}

func (c *Collector) isDeadValue(v value.Value) bool {
	o := v.GC()
	if o == nil {
		return false
	}
	return o.GCHeader().HasMark(c.deadWhite) && !o.GCHeader().IsBlack()
}

func (c *Collector) runSweepString() {
	c.strings.Sweep(
		func(s *strintern.String) bool { return s.HasMark(c.deadWhite) && !s.HasMark(gcobj.Fixed) },
		func(*strintern.String) {},
	)
	c.strings.EndSweepString()
	c.phase = PhaseSweep
}

// sweepStep walks the allocation list, unlinking dead objects and
// repainting survivors with the current (post-flip) white, stopping once
// budget bytes have been processed or the list is exhausted.
func (c *Collector) sweepStep(budget uint64) uint64 {
	spent := uint64(0)
	for c.sweepCur != nil && spent < budget {
		h := c.sweepCur.GCHeader()
		if h.HasMark(gcobj.Sealed) {
			// RelinkSealedTail guarantees every remaining object is sealed
			// too; sealed objects outlive any single VM's cycle, so there
			// is nothing left for this sweep to do.
			c.phase = PhaseFinalize
			return spent
		}
		next := h.Next()

		if h.HasMark(c.deadWhite) && !h.HasMark(gcobj.Fixed) {
			if c.sweepPrev == nil {
				c.allocHead = next
			} else {
				c.sweepPrev.GCHeader().SetNext(next)
			}
			if c.liveBytes > approxSize {
				c.liveBytes -= approxSize
			} else {
				c.liveBytes = 0
			}
			c.freedBytes += approxSize
			switch c.sweepCur.(type) {
			case *table.Table:
				if c.tableCount > 0 {
					c.tableCount--
				}
			case *objects.Userdata:
				if c.userdataCount > 0 {
					c.userdataCount--
				}
			}
		} else {
			h.ClearMark(gcobj.Black)
			h.MakeWhite(c.currentWhite)
			c.sweepPrev = c.sweepCur
		}

		c.sweepCur = next
		spent += approxSize
	}
	if c.sweepCur == nil {
		c.phase = PhaseFinalize
	}
	return spent
}

// RelinkSealedTail partitions the allocation list in place so every sealed
// object trails every unsealed one, preserving each partition's relative
// order. Package seal calls this after committing a seal transaction so
// the sweep phase (which never revisits sealed objects, see sweepStep)
// can stop scanning as soon as it reaches the sealed partition rather than
// walking past it on every cycle.
func (c *Collector) RelinkSealedTail() {
	var unsealedHead, unsealedTail gcobj.Object
	var sealedHead, sealedTail gcobj.Object

	for o := c.allocHead; o != nil; {
		next := o.GCHeader().Next()
		o.GCHeader().SetNext(nil)
		if o.GCHeader().HasMark(gcobj.Sealed) {
			if sealedHead == nil {
				sealedHead = o
			} else {
				sealedTail.GCHeader().SetNext(o)
			}
			sealedTail = o
		} else {
			if unsealedHead == nil {
				unsealedHead = o
			} else {
				unsealedTail.GCHeader().SetNext(o)
			}
			unsealedTail = o
		}
		o = next
	}

	if unsealedHead == nil {
		c.allocHead = sealedHead
		return
	}
	unsealedTail.GCHeader().SetNext(sealedHead)
	c.allocHead = unsealedHead
}

// traverse visits every GC-managed reference held by o, grounded on each
// type's own domain knowledge: tables know their array/hash/metatable
// slots, package objects' Traversable types know their own shape, and
// strings are leaves the collector never needs to recurse into.
func traverse(o gcobj.Object, m objects.Marker) {
	switch v := o.(type) {
	case *table.Table:
		// A weak side is never traversed here: marking it reachable would
		// defeat the point of weakness. clearWeakTables handles dropping
		// the entries whose un-traversed side turned out to be dead.
		if !v.WeakValue() {
			for _, val := range v.Values() {
				m.Mark(val)
			}
		}
		if !v.WeakKey() {
			for _, key := range v.Keys() {
				m.Mark(key)
			}
		}
		if mt := v.Metatable(); mt != nil {
			m.MarkObject(mt)
		}
	case objects.Traversable:
		v.Traverse(m)
	case *strintern.String:
		// leaf: a string's bytes are never a GC reference.
	}
}
