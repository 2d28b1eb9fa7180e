// Copyright 2026 The Uvela Authors
// This file is part of uvela.

// Package seal implements the two transactional freezing operations a
// value graph can undergo: Immutable (every object of a reachable subgraph
// rejects further mutation) and Seal (an entire reachable graph becomes permanent, read-only,
// and shareable across VMs as a data state). Both follow the same shape —
// mark tentatively, validate, then either commit or roll every tentative
// mark back — grounded on the original runtime's uj_obj_seal.c and
// uj_obj_immutable.c.
package seal

import (
	"github.com/pkg/errors"

	"github.com/luavela-go/uvela-lib/gc"
	"github.com/luavela-go/uvela-lib/gcobj"
	"github.com/luavela-go/uvela-lib/objects"
	"github.com/luavela-go/uvela-lib/strintern"
	"github.com/luavela-go/uvela-lib/table"
	"github.com/luavela-go/uvela-lib/value"
)

// ErrThreadNotSealable is returned when a seal transaction's reachable set
// includes a thread: a coroutine's stack is inherently mutable and tied to
// one VM's execution, so it can never become part of a shared data state.
var ErrThreadNotSealable = errors.New("seal: a thread cannot be sealed")

// ErrImmutableBadType is returned when an immutable transaction's reachable
// set includes a type that cannot meaningfully be frozen: a thread, an
// upvalue, a trace, cdata, or userdata (spec's "immutable-bad-type").
var ErrImmutableBadType = errors.New("seal: type does not support immutability")

// rejectFunc vets one visited object before it is marked; a non-nil error
// aborts the whole transaction.
type rejectFunc func(gcobj.Object) error

func rejectThread(o gcobj.Object) error {
	if _, ok := o.(*objects.Thread); ok {
		return ErrThreadNotSealable
	}
	return nil
}

func rejectImmutableBadType(o gcobj.Object) error {
	switch o.(type) {
	case *objects.Thread, *objects.Upvalue, *objects.Trace, *objects.CData, *objects.Userdata:
		return ErrImmutableBadType
	}
	return nil
}

type walker struct {
	visited map[gcobj.Object]bool
	order   []gcobj.Object
}

// queueMarker adapts objects.Marker to simply collect the direct children
// of one object, for the walker's own BFS/DFS — it does not touch mark
// bits itself, unlike gc.Collector's Mark/MarkObject.
type queueMarker struct {
	children []gcobj.Object
}

func (m *queueMarker) Mark(v value.Value) {
	if o := v.GC(); o != nil {
		m.children = append(m.children, o)
	}
}

func (m *queueMarker) MarkObject(o gcobj.Object) { m.children = append(m.children, o) }

func children(o gcobj.Object) []gcobj.Object {
	m := &queueMarker{}
	switch v := o.(type) {
	case *table.Table:
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
	}
	return m.children
}

// Seal freezes every object reachable from root: each becomes permanent,
// read-only (sealed AND immutable, per I8), and (for strings) migrated
// into the table's sealed hash so future interning finds the shared copy
// instead of allocating a new one. Seal either fully succeeds — every
// reachable object is marked Sealed and Immutable — or fully fails with the
// graph left exactly as it was found. On success it returns the number of
// objects sealed, for the caller's byte accounting (state.Metrics' gc_sealed).
func Seal(root gcobj.Object, strings *strintern.Table, collector *gc.Collector) (int, error) {
	w := &walker{visited: map[gcobj.Object]bool{}}
	if err := w.mark(root, rejectThread); err != nil {
		w.rollback()
		return 0, err
	}
	w.commit(strings, true)
	collector.RelinkSealedTail()
	return len(w.order), nil
}

func (w *walker) mark(o gcobj.Object, reject rejectFunc) error {
	if w.visited[o] {
		return nil
	}
	w.visited[o] = true

	h := o.GCHeader()
	if h.HasMark(gcobj.Sealed) {
		// Already sealed implies already immutable (I8); nothing further
		// to validate or mark for either transaction.
		return nil
	}

	if err := reject(o); err != nil {
		return err
	}

	// TmpMark (0x20) reuses the bit strings use for Fixed, so it must never
	// be set on a *strintern.String: doing so would transiently (and, on
	// rollback, permanently) clear a Fixed string's protection from the
	// sweep-string phase. Strings are leaves (children never recurses into
	// one), so nothing depends on their tentative-mark state anyway — only
	// on commit/rollback visiting them via w.order.
	if _, isString := o.(*strintern.String); !isString {
		h.SetMark(gcobj.TmpMark)
	}
	w.order = append(w.order, o)

	for _, c := range children(o) {
		if err := w.mark(c, reject); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) rollback() {
	for _, o := range w.order {
		if _, isString := o.(*strintern.String); isString {
			continue // never set TmpMark on a string; see mark's comment
		}
		o.GCHeader().ClearMark(gcobj.TmpMark)
	}
}

// commit promotes every tentatively marked object to its final state.
// sealing also sets Immutable (I8: every sealed object is immutable) and
// migrates strings into the shared sealed string table; a plain Immutable
// transaction (sealing=false) sets only the Immutable bit.
func (w *walker) commit(strings *strintern.Table, sealing bool) {
	for _, o := range w.order {
		h := o.GCHeader()
		if _, isString := o.(*strintern.String); !isString {
			h.ClearMark(gcobj.TmpMark) // never set on a string; see mark's comment
		}
		h.SetMark(gcobj.Immutable)
		if sealing {
			// strintern.Table.Seal skips strings already marked Sealed, so
			// migrate first and set the bit afterwards.
			if s, ok := o.(*strintern.String); ok {
				strings.Seal(s)
			}
			h.SetMark(gcobj.Sealed)
		}
	}
}
