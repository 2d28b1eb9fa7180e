// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package seal

import (
	"testing"

	"github.com/luavela-go/uvela-lib/common"
	"github.com/luavela-go/uvela-lib/gc"
	"github.com/luavela-go/uvela-lib/gcobj"
	"github.com/luavela-go/uvela-lib/objects"
	"github.com/luavela-go/uvela-lib/strintern"
	"github.com/luavela-go/uvela-lib/table"
	"github.com/luavela-go/uvela-lib/value"
	"github.com/stretchr/testify/require"
)

func newCollector(t *testing.T) *gc.Collector {
	t.Helper()
	strs := strintern.NewTable(common.HashMurmur3)
	return gc.NewCollector(strs, gc.DefaultPolicy)
}

func TestSealFreezesWholeGraph(t *testing.T) {
	strs := strintern.NewTable(common.HashMurmur3)
	c := gc.NewCollector(strs, gc.DefaultPolicy)

	child := table.New(0, 0)
	root := table.New(0, 0)
	require.NoError(t, root.Set(value.Number(1), value.FromGC(value.TagTable, child)))
	c.AddRoot(root)
	c.Register(child)

	n, err := Seal(root, strs, c)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.True(t, root.HasMark(gcobj.Sealed))
	require.True(t, root.HasMark(gcobj.Immutable), "sealed implies immutable (I8)")
	require.True(t, child.HasMark(gcobj.Sealed))
	require.True(t, child.HasMark(gcobj.Immutable), "sealed implies immutable (I8)")
	require.ErrorIs(t, root.Set(value.Number(2), value.Number(1)), table.ErrSealed)
}

func TestSealRollsBackOnThread(t *testing.T) {
	strs := strintern.NewTable(common.HashMurmur3)
	c := gc.NewCollector(strs, gc.DefaultPolicy)

	th := objects.NewThread(4)
	root := table.New(0, 0)
	require.NoError(t, root.Set(value.Number(1), value.FromGC(value.TagThread, th)))
	c.AddRoot(root)
	c.Register(th)

	_, err := Seal(root, strs, c)
	require.ErrorIs(t, err, ErrThreadNotSealable)
	require.False(t, root.HasMark(gcobj.Sealed), "rollback must undo the tentative mark on root too")
	require.False(t, root.HasMark(gcobj.TmpMark))
}

func TestImmutableFreezesKeySet(t *testing.T) {
	tbl := table.New(0, 0)
	require.NoError(t, tbl.Set(value.Number(1), value.Number(1)))

	require.NoError(t, Immutable(tbl))
	require.True(t, tbl.HasMark(gcobj.Immutable))
	require.ErrorIs(t, tbl.Set(value.Number(2), value.Number(2)), table.ErrImmutable)
}

// TestImmutableRecursesIntoNestedTables asserts I7: every object reachable
// from an immutable root is itself immutable, not just the root.
func TestImmutableRecursesIntoNestedTables(t *testing.T) {
	child := table.New(0, 0)
	require.NoError(t, child.Set(value.Number(1), value.Number(1)))

	root := table.New(0, 0)
	require.NoError(t, root.Set(value.Number(1), value.FromGC(value.TagTable, child)))

	require.NoError(t, Immutable(root))

	require.True(t, root.HasMark(gcobj.Immutable))
	require.False(t, root.HasMark(gcobj.Sealed), "Immutable alone must not seal")
	require.True(t, child.HasMark(gcobj.Immutable), "every object reachable from an immutable root must become immutable too")
	require.ErrorIs(t, child.Set(value.Number(2), value.Number(2)), table.ErrImmutable)
}

// TestImmutableRejectsBadType asserts the transaction is all-or-nothing: a
// thread anywhere in the reachable set aborts the whole walk with
// ErrImmutableBadType and leaves every object exactly as found.
func TestImmutableRejectsBadType(t *testing.T) {
	th := objects.NewThread(4)
	child := table.New(0, 0)

	root := table.New(0, 0)
	require.NoError(t, root.Set(value.Number(1), value.FromGC(value.TagTable, child)))
	require.NoError(t, root.Set(value.Number(2), value.FromGC(value.TagThread, th)))

	err := Immutable(root)
	require.ErrorIs(t, err, ErrImmutableBadType)
	require.False(t, root.HasMark(gcobj.Immutable), "rollback must undo every tentative mark, including the root's")
	require.False(t, child.HasMark(gcobj.Immutable))
}

// TestSealPreservesFixedStringsReachedAsKeys guards against TmpMark (0x20)
// colliding with Fixed (0x20, "strings only", gcobj/marks.go): a string
// reached during the walk must never have TmpMark set on it, or rollback/
// commit clearing that bit would also strip the string's Fixed protection.
func TestSealPreservesFixedStringsReachedAsKeys(t *testing.T) {
	strs := strintern.NewTable(common.HashMurmur3)
	c := newCollector(t)

	s, err := strs.Intern("k")
	require.NoError(t, err)
	s.SetMark(gcobj.Fixed)

	root := table.New(0, 0)
	require.NoError(t, root.Set(value.FromGC(value.TagString, s), value.Number(1)))
	c.AddRoot(root)
	c.Register(s)

	_, err = Seal(root, strs, c)
	require.NoError(t, err)
	require.True(t, s.HasMark(gcobj.Fixed), "sealing must not clear a string's Fixed bit via the TmpMark alias")
	require.False(t, s.HasMark(gcobj.TmpMark), "TmpMark must never be observably set on a string")
}

func TestImmutableRejectsAlreadySealed(t *testing.T) {
	strs := strintern.NewTable(common.HashMurmur3)
	c := newCollector(t)
	tbl := table.New(0, 0)
	c.AddRoot(tbl)
	_, err := Seal(tbl, strs, c)
	require.NoError(t, err)

	require.ErrorIs(t, Immutable(tbl), ErrAlreadySealed)
}
