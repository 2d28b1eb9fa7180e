// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package state

import (
	"testing"

	"github.com/luavela-go/uvela-lib/value"
	"github.com/stretchr/testify/require"
)

func TestNewGlobalStateHasGlobalsAndRegistry(t *testing.T) {
	g := New(Options{})
	require.NotNil(t, g.Globals())
	require.NotNil(t, g.Registry())
	require.Nil(t, g.DataState())
}

func TestInternStringIsStableWithinAState(t *testing.T) {
	g := New(Options{})
	a, err := g.InternString("foo")
	require.NoError(t, err)
	b, err := g.InternString("foo")
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestSealProducesReusableDataState(t *testing.T) {
	g := New(Options{})
	require.NoError(t, g.Globals().Set(value.Number(1), value.Number(42)))

	ds, err := g.Seal(g.Globals())
	require.NoError(t, err)
	require.NotNil(t, ds)
	require.Same(t, g.Globals(), ds.Root)

	other := New(Options{DataState: ds})
	require.Same(t, ds, other.DataState())
}

func TestImmutableViaGlobalState(t *testing.T) {
	g := New(Options{})
	tbl := g.NewTable(0, 0)
	require.NoError(t, g.Immutable(tbl))

	err := tbl.Set(value.Number(1), value.Number(1))
	require.Error(t, err)
}

func TestMetricsReflectsActivity(t *testing.T) {
	g := New(Options{})
	_, err := g.InternString("hello")
	require.NoError(t, err)

	m := g.Metrics()
	// +1 for the empty string every GlobalState interns up front (§4.2).
	require.Equal(t, 2, m.StringsLive)
	require.Equal(t, "pause", m.GCPhase)
}

func TestEmptyStringIsInternedOnceUpFront(t *testing.T) {
	g := New(Options{})
	require.NotNil(t, g.EmptyString())

	again, err := g.InternString("")
	require.NoError(t, err)
	require.Same(t, g.EmptyString(), again)
}

func TestMetricsTracksSealedBytesAndObjectCounts(t *testing.T) {
	g := New(Options{})
	tbl := g.NewTable(0, 0)
	require.NoError(t, tbl.Set(value.Number(1), value.Number(1)))

	before := g.Metrics()
	require.GreaterOrEqual(t, before.TableCount, 1)
	require.Zero(t, before.MemorySealed)

	_, err := g.Seal(tbl)
	require.NoError(t, err)

	after := g.Metrics()
	require.Greater(t, after.MemorySealed, uint64(0))
}
