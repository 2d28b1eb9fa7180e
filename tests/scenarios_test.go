// Copyright 2026 The Uvela Authors
// This file is part of uvela.

// Package tests holds end-to-end scenarios exercising runtime.Runtime and
// state.GlobalState together, the way the teacher's own package drove
// full state-transition fixtures rather than unit-testing one function at
// a time.
package tests

import (
	"context"
	"testing"

	"github.com/luavela-go/uvela-lib/objects"
	"github.com/luavela-go/uvela-lib/state"
	"github.com/luavela-go/uvela-lib/table"
	"github.com/luavela-go/uvela-lib/value"
	"github.com/luavela-go/uvela/core/runtime"
	"github.com/luavela-go/uvela/core/vm"
	"github.com/stretchr/testify/require"
)

func strKey(t *testing.T, rt *runtime.Runtime, s string) value.Value {
	t.Helper()
	interned, err := rt.InternString(s)
	require.NoError(t, err)
	return value.FromGC(value.TagString, interned)
}

// S1: a freshly constructed Runtime exposes working globals/registry
// tables and can round-trip values through them.
func TestScenarioFreshRuntimeRoundTripsGlobals(t *testing.T) {
	rt := runtime.New(state.Options{})

	key := strKey(t, rt, "answer")
	require.NoError(t, rt.Globals().Set(key, value.Number(42)))

	v, err := rt.Index(rt.Globals(), key)
	require.NoError(t, err)
	require.Equal(t, value.Number(42), v)
}

// S2: __index chains through nested metatables to a terminal table value.
func TestScenarioIndexChainsThroughMetatables(t *testing.T) {
	rt := runtime.New(state.Options{})
	base := rt.NewTable(0, 0)
	parent := rt.NewTable(0, 0)
	grandparent := rt.NewTable(0, 0)

	key := strKey(t, rt, "inherited")
	require.NoError(t, grandparent.Set(key, value.Number(7)))

	indexKey := strKey(t, rt, "__index")
	parentMT := rt.NewTable(0, 0)
	require.NoError(t, parentMT.Set(indexKey, value.FromGC(value.TagTable, grandparent)))
	require.NoError(t, parent.SetMetatable(parentMT))

	baseMT := rt.NewTable(0, 0)
	require.NoError(t, baseMT.Set(indexKey, value.FromGC(value.TagTable, parent)))
	require.NoError(t, base.SetMetatable(baseMT))

	v, err := rt.Index(base, key)
	require.NoError(t, err)
	require.Equal(t, value.Number(7), v)
}

// S3: a full GC cycle collects a table that becomes unreachable after its
// sole root reference is dropped, and live data survives.
func TestScenarioGCCollectsUnreachableTable(t *testing.T) {
	rt := runtime.New(state.Options{})

	survivorKey := strKey(t, rt, "survivor")
	require.NoError(t, rt.Globals().Set(survivorKey, value.Number(1)))

	garbage := rt.NewTable(0, 0) // NewTable already registers it with the collector
	_ = garbage
	before := rt.GC.TableCount()

	rt.FullGC()

	require.Equal(t, before-1, rt.GC.TableCount())
	v, err := rt.Index(rt.Globals(), survivorKey)
	require.NoError(t, err)
	require.Equal(t, value.Number(1), v)
}

// S4: sealing the globals table freezes it in place and yields a
// DataState another Runtime can mount read-only.
func TestScenarioSealGlobalsAndShareAcrossRuntimes(t *testing.T) {
	rt := runtime.New(state.Options{})
	key := strKey(t, rt, "shared")
	require.NoError(t, rt.Globals().Set(key, value.Number(99)))

	ds, err := rt.Seal(rt.Globals())
	require.NoError(t, err)

	require.ErrorIs(t, rt.Globals().Set(key, value.Number(100)), table.ErrSealed)

	other := runtime.New(state.Options{DataState: ds})
	require.Equal(t, ds.ID, other.DataState().ID)
}

// S5: a coroutine can be driven to completion through Resume/yield while
// a Runtime services unrelated table operations in between its resumes.
func TestScenarioCoroutineAlongsideRuntimeActivity(t *testing.T) {
	rt := runtime.New(state.Options{})
	th, co := vm.NewCoroutine(8, func(yield func([]value.Value) []value.Value, args []value.Value) ([]value.Value, error) {
		first := yield([]value.Value{value.Number(1)})
		return []value.Value{value.Number(first[0].Number() * 2)}, nil
	})
	rt.GC.Register(th)

	out, err := co.Resume(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.Number(1)}, out)

	key := strKey(t, rt, "counter")
	require.NoError(t, rt.Globals().Set(key, value.Number(1)))

	out, err = co.Resume(context.Background(), []value.Value{value.Number(21)})
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.Number(42)}, out)
	require.Equal(t, objects.ThreadDead, co.Status())
}

// S6: CallValue dispatches to a native function and rejects a
// bytecode-backed one, the boundary the excluded interpreter would sit
// behind.
func TestScenarioCallValueDispatchBoundary(t *testing.T) {
	rt := runtime.New(state.Options{})

	native := objects.NewNativeFunction(func(args []value.Value) ([]value.Value, error) {
		return []value.Value{value.Number(args[0].Number() + 1)}, nil
	})
	rt.GC.Register(native)

	out, err := rt.CallValue(value.FromGC(value.TagFunction, native), []value.Value{value.Number(41)})
	require.NoError(t, err)
	require.Equal(t, []value.Value{value.Number(42)}, out)

	proto := objects.NewProto()
	closure := objects.NewLuaFunction(proto, nil)
	rt.GC.Register(closure)

	_, err = rt.CallValue(value.FromGC(value.TagFunction, closure), nil)
	require.Error(t, err)
}
