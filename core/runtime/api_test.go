// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package runtime

import (
	"testing"

	"github.com/luavela-go/uvela-lib/objects"
	"github.com/luavela-go/uvela-lib/state"
	"github.com/luavela-go/uvela-lib/value"
	"github.com/stretchr/testify/require"
)

func strKey(t *testing.T, rt *Runtime, s string) value.Value {
	t.Helper()
	interned, err := rt.InternString(s)
	require.NoError(t, err)
	return value.FromGC(value.TagString, interned)
}

func TestIndexFallsThroughToMetatableFunction(t *testing.T) {
	rt := New(state.Options{})
	base := rt.NewTable(0, 0)
	mt := rt.NewTable(0, 0)

	called := false
	fn := objects.NewNativeFunction(func(args []value.Value) ([]value.Value, error) {
		called = true
		return []value.Value{value.Number(99)}, nil
	})
	rt.GC.Register(fn)
	require.NoError(t, mt.Set(strKey(t, rt, "__index"), value.FromGC(value.TagFunction, fn)))
	require.NoError(t, base.SetMetatable(mt))

	v, err := rt.Index(base, strKey(t, rt, "missing"))
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, value.Number(99), v)
}

func TestIndexReturnsRawValueWithoutConsultingMetatable(t *testing.T) {
	rt := New(state.Options{})
	base := rt.NewTable(0, 0)
	require.NoError(t, base.Set(strKey(t, rt, "x"), value.Number(1)))

	v, err := rt.Index(base, strKey(t, rt, "x"))
	require.NoError(t, err)
	require.Equal(t, value.Number(1), v)
}

func TestNewIndexRejectsNonFunctionNonTableHandler(t *testing.T) {
	rt := New(state.Options{})
	base := rt.NewTable(0, 0)
	mt := rt.NewTable(0, 0)
	require.NoError(t, mt.Set(strKey(t, rt, "__newindex"), value.Number(1)))
	require.NoError(t, base.SetMetatable(mt))

	err := rt.NewIndex(base, strKey(t, rt, "k"), value.Number(1))
	require.Error(t, err)
}

func TestCallValueRejectsBytecodeClosure(t *testing.T) {
	rt := New(state.Options{})
	proto := objects.NewProto()
	fn := objects.NewLuaFunction(proto, nil)
	rt.GC.Register(fn)

	_, err := rt.CallValue(value.FromGC(value.TagFunction, fn), nil)
	require.Error(t, err)
}
