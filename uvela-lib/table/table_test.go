// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package table

import (
	"fmt"
	"testing"

	"github.com/luavela-go/uvela-lib/value"
	"github.com/stretchr/testify/require"
)

func TestArrayPartFastPath(t *testing.T) {
	tbl := New(0, 0)
	require.NoError(t, tbl.Set(value.Number(1), value.Number(10)))
	require.NoError(t, tbl.Set(value.Number(2), value.Number(20)))
	require.Equal(t, value.Number(10), tbl.Get(value.Number(1)))
	require.Equal(t, 2, tbl.Len())
}

func TestHashPartNonSequentialKeys(t *testing.T) {
	tbl := New(0, 0)
	require.NoError(t, tbl.Set(value.Number(100), value.Number(1)))
	require.NoError(t, tbl.Set(value.Number(-1), value.Number(2)))
	require.Equal(t, value.Number(1), tbl.Get(value.Number(100)))
	require.Equal(t, value.Number(2), tbl.Get(value.Number(-1)))
	require.Equal(t, 0, tbl.Len())
}

func TestSetNilDeletesLogically(t *testing.T) {
	tbl := New(0, 0)
	require.NoError(t, tbl.Set(value.Number(100), value.Number(1)))
	require.NoError(t, tbl.Set(value.Number(100), value.Nil))
	require.True(t, tbl.Get(value.Number(100)).IsNil())
}

func TestSetRejectsNilAndNaNKeys(t *testing.T) {
	tbl := New(0, 0)
	require.Error(t, tbl.Set(value.Nil, value.Number(1)))
	require.ErrorIs(t, tbl.Set(value.Number(nanValue()), value.Number(1)), ErrNaNKey)
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func TestManyKeysTriggersRehashAndBrentVariation(t *testing.T) {
	tbl := New(0, 0)
	n := 200
	for i := 0; i < n; i++ {
		require.NoError(t, tbl.Set(value.Number(float64(i*2+1)), value.Number(float64(i))))
	}
	for i := 0; i < n; i++ {
		require.Equal(t, value.Number(float64(i)), tbl.Get(value.Number(float64(i*2+1))))
	}
}

func TestNextIteratesAllLiveEntries(t *testing.T) {
	tbl := New(0, 0)
	require.NoError(t, tbl.Set(value.Number(1), value.Number(1)))
	require.NoError(t, tbl.Set(value.Number(2), value.Number(2)))
	require.NoError(t, tbl.Set(value.Number(50), value.Number(50)))

	seen := map[float64]float64{}
	k := value.Nil
	for {
		nk, nv, ok, err := tbl.Next(k)
		require.NoError(t, err)
		if !ok {
			break
		}
		seen[nk.Number()] = nv.Number()
		k = nk
	}
	require.Equal(t, map[float64]float64{1: 1, 2: 2, 50: 50}, seen)
}

func TestSealedAndImmutableRejectMutation(t *testing.T) {
	tbl := New(0, 0)
	tbl.SetMark(0x40) // Immutable
	require.ErrorIs(t, tbl.Set(value.Number(1), value.Number(1)), ErrImmutable)

	tbl2 := New(0, 0)
	tbl2.SetMark(0x80) // Sealed
	require.ErrorIs(t, tbl2.Set(value.Number(1), value.Number(1)), ErrSealed)
}

func TestDeepCopyIsIndependent(t *testing.T) {
	inner := New(0, 0)
	require.NoError(t, inner.Set(value.Number(1), value.Number(99)))

	outer := New(0, 0)
	require.NoError(t, outer.Set(value.Number(1), value.FromGC(value.TagTable, inner)))

	copied := outer.DeepCopy()
	innerCopy := copied.Get(value.Number(1)).GC().(*Table)
	require.NotSame(t, inner, innerCopy)

	require.NoError(t, innerCopy.Set(value.Number(1), value.Number(1)))
	require.Equal(t, value.Number(99), inner.Get(value.Number(1)), "mutating the copy must not affect the original")
}

func TestKeysValuesAndToSet(t *testing.T) {
	tbl := New(0, 0)
	for i := 1; i <= 5; i++ {
		require.NoError(t, tbl.Set(value.Number(float64(i)), value.Number(float64(i*10))))
	}
	require.Len(t, tbl.Keys(), 5)
	require.Len(t, tbl.Values(), 5)

	set := tbl.ToSet()
	require.Equal(t, value.True(), set.Get(value.Number(10)))
	require.True(t, set.Get(value.Number(999)).IsNil())
}

func TestMetatableNoMMCacheInvalidatesOnChange(t *testing.T) {
	tbl := New(0, 0)
	tbl.SetNoMM(3)
	require.True(t, tbl.NoMM(3))
	require.NoError(t, tbl.SetMetatable(New(0, 0)))
	require.False(t, tbl.NoMM(3), "assigning a metatable must reset the negative cache")
}

func TestSetAloneInvalidatesNoMMCache(t *testing.T) {
	tbl := New(0, 0)
	tbl.SetNoMM(0)
	require.True(t, tbl.NoMM(0))
	require.NoError(t, tbl.Set(value.Number(1), value.Number(1)))
	require.False(t, tbl.NoMM(0), "any store, not just SetMetatable, must reset the negative cache")
}

func TestSetNotifiesBarrierHookOnEveryMutationPath(t *testing.T) {
	tbl := New(0, 0)
	calls := 0
	tbl.SetBarrierHook(func(got *Table) {
		calls++
		require.Same(t, tbl, got)
	})

	require.NoError(t, tbl.Set(value.Number(1), value.Number(1))) // array append
	require.NoError(t, tbl.Set(value.Number(1), value.Number(2))) // array in-place
	require.NoError(t, tbl.Set(value.Number(100), value.Number(3))) // hash insert
	require.NoError(t, tbl.SetMetatable(New(0, 0)))

	require.Equal(t, 4, calls)
}

func TestFuzzInsertOverwriteConsistency(t *testing.T) {
	tbl := New(0, 0)
	want := map[string]float64{}
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("k%d", i%17)
		val := float64(i)
		require.NoError(t, tbl.Set(stringKey(key), value.Number(val)))
		want[key] = val
	}
	for k, v := range want {
		require.Equal(t, value.Number(v), tbl.Get(stringKey(k)))
	}
}

// stringKey builds a throwaway light-userdata-tagged stand-in keyed by an
// FNV-1a hash of the string's bytes so table tests don't need the strintern
// package.
func stringKey(s string) value.Value {
	return value.LightUserdata(uint64(hashBytes(s)))
}

func hashBytes(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
