// Copyright 2026 The Uvela Authors
// This file is part of uvela.

// Package runtime exposes the External Interfaces a host embedding the
// engine calls: table indexing with metamethod dispatch, native function
// invocation, and the GC/seal/metrics operations package state already
// implements directly. It is deliberately thin — a getter/setter layer
// over GlobalState, in the same spirit as the teacher's own read-only
// state-reader wrappers — because bytecode compilation and dispatch are
// out of scope (SPEC_FULL §1 Non-goals): CallValue can only invoke native
// (Go-implemented) functions, never a Proto-backed closure.
package runtime

import (
	"github.com/luavela-go/uvela-lib/objects"
	"github.com/luavela-go/uvela-lib/state"
	"github.com/luavela-go/uvela-lib/table"
	"github.com/luavela-go/uvela-lib/value"
)

const maxIndexChainDepth = 100

// Runtime wraps one VM's GlobalState with the indexing and call semantics
// Lua code expects but the lower uvela-lib layers deliberately don't know
// about (they only implement raw table access).
type Runtime struct {
	*state.GlobalState
}

// New constructs a Runtime around a freshly built GlobalState.
func New(opts state.Options) *Runtime {
	return &Runtime{GlobalState: state.New(opts)}
}

// Index implements indexed read access t[key] including the __index
// metamethod chain: a missing key falls through to the metatable's
// __index, which may itself be a table (repeat) or a function (call it
// with t and key). The chain is bounded to guard against a metatable
// cycle a misbehaving embedder constructed directly.
func (rt *Runtime) Index(t *table.Table, key value.Value) (value.Value, error) {
	indexKeyVal, err := rt.mmKey(state.MMIndex)
	if err != nil {
		return value.Nil, err
	}

	cur := t
	for depth := 0; depth < maxIndexChainDepth; depth++ {
		v := cur.Get(key)
		if !v.IsNil() {
			return v, nil
		}
		mt := cur.Metatable()
		if mt == nil || mt.NoMM(indexMMBit) {
			return value.Nil, nil
		}
		idx := mt.Get(indexKeyVal)
		if idx.IsNil() {
			mt.SetNoMM(indexMMBit)
			return value.Nil, nil
		}
		if nextTable, ok := idx.GC().(*table.Table); ok {
			cur = nextTable
			continue
		}
		if fn, ok := idx.GC().(*objects.Function); ok {
			results, err := rt.CallValue(value.FromGC(value.TagFunction, fn), []value.Value{value.FromGC(value.TagTable, cur), key})
			if err != nil {
				return value.Nil, err
			}
			if len(results) == 0 {
				return value.Nil, nil
			}
			return results[0], nil
		}
		return value.Nil, state.NewError(state.ErrKindIndexNonIndexable, "__index is neither a table nor a function")
	}
	return value.Nil, state.NewError(state.ErrKindIndexNonIndexable, "'__index' chain too long; possible loop")
}

// NewIndex implements indexed write access t[key] = val including the
// __newindex metamethod chain, mirroring Index's structure.
func (rt *Runtime) NewIndex(t *table.Table, key, val value.Value) error {
	newIndexKeyVal, err := rt.mmKey(state.MMNewIndex)
	if err != nil {
		return err
	}

	cur := t
	for depth := 0; depth < maxIndexChainDepth; depth++ {
		if !cur.Get(key).IsNil() {
			return cur.Set(key, val)
		}
		mt := cur.Metatable()
		if mt == nil || mt.NoMM(newindexMMBit) {
			return cur.Set(key, val)
		}
		ni := mt.Get(newIndexKeyVal)
		if ni.IsNil() {
			mt.SetNoMM(newindexMMBit)
			return cur.Set(key, val)
		}
		if nextTable, ok := ni.GC().(*table.Table); ok {
			cur = nextTable
			continue
		}
		if fn, ok := ni.GC().(*objects.Function); ok {
			_, err := rt.CallValue(value.FromGC(value.TagFunction, fn), []value.Value{value.FromGC(value.TagTable, cur), key, val})
			return err
		}
		return state.NewError(state.ErrKindIndexNonIndexable, "__newindex is neither a table nor a function")
	}
	return state.NewError(state.ErrKindIndexNonIndexable, "'__newindex' chain too long; possible loop")
}

// CallValue invokes fn with args. Only native (Go-backed) functions can
// actually run; a Proto-backed Lua closure has nothing to dispatch to
// without a bytecode interpreter, which this engine does not implement.
func (rt *Runtime) CallValue(fn value.Value, args []value.Value) ([]value.Value, error) {
	f, ok := fn.GC().(*objects.Function)
	if !ok {
		return nil, state.NewError(state.ErrKindCallNonFunction, "attempt to call a %s value", fn.Tag())
	}
	if !f.IsNative() {
		return nil, state.NewError(state.ErrKindCallNonFunction, "cannot dispatch a bytecode closure without a compiler/interpreter")
	}
	return f.Native(args)
}

// mmKey interns name and wraps it as the string Value every metatable
// lookup keys on, so "__index" in a metatable built by Lua-facing code
// and "__index" looked up here are always the same interned string.
func (rt *Runtime) mmKey(name string) (value.Value, error) {
	s, err := rt.InternString(name)
	if err != nil {
		return value.Nil, err
	}
	return value.FromGC(value.TagString, s), nil
}

// Bit positions within table.Table's negative metamethod cache; they must
// match state.MetamethodNames' ordering for SetNoMM/NoMM to mean the same
// metamethod everywhere a table is consulted.
const (
	indexMMBit    = 0
	newindexMMBit = 1
)
