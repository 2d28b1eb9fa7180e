// Copyright 2026 The Uvela Authors
// This file is part of uvela.

// Package value implements the tagged Value every VM register, table slot,
// and upvalue holds. The original runtime NaN-boxes a tag and a payload
// into one 64-bit word using raw pointer bits; Go gives up that packing to
// stay unsafe-free (SPEC_FULL §3.1), but keeps every functional invariant
// ORDER LJ_T establishes — tag ordering, truthiness, GC-managed range
// checks — by delegating tag semantics to package gcobj.
package value

import (
	"math"

	"github.com/luavela-go/uvela-lib/gcobj"
)

// Tag re-exports gcobj.Tag so callers rarely need to import gcobj directly.
type Tag = gcobj.Tag

const (
	TagNil           = gcobj.TagNil
	TagFalse         = gcobj.TagFalse
	TagTrue          = gcobj.TagTrue
	TagLightUserdata = gcobj.TagLightUserdata
	TagString        = gcobj.TagString
	TagUpvalue       = gcobj.TagUpvalue
	TagThread        = gcobj.TagThread
	TagProto         = gcobj.TagProto
	TagFunction      = gcobj.TagFunction
	TagTrace         = gcobj.TagTrace
	TagCData         = gcobj.TagCData
	TagTable         = gcobj.TagTable
	TagUserdata      = gcobj.TagUserdata
	TagNumber        = gcobj.TagNumber
)

// Value is a tagged union over every tag in gcobj's tag space (nil, the
// two booleans, light userdata, the nine GC-managed kinds, and numbers).
// The zero Value is Nil.
type Value struct {
	tag gcobj.Tag
	num float64
	gc  gcobj.Object
	lud uint64
}

// Nil is the zero Value; kept as a named value for readability at call
// sites rather than writing Value{} everywhere.
var Nil = Value{tag: TagNil}

func False() Value { return Value{tag: TagFalse} }
func True() Value  { return Value{tag: TagTrue} }

// Bool returns False() or True() according to b.
func Bool(b bool) Value {
	if b {
		return True()
	}
	return False()
}

// Number wraps a float64, including NaN and both infinities; table keys
// reject NaN separately (table.Set), not this constructor.
func Number(n float64) Value { return Value{tag: TagNumber, num: n} }

// LightUserdata wraps an opaque, non-GC-managed pointer-sized payload.
func LightUserdata(p uint64) Value { return Value{tag: TagLightUserdata, lud: p} }

// FromGC wraps any GC-managed object behind its declared tag. Callers pass
// the object's own tag (o.GCHeader().Tag()) rather than re-deriving it so
// this constructor never needs a type switch over every object kind.
func FromGC(tag gcobj.Tag, o gcobj.Object) Value {
	if !tag.IsGCManaged() {
		panic("value: FromGC called with a non-GC-managed tag")
	}
	return Value{tag: tag, gc: o}
}

func (v Value) Tag() gcobj.Tag { return v.tag }

func (v Value) IsNil() bool   { return v.tag == TagNil }
func (v Value) IsFalse() bool { return v.tag == TagFalse }
func (v Value) IsTrue() bool  { return v.tag == TagTrue }

// IsTruthy reports whether v is anything but nil and false, matching
// LJ_TISTRUECOND's cutoff.
func (v Value) IsTruthy() bool { return !v.tag.IsFalsy() }

func (v Value) IsPrimitive() bool      { return v.tag.IsPrimitive() }
func (v Value) IsGCManaged() bool      { return v.tag.IsGCManaged() }
func (v Value) IsTableOrUserdata() bool { return v.tag.IsTableOrUserdata() }
func (v Value) IsNumber() bool         { return v.tag == TagNumber }
func (v Value) IsLightUserdata() bool  { return v.tag == TagLightUserdata }

// Number panics if v does not hold a number; callers check IsNumber first,
// mirroring the original's "only check the tag once" calling convention.
func (v Value) Number() float64 {
	if v.tag != TagNumber {
		panic("value: Number called on a non-number Value")
	}
	return v.num
}

func (v Value) LightUserdata() uint64 {
	if v.tag != TagLightUserdata {
		panic("value: LightUserdata called on a non-lightuserdata Value")
	}
	return v.lud
}

// GC returns the GC-managed payload, or nil if v does not carry one.
func (v Value) GC() gcobj.Object {
	if !v.tag.IsGCManaged() {
		return nil
	}
	return v.gc
}

// RawEqual implements Lua's raw equality: no metamethods, tag must match
// exactly (a number and a string that "look the same" are never equal),
// and NaN is unequal to itself like any IEEE-754 comparison.
func (v Value) RawEqual(other Value) bool {
	if v.tag != other.tag {
		return false
	}
	switch v.tag {
	case TagNumber:
		return v.num == other.num
	case TagLightUserdata:
		return v.lud == other.lud
	default:
		if v.tag.IsGCManaged() {
			return v.gc == other.gc
		}
		return true // nil/false/true carry no payload beyond the tag
	}
}

// IsNaN reports whether v is a number holding NaN; table keys use this to
// reject NaN without forcing every caller to import math.
func (v Value) IsNaN() bool { return v.tag == TagNumber && math.IsNaN(v.num) }
