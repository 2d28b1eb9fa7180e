// Copyright 2026 The Uvela Authors
// This file is part of uvela.

// Package gcobj defines the header every garbage-collected object embeds
// and the tag space that orders them, mirroring lj_obj.h's ORDER LJ_T and
// lj_gc.h's tri-color bookkeeping macros.
package gcobj

// Tag identifies the concrete type of a GC-managed object. Values follow
// ORDER LJ_T: primitives first, then GC-managed kinds, with the numeric
// tag reserved last so range comparisons against it (IsNumber) and against
// the GC-managed span (IsGCManaged) stay single comparisons.
type Tag uint8

const (
	TagNil Tag = iota
	TagFalse
	TagTrue
	TagLightUserdata

	TagString
	TagUpvalue
	TagThread
	TagProto
	TagFunction
	TagTrace
	TagCData
	TagTable
	TagUserdata

	TagNumber
)

// IsPrimitive reports whether t is one of nil/false/true/light-userdata —
// the four tags carrying no GC-managed payload and no float64 payload.
func (t Tag) IsPrimitive() bool { return t <= TagLightUserdata }

// IsFalsy reports whether a value solely identified by t (i.e. nil or
// false) is falsy; every other tag, including true, is truthy. Mirrors
// LJ_TISTRUECOND's use as the cutoff for "falsy" tags.
func (t Tag) IsFalsy() bool { return t <= TagFalse }

// IsGCManaged reports whether t carries a gcobj.Object payload.
func (t Tag) IsGCManaged() bool { return t >= TagString && t < TagNumber }

// IsTableOrUserdata reports whether t is one of the two tags that carry a
// metatable, mirroring LJ_TISTABUD's range check.
func (t Tag) IsTableOrUserdata() bool { return t == TagTable || t == TagUserdata }

// IsNumber reports whether t identifies the float64 payload.
func (t Tag) IsNumber() bool { return t == TagNumber }

func (t Tag) String() string {
	switch t {
	case TagNil:
		return "nil"
	case TagFalse:
		return "false"
	case TagTrue:
		return "true"
	case TagLightUserdata:
		return "lightuserdata"
	case TagString:
		return "string"
	case TagUpvalue:
		return "upvalue"
	case TagThread:
		return "thread"
	case TagProto:
		return "proto"
	case TagFunction:
		return "function"
	case TagTrace:
		return "trace"
	case TagCData:
		return "cdata"
	case TagTable:
		return "table"
	case TagUserdata:
		return "userdata"
	case TagNumber:
		return "number"
	default:
		return "invalid"
	}
}

// Object is implemented by every heap-allocated, GC-managed type: strings,
// upvalues, threads, prototypes, functions, traces, cdata, tables, and
// userdata. It is deliberately minimal — the GC only ever needs to reach a
// value's header to chain it into a color list or read/flip its mark bits;
// type-specific traversal lives behind the separate Traversable interface
// in package gc so that gcobj itself never has to import its callers.
type Object interface {
	GCHeader() *Header
}

// Header is the common prefix every GC object embeds. Embedding promotes
// GCHeader automatically for any type that declares
//
//	func (o *T) GCHeader() *Header { return &o.Header }
type Header struct {
	next   Object
	marked uint8
	tag    Tag
}

// Init sets the header's tag and clears its mark bits. Callers invoke it
// once, right after allocating the object that embeds this Header.
func (h *Header) Init(tag Tag) {
	h.tag = tag
	h.marked = 0
	h.next = nil
}

func (h *Header) GCHeader() *Header { return h }

func (h *Header) Tag() Tag { return h.tag }

// Next returns the next object in whichever intrusive list currently owns
// this header (the root list, a gray list, or an allocation list).
func (h *Header) Next() Object { return h.next }

func (h *Header) SetNext(o Object) { h.next = o }

func (h *Header) Marked() uint8 { return h.marked }

func (h *Header) SetMarked(m uint8) { h.marked = m }

func (h *Header) HasMark(bit uint8) bool { return h.marked&bit != 0 }

func (h *Header) SetMark(bit uint8) { h.marked |= bit }

func (h *Header) ClearMark(bit uint8) { h.marked &^= bit }

// IsWhite reports whether h is colored with either white bit. It does not
// take "current white" into account; use IsDead for that.
func (h *Header) IsWhite() bool { return h.marked&Whites != 0 }

func (h *Header) IsBlack() bool { return h.marked&Black != 0 }

// IsGray is true for neither white nor black — on the gray (to-be-scanned)
// worklist without its own persistent color bit, matching the original
// collector's use of list membership, not a mark bit, to track gray.
func (h *Header) IsGray() bool { return h.marked&Colors == 0 }

// IsDead reports whether h is white with the color that identifies
// unreachable objects in the sweep currently in progress.
func (h *Header) IsDead(currentWhite uint8) bool { return h.marked&currentWhite&Whites != 0 }

// MakeWhite clears h's color bits and paints it with the given white bit,
// preserving non-color bits (fixed/sealed/immutable/weak/finalized).
func (h *Header) MakeWhite(otherWhite uint8) {
	h.marked = (h.marked &^ Colors) | otherWhite
}

// Black2Gray demotes a black object back to gray by clearing its black bit,
// used by the backward write barrier when a black table or userdata
// acquires a reference to a white object.
func (h *Header) Black2Gray() { h.marked &^= Black }

// FlipWhite toggles which white bit h carries between the two whites,
// mirroring lj_gc.h's otherwhite flip used when an object is freshly
// allocated during the propagate phase.
func (h *Header) FlipWhite() {
	h.marked ^= Whites
}
