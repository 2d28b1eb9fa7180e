// Copyright 2026 The Uvela Authors
// This file is part of uvela.

// Package objects implements the remaining GC-managed object kinds beyond
// string and table: upvalues, threads, prototypes, functions, traces,
// cdata, and userdata. Each embeds gcobj.Header and implements Traverse so
// the collector can walk its references without a type switch living
// outside this package.
package objects

import (
	"github.com/luavela-go/uvela-lib/gcobj"
	"github.com/luavela-go/uvela-lib/value"
)

// Marker is the callback the collector passes to Traverse; implementations
// call it once per outgoing reference to mark or re-queue that child.
type Marker interface {
	Mark(v value.Value)
	MarkObject(o gcobj.Object)
}

// Traversable is implemented by every non-string, non-table GC object so
// package gc can walk the heap without importing package table or this
// package's concrete types individually.
type Traversable interface {
	gcobj.Object
	Traverse(m Marker)
}

// Upvalue is a reference cell shared between a closure's captured variable
// and the stack slot it was opened from, closing over its own copy once
// the stack frame that owned the slot returns.
type Upvalue struct {
	gcobj.Header
	val    value.Value
	closed bool
}

func NewUpvalue() *Upvalue {
	u := &Upvalue{}
	u.Init(gcobj.TagUpvalue)
	return u
}

func (u *Upvalue) Get() value.Value   { return u.val }
func (u *Upvalue) Set(v value.Value)  { u.val = v }
func (u *Upvalue) Close()             { u.closed = true }
func (u *Upvalue) IsClosed() bool     { return u.closed }
func (u *Upvalue) Traverse(m Marker)  { m.Mark(u.val) }

// Proto is a compiled function prototype: the bytecode and constant pool
// shared by every closure instantiated from it. Constants reference other
// GC objects (nested prototypes, interned strings) but never values that
// change after compilation, so Proto itself carries no write barrier
// concerns beyond the one-time construction the loader performs.
type Proto struct {
	gcobj.Header
	Code      []uint32
	Constants []value.Value
	NumParams uint8
	IsVararg  bool
	ChunkName string
	LineDefined int
}

func NewProto() *Proto {
	p := &Proto{}
	p.Init(gcobj.TagProto)
	return p
}

func (p *Proto) Traverse(m Marker) {
	for _, c := range p.Constants {
		m.Mark(c)
	}
}

// Function is a closure: a prototype plus the upvalues it captured, or
// (for a C/Go-implemented builtin) a native function value with no
// prototype at all.
type Function struct {
	gcobj.Header
	Proto    *Proto // nil for a native function
	Upvalues []*Upvalue
	Native   func(args []value.Value) ([]value.Value, error)
}

func NewLuaFunction(proto *Proto, upvalues []*Upvalue) *Function {
	f := &Function{Proto: proto, Upvalues: upvalues}
	f.Init(gcobj.TagFunction)
	return f
}

func NewNativeFunction(fn func(args []value.Value) ([]value.Value, error)) *Function {
	f := &Function{Native: fn}
	f.Init(gcobj.TagFunction)
	return f
}

func (f *Function) IsNative() bool { return f.Native != nil }

func (f *Function) Traverse(m Marker) {
	if f.Proto != nil {
		m.MarkObject(f.Proto)
	}
	for _, uv := range f.Upvalues {
		m.MarkObject(uv)
	}
}

// Userdata wraps an opaque, GC-managed Go value with an optional
// metatable, distinct from LightUserdata (value.Value's non-GC pointer
// payload) in that Userdata participates in collection and can carry
// finalizer and metatable state.
type Userdata struct {
	gcobj.Header
	Payload   any
	Metatable gcobj.Object // *table.Table, kept as an interface to avoid an import cycle
}

func NewUserdata(payload any) *Userdata {
	u := &Userdata{Payload: payload}
	u.Init(gcobj.TagUserdata)
	return u
}

func (u *Userdata) Traverse(m Marker) {
	if u.Metatable != nil {
		m.MarkObject(u.Metatable)
	}
}

// CData wraps a foreign-data payload (a view over a []byte or a fixed-size
// scalar) with no fields of its own to traverse — its bytes never hold a
// GC reference, matching the original runtime's treatment of fixed-size
// cdata.
type CData struct {
	gcobj.Header
	TypeName string
	Bytes    []byte
}

func NewCData(typeName string, bytes []byte) *CData {
	c := &CData{TypeName: typeName, Bytes: bytes}
	c.Init(gcobj.TagCData)
	return c
}

func (c *CData) Traverse(Marker) {}

// Trace stands in for a compiled trace record; this port has no JIT, so a
// Trace only exists to let code exercise the full ORDER LJ_T tag space
// (e.g. a disassembler-style tool inspecting every possible Value tag).
type Trace struct {
	gcobj.Header
	ID uint32
}

func NewTrace(id uint32) *Trace {
	t := &Trace{ID: id}
	t.Init(gcobj.TagTrace)
	return t
}

func (t *Trace) Traverse(Marker) {}
