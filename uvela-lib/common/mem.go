// Copyright 2026 The Uvela Authors
// This file is part of uvela.
//
// uvela is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package common holds the leaf-level, dependency-free pieces the rest of
// the runtime is built on: the pluggable memory manager and the pluggable
// string hash function.
package common

import (
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"

	"github.com/luavela-go/uvela-lib/common/safemath"
)

// ErrOutOfMemory is the sentinel wrapped by every failed TryRealloc or
// Realloc; callers match on it with errors.Is. String interning and table
// growth allocate on the Go heap directly and do not go through Memory.
var ErrOutOfMemory = errors.New("out of memory")

// AllocFunc is the realloc-only allocation primitive §4.1 specifies:
// newSize == 0 frees ptr, ptr == nil allocates fresh, otherwise ptr is
// resized in place or replaced. Implementations must not retain ptr past
// the call.
type AllocFunc func(ptr []byte, oldSize, newSize int) ([]byte, error)

// DefaultAllocFunc is a slice-backed allocator: it never fails on its own,
// so Memory.Budget is the only way tests can force an OOM path through it.
func DefaultAllocFunc(ptr []byte, oldSize, newSize int) ([]byte, error) {
	if newSize == 0 {
		return nil, nil
	}
	if ptr != nil && newSize <= cap(ptr) {
		return ptr[:newSize], nil
	}
	buf := make([]byte, newSize)
	copy(buf, ptr[:min(oldSize, len(ptr))])
	return buf, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// PanicHook is invoked when an allocation fails with no protected frame
// left to catch the unwind — the process-exit path of §7's fatal errors.
type PanicHook func(err error)

// Metrics is a point-in-time snapshot of the byte counters §6.6 exposes.
// Allocated and Freed reset to zero every time Memory.Snapshot is called.
type Metrics struct {
	Total     uint64
	Allocated uint64
	Freed     uint64
}

func (m Metrics) String() string {
	return fmt.Sprintf("total=%s allocated=%s freed=%s",
		datasize.ByteSize(m.Total).HR(),
		datasize.ByteSize(m.Allocated).HR(),
		datasize.ByteSize(m.Freed).HR())
}

// Memory is the global state's memory manager: it wraps a pluggable
// AllocFunc with the total/allocated/freed accounting §4.1 requires and
// turns allocator failures into either an error (TryRealloc, used before
// any thread exists) or a panic routed through the hook (Realloc, used by
// mutators once a protected-call stack exists).
type Memory struct {
	alloc AllocFunc
	hook  PanicHook

	// Budget, if non-zero, caps Total; exceeding it is the only way the
	// default allocator can be made to report out-of-memory, which is
	// what deterministic OOM-path tests rely on.
	Budget uint64

	total     uint64
	allocated uint64
	freed     uint64
	sealed    uint64
}

// NewMemory constructs a memory manager. A nil alloc defaults to
// DefaultAllocFunc.
func NewMemory(alloc AllocFunc, hook PanicHook) *Memory {
	if alloc == nil {
		alloc = DefaultAllocFunc
	}
	return &Memory{alloc: alloc, hook: hook}
}

// TryRealloc is the nothrow bootstrap entry: safe to call before any
// thread (and hence any protected frame) exists.
func (m *Memory) TryRealloc(ptr []byte, oldSize, newSize int) ([]byte, error) {
	if newSize > oldSize {
		grown := uint64(newSize - oldSize)
		if m.Budget != 0 {
			if sum, overflow := safemath.SafeAdd(m.total, grown); overflow || sum > m.Budget {
				return nil, errors.Wrapf(ErrOutOfMemory, "budget %d exceeded by grow of %d bytes (total=%d)", m.Budget, grown, m.total)
			}
		}
	}
	out, err := m.alloc(ptr, oldSize, newSize)
	if err != nil {
		return nil, errors.Wrap(ErrOutOfMemory, err.Error())
	}
	if newSize > oldSize {
		grown := uint64(newSize - oldSize)
		m.total += grown
		m.allocated += grown
	} else if oldSize > newSize {
		shrunk := uint64(oldSize - newSize)
		m.total -= shrunk
		m.freed += shrunk
	}
	return out, nil
}

// Realloc is the throwing entry mutators use once a thread exists: it
// never returns an error to its caller, matching §4.1's "never returns
// null" contract. On failure it invokes the panic hook, then panics so a
// protected call (core/vm) can recover it.
func (m *Memory) Realloc(ptr []byte, oldSize, newSize int) []byte {
	out, err := m.TryRealloc(ptr, oldSize, newSize)
	if err != nil {
		if m.hook != nil {
			m.hook(err)
		}
		panic(err)
	}
	return out
}

// Sealed moves size bytes from the Total pool into the Sealed bucket,
// matching §4.7's "sealed bytes are subtracted from total and added to
// sealed" and I9's `gc_total + gc_sealed == sizeof(all allocated)`.
func (m *Memory) Sealed(size uint64) {
	m.total -= size
	m.sealed += size
}

// Unsealed reverses Sealed, returning bytes to the Total pool on VM
// shutdown (§4.7's unsealing, never exposed to user code).
func (m *Memory) Unsealed(size uint64) {
	m.total += size
	m.sealed -= size
}

// SealedBytes reports the current sealed-bucket total without resetting
// anything, surfaced through state.Metrics' gc_sealed (§6.6).
func (m *Memory) SealedBytes() uint64 { return m.sealed }

// Snapshot returns the current metrics and resets the since-last-read
// counters, matching §6.6's "all counters reset on read".
func (m *Memory) Snapshot() Metrics {
	s := Metrics{Total: m.total, Allocated: m.allocated, Freed: m.freed}
	m.allocated, m.freed = 0, 0
	return s
}

// Total reports live bytes without resetting anything.
func (m *Memory) Total() uint64 { return m.total }
