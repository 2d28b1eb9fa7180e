// Copyright 2026 The Uvela Authors
// This file is part of uvela.

// Package vm layers protected-call unwinding and coroutine scheduling on
// top of package state: the pieces that depend on Go's goroutine and
// panic/recover primitives rather than on any GC or value representation
// concern, and so stay out of uvela-lib entirely.
package vm

import (
	"fmt"

	"github.com/luavela-go/uvela-lib/state"
)

// Protect runs fn and converts any panic it raises — most commonly a
// common.Memory.Realloc out-of-memory panic, or an explicit panic(*state.Error)
// raised by a native function — into a returned error, mirroring the
// original runtime's protected-call frames (§7).
func Protect(fn func()) (err error) {
	defer func() {
		if r := recover(); r == nil {
			return
		} else if e, ok := r.(*state.Error); ok {
			err = e
		} else if e, ok := r.(error); ok {
			err = state.NewError(state.ErrKindUnknown, "%s", e.Error())
		} else {
			err = state.NewError(state.ErrKindUnknown, "%v", r)
		}
	}()
	fn()
	return nil
}

// Call runs fn under Protect and additionally attaches chunk/line position
// to any *state.Error it produces, the shape a native function's call site
// needs once it has that information and Protect's caller did not.
func Call(chunkName string, line int, fn func()) error {
	err := Protect(fn)
	if err == nil {
		return nil
	}
	if se, ok := err.(*state.Error); ok {
		return se.At(chunkName, line)
	}
	return fmt.Errorf("%s:%d: %w", chunkName, line, err)
}
