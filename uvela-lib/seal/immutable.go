// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package seal

import (
	"github.com/pkg/errors"

	"github.com/luavela-go/uvela-lib/gcobj"
	"github.com/luavela-go/uvela-lib/table"
)

// ErrAlreadySealed is returned when Immutable is called on a table that is
// already sealed — sealing is strictly stronger than immutability, so
// marking a sealed table immutable again would be meaningless.
var ErrAlreadySealed = errors.New("seal: table is already sealed")

// Immutable freezes t and everything reachable from it through
// type-specific traversal: no further Set call will succeed against any of
// them, whether it targets an existing key or a new one (spec.md §4.6).
// A thread, upvalue, trace, cdata, or userdata anywhere in the reachable
// set aborts the whole transaction with ErrImmutableBadType and leaves
// every object exactly as it was found, mirroring Seal's all-or-nothing
// transactional shape.
func Immutable(t *table.Table) error {
	if t.HasMark(gcobj.Sealed) {
		return ErrAlreadySealed
	}

	w := &walker{visited: map[gcobj.Object]bool{}}
	if err := w.mark(t, rejectImmutableBadType); err != nil {
		w.rollback()
		return err
	}
	w.commit(nil, false)
	return nil
}
