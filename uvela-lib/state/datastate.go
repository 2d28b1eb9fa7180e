// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package state

import (
	"github.com/google/uuid"

	"github.com/luavela-go/uvela-lib/gcobj"
)

// DataState is a sealed, read-only object graph that one VM produced and
// any number of other VMs can mount. Its ID lets an embedder confirm two
// VMs observing "the same" data state are not looking at two independent
// seals of equal-looking content (SPEC_FULL's "data state instance ID").
type DataState struct {
	ID   uuid.UUID
	Root gcobj.Object
}

// NewDataState wraps an already-sealed root in a DataState, assigning it
// a fresh identity. Callers are expected to have sealed root (via package
// seal) before reaching this constructor; NewDataState does not re-check
// sealedness itself, since a GlobalState's Seal method is the only
// intended caller.
func NewDataState(root gcobj.Object) *DataState {
	return &DataState{ID: newUUID(), Root: root}
}

func newUUID() uuid.UUID {
	id, err := uuid.NewRandom()
	if err != nil {
		// uuid.NewRandom only fails if the system's entropy source
		// itself fails to read, which a process cannot meaningfully
		// recover from.
		panic(err)
	}
	return id
}
