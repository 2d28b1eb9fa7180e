// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package state

import (
	"fmt"

	"github.com/luavela-go/uvela-lib/gc"
)

// Metrics is a point-in-time snapshot of a GlobalState's resource usage,
// the concrete shape behind §6.6's External Interfaces metrics call.
//
// MemoryTotal, MemorySealed, StringsLive, StringsSealed, TableCount, and
// UserdataCount are live gauges: reading Metrics never changes them.
// MemoryAllocated, MemoryFreed, Steps, StrHashHit, and StrHashMiss are
// interval counters that reset to zero every time Metrics is called.
type Metrics struct {
	MemoryTotal     uint64
	MemoryAllocated uint64
	MemoryFreed     uint64
	MemorySealed    uint64

	StringsLive   int
	StringsSealed int
	TableCount    int
	UserdataCount int

	Steps gc.StepCounts

	StrHashHit  uint64
	StrHashMiss uint64

	GCPhase string
}

func (m Metrics) String() string {
	return fmt.Sprintf(
		"memory{total=%d allocated=%d freed=%d sealed=%d} "+
			"objects{strings=%d sealed_strings=%d tables=%d userdata=%d} "+
			"gc{phase=%s steps=%+v} strhash{hit=%d miss=%d}",
		m.MemoryTotal, m.MemoryAllocated, m.MemoryFreed, m.MemorySealed,
		m.StringsLive, m.StringsSealed, m.TableCount, m.UserdataCount,
		m.GCPhase, m.Steps, m.StrHashHit, m.StrHashMiss,
	)
}
