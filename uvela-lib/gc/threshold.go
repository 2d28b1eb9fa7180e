// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package gc

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// ErrThresholdOverflow is returned when a threshold computation would
// overflow a uint64 once converted back down from the 256-bit
// intermediate, which in practice only happens if Policy is misconfigured
// with an absurd percentage.
var ErrThresholdOverflow = errors.New("gc: threshold computation overflowed uint64")

// Policy governs when an incremental cycle starts and how much work each
// Step performs, mirroring the original collector's gcpause/gcstepmul
// tunables. The arithmetic is carried in 256-bit width (the same
// overflow-checked pattern the chain's excess-blob-gas calculation uses)
// because LiveBytes is attacker-influenced — a script can grow tables and
// strings arbitrarily — so the multiply that scales it must never wrap
// silently into a tiny threshold that starves the collector.
type Policy struct {
	// PausePercent controls how much the heap must grow, relative to the
	// live set measured at the end of the last cycle, before the next
	// cycle starts. 200 means "wait until the heap has doubled."
	PausePercent uint64
	// StepMulPercent scales how many bytes of work one Step call performs
	// per byte allocated since the last step. 100 means "roughly
	// proportional pacing"; higher values finish cycles faster at the
	// cost of longer individual pauses.
	StepMulPercent uint64
}

// DefaultPolicy matches the original runtime's defaults.
var DefaultPolicy = Policy{PausePercent: 200, StepMulPercent: 200}

// NextThreshold returns the total-byte count at which the next cycle
// should start, given the live byte count measured at the end of the
// current one.
func (p Policy) NextThreshold(liveBytes uint64) (uint64, error) {
	live := uint256.NewInt(liveBytes)
	pct := uint256.NewInt(p.PausePercent)

	product, overflow := new(uint256.Int).MulOverflow(live, pct)
	if overflow {
		return 0, ErrThresholdOverflow
	}
	result := new(uint256.Int).Div(product, uint256.NewInt(100))
	if !result.IsUint64() {
		return 0, ErrThresholdOverflow
	}
	return result.Uint64(), nil
}

// StepBudget returns how many bytes of traversal work one Step call should
// perform given allocated bytes since the previous step.
func (p Policy) StepBudget(allocatedSinceLastStep uint64) (uint64, error) {
	alloc := uint256.NewInt(allocatedSinceLastStep)
	pct := uint256.NewInt(p.StepMulPercent)

	product, overflow := new(uint256.Int).MulOverflow(alloc, pct)
	if overflow {
		return 0, ErrThresholdOverflow
	}
	result := new(uint256.Int).Div(product, uint256.NewInt(100))
	if !result.IsUint64() {
		return 0, ErrThresholdOverflow
	}
	return result.Uint64(), nil
}
