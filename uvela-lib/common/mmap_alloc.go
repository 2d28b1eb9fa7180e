// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package common

import (
	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// NewMmapAllocFunc returns an AllocFunc backed by anonymous mmap regions
// instead of the Go heap. It exists as the "pluggable allocator" §4.1 and
// §6.7's Options.AllocFn call for; an embedder that wants the GC arena
// outside the Go heap (e.g. to keep a sealed data state's bytes off a
// dependent VM's GC-scanned heap entirely) selects it explicitly.
//
// Because mmap regions cannot grow in place, every resize allocates a new
// region, copies, and unmaps the old one — strictly more expensive than
// DefaultAllocFunc, which is why it is opt-in rather than the default.
func NewMmapAllocFunc() AllocFunc {
	return func(ptr []byte, oldSize, newSize int) ([]byte, error) {
		if newSize == 0 {
			if ptr == nil {
				return nil, nil
			}
			if err := mmap.MMap(ptr[:cap(ptr)]).Unmap(); err != nil {
				return nil, errors.Wrap(err, "mmap unmap")
			}
			return nil, nil
		}

		region, err := mmap.MapRegion(nil, newSize, mmap.RDWR, mmap.ANON, 0)
		if err != nil {
			return nil, errors.Wrap(err, "mmap map region")
		}
		if ptr != nil {
			copy(region, ptr[:oldSize])
			if err := mmap.MMap(ptr[:cap(ptr)]).Unmap(); err != nil {
				return nil, errors.Wrap(err, "mmap unmap previous region")
			}
		}
		return []byte(region), nil
	}
}
