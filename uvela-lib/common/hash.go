// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package common

import (
	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// HashFunction selects the string hash the VM fixes for its lifetime
// (§4.2, §6.7, §9 "Hash function choice"). Iteration order depends on it,
// so tests that assert on traversal order must pin one explicitly.
type HashFunction uint8

const (
	// HashMurmur3 is the default: a 32-bit Murmur3 hash, matching the
	// original runtime's default.
	HashMurmur3 HashFunction = iota
	// HashCity stands in for the original's CityHash alternative. Go's
	// ecosystem has no CityHash port in the example pack; xxhash fills
	// the same role (a second, independent, fast non-cryptographic
	// 64-bit hash) and is truncated to 32 bits for a uniform Sum(seed)
	// signature across both choices.
	HashCity
)

// Sum hashes b with the selected function. The seed lets callers derive
// per-table or per-VM hash families if ever needed; both VMs in a single
// process normally share seed 0.
func (h HashFunction) Sum(seed uint32, b []byte) uint32 {
	switch h {
	case HashCity:
		return uint32(xxhash.Sum64(b)) ^ seed
	default:
		return murmur3.Sum32WithSeed(b, seed)
	}
}

func (h HashFunction) String() string {
	switch h {
	case HashCity:
		return "city"
	default:
		return "murmur3"
	}
}
