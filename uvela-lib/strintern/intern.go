// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package strintern

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/luavela-go/uvela-lib/common"
	"github.com/luavela-go/uvela-lib/gcobj"
)

// ErrSweeping is returned by Intern when called while the GC's
// sweep-string phase is in progress. Rehashing the live table during that
// phase would shuffle strings between buckets the sweep cursor has and
// has not yet visited, causing it to miss or double-free an entry — the
// original runtime forbids it outright, so this port does too.
var ErrSweeping = errors.New("strintern: cannot rehash live table during sweep-string phase")

const (
	minBuckets  = 32
	loadPercent = 100 // grow when count reaches 100% of bucket count
	cacheSize   = 256
)

// Table holds every interned string a VM (or data state) knows about,
// split into a live, mutable chain-hashed table and a sealed table that is
// never rehashed once an entry lands in it (SPEC_FULL §8, grounded on
// uj_strhash.c's separate live/sealed tables).
type Table struct {
	hashFn  common.HashFunction
	live    []*String // chain-hashed buckets, len is always a power of two
	liveN   int
	sealed  []*String
	sealedN int
	sweeping bool
	cache   *lru.Cache[string, *String] // short-circuits re-hashing recently interned strings

	hashHit  uint64
	hashMiss uint64
}

// NewTable constructs an empty interning table using hashFn for all
// buckets. hashFn is fixed for the table's lifetime (§6.7 Options).
func NewTable(hashFn common.HashFunction) *Table {
	cache, err := lru.New[string, *String](cacheSize)
	if err != nil {
		panic(err) // only returns an error for a non-positive size, which cacheSize never is
	}
	return &Table{
		hashFn: hashFn,
		live:   make([]*String, minBuckets),
		sealed: make([]*String, minBuckets),
		cache:  cache,
	}
}

// BeginSweepString marks the table as being swept; Intern refuses to grow
// the live table until EndSweepString is called.
func (t *Table) BeginSweepString() { t.sweeping = true }

func (t *Table) EndSweepString() { t.sweeping = false }

// Intern returns the unique *String for data, allocating and chaining a
// new one on first sight. It checks the sealed table first (sealed content
// is permanent and shared across dependent VMs), then the live table, then
// falls back to allocation.
func (t *Table) Intern(data string) (*String, error) {
	if t.cache != nil {
		if s, ok := t.cache.Get(data); ok {
			t.hashHit++
			return s, nil
		}
	}

	h := t.hashFn.Sum(0, []byte(data))

	if s := find(t.sealed, h, data); s != nil {
		t.hashHit++
		t.addToCache(data, s)
		return s, nil
	}
	if s := find(t.live, h, data); s != nil {
		t.hashHit++
		t.addToCache(data, s)
		return s, nil
	}

	t.hashMiss++
	if t.liveN*100 >= len(t.live)*loadPercent {
		if t.sweeping {
			return nil, ErrSweeping
		}
		t.growLive()
	}

	s := &String{hash: h, data: data}
	s.Init(gcobj.TagString)
	idx := h & uint32(len(t.live)-1)
	s.chain = t.live[idx]
	t.live[idx] = s
	t.liveN++
	t.addToCache(data, s)
	return s, nil
}

func (t *Table) addToCache(data string, s *String) {
	if t.cache != nil {
		t.cache.Add(data, s)
	}
}

// DisableCache drops the fast-path LRU lookup cache entirely (§6.7
// Options.DisableIntern). An embedder running many short-lived, mostly
// distinct strings can find the cache's own bookkeeping more expensive
// than the rehash it tries to avoid.
func (t *Table) DisableCache() { t.cache = nil }

func find(buckets []*String, hash uint32, data string) *String {
	if len(buckets) == 0 {
		return nil
	}
	idx := hash & uint32(len(buckets)-1)
	for s := buckets[idx]; s != nil; s = s.chain {
		if s.hash == hash && s.data == data {
			return s
		}
	}
	return nil
}

func (t *Table) growLive() {
	newBuckets := make([]*String, len(t.live)*2)
	for _, head := range t.live {
		for s := head; s != nil; {
			next := s.chain
			idx := s.hash & uint32(len(newBuckets)-1)
			s.chain = newBuckets[idx]
			newBuckets[idx] = s
			s = next
		}
	}
	t.live = newBuckets
}

// Seal moves s from the live table into the sealed table in place,
// without rehashing either table (it reuses s's existing hash). Called by
// package seal once a string has been marked reachable from a sealed root.
func (t *Table) Seal(s *String) {
	if s.HasMark(gcobj.Sealed) {
		return
	}
	idx := s.hash & uint32(len(t.live)-1)
	t.live[idx] = unlink(t.live[idx], s)
	t.liveN--

	if t.sealedN*100 >= len(t.sealed)*loadPercent {
		t.growSealed()
	}
	sidx := s.hash & uint32(len(t.sealed)-1)
	s.chain = t.sealed[sidx]
	t.sealed[sidx] = s
	t.sealedN++
	s.SetMark(gcobj.Sealed)
}

func (t *Table) growSealed() {
	newBuckets := make([]*String, len(t.sealed)*2)
	for _, head := range t.sealed {
		for s := head; s != nil; {
			next := s.chain
			idx := s.hash & uint32(len(newBuckets)-1)
			s.chain = newBuckets[idx]
			newBuckets[idx] = s
			s = next
		}
	}
	t.sealed = newBuckets
}

func unlink(head, target *String) *String {
	if head == target {
		return head.chain
	}
	for s := head; s != nil; s = s.chain {
		if s.chain == target {
			s.chain = target.chain
			break
		}
	}
	return head
}

// Sweep removes every live string for which isDead returns true, invoking
// free for each removed string before dropping it. It must only be called
// between BeginSweepString and EndSweepString.
func (t *Table) Sweep(isDead func(*String) bool, free func(*String)) {
	for i, head := range t.live {
		var kept *String
		for s := head; s != nil; {
			next := s.chain
			if isDead(s) {
				free(s)
				t.liveN--
			} else {
				s.chain = kept
				kept = s
			}
			s = next
		}
		t.live[i] = kept
	}
}

// LiveCount and SealedCount report table occupancy, surfaced through
// state.Metrics (§6.6).
func (t *Table) LiveCount() int   { return t.liveN }
func (t *Table) SealedCount() int { return t.sealedN }

// HashStats reports Intern's hit/miss counts accumulated since the last
// call (a hit is a lookup found in the cache, the sealed table or the live
// table; a miss allocates a new string) and resets them, matching §6.6's "all counters reset on read" for
// strhash_hit/strhash_miss.
func (t *Table) HashStats() (hit, miss uint64) {
	hit, miss = t.hashHit, t.hashMiss
	t.hashHit, t.hashMiss = 0, 0
	return
}
