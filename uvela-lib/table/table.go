// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package table

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/luavela-go/uvela-lib/gcobj"
	"github.com/luavela-go/uvela-lib/value"
)

// ErrSealed is returned by every mutator when called on a sealed table
// (SPEC_FULL §3 seal/immutable semantics).
var ErrSealed = errors.New("table: cannot mutate a sealed table")

// ErrImmutable is returned by Set on a table marked immutable (by package
// seal's Immutable transaction) but not sealed: every store is rejected,
// whether it updates an existing key or adds a new one. SetMetatable
// reports ErrSealed for both marks.
var ErrImmutable = errors.New("table: cannot mutate an immutable table")

// ErrNaNKey is returned when a caller attempts to use a NaN number as a
// table key, which the language forbids because NaN never raw-equals
// itself, making it unfindable once stored.
var ErrNaNKey = errors.New("table: NaN is not a valid table key")

// Table is the hybrid array+hash table every Lua value of type table maps
// to. The array part covers dense integer keys 1..len(array); everything
// else, including integer keys outside that range, lives in the hash part.
type Table struct {
	gcobj.Header

	array []value.Value
	nodes []node
	hmask uint32 // len(nodes)-1, or 0 when nodes is empty
	lastfree int32 // Brent-variation free-slot scan cursor, see newKey

	metatable *Table
	nomm      uint8 // negative metamethod cache: bit i set means metamethod i is absent

	barrier func(*Table) // collector hook invoked after every mutation, see SetBarrierHook
}

// SetBarrierHook wires t to its owning collector's write barrier. GlobalState
// calls this on every table it creates; a table built directly via New (as
// package seal's tests and table's own tests do) has no hook and mutates
// without triggering one, which is fine outside a live collector.
func (t *Table) SetBarrierHook(hook func(*Table)) {
	t.barrier = hook
}

// notifyMutated invokes the write-barrier hook, if any, after a mutation
// that may have pointed this table at a new child while the collector
// considers it black (spec.md §2's "mutators ... invoke the appropriate
// write barrier macro" / §6.4). The hook itself is the collector's
// BarrierBack, which is a no-op unless this table is currently black.
func (t *Table) notifyMutated() {
	if t.barrier != nil {
		t.barrier(t)
	}
}

// New allocates a table with room for asize dense array slots and hsize
// hash slots (rounded up to the next power of two, as the original's
// lj_tab_new does).
func New(asize, hsize int) *Table {
	t := &Table{}
	t.Init(gcobj.TagTable)
	if asize > 0 {
		t.array = make([]value.Value, asize)
	}
	if hsize > 0 {
		t.resizeHash(npot(hsize))
	}
	return t
}

func npot(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (t *Table) resizeHash(size int) {
	if size == 0 {
		t.nodes = nil
		t.hmask = 0
		t.lastfree = 0
		return
	}
	t.nodes = make([]node, size)
	for i := range t.nodes {
		t.nodes[i].next = noNext
	}
	t.hmask = uint32(size - 1)
	t.lastfree = int32(size)
}

func (t *Table) mainPosition(key value.Value) int32 {
	if len(t.nodes) == 0 {
		return -1
	}
	return int32(hashKey(key) & t.hmask)
}

// Get looks up key without invoking any metamethod (raw access).
func (t *Table) Get(key value.Value) value.Value {
	if key.IsNumber() {
		if n := key.Number(); n == float64(int64(n)) {
			idx := int64(n)
			if idx >= 1 && int(idx) <= len(t.array) {
				return t.array[idx-1]
			}
		}
	}
	idx := t.mainPosition(key)
	for idx >= 0 {
		n := &t.nodes[idx]
		if !n.dead && n.key.RawEqual(key) {
			return n.val
		}
		idx = n.next
	}
	return value.Nil
}

// Set stores val at key, growing the array or hash part as needed. Setting
// a key's value to Nil logically deletes it but, per Lua semantics, keeps
// the node live for any iteration in progress (dead-key retention,
// reclaimed on the next Rehash).
func (t *Table) Set(key value.Value, val value.Value) error {
	if t.HasMark(gcobj.Sealed) {
		return ErrSealed
	}
	if t.HasMark(gcobj.Immutable) {
		return ErrImmutable
	}
	if key.IsNil() {
		return errors.New("table: nil is not a valid table key")
	}
	if key.IsNaN() {
		return ErrNaNKey
	}

	t.nomm = 0

	if key.IsNumber() {
		if n := key.Number(); n == float64(int64(n)) {
			idx := int64(n)
			if idx >= 1 && int(idx) <= len(t.array) {
				t.array[idx-1] = val
				t.notifyMutated()
				return nil
			}
			if idx == int64(len(t.array))+1 && !val.IsNil() {
				t.array = append(t.array, val)
				t.migrateFollowingKeys()
				t.notifyMutated()
				return nil
			}
		}
	}

	slot, err := t.findOrInsert(key)
	if err != nil {
		return err
	}
	slot.val = val
	slot.dead = val.IsNil()
	t.notifyMutated()
	return nil
}

// migrateFollowingKeys pulls any hash-part entries whose integer key now
// falls within the grown array part back into the array, mirroring the
// original's behavior of keeping the array part maximal.
func (t *Table) migrateFollowingKeys() {
	for {
		next := int64(len(t.array)) + 1
		k := value.Number(float64(next))
		idx := t.mainPosition(k)
		found := int32(-1)
		for i := idx; i >= 0; {
			if !t.nodes[i].dead && t.nodes[i].key.RawEqual(k) {
				found = i
				break
			}
			i = t.nodes[i].next
		}
		if found < 0 {
			return
		}
		v := t.nodes[found].val
		t.removeNode(found)
		t.array = append(t.array, v)
	}
}

func (t *Table) removeNode(idx int32) {
	n := &t.nodes[idx]
	n.key = value.Nil
	n.val = value.Nil
	n.dead = false
	n.next = noNext
}

// findOrInsert returns a pointer to the node holding key, creating one via
// Brent's variation if absent: a new key displaces whatever entry
// currently squats its main position but does not belong there, rather
// than simply chaining behind it.
func (t *Table) findOrInsert(key value.Value) (*node, error) {
	if len(t.nodes) == 0 {
		t.resizeHash(1)
	}

	main := t.mainPosition(key)
	for idx := main; idx >= 0; {
		n := &t.nodes[idx]
		if !n.isEmpty() && n.key.RawEqual(key) {
			return n, nil // matches live and dead nodes alike, reviving a dead one in place
		}
		idx = n.next
	}

	mainNode := &t.nodes[main]
	if !mainNode.isEmpty() {
		collider := t.mainPosition(mainNode.key)
		if collider != main {
			// mainNode doesn't belong at main; relocate it to a free slot
			// and take over main for the new key.
			free := t.getFreeSlot()
			if free < 0 {
				t.Rehash()
				return t.findOrInsert(key)
			}
			prev := collider
			for t.nodes[prev].next != main {
				prev = t.nodes[prev].next
			}
			t.nodes[free] = *mainNode
			t.nodes[prev].next = free
			*mainNode = node{next: noNext}
		} else {
			free := t.getFreeSlot()
			if free < 0 {
				t.Rehash()
				return t.findOrInsert(key)
			}
			t.nodes[free].next = mainNode.next
			mainNode.next = free
			mainNode = &t.nodes[free]
		}
	}
	mainNode.key = key
	mainNode.val = value.Nil
	mainNode.dead = false
	return mainNode, nil
}

// getFreeSlot scans backward from the last-known-free cursor for an empty
// node, matching the original's monotonic "lastfree" scan so repeated
// insertions don't rescan slots already known to be occupied.
func (t *Table) getFreeSlot() int32 {
	for t.lastfree > 0 {
		t.lastfree--
		if t.nodes[t.lastfree].isEmpty() {
			return t.lastfree
		}
	}
	return -1
}

// Len returns a border: either 0 or an index n such that t[n] is non-nil,
// and t[n+1] is nil. It scans the array part backward from its end for the
// last non-nil slot (so it may return n > 0 even when t[1] is nil); when
// the array part is full it then probes the hash part for n+1, n+2, ...
// one key at a time.
func (t *Table) Len() int {
	n := len(t.array)
	for n > 0 && t.array[n-1].IsNil() {
		n--
	}
	if n == len(t.array) && len(t.nodes) > 0 {
		for {
			k := value.Number(float64(n + 1))
			if t.Get(k).IsNil() {
				break
			}
			n++
		}
	}
	return n
}

// Next implements stateless iteration (the protocol behind `pairs`):
// given the previously-returned key (or Nil to start), it returns the
// following key/value pair and true, or ok=false once iteration is done.
func (t *Table) Next(key value.Value) (value.Value, value.Value, bool, error) {
	i := 0
	if !key.IsNil() {
		if key.IsNumber() {
			if n := key.Number(); n == float64(int64(n)) && int64(n) >= 1 && int(int64(n)) <= len(t.array) {
				i = int(int64(n))
			} else {
				idx := t.mainPosition(key)
				found := false
				for j := idx; j >= 0; {
					if t.nodes[j].key.RawEqual(key) {
						i = len(t.array) + int(j) + 1
						found = true
						break
					}
					j = t.nodes[j].next
				}
				if !found {
					return value.Nil, value.Nil, false, errors.New("table: invalid key to next")
				}
			}
		} else {
			idx := t.mainPosition(key)
			found := false
			for j := idx; j >= 0; {
				if t.nodes[j].key.RawEqual(key) {
					i = len(t.array) + int(j) + 1
					found = true
					break
				}
				j = t.nodes[j].next
			}
			if !found {
				return value.Nil, value.Nil, false, errors.New("table: invalid key to next")
			}
		}
	}

	for ; i < len(t.array); i++ {
		if !t.array[i].IsNil() {
			return value.Number(float64(i + 1)), t.array[i], true, nil
		}
	}

	for j := i - len(t.array); j < len(t.nodes); j++ {
		n := &t.nodes[j]
		if !n.isEmpty() && !n.dead {
			return n.key, n.val, true, nil
		}
	}
	return value.Nil, value.Nil, false, nil
}

// Metatable and SetMetatable implement the table/userdata metatable slot
// shared by every table (§6, "metatable operations"). Assigning a new
// metatable invalidates the negative metamethod cache.
func (t *Table) Metatable() *Table { return t.metatable }

func (t *Table) SetMetatable(mt *Table) error {
	if t.HasMark(gcobj.Sealed) || t.HasMark(gcobj.Immutable) {
		return ErrSealed
	}
	t.metatable = mt
	t.nomm = 0
	t.notifyMutated()
	return nil
}

// NoMM reports whether metamethod bit mm is cached as definitely absent.
func (t *Table) NoMM(mm uint8) bool { return t.nomm&(1<<mm) != 0 }

// SetNoMM records that metamethod bit mm is absent, so future lookups can
// skip re-walking the metatable chain.
func (t *Table) SetNoMM(mm uint8) { t.nomm |= 1 << mm }

func hashKey(key value.Value) uint32 {
	if key.IsNumber() {
		n := key.Number()
		bits := int64(n)
		return uint32(bits) ^ uint32(bits>>32) ^ 0x9e3779b9
	}
	if gc := key.GC(); gc != nil {
		if s, ok := gc.(interface{ Hash() uint32 }); ok {
			return s.Hash()
		}
		// Tables/userdata/functions without an intrinsic hash are keyed by
		// raw identity, matching the original's use of the object's own
		// address as its hash.
		return uint32(reflect.ValueOf(gc).Pointer()) ^ 0x9e3779b9
	}
	switch key.Tag() {
	case value.TagTrue:
		return 1
	case value.TagFalse:
		return 0
	default:
		return uint32(key.LightUserdata())
	}
}
