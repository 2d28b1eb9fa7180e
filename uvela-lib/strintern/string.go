// Copyright 2026 The Uvela Authors
// This file is part of uvela.

// Package strintern implements Lua string interning: every string value
// is a unique, immutable, GC-managed object keyed by its hash and byte
// content, so raw equality between two strings reduces to a pointer
// compare (grounded on the original runtime's uj_str.c / uj_strhash.c).
package strintern

import (
	"github.com/luavela-go/uvela-lib/gcobj"
)

// String is an interned, immutable byte sequence. Two Strings with equal
// content are always the same *String once interned.
type String struct {
	gcobj.Header
	hash  uint32
	data  string
	chain *String // next string in this bucket's collision chain
}

func (s *String) Hash() uint32 { return s.hash }
func (s *String) Len() int     { return len(s.data) }
func (s *String) Data() string { return s.data }

func (s *String) String() string { return s.data }
