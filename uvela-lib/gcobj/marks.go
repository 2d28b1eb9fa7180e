// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package gcobj

// Mark bits packed into Header.marked. Some bits carry two meanings
// depending on object type; the two meanings never coexist on the same
// type (cdata cannot be sealed, so Sealed and CDataVarLength never collide
// on a live object), mirroring the original runtime's uj_obj_marks.h.
//
//	         MSB                                                 LSB
//	+--------------------------------------------------------------+
//	| Sealed |Immut| TmpMk | WeakVal | WeakKey |Black|White1|White0|
//	|CDataVar|     |       |CDataFin |Finalized|      |      |      |
//	+--------------------------------------------------------------+
const (
	White0    uint8 = 0x01
	White1    uint8 = 0x02
	Black     uint8 = 0x04
	Finalized uint8 = 0x08
	WeakKey   uint8 = 0x08 // tables only
	WeakValue uint8 = 0x10 // tables only

	CDataFinalizer uint8 = 0x10 // cdata only
	Fixed          uint8 = 0x20 // strings only
	TmpMark        uint8 = 0x20 // non-string objects, during seal/immutable marking

	Immutable      uint8 = 0x40
	Sealed         uint8 = 0x80
	CDataVarLength uint8 = 0x80 // cdata only; never coexists with Sealed

	Whites = White0 | White1
	Colors = Whites | Black
	Weak   = WeakKey | WeakValue
)
