// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package objects

import (
	"github.com/luavela-go/uvela-lib/gcobj"
	"github.com/luavela-go/uvela-lib/value"
)

// ThreadStatus mirrors a coroutine's lifecycle states.
type ThreadStatus uint8

const (
	ThreadSuspended ThreadStatus = iota
	ThreadRunning
	ThreadNormal // resumed another coroutine and is waiting on it
	ThreadDead
)

// Thread is a Lua coroutine: its own register stack plus the status that
// governs whether Resume is currently legal. Bytecode dispatch itself
// lives in package vm; Thread only holds the state the collector must be
// able to traverse and that Resume/Yield mutate.
type Thread struct {
	gcobj.Header
	Stack  []value.Value
	Status ThreadStatus
	Parent *Thread // the coroutine that resumed this one, nil for the main thread
}

func NewThread(stackSize int) *Thread {
	t := &Thread{Stack: make([]value.Value, 0, stackSize)}
	t.Init(gcobj.TagThread)
	return t
}

func (t *Thread) Push(v value.Value) { t.Stack = append(t.Stack, v) }

func (t *Thread) Pop() value.Value {
	if len(t.Stack) == 0 {
		return value.Nil
	}
	v := t.Stack[len(t.Stack)-1]
	t.Stack = t.Stack[:len(t.Stack)-1]
	return v
}

func (t *Thread) Traverse(m Marker) {
	for _, v := range t.Stack {
		m.Mark(v)
	}
	if t.Parent != nil {
		m.MarkObject(t.Parent)
	}
}
