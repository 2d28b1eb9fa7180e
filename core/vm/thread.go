// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package vm

import (
	"context"
	"sync"
	"time"

	"github.com/luavela-go/uvela-lib/objects"
	"github.com/luavela-go/uvela-lib/state"
	"github.com/luavela-go/uvela-lib/value"
)

// Body is the function a Coroutine runs. yield hands control (and a slice
// of values) back to whoever called Resume, blocking until the next
// Resume call supplies the values that Body's own call to yield returns.
type Body func(yield func(out []value.Value) []value.Value, args []value.Value) ([]value.Value, error)

// Coroutine binds an objects.Thread (the GC-visible stack/status the
// collector traverses) to the goroutine and channel pair that actually
// implements Lua's cooperative-resume semantics. There is no OS-level
// concurrency here — only one of (the resumer, the coroutine body) ever
// runs at a time, handed off explicitly through resumeCh/yieldCh.
type Coroutine struct {
	thread *objects.Thread
	body   Body

	resumeCh chan []value.Value
	yieldCh  chan yieldMsg

	// cancel is closed the first time any Resume call's context is done,
	// unblocking run (and yield, via the same channel) so a coroutine
	// parked on resumeCh/yieldCh with no one left to hand off to doesn't
	// leak its goroutine for the life of the process.
	cancel     chan struct{}
	cancelOnce sync.Once

	started bool
}

// coroutineCanceled unwinds yield once cancel is closed; Protect recovers
// it like any other body panic, so it never escapes run's own goroutine.
type coroutineCanceled struct{}

type yieldMsg struct {
	values []value.Value
	err    error
	done   bool
}

// NewCoroutine wires body to a freshly allocated Thread of the given stack
// capacity. The caller is responsible for registering the returned
// Thread's GC header with a Collector (gs.GC.Register), matching every
// other GC-managed constructor's calling convention.
func NewCoroutine(stackSize int, body Body) (*objects.Thread, *Coroutine) {
	th := objects.NewThread(stackSize)
	c := &Coroutine{
		thread:   th,
		body:     body,
		resumeCh: make(chan []value.Value),
		yieldCh:  make(chan yieldMsg),
		cancel:   make(chan struct{}),
	}
	return th, c
}

// Resume hands args to the coroutine and blocks until it either yields,
// returns, or errors. Resuming a coroutine that is not Suspended (or, for
// the very first call, freshly constructed) is a protocol error.
func (c *Coroutine) Resume(ctx context.Context, args []value.Value) ([]value.Value, error) {
	switch c.thread.Status {
	case objects.ThreadDead:
		return nil, state.NewError(state.ErrKindCoroutineIsDead, "cannot resume a dead coroutine")
	case objects.ThreadRunning, objects.ThreadNormal:
		return nil, state.NewError(state.ErrKindCoroutineNotSuspended, "coroutine is not suspended")
	}

	// A context that is already done must not race the resume handoff in
	// the select below, which would otherwise pick either case at random.
	if err := ctx.Err(); err != nil {
		c.thread.Status = objects.ThreadDead
		c.cancelOnce.Do(func() { close(c.cancel) })
		return nil, state.NewError(state.ErrKindUnknown, "resume canceled: %s", err)
	}

	c.thread.Status = objects.ThreadRunning
	if !c.started {
		c.started = true
		go c.run()
	}

	select {
	case c.resumeCh <- args:
	case <-ctx.Done():
		c.thread.Status = objects.ThreadDead
		c.cancelOnce.Do(func() { close(c.cancel) })
		return nil, state.NewError(state.ErrKindUnknown, "resume canceled: %s", ctx.Err())
	}

	select {
	case msg := <-c.yieldCh:
		if msg.done {
			c.thread.Status = objects.ThreadDead
		} else {
			c.thread.Status = objects.ThreadSuspended
		}
		return msg.values, msg.err
	case <-ctx.Done():
		c.thread.Status = objects.ThreadDead
		c.cancelOnce.Do(func() { close(c.cancel) })
		return nil, state.NewError(state.ErrKindUnknown, "resume canceled: %s", ctx.Err())
	}
}

// ResumeWithTimeout is a convenience wrapper for the common case of
// bounding one resume call's running time, e.g. for an untrusted script
// body (§7 "unwind" interacts with this at the protected-call boundary).
func (c *Coroutine) ResumeWithTimeout(timeout time.Duration, args []value.Value) ([]value.Value, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return c.Resume(ctx, args)
}

func (c *Coroutine) run() {
	var args []value.Value
	select {
	case args = <-c.resumeCh:
	case <-c.cancel:
		return
	}

	yield := func(out []value.Value) []value.Value {
		select {
		case c.yieldCh <- yieldMsg{values: out}:
		case <-c.cancel:
			panic(coroutineCanceled{})
		}
		select {
		case next := <-c.resumeCh:
			return next
		case <-c.cancel:
			panic(coroutineCanceled{})
		}
	}

	var msg yieldMsg
	err := Protect(func() {
		// A coroutineCanceled panic from yield is caught here like any
		// other body panic; Protect turns it into msg.err below, and the
		// guarded send after this call lets run exit without blocking.
		results, bodyErr := c.body(yield, args)
		msg = yieldMsg{values: results, err: bodyErr, done: true}
	})
	if err != nil {
		msg = yieldMsg{err: err, done: true}
	}
	select {
	case c.yieldCh <- msg:
	case <-c.cancel:
	}
}

// Status reports the underlying Thread's current lifecycle state.
func (c *Coroutine) Status() objects.ThreadStatus { return c.thread.Status }

func (c *Coroutine) Thread() *objects.Thread { return c.thread }
