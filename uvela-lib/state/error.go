// Copyright 2026 The Uvela Authors
// This file is part of uvela.

package state

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies a runtime error the way the interpreter itself
// would report it, independent of the Go error value wrapping it.
type ErrorKind uint8

const (
	ErrKindUnknown ErrorKind = iota
	ErrKindOutOfMemory
	ErrKindStackOverflow
	ErrKindTypeMismatch
	ErrKindArithOnNonNumber
	ErrKindConcatOnNonString
	ErrKindCompareIncompatibleTypes
	ErrKindCallNonFunction
	ErrKindIndexNonIndexable
	ErrKindNilIndex
	ErrKindNaNIndex
	ErrKindReadOnly  // attempted mutation of a sealed or immutable value
	ErrKindNotSealable
	ErrKindSyntax
	ErrKindUnboundUpvalue
	ErrKindCoroutineNotSuspended
	ErrKindCoroutineIsDead
	ErrKindForeignDataState
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindOutOfMemory:
		return "out of memory"
	case ErrKindStackOverflow:
		return "stack overflow"
	case ErrKindTypeMismatch:
		return "type mismatch"
	case ErrKindArithOnNonNumber:
		return "attempt to perform arithmetic on a non-number value"
	case ErrKindConcatOnNonString:
		return "attempt to concatenate a non-string value"
	case ErrKindCompareIncompatibleTypes:
		return "attempt to compare incompatible values"
	case ErrKindCallNonFunction:
		return "attempt to call a non-function value"
	case ErrKindIndexNonIndexable:
		return "attempt to index a non-indexable value"
	case ErrKindNilIndex:
		return "table index is nil"
	case ErrKindNaNIndex:
		return "table index is NaN"
	case ErrKindReadOnly:
		return "attempt to modify a read-only value"
	case ErrKindNotSealable:
		return "value graph is not sealable"
	case ErrKindSyntax:
		return "syntax error"
	case ErrKindUnboundUpvalue:
		return "attempt to use a closed upvalue"
	case ErrKindCoroutineNotSuspended:
		return "cannot resume a non-suspended coroutine"
	case ErrKindCoroutineIsDead:
		return "cannot resume a dead coroutine"
	case ErrKindForeignDataState:
		return "value belongs to a foreign data state"
	default:
		return "unknown error"
	}
}

// Error is the concrete error type every External Interface call returns
// in place of a raw error string, carrying enough structure for an
// embedder to branch on ErrorKind without parsing Error()'s text, while
// still composing with errors.Is/As via the wrapped cause.
type Error struct {
	Kind      ErrorKind
	Message   string
	ChunkName string
	Line      int
	cause     error
}

// NewError builds a *Error whose stack trace is captured at the call site
// (via pkg/errors.WithStack), so a caller logging it with zap's
// zap.Error(err) gets a real stack rather than just a message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Message: msg, cause: errors.WithStack(errors.New(msg))}
}

// At attaches source position information, used once the caller knows
// which chunk/line the error occurred in (often not known at the point
// NewError is first constructed, e.g. inside a library function called
// from Lua).
func (e *Error) At(chunkName string, line int) *Error {
	e.ChunkName = chunkName
	e.Line = line
	return e
}

func (e *Error) Error() string {
	if e.ChunkName != "" {
		return fmt.Sprintf("%s:%d: %s", e.ChunkName, e.Line, e.Message)
	}
	return e.Message
}

// Unwrap lets errors.Is/As reach any cause NewError wrapped, though for
// most kinds there is none beyond the stack trace itself.
func (e *Error) Unwrap() error { return e.cause }
