// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statstree

// Kind of failure surfaced at the API boundary. The host filesystem
// adapter maps these onto its own error codes (e.g. ENOENT, EEXIST,
// ENOMEM, EINVAL); the stats tree itself never produces anything else.
type ErrKind int

const (
	// ErrNotFound: descriptor absent from a source, or an open raced
	// with destruction. A revoked source is not an error: its reads
	// return 0.
	ErrNotFound ErrKind = iota
	// ErrAlreadyExists: duplicate (array, base) binding on one source.
	ErrAlreadyExists
	// ErrOutOfMemory: allocation failure during create, publish, or
	// snapshot.
	ErrOutOfMemory
	// ErrInvalidArgument: write payload to a value file that is not
	// the literal zero.
	ErrInvalidArgument
)

func (k ErrKind) String() string {
	switch k {
	case ErrNotFound:
		return "not found"
	case ErrAlreadyExists:
		return "already exists"
	case ErrOutOfMemory:
		return "out of memory"
	case ErrInvalidArgument:
		return "invalid argument"
	default:
		return "unknown error"
	}
}

// Error wraps an ErrKind with context. Use errors.Is(err, statstree.ErrNotFound)
// and friends (the ErrKind constants themselves satisfy error) to test
// which kind occurred.
type Error struct {
	Kind ErrKind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is lets errors.Is(err, statstree.ErrNotFound) work directly against
// the ErrKind constants without callers needing to know about *Error.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrKind)
	return ok && e.Kind == k
}

func (k ErrKind) Error() string { return k.String() }

func newError(kind ErrKind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// NewError constructs an Error of the given kind. Exported so that
// other packages sharing this error taxonomy (metricsexport,
// statsfuse) surface the same Kind values rather than inventing their
// own.
func NewError(kind ErrKind, msg string) error {
	return newError(kind, msg)
}
