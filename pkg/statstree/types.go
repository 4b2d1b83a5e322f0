// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package statstree implements a hierarchical, reference-counted
// registry of "sources" that carry typed value descriptors bound to
// in-memory base addresses, with recursive SUM/MIN/MAX/AVG/COUNT_ZERO
// aggregation across subtrees. It is filesystem-agnostic: producers
// build a tree of *Source values and attach a Publisher to mirror it
// into whatever namespace the host exposes (see Publisher).
package statstree

import "os"

// Kind is the primitive numeric type of a value. Signedness is a
// distinguished property of the type (see Signed), not a separate
// field, so that dispatch on "is this aggregation signed" stays a
// product of two small enums (Kind.Signed(), AggrKind) rather than a
// packed bitfield integer.
type Kind int

const (
	KindU8 Kind = iota
	KindU16
	KindU32
	KindU64
	KindBool
	KindS8
	KindS16
	KindS32
	KindS64
)

func (k Kind) String() string {
	switch k {
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindBool:
		return "bool"
	case KindS8:
		return "s8"
	case KindS16:
		return "s16"
	case KindS32:
		return "s32"
	case KindS64:
		return "s64"
	default:
		return "invalid"
	}
}

// Signed reports whether a value of this Kind should be read back as a
// signed integer (sign-extended to 64 bits) rather than an unsigned one.
func (k Kind) Signed() bool {
	switch k {
	case KindS8, KindS16, KindS32, KindS64:
		return true
	default:
		return false
	}
}

// widthBytes is the in-memory footprint of one value of this Kind.
func (k Kind) widthBytes() int {
	switch k {
	case KindU8, KindBool, KindS8:
		return 1
	case KindU16, KindS16:
		return 2
	case KindU32, KindS32:
		return 4
	case KindU64, KindS64:
		return 8
	default:
		return 0
	}
}

// AggrKind selects how a value with no storage of its own is computed
// by walking a subtree. NONE marks a "simple" value: read directly from
// memory, no aggregation.
type AggrKind int

const (
	AggrNone AggrKind = iota
	AggrSum
	AggrMin
	AggrMax
	AggrCountZero
	AggrAvg
)

func (a AggrKind) String() string {
	switch a {
	case AggrNone:
		return "none"
	case AggrSum:
		return "sum"
	case AggrMin:
		return "min"
	case AggrMax:
		return "max"
	case AggrCountZero:
		return "count_zero"
	case AggrAvg:
		return "avg"
	default:
		return "invalid"
	}
}

// ValueFlag tags a value as an ever-increasing counter or a point-in-time
// gauge; it only affects schema rendering (see RenderSchema), never
// aggregation or read semantics.
type ValueFlag int

const (
	FlagCumulative ValueFlag = iota
	FlagGauge
)

func (f ValueFlag) String() string {
	if f == FlagGauge {
		return "GAUGE"
	}
	return "CUMULATIVE"
}

// DefaultMode is substituted whenever a ValueDescriptor's Mode is left
// at its zero value.
const DefaultMode os.FileMode = 0o644
