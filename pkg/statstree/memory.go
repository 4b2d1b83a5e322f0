// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statstree

import "unsafe"

// readMemory dispatches on Kind to read one primitive at base+offset and
// widen it to a u64 bit pattern, sign-extending signed kinds. This is
// the one place the nine-way type tag is switched over; every caller
// goes through here rather than re-deriving width/signedness locally.
func readMemory(base unsafe.Pointer, offset uintptr, k Kind) uint64 {
	if base == nil {
		return 0
	}
	p := unsafe.Pointer(uintptr(base) + offset)
	switch k {
	case KindU8:
		return uint64(*(*uint8)(p))
	case KindBool:
		if *(*uint8)(p) != 0 {
			return 1
		}
		return 0
	case KindU16:
		return uint64(*(*uint16)(p))
	case KindU32:
		return uint64(*(*uint32)(p))
	case KindU64:
		return *(*uint64)(p)
	case KindS8:
		return uint64(int64(*(*int8)(p)))
	case KindS16:
		return uint64(int64(*(*int16)(p)))
	case KindS32:
		return uint64(int64(*(*int32)(p)))
	case KindS64:
		return uint64(*(*int64)(p))
	default:
		return 0
	}
}

// writeMemory stores v (already widened the same way readMemory widens)
// back through the same dispatch. Only ever called with v == 0: the
// only write-back operation this package performs is "clear to zero".
func writeMemory(base unsafe.Pointer, offset uintptr, k Kind, v uint64) {
	if base == nil {
		return
	}
	p := unsafe.Pointer(uintptr(base) + offset)
	switch k {
	case KindU8, KindBool:
		*(*uint8)(p) = uint8(v)
	case KindU16:
		*(*uint16)(p) = uint16(v)
	case KindU32:
		*(*uint32)(p) = uint32(v)
	case KindU64:
		*(*uint64)(p) = v
	case KindS8:
		*(*int8)(p) = int8(v)
	case KindS16:
		*(*int16)(p) = int16(v)
	case KindS32:
		*(*int32)(p) = int32(v)
	case KindS64:
		*(*int64)(p) = int64(v)
	}
}

// asInt64 reinterprets a u64 bit pattern produced by readMemory as a
// signed value of width k, i.e. undoes the sign-extension consistently
// regardless of k's original width.
func asInt64(v uint64, k Kind) int64 {
	switch k {
	case KindS8:
		return int64(int8(v))
	case KindS16:
		return int64(int16(v))
	case KindS32:
		return int64(int32(v))
	default:
		return int64(v)
	}
}
