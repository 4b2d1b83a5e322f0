// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricsexport

import (
	"strconv"

	"github.com/ClusterCockpit/cc-statsfs/pkg/log"
)

// ValuesBufferCap is the fixed capacity of a values file's per-open
// scratch buffer.
const ValuesBufferCap = 64 * 1024

// Emitter is the per-open scratch buffer a producer's callback writes
// rows into. Each Emit call is atomic: either the whole row fits in
// the remaining capacity, or the write is rolled back to the
// checkpoint taken before it and the row (and everything the producer
// attempts afterwards) is silently dropped, never partially written.
type Emitter struct {
	metric   *Metric
	buf      []byte
	overflow bool
}

func newEmitter(m *Metric) *Emitter {
	return &Emitter{metric: m, buf: make([]byte, 0, ValuesBufferCap)}
}

// Bytes returns the emitter's committed contents so far.
func (e *Emitter) Bytes() []byte {
	return e.buf
}

// EmitInt appends one row whose value is the decimal encoding of v,
// followed by fields (in order) and a trailing newline.
func (e *Emitter) EmitInt(v int64, fields ...string) {
	checkArity(e.metric, len(fields))
	e.emitRow(strconv.FormatInt(v, 10), fields)
}

// EmitStr appends one row whose value is the escaped string v.
func (e *Emitter) EmitStr(v string, fields ...string) {
	checkArity(e.metric, len(fields))
	e.emitRow(Escape(v), fields)
}

func (e *Emitter) emitRow(value string, fields []string) {
	if e.overflow {
		return
	}

	checkpoint := len(e.buf)
	row := make([]byte, 0, 64)
	for _, f := range fields {
		row = append(row, Escape(f)...)
		row = append(row, ' ')
	}
	row = append(row, value...)
	row = append(row, '\n')

	if len(e.buf)+len(row) > cap(e.buf) {
		e.buf = e.buf[:checkpoint]
		e.overflow = true
		log.Debugf("[METRICSEXPORT]> values buffer full at %d bytes, row dropped", checkpoint)
		return
	}
	e.buf = append(e.buf, row...)
}

// checkArity logs (but does not fail on) a field-count mismatch
// against metric's declared arity.
func checkArity(m *Metric, got int) {
	if want := m.arity(); want != got {
		log.Warnf("[METRICSEXPORT]> metric %q: expected %d fields, got %d", m.name, want, got)
	}
}
