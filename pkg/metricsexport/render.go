// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricsexport

import (
	"fmt"
	"strings"

	"github.com/ClusterCockpit/cc-statsfs/pkg/statstree"
)

const (
	AnnotationsBufferCap = 1024
	FieldsBufferCap      = 1024
	VersionBufferCap     = 8
)

// RenderAnnotations builds the "annotations" file body. Returns
// ErrOutOfMemory if the rendered content would exceed
// AnnotationsBufferCap — failing at open time rather than exposing a
// truncated file.
func RenderAnnotations(m *Metric) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var b strings.Builder
	fmt.Fprintf(&b, "DESCRIPTION %q\n", Escape(m.description))
	if m.cumulative {
		b.WriteString("CUMULATIVE\n")
	}

	out := b.String()
	if len(out) > AnnotationsBufferCap {
		return "", outOfMemory(fmt.Sprintf("annotations for metric %q exceed %d bytes", m.name, AnnotationsBufferCap))
	}
	return out, nil
}

// RenderFields builds the "fields" file body: a header line of
// space-separated field names ending in "value", then a type line of
// str/int tokens.
func RenderFields(m *Metric) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names, types []string
	if m.field0 != "" {
		names = append(names, m.field0)
		types = append(types, "str")
	}
	if m.field1 != "" {
		names = append(names, m.field1)
		types = append(types, "str")
	}
	names = append(names, "value")
	types = append(types, m.valueKind.token())

	out := strings.Join(names, " ") + "\n" + strings.Join(types, " ") + "\n"
	if len(out) > FieldsBufferCap {
		return "", outOfMemory(fmt.Sprintf("fields for metric %q exceed %d bytes", m.name, FieldsBufferCap))
	}
	return out, nil
}

// RenderVersion returns the literal contents of the "version" file.
func RenderVersion() string {
	return "1\n"
}

// RenderValues runs m's registered callback against a fresh Emitter
// and returns its committed bytes — the contents served back to
// subsequent reads of a "values" file opened on m.
func RenderValues(m *Metric) []byte {
	e := newEmitter(m)
	if m.callback != nil {
		m.callback(e)
	}
	return e.Bytes()
}

func outOfMemory(msg string) error {
	return statstree.NewError(statstree.ErrOutOfMemory, msg)
}
