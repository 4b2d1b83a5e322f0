// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package metricsexport

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClusterCockpit/cc-statsfs/pkg/statstree"
)

// Escape round-trip.
func TestEscapeRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"plain",
		"has space",
		"back\\slash",
		"line\nbreak",
		"mix \\ of \n everything\\",
	}
	for _, s := range cases {
		assert.Equal(t, s, Unescape(Escape(s)))
	}
}

// 10000 rows end cleanly at the last row that fully fits in 64 KiB,
// no partial row.
func TestTruncationNoPartialRow(t *testing.T) {
	m := NewMetric("throughput", "demo", "label", "", ValueInt, false, nil)
	e := newEmitter(m)

	rowsWritten := 0
	for i := 0; i < 10000; i++ {
		before := len(e.Bytes())
		e.EmitInt(int64(i), fmt.Sprintf("val%d", i))
		if len(e.Bytes()) > before {
			rowsWritten++
		}
	}

	content := e.Bytes()
	assert.LessOrEqual(t, len(content), ValuesBufferCap)
	assert.True(t, strings.HasSuffix(string(content), "\n"), "buffer must end on a full row, never a partial one")
	assert.Less(t, rowsWritten, 10000, "64 KiB cannot hold 10000 rows, so truncation must have occurred")

	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	assert.Equal(t, rowsWritten, len(lines))
}

// Once the emitter has overflowed, the cursor does not move and no
// further partial rows appear.
func TestEmitterStopsCommittingAfterOverflow(t *testing.T) {
	m := NewMetric("m", "", "", "", ValueInt, false, nil)
	e := newEmitter(m)
	big := strings.Repeat("x", ValuesBufferCap)
	e.EmitStr(big) // does not fit at all, dropped
	assert.Empty(t, e.Bytes())

	e.EmitInt(1)
	assert.Empty(t, e.Bytes())
}

// An over-long annotation description fails OutOfMemory at render
// (open) time, no partial annotations visible.
func TestAnnotationsOverflow(t *testing.T) {
	longDesc := strings.Repeat("d", AnnotationsBufferCap+1)
	m := NewMetric("m", longDesc, "", "", ValueInt, false, nil)

	_, err := RenderAnnotations(m)
	require.Error(t, err)
	assert.ErrorIs(t, err, statstree.ErrOutOfMemory)
}

func TestRenderAnnotationsCumulative(t *testing.T) {
	m := NewMetric("m", "a counter", "", "", ValueInt, true, nil)
	out, err := RenderAnnotations(m)
	require.NoError(t, err)
	assert.Contains(t, out, "DESCRIPTION")
	assert.Contains(t, out, "CUMULATIVE")
}

func TestRenderFieldsArityAndTypes(t *testing.T) {
	m := NewMetric("m", "", "host", "cpu", ValueString, false, nil)
	out, err := RenderFields(m)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "host cpu value", lines[0])
	assert.Equal(t, "str str str", lines[1])
}

func TestRenderVersion(t *testing.T) {
	assert.Equal(t, "1\n", RenderVersion())
}

func TestModuleOpenRacesDestruction(t *testing.T) {
	mod := NewModule("subsys")
	metric := NewMetric("m", "", "", "", ValueInt, false, func(e *Emitter) { e.EmitInt(42) })
	require.NoError(t, mod.AddMetric(metric))

	got, release, ok := mod.Open("m")
	require.True(t, ok)
	require.NotNil(t, release)
	assert.Equal(t, metric, got)
	release()

	mod.Put() // module's own single ref
	_, _, ok = mod.Open("m")
	assert.False(t, ok)
}

func TestModuleAddMetricRejectsDuplicateName(t *testing.T) {
	mod := NewModule("subsys")
	require.NoError(t, mod.AddMetric(NewMetric("m", "", "", "", ValueInt, false, nil)))
	err := mod.AddMetric(NewMetric("m", "", "", "", ValueInt, false, nil))
	assert.Error(t, err)
}

func TestRenderValuesInvokesCallback(t *testing.T) {
	m := NewMetric("m", "", "label", "", ValueInt, false, func(e *Emitter) {
		e.EmitInt(1, "a")
		e.EmitInt(2, "b")
	})
	out := RenderValues(m)
	assert.Equal(t, "a 1\nb 2\n", string(out))
}
