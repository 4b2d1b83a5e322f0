// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metricsexport is a companion publishing surface: producers
// register metrics, each published as a small directory of four files
// (annotations, fields, values, version). It is independent of
// pkg/statstree — a metric is not a stats-tree source — but reuses the
// same refcount-then-lock discipline for open/close races.
package metricsexport

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ClusterCockpit/cc-statsfs/pkg/log"
)

// ValueKind selects whether a metric's emitted rows carry a string or
// an integer value, which fields publishes as the type line.
type ValueKind int

const (
	ValueInt ValueKind = iota
	ValueString
)

func (k ValueKind) token() string {
	if k == ValueString {
		return "str"
	}
	return "int"
}

// Callback is invoked once per open of a metric's values file, with a
// freshly allocated Emitter the producer writes rows into.
type Callback func(e *Emitter)

// Metric is one producer-registered measurement.
type Metric struct {
	mu sync.RWMutex

	name        string
	description string
	field0      string
	field1      string
	valueKind   ValueKind
	cumulative  bool
	callback    Callback

	refs int32 // atomic
}

// NewMetric constructs a metric. field0/field1 may be empty, declaring
// arity 0, 1, or 2 accordingly.
func NewMetric(name, description, field0, field1 string, kind ValueKind, cumulative bool, cb Callback) *Metric {
	return &Metric{
		name:        name,
		description: description,
		field0:      field0,
		field1:      field1,
		valueKind:   kind,
		cumulative:  cumulative,
		callback:    cb,
		refs:        1,
	}
}

func (m *Metric) Name() string { return m.name }

func (m *Metric) arity() int {
	switch {
	case m.field0 != "" && m.field1 != "":
		return 2
	case m.field0 != "":
		return 1
	default:
		return 0
	}
}

func (m *Metric) Get() { atomic.AddInt32(&m.refs, 1) }

func (m *Metric) TryGet() bool {
	for {
		cur := atomic.LoadInt32(&m.refs)
		if cur <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&m.refs, cur, cur+1) {
			return true
		}
	}
}

func (m *Metric) Put() {
	if atomic.AddInt32(&m.refs, -1) == 0 {
		log.Debugf("[METRICSEXPORT]> metric %q destroyed", m.name)
	}
}

// Module is a named grouping of metrics: the owning module whose
// refcount is try-incremented alongside the metric's own on every
// values-file open, so a module being torn down can never race an
// in-flight read of one of its metrics.
type Module struct {
	mu      sync.RWMutex
	name    string
	metrics []*Metric

	refs int32 // atomic
}

func NewModule(name string) *Module {
	return &Module{name: name, refs: 1}
}

func (m *Module) Name() string { return m.name }

func (m *Module) Get() { atomic.AddInt32(&m.refs, 1) }

func (m *Module) TryGet() bool {
	for {
		cur := atomic.LoadInt32(&m.refs)
		if cur <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&m.refs, cur, cur+1) {
			return true
		}
	}
}

func (m *Module) Put() {
	atomic.AddInt32(&m.refs, -1)
}

// AddMetric registers metric under m, rejecting a duplicate name.
func (m *Module) AddMetric(metric *Metric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.metrics {
		if existing.name == metric.name {
			return fmt.Errorf("[METRICSEXPORT]> metric %q already registered on module %q", metric.name, m.name)
		}
	}
	m.metrics = append(m.metrics, metric)
	return nil
}

// Metrics returns a shallow snapshot of m's registered metrics.
func (m *Module) Metrics() []*Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Metric, len(m.metrics))
	copy(out, m.metrics)
	return out
}

// Lookup finds a metric by name among m's own metrics.
func (m *Module) Lookup(name string) *Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, metric := range m.metrics {
		if metric.name == name {
			return metric
		}
	}
	return nil
}

// Open acquires, for the duration of a values-file open, a strong
// reference to both module and metric. It fails with ok=false
// (NotFound) if either has already begun tearing down.
func (m *Module) Open(name string) (metric *Metric, release func(), ok bool) {
	if !m.TryGet() {
		return nil, nil, false
	}
	metric = m.Lookup(name)
	if metric == nil || !metric.TryGet() {
		m.Put()
		return nil, nil, false
	}
	return metric, func() {
		metric.Put()
		m.Put()
	}, true
}
