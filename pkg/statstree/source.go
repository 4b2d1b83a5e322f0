// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statstree

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ClusterCockpit/cc-statsfs/pkg/log"
)

// Label is one (key, value) pair attached to a Source. Label 0 of any
// source is always (labelKey, name); every subsequent label is one
// inherited from an ancestor at link time.
type Label struct {
	Key   string
	Value string
}

// Source is a named node in the stats tree: the addressable unit of
// publication.
//
// The tree is a strict tree: subordinates are owned top-down, and
// parent is a weak, non-owning back-reference (mirrored from the
// go-fuse Inode.parents bookkeeping) set by AddSubordinate and cleared
// by RemoveSubordinate and by the parent's destroy. No operation reads
// it: destruction does not consult it, it never extends a Source's
// lifetime, and producers must not create cycles.
type Source struct {
	mu sync.RWMutex

	name     string
	labelKey string
	labels   []Label
	bindings []*ValueBinding

	subordinates []*Source
	parent       *Source

	refs int32 // atomic; see get/put

	pub        Publisher
	dirHandle  any
	schemaFile any
}

// Create formats name and labelKey the same way fmt.Sprintf does,
// initialises empty bindings/subordinates, seeds labels with the single
// pair (labelKey, name), and sets refcount to 1 for the caller.
func Create(nameFmt string, labelKeyFmt string, args ...any) *Source {
	name := nameFmt
	labelKey := labelKeyFmt
	if len(args) > 0 {
		name = fmt.Sprintf(nameFmt, args...)
		labelKey = fmt.Sprintf(labelKeyFmt, args...)
	}
	s := &Source{
		name:     name,
		labelKey: labelKey,
		refs:     1,
	}
	s.labels = []Label{{Key: labelKey, Value: name}}
	return s
}

// Name returns the source's formatted name.
func (s *Source) Name() string {
	return s.name
}

// Get acquires a strong reference unconditionally; callers that already
// know the source is alive (e.g. they hold the reference that created
// it) use this. Concurrent lookups that only hold a weak/published
// handle must use TryGet instead.
func (s *Source) Get() {
	atomic.AddInt32(&s.refs, 1)
}

// TryGet acquires a strong reference unless the source's count has
// already reached zero, i.e. it is being (or has been) destroyed. This
// is the primitive that lets an open() race a final Put() safely: the
// open either observes a live reference and wins, or observes zero and
// fails with ErrNotFound — it can never observe a half-destroyed node.
func (s *Source) TryGet() bool {
	for {
		cur := atomic.LoadInt32(&s.refs)
		if cur <= 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&s.refs, cur, cur+1) {
			return true
		}
	}
}

// Put releases a strong reference. The goroutine that observes the
// count transition to zero — and only that one — takes the write lock
// and runs destroy(), so no reader can ever observe a node mid-teardown.
func (s *Source) Put() {
	if atomic.AddInt32(&s.refs, -1) == 0 {
		s.destroy()
	}
}

// destroy frees bindings (not their backing memory), unlinks every
// remaining child (recursively dropping one reference per child), tears
// down published files, and marks the node dead. It runs at most once
// per Source, guaranteed by the refcount-to-zero handoff in Put.
func (s *Source) destroy() {
	s.mu.Lock()
	children := s.subordinates
	s.subordinates = nil
	bindings := s.bindings
	s.bindings = nil
	pub := s.pub
	dirHandle := s.dirHandle
	s.pub = nil
	s.dirHandle = nil
	s.schemaFile = nil
	s.labels = nil
	s.parent = nil
	s.mu.Unlock()

	for _, b := range bindings {
		b.files = nil
	}

	for _, child := range children {
		child.mu.Lock()
		if child.parent == s {
			child.parent = nil
		}
		child.mu.Unlock()
		child.Put()
	}

	if pub != nil && dirHandle != nil {
		pub.RemoveRecursive(dirHandle)
	}

	log.Debugf("[STATSFS]> source %q destroyed", s.name)
}

// AddBinding attaches values/base to s. It fails with ErrAlreadyExists
// if a binding with the identical (values, base) pair is already
// present; otherwise it appends and, if s is already published,
// materialises one file per descriptor in values.
func (s *Source) AddBinding(values *ValueArray, base unsafe.Pointer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bindings {
		if b.sameAs(values, base) {
			return newError(ErrAlreadyExists, fmt.Sprintf("binding already present on source %q", s.name))
		}
	}

	b := &ValueBinding{Values: values, Base: base}
	s.bindings = append(s.bindings, b)

	if s.pub != nil {
		s.publishBindingLocked(b)
	}
	return nil
}

// AddSubordinate links child under s: bumps child's refcount, appends
// it to s's subordinates, and copies every label currently on s onto
// child (deep copy — later mutation of s.labels, e.g. by further
// linking, does not retroactively change child). If s is already
// published, child's subtree is published too.
func (s *Source) AddSubordinate(child *Source) {
	child.Get()

	s.mu.Lock()
	parentLabels := make([]Label, len(s.labels))
	copy(parentLabels, s.labels)
	s.subordinates = append(s.subordinates, child)
	pub := s.pub
	dirHandle := s.dirHandle
	s.mu.Unlock()

	child.mu.Lock()
	child.labels = append(child.labels, parentLabels...)
	child.parent = s
	child.mu.Unlock()

	if pub != nil {
		if err := child.publishTree(pub, dirHandle); err != nil {
			log.Warnf("[STATSFS]> publishing subordinate %q of %q: %s", child.name, s.name, err.Error())
		}
	}
}

// RemoveSubordinate detaches child by pointer identity, tears down its
// published files, and releases the one reference AddSubordinate took.
// No-op if child is not currently a subordinate of s.
func (s *Source) RemoveSubordinate(child *Source) {
	s.mu.Lock()
	idx := -1
	for i, c := range s.subordinates {
		if c == child {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.subordinates = append(s.subordinates[:idx], s.subordinates[idx+1:]...)
	s.mu.Unlock()

	child.mu.Lock()
	pub := child.pub
	dirHandle := child.dirHandle
	child.pub = nil
	child.dirHandle = nil
	child.schemaFile = nil
	if child.parent == s {
		child.parent = nil
	}
	child.mu.Unlock()

	if pub != nil && dirHandle != nil {
		pub.RemoveRecursive(dirHandle)
	}

	child.Put()
}

// snapshotChildren returns a shallow copy of s's current subordinate
// list under a read lock, safe to range over without holding s.mu.
func (s *Source) snapshotChildren() []*Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Source, len(s.subordinates))
	copy(out, s.subordinates)
	return out
}

// snapshotBindings mirrors snapshotChildren for bindings.
func (s *Source) snapshotBindings() []*ValueBinding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ValueBinding, len(s.bindings))
	copy(out, s.bindings)
	return out
}

// snapshotLabels mirrors snapshotChildren for labels.
func (s *Source) snapshotLabels() []Label {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Label, len(s.labels))
	copy(out, s.labels)
	return out
}

// Lookup searches s's own bindings (not subordinates) for a descriptor
// whose address equals needle, returning the owning binding too. This
// is step 1 of the aggregator's resolution procedure.
func (s *Source) Lookup(needle *ValueDescriptor) (*ValueBinding, *ValueDescriptor) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bindings {
		if d := b.Values.find(needle); d != nil {
			return b, d
		}
	}
	return nil, nil
}

// LookupByName scans s's own bindings for a descriptor named name. When
// more than one binding carries that name, the first binding added
// wins.
func (s *Source) LookupByName(name string) (*ValueBinding, *ValueDescriptor) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.bindings {
		if d := b.Values.findByName(name); d != nil {
			return b, d
		}
	}
	return nil, nil
}
