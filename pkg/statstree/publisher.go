// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statstree

import "fmt"

// Publisher is the abstraction the host filesystem implements so that
// the stats tree can mirror itself into a namespace without this
// package knowing anything about directories, inodes, or permission
// bits. One directory per source, one file per value, one schema file
// per source. See internal/statsfuse for a concrete, illustrative
// implementation built on FUSE.
type Publisher interface {
	// CreateDir makes a directory named name under parent (nil for the
	// tree root) and returns an opaque handle to it.
	CreateDir(name string, parent any) (any, error)

	// CreateValueFile makes a file named d.Name with permission d.Mode
	// under parent. cookie identifies the (source, descriptor) pair the
	// host must resolve back to on open/read/write.
	CreateValueFile(d *ValueDescriptor, parent any, cookie ValueCookie) (any, error)

	// CreateSchemaFile makes the ".schema" file under parent. cookie
	// identifies the source whose schema it renders.
	CreateSchemaFile(parent any, cookie SchemaCookie) (any, error)

	// RemoveRecursive tears down handle and everything published below
	// it (a directory removes its files and subdirectories).
	RemoveRecursive(handle any)
}

// ValueCookie is what a Publisher hands back to the host on open/read/
// write of a value file: the (source, descriptor) pair the host passes
// to GetValue or Clear.
type ValueCookie struct {
	Source     *Source
	Descriptor *ValueDescriptor
}

// SchemaCookie is the schema-file equivalent of ValueCookie.
type SchemaCookie struct {
	Source *Source
}

// Publish registers s (and its already-linked subtree) with pub under
// parentHandle (nil for a tree root). It is idempotent: calling it
// again on an already-published source is a no-op. Subsequent
// AddBinding/AddSubordinate calls on a published source publish
// incrementally.
func (s *Source) Publish(pub Publisher, parentHandle any) error {
	return s.publishTree(pub, parentHandle)
}

func (s *Source) publishTree(pub Publisher, parentHandle any) error {
	s.mu.Lock()
	if s.pub != nil {
		s.mu.Unlock()
		return nil
	}

	dir, err := pub.CreateDir(s.name, parentHandle)
	if err != nil {
		s.mu.Unlock()
		return newError(ErrOutOfMemory, fmt.Sprintf("creating directory for source %q: %s", s.name, err.Error()))
	}
	s.pub = pub
	s.dirHandle = dir

	schemaHandle, err := pub.CreateSchemaFile(dir, SchemaCookie{Source: s})
	if err != nil {
		s.pub = nil
		s.dirHandle = nil
		s.mu.Unlock()
		pub.RemoveRecursive(dir)
		return newError(ErrOutOfMemory, fmt.Sprintf("creating schema file for source %q: %s", s.name, err.Error()))
	}
	s.schemaFile = schemaHandle

	for _, b := range s.bindings {
		s.publishBindingLocked(b)
	}

	children := make([]*Source, len(s.subordinates))
	copy(children, s.subordinates)
	s.mu.Unlock()

	for _, child := range children {
		if err := child.publishTree(pub, dir); err != nil {
			return err
		}
	}
	return nil
}

// publishBindingLocked materialises one file per descriptor in b.Values
// under s.dirHandle. Must be called with s.mu held for writing and
// s.pub/s.dirHandle already set. Idempotent via b.filesCreated.
func (s *Source) publishBindingLocked(b *ValueBinding) {
	if b.filesCreated {
		return
	}
	values := *b.Values
	files := make([]any, len(values))
	for i := range values {
		h, err := s.pub.CreateValueFile(&values[i], s.dirHandle, ValueCookie{Source: s, Descriptor: &values[i]})
		if err != nil {
			for _, created := range files {
				if created != nil {
					s.pub.RemoveRecursive(created)
				}
			}
			return
		}
		files[i] = h
	}
	b.files = files
	b.filesCreated = true
}

// Unpublish tears down every file and directory s registered with its
// Publisher, leaving the in-memory tree structure untouched. Used when
// a source is pulled from the namespace without being destroyed, e.g.
// a producer that wants to temporarily hide a subtree.
func (s *Source) Unpublish() {
	s.mu.Lock()
	pub := s.pub
	dir := s.dirHandle
	s.pub = nil
	s.dirHandle = nil
	s.schemaFile = nil
	for _, b := range s.bindings {
		b.filesCreated = false
		b.files = nil
	}
	s.mu.Unlock()

	if pub != nil && dir != nil {
		pub.RemoveRecursive(dir)
	}
}
