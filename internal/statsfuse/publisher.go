// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statsfuse

import (
	"fmt"
	"syscall"

	"github.com/ClusterCockpit/cc-statsfs/pkg/statstree"
)

// handle is what Filesystem hands back to statstree as the opaque
// "any" Publisher handle, and what it expects back on RemoveRecursive:
// enough to find and unlink the node from its parent directory.
type handle struct {
	parent *dirNode
	name   string
}

var _ statstree.Publisher = (*Filesystem)(nil)

func (fsys *Filesystem) resolveParent(parent any) (*dirNode, error) {
	if parent == nil {
		return fsys.root, nil
	}
	h, ok := parent.(*handle)
	if !ok {
		return nil, fmt.Errorf("[STATSFUSE]> parent handle of unexpected type %T", parent)
	}
	dn, ok := h.asDir()
	if !ok {
		return nil, fmt.Errorf("[STATSFUSE]> handle %q is not a directory", h.name)
	}
	return dn, nil
}

// asDir resolves a handle back to the dirNode it names, looking it up
// by name under its own parent so RemoveRecursive and further
// CreateDir calls agree on the same live node.
func (h *handle) asDir() (*dirNode, bool) {
	inode := h.parent.GetChild(h.name)
	if inode == nil {
		return nil, false
	}
	dn, ok := inode.Operations().(*dirNode)
	return dn, ok
}

func (fsys *Filesystem) CreateDir(name string, parent any) (any, error) {
	parentDir, err := fsys.resolveParent(parent)
	if err != nil {
		return nil, err
	}
	child := &dirNode{baseNode: baseNode{fsys: fsys}}
	parentDir.addChild(name, child, syscall.S_IFDIR)
	return &handle{parent: parentDir, name: name}, nil
}

func (fsys *Filesystem) CreateValueFile(d *statstree.ValueDescriptor, parent any, cookie statstree.ValueCookie) (any, error) {
	parentDir, err := fsys.resolveParent(parent)
	if err != nil {
		return nil, err
	}
	child := &valueFileNode{baseNode: baseNode{fsys: fsys}, cookie: cookie}
	parentDir.addChild(d.Name, child, syscall.S_IFREG)
	return &handle{parent: parentDir, name: d.Name}, nil
}

func (fsys *Filesystem) CreateSchemaFile(parent any, cookie statstree.SchemaCookie) (any, error) {
	parentDir, err := fsys.resolveParent(parent)
	if err != nil {
		return nil, err
	}
	child := &schemaFileNode{baseNode: baseNode{fsys: fsys}, cookie: cookie}
	parentDir.addChild(".schema", child, syscall.S_IFREG)
	return &handle{parent: parentDir, name: ".schema"}, nil
}

func (fsys *Filesystem) RemoveRecursive(h any) {
	hd, ok := h.(*handle)
	if !ok || hd == nil {
		return
	}
	hd.parent.removeChild(hd.name)
}
