// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package statsfuse is the illustrative, concrete implementation of
// statstree.Publisher: it mirrors a *statstree.Source tree into a real
// FUSE mount using github.com/hanwen/go-fuse/v2. Every producer package
// that builds a stats tree is free to supply a different Publisher (or
// none at all, and only query the tree directly); this package is one
// reasonable host, not the only one.
package statsfuse

import (
	"context"
	"strconv"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/ClusterCockpit/cc-statsfs/pkg/log"
	"github.com/ClusterCockpit/cc-statsfs/pkg/statstree"
)

// Options controls the ownership and permission bits applied to every
// directory this filesystem creates, and the mount options passed to
// the kernel.
type Options struct {
	UID        uint32
	GID        uint32
	DirMode    uint32 // e.g. 0755; 0 defaults to 0755
	AllowOther bool
}

func (o Options) dirMode() uint32 {
	if o.DirMode == 0 {
		return 0755
	}
	return o.DirMode
}

// Filesystem is a statstree.Publisher backed by a live FUSE mount. The
// zero value is not usable; construct with New.
type Filesystem struct {
	opts   Options
	server *fuse.Server
	root   *dirNode
}

// New builds a Filesystem rooted at an empty directory. Call Mount to
// actually expose it at a mountpoint.
func New(opts Options) *Filesystem {
	fsys := &Filesystem{opts: opts}
	fsys.root = &dirNode{baseNode: baseNode{fsys: fsys}}
	return fsys
}

// Mount exposes fsys at mountpoint. The caller's goroutine is not
// blocked: the FUSE server runs in the background, matching
// fs.Mount's own async-serve convention; callers wait on Unmount or
// process shutdown instead.
func (fsys *Filesystem) Mount(mountpoint string) error {
	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			AllowOther: fsys.opts.AllowOther,
			Name:       "cc-statsfs",
			FsName:     "cc-statsfs",
		},
	}
	server, err := fs.Mount(mountpoint, fsys.root, opts)
	if err != nil {
		return err
	}
	fsys.server = server
	log.Infof("[STATSFUSE]> mounted at %s", mountpoint)
	return nil
}

// Unmount tears down the live mount, if any.
func (fsys *Filesystem) Unmount() error {
	if fsys.server == nil {
		return nil
	}
	return fsys.server.Unmount()
}

// Wait blocks until the mount is unmounted, either by this process or
// externally (fusermount -u).
func (fsys *Filesystem) Wait() {
	if fsys.server != nil {
		fsys.server.Wait()
	}
}

func (fsys *Filesystem) setOwner(out *fuse.AttrOut) {
	out.Owner.Uid = fsys.opts.UID
	out.Owner.Gid = fsys.opts.GID
}

// baseNode carries the fields every node in this filesystem needs:
// a back-reference to the owning Filesystem for uid/gid/mode defaults.
type baseNode struct {
	fs.Inode
	fsys *Filesystem
}

func (n *baseNode) setOwnerEntry(out *fuse.EntryOut) {
	out.Owner.Uid = n.fsys.opts.UID
	out.Owner.Gid = n.fsys.opts.GID
}

// dirNode is a directory in the mirrored tree: either the mount root
// or a published statstree.Source's directory. Children are real,
// persistent go-fuse Inodes registered via AddChild/RmChild, so the
// default Lookup/Readdir implementations (which walk the known tree)
// serve this node without any extra bookkeeping here.
type dirNode struct {
	baseNode
}

var _ fs.NodeGetattrer = (*dirNode)(nil)

func (n *dirNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	now := time.Now()
	out.Mode = n.fsys.opts.dirMode() | syscall.S_IFDIR
	n.fsys.setOwner(out)
	out.SetTimes(&now, &now, &now)
	return 0
}

// addChild creates a persistent inode for child and registers it under
// n with the given name, overwriting any stale entry of the same name.
func (n *dirNode) addChild(name string, child fs.InodeEmbedder, mode uint32) *fs.Inode {
	inode := n.NewPersistentInode(context.Background(), child, fs.StableAttr{Mode: mode})
	n.AddChild(name, inode, true)
	return inode
}

func (n *dirNode) removeChild(name string) {
	n.RmChild(name)
}

// valueFileNode is a leaf file exposing one statstree.ValueDescriptor
// on one statstree.Source: read returns the resolved decimal value,
// write accepts only a decimal integer equal to zero and clears it.
type valueFileNode struct {
	baseNode
	cookie statstree.ValueCookie
}

var (
	_ fs.NodeGetattrer = (*valueFileNode)(nil)
	_ fs.NodeOpener    = (*valueFileNode)(nil)
	_ fs.NodeReader    = (*valueFileNode)(nil)
	_ fs.NodeWriter    = (*valueFileNode)(nil)
)

func (n *valueFileNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	now := time.Now()
	out.Mode = uint32(n.cookie.Descriptor.Mode) | syscall.S_IFREG
	n.fsys.setOwner(out)
	out.SetTimes(&now, &now, &now)
	if !n.cookie.Source.TryGet() {
		return syscall.ENOENT
	}
	defer n.cookie.Source.Put()
	v, err := statstree.GetValue(n.cookie.Source, n.cookie.Descriptor)
	if err == nil {
		out.Size = uint64(len(statstree.FormatValue(v, n.cookie.Descriptor.Type)))
	}
	return 0
}

func (n *valueFileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *valueFileNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if !n.cookie.Source.TryGet() {
		return nil, syscall.ENOENT
	}
	defer n.cookie.Source.Put()

	v, err := statstree.GetValue(n.cookie.Source, n.cookie.Descriptor)
	if err != nil {
		return nil, syscall.ENOENT
	}
	content := []byte(statstree.FormatValue(v, n.cookie.Descriptor.Type))
	if off >= int64(len(content)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return fuse.ReadResultData(content[off:end]), 0
}

// Write strips trailing newlines and spaces, parses the rest as a
// decimal integer, and clears the descriptor if it equals zero ("0",
// "00", "+0" and "-0" are all accepted); any other payload is rejected
// with EINVAL.
func (n *valueFileNode) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	trimmed := trimTrailingNewline(data)
	val, err := strconv.ParseInt(string(trimmed), 10, 64)
	if err != nil || val != 0 {
		return 0, syscall.EINVAL
	}

	if !n.cookie.Source.TryGet() {
		return 0, syscall.ENOENT
	}
	defer n.cookie.Source.Put()

	if err := statstree.Clear(n.cookie.Source, n.cookie.Descriptor); err != nil {
		return 0, syscall.EINVAL
	}
	return uint32(len(data)), 0
}

func trimTrailingNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == ' ') {
		b = b[:len(b)-1]
	}
	return b
}

// schemaFileNode is the read-only ".schema" file published once per
// source.
type schemaFileNode struct {
	baseNode
	cookie statstree.SchemaCookie
}

var (
	_ fs.NodeGetattrer = (*schemaFileNode)(nil)
	_ fs.NodeOpener    = (*schemaFileNode)(nil)
	_ fs.NodeReader    = (*schemaFileNode)(nil)
)

func (n *schemaFileNode) render() []byte {
	return []byte(statstree.RenderSchema(n.cookie.Source))
}

func (n *schemaFileNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	now := time.Now()
	out.Mode = 0444 | syscall.S_IFREG
	n.fsys.setOwner(out)
	out.Size = uint64(len(n.render()))
	out.SetTimes(&now, &now, &now)
	return 0
}

func (n *schemaFileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *schemaFileNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	content := n.render()
	if off >= int64(len(content)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return fuse.ReadResultData(content[off:end]), 0
}
