// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-statsfs.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statsfuse

import (
	"context"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/ClusterCockpit/cc-statsfs/pkg/metricsexport"
)

// PublishModule mirrors module's metrics surface under parent (nil for
// the mount root): one directory per module, one subdirectory per
// metric, each holding annotations, fields, values, and version files.
func (fsys *Filesystem) PublishModule(module *metricsexport.Module, parent any) (any, error) {
	dirHandle, err := fsys.CreateDir(module.Name(), parent)
	if err != nil {
		return nil, err
	}
	for _, metric := range module.Metrics() {
		metricDirHandle, err := fsys.CreateDir(metric.Name(), dirHandle)
		if err != nil {
			return nil, err
		}
		metricParent := metricDirHandle.(*handle)
		metricDir, _ := metricParent.asDir()

		metricDir.addChild("annotations", &metricTextFileNode{
			baseNode: baseNode{fsys: fsys}, module: module, metric: metric, kind: fileAnnotations,
		}, syscall.S_IFREG)
		metricDir.addChild("fields", &metricTextFileNode{
			baseNode: baseNode{fsys: fsys}, module: module, metric: metric, kind: fileFields,
		}, syscall.S_IFREG)
		metricDir.addChild("values", &metricTextFileNode{
			baseNode: baseNode{fsys: fsys}, module: module, metric: metric, kind: fileValues,
		}, syscall.S_IFREG)
		metricDir.addChild("version", &metricTextFileNode{
			baseNode: baseNode{fsys: fsys}, module: module, metric: metric, kind: fileVersion,
		}, syscall.S_IFREG)
	}

	return dirHandle, nil
}

type metricFileKind int

const (
	fileAnnotations metricFileKind = iota
	fileFields
	fileValues
	fileVersion
)

// metricTextFileNode serves one of a metric's four read-only files.
// values is snapshotted once per open via metricValuesHandle; the
// other three kinds render directly from render() on every call.
type metricTextFileNode struct {
	baseNode
	module *metricsexport.Module
	metric *metricsexport.Metric
	kind   metricFileKind
}

var (
	_ fs.NodeGetattrer = (*metricTextFileNode)(nil)
	_ fs.NodeOpener    = (*metricTextFileNode)(nil)
	_ fs.NodeReader    = (*metricTextFileNode)(nil)
)

// metricValuesHandle pins one rendering of a values file for the
// lifetime of a single open: the Emitter runs exactly once, in Open,
// and every later Getattr/Read against that file descriptor serves
// the same bytes, the way /proc-style dynamic-content files tie their
// view to the handle rather than the inode. module and metric stay
// try-got until Release so the producer's backing state cannot be
// torn down while the descriptor is outstanding.
type metricValuesHandle struct {
	content []byte
	release func()
}

var _ fs.FileReleaser = (*metricValuesHandle)(nil)

func (h *metricValuesHandle) Release(ctx context.Context) syscall.Errno {
	h.release()
	return 0
}

func (n *metricTextFileNode) render() ([]byte, syscall.Errno) {
	switch n.kind {
	case fileAnnotations:
		out, err := metricsexport.RenderAnnotations(n.metric)
		if err != nil {
			return nil, syscall.ENOMEM
		}
		return []byte(out), 0
	case fileFields:
		out, err := metricsexport.RenderFields(n.metric)
		if err != nil {
			return nil, syscall.ENOMEM
		}
		return []byte(out), 0
	case fileVersion:
		return []byte(metricsexport.RenderVersion()), 0
	case fileValues:
		_, release, ok := n.module.Open(n.metric.Name())
		if !ok {
			return nil, syscall.ENOENT
		}
		defer release()
		return metricsexport.RenderValues(n.metric), 0
	default:
		return nil, syscall.EIO
	}
}

func (n *metricTextFileNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	now := time.Now()
	out.Mode = 0444 | syscall.S_IFREG
	n.fsys.setOwner(out)
	out.SetTimes(&now, &now, &now)

	if h, ok := f.(*metricValuesHandle); ok {
		out.Size = uint64(len(h.content))
		return 0
	}

	content, errno := n.render()
	if errno != 0 {
		return errno
	}
	out.Size = uint64(len(content))
	return 0
}

// Open renders values once, up front, for kind == fileValues, so the
// snapshot a later Getattr reports and the bytes a later Read returns
// can never disagree; the other three kinds stay stateless since their
// render is cheap and idempotent.
func (n *metricTextFileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if n.kind != fileValues {
		return nil, fuse.FOPEN_DIRECT_IO, 0
	}
	_, release, ok := n.module.Open(n.metric.Name())
	if !ok {
		return nil, 0, syscall.ENOENT
	}
	content := metricsexport.RenderValues(n.metric)
	return &metricValuesHandle{content: content, release: release}, fuse.FOPEN_DIRECT_IO, 0
}

func (n *metricTextFileNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	var content []byte
	if h, ok := f.(*metricValuesHandle); ok {
		content = h.content
	} else {
		var errno syscall.Errno
		content, errno = n.render()
		if errno != 0 {
			return nil, errno
		}
	}
	if off >= int64(len(content)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return fuse.ReadResultData(content[off:end]), 0
}
