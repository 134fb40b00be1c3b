// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package gistviz inspects the physical structure of a GiST index stored as a
// file of fixed-size pages. It is strictly read-only: it decodes pages,
// walks the tree of downlinks from the root, and reports either the tree
// topology or aggregate occupancy statistics.
package gistviz

import (
	"github.com/cockroachdb/errors"
	"github.com/pgindex/gistviz/internal/page"
	"github.com/pgindex/gistviz/store"
	"github.com/pgindex/gistviz/vfs"
)

// RootBlock is the block number of the tree root. A GiST root never moves.
const RootBlock = 0

// DefaultDepthLimit bounds the recursion depth when Options.DepthLimit is
// zero. The walker trusts the index to be acyclic; the limit exists so that a
// corrupted downlink forming a cycle aborts with an error instead of
// exhausting the stack.
const DefaultDepthLimit = 1000

// Options tunes an Inspector.
type Options struct {
	// FS is the filesystem holding the index file. Defaults to vfs.Default.
	FS vfs.FS
	// CacheSize bounds the store's page cache in bytes. Zero means the
	// store default; negative disables caching.
	CacheSize int64
	// DepthLimit is the hard recursion bound. Zero means
	// DefaultDepthLimit.
	DepthLimit int
}

// Inspector provides read-only access to one index file. The file is held
// under an exclusive lock from Open until Close, so every walk observes one
// stable view.
type Inspector struct {
	store      *store.Store
	depthLimit int
}

// Open locks the index file at path and returns an Inspector over it.
func Open(path string, opts Options) (*Inspector, error) {
	s, err := store.Open(path, store.Options{FS: opts.FS, CacheSize: opts.CacheSize})
	if err != nil {
		return nil, err
	}
	limit := opts.DepthLimit
	if limit == 0 {
		limit = DefaultDepthLimit
	}
	return &Inspector{store: s, depthLimit: limit}, nil
}

// Close releases the inspector's store and the file lock.
func (in *Inspector) Close() error {
	if in.store == nil {
		return nil
	}
	err := in.store.Close()
	in.store = nil
	return err
}

// nodeInfo is the scalar state extracted from one page before its reference
// is released. Only these fields, never the raw page bytes, survive into the
// recursion.
type nodeInfo struct {
	maxOffset uint16
	freeSpace int
	rightLink uint32 // page.InvalidBlock when there is no right sibling
	isLeaf    bool
}

// downlink is one decoded internal-page entry.
type downlink struct {
	child   uint32
	invalid bool
}

// readNode pins the page at blk, extracts the node fields and, for internal
// pages, the downlinks in slot order, and releases the page before returning.
func (in *Inspector) readNode(blk uint32) (nodeInfo, []downlink, error) {
	ref, err := in.store.ReadPage(blk)
	if err != nil {
		return nodeInfo{}, nil, err
	}
	defer ref.Release()

	p := ref.Page
	opaque, err := p.AsGist()
	if err != nil {
		return nodeInfo{}, nil, errors.Wrapf(err, "block %d", blk)
	}
	info := nodeInfo{
		maxOffset: p.MaxOffset(),
		freeSpace: p.FreeSpace(),
		rightLink: opaque.RightLink,
		isLeaf:    opaque.IsLeaf(),
	}
	if info.isLeaf {
		return info, nil, nil
	}
	links := make([]downlink, 0, info.maxOffset)
	for pos := uint16(1); pos <= info.maxOffset; pos++ {
		lp, err := p.LinePointer(pos)
		if err != nil {
			return nodeInfo{}, nil, errors.Wrapf(err, "block %d", blk)
		}
		item, err := p.Item(lp)
		if err != nil {
			return nodeInfo{}, nil, errors.Wrapf(err, "block %d slot %d", blk, pos)
		}
		tup, err := page.DecodeIndexTuple(item)
		if err != nil {
			return nodeInfo{}, nil, errors.Wrapf(err, "block %d slot %d", blk, pos)
		}
		links = append(links, downlink{child: tup.ChildBlock(), invalid: tup.IsInvalid()})
	}
	return info, links, nil
}

// GetTree walks the index from the root and returns a snapshot of its
// topology. A non-negative maxLevel bounds the descent: nodes at that level
// are still materialized, but their children are not visited. A negative
// maxLevel means unbounded.
func (in *Inspector) GetTree(maxLevel int) (*Tree, error) {
	root, err := in.getTreeNode(0, maxLevel, RootBlock, 0)
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root}, nil
}

func (in *Inspector) getTreeNode(level, maxLevel int, blk uint32, offset uint16) (*TreeNode, error) {
	if level > in.depthLimit {
		return nil, errors.Errorf(
			"gistviz: depth limit %d exceeded at block %d; the index may contain a downlink cycle",
			in.depthLimit, blk)
	}
	info, links, err := in.readNode(blk)
	if err != nil {
		return nil, err
	}
	node := newTreeNode(info, offset, blk)
	if info.isLeaf {
		return node, nil
	}
	if maxLevel >= 0 && level >= maxLevel {
		return node, nil
	}
	for i, dl := range links {
		child, err := in.getTreeNode(level+1, maxLevel, dl.child, uint16(i+1))
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// Stats walks the index from the root accumulating occupancy statistics,
// under the same depth-bound semantics as GetTree.
func (in *Inspector) Stats(maxLevel int) (Stats, error) {
	var stats Stats
	if err := in.statsNode(0, maxLevel, RootBlock, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (in *Inspector) statsNode(level, maxLevel int, blk uint32, stats *Stats) error {
	if level > in.depthLimit {
		return errors.Errorf(
			"gistviz: depth limit %d exceeded at block %d; the index may contain a downlink cycle",
			in.depthLimit, blk)
	}
	info, links, err := in.readNode(blk)
	if err != nil {
		return err
	}
	tupleSize := uint64(page.UsableSize - info.freeSpace)

	stats.NumPages++
	stats.TupleSize += tupleSize
	stats.TotalSize += page.BlockSize
	stats.NumTuple += int(info.maxOffset)
	if level > stats.Level {
		stats.Level = level
	}

	if info.isLeaf {
		stats.NumLeafPages++
		stats.LeafTupleSize += tupleSize
		stats.NumLeafTuple += int(info.maxOffset)
		return nil
	}
	for _, dl := range links {
		if dl.invalid {
			stats.NumInvalidTuple++
		}
	}
	if maxLevel >= 0 && level >= maxLevel {
		return nil
	}
	for _, dl := range links {
		// Invalid downlinks still reference a real child page; descend
		// through them like any other.
		if err := in.statsNode(level+1, maxLevel, dl.child, stats); err != nil {
			return err
		}
	}
	return nil
}
