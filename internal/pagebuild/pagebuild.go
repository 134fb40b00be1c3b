// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package pagebuild constructs byte-exact GiST index files for tests: single
// pages via PageBuilder, and whole index files from a declarative node tree.
// The inspector proper never writes anything; this package exists so tests
// can fabricate the on-disk structures the inspector decodes.
package pagebuild

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/pgindex/gistviz/internal/page"
	"github.com/pgindex/gistviz/vfs"
)

const (
	gistSpecialOffset = page.BlockSize - page.GistOpaqueSize

	// lpNormal is the line pointer state for a live item.
	lpNormal = 1

	// pageVersion is the slotted-page layout version stamped into
	// pd_pagesize_version alongside the block size.
	pageVersion = 4

	tupleValidPos   = 0xffff
	tupleInvalidPos = 0xfffe
)

// PageBuilder accumulates items for one page. Items are laid out back to
// front from the special region, each rounded up to 8-byte alignment, with
// line pointers filled in front to back.
type PageBuilder struct {
	items     [][]byte
	flags     uint16
	rightLink uint32
}

// NewPage returns a builder for a page with no right sibling.
func NewPage() *PageBuilder {
	return &PageBuilder{rightLink: page.InvalidBlock}
}

// SetOpaque sets the GiST opaque flags and right link.
func (b *PageBuilder) SetOpaque(flags uint16, rightLink uint32) {
	b.flags = flags
	b.rightLink = rightLink
}

// AddItem appends an item, returning its 1-based slot position.
func (b *PageBuilder) AddItem(item []byte) int {
	b.items = append(b.items, item)
	return len(b.items)
}

// Finish lays the page out and returns the raw block.
func (b *PageBuilder) Finish() ([]byte, error) {
	data := make([]byte, page.BlockSize)
	lower := page.HeaderSize + len(b.items)*page.LinePointerSize
	upper := gistSpecialOffset
	for i, item := range b.items {
		alignedLen := (len(item) + 7) &^ 7
		upper -= alignedLen
		if upper < lower {
			return nil, errors.Errorf("pagebuild: %d items overflow the page", len(b.items))
		}
		copy(data[upper:], item)
		lp := uint32(upper) | lpNormal<<15 | uint32(len(item))<<17
		binary.LittleEndian.PutUint32(data[page.HeaderSize+i*page.LinePointerSize:], lp)
	}
	binary.LittleEndian.PutUint16(data[12:], uint16(lower))
	binary.LittleEndian.PutUint16(data[14:], uint16(upper))
	binary.LittleEndian.PutUint16(data[16:], uint16(gistSpecialOffset))
	binary.LittleEndian.PutUint16(data[18:], page.BlockSize|pageVersion)

	opaque := data[gistSpecialOffset:]
	binary.LittleEndian.PutUint32(opaque[8:], b.rightLink)
	binary.LittleEndian.PutUint16(opaque[12:], b.flags)
	binary.LittleEndian.PutUint16(opaque[14:], page.GistPageID)
	return data, nil
}

// DownlinkTuple encodes an internal-page index tuple pointing at child,
// optionally carrying the invalid-placeholder marker.
func DownlinkTuple(child uint32, invalid bool) []byte {
	tup := make([]byte, 8)
	binary.LittleEndian.PutUint16(tup, uint16(child>>16))
	binary.LittleEndian.PutUint16(tup[2:], uint16(child))
	pos := uint16(tupleValidPos)
	if invalid {
		pos = tupleInvalidPos
	}
	binary.LittleEndian.PutUint16(tup[4:], pos)
	binary.LittleEndian.PutUint16(tup[6:], 8)
	return tup
}

// LeafTuple encodes a minimal leaf-page tuple. The inspector never looks
// inside leaf tuples, so a bare header suffices.
func LeafTuple() []byte {
	tup := make([]byte, 8)
	binary.LittleEndian.PutUint16(tup[4:], 1)
	binary.LittleEndian.PutUint16(tup[6:], 8)
	return tup
}

// Node declares one page of a synthetic index tree.
type Node struct {
	// NumTuples is the leaf tuple count; ignored for internal nodes,
	// whose tuple count is the number of children.
	NumTuples int
	// InvalidDownlink marks the parent's downlink to this node as a
	// placeholder. Meaningless on the root.
	InvalidDownlink bool
	// Children, when non-nil, makes this an internal node.
	Children []*Node

	blk uint32
}

// Leaf returns a leaf node holding n tuples.
func Leaf(n int) *Node {
	return &Node{NumTuples: n}
}

// Internal returns an internal node over the given children.
func Internal(children ...*Node) *Node {
	return &Node{Children: children}
}

// Invalid marks the downlink to this node invalid and returns it.
func (n *Node) Invalid() *Node {
	n.InvalidDownlink = true
	return n
}

// Build assigns block numbers pre-order from the root at block 0, links each
// run of siblings left to right, and returns the raw blocks in block order.
func (root *Node) Build() ([][]byte, error) {
	var order []*Node
	var number func(n *Node)
	number = func(n *Node) {
		n.blk = uint32(len(order))
		order = append(order, n)
		for _, c := range n.Children {
			number(c)
		}
	}
	number(root)

	blocks := make([][]byte, len(order))
	var build func(n *Node, rightLink uint32) error
	build = func(n *Node, rightLink uint32) error {
		b := NewPage()
		if n.Children == nil {
			b.SetOpaque(page.FLeaf, rightLink)
			for i := 0; i < n.NumTuples; i++ {
				b.AddItem(LeafTuple())
			}
		} else {
			b.SetOpaque(0, rightLink)
			for _, c := range n.Children {
				b.AddItem(DownlinkTuple(c.blk, c.InvalidDownlink))
			}
		}
		blk, err := b.Finish()
		if err != nil {
			return err
		}
		blocks[n.blk] = blk
		for i, c := range n.Children {
			sibling := page.InvalidBlock
			if i+1 < len(n.Children) {
				sibling = n.Children[i+1].blk
			}
			if err := build(c, sibling); err != nil {
				return err
			}
		}
		return nil
	}
	if err := build(root, page.InvalidBlock); err != nil {
		return nil, err
	}
	return blocks, nil
}

// WriteFile builds the tree rooted at root and writes it as an index file at
// path on fs.
func WriteFile(fs vfs.FS, path string, root *Node) error {
	blocks, err := root.Build()
	if err != nil {
		return err
	}
	f, err := fs.Create(path)
	if err != nil {
		return err
	}
	for _, blk := range blocks {
		if _, err := f.Write(blk); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}
