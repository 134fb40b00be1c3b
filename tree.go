// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package gistviz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pgindex/gistviz/internal/page"
	"github.com/xlab/treeprint"
)

// Tree is a fully materialized snapshot of the index topology.
type Tree struct {
	Root *TreeNode
}

// TreeNode is one page of the snapshot. Children is nil for a leaf page and
// non-nil (possibly empty, when the walk was depth-bounded) for an internal
// page; the distinction is what IsLeaf reports.
type TreeNode struct {
	// Offset is the 1-based slot position of this node's downlink within
	// its parent; 0 for the root.
	Offset    uint16
	Block     uint32
	MaxOffset uint16
	FreeSpace int
	// RightLink is the right-sibling block, or page.InvalidBlock.
	RightLink uint32
	Children  []*TreeNode
}

func newTreeNode(info nodeInfo, offset uint16, blk uint32) *TreeNode {
	n := &TreeNode{
		Offset:    offset,
		Block:     blk,
		MaxOffset: info.maxOffset,
		FreeSpace: info.freeSpace,
		RightLink: info.rightLink,
	}
	if !info.isLeaf {
		n.Children = make([]*TreeNode, 0, info.maxOffset)
	}
	return n
}

// IsLeaf reports whether the node is a leaf page.
func (n *TreeNode) IsLeaf() bool {
	return n.Children == nil
}

// RightSibling returns the right-sibling block number, or ok=false when the
// node has none.
func (n *TreeNode) RightSibling() (blk uint32, ok bool) {
	if n.RightLink == page.InvalidBlock {
		return 0, false
	}
	return n.RightLink, true
}

// Occupied returns the fraction of the page's usable capacity consumed by
// line pointers and item data, in [0,1].
func (n *TreeNode) Occupied() float64 {
	return (page.UsableSize - float64(n.FreeSpace)) / page.UsableSize
}

func (n *TreeNode) rightLinkString() string {
	if blk, ok := n.RightSibling(); ok {
		return strconv.FormatUint(uint64(blk), 10)
	}
	return "Invalid Block"
}

func (n *TreeNode) label(level int) string {
	return fmt.Sprintf("%d(l:%d) blk: %d numTuple: %d free: %dB (%.2f%%) rightlink: %s",
		n.Offset, level, n.Block, n.MaxOffset, n.FreeSpace, n.Occupied()*100, n.rightLinkString())
}

func (n *TreeNode) write(sb *strings.Builder, level int) {
	for i := 0; i < level; i++ {
		sb.WriteString("    ")
	}
	sb.WriteString(n.label(level))
	sb.WriteByte('\n')
	for _, child := range n.Children {
		child.write(sb, level+1)
	}
}

// String renders the snapshot one line per node in pre-order, indented four
// spaces per level.
func (t *Tree) String() string {
	var sb strings.Builder
	t.Root.write(&sb, 0)
	return sb.String()
}

// Pretty renders the snapshot with box-drawing connectors instead of plain
// indentation. The per-node text matches String.
func (t *Tree) Pretty() string {
	tp := treeprint.New()
	tp.SetValue(t.Root.label(0))
	t.Root.branch(tp, 1)
	return tp.String()
}

func (n *TreeNode) branch(tp treeprint.Tree, level int) {
	for _, child := range n.Children {
		if len(child.Children) == 0 {
			tp.AddNode(child.label(level))
			continue
		}
		child.branch(tp.AddBranch(child.label(level)), level+1)
	}
}
