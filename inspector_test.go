// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package gistviz_test

import (
	"testing"

	"github.com/pgindex/gistviz"
	"github.com/pgindex/gistviz/internal/page"
	"github.com/pgindex/gistviz/internal/pagebuild"
	"github.com/pgindex/gistviz/vfs"
	"github.com/stretchr/testify/require"
)

func openIndex(t *testing.T, root *pagebuild.Node) *gistviz.Inspector {
	t.Helper()
	fs := vfs.NewMem()
	require.NoError(t, pagebuild.WriteFile(fs, "idx", root))
	in, err := gistviz.Open("idx", gistviz.Options{FS: fs})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, in.Close()) })
	return in
}

func countNodes(n *gistviz.TreeNode) int {
	total := 1
	for _, c := range n.Children {
		total += countNodes(c)
	}
	return total
}

func TestLeafOnlyIndex(t *testing.T) {
	in := openIndex(t, pagebuild.Leaf(5))

	tree, err := in.GetTree(-1)
	require.NoError(t, err)
	require.True(t, tree.Root.IsLeaf())
	require.Equal(t,
		"0(l:0) blk: 0 numTuple: 5 free: 8088B (0.88%) rightlink: Invalid Block\n",
		tree.String())

	stats, err := in.Stats(-1)
	require.NoError(t, err)
	require.Equal(t, gistviz.Stats{
		Level:         0,
		NumPages:      1,
		NumLeafPages:  1,
		NumTuple:      5,
		NumLeafTuple:  5,
		TupleSize:     72,
		LeafTupleSize: 72,
		TotalSize:     8192,
	}, stats)
}

func TestTwoLevelIndex(t *testing.T) {
	in := openIndex(t, pagebuild.Internal(pagebuild.Leaf(5), pagebuild.Leaf(7)))

	tree, err := in.GetTree(-1)
	require.NoError(t, err)
	require.Equal(t,
		"0(l:0) blk: 0 numTuple: 2 free: 8124B (0.44%) rightlink: Invalid Block\n"+
			"    1(l:1) blk: 1 numTuple: 5 free: 8088B (0.88%) rightlink: 2\n"+
			"    2(l:1) blk: 2 numTuple: 7 free: 8064B (1.18%) rightlink: Invalid Block\n",
		tree.String())

	stats, err := in.Stats(-1)
	require.NoError(t, err)
	require.Equal(t, gistviz.Stats{
		Level:         1,
		NumPages:      3,
		NumLeafPages:  2,
		NumTuple:      14,
		NumLeafTuple:  12,
		TupleSize:     204,
		LeafTupleSize: 168,
		TotalSize:     3 * 8192,
	}, stats)
}

func TestDepthBound(t *testing.T) {
	in := openIndex(t, pagebuild.Internal(pagebuild.Leaf(5), pagebuild.Leaf(7)))

	// A zero bound still materializes the root, childless but not a leaf.
	tree, err := in.GetTree(0)
	require.NoError(t, err)
	require.False(t, tree.Root.IsLeaf())
	require.Empty(t, tree.Root.Children)
	require.Equal(t,
		"0(l:0) blk: 0 numTuple: 2 free: 8124B (0.44%) rightlink: Invalid Block\n",
		tree.String())

	stats, err := in.Stats(0)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Level)
	require.Equal(t, 1, stats.NumPages)
	require.Equal(t, 2, stats.NumTuple)
}

func TestInvalidTupleCount(t *testing.T) {
	in := openIndex(t, pagebuild.Internal(
		pagebuild.Internal(pagebuild.Leaf(1), pagebuild.Leaf(2).Invalid()),
		pagebuild.Internal(pagebuild.Leaf(3)).Invalid(),
	))

	stats, err := in.Stats(-1)
	require.NoError(t, err)
	require.Equal(t, 2, stats.NumInvalidTuple)
	require.Equal(t, 6, stats.NumPages)
	require.Equal(t, 3, stats.NumLeafPages)
	require.Equal(t, 2, stats.Level)
}

func TestStatsMatchesTree(t *testing.T) {
	in := openIndex(t, pagebuild.Internal(
		pagebuild.Internal(pagebuild.Leaf(3), pagebuild.Leaf(4)),
		pagebuild.Leaf(6),
	))

	tree, err := in.GetTree(-1)
	require.NoError(t, err)
	stats, err := in.Stats(-1)
	require.NoError(t, err)
	require.Equal(t, countNodes(tree.Root), stats.NumPages)
}

func TestIdempotence(t *testing.T) {
	in := openIndex(t, pagebuild.Internal(pagebuild.Leaf(5), pagebuild.Leaf(7)))

	tree1, err := in.GetTree(-1)
	require.NoError(t, err)
	tree2, err := in.GetTree(-1)
	require.NoError(t, err)
	require.Equal(t, tree1.String(), tree2.String())

	stats1, err := in.Stats(-1)
	require.NoError(t, err)
	stats2, err := in.Stats(-1)
	require.NoError(t, err)
	require.Equal(t, stats1.String(), stats2.String())
}

func TestRightSiblings(t *testing.T) {
	in := openIndex(t, pagebuild.Internal(
		pagebuild.Leaf(1), pagebuild.Leaf(2), pagebuild.Leaf(3)))

	tree, err := in.GetTree(-1)
	require.NoError(t, err)
	children := tree.Root.Children
	require.Len(t, children, 3)

	blk, ok := children[0].RightSibling()
	require.True(t, ok)
	require.Equal(t, children[1].Block, blk)
	blk, ok = children[1].RightSibling()
	require.True(t, ok)
	require.Equal(t, children[2].Block, blk)
	_, ok = children[2].RightSibling()
	require.False(t, ok)
}

func TestDownlinkCycleAborts(t *testing.T) {
	// An internal root whose downlink points back at itself. The walker
	// trusts acyclicity, so the only guard is the depth limit.
	b := pagebuild.NewPage()
	b.SetOpaque(0, page.InvalidBlock)
	b.AddItem(pagebuild.DownlinkTuple(0, false))
	raw, err := b.Finish()
	require.NoError(t, err)

	fs := vfs.NewMem()
	f, err := fs.Create("cyclic")
	require.NoError(t, err)
	_, err = f.Write(raw)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	in, err := gistviz.Open("cyclic", gistviz.Options{FS: fs, DepthLimit: 8})
	require.NoError(t, err)
	defer in.Close()

	_, err = in.GetTree(-1)
	require.ErrorContains(t, err, "depth limit")
	_, err = in.Stats(-1)
	require.ErrorContains(t, err, "depth limit")
}

func TestCorruptUpperBoundaryAborts(t *testing.T) {
	// A child page whose upper boundary points past the block must abort
	// both walks with a layout error rather than reporting free space
	// beyond the page capacity.
	blocks, err := pagebuild.Internal(pagebuild.Leaf(5), pagebuild.Leaf(7)).Build()
	require.NoError(t, err)
	blocks[1][14] = 0xf0
	blocks[1][15] = 0xff

	fs := vfs.NewMem()
	f, err := fs.Create("corrupt")
	require.NoError(t, err)
	for _, raw := range blocks {
		_, err = f.Write(raw)
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	in, err := gistviz.Open("corrupt", gistviz.Options{FS: fs})
	require.NoError(t, err)
	defer in.Close()

	_, err = in.GetTree(-1)
	require.ErrorContains(t, err, "upper boundary")
	_, err = in.Stats(-1)
	require.ErrorContains(t, err, "upper boundary")
}

func TestPrettyTree(t *testing.T) {
	in := openIndex(t, pagebuild.Internal(pagebuild.Leaf(5), pagebuild.Leaf(7)))

	tree, err := in.GetTree(-1)
	require.NoError(t, err)
	pretty := tree.Pretty()
	require.Contains(t, pretty, "0(l:0) blk: 0")
	require.Contains(t, pretty, "├── 1(l:1) blk: 1")
	require.Contains(t, pretty, "└── 2(l:1) blk: 2")
}
