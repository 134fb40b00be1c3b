// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package pagebuild

import (
	"testing"

	"github.com/pgindex/gistviz/internal/page"
	"github.com/stretchr/testify/require"
)

func TestBuildAssignsBlocksPreOrder(t *testing.T) {
	root := Internal(
		Internal(Leaf(1), Leaf(2)),
		Leaf(3),
	)
	blocks, err := root.Build()
	require.NoError(t, err)
	require.Len(t, blocks, 5)

	p, err := page.New(blocks[0])
	require.NoError(t, err)
	require.Equal(t, uint16(2), p.MaxOffset())

	var children []uint32
	for pos := uint16(1); pos <= 2; pos++ {
		lp, err := p.LinePointer(pos)
		require.NoError(t, err)
		item, err := p.Item(lp)
		require.NoError(t, err)
		tup, err := page.DecodeIndexTuple(item)
		require.NoError(t, err)
		children = append(children, tup.ChildBlock())
	}
	// The first subtree occupies blocks 1..3, so the second child is 4.
	require.Equal(t, []uint32{1, 4}, children)
}

func TestPageOverflow(t *testing.T) {
	b := NewPage()
	b.SetOpaque(page.FLeaf, page.InvalidBlock)
	// Each tuple costs 12 bytes of payload plus line pointer; ~680 fit.
	for i := 0; i < 700; i++ {
		b.AddItem(LeafTuple())
	}
	_, err := b.Finish()
	require.ErrorContains(t, err, "overflow")
}
