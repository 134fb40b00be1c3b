// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package tool

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/pgindex/gistviz"
	"github.com/pgindex/gistviz/internal/page"
	"github.com/pgindex/gistviz/store"
	"github.com/pgindex/gistviz/vfs"
	"github.com/spf13/cobra"
)

// indexT implements the index-level commands, including both configuration
// state and the commands themselves.
type indexT struct {
	Tree  *cobra.Command
	Stats *cobra.Command
	Pages *cobra.Command

	fs        vfs.FS
	depth     int
	cacheSize int64
	pretty    bool
}

func newIndex(fs vfs.FS) *indexT {
	x := &indexT{fs: fs}

	x.Tree = &cobra.Command{
		Use:   "tree <index-file>",
		Short: "print the index tree topology",
		Long: `
Walk the index from the root page and print one line per page: slot position
in the parent, level, block number, tuple count, free space, occupancy, and
the right sibling.
`,
		Args: cobra.ExactArgs(1),
		Run:  x.runTree,
	}
	x.Tree.Flags().IntVar(&x.depth,
		"depth", -1, "descend at most this many levels below the root (-1 for unbounded)")
	x.Tree.Flags().BoolVar(&x.pretty,
		"pretty", false, "draw the tree with box connectors instead of indentation")

	x.Stats = &cobra.Command{
		Use:   "stats <index-file>",
		Short: "print aggregate index statistics",
		Long: `
Walk the index from the root page and print page, tuple, and size totals.
`,
		Args: cobra.ExactArgs(1),
		Run:  x.runStats,
	}
	x.Stats.Flags().IntVar(&x.depth,
		"depth", -1, "descend at most this many levels below the root (-1 for unbounded)")

	x.Pages = &cobra.Command{
		Use:   "pages <index-file>",
		Short: "print a flat per-page table",
		Long: `
Scan the index file front to back, ignoring the tree structure, and print one
table row per allocated page.
`,
		Args: cobra.ExactArgs(1),
		Run:  x.runPages,
	}

	for _, cmd := range []*cobra.Command{x.Tree, x.Stats, x.Pages} {
		cmd.Flags().Int64Var(&x.cacheSize,
			"cache-size", 0, "page cache size in bytes (0 for the default, negative to disable)")
	}
	return x
}

func (x *indexT) open(path string) (*gistviz.Inspector, error) {
	return gistviz.Open(path, gistviz.Options{FS: x.fs, CacheSize: x.cacheSize})
}

func (x *indexT) runTree(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.OutOrStderr()
	in, err := x.open(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	defer in.Close()

	tree, err := in.GetTree(x.depth)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	if x.pretty {
		fmt.Fprint(stdout, tree.Pretty())
	} else {
		fmt.Fprint(stdout, tree.String())
	}
}

func (x *indexT) runStats(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.OutOrStderr()
	in, err := x.open(args[0])
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	defer in.Close()

	stats, err := in.Stats(x.depth)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	fmt.Fprint(stdout, stats.String())
}

func (x *indexT) runPages(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.OutOrStderr()
	s, err := store.Open(args[0], store.Options{FS: x.fs, CacheSize: x.cacheSize})
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	defer s.Close()

	table := tablewriter.NewWriter(stdout)
	table.SetHeader([]string{"block", "type", "tuples", "free", "occupied", "rightlink"})
	for blk := uint32(0); blk < s.NumPages(); blk++ {
		ref, err := s.ReadPage(blk)
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return
		}
		p := ref.Page
		opaque, err := p.AsGist()
		if err != nil {
			ref.Release()
			fmt.Fprintf(stderr, "%s\n", err)
			return
		}
		kind := "internal"
		if opaque.IsLeaf() {
			kind = "leaf"
		}
		free := p.FreeSpace()
		rightLink := "-"
		if sibling, ok := opaque.RightSibling(); ok {
			rightLink = strconv.FormatUint(uint64(sibling), 10)
		}
		table.Append([]string{
			strconv.FormatUint(uint64(blk), 10),
			kind,
			strconv.FormatUint(uint64(p.MaxOffset()), 10),
			strconv.Itoa(free),
			fmt.Sprintf("%.2f%%", float64(page.UsableSize-free)/page.UsableSize*100),
			rightLink,
		})
		ref.Release()
	}
	table.Render()
}
