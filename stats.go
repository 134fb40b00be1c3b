// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package gistviz

import (
	"fmt"
	"strings"
)

// Stats holds the running totals of a statistics walk.
type Stats struct {
	// Level is the maximum zero-based level reached.
	Level int
	// NumPages counts every visited page.
	NumPages int
	// NumLeafPages counts visited leaf pages.
	NumLeafPages int
	// NumTuple counts tuples across all visited pages.
	NumTuple int
	// NumInvalidTuple counts placeholder downlinks on internal pages.
	NumInvalidTuple int
	// NumLeafTuple counts tuples on leaf pages.
	NumLeafTuple int
	// TupleSize is the occupied bytes (usable capacity minus free space)
	// summed over all visited pages.
	TupleSize uint64
	// LeafTupleSize is the occupied bytes summed over leaf pages.
	LeafTupleSize uint64
	// TotalSize is the full block size summed over all visited pages.
	TotalSize uint64
}

// String renders the fixed-label statistics report.
func (s Stats) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Number of levels:          %d\n", s.Level+1)
	fmt.Fprintf(&sb, "Number of pages:           %d\n", s.NumPages)
	fmt.Fprintf(&sb, "Number of leaf pages:      %d\n", s.NumLeafPages)
	fmt.Fprintf(&sb, "Number of tuples:          %d\n", s.NumTuple)
	fmt.Fprintf(&sb, "Number of invalid tuples:  %d\n", s.NumInvalidTuple)
	fmt.Fprintf(&sb, "Number of leaf tuples:     %d\n", s.NumLeafTuple)
	fmt.Fprintf(&sb, "Total size of tuples:      %d bytes\n", s.TupleSize)
	fmt.Fprintf(&sb, "Total size of leaf tuples: %d bytes\n", s.LeafTupleSize)
	fmt.Fprintf(&sb, "Total size of index:       %d bytes\n", s.TotalSize)
	return sb.String()
}
