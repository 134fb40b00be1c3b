// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package page

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// GiST opaque region layout: nsn u64, rightlink u32, flags u16, page id u16.
const (
	GistOpaqueSize = 16
	// GistPageID is the magic stamped into the last two bytes of every GiST
	// page, used to tell GiST pages apart from other special regions.
	GistPageID = 0xff81

	// FLeaf marks a leaf page in the opaque flags field.
	FLeaf = 1
)

// GistOpaque is the decoded trailing metadata of a GiST page.
type GistOpaque struct {
	NSN       uint64
	RightLink uint32
	Flags     uint16
}

// AsGist reinterprets the page's special region as GiST opaque metadata. The
// region must be declared, must hold at least GistOpaqueSize bytes, and must
// carry the GiST page magic; anything else is a layout violation.
func (p Page) AsGist() (GistOpaque, error) {
	special, err := p.Special()
	if err != nil {
		return GistOpaque{}, err
	}
	if len(special) < GistOpaqueSize {
		return GistOpaque{}, errors.Errorf(
			"page: special region is %d bytes, want at least %d for GiST", len(special), GistOpaqueSize)
	}
	o := GistOpaque{
		NSN:       binary.LittleEndian.Uint64(special),
		RightLink: binary.LittleEndian.Uint32(special[8:]),
		Flags:     binary.LittleEndian.Uint16(special[12:]),
	}
	if id := binary.LittleEndian.Uint16(special[14:]); id != GistPageID {
		return GistOpaque{}, errors.Errorf(
			"page: special region id %#04x is not a GiST page (%#04x)", id, uint16(GistPageID))
	}
	return o, nil
}

// IsLeaf reports whether the page is a leaf page.
func (o GistOpaque) IsLeaf() bool {
	return o.Flags == FLeaf
}

// RightSibling returns the right-sibling block number, or ok=false when the
// stored link is the "no sibling" sentinel.
func (o GistOpaque) RightSibling() (blk uint32, ok bool) {
	if o.RightLink == InvalidBlock {
		return 0, false
	}
	return o.RightLink, true
}
