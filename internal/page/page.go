// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package page decodes the PostgreSQL slotted-page layout: a fixed 24-byte
// header, an array of 4-byte line pointers growing down from the header, item
// data growing up from the end, and an optional type-specific "special" region
// at the tail of the page. All multi-byte fields are little-endian. Decoding
// is bounds-checked throughout; a page whose header contradicts the fixed
// block size yields an error rather than a wild slice.
package page

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

const (
	// BlockSize is the fixed on-disk page size.
	BlockSize = 8192
	// HeaderSize is the size of the fixed page header, up to but not
	// including the line pointer array.
	HeaderSize = 24
	// LinePointerSize is the size of one entry in the line pointer array.
	LinePointerSize = 4
	// maxAlign is the alignment the on-disk format rounds item sizes and
	// the header up to.
	maxAlign = 8

	// UsableSize is the page capacity available to line pointers and item
	// data: the block minus one maxaligned header-plus-line-pointer unit.
	// Occupancy percentages are measured against this value.
	UsableSize = BlockSize - (HeaderSize+LinePointerSize+maxAlign-1)&^(maxAlign-1)

	lowerOffset   = 12
	upperOffset   = 14
	specialOffset = 16
)

// InvalidBlock is the reserved block number meaning "no block", used both for
// out-of-band results and for the "no right sibling" sentinel.
const InvalidBlock = ^uint32(0)

// Page is a read-only decoded view over one raw block. The zero value is not
// usable; construct with New.
type Page struct {
	data []byte
}

// New wraps a raw block in a Page view. The block must be exactly BlockSize
// bytes and the header's boundary offsets must not exceed the block, so that
// no later accessor can read past it or report free space beyond the page's
// capacity.
func New(data []byte) (Page, error) {
	if len(data) != BlockSize {
		return Page{}, errors.Errorf("page: block is %d bytes, want %d", len(data), BlockSize)
	}
	p := Page{data: data}
	if lower := p.lower(); int(lower) > BlockSize {
		return Page{}, errors.Errorf("page: lower boundary %d exceeds block size %d", lower, BlockSize)
	}
	if upper := p.upper(); int(upper) > BlockSize {
		return Page{}, errors.Errorf("page: upper boundary %d exceeds block size %d", upper, BlockSize)
	}
	if special := p.special(); int(special) > BlockSize {
		return Page{}, errors.Errorf("page: special region offset %d exceeds block size %d", special, BlockSize)
	}
	return p, nil
}

func (p Page) lower() uint16 {
	return binary.LittleEndian.Uint16(p.data[lowerOffset:])
}

func (p Page) upper() uint16 {
	return binary.LittleEndian.Uint16(p.data[upperOffset:])
}

func (p Page) special() uint16 {
	return binary.LittleEndian.Uint16(p.data[specialOffset:])
}

// MaxOffset returns the number of line pointers on the page. A lower boundary
// at or before the header end decodes as zero entries, which defends against
// an all-zeroes uninitialized page.
func (p Page) MaxOffset() uint16 {
	lower := p.lower()
	if lower <= HeaderSize {
		return 0
	}
	return (lower - HeaderSize) / LinePointerSize
}

// FreeSpace returns the bytes available between the line pointer array and the
// item data, as the storage format itself accounts for it: the gap minus one
// line pointer reserved for the next insertion, clamped at zero.
func (p Page) FreeSpace() int {
	space := int(p.upper()) - int(p.lower())
	if space < LinePointerSize {
		return 0
	}
	return space - LinePointerSize
}

// LinePointer is one decoded entry of the line pointer array.
type LinePointer struct {
	Off   uint16 // byte offset of the item within the page
	Flags uint8  // item state bits
	Len   uint16 // unaligned byte length of the item
}

// LinePointer returns the line pointer at the 1-based position pos.
func (p Page) LinePointer(pos uint16) (LinePointer, error) {
	if pos < 1 || pos > p.MaxOffset() {
		return LinePointer{}, errors.Errorf(
			"page: line pointer %d out of range [1,%d]", pos, p.MaxOffset())
	}
	v := binary.LittleEndian.Uint32(p.data[HeaderSize+int(pos-1)*LinePointerSize:])
	return LinePointer{
		Off:   uint16(v & 0x7fff),
		Flags: uint8(v >> 15 & 0x3),
		Len:   uint16(v >> 17),
	}, nil
}

// Item resolves a line pointer to the item bytes it addresses.
func (p Page) Item(lp LinePointer) ([]byte, error) {
	if int(lp.Off)+int(lp.Len) > BlockSize {
		return nil, errors.Errorf(
			"page: item [%d,%d) extends past block size %d", lp.Off, int(lp.Off)+int(lp.Len), BlockSize)
	}
	return p.data[lp.Off : int(lp.Off)+int(lp.Len)], nil
}

// HasSpecial reports whether the header's special-region offset addresses a
// region within the page.
func (p Page) HasSpecial() bool {
	s := p.special()
	return s >= HeaderSize && s <= BlockSize
}

// Special returns the trailing special region, or an error if the header does
// not declare one within bounds.
func (p Page) Special() ([]byte, error) {
	if !p.HasSpecial() {
		return nil, errors.Errorf("page: special region offset %d outside [%d,%d]",
			p.special(), HeaderSize, BlockSize)
	}
	return p.data[p.special():], nil
}
