// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package page

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Index tuple header layout: a 6-byte item pointer (block id hi u16, block id
// lo u16, position u16) followed by t_info u16. Only internal-page tuples are
// ever decoded; leaf tuple contents are opaque to this tool.
const (
	indexTupleHeaderSize = 8

	// tupleInvalidPos is the reserved item-pointer position marking a
	// placeholder downlink left behind by an interrupted split.
	tupleInvalidPos = 0xfffe
)

// IndexTuple is a decoded internal-page entry.
type IndexTuple struct {
	raw []byte
}

// DecodeIndexTuple validates that the item bytes can hold an index tuple
// header and wraps them.
func DecodeIndexTuple(item []byte) (IndexTuple, error) {
	if len(item) < indexTupleHeaderSize {
		return IndexTuple{}, errors.Errorf(
			"page: index tuple is %d bytes, want at least %d", len(item), indexTupleHeaderSize)
	}
	return IndexTuple{raw: item}, nil
}

// ChildBlock returns the downlink target: the two 16-bit halves of the item
// pointer's block id combined into one block number.
func (t IndexTuple) ChildBlock() uint32 {
	hi := binary.LittleEndian.Uint16(t.raw)
	lo := binary.LittleEndian.Uint16(t.raw[2:])
	return uint32(hi)<<16 | uint32(lo)
}

// IsInvalid reports whether the tuple is a placeholder downlink. Invalid
// tuples are still counted and descended through; they just do not promise
// live data below.
func (t IndexTuple) IsInvalid() bool {
	return binary.LittleEndian.Uint16(t.raw[4:]) == tupleInvalidPos
}
