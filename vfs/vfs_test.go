// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package vfs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemFS(t *testing.T) {
	fs := NewMem()

	_, err := fs.Open("a")
	require.Error(t, err)
	_, err = fs.Stat("a")
	require.Error(t, err)

	f, err := fs.Create("a")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello world"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fi, err := fs.Stat("a")
	require.NoError(t, err)
	require.Equal(t, int64(11), fi.Size())

	f, err = fs.Open("a")
	require.NoError(t, err)
	buf := make([]byte, 5)
	_, err = f.ReadAt(buf, 6)
	require.NoError(t, err)
	require.Equal(t, "world", string(buf))

	// Reads past the end are short.
	n, err := f.ReadAt(make([]byte, 10), 6)
	require.Error(t, err)
	require.Equal(t, 5, n)

	// Opened-for-read files reject writes.
	_, err = f.Write([]byte("x"))
	require.Error(t, err)
	require.NoError(t, f.Close())
}

func TestMemFSLock(t *testing.T) {
	fs := NewMem()

	_, err := fs.Lock("a")
	require.Error(t, err) // file must exist

	f, err := fs.Create("a")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	l, err := fs.Lock("a")
	require.NoError(t, err)
	_, err = fs.Lock("a")
	require.Error(t, err)

	require.NoError(t, l.Close())
	l, err = fs.Lock("a")
	require.NoError(t, err)
	require.NoError(t, l.Close())
}
