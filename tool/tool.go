// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package tool implements the gistviz command surface.
package tool

import (
	"github.com/pgindex/gistviz/vfs"
	"github.com/spf13/cobra"
)

// T is the container for the inspection commands.
type T struct {
	Commands []*cobra.Command
	index    *indexT
	fs       vfs.FS
}

// Option configures the tool.
type Option func(*T)

// FS sets the filesystem the commands read index files from. Used by tests to
// substitute an in-memory filesystem.
func FS(fs vfs.FS) Option {
	return func(t *T) {
		t.fs = fs
	}
}

// New creates the inspection tool.
func New(opts ...Option) *T {
	t := &T{fs: vfs.Default}
	for _, opt := range opts {
		opt(t)
	}
	t.index = newIndex(t.fs)
	t.Commands = []*cobra.Command{
		t.index.Tree,
		t.index.Stats,
		t.index.Pages,
	}
	return t
}
