// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package vfs provides the minimal filesystem surface the inspector needs: a
// read interface over files, creation for fixture generation, and an
// exclusive advisory file lock. The Default implementation is backed by the
// operating system; NewMem returns a memory-backed implementation for tests.
package vfs

import (
	"io"
	"os"
	"syscall"

	"github.com/cockroachdb/errors"
)

// File is a readable, optionally writable sequence of bytes.
//
// Typically it will be an *os.File, but test code may substitute a
// memory-backed implementation.
type File interface {
	io.Closer
	io.ReaderAt
	io.Writer
	Stat() (os.FileInfo, error)
}

// FS is a namespace for files.
type FS interface {
	// Open opens the named file for reading.
	Open(name string) (File, error)

	// Create creates the named file for writing, truncating it if it
	// already exists.
	Create(name string) (File, error)

	// Stat returns an os.FileInfo describing the named file.
	Stat(name string) (os.FileInfo, error)

	// Lock acquires an exclusive advisory lock on the named file, which
	// must already exist. A nil Closer is returned if an error occurred;
	// otherwise close the Closer to release the lock. Lock fails rather
	// than blocks when the file is locked elsewhere.
	Lock(name string) (io.Closer, error)
}

// Default is an FS implementation backed by the underlying operating system's
// file system.
var Default FS = defaultFS{}

type defaultFS struct{}

func (defaultFS) Open(name string) (File, error) {
	f, err := os.OpenFile(name, os.O_RDONLY|syscall.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}

func (defaultFS) Create(name string) (File, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC|syscall.O_CLOEXEC, 0666)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}

func (defaultFS) Stat(name string) (os.FileInfo, error) {
	fi, err := os.Stat(name)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return fi, nil
}
