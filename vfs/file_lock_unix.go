// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package vfs

import (
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// lockedFiles tracks files locked by this process. flock does not exclude a
// second lock acquired through a second descriptor within the same process,
// so exclusion is enforced here first.
var lockedFiles sync.Map

func (defaultFS) Lock(name string) (io.Closer, error) {
	if _, dup := lockedFiles.LoadOrStore(name, nil); dup {
		return nil, errors.Errorf("vfs: %s already locked by this process", name)
	}
	f, err := os.OpenFile(name, os.O_RDONLY|syscall.O_CLOEXEC, 0)
	if err != nil {
		lockedFiles.Delete(name)
		return nil, errors.WithStack(err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lockedFiles.Delete(name)
		f.Close()
		return nil, errors.Wrapf(err, "vfs: lock %s", name)
	}
	return &fileLock{name: name, f: f}, nil
}

type fileLock struct {
	name string
	f    *os.File
}

func (l *fileLock) Close() error {
	lockedFiles.Delete(l.name)
	// Closing the descriptor releases the flock.
	return l.f.Close()
}
