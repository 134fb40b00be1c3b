// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

package vfs

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// NewMem returns a new memory-backed FS implementation. Names are treated as
// flat keys; there is no directory structure.
func NewMem() *MemFS {
	return &MemFS{files: make(map[string]*memNode)}
}

// MemFS implements FS in memory.
type MemFS struct {
	mu    sync.Mutex
	files map[string]*memNode
	locks sync.Map
}

type memNode struct {
	mu   sync.Mutex
	data []byte
}

var _ FS = (*MemFS)(nil)

// Open implements FS.Open.
func (y *MemFS) Open(name string) (File, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	n, ok := y.files[name]
	if !ok {
		return nil, errors.Wrapf(os.ErrNotExist, "open %s", name)
	}
	return &memFile{name: name, n: n}, nil
}

// Create implements FS.Create.
func (y *MemFS) Create(name string) (File, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	n := &memNode{}
	y.files[name] = n
	return &memFile{name: name, n: n, write: true}, nil
}

// Stat implements FS.Stat.
func (y *MemFS) Stat(name string) (os.FileInfo, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	n, ok := y.files[name]
	if !ok {
		return nil, errors.Wrapf(os.ErrNotExist, "stat %s", name)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return &memFileInfo{name: name, size: int64(len(n.data))}, nil
}

// Lock implements FS.Lock.
func (y *MemFS) Lock(name string) (io.Closer, error) {
	if _, err := y.Stat(name); err != nil {
		return nil, err
	}
	if _, dup := y.locks.LoadOrStore(name, nil); dup {
		return nil, errors.Errorf("vfs: %s already locked", name)
	}
	return &memFileLock{y: y, name: name}, nil
}

type memFile struct {
	name  string
	n     *memNode
	write bool
	wpos  int
}

func (f *memFile) Close() error {
	return nil
}

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	if off >= int64(len(f.n.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.n.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	if !f.write {
		return 0, errors.Errorf("vfs: file %s was not created writable", f.name)
	}
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	for len(f.n.data) < f.wpos+len(p) {
		f.n.data = append(f.n.data, 0)
	}
	copy(f.n.data[f.wpos:], p)
	f.wpos += len(p)
	return len(p), nil
}

func (f *memFile) Stat() (os.FileInfo, error) {
	f.n.mu.Lock()
	defer f.n.mu.Unlock()
	return &memFileInfo{name: f.name, size: int64(len(f.n.data))}, nil
}

type memFileInfo struct {
	name string
	size int64
}

func (i *memFileInfo) Name() string       { return i.name }
func (i *memFileInfo) Size() int64        { return i.size }
func (i *memFileInfo) Mode() os.FileMode  { return 0644 }
func (i *memFileInfo) ModTime() time.Time { return time.Time{} }
func (i *memFileInfo) IsDir() bool        { return false }
func (i *memFileInfo) Sys() any           { return nil }

type memFileLock struct {
	y    *MemFS
	name string
}

func (l *memFileLock) Close() error {
	if l.y == nil {
		return nil
	}
	l.y.locks.Delete(l.name)
	l.y = nil
	return nil
}
