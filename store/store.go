// Copyright 2023 The Gistviz Authors. All rights reserved. Use of this source
// code is governed by a BSD-style license that can be found in the LICENSE
// file.

// Package store reads fixed-size pages out of an index file on behalf of the
// tree walker. Opening a store takes an exclusive advisory lock on the file,
// so the walker observes one stable view; pages are handed out as pinned
// references that must be released before the store is closed.
package store

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/pgindex/gistviz/internal/page"
	"github.com/pgindex/gistviz/vfs"
)

// DefaultCacheSize is the page cache budget used when Options.CacheSize is
// zero. Large enough to hold a back-to-back dump and stats pass over a small
// index without re-reading the file.
const DefaultCacheSize = 32 << 20 // 32 MB

// Options tunes an open store.
type Options struct {
	// FS is the filesystem to open the index file on. Defaults to
	// vfs.Default.
	FS vfs.FS
	// CacheSize bounds the page cache in bytes. Zero means
	// DefaultCacheSize; negative disables caching.
	CacheSize int64
}

// Store is a read-only page source for one index file. It is not safe for
// concurrent use; the inspection walk is single-threaded.
type Store struct {
	f        vfs.File
	lock     io.Closer
	numPages uint32
	cache    *ristretto.Cache[uint32, []byte]
	pinned   int
}

// Open locks and opens the index file at path. It fails if the lock is held
// elsewhere, if the file does not exist, or if the file size is not a whole
// number of pages.
func Open(path string, opts Options) (*Store, error) {
	fs := opts.FS
	if fs == nil {
		fs = vfs.Default
	}
	// Distinguish a missing file from a held lock before locking.
	if _, err := fs.Stat(path); err != nil {
		return nil, err
	}
	lock, err := fs.Lock(path)
	if err != nil {
		return nil, errors.Wrapf(err, "store: lock unavailable for %s", path)
	}
	f, err := fs.Open(path)
	if err != nil {
		lock.Close()
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		lock.Close()
		return nil, errors.WithStack(err)
	}
	size := fi.Size()
	if size == 0 || size%page.BlockSize != 0 {
		f.Close()
		lock.Close()
		return nil, errors.Errorf(
			"store: %s is %d bytes, not a positive multiple of the %d-byte page size",
			path, size, page.BlockSize)
	}
	s := &Store{
		f:        f,
		lock:     lock,
		numPages: uint32(size / page.BlockSize),
	}
	cacheSize := opts.CacheSize
	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	}
	if cacheSize > 0 {
		s.cache, err = ristretto.NewCache(&ristretto.Config[uint32, []byte]{
			NumCounters: 10 * cacheSize / page.BlockSize,
			MaxCost:     cacheSize,
			BufferItems: 64,
		})
		if err != nil {
			f.Close()
			lock.Close()
			return nil, errors.Wrap(err, "store: page cache")
		}
	}
	return s, nil
}

// NumPages returns the allocated extent of the index file in pages.
func (s *Store) NumPages() uint32 {
	return s.numPages
}

// Ref is a pinned page. Release it once the fields of interest have been
// extracted; the decoded view must not be used afterwards.
type Ref struct {
	Page page.Page
	s    *Store
}

// Release unpins the page.
func (r *Ref) Release() {
	if r.s != nil {
		r.s.pinned--
		r.s = nil
	}
}

// ReadPage returns a pinned view of the page at blk. Page numbers at or
// beyond the allocated extent fail.
func (s *Store) ReadPage(blk uint32) (*Ref, error) {
	if blk >= s.numPages {
		return nil, errors.Errorf("store: page %d out of range [0,%d)", blk, s.numPages)
	}
	var buf []byte
	if s.cache != nil {
		if b, ok := s.cache.Get(blk); ok {
			buf = b
		}
	}
	if buf == nil {
		buf = make([]byte, page.BlockSize)
		if _, err := s.f.ReadAt(buf, int64(blk)*page.BlockSize); err != nil {
			return nil, errors.Wrapf(err, "store: read page %d", blk)
		}
		if s.cache != nil {
			s.cache.Set(blk, buf, page.BlockSize)
		}
	}
	p, err := page.New(buf)
	if err != nil {
		return nil, err
	}
	s.pinned++
	return &Ref{Page: p, s: s}, nil
}

// Close releases the page cache, the file, and the lock. It fails if any page
// reference is still pinned, which indicates a walker bug.
func (s *Store) Close() error {
	var err error
	if s.pinned != 0 {
		err = errors.Errorf("store: %d page(s) still pinned at close", s.pinned)
	}
	if s.cache != nil {
		s.cache.Close()
		s.cache = nil
	}
	if s.f != nil {
		err = errors.CombineErrors(err, s.f.Close())
		s.f = nil
	}
	if s.lock != nil {
		err = errors.CombineErrors(err, s.lock.Close())
		s.lock = nil
	}
	return err
}
