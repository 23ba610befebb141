// Copyright 2022-present, Shanghai Yunxi Technology Co, Ltd. All rights reserved.
//
// This software (KWDB) is licensed under Mulan PSL v2.
// You can use this software according to the terms and conditions of the Mulan PSL v2.
// You may obtain a copy of Mulan PSL v2 at:
//          http://license.coscl.org.cn/MulanPSL2
// THIS SOFTWARE IS PROVIDED ON AN "AS IS" BASIS, WITHOUT WARRANTIES OF ANY KIND,
// EITHER EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO NON-INFRINGEMENT,
// MERCHANTABILITY OR FIT FOR A PARTICULAR PURPOSE.
// See the Mulan PSL v2 for more details.

// Package objstore implements the directory-rooted object store the region
// manifest is layered on. It wraps pebble's vfs.FS, the same
// pluggable-filesystem dependency the storage engine uses for sstable and
// temp-directory management, so production use addresses the real local
// disk (vfs.Default) while tests run against an in-memory filesystem
// (vfs.NewMem()) without touching disk.
package objstore

import (
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when an object does not exist. Callers that must
// swallow "not found" during GC check errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("object not found")

// Store is a flat, directory-rooted key/value blob store: objects are
// addressed by a relative name within Root and are written atomically
// (write-to-temp-then-rename) so a reader never observes a partial object.
type Store struct {
	fs   vfs.FS
	root string
}

// New returns a Store rooted at root on fs. The directory is created if it
// does not already exist.
func New(fs vfs.FS, root string) (*Store, error) {
	if err := fs.MkdirAll(root, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating object store root %q", root)
	}
	return &Store{fs: fs, root: root}, nil
}

func (s *Store) path(name string) string {
	return s.fs.PathJoin(s.root, name)
}

// Put writes data as the named object, replacing any previous content
// atomically.
func (s *Store) Put(name string, data []byte) error {
	tmp := s.path(name + ".tmp")
	f, err := s.fs.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "creating %q", tmp)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "writing %q", tmp)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "syncing %q", tmp)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "closing %q", tmp)
	}
	dst := s.path(name)
	if err := s.fs.Rename(tmp, dst); err != nil {
		return errors.Wrapf(err, "publishing %q", dst)
	}
	return nil
}

// Get reads the named object in full.
func (s *Store) Get(name string) ([]byte, error) {
	f, err := s.fs.Open(s.path(name))
	if err != nil {
		if oserrIsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "object %q", name)
		}
		return nil, errors.Wrapf(err, "opening %q", name)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", name)
	}
	return data, nil
}

// Delete removes the named object. A missing object yields an error
// wrapping ErrNotFound; callers distinguish it via errors.Is(err,
// ErrNotFound) when they care (the GC loop swallows it).
func (s *Store) Delete(name string) error {
	if err := s.fs.Remove(s.path(name)); err != nil {
		if oserrIsNotExist(err) {
			return errors.Wrapf(ErrNotFound, "object %q", name)
		}
		return errors.Wrapf(err, "removing %q", name)
	}
	return nil
}

// List returns the names of every object whose name matches the glob
// pattern (as filepath.Match), sorted lexically.
func (s *Store) List(pattern string) ([]string, error) {
	entries, err := s.fs.List(s.root)
	if err != nil {
		if oserrIsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "listing %q", s.root)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e, ".tmp") {
			continue
		}
		ok, err := filepath.Match(pattern, e)
		if err != nil {
			return nil, errors.Wrapf(err, "matching pattern %q", pattern)
		}
		if ok {
			names = append(names, e)
		}
	}
	sort.Strings(names)
	return names, nil
}

func oserrIsNotExist(err error) bool {
	return os.IsNotExist(err) || stderrors.Is(err, os.ErrNotExist)
}
