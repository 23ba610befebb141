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

package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"gitee.com/kwbasedb/kwts/pkg/objstore"
)

// logStore names and persists the two object kinds a region manifest owns
// within its objstore.Store: zero-padded version-numbered .log objects
// (one ActionList each) and .ckpt checkpoint objects, plus a "CURRENT"
// pointer object naming the newest checkpoint.
type logStore struct {
	store *objstore.Store
}

const (
	logSuffix   = ".log"
	ckptSuffix  = ".ckpt"
	currentName = "CURRENT"
	// versionWidth matches the zero-padding the storage engine's sstable/WAL file
	// numbering uses, wide enough that MaxVersion never overflows it.
	versionWidth = 20
)

func logObjectName(version uint64) string {
	return fmt.Sprintf("%0*d%s", versionWidth, version, logSuffix)
}

const ckptPrefix = "checkpoint-"

func checkpointObjectName(version uint64) string {
	return fmt.Sprintf("%s%0*d%s", ckptPrefix, versionWidth, version, ckptSuffix)
}

func parseVersionedName(name, prefix, suffix string) (uint64, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
		return 0, false
	}
	digits := strings.TrimSuffix(strings.TrimPrefix(name, prefix), suffix)
	v, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (s *logStore) putLog(version uint64, list ActionList) error {
	buf, err := encodeFramed(list)
	if err != nil {
		return err
	}
	return s.store.Put(logObjectName(version), buf)
}

func (s *logStore) getLog(version uint64) (ActionList, error) {
	var list ActionList
	data, err := s.store.Get(logObjectName(version))
	if err != nil {
		return list, err
	}
	if err := decodeFramed(data, &list); err != nil {
		return list, errors.Wrapf(err, "log version %d", version)
	}
	return list, nil
}

func (s *logStore) deleteLog(version uint64) error {
	return s.store.Delete(logObjectName(version))
}

// listLogVersions returns every persisted log version, ascending.
func (s *logStore) listLogVersions() ([]uint64, error) {
	names, err := s.store.List("*" + logSuffix)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(names))
	for _, n := range names {
		if v, ok := parseVersionedName(n, "", logSuffix); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *logStore) putCheckpoint(version uint64, ckpt Checkpoint) error {
	buf, err := encodeFramed(ckpt)
	if err != nil {
		return err
	}
	if err := s.store.Put(checkpointObjectName(version), buf); err != nil {
		return err
	}
	// Publish the pointer last, atomically overwriting CURRENT; a reader
	// never observes a CURRENT pointing at a checkpoint object that isn't
	// there yet.
	return s.store.Put(currentName, []byte(strconv.FormatUint(version, 10)))
}

func (s *logStore) getCheckpoint(version uint64) (Checkpoint, error) {
	var ckpt Checkpoint
	data, err := s.store.Get(checkpointObjectName(version))
	if err != nil {
		return ckpt, err
	}
	if err := decodeFramed(data, &ckpt); err != nil {
		return ckpt, errors.Wrapf(err, "checkpoint version %d", version)
	}
	return ckpt, nil
}

// currentCheckpointVersion reads the CURRENT pointer, returning ok=false if
// no checkpoint has ever been written.
func (s *logStore) currentCheckpointVersion() (uint64, bool, error) {
	data, err := s.store.Get(currentName)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false, errors.Wrap(err, "parsing CURRENT pointer")
	}
	return v, true, nil
}

// listCheckpointVersions returns every persisted checkpoint version,
// ascending.
func (s *logStore) listCheckpointVersions() ([]uint64, error) {
	names, err := s.store.List("*" + ckptSuffix)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(names))
	for _, n := range names {
		if v, ok := parseVersionedName(n, ckptPrefix, ckptSuffix); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *logStore) deleteCheckpoint(version uint64) error {
	return s.store.Delete(checkpointObjectName(version))
}
