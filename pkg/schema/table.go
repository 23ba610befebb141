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

package schema

import (
	"bytes"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"

	"gitee.com/kwbasedb/kwts/pkg/util/kwtserror"
)

// TableID uniquely identifies a table.
type TableID uint64

// RegionNumber is a 32-bit shard identifier within a table.
type RegionNumber uint32

// TableOptions is the per-table options bag: known keys are parsed into
// typed fields, everything else is kept verbatim in ExtraOptions.
type TableOptions struct {
	WriteBufferSize      uint64 // bytes
	TTL                  time.Duration
	CompactionTimeWindow int64
	HasCompactionWindow  bool
	ExtraOptions         map[string]string
}

const (
	optWriteBufferSize      = "write_buffer_size"
	optTTL                  = "ttl"
	optRegions              = "regions"
	optCompactionTimeWindow = "compaction_time_window"
)

// ParseTableOptions decodes the string-map encoding:
// write_buffer_size (humanize.ParseBytes), ttl (time.ParseDuration),
// regions (reserved, stripped), compaction_time_window (signed int64); any
// other key is preserved verbatim in ExtraOptions.
func ParseTableOptions(raw map[string]string) (TableOptions, error) {
	opts := TableOptions{ExtraOptions: map[string]string{}}
	for k, v := range raw {
		switch k {
		case optWriteBufferSize:
			n, err := humanize.ParseBytes(v)
			if err != nil {
				return TableOptions{}, kwtserror.Wrapf(kwtserror.ErrParseTableOption, "write_buffer_size %q: %v", v, err)
			}
			opts.WriteBufferSize = n
		case optTTL:
			d, err := time.ParseDuration(v)
			if err != nil {
				return TableOptions{}, kwtserror.Wrapf(kwtserror.ErrParseTableOption, "ttl %q: %v", v, err)
			}
			opts.TTL = d
		case optRegions:
			// Reserved; stripped rather than preserved.
		case optCompactionTimeWindow:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return TableOptions{}, kwtserror.Wrapf(kwtserror.ErrParseTableOption, "compaction_time_window %q: %v", v, err)
			}
			opts.CompactionTimeWindow = n
			opts.HasCompactionWindow = true
		default:
			opts.ExtraOptions[k] = v
		}
	}
	return opts, nil
}

// ToMap re-encodes TableOptions back into the string-map form, the inverse
// of ParseTableOptions.
func (o TableOptions) ToMap() map[string]string {
	m := make(map[string]string, len(o.ExtraOptions)+3)
	for k, v := range o.ExtraOptions {
		m[k] = v
	}
	if o.WriteBufferSize > 0 {
		m[optWriteBufferSize] = humanize.Bytes(o.WriteBufferSize)
	}
	if o.TTL > 0 {
		m[optTTL] = o.TTL.String()
	}
	if o.HasCompactionWindow {
		m[optCompactionTimeWindow] = strconv.FormatInt(o.CompactionTimeWindow, 10)
	}
	return m
}

// TableInfo is the canonical in-memory record of a table: name, id,
// version, schema, engine, options, and region set. The primary-key and
// field column indices are carried by Schema.
type TableInfo struct {
	Name    string
	ID      TableID
	Version uint64
	Schema  Schema
	Engine  string
	Options TableOptions
	Regions []RegionNumber
}

// Validate checks the invariants TableInfo depends on: a valid schema plus
// a non-empty, duplicate-free region set.
func (t *TableInfo) Validate() error {
	if err := t.Schema.Validate(); err != nil {
		return errors.Wrapf(err, "table %q", t.Name)
	}
	if len(t.Regions) == 0 {
		return errors.Newf("table %q: empty region set", t.Name)
	}
	seen := make(map[RegionNumber]struct{}, len(t.Regions))
	for _, r := range t.Regions {
		if _, ok := seen[r]; ok {
			return errors.Newf("table %q: duplicate region %d", t.Name, r)
		}
		seen[r] = struct{}{}
	}
	return nil
}

// SortedRegions returns a copy of Regions in ascending order.
func (t *TableInfo) SortedRegions() []RegionNumber {
	out := append([]RegionNumber(nil), t.Regions...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TableInfoCell is a read-copy-update cell for TableInfo: readers call
// Load() and see an atomically-published, internally-consistent snapshot
// without ever blocking on the writer's alter lock.
type TableInfoCell struct {
	v atomic.Pointer[TableInfo]
}

// NewTableInfoCell seeds a cell with an initial snapshot.
func NewTableInfoCell(initial *TableInfo) *TableInfoCell {
	c := &TableInfoCell{}
	c.v.Store(initial)
	return c
}

// Load returns the current snapshot. Safe for concurrent use without
// synchronization from the caller.
func (c *TableInfoCell) Load() *TableInfo {
	return c.v.Load()
}

// Store atomically publishes a new snapshot. Callers must hold the
// table's alter lock for the whole read-modify-write that produced next:
// Store itself does not serialize writers.
func (c *TableInfoCell) Store(next *TableInfo) {
	c.v.Store(next)
}

// Region is a shard of a table: a 32-bit region number, its own
// metadata version, and a tag-range predicate.
type Region struct {
	TableID TableID
	Number  RegionNumber
	Version uint64
	// StartKey/EndKey bound the tag-column range this region owns; a nil
	// bound is unbounded on that side.
	StartKey []byte
	EndKey   []byte
}

// Contains reports whether key falls in [StartKey, EndKey).
func (r *Region) Contains(key []byte) bool {
	if r.StartKey != nil && bytes.Compare(key, r.StartKey) < 0 {
		return false
	}
	if r.EndKey != nil && bytes.Compare(key, r.EndKey) >= 0 {
		return false
	}
	return true
}
