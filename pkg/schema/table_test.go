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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTableOptionsRoundTrip(t *testing.T) {
	raw := map[string]string{
		"write_buffer_size":      "64 MB",
		"ttl":                    "72h",
		"compaction_time_window": "-5",
		"regions":                "3",
		"some_future_option":     "keep-me",
	}
	opts, err := ParseTableOptions(raw)
	require.NoError(t, err)

	require.EqualValues(t, 64*1000*1000, opts.WriteBufferSize)
	require.Equal(t, 72*time.Hour, opts.TTL)
	require.True(t, opts.HasCompactionWindow)
	require.EqualValues(t, -5, opts.CompactionTimeWindow)
	require.Equal(t, "keep-me", opts.ExtraOptions["some_future_option"])
	require.NotContains(t, opts.ExtraOptions, "regions")

	back := opts.ToMap()
	require.NotContains(t, back, "regions")
	require.Equal(t, "keep-me", back["some_future_option"])
	require.Equal(t, "-5", back["compaction_time_window"])

	reparsed, err := ParseTableOptions(back)
	require.NoError(t, err)
	require.Equal(t, opts.TTL, reparsed.TTL)
	require.Equal(t, opts.CompactionTimeWindow, reparsed.CompactionTimeWindow)
	require.Equal(t, opts.ExtraOptions, reparsed.ExtraOptions)
}

func TestParseTableOptionsRejectsBadValues(t *testing.T) {
	_, err := ParseTableOptions(map[string]string{"write_buffer_size": "not-a-size"})
	require.Error(t, err)

	_, err = ParseTableOptions(map[string]string{"ttl": "not-a-duration"})
	require.Error(t, err)

	_, err = ParseTableOptions(map[string]string{"compaction_time_window": "not-an-int"})
	require.Error(t, err)
}

func TestTableInfoValidateRejectsDuplicateRegions(t *testing.T) {
	info := &TableInfo{
		Name:    "t",
		Schema:  testTableSchema(),
		Regions: []RegionNumber{1, 2, 1},
	}
	err := info.Validate()
	require.Error(t, err)
}

func TestTableInfoCellLoadStoreIsAtomic(t *testing.T) {
	initial := &TableInfo{Name: "t", Schema: testTableSchema(), Regions: []RegionNumber{1}}
	cell := NewTableInfoCell(initial)
	require.Same(t, initial, cell.Load())

	next := &TableInfo{Name: "t", Version: 1, Schema: testTableSchema(), Regions: []RegionNumber{1, 2}}
	cell.Store(next)
	require.Same(t, next, cell.Load())
}

func TestRegionContains(t *testing.T) {
	r := &Region{StartKey: []byte("b"), EndKey: []byte("d")}
	require.False(t, r.Contains([]byte("a")))
	require.True(t, r.Contains([]byte("b")))
	require.True(t, r.Contains([]byte("c")))
	require.False(t, r.Contains([]byte("d")))
}

func testTableSchema() Schema {
	return Schema{
		Columns: []ColumnSchema{
			{Name: "ts", Kind: KindTimestamp, DataType: TypeTimestampMillisecond},
			{Name: "value", Kind: KindField, DataType: TypeFloat64},
		},
		TimeIndex:    0,
		FieldIndices: []int{1},
	}
}
