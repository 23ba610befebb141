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
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/require"

	"gitee.com/kwbasedb/kwts/pkg/objstore"
	"gitee.com/kwbasedb/kwts/pkg/schema"
)

func newTestManifest(t *testing.T) *Manifest {
	t.Helper()
	store, err := objstore.New(vfs.NewMem(), "/region")
	require.NoError(t, err)
	m, err := Open(context.Background(), store)
	require.NoError(t, err)
	return m
}

func seq(n uint64) *uint64 { return &n }

func TestRegionManifestUpdateAndScanIsEmptyInitially(t *testing.T) {
	ctx := context.Background()
	m := newTestManifest(t)

	res, err := m.Scan(ctx, 0, uint64(MaxVersion))
	require.NoError(t, err)
	require.Empty(t, res.Entries)
}

func TestRegionManifestFirstUpdatePrependsProtocol(t *testing.T) {
	ctx := context.Background()
	m := newTestManifest(t)

	meta := FromSchema(1, 0, testSchema())
	version, err := m.Update(ctx, WithAction(NewChangeAction(meta, 1)))
	require.NoError(t, err)
	require.EqualValues(t, 0, version)

	res, err := m.Scan(ctx, 0, uint64(MaxVersion))
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	require.Equal(t, uint64(0), res.Entries[0].Version)
	require.Len(t, res.Entries[0].List.Actions, 2)
	require.Equal(t, KindProtocol, res.Entries[0].List.Actions[0].Kind)
	require.Equal(t, KindChange, res.Entries[0].List.Actions[1].Kind)

	// A second update does not get another protocol action prepended.
	editVersion, err := m.Update(ctx, ActionList{Actions: []Action{
		NewEditAction(1, []string{"f1"}, nil, seq(10)),
		NewEditAction(2, []string{"f2"}, nil, seq(11)),
	}})
	require.NoError(t, err)
	require.EqualValues(t, 1, editVersion)

	res, err = m.Scan(ctx, 0, uint64(MaxVersion))
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	require.Len(t, res.Entries[1].List.Actions, 2)
	require.Equal(t, KindEdit, res.Entries[1].List.Actions[0].Kind)
	require.Equal(t, KindEdit, res.Entries[1].List.Actions[1].Kind)
}

func TestRegionManifestCheckpointNoOpWithoutFlushedWatermark(t *testing.T) {
	ctx := context.Background()
	m := newTestManifest(t)

	meta := FromSchema(1, 0, testSchema())
	_, err := m.Update(ctx, WithAction(NewChangeAction(meta, 1)))
	require.NoError(t, err)

	ckpt, err := m.DoCheckpoint(ctx)
	require.NoError(t, err)
	require.Nil(t, ckpt)
}

func TestRegionManifestCheckpointAndGC(t *testing.T) {
	ctx := context.Background()
	m := newTestManifest(t)
	meta := FromSchema(1, 0, testSchema())

	_, err := m.Update(ctx, WithAction(NewChangeAction(meta, 1))) // version 0
	require.NoError(t, err)
	_, err = m.Update(ctx, ActionList{Actions: []Action{ // version 1
		NewEditAction(1, []string{"f1"}, nil, seq(2)),
		NewEditAction(2, []string{"f2"}, nil, seq(3)),
	}})
	require.NoError(t, err)
	_, err = m.Update(ctx, WithAction(NewChangeAction(meta, 99))) // version 2
	require.NoError(t, err)

	last, err := m.LastCheckpoint(ctx)
	require.NoError(t, err)
	require.Nil(t, last)

	res, err := m.Scan(ctx, 0, 3)
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)

	m.SetFlushedManifestVersion(2)
	ckpt, err := m.DoCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, ckpt)
	require.EqualValues(t, 3, ckpt.CompactedActions)
	require.EqualValues(t, 2, ckpt.LastVersion)
	require.EqualValues(t, 99, ckpt.Data.CommittedSequence)
	require.EqualValues(t, 1, ckpt.Data.Version.ManifestVersion)
	require.NotNil(t, ckpt.Data.Version.FlushedSequence)
	require.EqualValues(t, 3, *ckpt.Data.Version.FlushedSequence)
	require.Len(t, ckpt.Data.Version.Files, 2)

	again, err := m.DoCheckpoint(ctx)
	require.NoError(t, err)
	require.Nil(t, again)

	_, err = m.Update(ctx, WithAction(NewChangeAction(meta, 200))) // version 3
	require.NoError(t, err)
	_, err = m.Update(ctx, WithAction(NewEditAction(201, []string{"new_file"}, []string{"f1", "f2"}, seq(201)))) // version 4
	require.NoError(t, err)

	m.SetFlushedManifestVersion(3)
	ckpt, err = m.DoCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, ckpt)
	require.EqualValues(t, 1, ckpt.CompactedActions)
	require.EqualValues(t, 3, ckpt.LastVersion)
	// No Edit was folded this round; manifest_version/flushed_sequence carry
	// over unchanged from the previous checkpoint.
	require.EqualValues(t, 1, ckpt.Data.Version.ManifestVersion)
	require.EqualValues(t, 3, *ckpt.Data.Version.FlushedSequence)

	m.SetFlushedManifestVersion(4)
	ckpt, err = m.DoCheckpoint(ctx)
	require.NoError(t, err)
	require.NotNil(t, ckpt)
	require.EqualValues(t, 1, ckpt.CompactedActions)
	require.EqualValues(t, 4, ckpt.LastVersion)
	require.EqualValues(t, 4, ckpt.Data.Version.ManifestVersion)
	require.EqualValues(t, 201, *ckpt.Data.Version.FlushedSequence)
	require.Equal(t, map[string]struct{}{"new_file": {}}, ckpt.Data.Version.Files)

	gc := newGCLoop(m, GCConfig{CheckpointInterval: time.Millisecond, GCDuration: 20 * time.Millisecond})
	gc.sweepCheckpoints(ctx)
	time.Sleep(30 * time.Millisecond)
	gc.sweepCheckpoints(ctx)

	versions, err := m.log.listCheckpointVersions()
	require.NoError(t, err)
	require.Equal(t, []uint64{4}, versions)
}

func TestRegionManifestRecoverMatchesFullReplayAfterCheckpoint(t *testing.T) {
	ctx := context.Background()
	store, err := objstore.New(vfs.NewMem(), "/region")
	require.NoError(t, err)
	m, err := Open(ctx, store)
	require.NoError(t, err)
	meta := FromSchema(1, 0, testSchema())

	_, err = m.Update(ctx, WithAction(NewChangeAction(meta, 1))) // version 0
	require.NoError(t, err)
	_, err = m.Update(ctx, WithAction(NewEditAction(1, []string{"f1", "f2"}, nil, seq(5)))) // version 1
	require.NoError(t, err)
	_, err = m.Update(ctx, WithAction(NewEditAction(2, []string{"f3"}, []string{"f1"}, seq(9)))) // version 2
	require.NoError(t, err)

	full, err := m.Recover(ctx)
	require.NoError(t, err)

	m.SetFlushedManifestVersion(1)
	_, err = m.DoCheckpoint(ctx)
	require.NoError(t, err)

	fromCkpt, err := m.Recover(ctx)
	require.NoError(t, err)
	require.Equal(t, full, fromCkpt)
	require.Equal(t, map[string]struct{}{"f2": {}, "f3": {}}, fromCkpt.Version.Files)

	// Reopening against the same store recovers the version cursor too:
	// the next append continues the dense version sequence.
	reopened, err := Open(ctx, store)
	require.NoError(t, err)
	last, ok := reopened.LastVersion()
	require.True(t, ok)
	require.EqualValues(t, 2, last)
	replayed, err := reopened.Recover(ctx)
	require.NoError(t, err)
	require.Equal(t, full, replayed)
}

func TestCheckpointAllFansOutAcrossRegions(t *testing.T) {
	ctx := context.Background()
	manifests := make([]*Manifest, 3)
	for i := range manifests {
		store, err := objstore.New(vfs.NewMem(), fmt.Sprintf("/region-%d", i))
		require.NoError(t, err)
		m, err := Open(ctx, store)
		require.NoError(t, err)
		_, err = m.Update(ctx, WithAction(NewChangeAction(FromSchema(schema.TableID(i), 0, testSchema()), uint64(i))))
		require.NoError(t, err)
		m.SetFlushedManifestVersion(0)
		manifests[i] = m
	}

	ckpts, err := CheckpointAll(ctx, manifests)
	require.NoError(t, err)
	require.Len(t, ckpts, 3)
	for i, ckpt := range ckpts {
		require.NotNil(t, ckpt)
		require.EqualValues(t, 0, ckpt.LastVersion)
		require.EqualValues(t, i, ckpt.Data.CommittedSequence)
	}
}

func testSchema() schema.Schema {
	return schema.Schema{
		Columns: []schema.ColumnSchema{
			{Name: "ts", Kind: schema.KindTimestamp, DataType: schema.TypeTimestampMillisecond},
			{Name: "value", Kind: schema.KindField, DataType: schema.TypeFloat64, Nullable: true},
		},
		TimeIndex:    0,
		FieldIndices: []int{1},
	}
}
