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
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"gitee.com/kwbasedb/kwts/pkg/objstore"
	"gitee.com/kwbasedb/kwts/pkg/util/kwtserror"
	"gitee.com/kwbasedb/kwts/pkg/util/stop"
)

// noFlushedVersion marks that SetFlushedManifestVersion has never been
// called: checkpointing treats this as "nothing is eligible yet" rather
// than silently compacting everything.
const noFlushedVersion = ^uint64(0)

// Manifest is the append-only action log for a single region: Update
// appends, Scan replays, and a background checkpointer/GC pair compact and
// reclaim old log objects. One Manifest serializes all appends for its
// region; cross-region work fans out one Manifest per region.
type Manifest struct {
	log *logStore

	mu          sync.Mutex
	hasVersion  bool
	nextVersion uint64
	protocol    Action

	flushedManifestVersion atomic.Uint64

	checkpointMu sync.Mutex

	gc *gcLoop
}

// Open constructs a Manifest backed by store, recovering its version
// cursor and in-force protocol from whatever checkpoint and log objects
// already exist. A brand-new, empty store yields a manifest with no
// committed version.
func Open(ctx context.Context, store *objstore.Store) (*Manifest, error) {
	m := &Manifest{log: &logStore{store: store}, protocol: defaultProtocol()}
	m.flushedManifestVersion.Store(noFlushedVersion)

	ckptVersion, hasCkpt, err := m.log.currentCheckpointVersion()
	if err != nil {
		return nil, kwtserror.Wrapf(kwtserror.ErrScanTableManifest, "reading CURRENT pointer: %v", err)
	}
	nextVersion := MinVersion
	if hasCkpt {
		ckpt, err := m.log.getCheckpoint(ckptVersion)
		if err != nil {
			return nil, kwtserror.Wrapf(kwtserror.ErrScanTableManifest, "loading checkpoint %d: %v", ckptVersion, err)
		}
		m.protocol = ckpt.Protocol
		nextVersion = Version(ckpt.LastVersion + 1)
		m.hasVersion = true
	}

	logVersions, err := m.log.listLogVersions()
	if err != nil {
		return nil, kwtserror.Wrapf(kwtserror.ErrScanTableManifest, "listing log objects: %v", err)
	}
	for _, v := range logVersions {
		if v < uint64(nextVersion) {
			continue
		}
		list, err := m.log.getLog(v)
		if err != nil {
			return nil, kwtserror.Wrapf(kwtserror.ErrScanTableManifest, "loading log %d: %v", v, err)
		}
		for _, a := range list.Actions {
			if a.Kind == KindProtocol {
				m.protocol = a
			}
		}
		nextVersion = Version(v + 1)
		m.hasVersion = true
	}
	m.nextVersion = uint64(nextVersion)
	return m, nil
}

// Update appends list as the next committed version, returning the
// version it was assigned. The very first append to an empty manifest has
// the current Protocol action prepended automatically, so a reader
// scanning from MinVersion always sees the protocol in force before any
// Change.
func (m *Manifest) Update(ctx context.Context, list ActionList) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	version := m.nextVersion
	persisted := list
	if !m.hasVersion {
		persisted = ActionList{Actions: append([]Action{m.protocol}, list.Actions...)}
	}
	if err := m.log.putLog(version, persisted); err != nil {
		return 0, kwtserror.Wrapf(kwtserror.ErrUpdateTableManifest, "version %d: %v", version, err)
	}
	for _, a := range persisted.Actions {
		if a.Kind == KindProtocol {
			m.protocol = a
		}
	}
	m.hasVersion = true
	m.nextVersion = version + 1
	return version, nil
}

// Recover rebuilds the region's folded state: it seeds a builder from the
// last checkpoint (if any) and replays every committed action list above
// it. Replaying from the checkpoint's last version + 1 yields the same
// state as replaying the whole log from MinVersion would. A checkpoint
// that compacted zero actions should not exist and is ignored.
func (m *Manifest) Recover(ctx context.Context) (*RegionManifestData, error) {
	ckpt, err := m.LastCheckpoint(ctx)
	if err != nil {
		return nil, err
	}
	startVersion := uint64(MinVersion)
	builder := newDataBuilder()
	if ckpt != nil && ckpt.CompactedActions > 0 {
		startVersion = ckpt.LastVersion + 1
		builder = withCheckpoint(ckpt.Data)
	}
	res, err := m.Scan(ctx, startVersion, uint64(MaxVersion))
	if err != nil {
		return nil, err
	}
	for _, entry := range res.Entries {
		for _, a := range entry.List.Actions {
			switch a.Kind {
			case KindChange:
				builder.applyChange(a)
			case KindEdit:
				builder.applyEdit(entry.Version, a)
			case KindProtocol:
				// Already tracked by Open.
			case KindRemove:
				return nil, errors.Newf("unimplemented action kind %q at version %d", a.Kind, entry.Version)
			default:
				return nil, kwtserror.Wrapf(kwtserror.ErrConvertRaw,
					"unknown action kind %q at version %d", a.Kind, entry.Version)
			}
		}
	}
	return builder.build(), nil
}

// LastVersion returns the highest committed version and whether any
// version has ever been committed.
func (m *Manifest) LastVersion() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasVersion {
		return 0, false
	}
	return m.nextVersion - 1, true
}

// Scan replays committed versions in [from, to), returning them in
// ascending order alongside the most recent Protocol action observed in
// the scanned range (or the default protocol if the range holds no
// Protocol action).
func (m *Manifest) Scan(ctx context.Context, from, to uint64) (scanResult, error) {
	m.mu.Lock()
	hasVersion := m.hasVersion
	upperExclusive := m.nextVersion
	m.mu.Unlock()

	if !hasVersion {
		return scanResult{LastProtocol: defaultProtocol()}, nil
	}
	if to < upperExclusive {
		upperExclusive = to
	}
	result := scanResult{LastProtocol: defaultProtocol()}
	for v := from; v < upperExclusive; v++ {
		list, err := m.log.getLog(v)
		if err != nil {
			return scanResult{}, kwtserror.Wrapf(kwtserror.ErrScanTableManifest, "version %d: %v", v, err)
		}
		result.Entries = append(result.Entries, VersionedActionList{Version: v, List: list})
		for _, a := range list.Actions {
			if a.Kind == KindProtocol {
				result.LastProtocol = a
			}
		}
	}
	return result, nil
}

// LastCheckpoint returns the newest persisted checkpoint, or nil if none
// has ever been saved.
func (m *Manifest) LastCheckpoint(ctx context.Context) (*Checkpoint, error) {
	version, ok, err := m.log.currentCheckpointVersion()
	if err != nil {
		return nil, kwtserror.Wrapf(kwtserror.ErrManifestCheckpoint, "reading CURRENT pointer: %v", err)
	}
	if !ok {
		return nil, nil
	}
	ckpt, err := m.log.getCheckpoint(version)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			return nil, nil
		}
		return nil, kwtserror.Wrapf(kwtserror.ErrManifestCheckpoint, "loading checkpoint %d: %v", version, err)
	}
	return &ckpt, nil
}

// SaveCheckpoint persists ckpt and atomically advances the CURRENT
// pointer to it.
func (m *Manifest) SaveCheckpoint(ctx context.Context, ckpt Checkpoint) error {
	if err := m.log.putCheckpoint(ckpt.LastVersion, ckpt); err != nil {
		return kwtserror.Wrapf(kwtserror.ErrManifestCheckpoint, "saving checkpoint at version %d: %v", ckpt.LastVersion, err)
	}
	return nil
}

// SetFlushedManifestVersion records the version up to which the region's
// owning storage engine has durably flushed its data; checkpointing never
// compacts past this watermark. The watermark is monotonic non-decreasing;
// a call with a smaller version is ignored.
func (m *Manifest) SetFlushedManifestVersion(version uint64) {
	for {
		cur := m.flushedManifestVersion.Load()
		if cur != noFlushedVersion && version <= cur {
			return
		}
		if m.flushedManifestVersion.CompareAndSwap(cur, version) {
			return
		}
	}
}

func (m *Manifest) flushedVersion() (uint64, bool) {
	v := m.flushedManifestVersion.Load()
	return v, v != noFlushedVersion
}

// Start launches the background checkpointer/GC loop under stopper,
// running every interval until the stopper quiesces.
func (m *Manifest) Start(ctx context.Context, stopper *stop.Stopper, cfg GCConfig) error {
	m.gc = newGCLoop(m, cfg)
	return stopper.RunAsyncTask(ctx, "region-manifest-checkpointer", func(ctx context.Context) {
		m.gc.run(ctx, stopper)
	})
}
