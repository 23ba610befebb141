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

	"github.com/cockroachdb/errors"

	"gitee.com/kwbasedb/kwts/pkg/objstore"
	"gitee.com/kwbasedb/kwts/pkg/util/kwtserror"
	"gitee.com/kwbasedb/kwts/pkg/util/log"
)

// DoCheckpoint folds every committed action list up to
// min(LastVersion(), flushed manifest version) into a new checkpoint,
// persists it, and deletes the log objects it just folded in. It returns (nil, nil) when there is
// nothing eligible to compact: no flushed watermark has been set yet, or
// the watermark hasn't advanced past the last checkpoint's last version.
//
// Only one DoCheckpoint runs at a time per Manifest.
func (m *Manifest) DoCheckpoint(ctx context.Context) (*Checkpoint, error) {
	m.checkpointMu.Lock()
	defer m.checkpointMu.Unlock()

	prev, err := m.LastCheckpoint(ctx)
	if err != nil {
		return nil, err
	}

	var (
		startVersion uint64
		builder      *dataBuilder
		protocol     Action
	)
	if prev != nil {
		startVersion = prev.LastVersion + 1
		builder = withCheckpoint(prev.Data)
		protocol = prev.Protocol
	} else {
		startVersion = uint64(MinVersion)
		builder = newDataBuilder()
		protocol = defaultProtocol()
	}

	currentVersion, hasVersion := m.LastVersion()
	if !hasVersion {
		return nil, nil
	}
	flushed, hasFlushed := m.flushedVersion()
	if !hasFlushed {
		return nil, nil
	}
	endVersion := currentVersion
	if flushed < endVersion {
		endVersion = flushed
	}
	endVersion++ // exclusive

	if startVersion >= endVersion {
		return nil, nil
	}

	scanRes, err := m.Scan(ctx, startVersion, endVersion)
	if err != nil {
		return nil, err
	}

	var (
		lastVersionSeen uint64
		compacted       uint64
	)
	for _, entry := range scanRes.Entries {
		compacted++
		lastVersionSeen = entry.Version
		for _, a := range entry.List.Actions {
			switch a.Kind {
			case KindChange:
				builder.applyChange(a)
			case KindEdit:
				builder.applyEdit(entry.Version, a)
			case KindProtocol:
				protocol = a
			default:
				return nil, kwtserror.Wrapf(kwtserror.ErrManifestCheckpoint,
					"unexpected action kind %q at version %d", a.Kind, entry.Version)
			}
		}
	}
	if compacted == 0 {
		return nil, nil
	}

	ckpt := Checkpoint{
		Protocol:         protocol,
		LastVersion:      lastVersionSeen,
		CompactedActions: compacted,
		Data:             builder.build(),
	}
	if err := m.SaveCheckpoint(ctx, ckpt); err != nil {
		return nil, err
	}

	for v := startVersion; v <= lastVersionSeen; v++ {
		if err := m.log.deleteLog(v); err != nil {
			if errors.Is(err, objstore.ErrNotFound) {
				continue
			}
			log.Warningf(ctx, "region manifest: failed to delete compacted log object at version %d: %v", v, err)
			continue
		}
	}

	log.Infof(ctx, "region manifest checkpoint: start_version=%d last_version=%d compacted_actions=%d",
		startVersion, lastVersionSeen, compacted)
	return &ckpt, nil
}
