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
	"time"

	"github.com/cockroachdb/errors"

	"gitee.com/kwbasedb/kwts/pkg/objstore"
	"gitee.com/kwbasedb/kwts/pkg/util/log"
	"gitee.com/kwbasedb/kwts/pkg/util/stop"
)

// GCConfig controls the background checkpointer/GC loop's timing. A
// manifest's interval and retention are fixed at Start time.
type GCConfig struct {
	// CheckpointInterval is how often DoCheckpoint is attempted.
	CheckpointInterval time.Duration
	// GCDuration is how long a checkpoint stays around after a newer one
	// supersedes it before its object is deleted, bounding the window a
	// slow reader has to finish using it.
	GCDuration time.Duration
}

// DefaultGCConfig is the timing used when Start is handed a zero config.
var DefaultGCConfig = GCConfig{
	CheckpointInterval: 30 * time.Second,
	GCDuration:         10 * time.Minute,
}

// gcLoop drives periodic checkpointing and reclaims superseded log and
// checkpoint objects.
type gcLoop struct {
	m   *Manifest
	cfg GCConfig

	mu           sync.Mutex
	supersededAt map[uint64]time.Time
}

func newGCLoop(m *Manifest, cfg GCConfig) *gcLoop {
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = DefaultGCConfig.CheckpointInterval
	}
	if cfg.GCDuration <= 0 {
		cfg.GCDuration = DefaultGCConfig.GCDuration
	}
	return &gcLoop{m: m, cfg: cfg, supersededAt: map[uint64]time.Time{}}
}

func (g *gcLoop) run(ctx context.Context, stopper *stop.Stopper) {
	ticker := time.NewTicker(g.cfg.CheckpointInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopper.ShouldQuiesce():
			return
		case <-ticker.C:
			g.tick(ctx)
		}
	}
}

func (g *gcLoop) tick(ctx context.Context) {
	if _, err := g.m.DoCheckpoint(ctx); err != nil {
		log.Warningf(ctx, "region manifest: checkpoint attempt failed: %v", err)
	}
	g.sweepLogs(ctx)
	g.sweepCheckpoints(ctx)
}

// sweepLogs re-attempts deletion of any log object at or below the
// newest checkpoint's last version, covering the case where
// DoCheckpoint's own inline deletion (checkpoint.go) failed and logged a
// warning instead of erroring out.
func (g *gcLoop) sweepLogs(ctx context.Context) {
	ckpt, err := g.m.LastCheckpoint(ctx)
	if err != nil {
		log.Warningf(ctx, "region manifest: gc failed to read last checkpoint: %v", err)
		return
	}
	if ckpt == nil {
		return
	}
	versions, err := g.m.log.listLogVersions()
	if err != nil {
		log.Warningf(ctx, "region manifest: gc failed to list log objects: %v", err)
		return
	}
	for _, v := range versions {
		if v > ckpt.LastVersion {
			continue
		}
		if err := g.m.log.deleteLog(v); err != nil && !errors.Is(err, objstore.ErrNotFound) {
			log.Warningf(ctx, "region manifest: gc failed to delete log object at version %d: %v", v, err)
		}
	}
}

// sweepCheckpoints deletes checkpoint objects once they have been
// superseded by a newer checkpoint for at least GCDuration, giving a
// reader that opened the old checkpoint a bounded grace window.
func (g *gcLoop) sweepCheckpoints(ctx context.Context) {
	current, ok, err := g.m.log.currentCheckpointVersion()
	if err != nil {
		log.Warningf(ctx, "region manifest: gc failed to read CURRENT pointer: %v", err)
		return
	}
	versions, err := g.m.log.listCheckpointVersions()
	if err != nil {
		log.Warningf(ctx, "region manifest: gc failed to list checkpoint objects: %v", err)
		return
	}

	now := time.Now()
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, v := range versions {
		if ok && v == current {
			delete(g.supersededAt, v)
			continue
		}
		since, marked := g.supersededAt[v]
		if !marked {
			g.supersededAt[v] = now
			continue
		}
		if now.Sub(since) < g.cfg.GCDuration {
			continue
		}
		if err := g.m.log.deleteCheckpoint(v); err != nil && !errors.Is(err, objstore.ErrNotFound) {
			log.Warningf(ctx, "region manifest: gc failed to delete checkpoint at version %d: %v", v, err)
			continue
		}
		delete(g.supersededAt, v)
	}
}
