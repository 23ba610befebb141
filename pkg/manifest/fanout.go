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

	"golang.org/x/sync/errgroup"
)

// CheckpointAll runs DoCheckpoint concurrently across every region manifest
// in manifests, one goroutine per region. It fails fast: the first error
// cancels ctx for the remaining in-flight goroutines, but checkpoints that
// already landed before the cancellation are not rolled back.
func CheckpointAll(ctx context.Context, manifests []*Manifest) ([]*Checkpoint, error) {
	out := make([]*Checkpoint, len(manifests))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range manifests {
		i, m := i, m
		g.Go(func() error {
			ckpt, err := m.DoCheckpoint(gctx)
			if err != nil {
				return err
			}
			out[i] = ckpt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
