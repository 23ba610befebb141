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

package main

import (
	"context"
	"fmt"

	"github.com/cockroachdb/pebble/vfs"
	"github.com/spf13/cobra"

	"gitee.com/kwbasedb/kwts/pkg/manifest"
	"gitee.com/kwbasedb/kwts/pkg/objstore"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "inspect or compact a region manifest directory",
}

var manifestInspectCmd = &cobra.Command{
	Use:   "inspect <dir>",
	Short: "print a region manifest's recovered state",
	Args:  cobra.ExactArgs(1),
	RunE:  runManifestInspect,
}

var manifestGCCmd = &cobra.Command{
	Use:   "gc <dir> [dir...]",
	Short: "run one checkpoint pass over one or more region manifests concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runManifestGC,
}

func init() {
	manifestCmd.AddCommand(manifestInspectCmd, manifestGCCmd)
}

func openManifest(dir string) (*manifest.Manifest, error) {
	store, err := objstore.New(vfs.Default, dir)
	if err != nil {
		return nil, err
	}
	return manifest.Open(context.Background(), store)
}

func runManifestInspect(cmd *cobra.Command, args []string) error {
	m, err := openManifest(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()

	version, hasVersion := m.LastVersion()
	if !hasVersion {
		fmt.Fprintln(cmd.OutOrStdout(), "manifest has no committed versions")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "last version: %d\n", version)

	ckpt, err := m.LastCheckpoint(ctx)
	if err != nil {
		return err
	}
	if ckpt == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "no checkpoint")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "checkpoint version: %d (compacted %d actions)\n", ckpt.LastVersion, ckpt.CompactedActions)
	if ckpt.Data != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "region: %d, committed sequence: %d\n", ckpt.Data.Metadata.Region, ckpt.Data.CommittedSequence)
		if v := ckpt.Data.Version; v != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "files: %v\n", v.FileList())
		}
	}
	return nil
}

func runManifestGC(cmd *cobra.Command, args []string) error {
	manifests := make([]*manifest.Manifest, len(args))
	for i, dir := range args {
		m, err := openManifest(dir)
		if err != nil {
			return err
		}
		manifests[i] = m
	}

	ckpts, err := manifest.CheckpointAll(context.Background(), manifests)
	if err != nil {
		return err
	}
	for i, ckpt := range ckpts {
		if ckpt == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: nothing to checkpoint\n", args[i])
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: checkpointed through version %d (%d actions compacted)\n", args[i], ckpt.LastVersion, ckpt.CompactedActions)
	}
	return nil
}
