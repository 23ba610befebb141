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

// RegionVersion is the folded, region-local file-set state an Edit action
// advances: the manifest version at which it was last touched, the most
// recently flushed write sequence, and the current file set.
type RegionVersion struct {
	ManifestVersion uint64
	FlushedSequence *uint64
	Files           map[string]struct{}
}

func newRegionVersion() *RegionVersion {
	return &RegionVersion{Files: map[string]struct{}{}}
}

func (v *RegionVersion) clone() *RegionVersion {
	out := &RegionVersion{ManifestVersion: v.ManifestVersion, Files: make(map[string]struct{}, len(v.Files))}
	if v.FlushedSequence != nil {
		seq := *v.FlushedSequence
		out.FlushedSequence = &seq
	}
	for f := range v.Files {
		out.Files[f] = struct{}{}
	}
	return out
}

// FileList returns the region's current files, in no particular order.
func (v *RegionVersion) FileList() []string {
	out := make([]string, 0, len(v.Files))
	for f := range v.Files {
		out = append(out, f)
	}
	return out
}

// RegionManifestData is the folded, replay-produced state of a region's
// manifest: its current metadata, committed write sequence, and file-set
// version.
type RegionManifestData struct {
	Metadata          RawRegionMetadata
	CommittedSequence uint64
	Version           *RegionVersion
}

func newRegionManifestData() *RegionManifestData {
	return &RegionManifestData{Version: newRegionVersion()}
}

func (d *RegionManifestData) clone() *RegionManifestData {
	return &RegionManifestData{
		Metadata:          d.Metadata,
		CommittedSequence: d.CommittedSequence,
		Version:           d.Version.clone(),
	}
}

// Checkpoint is the persisted, self-contained compaction artifact
// checkpointing produces: the protocol in force, the last version folded
// in, how many action lists it replaced, and the folded state itself (nil
// when nothing was ever compacted).
type Checkpoint struct {
	Protocol         Action
	LastVersion      uint64
	CompactedActions uint64
	Data             *RegionManifestData
}
