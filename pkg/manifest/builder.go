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

// dataBuilder folds a sequence of Change/Edit actions into a
// RegionManifestData, seeded from a prior checkpoint when one exists. A
// fresh builder (no prior checkpoint) starts from a zero-valued
// RegionManifestData, exactly as a region created from nothing would.
//
// The Edit fold is version-tagged: applyEdit records the scanned log
// version it came from into Version.ManifestVersion, so a round that
// compacts no Edit actions leaves ManifestVersion (and FlushedSequence)
// untouched, carried over from whatever the seed checkpoint held.
type dataBuilder struct {
	data *RegionManifestData
}

func newDataBuilder() *dataBuilder {
	return &dataBuilder{data: newRegionManifestData()}
}

// withCheckpoint seeds the builder from a prior checkpoint's folded data.
func withCheckpoint(seed *RegionManifestData) *dataBuilder {
	if seed == nil {
		return newDataBuilder()
	}
	return &dataBuilder{data: seed.clone()}
}

func (b *dataBuilder) applyChange(a Action) {
	if a.ChangeMetadata != nil {
		b.data.Metadata = *a.ChangeMetadata
	}
	b.data.CommittedSequence = a.CommittedSequence
}

func (b *dataBuilder) applyEdit(version uint64, a Action) {
	v := b.data.Version
	v.ManifestVersion = version
	for _, f := range a.FilesToRemove {
		delete(v.Files, f)
	}
	for _, f := range a.FilesToAdd {
		v.Files[f] = struct{}{}
	}
	if a.FlushedSequence != nil {
		seq := *a.FlushedSequence
		v.FlushedSequence = &seq
	}
}

func (b *dataBuilder) build() *RegionManifestData {
	return b.data
}
