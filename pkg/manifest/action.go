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

// Package manifest implements the region manifest subsystem:
// an append-only log of metadata actions for a single region, layered on
// objstore.Store, with a checkpoint compactor, a version cursor, and a
// background garbage collector.
package manifest

import (
	"encoding/json"

	"gitee.com/kwbasedb/kwts/pkg/schema"
)

// Version is the dense, 64-bit manifest version counter. Every appended
// action list consumes exactly one version.
type Version uint64

// MinVersion is the first version a fresh manifest log uses.
const MinVersion Version = 0

// MaxVersion bounds an open-ended scan.
const MaxVersion Version = ^Version(0)

// ActionKind tags the discriminated union an Action carries on the wire.
type ActionKind string

const (
	KindProtocol ActionKind = "protocol"
	KindChange   ActionKind = "change"
	KindEdit     ActionKind = "edit"
	KindRemove   ActionKind = "remove"
)

// RawRegionMetadata is the full, self-contained description of a region's
// schema and identity carried by a Change action: it is "raw"
// in the sense that it is a plain value type suitable for wire encoding,
// as opposed to the live, indexed schema.Schema a reader would build from
// it.
type RawRegionMetadata struct {
	TableID           schema.TableID        `json:"table_id"`
	Region            schema.RegionNumber   `json:"region"`
	Columns           []schema.ColumnSchema `json:"columns"`
	TimeIndex         int                   `json:"time_index"`
	PrimaryKeyIndices []int                 `json:"primary_key_indices"`
	FieldIndices      []int                 `json:"field_indices"`
}

// ToSchema reconstructs the live schema.Schema this raw metadata describes.
func (m RawRegionMetadata) ToSchema() schema.Schema {
	return schema.Schema{
		Columns:           m.Columns,
		TimeIndex:         m.TimeIndex,
		PrimaryKeyIndices: m.PrimaryKeyIndices,
		FieldIndices:      m.FieldIndices,
	}
}

// FromSchema builds a RawRegionMetadata from a live schema, for a given
// region.
func FromSchema(tableID schema.TableID, region schema.RegionNumber, s schema.Schema) RawRegionMetadata {
	return RawRegionMetadata{
		TableID:           tableID,
		Region:            region,
		Columns:           s.Columns,
		TimeIndex:         s.TimeIndex,
		PrimaryKeyIndices: s.PrimaryKeyIndices,
		FieldIndices:      s.FieldIndices,
	}
}

// Action is the tagged union of the four kinds of change a region's log
// can record: Change, Edit, Protocol, or Remove.
type Action struct {
	Kind ActionKind `json:"kind"`

	// Change fields.
	ChangeMetadata    *RawRegionMetadata `json:"change_metadata,omitempty"`
	CommittedSequence uint64             `json:"committed_sequence,omitempty"`

	// Edit fields.
	EditRegionVersion uint64   `json:"edit_region_version,omitempty"`
	FilesToAdd        []string `json:"files_to_add,omitempty"`
	FilesToRemove     []string `json:"files_to_remove,omitempty"`
	FlushedSequence   *uint64  `json:"flushed_sequence,omitempty"`

	// Protocol fields.
	MinReaderVersion uint32 `json:"min_reader_version,omitempty"`
	MinWriterVersion uint32 `json:"min_writer_version,omitempty"`
}

// NewChangeAction builds a Change action replacing the region's metadata
// and recording the committed write sequence number.
func NewChangeAction(metadata RawRegionMetadata, committedSequence uint64) Action {
	return Action{
		Kind:              KindChange,
		ChangeMetadata:    &metadata,
		CommittedSequence: committedSequence,
	}
}

// NewEditAction builds an Edit action updating the region's file set.
func NewEditAction(regionVersion uint64, filesToAdd, filesToRemove []string, flushedSequence *uint64) Action {
	return Action{
		Kind:              KindEdit,
		EditRegionVersion: regionVersion,
		FilesToAdd:        filesToAdd,
		FilesToRemove:     filesToRemove,
		FlushedSequence:   flushedSequence,
	}
}

// NewProtocolAction builds a Protocol action bumping the min reader/writer
// protocol version understood by this log.
func NewProtocolAction(minReader, minWriter uint32) Action {
	return Action{
		Kind:             KindProtocol,
		MinReaderVersion: minReader,
		MinWriterVersion: minWriter,
	}
}

// NewRemoveAction builds a Remove (tombstone) action. Recovery rejects this
// action kind today.
func NewRemoveAction() Action {
	return Action{Kind: KindRemove}
}

// ActionList is the atomic unit of append: an ordered bundle of one or more
// actions.
type ActionList struct {
	Actions []Action `json:"actions"`
}

// WithAction builds a single-action list.
func WithAction(a Action) ActionList {
	return ActionList{Actions: []Action{a}}
}

// Marshal and UnmarshalActionList round-trip an ActionList through its
// JSON encoding without the caller depending on encoding/json directly.
func (l ActionList) Marshal() ([]byte, error) { return json.Marshal(l) }

// UnmarshalActionList decodes a JSON-encoded ActionList.
func UnmarshalActionList(data []byte) (ActionList, error) {
	var l ActionList
	err := json.Unmarshal(data, &l)
	return l, err
}
