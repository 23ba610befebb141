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

// TableReference names a table by its catalog/schema/table triple; the
// catalog and script layers that would resolve it are out of scope, but
// the manifest's Change actions still need to name the table they
// describe.
type TableReference struct {
	Catalog string
	Schema  string
	Table   string
}

// CreateTableRequest carries everything needed to seed a TableInfo and
// emit a region manifest's initial Change action. The table-engine that
// would execute it is out of scope; only the request shape feeding
// manifest actions is in scope here.
type CreateTableRequest struct {
	ID                TableID
	Ref               TableReference
	RawSchema         Schema
	RegionNumbers     []RegionNumber
	PrimaryKeyIndices []int
	CreateIfNotExists bool
	Options           TableOptions
	Engine            string
}

// AlterKind enumerates the shapes a table alteration can take.
type AlterKind int

const (
	AlterAddColumns AlterKind = iota
	AlterDropColumns
	AlterRenameTable
)

// AddColumnRequest describes one column addition.
type AddColumnRequest struct {
	Column ColumnSchema
	IsKey  bool
}

// AlterTableRequest carries a single alteration, applied under the table's
// alter lock.
type AlterTableRequest struct {
	Ref          TableReference
	Kind         AlterKind
	AddColumns   []AddColumnRequest
	DropNames    []string
	NewTableName string
}

// IsRenameTable reports whether this alter is a pure rename.
func (r *AlterTableRequest) IsRenameTable() bool {
	return r.Kind == AlterRenameTable
}

// DropTableRequest names a table to drop. The actual Remove-action
// semantics are unimplemented (see DESIGN.md); this type exists so callers
// have somewhere to express the intent.
type DropTableRequest struct {
	Ref TableReference
}
