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

// Package schema is the shared table/region metadata model:
// the canonical in-memory record of a table's schema, options, and region
// set, consumed by both the promql planner and the region manifest.
package schema

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ColumnKind distinguishes the three disjoint column roles a schema
// requires: exactly one time index, zero-or-more tags, one-or-more fields.
type ColumnKind int

const (
	// KindTag marks a primary-key (row key) column.
	KindTag ColumnKind = iota
	// KindTimestamp marks the single time-index column.
	KindTimestamp
	// KindField marks a value column subject to arithmetic/aggregation.
	KindField
)

func (k ColumnKind) String() string {
	switch k {
	case KindTag:
		return "tag"
	case KindTimestamp:
		return "timestamp"
	case KindField:
		return "field"
	default:
		return "unknown"
	}
}

// ScalarType is the concrete type carried by a column.
type ScalarType int

const (
	TypeInt64 ScalarType = iota
	TypeFloat64
	TypeString
	TypeBoolean
	TypeTimestampMillisecond
)

func (t ScalarType) String() string {
	switch t {
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeString:
		return "string"
	case TypeBoolean:
		return "boolean"
	case TypeTimestampMillisecond:
		return "timestamp_ms"
	default:
		return "unknown"
	}
}

// DefaultConstraint is a small sum type for a column's default-value
// constraint: "none", a literal value, or current_timestamp.
type DefaultConstraint struct {
	// Kind is one of "none", "value", "current_timestamp".
	Kind  string
	Value interface{}
}

// NoDefault is the "none" constraint: no default.
var NoDefault = DefaultConstraint{Kind: "none"}

// ColumnSchema describes a single column.
type ColumnSchema struct {
	Name     string
	Kind     ColumnKind
	DataType ScalarType
	Nullable bool
	Default  DefaultConstraint
}

// Schema is a table's fixed, ordered column list plus the indices of the
// primary-key and field columns inside that column list.
type Schema struct {
	Columns []ColumnSchema

	// TimeIndex is the index of the single time-index column in Columns.
	TimeIndex int
	// PrimaryKeyIndices are tag-column indices, in declared order; the time
	// index is conceptually part of the primary key but is tracked
	// separately since operators reference it independently.
	PrimaryKeyIndices []int
	// FieldIndices are field-column indices, in declared order.
	FieldIndices []int
}

// Validate enforces the schema invariants: exactly one time index, at
// least one field column, and pairwise-disjoint name sets.
func (s *Schema) Validate() error {
	seen := make(map[string]ColumnKind, len(s.Columns))
	timeIdxCount := 0
	fieldCount := 0
	for _, c := range s.Columns {
		if _, ok := seen[c.Name]; ok {
			return errors.Newf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = c.Kind
		switch c.Kind {
		case KindTimestamp:
			timeIdxCount++
			if c.Nullable {
				return errors.Newf("time index column %q must be non-nullable", c.Name)
			}
		case KindTag:
			if c.Nullable {
				return errors.Newf("tag column %q must be non-nullable", c.Name)
			}
		case KindField:
			fieldCount++
		default:
			return errors.Newf("column %q has unknown kind", c.Name)
		}
	}
	if timeIdxCount != 1 {
		return errors.Newf("schema must have exactly one time index column, got %d", timeIdxCount)
	}
	if fieldCount < 1 {
		return errors.New("schema must have at least one field column")
	}
	return nil
}

// ColumnByName returns the column and its index, or ok=false.
func (s *Schema) ColumnByName(name string) (ColumnSchema, int, bool) {
	for i, c := range s.Columns {
		if c.Name == name {
			return c, i, true
		}
	}
	return ColumnSchema{}, -1, false
}

// TimeIndexName returns the name of the schema's single time-index column.
func (s *Schema) TimeIndexName() string {
	return s.Columns[s.TimeIndex].Name
}

// TagNames returns tag column names in declared order.
func (s *Schema) TagNames() []string {
	names := make([]string, len(s.PrimaryKeyIndices))
	for i, idx := range s.PrimaryKeyIndices {
		names[i] = s.Columns[idx].Name
	}
	return names
}

// FieldNames returns field column names in declared order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.FieldIndices))
	for i, idx := range s.FieldIndices {
		names[i] = s.Columns[idx].Name
	}
	return names
}

// String implements fmt.Stringer for debug output.
func (s *Schema) String() string {
	return fmt.Sprintf("Schema{time=%s, tags=%v, fields=%v}", s.TimeIndexName(), s.TagNames(), s.FieldNames())
}
