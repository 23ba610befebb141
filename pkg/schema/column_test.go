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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validSchema() Schema {
	return Schema{
		Columns: []ColumnSchema{
			{Name: "tag_0", Kind: KindTag},
			{Name: "ts", Kind: KindTimestamp, DataType: TypeTimestampMillisecond},
			{Name: "field_0", Kind: KindField, DataType: TypeFloat64},
		},
		TimeIndex:         1,
		PrimaryKeyIndices: []int{0},
		FieldIndices:      []int{2},
	}
}

func TestSchemaValidateAcceptsWellFormedSchema(t *testing.T) {
	s := validSchema()
	require.NoError(t, s.Validate())
}

func TestSchemaValidateRejectsDuplicateNames(t *testing.T) {
	s := validSchema()
	s.Columns = append(s.Columns, ColumnSchema{Name: "tag_0", Kind: KindField})
	require.Error(t, s.Validate())
}

func TestSchemaValidateRejectsZeroOrMultipleTimeIndices(t *testing.T) {
	none := validSchema()
	none.Columns[1].Kind = KindTag
	require.Error(t, none.Validate())

	two := validSchema()
	two.Columns = append(two.Columns, ColumnSchema{Name: "ts2", Kind: KindTimestamp})
	require.Error(t, two.Validate())
}

func TestSchemaValidateRejectsZeroFieldColumns(t *testing.T) {
	s := validSchema()
	s.Columns[2].Kind = KindTag
	require.Error(t, s.Validate())
}

func TestSchemaValidateRejectsNullableTagOrTimeIndex(t *testing.T) {
	nullableTag := validSchema()
	nullableTag.Columns[0].Nullable = true
	require.Error(t, nullableTag.Validate())

	nullableTime := validSchema()
	nullableTime.Columns[1].Nullable = true
	require.Error(t, nullableTime.Validate())
}

func TestSchemaNameAccessors(t *testing.T) {
	s := validSchema()
	require.Equal(t, "ts", s.TimeIndexName())
	require.Equal(t, []string{"tag_0"}, s.TagNames())
	require.Equal(t, []string{"field_0"}, s.FieldNames())

	col, idx, ok := s.ColumnByName("field_0")
	require.True(t, ok)
	require.Equal(t, 2, idx)
	require.Equal(t, KindField, col.Kind)

	_, _, ok = s.ColumnByName("nonexistent")
	require.False(t, ok)
}
