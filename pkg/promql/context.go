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

package promql

import "github.com/prometheus/prometheus/model/labels"

// plannerContext is the mutable record threaded through recursive plan
// construction: the query window, plus the planner state set by
// preprocessing and setupContext as translation descends into the AST.
type plannerContext struct {
	// Query window, all millisecond instants/durations.
	start, end, interval, lookbackDelta int64

	// Resolved by preprocessing a VectorSelector/MatrixSelector's matchers.
	tableName string

	// Bound by setupContext from the resolved table's schema.
	timeIndexColumn string
	fieldColumns    []string
	tagColumns      []string

	// Set when a `__field__` pseudo-label matcher is present.
	fieldColumnMatchers []*labels.Matcher

	// Set when translating a MatrixSelector; 0 means "no range selector."
	hasRange bool
	rangeMs  int64
}

func (c *plannerContext) cloneFieldColumns() []string {
	out := make([]string, len(c.fieldColumns))
	copy(out, c.fieldColumns)
	return out
}
