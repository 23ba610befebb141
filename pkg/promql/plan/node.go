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

// Package plan is the logical plan produced by the promql planner: a
// closed Go sum type, one struct per node kind. Node trees are pure data —
// no execution logic lives here, the same separation kwbase's sql/opt/memo
// draws between expression shape and execution.
package plan

// Node is the sealed interface every plan node implements. The node set is
// fixed: six standard relational operators (Scan, Filter, Project,
// Aggregate, Sort, Join) plus the five PromQL-specific extension operators
// (SeriesDivide, SeriesNormalize, InstantManipulate, RangeManipulate,
// EmptyMetric).
type Node interface {
	isNode()
}

// Scan is a leaf reading rows from a resolved table, with pushdown filters
// already attached.
type Scan struct {
	Table   string
	Filters []Expr
}

func (*Scan) isNode() {}

// Filter keeps rows where Predicate evaluates true.
type Filter struct {
	Input     Node
	Predicate Expr
}

func (*Filter) isNode() {}

// Project replaces the input's columns with Exprs (typically a mix of
// pass-through tag/time-index columns and computed/aliased field columns).
type Project struct {
	Input Node
	Exprs []Expr
}

func (*Project) isNode() {}

// Aggregate groups Input by GroupBy and reduces each remaining column with
// one of Aggregates.
type Aggregate struct {
	Input      Node
	GroupBy    []Expr
	Aggregates []Expr
}

func (*Aggregate) isNode() {}

// Sort orders Input by Exprs.
type Sort struct {
	Input Node
	Exprs []SortExpr
}

func (*Sort) isNode() {}

// Join is an inner-join of Left and Right on the named columns, with Left
// rows qualified by LeftAlias to disambiguate identically-named columns on
// both sides.
type Join struct {
	Left, Right Node
	On          []string
	LeftAlias   string
}

func (*Join) isNode() {}

// SeriesDivide groups a (tags…, time_index)-sorted input into per-series
// contiguous partitions keyed by the tag tuple.
type SeriesDivide struct {
	Input      Node
	TagColumns []string
}

func (*SeriesDivide) isNode() {}

// SeriesNormalize adjusts each row's time index by OffsetMs, optionally
// drops NaN field values (only meaningful feeding a range selector), and
// keeps the per-series stream monotonic in time.
type SeriesNormalize struct {
	Input           Node
	OffsetMs        int64
	TimeIndexColumn string
	FilterNaN       bool
}

func (*SeriesNormalize) isNode() {}

// InstantManipulate resamples a normalized per-series stream onto the
// evaluation grid {Start, Start+Interval, …, End}, picking the most recent
// sample within LookbackDelta of each point.
type InstantManipulate struct {
	Input           Node
	Start, End      int64
	LookbackDelta   int64
	Interval        int64
	TimeIndexColumn string
	FieldColumn     string // empty if the selector resolved no field column
}

func (*InstantManipulate) isNode() {}

// RangeManipulate resamples a normalized per-series stream onto the
// evaluation grid, bundling every sample in (t-Range, t] per point per
// field column, feeding range-vector functions (rate, increase, ...).
type RangeManipulate struct {
	Input           Node
	Start, End      int64
	Interval        int64
	Range           int64
	TimeIndexColumn string
	FieldColumns    []string
}

func (*RangeManipulate) isNode() {}

// EmptyMetric is a source emitting {(t, 0.0) | t in the evaluation grid},
// used for the PromQL time() function.
type EmptyMetric struct {
	Start, End, Interval int64
	TimeIndexColumn      string
	FieldColumn          string
}

func (*EmptyMetric) isNode() {}

// TimestampRangeColumnName is the single synthetic pseudo-column
// RangeManipulate attaches, shared by all field columns, carrying the
// bundled range-vector samples a range-vector function (rate, increase,
// *_over_time) consumes.
func TimestampRangeColumnName(timeIndexColumn string) string {
	return timeIndexColumn + "_range"
}
