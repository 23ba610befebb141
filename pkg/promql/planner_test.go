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

import (
	"context"
	"reflect"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/prometheus/promql/parser"

	"gitee.com/kwbasedb/kwts/pkg/promql/plan"
	"gitee.com/kwbasedb/kwts/pkg/schema"
	"gitee.com/kwbasedb/kwts/pkg/util/kwtserror"
)

func twoTagTwoFieldCatalog() StaticCatalog {
	return StaticCatalog{
		"some_metric": &TableHandle{
			Name: "some_metric",
			Schema: schema.Schema{
				Columns: []schema.ColumnSchema{
					{Name: "tag_0", Kind: schema.KindTag, DataType: schema.TypeString},
					{Name: "tag_1", Kind: schema.KindTag, DataType: schema.TypeString},
					{Name: "ts", Kind: schema.KindTimestamp, DataType: schema.TypeTimestampMillisecond},
					{Name: "field_0", Kind: schema.KindField, DataType: schema.TypeFloat64},
					{Name: "field_1", Kind: schema.KindField, DataType: schema.TypeFloat64},
				},
				TimeIndex:         2,
				PrimaryKeyIndices: []int{0, 1},
				FieldIndices:      []int{3, 4},
			},
		},
	}
}

func threeTagThreeFieldCatalog() StaticCatalog {
	return StaticCatalog{
		"some_metric": &TableHandle{
			Name: "some_metric",
			Schema: schema.Schema{
				Columns: []schema.ColumnSchema{
					{Name: "tag_0", Kind: schema.KindTag, DataType: schema.TypeString},
					{Name: "tag_1", Kind: schema.KindTag, DataType: schema.TypeString},
					{Name: "tag_2", Kind: schema.KindTag, DataType: schema.TypeString},
					{Name: "ts", Kind: schema.KindTimestamp, DataType: schema.TypeTimestampMillisecond},
					{Name: "field_0", Kind: schema.KindField, DataType: schema.TypeFloat64},
					{Name: "field_1", Kind: schema.KindField, DataType: schema.TypeFloat64},
					{Name: "field_2", Kind: schema.KindField, DataType: schema.TypeFloat64},
				},
				TimeIndex:         3,
				PrimaryKeyIndices: []int{0, 1, 2},
				FieldIndices:      []int{4, 5, 6},
			},
		},
	}
}

func oneTagOneFieldCatalog() StaticCatalog {
	return StaticCatalog{
		"some_metric": &TableHandle{
			Name: "some_metric",
			Schema: schema.Schema{
				Columns: []schema.ColumnSchema{
					{Name: "tag_0", Kind: schema.KindTag, DataType: schema.TypeString},
					{Name: "ts", Kind: schema.KindTimestamp, DataType: schema.TypeTimestampMillisecond},
					{Name: "field_0", Kind: schema.KindField, DataType: schema.TypeFloat64},
				},
				TimeIndex:         1,
				PrimaryKeyIndices: []int{0},
				FieldIndices:      []int{2},
			},
		},
	}
}

const (
	windowStart = int64(0)
	windowEnd   = int64(100_000_000)
	windowStep  = int64(5_000)
	windowLB    = int64(1_000)
)

func planQuery(t *testing.T, catalog StaticCatalog, query string) plan.Node {
	t.Helper()
	expr, err := parser.ParseExpr(query)
	if err != nil {
		t.Fatalf("ParseExpr(%q): %v", query, err)
	}
	p := NewPlanner(catalog)
	node, err := p.Plan(context.Background(), expr, EvalWindow{
		Start: windowStart, End: windowEnd, Interval: windowStep, LookbackDelta: windowLB,
	})
	if err != nil {
		t.Fatalf("Plan(%q): %v", query, err)
	}
	return node
}

func TestPlanAggregateByProducesSortAggregateInstantManipulateChain(t *testing.T) {
	node := planQuery(t, twoTagTwoFieldCatalog(), `avg by (tag_1) (some_metric{tag_0!="bar"})`)

	outerSort, ok := node.(*plan.Sort)
	if !ok {
		t.Fatalf("root = %T, want *plan.Sort", node)
	}
	if len(outerSort.Exprs) != 2 || !outerSort.Exprs[0].Ascending || !outerSort.Exprs[1].Ascending {
		t.Fatalf("outer sort exprs = %+v, want 2 ascending exprs (tag_1, ts)", outerSort.Exprs)
	}

	agg, ok := outerSort.Input.(*plan.Aggregate)
	if !ok {
		t.Fatalf("outer sort input = %T, want *plan.Aggregate", outerSort.Input)
	}
	if len(agg.GroupBy) != 2 {
		t.Fatalf("GroupBy = %+v, want [tag_1, ts]", agg.GroupBy)
	}
	if len(agg.Aggregates) != 2 {
		t.Fatalf("Aggregates = %+v, want one AVG call per field column", agg.Aggregates)
	}
	for _, a := range agg.Aggregates {
		alias, ok := a.(*plan.Alias)
		if !ok {
			t.Fatalf("aggregate expr = %T, want *plan.Alias", a)
		}
		call, ok := alias.Expr.(*plan.Call)
		if !ok || call.Func != "avg" {
			t.Fatalf("aliased expr = %+v, want an avg() call", alias.Expr)
		}
	}

	instant, ok := agg.Input.(*plan.InstantManipulate)
	if !ok {
		t.Fatalf("aggregate input = %T, want *plan.InstantManipulate", agg.Input)
	}
	normalize, ok := instant.Input.(*plan.SeriesNormalize)
	if !ok {
		t.Fatalf("instant manipulate input = %T, want *plan.SeriesNormalize", instant.Input)
	}
	if normalize.FilterNaN {
		t.Fatalf("vector selector's SeriesNormalize.FilterNaN = true, want false")
	}

	divide, ok := normalize.Input.(*plan.SeriesDivide)
	if !ok {
		t.Fatalf("normalize input = %T, want *plan.SeriesDivide", normalize.Input)
	}
	innerSort, ok := divide.Input.(*plan.Sort)
	if !ok {
		t.Fatalf("divide input = %T, want *plan.Sort", divide.Input)
	}
	for _, e := range innerSort.Exprs {
		if e.Ascending {
			t.Fatalf("inner sort exprs = %+v, want all descending (tag_0, tag_1, ts)", innerSort.Exprs)
		}
	}

	fineFilter, ok := innerSort.Input.(*plan.Filter)
	if !ok {
		t.Fatalf("inner sort input = %T, want the fine-grained *plan.Filter above the scan", innerSort.Input)
	}
	pred, ok := fineFilter.Predicate.(*plan.Binary)
	if !ok || pred.Op != plan.OpNotEq {
		t.Fatalf("fine-grained predicate = %+v, want tag_0 != \"bar\"", fineFilter.Predicate)
	}

	scan, ok := fineFilter.Input.(*plan.Scan)
	if !ok {
		t.Fatalf("filter input = %T, want *plan.Scan", fineFilter.Input)
	}
	if scan.Table != "some_metric" {
		t.Fatalf("scan table = %q, want some_metric", scan.Table)
	}
	if len(scan.Filters) != 3 {
		t.Fatalf("scan filters = %+v, want [tag_0 != bar, ts >= lower, ts <= upper]", scan.Filters)
	}
	lower, ok := scan.Filters[1].(*plan.Binary)
	if !ok || lower.Op != plan.OpGtEq {
		t.Fatalf("filters[1] = %+v, want ts >= lower bound", scan.Filters[1])
	}
	lowerLit, ok := lower.Right.(*plan.LiteralTimestamp)
	if !ok || lowerLit.ValueMs != windowStart-windowLB {
		t.Fatalf("lower bound = %+v, want %d", lower.Right, windowStart-windowLB)
	}
	upper, ok := scan.Filters[2].(*plan.Binary)
	if !ok || upper.Op != plan.OpLtEq {
		t.Fatalf("filters[2] = %+v, want ts <= upper bound", scan.Filters[2])
	}
	upperLit, ok := upper.Right.(*plan.LiteralTimestamp)
	if !ok || upperLit.ValueMs != windowEnd+windowLB {
		t.Fatalf("upper bound = %+v, want %d", upper.Right, windowEnd+windowLB)
	}
}

func TestPlanIncreaseProducesRangeManipulateWithNullFilter(t *testing.T) {
	node := planQuery(t, twoTagTwoFieldCatalog(), `increase(some_metric[5m])`)

	filter, ok := node.(*plan.Filter)
	if !ok {
		t.Fatalf("root = %T, want *plan.Filter (IS NOT NULL)", node)
	}

	project, ok := filter.Input.(*plan.Project)
	if !ok {
		t.Fatalf("filter input = %T, want *plan.Project", filter.Input)
	}
	found := false
	for _, e := range project.Exprs {
		alias, ok := e.(*plan.Alias)
		if !ok {
			continue
		}
		if call, ok := alias.Expr.(*plan.Call); ok && call.Func == "increase" {
			found = true
			if len(call.Args) != 3 {
				t.Fatalf("increase() args = %+v, want [timestamp_range, field, timestamp]", call.Args)
			}
		}
	}
	if !found {
		t.Fatalf("project exprs = %+v, want an increase() call", project.Exprs)
	}

	rangeManip, ok := project.Input.(*plan.RangeManipulate)
	if !ok {
		t.Fatalf("project input = %T, want *plan.RangeManipulate", project.Input)
	}
	if rangeManip.Range != 5*60*1000 {
		t.Fatalf("RangeManipulate.Range = %d, want 300000", rangeManip.Range)
	}

	normalize, ok := rangeManip.Input.(*plan.SeriesNormalize)
	if !ok {
		t.Fatalf("range manipulate input = %T, want *plan.SeriesNormalize", rangeManip.Input)
	}
	if !normalize.FilterNaN {
		t.Fatalf("matrix selector's SeriesNormalize.FilterNaN = false, want true")
	}
}

func TestPlanBoolComparisonProducesCastProjectionNoFilter(t *testing.T) {
	node := planQuery(t, twoTagTwoFieldCatalog(), `some_metric != bool 1.2345`)

	project, ok := node.(*plan.Project)
	if !ok {
		t.Fatalf("root = %T, want *plan.Project (no Filter for a bool comparison)", node)
	}
	var sawCast bool
	for _, e := range project.Exprs {
		alias, ok := e.(*plan.Alias)
		if !ok {
			continue
		}
		cast, ok := alias.Expr.(*plan.Cast)
		if !ok {
			continue
		}
		sawCast = true
		if cast.To != schema.TypeFloat64 {
			t.Fatalf("cast target = %v, want TypeFloat64", cast.To)
		}
		cmp, ok := cast.Expr.(*plan.Binary)
		if !ok || cmp.Op != plan.OpNotEq {
			t.Fatalf("cast source = %+v, want a != comparison", cast.Expr)
		}
	}
	if !sawCast {
		t.Fatalf("project exprs = %+v, want a CAST(... != 1.2345 AS Float64)", project.Exprs)
	}
}

func TestResolveFieldColumnsNegatedEqualityNarrowsFieldSet(t *testing.T) {
	node := planQuery(t, threeTagThreeFieldCatalog(), `some_metric{__field__!="field_1", __field__!="field_2"}`)

	instant, ok := node.(*plan.InstantManipulate)
	if !ok {
		t.Fatalf("root = %T, want *plan.InstantManipulate", node)
	}
	if instant.FieldColumn != "field_0" {
		t.Fatalf("resolved field column = %q, want field_0", instant.FieldColumn)
	}
}

func TestResolveFieldColumnsPositiveEqualitySelectsSingleField(t *testing.T) {
	node := planQuery(t, threeTagThreeFieldCatalog(), `some_metric{__field__="field_2"}`)

	instant, ok := node.(*plan.InstantManipulate)
	if !ok {
		t.Fatalf("root = %T, want *plan.InstantManipulate", node)
	}
	if instant.FieldColumn != "field_2" {
		t.Fatalf("resolved field column = %q, want field_2", instant.FieldColumn)
	}
}

func TestResolveFieldColumnsPositiveEqualityOnMissingFieldErrors(t *testing.T) {
	expr, err := parser.ParseExpr(`some_metric{__field__="nonexistent"}`)
	if err != nil {
		t.Fatalf("ParseExpr: %v", err)
	}
	p := NewPlanner(threeTagThreeFieldCatalog())
	_, err = p.Plan(context.Background(), expr, EvalWindow{
		Start: windowStart, End: windowEnd, Interval: windowStep, LookbackDelta: windowLB,
	})
	if !errors.Is(err, kwtserror.ErrColumnNotFound) {
		t.Fatalf("Plan error = %v, want ErrColumnNotFound", err)
	}
	if !errors.Is(err, kwtserror.ErrPlanning) {
		t.Fatalf("Plan error = %v, want it also marked ErrPlanning", err)
	}
}

func TestResolveFieldColumnsRegexSelectsMatchingFields(t *testing.T) {
	// A plain (non-range) vector selector only ever carries one field
	// column forward; with two regex matches the lexicographically first
	// survives.
	node := planQuery(t, threeTagThreeFieldCatalog(), `some_metric{__field__=~"field_[01]"}`)

	instant, ok := node.(*plan.InstantManipulate)
	if !ok {
		t.Fatalf("root = %T, want *plan.InstantManipulate", node)
	}
	if instant.FieldColumn != "field_0" {
		t.Fatalf("resolved field column = %q, want field_0", instant.FieldColumn)
	}
}

func TestResolveFieldColumnsRegexOverRangeSelectorKeepsAllMatches(t *testing.T) {
	node := planQuery(t, threeTagThreeFieldCatalog(), `rate(some_metric{__field__=~"field_[01]"}[1m])`)

	filter, ok := node.(*plan.Filter)
	if !ok {
		t.Fatalf("root = %T, want *plan.Filter (IS NOT NULL)", node)
	}
	project, ok := filter.Input.(*plan.Project)
	if !ok {
		t.Fatalf("filter input = %T, want *plan.Project", filter.Input)
	}
	rangeManip, ok := project.Input.(*plan.RangeManipulate)
	if !ok {
		t.Fatalf("project input = %T, want *plan.RangeManipulate", project.Input)
	}
	if len(rangeManip.FieldColumns) != 2 {
		t.Fatalf("FieldColumns = %v, want [field_0 field_1]", rangeManip.FieldColumns)
	}
}

func TestPlanOffsetShiftsNormalizeAndScanBounds(t *testing.T) {
	node := planQuery(t, oneTagOneFieldCatalog(), `some_metric offset 5m`)

	instant, ok := node.(*plan.InstantManipulate)
	if !ok {
		t.Fatalf("root = %T, want *plan.InstantManipulate", node)
	}
	normalize, ok := instant.Input.(*plan.SeriesNormalize)
	if !ok {
		t.Fatalf("instant manipulate input = %T, want *plan.SeriesNormalize", instant.Input)
	}
	const offsetMs = 5 * 60 * 1000
	if normalize.OffsetMs != offsetMs {
		t.Fatalf("SeriesNormalize.OffsetMs = %d, want %d", normalize.OffsetMs, offsetMs)
	}

	divide := normalize.Input.(*plan.SeriesDivide)
	innerSort := divide.Input.(*plan.Sort)
	scan, ok := innerSort.Input.(*plan.Scan)
	if !ok {
		t.Fatalf("inner sort input = %T, want *plan.Scan (no label matchers, no fine-grained filter)", innerSort.Input)
	}
	lower := scan.Filters[len(scan.Filters)-2].(*plan.Binary).Right.(*plan.LiteralTimestamp)
	if lower.ValueMs != windowStart-offsetMs-windowLB {
		t.Fatalf("lower bound = %d, want %d", lower.ValueMs, windowStart-offsetMs-windowLB)
	}
	upper := scan.Filters[len(scan.Filters)-1].(*plan.Binary).Right.(*plan.LiteralTimestamp)
	if upper.ValueMs != windowEnd-offsetMs+windowLB {
		t.Fatalf("upper bound = %d, want %d", upper.ValueMs, windowEnd-offsetMs+windowLB)
	}
}

func TestPlanNonBoolVectorLiteralComparisonProducesFilter(t *testing.T) {
	node := planQuery(t, oneTagOneFieldCatalog(), `some_metric > 1.5`)

	if _, ok := node.(*plan.Filter); !ok {
		t.Fatalf("root = %T, want *plan.Filter (no bool modifier means filter semantics)", node)
	}
}

func TestPlanVectorVectorBinaryJoinsOnTagsAndTimeIndex(t *testing.T) {
	node := planQuery(t, oneTagOneFieldCatalog(), `some_metric + some_metric`)

	project, ok := node.(*plan.Project)
	if !ok {
		t.Fatalf("root = %T, want *plan.Project", node)
	}
	join, ok := project.Input.(*plan.Join)
	if !ok {
		t.Fatalf("project input = %T, want *plan.Join", project.Input)
	}
	if join.LeftAlias != "lhs" {
		t.Fatalf("join left alias = %q, want lhs", join.LeftAlias)
	}
	if len(join.On) != 2 || join.On[0] != "tag_0" || join.On[1] != "ts" {
		t.Fatalf("join on = %v, want [tag_0 ts]", join.On)
	}
}

func TestPlanTimeFunctionProducesEmptyMetric(t *testing.T) {
	node := planQuery(t, oneTagOneFieldCatalog(), `time()`)

	em, ok := node.(*plan.EmptyMetric)
	if !ok {
		t.Fatalf("root = %T, want *plan.EmptyMetric", node)
	}
	if em.Start != windowStart || em.End != windowEnd || em.Interval != windowStep {
		t.Fatalf("EmptyMetric window = (%d, %d, %d), want (%d, %d, %d)",
			em.Start, em.End, em.Interval, windowStart, windowEnd, windowStep)
	}
}

func TestPlanExtrapolatingFunctionRequiresRangeSelector(t *testing.T) {
	// The parser's own type checking rejects `increase(some_metric)`
	// outright, so the malformed call is assembled by hand.
	inner, err := parser.ParseExpr(`some_metric`)
	if err != nil {
		t.Fatalf("ParseExpr: %v", err)
	}
	expr := &parser.Call{
		Func: parser.Functions["increase"],
		Args: parser.Expressions{inner},
	}
	p := NewPlanner(oneTagOneFieldCatalog())
	_, err = p.Plan(context.Background(), expr, EvalWindow{
		Start: windowStart, End: windowEnd, Interval: windowStep, LookbackDelta: windowLB,
	})
	if !errors.Is(err, kwtserror.ErrExpectRangeSelector) {
		t.Fatalf("Plan error = %v, want ErrExpectRangeSelector", err)
	}
}

func TestPlanUnaryNegationProjectsNegatedField(t *testing.T) {
	node := planQuery(t, oneTagOneFieldCatalog(), `-some_metric`)

	project, ok := node.(*plan.Project)
	if !ok {
		t.Fatalf("root = %T, want *plan.Project", node)
	}
	alias, ok := project.Exprs[0].(*plan.Alias)
	if !ok {
		t.Fatalf("exprs[0] = %T, want *plan.Alias", project.Exprs[0])
	}
	if _, ok := alias.Expr.(*plan.Negate); !ok {
		t.Fatalf("aliased expr = %T, want *plan.Negate", alias.Expr)
	}
}

func TestPlanParenExprIsIdempotentWithUnwrapped(t *testing.T) {
	plain := planQuery(t, twoTagTwoFieldCatalog(), `increase(some_metric[5m])`)
	parenthesized := planQuery(t, twoTagTwoFieldCatalog(), `(increase(some_metric[5m]))`)

	if !reflect.DeepEqual(plain, parenthesized) {
		t.Fatalf("paren-wrapped plan differs from unwrapped plan:\nplain=%+v\nparen=%+v", plain, parenthesized)
	}
}
