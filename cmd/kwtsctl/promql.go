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
	"strings"
	"time"

	"github.com/prometheus/prometheus/promql/parser"
	"github.com/spf13/cobra"

	"gitee.com/kwbasedb/kwts/pkg/promql"
	"gitee.com/kwbasedb/kwts/pkg/promql/plan"
	"gitee.com/kwbasedb/kwts/pkg/schema"
)

var promqlCmd = &cobra.Command{
	Use:   "promql",
	Short: "translate PromQL expressions into logical plans",
}

var promqlPlanCmd = &cobra.Command{
	Use:   "plan <query>",
	Short: "parse and plan a PromQL expression against a synthetic demo table",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromqlPlan,
}

func init() {
	promqlCmd.AddCommand(promqlPlanCmd)
}

// demoCatalog resolves every metric name to the same fixed two-tag,
// one-field schema, so `promql plan` has something to bind against
// without requiring a running table registry.
type demoCatalog struct{}

func (demoCatalog) ResolveTable(ctx context.Context, name string) (*promql.TableHandle, error) {
	return &promql.TableHandle{
		Name: name,
		Schema: schema.Schema{
			Columns: []schema.ColumnSchema{
				{Name: "host", Kind: schema.KindTag, DataType: schema.TypeString},
				{Name: "region", Kind: schema.KindTag, DataType: schema.TypeString},
				{Name: "ts", Kind: schema.KindTimestamp, DataType: schema.TypeTimestampMillisecond},
				{Name: "value", Kind: schema.KindField, DataType: schema.TypeFloat64},
			},
			TimeIndex:         2,
			PrimaryKeyIndices: []int{0, 1},
			FieldIndices:      []int{3},
		},
	}, nil
}

func runPromqlPlan(cmd *cobra.Command, args []string) error {
	expr, err := parser.ParseExpr(args[0])
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	window := promql.EvalWindow{
		Start:         now - 5*time.Minute.Milliseconds(),
		End:           now,
		Interval:      15 * time.Second.Milliseconds(),
		LookbackDelta: 5 * time.Minute.Milliseconds(),
	}

	p := promql.NewPlanner(demoCatalog{})
	node, err := p.Plan(context.Background(), expr, window)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), describeNode(node, 0))
	return nil
}

// describeNode renders a plan tree as indented lines; it exists purely for
// `kwtsctl promql plan` output, not as a serialization format.
func describeNode(n plan.Node, depth int) string {
	indent := strings.Repeat("  ", depth)
	var b strings.Builder
	switch v := n.(type) {
	case *plan.Scan:
		fmt.Fprintf(&b, "%sScan table=%s filters=%d", indent, v.Table, len(v.Filters))
	case *plan.Filter:
		fmt.Fprintf(&b, "%sFilter\n%s", indent, describeNode(v.Input, depth+1))
	case *plan.Project:
		fmt.Fprintf(&b, "%sProject exprs=%d\n%s", indent, len(v.Exprs), describeNode(v.Input, depth+1))
	case *plan.Aggregate:
		fmt.Fprintf(&b, "%sAggregate group_by=%d aggregates=%d\n%s", indent, len(v.GroupBy), len(v.Aggregates), describeNode(v.Input, depth+1))
	case *plan.Sort:
		fmt.Fprintf(&b, "%sSort exprs=%d\n%s", indent, len(v.Exprs), describeNode(v.Input, depth+1))
	case *plan.Join:
		fmt.Fprintf(&b, "%sJoin on=%v\n%s\n%s", indent, v.On, describeNode(v.Left, depth+1), describeNode(v.Right, depth+1))
	case *plan.SeriesDivide:
		fmt.Fprintf(&b, "%sSeriesDivide tags=%v\n%s", indent, v.TagColumns, describeNode(v.Input, depth+1))
	case *plan.SeriesNormalize:
		fmt.Fprintf(&b, "%sSeriesNormalize offset_ms=%d\n%s", indent, v.OffsetMs, describeNode(v.Input, depth+1))
	case *plan.InstantManipulate:
		fmt.Fprintf(&b, "%sInstantManipulate field=%s\n%s", indent, v.FieldColumn, describeNode(v.Input, depth+1))
	case *plan.RangeManipulate:
		fmt.Fprintf(&b, "%sRangeManipulate range_ms=%d fields=%v\n%s", indent, v.Range, v.FieldColumns, describeNode(v.Input, depth+1))
	case *plan.EmptyMetric:
		fmt.Fprintf(&b, "%sEmptyMetric field=%s", indent, v.FieldColumn)
	default:
		fmt.Fprintf(&b, "%s<unknown node %T>", indent, n)
	}
	return b.String()
}
