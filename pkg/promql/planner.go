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
	"sort"
	"time"

	"github.com/prometheus/prometheus/model/labels"
	"github.com/prometheus/prometheus/promql/parser"

	"gitee.com/kwbasedb/kwts/pkg/promql/plan"
	"gitee.com/kwbasedb/kwts/pkg/schema"
	"gitee.com/kwbasedb/kwts/pkg/util/kwtserror"
)

const (
	// leftPlanJoinAlias qualifies the left side of a vector-op-vector join.
	leftPlanJoinAlias = "lhs"
	// specialTimeFunction is the PromQL time() function.
	specialTimeFunction = "time"
	// defaultFieldColumn names EmptyMetric's synthetic value column.
	defaultFieldColumn = "value"
)

// EvalWindow is the evaluation statement the planner translates against:
// start, end, interval, and lookback delta, all millisecond instants or
// durations.
type EvalWindow struct {
	Start, End, Interval, LookbackDelta int64
}

// Planner translates a parsed PromQL expression into a logical plan tree.
// It consults Catalog for schema resolution and is not safe for concurrent
// use: plannerContext is mutated in place across the recursive descent.
type Planner struct {
	Catalog TableSource
	ctx     plannerContext
}

// NewPlanner constructs a Planner bound to catalog. Plan resets the
// planner's context on every call, so one Planner can plan several
// queries one after another.
func NewPlanner(catalog TableSource) *Planner {
	return &Planner{Catalog: catalog}
}

// Plan translates expr into a logical plan tree over window.
func (p *Planner) Plan(ctx context.Context, expr parser.Expr, window EvalWindow) (n plan.Node, err error) {
	started := time.Now()
	defer func() { observePlan(started, err) }()

	p.ctx = plannerContext{
		start:         window.Start,
		end:           window.End,
		interval:      window.Interval,
		lookbackDelta: window.LookbackDelta,
	}
	n, err = p.exprToPlan(ctx, expr)
	if err != nil {
		return nil, kwtserror.Mark(err, kwtserror.ErrPlanning)
	}
	return n, nil
}

func (p *Planner) exprToPlan(ctx context.Context, expr parser.Expr) (plan.Node, error) {
	switch e := expr.(type) {
	case *parser.AggregateExpr:
		return p.planAggregate(ctx, e)
	case *parser.UnaryExpr:
		input, err := p.exprToPlan(ctx, e.Expr)
		if err != nil {
			return nil, err
		}
		return p.projectionForEachFieldColumn(input, func(col string) plan.Expr {
			return &plan.Negate{Expr: &plan.Column{Name: col}}
		}), nil
	case *parser.BinaryExpr:
		return p.planBinary(ctx, e)
	case *parser.ParenExpr:
		return p.exprToPlan(ctx, e.Expr)
	case *parser.SubqueryExpr:
		return nil, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "subquery")
	case *parser.NumberLiteral:
		return nil, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "top-level number literal")
	case *parser.StringLiteral:
		return nil, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "top-level string literal")
	case *parser.VectorSelector:
		return p.planVectorSelector(ctx, e)
	case *parser.MatrixSelector:
		return p.planMatrixSelector(ctx, e)
	case *parser.Call:
		return p.planCall(ctx, e)
	default:
		return nil, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "expression kind %T", expr)
	}
}

func (p *Planner) planVectorSelector(ctx context.Context, vs *parser.VectorSelector) (plan.Node, error) {
	matchers := p.preprocessLabelMatchers(vs.LabelMatchers)
	if err := p.setupContext(ctx); err != nil {
		return nil, err
	}
	normalize, err := p.selectorToSeriesNormalizePlan(ctx, vs.OriginalOffset.Milliseconds(), matchers, false)
	if err != nil {
		return nil, err
	}
	var fieldCol string
	if len(p.ctx.fieldColumns) > 0 {
		fieldCol = p.ctx.fieldColumns[0]
	}
	return &plan.InstantManipulate{
		Input:           normalize,
		Start:           p.ctx.start,
		End:             p.ctx.end,
		LookbackDelta:   p.ctx.lookbackDelta,
		Interval:        p.ctx.interval,
		TimeIndexColumn: p.ctx.timeIndexColumn,
		FieldColumn:     fieldCol,
	}, nil
}

func (p *Planner) planMatrixSelector(ctx context.Context, ms *parser.MatrixSelector) (plan.Node, error) {
	vs, ok := ms.VectorSelector.(*parser.VectorSelector)
	if !ok {
		return nil, kwtserror.Wrapf(kwtserror.ErrUnexpectedPlanExpr, "matrix selector without vector selector")
	}
	matchers := p.preprocessLabelMatchers(vs.LabelMatchers)
	if err := p.setupContext(ctx); err != nil {
		return nil, err
	}
	if ms.Range <= 0 {
		return nil, kwtserror.ErrZeroRangeSelector
	}
	rangeMs := ms.Range.Milliseconds()
	p.ctx.hasRange = true
	p.ctx.rangeMs = rangeMs

	normalize, err := p.selectorToSeriesNormalizePlan(ctx, vs.OriginalOffset.Milliseconds(), matchers, true)
	if err != nil {
		return nil, err
	}
	return &plan.RangeManipulate{
		Input:           normalize,
		Start:           p.ctx.start,
		End:             p.ctx.end,
		Interval:        p.ctx.interval,
		Range:           rangeMs,
		TimeIndexColumn: p.ctx.timeIndexColumn,
		FieldColumns:    p.ctx.cloneFieldColumns(),
	}, nil
}

// setupContext binds time-index, tag, and field columns from the resolved
// table's schema.
func (p *Planner) setupContext(ctx context.Context) error {
	if p.ctx.tableName == "" {
		return kwtserror.ErrTableNameNotFound
	}
	table, err := p.Catalog.ResolveTable(ctx, p.ctx.tableName)
	if err != nil {
		return kwtserror.Wrapf(kwtserror.ErrCatalog, "%v", err)
	}
	s := table.Schema
	if s.TimeIndex < 0 || s.TimeIndex >= len(s.Columns) {
		return kwtserror.Wrapf(kwtserror.ErrTimeIndexNotFound, "table %q", p.ctx.tableName)
	}
	p.ctx.timeIndexColumn = s.TimeIndexName()
	p.ctx.fieldColumns = s.FieldNames()
	p.ctx.tagColumns = s.TagNames()
	return nil
}

// selectorToSeriesNormalizePlan builds the scan, `__field__` projection,
// accurate filter, sort, SeriesDivide, and SeriesNormalize chain shared by
// vector and matrix selectors.
func (p *Planner) selectorToSeriesNormalizePlan(ctx context.Context, offsetMs int64, matchers []*labels.Matcher, isRangeSelector bool) (plan.Node, error) {
	tableName := p.ctx.tableName
	rangeMs := int64(0)
	if p.ctx.hasRange {
		rangeMs = p.ctx.rangeMs
	}

	scanFilters := matchersToExprs(matchers)
	scanFilters = append(scanFilters,
		&plan.Binary{
			Left:  &plan.Column{Name: p.ctx.timeIndexColumn},
			Right: &plan.LiteralTimestamp{ValueMs: p.ctx.start - offsetMs - p.ctx.lookbackDelta - rangeMs},
			Op:    plan.OpGtEq,
		},
		&plan.Binary{
			Left:  &plan.Column{Name: p.ctx.timeIndexColumn},
			Right: &plan.LiteralTimestamp{ValueMs: p.ctx.end - offsetMs + p.ctx.lookbackDelta},
			Op:    plan.OpLtEq,
		},
	)

	var tableScan plan.Node = &plan.Scan{Table: tableName, Filters: scanFilters}

	// The matcher predicates are applied again above the scan: pushdown
	// filters are advisory to the storage engine, the fine-grained Filter
	// is authoritative.
	if len(matchers) > 0 {
		tableScan = &plan.Filter{Input: tableScan, Predicate: conjunction(matchersToExprs(matchers))}
	}

	if len(p.ctx.fieldColumnMatchers) > 0 {
		if err := p.resolveFieldColumns(); err != nil {
			return nil, err
		}
		exprs := make([]plan.Expr, 0, len(p.ctx.fieldColumns)+len(p.ctx.tagColumns)+1)
		for _, c := range p.ctx.fieldColumns {
			exprs = append(exprs, &plan.Column{Name: c})
		}
		for _, c := range p.ctx.tagColumns {
			exprs = append(exprs, &plan.Column{Name: c})
		}
		exprs = append(exprs, &plan.Column{Name: p.ctx.timeIndexColumn})
		tableScan = &plan.Project{Input: tableScan, Exprs: exprs}
	}

	built := &plan.Sort{Input: tableScan, Exprs: p.tagAndTimeIndexSortExprs()}

	divide := &plan.SeriesDivide{Input: built, TagColumns: append([]string(nil), p.ctx.tagColumns...)}

	return &plan.SeriesNormalize{
		Input:           divide,
		OffsetMs:        offsetMs,
		TimeIndexColumn: p.ctx.timeIndexColumn,
		FilterNaN:       isRangeSelector,
	}, nil
}

func (p *Planner) tagAndTimeIndexSortExprs() []plan.SortExpr {
	exprs := make([]plan.SortExpr, 0, len(p.ctx.tagColumns)+1)
	for _, c := range p.ctx.tagColumns {
		exprs = append(exprs, plan.SortExpr{Expr: &plan.Column{Name: c}, Ascending: false})
	}
	exprs = append(exprs, plan.SortExpr{Expr: &plan.Column{Name: p.ctx.timeIndexColumn}, Ascending: false})
	return exprs
}

func (p *Planner) planAggregate(ctx context.Context, ae *parser.AggregateExpr) (plan.Node, error) {
	input, err := p.exprToPlan(ctx, ae.Expr)
	if err != nil {
		return nil, err
	}

	var groupExprs []plan.Expr
	if ae.Without {
		groupExprs = p.aggModifierExclude(ae.Grouping)
	} else if len(ae.Grouping) > 0 {
		groupExprs = p.aggModifierInclude(ae.Grouping)
	} else {
		groupExprs = []plan.Expr{&plan.Column{Name: p.ctx.timeIndexColumn}}
	}

	aggrExprs, err := p.createAggregateExprs(ae.Op)
	if err != nil {
		return nil, err
	}

	p.ctx.timeIndexColumn = ""

	sortExprs := make([]plan.SortExpr, 0, len(groupExprs))
	for _, e := range groupExprs {
		sortExprs = append(sortExprs, plan.SortExpr{Expr: e, Ascending: true})
	}

	aggregated := &plan.Aggregate{Input: input, GroupBy: groupExprs, Aggregates: aggrExprs}
	return &plan.Sort{Input: aggregated, Exprs: sortExprs}, nil
}

func (p *Planner) aggModifierInclude(labelsIn []string) []plan.Expr {
	existing := make(map[string]struct{}, len(p.ctx.tagColumns)+len(p.ctx.fieldColumns))
	for _, c := range p.ctx.tagColumns {
		existing[c] = struct{}{}
	}
	for _, c := range p.ctx.fieldColumns {
		existing[c] = struct{}{}
	}
	exprs := make([]plan.Expr, 0, len(labelsIn)+1)
	for _, l := range labelsIn {
		if _, ok := existing[l]; ok {
			exprs = append(exprs, &plan.Column{Name: l})
		}
	}
	p.ctx.tagColumns = append([]string(nil), labelsIn...)
	exprs = append(exprs, &plan.Column{Name: p.ctx.timeIndexColumn})
	return exprs
}

func (p *Planner) aggModifierExclude(labelsOut []string) []plan.Expr {
	remove := make(map[string]struct{}, len(labelsOut))
	for _, l := range labelsOut {
		remove[l] = struct{}{}
	}
	all := map[string]struct{}{}
	for _, c := range p.ctx.tagColumns {
		all[c] = struct{}{}
	}
	for _, c := range p.ctx.fieldColumns {
		all[c] = struct{}{}
	}
	for l := range remove {
		delete(all, l)
	}
	delete(all, p.ctx.timeIndexColumn)
	for _, c := range p.ctx.fieldColumns {
		delete(all, c)
	}
	remaining := make([]string, 0, len(all))
	for c := range all {
		remaining = append(remaining, c)
	}
	sort.Strings(remaining)
	p.ctx.tagColumns = remaining

	exprs := make([]plan.Expr, 0, len(remaining)+1)
	for _, c := range remaining {
		exprs = append(exprs, &plan.Column{Name: c})
	}
	exprs = append(exprs, &plan.Column{Name: p.ctx.timeIndexColumn})
	return exprs
}

type aggOp int

const (
	aggSum aggOp = iota
	aggAvg
	aggCount
	aggMin
	aggMax
	aggGrouping
	aggStddevPop
	aggVariancePop
)

func (a aggOp) displayName() string {
	switch a {
	case aggSum:
		return "sum"
	case aggAvg:
		return "avg"
	case aggCount:
		return "count"
	case aggMin:
		return "min"
	case aggMax:
		return "max"
	case aggGrouping:
		return "grouping"
	case aggStddevPop:
		return "stddev"
	case aggVariancePop:
		return "stdvar"
	default:
		return "agg"
	}
}

func tokenToAggOp(op parser.ItemType) (aggOp, error) {
	switch op {
	case parser.SUM:
		return aggSum, nil
	case parser.AVG:
		return aggAvg, nil
	case parser.COUNT:
		return aggCount, nil
	case parser.MIN:
		return aggMin, nil
	case parser.MAX:
		return aggMax, nil
	case parser.GROUP:
		return aggGrouping, nil
	case parser.STDDEV:
		return aggStddevPop, nil
	case parser.STDVAR:
		return aggVariancePop, nil
	case parser.TOPK, parser.BOTTOMK, parser.COUNT_VALUES, parser.QUANTILE:
		return 0, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "aggregation %v", op)
	default:
		return 0, kwtserror.Wrapf(kwtserror.ErrUnexpectedToken, "%v", op)
	}
}

// createAggregateExprs builds one aggregate call per field column,
// re-aliased under its original field name so multiple field columns
// stay distinguishable after aggregation.
func (p *Planner) createAggregateExprs(op parser.ItemType) ([]plan.Expr, error) {
	aggr, err := tokenToAggOp(op)
	if err != nil {
		return nil, err
	}
	exprs := make([]plan.Expr, 0, len(p.ctx.fieldColumns))
	for _, col := range p.ctx.fieldColumns {
		exprs = append(exprs, &plan.Alias{
			Expr: &plan.Call{Func: aggr.displayName(), Args: []plan.Expr{&plan.Column{Name: col}}},
			Name: col,
		})
	}
	return exprs, nil
}

// disjunction OR-folds exprs into a single predicate; a single expr is
// returned unchanged.
func disjunction(exprs []plan.Expr) plan.Expr {
	return foldBinary(exprs, plan.OpOr)
}

// conjunction AND-folds exprs into a single predicate.
func conjunction(exprs []plan.Expr) plan.Expr {
	return foldBinary(exprs, plan.OpAnd)
}

func foldBinary(exprs []plan.Expr, op plan.BinaryOp) plan.Expr {
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = &plan.Binary{Left: out, Right: e, Op: op}
	}
	return out
}

// projectionForEachFieldColumn replaces each field column with build(col),
// re-aliased under its original name, carrying tag and time-index columns
// through unchanged.
func (p *Planner) projectionForEachFieldColumn(input plan.Node, build func(col string) plan.Expr) plan.Node {
	exprs := make([]plan.Expr, 0, len(p.ctx.fieldColumns)+len(p.ctx.tagColumns)+1)
	for _, col := range p.ctx.fieldColumns {
		exprs = append(exprs, &plan.Alias{Expr: build(col), Name: col})
	}
	for _, t := range p.ctx.tagColumns {
		exprs = append(exprs, &plan.Column{Name: t})
	}
	if p.ctx.timeIndexColumn != "" {
		exprs = append(exprs, &plan.Column{Name: p.ctx.timeIndexColumn})
	}
	return &plan.Project{Input: input, Exprs: exprs}
}

// filterOnFieldColumn builds a row filter from the single field column's
// comparison predicate; a table with more than one field column has no
// well-defined single scalar to compare, so this rule requires exactly
// one.
func (p *Planner) filterOnFieldColumn(input plan.Node, build func(col string) plan.Expr) (plan.Node, error) {
	if len(p.ctx.fieldColumns) != 1 {
		return nil, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "comparison filter requires exactly one field column, found %d", len(p.ctx.fieldColumns))
	}
	return &plan.Filter{Input: input, Predicate: build(p.ctx.fieldColumns[0])}, nil
}

// joinOnNonFieldColumns inner-joins left and right on their shared tag and
// time-index columns, qualifying left's columns under leftPlanJoinAlias so
// same-named field columns from both sides stay addressable.
func joinOnNonFieldColumns(left, right plan.Node, tagColumns []string, timeIndexColumn string) plan.Node {
	on := append([]string(nil), tagColumns...)
	on = append(on, timeIndexColumn)
	return &plan.Join{Left: left, Right: right, On: on, LeftAlias: leftPlanJoinAlias}
}

func qualifiedColumn(alias, name string) *plan.Column {
	return &plan.Column{Name: alias + "." + name}
}

func tokenToBinOp(op parser.ItemType) (plan.BinaryOp, bool, error) {
	switch op {
	case parser.ADD:
		return plan.OpAdd, false, nil
	case parser.SUB:
		return plan.OpSub, false, nil
	case parser.MUL:
		return plan.OpMul, false, nil
	case parser.DIV:
		return plan.OpDiv, false, nil
	case parser.MOD:
		return plan.OpMod, false, nil
	case parser.POW:
		return plan.OpPow, false, nil
	case parser.EQLC:
		return plan.OpEq, true, nil
	case parser.NEQ:
		return plan.OpNotEq, true, nil
	case parser.GTR:
		return plan.OpGt, true, nil
	case parser.LSS:
		return plan.OpLt, true, nil
	case parser.GTE:
		return plan.OpGtEq, true, nil
	case parser.LTE:
		return plan.OpLtEq, true, nil
	default:
		return 0, false, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "binary operator %v", op)
	}
}

func literalExprOf(e parser.Expr) (plan.Expr, bool) {
	switch lit := e.(type) {
	case *parser.NumberLiteral:
		return &plan.LiteralFloat{Value: lit.Val}, true
	case *parser.StringLiteral:
		return &plan.LiteralString{Value: lit.Val}, true
	default:
		return nil, false
	}
}

func isLiteralArg(e parser.Expr) bool {
	switch e.(type) {
	case *parser.NumberLiteral, *parser.StringLiteral:
		return true
	default:
		return false
	}
}

func (p *Planner) planBinary(ctx context.Context, be *parser.BinaryExpr) (plan.Node, error) {
	lhsLit, lhsIsLiteral := literalExprOf(be.LHS)
	rhsLit, rhsIsLiteral := literalExprOf(be.RHS)

	switch {
	case lhsIsLiteral && rhsIsLiteral:
		return nil, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "literal-literal binary expression")
	case rhsIsLiteral:
		input, err := p.exprToPlan(ctx, be.LHS)
		if err != nil {
			return nil, err
		}
		return p.binaryWithLiteral(input, rhsLit, be.Op, be.ReturnBool, false)
	case lhsIsLiteral:
		input, err := p.exprToPlan(ctx, be.RHS)
		if err != nil {
			return nil, err
		}
		return p.binaryWithLiteral(input, lhsLit, be.Op, be.ReturnBool, true)
	default:
		return p.planVectorVectorBinary(ctx, be)
	}
}

// binaryWithLiteral handles the vector-op-literal and literal-op-vector
// forms of a binary expression. literalOnLeft
// puts the literal on the left-hand side of every built expression, so
// non-commutative operators keep the query's operand order.
func (p *Planner) binaryWithLiteral(input plan.Node, lit plan.Expr, op parser.ItemType, returnBool bool, literalOnLeft bool) (plan.Node, error) {
	binOp, isComparison, err := tokenToBinOp(op)
	if err != nil {
		return nil, err
	}
	operands := func(col string) (plan.Expr, plan.Expr) {
		left, right := plan.Expr(&plan.Column{Name: col}), lit
		if literalOnLeft {
			left, right = right, left
		}
		return left, right
	}

	if isComparison && !returnBool {
		return p.filterOnFieldColumn(input, func(col string) plan.Expr {
			left, right := operands(col)
			return &plan.Binary{Left: left, Right: right, Op: binOp}
		})
	}

	return p.projectionForEachFieldColumn(input, func(col string) plan.Expr {
		left, right := operands(col)
		built := plan.Expr(&plan.Binary{Left: left, Right: right, Op: binOp})
		if isComparison && returnBool {
			built = &plan.Cast{Expr: built, To: schema.TypeFloat64}
		}
		return built
	}), nil
}

// planVectorVectorBinary handles the vector-op-vector form: an inner join
// on shared tag and time-index columns, followed by a per-field-column
// binary expression.
func (p *Planner) planVectorVectorBinary(ctx context.Context, be *parser.BinaryExpr) (plan.Node, error) {
	left, err := p.exprToPlan(ctx, be.LHS)
	if err != nil {
		return nil, err
	}
	leftFields := p.ctx.cloneFieldColumns()
	tagColumns := append([]string(nil), p.ctx.tagColumns...)
	timeIndexColumn := p.ctx.timeIndexColumn

	right, err := p.exprToPlan(ctx, be.RHS)
	if err != nil {
		return nil, err
	}
	rightFields := p.ctx.cloneFieldColumns()

	if len(leftFields) != len(rightFields) {
		return nil, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "mismatched field column count in vector binary operation: %d vs %d", len(leftFields), len(rightFields))
	}

	binOp, isComparison, err := tokenToBinOp(be.Op)
	if err != nil {
		return nil, err
	}

	joined := joinOnNonFieldColumns(left, right, tagColumns, timeIndexColumn)

	if isComparison && !be.ReturnBool {
		if len(leftFields) != 1 {
			return nil, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "comparison filter requires exactly one field column, found %d", len(leftFields))
		}
		pred := &plan.Binary{Left: qualifiedColumn(leftPlanJoinAlias, leftFields[0]), Right: &plan.Column{Name: rightFields[0]}, Op: binOp}
		return &plan.Filter{Input: joined, Predicate: pred}, nil
	}

	exprs := make([]plan.Expr, 0, len(leftFields)+len(tagColumns)+1)
	for i, lf := range leftFields {
		built := plan.Expr(&plan.Binary{Left: qualifiedColumn(leftPlanJoinAlias, lf), Right: &plan.Column{Name: rightFields[i]}, Op: binOp})
		if isComparison && be.ReturnBool {
			built = &plan.Cast{Expr: built, To: schema.TypeFloat64}
		}
		exprs = append(exprs, &plan.Alias{Expr: built, Name: lf})
	}
	for _, t := range tagColumns {
		exprs = append(exprs, &plan.Column{Name: t})
	}
	if timeIndexColumn != "" {
		exprs = append(exprs, &plan.Column{Name: timeIndexColumn})
	}

	p.ctx.fieldColumns = leftFields
	p.ctx.tagColumns = tagColumns
	p.ctx.timeIndexColumn = timeIndexColumn
	return &plan.Project{Input: joined, Exprs: exprs}, nil
}

func (p *Planner) emptyMetricTimeIndexColumn() string {
	if p.ctx.timeIndexColumn != "" {
		return p.ctx.timeIndexColumn
	}
	return "ts"
}

// planCall translates a PromQL function call:
// time() becomes an EmptyMetric leaf; everything else splits its
// arguments into one vector/matrix input plus literal parameters, and
// dispatches on classifyFunc to decide what gets spliced into the call.
func (p *Planner) planCall(ctx context.Context, call *parser.Call) (plan.Node, error) {
	name := call.Func.Name
	if name == specialTimeFunction {
		return &plan.EmptyMetric{
			Start:           p.ctx.start,
			End:             p.ctx.end,
			Interval:        p.ctx.interval,
			TimeIndexColumn: p.emptyMetricTimeIndexColumn(),
			FieldColumn:     defaultFieldColumn,
		}, nil
	}

	kind, ok := classifyFunc(name)
	if !ok {
		return nil, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "function %q", name)
	}

	var inputExpr parser.Expr
	var literalArgs []parser.Expr
	for _, a := range call.Args {
		if isLiteralArg(a) {
			literalArgs = append(literalArgs, a)
			continue
		}
		if inputExpr != nil {
			return nil, kwtserror.ErrMultipleVector
		}
		inputExpr = a
	}
	if inputExpr == nil {
		return nil, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "function %q: no vector argument", name)
	}
	if kind == funcExtrapolatingUDF {
		if _, ok := inputExpr.(*parser.MatrixSelector); !ok {
			return nil, kwtserror.Wrapf(kwtserror.ErrExpectRangeSelector, "function %q", name)
		}
	}

	input, err := p.exprToPlan(ctx, inputExpr)
	if err != nil {
		return nil, err
	}

	if want := funcsWithLiteralParams[name]; len(literalArgs) < want {
		return nil, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "function %q: expected %d literal parameters, got %d", name, want, len(literalArgs))
	}
	litExprs := make([]plan.Expr, 0, len(literalArgs))
	for _, a := range literalArgs {
		lit, ok := literalExprOf(a)
		if !ok {
			return nil, kwtserror.Wrapf(kwtserror.ErrUnsupportedExpr, "function %q: unsupported literal argument %T", name, a)
		}
		litExprs = append(litExprs, lit)
	}

	timeRangeCol := plan.TimestampRangeColumnName(p.ctx.timeIndexColumn)

	exprs := make([]plan.Expr, 0, len(p.ctx.fieldColumns)+len(p.ctx.tagColumns)+1)
	nullChecks := make([]plan.Expr, 0, len(p.ctx.fieldColumns))
	newFieldColumns := make([]string, 0, len(p.ctx.fieldColumns))
	for _, col := range p.ctx.fieldColumns {
		args := []plan.Expr{&plan.Column{Name: col}}
		switch kind {
		case funcUDF:
			args = []plan.Expr{&plan.Column{Name: timeRangeCol}, &plan.Column{Name: col}}
		case funcExtrapolatingUDF:
			args = []plan.Expr{&plan.Column{Name: timeRangeCol}, &plan.Column{Name: col}, &plan.Column{Name: p.ctx.timeIndexColumn}}
		}
		args = append(args, litExprs...)
		exprs = append(exprs, &plan.Alias{Expr: &plan.Call{Func: name, Args: args}, Name: col})
		nullChecks = append(nullChecks, &plan.IsNotNull{Expr: &plan.Column{Name: col}})
		newFieldColumns = append(newFieldColumns, col)
	}
	for _, t := range p.ctx.tagColumns {
		exprs = append(exprs, &plan.Column{Name: t})
	}
	if p.ctx.timeIndexColumn != "" {
		exprs = append(exprs, &plan.Column{Name: p.ctx.timeIndexColumn})
	}

	projected := &plan.Project{Input: input, Exprs: exprs}
	p.ctx.fieldColumns = newFieldColumns
	if len(nullChecks) == 0 {
		return projected, nil
	}
	return &plan.Filter{Input: projected, Predicate: disjunction(nullChecks)}, nil
}
